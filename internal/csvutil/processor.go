// Package csvutil reads identifier lists out of spreadsheet exports.
package csvutil

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lepinkainen/folio/internal/isbn"
)

// DefaultISBNColumns are tried, in order, when no columns are configured.
// They cover Goodreads and most library exports.
var DefaultISBNColumns = []string{"ISBN13", "ISBN", "ISBN10"}

// ProcessorOptions configures CSV processing behavior.
type ProcessorOptions struct {
	// FieldsPerRecord sets the expected number of fields per record.
	// If 0, it's set to the number of fields in the first record.
	FieldsPerRecord int

	// SkipInvalid controls whether to skip invalid records or return an error.
	SkipInvalid bool
}

// Row is one CSV record with access by header name.
type Row struct {
	Line   int
	fields []string
	header map[string]int
}

// Get returns the value of the named column (case-insensitive), or "".
func (r Row) Get(column string) string {
	i, ok := r.header[strings.ToLower(strings.TrimSpace(column))]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

// Has reports whether the header contains column.
func (r Row) Has(column string) bool {
	_, ok := r.header[strings.ToLower(strings.TrimSpace(column))]
	return ok
}

// ProcessCSV reads a CSV file and parses each record into type T.
// The parser function converts a Row into the target type.
// Returns a slice of parsed items or an error.
func ProcessCSV[T any](filename string, parser func(Row) (T, error), opts ProcessorOptions) ([]T, error) {
	csvFile, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = csvFile.Close() }()

	// File existence check
	if fi, err := csvFile.Stat(); err != nil || fi.Size() == 0 {
		return nil, fmt.Errorf("CSV file is empty or cannot be read")
	}

	return ProcessReader(csvFile, parser, opts)
}

// ProcessReader is ProcessCSV over an already open reader.
func ProcessReader[T any](r io.Reader, parser func(Row) (T, error), opts ProcessorOptions) ([]T, error) {
	reader := csv.NewReader(r)
	if opts.FieldsPerRecord > 0 {
		reader.FieldsPerRecord = opts.FieldsPerRecord
	}

	headerFields, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header := make(map[string]int, len(headerFields))
	for i, h := range headerFields {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := header[key]; !dup {
			header[key] = i
		}
	}

	var items []T
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			slog.Warn("Error reading record", "line", line, "error", err)
			continue
		}

		item, err := parser(Row{Line: line, fields: record, header: header})
		if err != nil {
			if opts.SkipInvalid {
				slog.Warn("Skipping invalid record", "line", line, "error", err)
				continue
			}
			return nil, fmt.Errorf("invalid record on line %d: %w", line, err)
		}

		items = append(items, item)
	}

	return items, nil
}

// ReadISBNs returns one identifier per data row. When several of columns
// hold a value, the first non-empty one in columns order is used. Rows with
// no identifier in any column are skipped.
func ReadISBNs(filename string, columns []string) ([]string, error) {
	if len(columns) == 0 {
		columns = DefaultISBNColumns
	}

	ids, err := ProcessCSV(filename, func(row Row) (string, error) {
		known := false
		for _, col := range columns {
			if !row.Has(col) {
				continue
			}
			known = true
			if v := strings.TrimSpace(row.Get(col)); isbn.Clean(v) != "" {
				return v, nil
			}
		}
		if !known {
			return "", fmt.Errorf("none of the columns %s exist", strings.Join(columns, ", "))
		}
		return "", errNoISBN
	}, ProcessorOptions{SkipInvalid: true})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

var errNoISBN = fmt.Errorf("row has no ISBN")
