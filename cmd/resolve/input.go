package resolve

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lepinkainen/folio/internal/csvutil"
)

// collectInputs gathers identifiers from the command line and the input
// file, in that order. Blank lines and lines starting with # are skipped.
func collectInputs(opts Options) ([]string, error) {
	ids := make([]string, 0, len(opts.ISBNs))
	for _, id := range opts.ISBNs {
		if strings.TrimSpace(id) != "" {
			ids = append(ids, id)
		}
	}

	switch {
	case opts.InputFile == "":
		return ids, nil
	case opts.InputFile == "-":
		in := opts.In
		if in == nil {
			in = os.Stdin
		}
		lines, err := readLines(in)
		if err != nil {
			return nil, fmt.Errorf("failed to read ISBNs from stdin: %w", err)
		}
		return append(ids, lines...), nil
	case strings.EqualFold(filepath.Ext(opts.InputFile), ".csv"):
		columns := opts.Columns
		if len(columns) == 0 {
			columns = csvutil.DefaultISBNColumns
		}
		rows, err := csvutil.ReadISBNs(opts.InputFile, columns)
		if err != nil {
			return nil, err
		}
		return append(ids, rows...), nil
	default:
		f, err := os.Open(opts.InputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		defer func() { _ = f.Close() }()

		lines, err := readLines(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", opts.InputFile, err)
		}
		return append(ids, lines...), nil
	}
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
