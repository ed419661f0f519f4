package resolve

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/lepinkainen/folio/internal/enrichment/book"
	"github.com/lepinkainen/folio/internal/resolver"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// resultView is the serialized form of one outcome.
type resultView struct {
	Input     string         `json:"input" yaml:"input"`
	ISBN      string         `json:"isbn,omitempty" yaml:"isbn,omitempty"`
	Status    string         `json:"status" yaml:"status"`
	Book      *book.Metadata `json:"book,omitempty" yaml:"book,omitempty"`
	ErrorKind string         `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error     string         `json:"error,omitempty" yaml:"error,omitempty"`
}

func viewOf(o book.Outcome) resultView {
	v := resultView{Input: o.Input, ISBN: o.ISBN, Status: o.Status().String()}
	if m, ok := o.Metadata(); ok {
		v.Book = &m
	}
	if err := o.Err(); err != nil {
		v.ErrorKind = o.FailureKind().String()
		v.Error = err.Error()
	}
	return v
}

func render(w io.Writer, format string, outcomes []book.Outcome) error {
	views := make([]resultView, 0, len(outcomes))
	for _, o := range outcomes {
		views = append(views, viewOf(o))
	}

	switch format {
	case "", FormatTable:
		_, err := fmt.Fprintln(w, renderTable(outcomes))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(views); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func renderTable(outcomes []book.Outcome) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "ISBN", "Status", "Title", "Authors", "Published", "Source"})

	for i, o := range outcomes {
		id := o.ISBN
		if id == "" {
			id = o.Input
		}
		row := table.Row{i + 1, id, o.Status().String(), "", "", "", ""}

		switch o.Status() {
		case book.StatusFound:
			m, _ := o.Metadata()
			source := m.Source.Provider
			if m.Source.Cached {
				source += " (cached)"
			}
			row[3] = text.Trim(m.Title, 48)
			row[4] = text.Trim(strings.Join(m.Authors, ", "), 32)
			row[5] = m.PublishDate
			row[6] = source
		case book.StatusFailed:
			row[3] = text.Trim(o.Err().Error(), 48)
			row[6] = o.FailureKind().String()
		}
		tw.AppendRow(row)
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// renderDetails prints every populated field of one record.
func renderDetails(m book.Metadata) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)

	add := func(field, value string) {
		if value != "" {
			tw.AppendRow(table.Row{field, value})
		}
	}
	add("Title", m.Title)
	add("Subtitle", m.Subtitle)
	add("Authors", strings.Join(m.Authors, ", "))
	add("ISBN-13", m.ISBN13)
	add("ISBN-10", m.ISBN10)
	add("Publisher", m.Publisher)
	add("Published", m.PublishDate)
	if m.PageCount > 0 {
		add("Pages", strconv.Itoa(m.PageCount))
	}
	add("Language", m.Language)
	add("Categories", strings.Join(m.Categories, ", "))
	add("Cover", m.CoverURL)
	add("Description", text.WrapSoft(m.Description, 72))
	source := m.Source.Provider
	if m.Source.Cached {
		source += " (cached)"
	}
	add("Source", source)

	return tw.Render()
}

var (
	foundStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	notFoundStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	failedStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	faintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("247")).Faint(true)
)

// summaryLine renders the one-line result summary.
func summaryLine(s resolver.Summary) string {
	parts := []string{
		foundStyle.Render(fmt.Sprintf("%d found", s.Found)),
		notFoundStyle.Render(fmt.Sprintf("%d not found", s.NotFound)),
		failedStyle.Render(fmt.Sprintf("%d failed", s.Failed)),
	}
	line := fmt.Sprintf("%d ISBNs: %s", s.Total, strings.Join(parts, ", "))

	detail := fmt.Sprintf("(%d cached, %.0f%% success)", s.Cached, s.SuccessRate()*100)
	if s.Failed > 0 {
		detail = fmt.Sprintf("(%d cached, %.0f%% success, failures: %s)", s.Cached, s.SuccessRate()*100, failureBreakdown(s))
	}
	return line + " " + faintStyle.Render(detail)
}

func failureBreakdown(s resolver.Summary) string {
	kinds := make([]string, 0, len(s.ByKind))
	for kind, n := range s.ByKind {
		kinds = append(kinds, fmt.Sprintf("%s=%d", kind, n))
	}
	sort.Strings(kinds)
	return strings.Join(kinds, " ")
}
