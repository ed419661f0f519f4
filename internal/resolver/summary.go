package resolver

import (
	"github.com/lepinkainen/folio/internal/enrichment/book"
	"github.com/lepinkainen/folio/internal/errors"
)

// Summary aggregates a resolve result for reporting.
type Summary struct {
	Total    int
	Found    int
	Cached   int
	Fresh    int
	NotFound int
	Failed   int
	// ByKind counts failures per error kind.
	ByKind map[errors.Kind]int
}

// Summarize counts outcomes.
func Summarize(outcomes []book.Outcome) Summary {
	s := Summary{Total: len(outcomes), ByKind: make(map[errors.Kind]int)}
	for _, o := range outcomes {
		switch o.Status() {
		case book.StatusFound:
			s.Found++
			if m, _ := o.Metadata(); m.Source.Cached {
				s.Cached++
			} else {
				s.Fresh++
			}
		case book.StatusNotFound:
			s.NotFound++
		case book.StatusFailed:
			s.Failed++
			s.ByKind[o.FailureKind()]++
		}
	}
	return s
}

// SuccessRate is Found/Total. NotFound and Failed both count against it.
func (s Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Found) / float64(s.Total)
}

// ResolvedRate is the share of found books among the identifiers the
// provider actually answered for, leaving failed lookups out.
func (s Summary) ResolvedRate() float64 {
	answered := s.Found + s.NotFound
	if answered == 0 {
		return 0
	}
	return float64(s.Found) / float64(answered)
}
