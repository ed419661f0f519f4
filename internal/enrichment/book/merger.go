package book

import (
	"sort"
)

// ProviderResult is the record fetched from a single provider.
type ProviderResult struct {
	// Data is the metadata returned by the provider, nil when not found.
	Data *Metadata

	// Source is the human-readable name of the provider.
	Source string

	// Priority is the merge precedence (lower = higher precedence).
	Priority int
}

// Merger defines the interface for merging book information from multiple sources.
type Merger interface {
	// Merge combines multiple ProviderResults into a single Metadata.
	Merge(results []ProviderResult) *Metadata
}

// PriorityMerger implements Merger using priority-based field selection.
// For each field, it uses the first non-empty value from the sorted results.
type PriorityMerger struct{}

// NewPriorityMerger creates a new PriorityMerger.
func NewPriorityMerger() *PriorityMerger {
	return &PriorityMerger{}
}

// Merge combines multiple ProviderResults into a single Metadata.
// Results are sorted by priority (lower = higher precedence) and each field
// takes the first non-empty value. The merged record's Source names the
// highest-priority provider that contributed.
func (m *PriorityMerger) Merge(results []ProviderResult) *Metadata {
	if len(results) == 0 {
		return nil
	}

	sorted := make([]ProviderResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	merged := Metadata{}
	contributed := false

	for _, result := range sorted {
		if result.Data == nil {
			continue
		}
		d := result.Data

		if !contributed {
			merged.Source = d.Source
			if merged.Source.Provider == "" {
				merged.Source.Provider = result.Source
			}
			contributed = true
		}

		fillString(&merged.CatalogID, d.CatalogID)
		fillString(&merged.Title, d.Title)
		fillString(&merged.Subtitle, d.Subtitle)
		fillString(&merged.ISBN10, d.ISBN10)
		fillString(&merged.ISBN13, d.ISBN13)
		fillString(&merged.Publisher, d.Publisher)
		fillString(&merged.PublishDate, d.PublishDate)
		fillString(&merged.Description, d.Description)
		fillString(&merged.CoverURL, d.CoverURL)
		fillString(&merged.Language, d.Language)

		if merged.PageCount == 0 && d.PageCount > 0 {
			merged.PageCount = d.PageCount
		}

		// Authors - prefer first non-empty list
		if len(merged.Authors) == 0 && len(d.Authors) > 0 {
			merged.Authors = append([]string(nil), d.Authors...)
		}

		// Categories - merge all unique values
		if len(d.Categories) > 0 {
			merged.Categories = mergeStringSlices(merged.Categories, d.Categories)
		}
	}

	if !contributed {
		return nil
	}
	return &merged
}

func fillString(dst *string, src string) {
	if *dst == "" && src != "" {
		*dst = src
	}
}

// mergeStringSlices merges two string slices, removing duplicates.
func mergeStringSlices(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	return result
}
