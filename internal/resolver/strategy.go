package resolver

import (
	"github.com/lepinkainen/folio/internal/enrichment/book"
)

// Strategy is how a set of uncached identifiers is sent to the provider.
type Strategy int

const (
	// FanOut issues one lookup per identifier, concurrently.
	FanOut Strategy = iota
	// NativeBatch sends every identifier in one provider request.
	NativeBatch
)

func (s Strategy) String() string {
	if s == NativeBatch {
		return "native-batch"
	}
	return "fan-out"
}

// SelectStrategy picks NativeBatch only when the provider can batch and
// there are at least threshold identifiers. Provider capability always
// decides first.
func SelectStrategy(p book.Provider, unique, threshold int) Strategy {
	if _, ok := book.SupportsBatch(p); !ok {
		return FanOut
	}
	if unique >= threshold {
		return NativeBatch
	}
	return FanOut
}
