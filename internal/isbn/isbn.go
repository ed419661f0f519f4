// Package isbn normalizes raw ISBN input into a canonical comparison form.
package isbn

import (
	"strings"
	"unicode"

	"github.com/lepinkainen/folio/internal/errors"
)

// Kind tells ISBN-10 and ISBN-13 apart.
type Kind int

const (
	ISBN10 Kind = 10
	ISBN13 Kind = 13
)

// Identifier pairs the caller's raw input with its canonical form.
type Identifier struct {
	Raw       string
	Canonical string
}

// Kind reports whether the identifier is an ISBN-10 or ISBN-13.
func (id Identifier) Kind() Kind {
	return Kind(len(id.Canonical))
}

func (id Identifier) String() string {
	return id.Canonical
}

// Normalize strips formatting from raw and validates the result.
// Hyphens and whitespace are removed, spreadsheet wrappers like ="0134685997"
// are unwrapped and a trailing lowercase x is upper-cased. Any other
// character rejects the input as a whole.
func Normalize(raw string) (Identifier, error) {
	s := strings.TrimSpace(raw)
	s = unwrapSpreadsheet(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '-' || unicode.IsSpace(r):
			continue
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'X' || r == 'x':
			b.WriteRune('X')
		default:
			return Identifier{}, errors.NewInvalidInputError(raw, "contains characters other than digits and X")
		}
	}

	canonical := b.String()
	switch len(canonical) {
	case 0:
		return Identifier{}, errors.NewInvalidInputError(raw, "empty identifier")
	case 10:
		if i := strings.IndexByte(canonical, 'X'); i >= 0 && i != 9 {
			return Identifier{}, errors.NewInvalidInputError(raw, "X is only valid as the ISBN-10 check character")
		}
	case 13:
		if strings.ContainsRune(canonical, 'X') {
			return Identifier{}, errors.NewInvalidInputError(raw, "X is not valid in an ISBN-13")
		}
	default:
		return Identifier{}, errors.NewInvalidInputError(raw, "length must be 10 or 13")
	}

	return Identifier{Raw: raw, Canonical: canonical}, nil
}

// Clean strips hyphens and spaces without validating, for comparing stored
// identifiers that may already be malformed.
func Clean(s string) string {
	s = unwrapSpreadsheet(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
}

// unwrapSpreadsheet removes the ="..." guard Goodreads exports put around ISBNs.
func unwrapSpreadsheet(s string) string {
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		return s[2 : len(s)-1]
	}
	return strings.Trim(s, `"`)
}
