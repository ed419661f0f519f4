package book

import (
	"github.com/lepinkainen/folio/internal/errors"
)

// Status is the discriminant of an Outcome.
type Status int

const (
	StatusFound Status = iota + 1
	StatusNotFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders Status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the result for one input identifier: exactly one of
// Found(Metadata), NotFound(ISBN) or Failed(ISBN, Kind).
type Outcome struct {
	// Input is the caller's raw string for this position.
	Input string
	// ISBN is the canonical identifier, empty when the input was malformed.
	ISBN string

	status   Status
	metadata Metadata
	err      *errors.LookupError
}

// Found builds a successful outcome.
func Found(input, isbn string, m Metadata) Outcome {
	return Outcome{Input: input, ISBN: isbn, status: StatusFound, metadata: m.Clone()}
}

// NotFound builds an outcome for an identifier the provider authoritatively
// does not know.
func NotFound(input, isbn string) Outcome {
	return Outcome{Input: input, ISBN: isbn, status: StatusNotFound}
}

// Failed builds an outcome for an attempt that could not be completed.
func Failed(input, isbn string, err error) Outcome {
	lookupErr := errors.Classify(isbn, err)
	if lookupErr == nil {
		lookupErr = errors.NewLookupError(errors.KindUnknown, isbn, nil)
	}
	return Outcome{Input: input, ISBN: isbn, status: StatusFailed, err: lookupErr}
}

// Status returns which variant holds.
func (o Outcome) Status() Status { return o.status }

// IsFound reports whether the outcome carries metadata.
func (o Outcome) IsFound() bool { return o.status == StatusFound }

// Metadata returns the record for a Found outcome.
func (o Outcome) Metadata() (Metadata, bool) {
	if o.status != StatusFound {
		return Metadata{}, false
	}
	return o.metadata.Clone(), true
}

// Err returns the failure for a Failed outcome, nil otherwise.
func (o Outcome) Err() error {
	if o.err == nil {
		return nil
	}
	return o.err
}

// FailureKind returns the error kind of a Failed outcome, errors.NotFound
// for NotFound, and errors.KindUnknown for Found.
func (o Outcome) FailureKind() errors.Kind {
	switch o.status {
	case StatusFailed:
		return o.err.Kind
	case StatusNotFound:
		return errors.NotFound
	default:
		return errors.KindUnknown
	}
}

// WithInput rebinds a shared outcome to another input position.
func (o Outcome) WithInput(input string) Outcome {
	o.Input = input
	return o
}
