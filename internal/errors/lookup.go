package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net"
	"time"
)

// Kind classifies why a single identifier could not be resolved.
type Kind int

const (
	// KindUnknown is the zero value and never produced by the engine.
	KindUnknown Kind = iota
	InvalidInput
	NetworkError
	ProviderError
	RateLimited
	Timeout
	CircuitOpen
	NotFound
	Cancelled
)

var kindNames = map[Kind]string{
	KindUnknown:   "unknown",
	InvalidInput:  "invalid_input",
	NetworkError:  "network_error",
	ProviderError: "provider_error",
	RateLimited:   "rate_limited",
	Timeout:       "timeout",
	CircuitOpen:   "circuit_open",
	NotFound:      "not_found",
	Cancelled:     "cancelled",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText lets Kind render by name in JSON and YAML output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Transient reports whether failures of this kind say something about provider
// health. ProviderError is only transient for 5xx responses, see LookupError.Retryable.
func (k Kind) Transient() bool {
	switch k {
	case NetworkError, RateLimited, Timeout:
		return true
	default:
		return false
	}
}

// ErrBatchTooLarge is wrapped when a request exceeds the configured batch cap.
var ErrBatchTooLarge = stdErrors.New("batch exceeds maximum size")

// LookupError is the error type produced for a failed identifier lookup.
type LookupError struct {
	Kind       Kind
	ISBN       string
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *LookupError) Error() string {
	msg := e.Kind.String()
	if e.ISBN != "" {
		msg = fmt.Sprintf("%s: %s", e.ISBN, msg)
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could succeed.
func (e *LookupError) Retryable() bool {
	if e.Kind == ProviderError {
		return e.StatusCode >= 500
	}
	return e.Kind.Transient()
}

// NewLookupError wraps err with the given kind.
func NewLookupError(kind Kind, isbn string, err error) *LookupError {
	return &LookupError{Kind: kind, ISBN: isbn, Err: err}
}

// NewProviderError builds a ProviderError for an unexpected HTTP status.
func NewProviderError(isbn string, statusCode int, err error) *LookupError {
	return &LookupError{Kind: ProviderError, ISBN: isbn, StatusCode: statusCode, Err: err}
}

// NewInvalidInputError builds an InvalidInput error with a reason.
func NewInvalidInputError(input, reason string) *LookupError {
	return &LookupError{Kind: InvalidInput, ISBN: input, Err: stdErrors.New(reason)}
}

// KindOf classifies err into the lookup taxonomy.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var lookupErr *LookupError
	if stdErrors.As(err, &lookupErr) && lookupErr.Kind != KindUnknown {
		return lookupErr.Kind
	}
	if IsRateLimitError(err) {
		return RateLimited
	}
	if stdErrors.Is(err, context.Canceled) {
		return Cancelled
	}
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}

	var netErr net.Error
	if stdErrors.As(err, &netErr) {
		if netErr.Timeout() {
			return Timeout
		}
		return NetworkError
	}
	return ProviderError
}

// IsRetryable reports whether err is a transient failure worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var lookupErr *LookupError
	if stdErrors.As(err, &lookupErr) {
		return lookupErr.Retryable()
	}
	return KindOf(err).Transient()
}

// RetryAfterOf extracts a provider retry hint from err, if any.
func RetryAfterOf(err error) time.Duration {
	var lookupErr *LookupError
	if stdErrors.As(err, &lookupErr) && lookupErr.RetryAfter > 0 {
		return lookupErr.RetryAfter
	}
	var rlErr *RateLimitError
	if stdErrors.As(err, &rlErr) {
		return rlErr.RetryAfter
	}
	return 0
}

// Classify turns any error into a *LookupError for isbn, keeping existing
// classification when err already is one.
func Classify(isbn string, err error) *LookupError {
	if err == nil {
		return nil
	}
	var lookupErr *LookupError
	if stdErrors.As(err, &lookupErr) {
		if lookupErr.ISBN == "" {
			clone := *lookupErr
			clone.ISBN = isbn
			return &clone
		}
		return lookupErr
	}
	return &LookupError{Kind: KindOf(err), ISBN: isbn, RetryAfter: RetryAfterOf(err), Err: err}
}
