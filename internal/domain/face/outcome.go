package face

import "errors"

// OutcomeKind tags the variant held by an Outcome.
type OutcomeKind int

const (
	// OutcomeSuccess carries a value.
	OutcomeSuccess OutcomeKind = iota + 1
	// OutcomeError carries a message and an optional cause.
	OutcomeError
	// OutcomeCanceled carries nothing.
	OutcomeCanceled
)

// String implements fmt.Stringer.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeError:
		return "error"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Outcome is the result of a provider call as seen by the orchestrator.
type Outcome[T any] struct {
	kind    OutcomeKind
	value   T
	message string
	cause   error
}

// Success wraps a value.
func Success[T any](value T) Outcome[T] {
	return Outcome[T]{kind: OutcomeSuccess, value: value}
}

// Failure builds an error outcome. message may be empty.
func Failure[T any](message string, cause error) Outcome[T] {
	return Outcome[T]{kind: OutcomeError, message: message, cause: cause}
}

// Canceled builds a canceled outcome.
func Canceled[T any]() Outcome[T] {
	return Outcome[T]{kind: OutcomeCanceled}
}

// OutcomeOf converts a Go style (value, error) pair into an Outcome.
// A ProviderError contributes its message; any other error its text.
func OutcomeOf[T any](value T, err error) Outcome[T] {
	if err == nil {
		return Success(value)
	}

	if errors.Is(err, ErrCanceled) {
		return Canceled[T]()
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return Failure[T](providerErr.Message, err)
	}

	return Failure[T](err.Error(), err)
}

// Kind returns the variant tag.
func (o Outcome[T]) Kind() OutcomeKind { return o.kind }

// Value returns the success value and whether the outcome is a success.
func (o Outcome[T]) Value() (T, bool) {
	return o.value, o.kind == OutcomeSuccess
}

// Message returns the failure message, or "" for other variants.
func (o Outcome[T]) Message() string { return o.message }

// Cause returns the failure cause, if any.
func (o Outcome[T]) Cause() error { return o.cause }

// MessageOr returns the failure message, or fallback when it is empty.
func (o Outcome[T]) MessageOr(fallback string) string {
	if o.message == "" {
		return fallback
	}

	return o.message
}
