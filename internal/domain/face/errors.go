package face

import "errors"

var (
	// ErrPermissionDenied is returned when camera or storage access is missing.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrProviderInitialization is returned when the provider fails to start.
	ErrProviderInitialization = errors.New("provider initialization failed")
	// ErrCaptureFailed covers any capture that did not yield a usable image.
	ErrCaptureFailed = errors.New("capture failed")
	// ErrLivenessNotPassed is returned when the subject did not pass the liveness check.
	ErrLivenessNotPassed = errors.New("liveness check not passed")
	// ErrNoImage is returned when a capture passed but carried no image.
	ErrNoImage = errors.New("no image returned")
	// ErrComparisonFailed covers any comparison that did not yield a score.
	ErrComparisonFailed = errors.New("comparison failed")
	// ErrEmptyComparison is returned when the provider answered with no results.
	ErrEmptyComparison = errors.New("empty comparison result")
	// ErrGalleryLoad is returned when the selected gallery image could not be read.
	ErrGalleryLoad = errors.New("gallery image could not be loaded")
	// ErrCanceled marks a capture aborted by the subject. It is not a failure.
	ErrCanceled = errors.New("canceled")
)

// parentKinds maps narrow kinds onto the failure class they belong to.
//
//nolint:gochecknoglobals // Read-only lookup table.
var parentKinds = map[error]error{
	ErrLivenessNotPassed: ErrCaptureFailed,
	ErrNoImage:           ErrCaptureFailed,
	ErrEmptyComparison:   ErrComparisonFailed,
}

// ProviderError carries a user facing message together with its taxonomy kind.
type ProviderError struct {
	// Kind is one of the sentinel errors of this package.
	Kind error
	// Message is shown to the user as is.
	Message string
	// Err is the underlying cause, if any.
	Err error
}

// NewProviderError builds a ProviderError.
func NewProviderError(kind error, message string, cause error) *ProviderError {
	return &ProviderError{Kind: kind, Message: message, Err: cause}
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}

	return e.Message
}

// Is reports whether target is the kind of this error or its failure class.
func (e *ProviderError) Is(target error) bool {
	if e.Kind == nil {
		return false
	}

	return target == e.Kind || target == parentKinds[e.Kind]
}

// Unwrap returns the cause for errors.Is/As support.
func (e *ProviderError) Unwrap() error {
	return e.Err
}
