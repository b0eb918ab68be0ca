package face

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestOutcomeOf checks the mapping from (value, error) pairs onto outcome variants.
func TestOutcomeOf(t *testing.T) {
	t.Parallel()

	success := OutcomeOf(92.5, nil)
	value, ok := success.Value()
	require.True(t, ok)
	require.InDelta(t, 92.5, value, 1e-9)
	require.Equal(t, OutcomeSuccess, success.Kind())

	canceled := OutcomeOf[*Image](nil, fmt.Errorf("capture: %w", ErrCanceled))
	require.Equal(t, OutcomeCanceled, canceled.Kind())
	require.Empty(t, canceled.Message())

	cause := errors.New("sdk exploded")
	failed := OutcomeOf[*Image](nil, NewProviderError(ErrLivenessNotPassed, "Liveness check failed", cause))
	require.Equal(t, OutcomeError, failed.Kind())
	require.Equal(t, "Liveness check failed", failed.Message())
	require.ErrorIs(t, failed.Cause(), cause)

	plain := OutcomeOf(0.0, errors.New("boom"))
	require.Equal(t, "boom", plain.Message())
}

// TestOutcomeMessageOr verifies the fallback is used only for empty messages.
func TestOutcomeMessageOr(t *testing.T) {
	t.Parallel()

	require.Equal(t, "fallback", Failure[int]("", nil).MessageOr("fallback"))
	require.Equal(t, "own", Failure[int]("own", nil).MessageOr("fallback"))
}

// TestProviderErrorTaxonomy verifies narrow kinds match their failure class.
func TestProviderErrorTaxonomy(t *testing.T) {
	t.Parallel()

	err := NewProviderError(ErrNoImage, "No face image returned from liveness", nil)
	require.ErrorIs(t, err, ErrNoImage)
	require.ErrorIs(t, err, ErrCaptureFailed)
	require.NotErrorIs(t, err, ErrComparisonFailed)

	err = NewProviderError(ErrEmptyComparison, "No comparison result returned", nil)
	require.ErrorIs(t, err, ErrComparisonFailed)
	require.Equal(t, "No comparison result returned", err.Error())
}
