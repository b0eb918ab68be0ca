// Package provider defines the boundary to the opaque biometric capability.
package provider

import (
	"context"

	"github.com/example/facecheck/internal/domain/face"
)

// Provider exposes the three operations the workflow needs from the biometric SDK.
// Failures should be *face.ProviderError values; Capture returns face.ErrCanceled
// when the subject aborts.
type Provider interface {
	Initialize(ctx context.Context) error
	Capture(ctx context.Context, mode face.CaptureMode) (*face.Image, error)
	// Compare returns the similarity of a and b in percent.
	Compare(ctx context.Context, a, b *face.Image) (float64, error)
}

// Deinitializer is implemented by providers that hold resources between calls.
type Deinitializer interface {
	Deinitialize(ctx context.Context) error
}
