// Package orchestrator owns the UI state of a capture and comparison workflow.
// All transitions are serialized through a single mutex; one-shot directives
// for the presentation layer are published on a buffered channel.
package orchestrator

import (
	"sync"

	"go.uber.org/zap"

	"github.com/example/facecheck/internal/domain/face"
)

const (
	// DefaultEventBuffer is the capacity of the event channel.
	DefaultEventBuffer = 16

	// InitializationFailedMessage is shown for any provider initialization failure.
	InitializationFailedMessage = "SDK initialization failed. The app will not work."
	// CaptureFailedMessage is shown when a capture failure carries no message.
	CaptureFailedMessage = "Failed to capture face"
	// ComparisonFailedMessage is shown when a comparison failure carries no message.
	ComparisonFailedMessage = "Failed to compare faces"
	// GalleryLoadFailedMessage is shown when no gallery image could be loaded.
	GalleryLoadFailedMessage = "Failed to load image from gallery"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEventBuffer sets the event channel capacity.
func WithEventBuffer(size int) Option {
	return func(o *Orchestrator) {
		if size > 0 {
			o.bufferSize = size
		}
	}
}

// Orchestrator reacts to user intents and provider outcomes.
type Orchestrator struct {
	logger     *zap.Logger
	bufferSize int

	// mu serializes every transition and guards the fields below.
	mu     sync.Mutex
	state  face.State
	events chan face.Event
	closed bool
}

// New creates an Orchestrator holding the initial state.
func New(logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:     logger.Named("orchestrator"),
		bufferSize: DefaultEventBuffer,
	}

	for _, opt := range opts {
		opt(o)
	}

	o.events = make(chan face.Event, o.bufferSize)

	return o
}

// Events returns the one-shot event stream. It is closed by Close.
func (o *Orchestrator) Events() <-chan face.Event {
	return o.events
}

// State returns a snapshot of the current state.
func (o *Orchestrator) State() face.State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state.Clone()
}

// Close closes the event stream. Later calls are ignored.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}

	o.closed = true
	close(o.events)
}

// OnCaptureRequested asks the presentation layer to start a capture.
func (o *Orchestrator) OnCaptureRequested(mode face.CaptureMode) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.emit(face.RequestCapture(mode))
}

// OnCompareRequested starts a comparison when both images are present and no
// comparison is already running.
func (o *Orchestrator) OnCompareRequested() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.IsLoading {
		o.logger.Debug("compare requested while a comparison is running")

		return
	}

	selfie, gallery := o.state.Selfie, o.state.Gallery
	if selfie == nil || gallery == nil {
		o.logger.Debug("compare requested without both images")

		return
	}

	o.state.IsLoading = true
	o.emit(face.RequestComparison(selfie, gallery))
}

// OnReset restores the initial state.
func (o *Orchestrator) OnReset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state = face.State{}
}

// OnCaptureResult applies the outcome of a liveness capture.
func (o *Orchestrator) OnCaptureResult(outcome face.Outcome[*face.Image]) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state.IsLoading = false

	switch outcome.Kind() {
	case face.OutcomeSuccess:
		img, _ := outcome.Value()
		o.state = o.state.WithSelfie(img)
	case face.OutcomeError:
		o.logger.Info("capture failed", zap.String("message", outcome.Message()), zap.Error(outcome.Cause()))
		o.emit(face.ShowMessage(outcome.MessageOr(CaptureFailedMessage)))
	case face.OutcomeCanceled:
		o.logger.Debug("capture canceled")
	}
}

// OnGallerySelection applies a gallery pick. A nil image means nothing could be loaded.
func (o *Orchestrator) OnGallerySelection(img *face.Image) {
	if img == nil {
		o.OnGalleryResult(face.Failure[*face.Image](GalleryLoadFailedMessage, face.ErrGalleryLoad))

		return
	}

	o.OnGalleryResult(face.Success(img))
}

// OnGalleryResult applies the outcome of a gallery pick.
func (o *Orchestrator) OnGalleryResult(outcome face.Outcome[*face.Image]) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch outcome.Kind() {
	case face.OutcomeSuccess:
		img, _ := outcome.Value()
		if img == nil {
			o.emit(face.ShowMessage(GalleryLoadFailedMessage))

			return
		}

		o.state = o.state.WithGallery(img)
	case face.OutcomeError:
		o.emit(face.ShowMessage(outcome.MessageOr(GalleryLoadFailedMessage)))
	case face.OutcomeCanceled:
		o.logger.Debug("gallery pick canceled")
	}
}

// OnComparisonResult applies the outcome of a comparison.
func (o *Orchestrator) OnComparisonResult(outcome face.Outcome[float64]) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state.IsLoading = false

	switch outcome.Kind() {
	case face.OutcomeSuccess:
		score, _ := outcome.Value()
		o.state = o.state.WithScore(score)
	case face.OutcomeError:
		o.logger.Info("comparison failed", zap.String("message", outcome.Message()), zap.Error(outcome.Cause()))
		o.emit(face.ShowMessage(outcome.MessageOr(ComparisonFailedMessage)))
	case face.OutcomeCanceled:
		o.logger.Debug("comparison canceled")
	}
}

// OnInitializationOutcome warns the user once when the provider could not start.
func (o *Orchestrator) OnInitializationOutcome(outcome face.Outcome[struct{}]) {
	if outcome.Kind() != face.OutcomeError {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.logger.Warn("provider initialization failed", zap.String("message", outcome.Message()), zap.Error(outcome.Cause()))
	o.emit(face.ShowMessage(InitializationFailedMessage))
}

// emit publishes ev without blocking. Callers hold mu.
func (o *Orchestrator) emit(ev face.Event) {
	if o.closed {
		o.logger.Debug("event dropped after close", zap.Stringer("kind", ev.Kind))

		return
	}

	select {
	case o.events <- ev:
	default:
		o.logger.Warn("event buffer full, dropping event", zap.Stringer("kind", ev.Kind))
	}
}
