// Package presenter is the side-effect half of the workflow: it forwards
// intents to the orchestrator, gates them on platform permissions, and turns
// one-shot events into provider calls or user messages.
package presenter

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/facecheck/internal/domain/face"
	"github.com/example/facecheck/internal/orchestrator"
	"github.com/example/facecheck/internal/provider"
)

const (
	// PermissionsRequiredMessage is reported at start when any permission is missing.
	PermissionsRequiredMessage = "Permissions denied. Camera and storage are required."
	// CameraDeniedMessage is reported when a capture is attempted without camera access.
	CameraDeniedMessage = "Camera permission denied."
	// StorageDeniedMessage is reported when a gallery pick is attempted without storage access.
	StorageDeniedMessage = "Storage permission denied."
)

// Permissions mirrors the platform permission state.
type Permissions struct {
	Camera  bool `json:"camera"`
	Storage bool `json:"storage"`
}

// MessageSink displays user facing messages.
type MessageSink interface {
	ShowMessage(ctx context.Context, text string)
}

// Presenter connects an orchestrator to a provider and a message sink.
type Presenter struct {
	orch     *orchestrator.Orchestrator
	provider provider.Provider
	sink     MessageSink
	logger   *zap.Logger

	mu    sync.RWMutex
	perms Permissions

	// inflight tracks provider calls running on their own goroutines.
	inflight sync.WaitGroup
}

// New builds a Presenter. Call Start once, then Run until the session ends.
func New(
	orch *orchestrator.Orchestrator,
	prov provider.Provider,
	sink MessageSink,
	perms Permissions,
	logger *zap.Logger,
) *Presenter {
	return &Presenter{
		orch:     orch,
		provider: prov,
		sink:     sink,
		perms:    perms,
		logger:   logger.Named("presenter"),
	}
}

// Permissions returns the current permission state.
func (p *Presenter) Permissions() Permissions {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.perms
}

// SetPermissions replaces the permission state.
func (p *Presenter) SetPermissions(perms Permissions) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.perms = perms
}

// Start reports missing permissions and initializes the provider when the camera is available.
func (p *Presenter) Start(ctx context.Context) {
	perms := p.Permissions()
	if !perms.Camera || !perms.Storage {
		p.orch.OnInitializationOutcome(face.Failure[struct{}](PermissionsRequiredMessage, face.ErrPermissionDenied))
	}

	if !perms.Camera {
		return
	}

	p.async(func() {
		err := p.provider.Initialize(ctx)
		if err != nil {
			p.logger.Warn("provider initialize failed", zap.Error(err))
		}

		p.orch.OnInitializationOutcome(face.OutcomeOf(struct{}{}, err))
	})
}

// Run consumes events until the stream closes or ctx is done.
func (p *Presenter) Run(ctx context.Context) error {
	events := p.orch.Events()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}

			p.handle(ctx, ev)
		}
	}
}

// Capture forwards a capture intent.
func (p *Presenter) Capture(mode face.CaptureMode) {
	if !p.Permissions().Camera {
		p.orch.OnCaptureResult(face.Failure[*face.Image](CameraDeniedMessage, face.ErrPermissionDenied))

		return
	}

	p.orch.OnCaptureRequested(mode)
}

// PickGallery forwards the picker result. img is nil when nothing could be loaded.
func (p *Presenter) PickGallery(img *face.Image) {
	if !p.Permissions().Storage {
		p.orch.OnGalleryResult(face.Failure[*face.Image](StorageDeniedMessage, face.ErrPermissionDenied))

		return
	}

	p.orch.OnGallerySelection(img)
}

// Compare forwards a compare intent.
func (p *Presenter) Compare() {
	p.orch.OnCompareRequested()
}

// Reset forwards a reset intent.
func (p *Presenter) Reset() {
	p.orch.OnReset()
}

// Close waits for in-flight provider calls, releases the provider and closes the event stream.
// ctx bounds the deinitialize call only; cancel the context given to Start and Run first.
func (p *Presenter) Close(ctx context.Context) {
	p.inflight.Wait()

	if d, ok := p.provider.(provider.Deinitializer); ok {
		if err := d.Deinitialize(ctx); err != nil {
			p.logger.Warn("provider deinitialize failed", zap.Error(err))
		}
	}

	p.orch.Close()
}

// Wait blocks until every in-flight provider call has reported back.
func (p *Presenter) Wait() {
	p.inflight.Wait()
}

func (p *Presenter) handle(ctx context.Context, ev face.Event) {
	switch ev.Kind {
	case face.EventShowMessage:
		p.sink.ShowMessage(ctx, ev.Message)
	case face.EventRequestCapture:
		if !p.Permissions().Camera {
			p.orch.OnCaptureResult(face.Failure[*face.Image](CameraDeniedMessage, face.ErrPermissionDenied))

			return
		}

		mode := ev.Mode
		p.async(func() {
			started := time.Now()
			img, err := p.provider.Capture(ctx, mode)
			p.logger.Debug("capture finished",
				zap.Stringer("mode", mode),
				zap.Duration("latency", time.Since(started)),
				zap.Error(err))
			p.orch.OnCaptureResult(face.OutcomeOf(img, err))
		})
	case face.EventRequestComparison:
		selfie, gallery := ev.Selfie, ev.Gallery
		p.async(func() {
			started := time.Now()
			score, err := p.provider.Compare(ctx, selfie, gallery)
			p.logger.Debug("comparison finished",
				zap.Duration("latency", time.Since(started)),
				zap.Error(err))
			p.orch.OnComparisonResult(face.OutcomeOf(score, err))
		})
	default:
		p.logger.Warn("unknown event", zap.Int("kind", int(ev.Kind)))
	}
}

func (p *Presenter) async(fn func()) {
	p.inflight.Add(1)

	go func() {
		defer p.inflight.Done()
		fn()
	}()
}
