package presenter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/facecheck/internal/domain/face"
	"github.com/example/facecheck/internal/orchestrator"
)

// fakeProvider scripts provider answers and counts calls.
type fakeProvider struct {
	initErr    error
	captureImg *face.Image
	captureErr error
	score      float64
	compareErr error
	// compareGate, when set, holds every comparison until it is closed.
	compareGate chan struct{}

	initCalls    atomic.Int32
	captureCalls atomic.Int32
	compareCalls atomic.Int32
	deinitCalls  atomic.Int32
}

func (f *fakeProvider) Initialize(context.Context) error {
	f.initCalls.Add(1)

	return f.initErr
}

func (f *fakeProvider) Capture(context.Context, face.CaptureMode) (*face.Image, error) {
	f.captureCalls.Add(1)

	return f.captureImg, f.captureErr
}

func (f *fakeProvider) Compare(ctx context.Context, _ *face.Image, _ *face.Image) (float64, error) {
	f.compareCalls.Add(1)

	if f.compareGate != nil {
		select {
		case <-f.compareGate:
		case <-ctx.Done():
			return 0, face.ErrCanceled
		}
	}

	return f.score, f.compareErr
}

func (f *fakeProvider) Deinitialize(context.Context) error {
	f.deinitCalls.Add(1)

	return nil
}

// recordingSink stores every message it is asked to show.
type recordingSink struct {
	mu       sync.Mutex
	messages []string
}

func (s *recordingSink) ShowMessage(_ context.Context, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, text)
}

func (s *recordingSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.messages...)
}

type harness struct {
	orch     *orchestrator.Orchestrator
	pres     *Presenter
	provider *fakeProvider
	sink     *recordingSink
	cancel   context.CancelFunc
	done     chan error
	stopOnce sync.Once
}

func newHarness(t *testing.T, prov *fakeProvider, perms Permissions) *harness {
	t.Helper()

	logger := zap.NewNop()
	orch := orchestrator.New(logger)
	sink := new(recordingSink)
	pres := New(orch, prov, sink, perms, logger)

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		orch:     orch,
		pres:     pres,
		provider: prov,
		sink:     sink,
		cancel:   cancel,
		done:     make(chan error, 1),
	}

	pres.Start(ctx)

	go func() { h.done <- pres.Run(ctx) }()

	t.Cleanup(h.stop)

	return h
}

func (h *harness) stop() {
	h.stopOnce.Do(func() {
		h.cancel()
		<-h.done
		h.pres.Close(context.Background())
	})
}

func (h *harness) settle(t *testing.T) {
	t.Helper()

	h.pres.Wait()
	require.Eventually(t, func() bool { return len(h.orch.Events()) == 0 }, time.Second, 5*time.Millisecond)
}

var (
	allGranted = Permissions{Camera: true, Storage: true}
	selfie     = &face.Image{Data: []byte("selfie")}
	gallery    = &face.Image{Data: []byte("gallery")}
)

// TestCaptureAndCompareFlow drives the full workflow through the provider.
func TestCaptureAndCompareFlow(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeProvider{captureImg: selfie, score: 92.5}, allGranted)

	h.pres.Capture(face.ActiveLiveness)
	require.Eventually(t, func() bool { return h.orch.State().Selfie != nil }, time.Second, 5*time.Millisecond)

	h.pres.PickGallery(gallery)
	require.True(t, h.orch.State().CanCompare)

	h.pres.Compare()
	require.Eventually(t, func() bool { return h.orch.State().SimilarityScore != nil }, time.Second, 5*time.Millisecond)

	state := h.orch.State()
	require.InDelta(t, 92.5, *state.SimilarityScore, 1e-9)
	require.False(t, state.IsLoading)
	require.EqualValues(t, 1, h.provider.initCalls.Load())
	require.EqualValues(t, 1, h.provider.compareCalls.Load())

	h.settle(t)
	require.Empty(t, h.sink.snapshot())
}

// TestCompareWhileComparisonRunsIsIgnored verifies a second compare intent does
// not reach the provider until the first comparison finishes.
func TestCompareWhileComparisonRunsIsIgnored(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	h := newHarness(t, &fakeProvider{score: 70, compareGate: gate}, allGranted)

	h.orch.OnCaptureResult(face.Success(selfie))
	h.pres.PickGallery(gallery)

	h.pres.Compare()
	require.Eventually(t, func() bool { return h.provider.compareCalls.Load() == 1 }, time.Second, 5*time.Millisecond)

	h.pres.Compare()
	require.Eventually(t, func() bool { return len(h.orch.Events()) == 0 }, time.Second, 5*time.Millisecond)
	require.EqualValues(t, 1, h.provider.compareCalls.Load())
	require.True(t, h.orch.State().IsLoading)

	close(gate)
	require.Eventually(t, func() bool { return !h.orch.State().IsLoading }, time.Second, 5*time.Millisecond)

	h.settle(t)
	require.EqualValues(t, 1, h.provider.compareCalls.Load())
	require.InDelta(t, 70.0, *h.orch.State().SimilarityScore, 1e-9)
}

// TestCaptureFailureShowsProviderMessage verifies the provider's text reaches the sink.
func TestCaptureFailureShowsProviderMessage(t *testing.T) {
	t.Parallel()

	prov := &fakeProvider{
		captureErr: face.NewProviderError(face.ErrLivenessNotPassed, "Liveness check failed", nil),
	}
	h := newHarness(t, prov, allGranted)

	h.pres.Capture(face.PassiveLiveness)
	require.Eventually(t, func() bool { return len(h.sink.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	require.Equal(t, []string{"Liveness check failed"}, h.sink.snapshot())
	require.Nil(t, h.orch.State().Selfie)
	require.False(t, h.orch.State().IsLoading)
}

// TestCaptureCanceledIsSilent verifies cancellation reaches the orchestrator without a message.
func TestCaptureCanceledIsSilent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeProvider{captureErr: face.ErrCanceled}, allGranted)

	h.pres.Capture(face.ActiveLiveness)
	require.Eventually(t, func() bool { return h.provider.captureCalls.Load() == 1 }, time.Second, 5*time.Millisecond)

	h.settle(t)
	require.Empty(t, h.sink.snapshot())
	require.Nil(t, h.orch.State().Selfie)
}

// TestCameraPermissionDenied verifies the provider is never reached without camera access.
func TestCameraPermissionDenied(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeProvider{captureImg: selfie}, Permissions{Storage: true})

	// Start reports the missing permission once.
	require.Eventually(t, func() bool { return len(h.sink.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, orchestrator.InitializationFailedMessage, h.sink.snapshot()[0])

	h.pres.Capture(face.ActiveLiveness)
	require.Eventually(t, func() bool { return len(h.sink.snapshot()) == 2 }, time.Second, 5*time.Millisecond)

	require.Equal(t, CameraDeniedMessage, h.sink.snapshot()[1])
	require.Zero(t, h.provider.captureCalls.Load())
	require.Zero(t, h.provider.initCalls.Load())
}

// TestStoragePermissionDenied verifies gallery picks are rejected without storage access.
func TestStoragePermissionDenied(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeProvider{}, Permissions{Camera: true})
	require.Eventually(t, func() bool { return len(h.sink.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	h.pres.PickGallery(gallery)
	require.Eventually(t, func() bool { return len(h.sink.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	require.Equal(t, StorageDeniedMessage, h.sink.snapshot()[1])
	require.Nil(t, h.orch.State().Gallery)

	h.pres.SetPermissions(allGranted)
	h.pres.PickGallery(gallery)
	require.Same(t, gallery, h.orch.State().Gallery)
}

// TestInitializationFailureWarnsOnce verifies the fixed warning for provider start failures.
func TestInitializationFailureWarnsOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &fakeProvider{initErr: errors.New("license expired")}, allGranted)

	require.Eventually(t, func() bool { return len(h.sink.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	h.settle(t)
	require.Equal(t, []string{orchestrator.InitializationFailedMessage}, h.sink.snapshot())
}

// TestComparisonFailureShowsMessage verifies comparison errors surface and clear loading.
func TestComparisonFailureShowsMessage(t *testing.T) {
	t.Parallel()

	prov := &fakeProvider{
		compareErr: face.NewProviderError(face.ErrEmptyComparison, "No comparison result returned", nil),
	}
	h := newHarness(t, prov, allGranted)

	h.orch.OnCaptureResult(face.Success(selfie))
	h.pres.PickGallery(gallery)
	h.pres.Compare()

	require.Eventually(t, func() bool { return len(h.sink.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, "No comparison result returned", h.sink.snapshot()[0])
	require.False(t, h.orch.State().IsLoading)
}

// TestCloseDeinitializesProvider verifies provider resources are released on close.
func TestCloseDeinitializesProvider(t *testing.T) {
	t.Parallel()

	prov := &fakeProvider{}
	h := newHarness(t, prov, allGranted)

	h.stop()
	require.EqualValues(t, 1, prov.deinitCalls.Load())

	_, ok := <-h.orch.Events()
	require.False(t, ok)
}
