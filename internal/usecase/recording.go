package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/example/facecheck/internal/domain/face"
	"github.com/example/facecheck/internal/logging"
	"github.com/example/facecheck/internal/provider"
	"github.com/example/facecheck/internal/repository"
)

const auditTimeout = 5 * time.Second

// recordingProvider scopes provider calls to one session and writes an audit
// record for every finished comparison. Canceled comparisons are not recorded.
// Audit failures never change the outcome.
type recordingProvider struct {
	inner     provider.Provider
	repo      ComparisonRepository
	sessionID string
	userID    string
	logger    *zap.Logger
}

func (p *recordingProvider) Initialize(ctx context.Context) error {
	return p.inner.Initialize(provider.WithSessionID(ctx, p.sessionID))
}

func (p *recordingProvider) Capture(ctx context.Context, mode face.CaptureMode) (*face.Image, error) {
	return p.inner.Capture(provider.WithSessionID(ctx, p.sessionID), mode)
}

func (p *recordingProvider) Compare(ctx context.Context, a, b *face.Image) (float64, error) {
	started := time.Now()
	score, err := p.inner.Compare(provider.WithSessionID(ctx, p.sessionID), a, b)
	latency := time.Since(started)

	if errors.Is(err, face.ErrCanceled) {
		return score, err
	}

	record := &repository.ComparisonRecord{
		SessionID:   p.sessionID,
		UserID:      p.userID,
		SelfieSHA1:  a.Digest(),
		GallerySHA1: b.Digest(),
		Score:       score,
		Success:     err == nil,
		Message:     face.OutcomeOf(score, err).Message(),
		LatencyMs:   latency.Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	}

	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	if saveErr := p.repo.SaveRecord(auditCtx, record); saveErr != nil {
		logging.WithOperation(p.logger, "usecase.record_comparison", p.sessionID).
			Error("failed to persist comparison record", zap.Error(saveErr))
	}

	return score, err
}

func (p *recordingProvider) Deinitialize(ctx context.Context) error {
	d, ok := p.inner.(provider.Deinitializer)
	if !ok {
		return nil
	}
	return d.Deinitialize(provider.WithSessionID(ctx, p.sessionID))
}
