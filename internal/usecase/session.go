package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/example/facecheck/internal/domain/face"
	"github.com/example/facecheck/internal/orchestrator"
	"github.com/example/facecheck/internal/presenter"
)

// maxPendingMessages bounds the per-session message queue; the oldest entries go first.
const maxPendingMessages = 32

// ImageSummary describes an image held by a session without its bytes.
type ImageSummary struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Bytes  int    `json:"bytes"`
	SHA1   string `json:"sha1"`
}

// Snapshot is the externally visible state of a session.
type Snapshot struct {
	SessionID       string                `json:"session_id"`
	UserID          string                `json:"user_id"`
	Selfie          *ImageSummary         `json:"selfie,omitempty"`
	Gallery         *ImageSummary         `json:"gallery,omitempty"`
	SimilarityScore *float64              `json:"similarity_score,omitempty"`
	IsLoading       bool                  `json:"is_loading"`
	CanCompare      bool                  `json:"can_compare"`
	Permissions     presenter.Permissions `json:"permissions"`
	Active          bool                  `json:"active"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// session bundles the state holder, the presentation layer and the message queue of one workflow.
type session struct {
	id        string
	userID    string
	createdAt time.Time

	orch      *orchestrator.Orchestrator
	presenter *presenter.Presenter
	messages  *messageQueue

	cancel context.CancelFunc
	done   chan struct{}
}

func (s *session) snapshot(active bool) *Snapshot {
	state := s.orch.State()

	return &Snapshot{
		SessionID:       s.id,
		UserID:          s.userID,
		Selfie:          summarize(state.Selfie),
		Gallery:         summarize(state.Gallery),
		SimilarityScore: state.SimilarityScore,
		IsLoading:       state.IsLoading,
		CanCompare:      state.CanCompare,
		Permissions:     s.presenter.Permissions(),
		Active:          active,
		CreatedAt:       s.createdAt,
		UpdatedAt:       time.Now().UTC(),
	}
}

// close stops the event loop, waits for provider calls and releases the provider.
func (s *session) close(ctx context.Context) {
	s.cancel()
	<-s.done
	s.presenter.Close(ctx)
}

func summarize(img *face.Image) *ImageSummary {
	if img == nil {
		return nil
	}

	return &ImageSummary{
		Format: img.Format,
		Width:  img.Width,
		Height: img.Height,
		Bytes:  len(img.Data),
		SHA1:   img.Digest(),
	}
}

// messageQueue collects one-shot messages until a client drains them.
type messageQueue struct {
	mu      sync.Mutex
	pending []string
}

func (q *messageQueue) ShowMessage(_ context.Context, text string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == maxPendingMessages {
		q.pending = q.pending[1:]
	}
	q.pending = append(q.pending, text)
}

// drain hands out every pending message exactly once.
func (q *messageQueue) drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.pending
	q.pending = nil
	if out == nil {
		out = []string{}
	}
	return out
}
