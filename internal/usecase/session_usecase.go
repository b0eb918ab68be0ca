package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/facecheck/internal/domain/face"
	"github.com/example/facecheck/internal/logging"
	"github.com/example/facecheck/internal/orchestrator"
	"github.com/example/facecheck/internal/presenter"
	"github.com/example/facecheck/internal/provider"
	"github.com/example/facecheck/internal/repository"
)

// ErrSessionNotFound is returned for unknown sessions and sessions owned by another user.
var ErrSessionNotFound = errors.New("session not found")

// DefaultSnapshotTTL is how long a session snapshot stays readable from the cache.
const DefaultSnapshotTTL = 30 * time.Minute

// ComparisonRepository defines the persistence operations needed by the use case.
type ComparisonRepository interface {
	SaveRecord(ctx context.Context, record *repository.ComparisonRecord) error
	ListBySession(ctx context.Context, userID, sessionID string) ([]*repository.ComparisonRecord, error)
	AggregateMetrics(ctx context.Context, userID string) (*repository.MetricsAggregation, error)
}

// Option configures a SessionUseCase.
type Option func(*SessionUseCase)

// WithEventBuffer sets the per-session event channel capacity.
func WithEventBuffer(size int) Option {
	return func(uc *SessionUseCase) {
		uc.eventBuffer = size
	}
}

// WithSnapshotTTL sets how long snapshots are cached.
func WithSnapshotTTL(ttl time.Duration) Option {
	return func(uc *SessionUseCase) {
		if ttl > 0 {
			uc.snapshotTTL = ttl
		}
	}
}

// SessionUseCase manages capture and comparison sessions.
type SessionUseCase struct {
	provider       provider.Provider
	repo           ComparisonRepository
	cache          Cache
	logger         *zap.Logger
	eventBuffer    int
	snapshotTTL    time.Duration
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewSessionUseCase constructs a new use case instance.
func NewSessionUseCase(prov provider.Provider, repo ComparisonRepository, cache Cache, logger *zap.Logger, opts ...Option) *SessionUseCase {
	uc := &SessionUseCase{
		provider:       prov,
		repo:           repo,
		cache:          cache,
		logger:         logger.Named("session_usecase"),
		eventBuffer:    orchestrator.DefaultEventBuffer,
		snapshotTTL:    DefaultSnapshotTTL,
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
		sessions:       make(map[string]*session),
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// CreateSession starts a new workflow owned by userID.
func (uc *SessionUseCase) CreateSession(ctx context.Context, userID string, perms presenter.Permissions) (*Snapshot, error) {
	sessionID := uuid.NewString()
	sessionLogger := logging.WithOperation(uc.logger, "usecase.session", sessionID)

	orch := orchestrator.New(sessionLogger, orchestrator.WithEventBuffer(uc.eventBuffer))
	messages := new(messageQueue)
	prov := &recordingProvider{
		inner:     uc.provider,
		repo:      uc.repo,
		sessionID: sessionID,
		userID:    userID,
		logger:    uc.logger,
	}
	pres := presenter.New(orch, prov, messages, perms, sessionLogger)

	// The session outlives the request that created it.
	runCtx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:        sessionID,
		userID:    userID,
		createdAt: time.Now().UTC(),
		orch:      orch,
		presenter: pres,
		messages:  messages,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	pres.Start(runCtx)
	go func() {
		defer close(s.done)
		if err := pres.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			sessionLogger.Error("presenter stopped", zap.Error(err))
		}
	}()

	uc.mu.Lock()
	uc.sessions[sessionID] = s
	uc.mu.Unlock()

	sessionLogger.Info("session created",
		zap.String("user_id", userID),
		zap.Bool("camera_permission", perms.Camera),
		zap.Bool("storage_permission", perms.Storage))

	snapshot := s.snapshot(true)
	uc.storeSnapshot(ctx, snapshot)

	return snapshot, nil
}

// Capture forwards a capture intent.
func (uc *SessionUseCase) Capture(_ context.Context, userID, sessionID string, mode face.CaptureMode) error {
	s, err := uc.lookup(userID, sessionID)
	if err != nil {
		return err
	}

	s.presenter.Capture(mode)
	return nil
}

// SelectGalleryImage decodes a picked image and forwards it. Undecodable data
// is an absent selection and is reported to the user as a message.
func (uc *SessionUseCase) SelectGalleryImage(_ context.Context, userID, sessionID string, data []byte) error {
	s, err := uc.lookup(userID, sessionID)
	if err != nil {
		return err
	}

	img, err := face.DecodeImage(data)
	if err != nil {
		logging.WithOperation(uc.logger, "usecase.select_gallery_image", sessionID).
			Info("gallery image rejected", zap.Error(err))
		img = nil
	}

	s.presenter.PickGallery(img)
	return nil
}

// Compare forwards a compare intent.
func (uc *SessionUseCase) Compare(_ context.Context, userID, sessionID string) error {
	s, err := uc.lookup(userID, sessionID)
	if err != nil {
		return err
	}

	s.presenter.Compare()
	return nil
}

// Reset forwards a reset intent.
func (uc *SessionUseCase) Reset(_ context.Context, userID, sessionID string) error {
	s, err := uc.lookup(userID, sessionID)
	if err != nil {
		return err
	}

	s.presenter.Reset()
	return nil
}

// SetPermissions updates the platform permission state of a session.
func (uc *SessionUseCase) SetPermissions(_ context.Context, userID, sessionID string, perms presenter.Permissions) error {
	s, err := uc.lookup(userID, sessionID)
	if err != nil {
		return err
	}

	s.presenter.SetPermissions(perms)
	return nil
}

// DrainMessages returns the pending one-shot messages of a session.
func (uc *SessionUseCase) DrainMessages(_ context.Context, userID, sessionID string) ([]string, error) {
	s, err := uc.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}

	return s.messages.drain(), nil
}

// GetSnapshot returns the state of a live session, or the last cached snapshot of a closed one.
func (uc *SessionUseCase) GetSnapshot(ctx context.Context, userID, sessionID string) (*Snapshot, error) {
	if s, err := uc.lookup(userID, sessionID); err == nil {
		snapshot := s.snapshot(true)
		uc.storeSnapshot(ctx, snapshot)
		return snapshot, nil
	}

	opLogger := logging.WithOperation(uc.logger, "usecase.get_snapshot", sessionID)

	cached, err := uc.withRedisGet(ctx, sessionID, "cache.get.snapshot", snapshotKey(sessionID))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			opLogger.Warn("failed to read cache", zap.Error(err))
		}
		return nil, ErrSessionNotFound
	}

	var snapshot Snapshot
	if err := json.Unmarshal([]byte(cached), &snapshot); err != nil {
		opLogger.Warn("failed to decode cached snapshot", zap.Error(err))
		return nil, ErrSessionNotFound
	}

	if snapshot.UserID != userID {
		return nil, ErrSessionNotFound
	}

	return &snapshot, nil
}

// CloseSession stops a session and releases its provider resources.
func (uc *SessionUseCase) CloseSession(ctx context.Context, userID, sessionID string) error {
	uc.mu.Lock()
	s, ok := uc.sessions[sessionID]
	if !ok || s.userID != userID {
		uc.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(uc.sessions, sessionID)
	uc.mu.Unlock()

	uc.closeSession(ctx, s)
	return nil
}

// Shutdown closes every live session.
func (uc *SessionUseCase) Shutdown(ctx context.Context) {
	uc.mu.Lock()
	sessions := make([]*session, 0, len(uc.sessions))
	for id, s := range uc.sessions {
		sessions = append(sessions, s)
		delete(uc.sessions, id)
	}
	uc.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *session) {
			defer wg.Done()
			uc.closeSession(ctx, s)
		}(s)
	}
	wg.Wait()
}

func (uc *SessionUseCase) closeSession(ctx context.Context, s *session) {
	s.close(ctx)
	uc.storeSnapshot(ctx, s.snapshot(false))
	logging.WithOperation(uc.logger, "usecase.close_session", s.id).Info("session closed")
}

func (uc *SessionUseCase) lookup(userID, sessionID string) (*session, error) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()

	s, ok := uc.sessions[sessionID]
	if !ok || s.userID != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// storeSnapshot caches a snapshot. Failures are logged; the live session stays authoritative.
func (uc *SessionUseCase) storeSnapshot(ctx context.Context, snapshot *Snapshot) {
	opLogger := logging.WithOperation(uc.logger, "usecase.store_snapshot", snapshot.SessionID)

	serialized, err := json.Marshal(snapshot)
	if err != nil {
		opLogger.Error("failed to serialize snapshot", zap.Error(err))
		return
	}

	if err := uc.withRedisRetry(ctx, snapshot.SessionID, "cache.set.snapshot", func() error {
		return uc.cache.Set(ctx, snapshotKey(snapshot.SessionID), string(serialized), uc.snapshotTTL)
	}); err != nil {
		opLogger.Warn("failed to cache snapshot", zap.Error(err))
	}
}

func (uc *SessionUseCase) withRedisRetry(ctx context.Context, sessionID, operation string, fn func() error) error {
	if uc.retryAttempts <= 1 {
		err := fn()
		return logging.NewOperationError(operation, sessionID, err)
	}

	backoff := uc.initialBackoff
	opLogger := logging.WithOperation(uc.logger, operation, sessionID)
	var err error
	for attempt := 0; attempt < uc.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, sessionID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= uc.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if errors.Is(err, redis.Nil) {
			return logging.NewOperationError(operation, sessionID, err)
		}

		if !logging.IsTransient(err) || attempt == uc.retryAttempts-1 {
			opLogger.Error("redis operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, sessionID, err)
		}

		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, sessionID, err)
}

func (uc *SessionUseCase) withRedisGet(ctx context.Context, sessionID, operation, cacheKey string) (string, error) {
	var result string
	err := uc.withRedisRetry(ctx, sessionID, operation, func() error {
		value, err := uc.cache.Get(ctx, cacheKey)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}
