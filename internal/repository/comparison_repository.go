package repository

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/facecheck/internal/logging"
)

// ComparisonRecord is the audit entry written for every comparison attempt.
type ComparisonRecord struct {
	ID          uint      `gorm:"primaryKey"`
	SessionID   string    `gorm:"column:session_id;index;size:64"`
	UserID      string    `gorm:"column:user_id;index;size:64"`
	SelfieSHA1  string    `gorm:"column:selfie_sha1;size:40"`
	GallerySHA1 string    `gorm:"column:gallery_sha1;size:40"`
	Score       float64   `gorm:"column:score"`
	Success     bool      `gorm:"column:success"`
	Message     string    `gorm:"column:message;type:text"`
	LatencyMs   int64     `gorm:"column:latency_ms"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (ComparisonRecord) TableName() string {
	return "comparison_records"
}

// MetricsAggregation holds raw aggregates over comparison records.
type MetricsAggregation struct {
	TotalCount       int64
	SuccessCount     int64
	AverageScore     float64
	AverageLatencyMs float64
}

// ComparisonRepository provides persistence APIs for comparison records.
type ComparisonRepository struct {
	db             *gorm.DB
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewComparisonRepository creates a new repository instance.
func NewComparisonRepository(db *gorm.DB, logger *zap.Logger) *ComparisonRepository {
	return &ComparisonRepository{
		db:             db,
		logger:         logger.Named("comparison_repository"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// AutoMigrate ensures the schema is available.
func (r *ComparisonRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&ComparisonRecord{})
}

// SaveRecord persists a comparison record.
func (r *ComparisonRepository) SaveRecord(ctx context.Context, record *ComparisonRecord) error {
	return r.executeWithRetry(ctx, "repository.save_record", record.SessionID, func() error {
		return r.db.WithContext(ctx).Create(record).Error
	})
}

// ListBySession returns the comparison records of one session, oldest first.
func (r *ComparisonRepository) ListBySession(ctx context.Context, userID, sessionID string) ([]*ComparisonRecord, error) {
	var records []*ComparisonRecord
	err := r.executeWithRetry(ctx, "repository.list_by_session", sessionID, func() error {
		return r.db.WithContext(ctx).
			Where("user_id = ? AND session_id = ?", userID, sessionID).
			Order("created_at ASC").
			Find(&records).Error
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// AggregateMetrics computes totals and averages over a user's comparison records.
func (r *ComparisonRepository) AggregateMetrics(ctx context.Context, userID string) (*MetricsAggregation, error) {
	var aggregation MetricsAggregation
	err := r.executeWithRetry(ctx, "repository.aggregate_metrics", "", func() error {
		return r.db.WithContext(ctx).
			Model(&ComparisonRecord{}).
			Where("user_id = ?", userID).
			Select(
				"COUNT(*) AS total_count, " +
					"COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0) AS success_count, " +
					"COALESCE(AVG(CASE WHEN success THEN score END), 0) AS average_score, " +
					"COALESCE(AVG(latency_ms), 0) AS average_latency_ms",
			).
			Scan(&aggregation).Error
	})
	if err != nil {
		return nil, err
	}
	return &aggregation, nil
}

func (r *ComparisonRepository) executeWithRetry(ctx context.Context, operation, sessionID string, fn func() error) error {
	backoff := r.initialBackoff
	opLogger := logging.WithOperation(r.logger, operation, sessionID)

	var err error
	for attempt := 0; attempt < r.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, sessionID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= r.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("database operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !logging.IsTransient(err) || attempt == r.retryAttempts-1 {
			opLogger.Error("database operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, sessionID, err)
		}

		opLogger.Warn("transient database error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, sessionID, err)
}
