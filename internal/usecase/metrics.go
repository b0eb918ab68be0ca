package usecase

import (
	"context"
	"time"
)

// MetricsSummary represents aggregated comparison insights for one user.
type MetricsSummary struct {
	TotalComparisons      int64   `json:"total_comparisons"`
	SuccessfulComparisons int64   `json:"successful_comparisons"`
	SuccessRate           float64 `json:"success_rate"`
	AverageScore          float64 `json:"average_score"`
	AverageLatencyMs      float64 `json:"average_latency_ms"`
}

// GetMetricsSummary aggregates comparison metrics from persisted records.
func (uc *SessionUseCase) GetMetricsSummary(ctx context.Context, userID string) (*MetricsSummary, error) {
	aggregation, err := uc.repo.AggregateMetrics(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &MetricsSummary{
		TotalComparisons:      aggregation.TotalCount,
		SuccessfulComparisons: aggregation.SuccessCount,
		AverageScore:          aggregation.AverageScore,
		AverageLatencyMs:      aggregation.AverageLatencyMs,
	}

	if aggregation.TotalCount > 0 {
		summary.SuccessRate = float64(aggregation.SuccessCount) / float64(aggregation.TotalCount)
	}

	return summary, nil
}

// ComparisonEntry is one audited comparison attempt of a session.
type ComparisonEntry struct {
	SelfieSHA1  string    `json:"selfie_sha1"`
	GallerySHA1 string    `json:"gallery_sha1"`
	Score       float64   `json:"score"`
	Success     bool      `json:"success"`
	Message     string    `json:"message,omitempty"`
	LatencyMs   int64     `json:"latency_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListComparisons returns the audited comparisons of a session, oldest first.
// Records outlive the session and are scoped to the requesting user.
func (uc *SessionUseCase) ListComparisons(ctx context.Context, userID, sessionID string) ([]ComparisonEntry, error) {
	records, err := uc.repo.ListBySession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	entries := make([]ComparisonEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, ComparisonEntry{
			SelfieSHA1:  record.SelfieSHA1,
			GallerySHA1: record.GallerySHA1,
			Score:       record.Score,
			Success:     record.Success,
			Message:     record.Message,
			LatencyMs:   record.LatencyMs,
			CreatedAt:   record.CreatedAt,
		})
	}

	return entries, nil
}
