package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/gigboard/internal/metrics"
	"github.com/mmynk/gigboard/internal/models"
	"github.com/mmynk/gigboard/internal/storage"
)

// UsageSummary is a user's metered usage for one calendar month.
type UsageSummary struct {
	PeriodStart time.Time
	Totals      map[models.UsageMetric]int64
}

// UsageService meters user activity.
type UsageService struct {
	store   storage.UsageStore
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewUsageService creates a new UsageService.
func NewUsageService(store storage.UsageStore, m *metrics.Metrics, logger *slog.Logger) *UsageService {
	return &UsageService{
		store:   store,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Record stores quantity units of metric for the user.
func (s *UsageService) Record(ctx context.Context, userID string, metric models.UsageMetric, quantity int64) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if !metric.Valid() {
		return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("unknown usage metric %q", metric))
	}
	if quantity <= 0 {
		return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("quantity must be positive, got %d", quantity))
	}

	record := &models.UsageRecord{
		UserID:     userID,
		Metric:     metric,
		Quantity:   quantity,
		RecordedAt: s.now().Unix(),
	}
	if err := s.store.RecordUsage(ctx, record); err != nil {
		s.logger.Error("RecordUsage failed", "user_id", userID, "metric", metric, "error", err)
		return storeError(err)
	}

	s.metrics.UsageEvents.WithLabelValues(string(metric)).Add(float64(quantity))
	return nil
}

// track records one unit of metric and only logs failures. Metering never
// fails the operation being metered.
func (s *UsageService) track(ctx context.Context, userID string, metric models.UsageMetric) {
	if err := s.Record(ctx, userID, metric, 1); err != nil {
		s.logger.Warn("Failed to record usage", "user_id", userID, "metric", metric, "error", err)
	}
}

// Summary totals the user's usage since the start of the current UTC month.
// Every known metric is present, zero when unused.
func (s *UsageService) Summary(ctx context.Context, userID string) (*UsageSummary, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	totals, err := s.store.SumUsage(ctx, userID, start.Unix())
	if err != nil {
		s.logger.Error("SumUsage failed", "user_id", userID, "error", err)
		return nil, storeError(err)
	}

	summary := &UsageSummary{PeriodStart: start, Totals: make(map[models.UsageMetric]int64, len(models.UsageMetrics))}
	for _, metric := range models.UsageMetrics {
		summary.Totals[metric] = totals[metric]
	}
	return summary, nil
}
