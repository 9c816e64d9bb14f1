package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/gigboard/internal/models"
)

func (s *Store) RecordUsage(ctx context.Context, record *models.UsageRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.RecordedAt == 0 {
		record.RecordedAt = nowUnix()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO usage_records (id, user_id, metric, quantity, recorded_at) VALUES ($1, $2, $3, $4, $5)`,
		record.ID, record.UserID, string(record.Metric), record.Quantity, record.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}
	return nil
}

func (s *Store) SumUsage(ctx context.Context, userID string, since int64) (map[models.UsageMetric]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT metric, SUM(quantity)::BIGINT FROM usage_records
		 WHERE user_id = $1 AND recorded_at >= $2
		 GROUP BY metric`,
		userID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to sum usage: %w", err)
	}
	defer rows.Close()

	totals := make(map[models.UsageMetric]int64)
	for rows.Next() {
		var metric string
		var total int64
		if err := rows.Scan(&metric, &total); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		totals[models.UsageMetric(metric)] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate usage: %w", err)
	}
	return totals, nil
}
