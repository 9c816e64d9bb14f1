package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/gigboard/internal/models"
)

// RecordUsage persists one usage record.
func (s *SQLiteStore) RecordUsage(ctx context.Context, record *models.UsageRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.RecordedAt == 0 {
		record.RecordedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_records (id, user_id, metric, quantity, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		record.ID, record.UserID, record.Metric, record.Quantity, record.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}

	return nil
}

// SumUsage totals a user's usage per metric since the given Unix time.
func (s *SQLiteStore) SumUsage(ctx context.Context, userID string, since int64) (map[models.UsageMetric]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT metric, SUM(quantity) FROM usage_records
		 WHERE user_id = ? AND recorded_at >= ?
		 GROUP BY metric`,
		userID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to sum usage: %w", err)
	}
	defer rows.Close()

	totals := make(map[models.UsageMetric]int64)
	for rows.Next() {
		var metric models.UsageMetric
		var total int64
		if err := rows.Scan(&metric, &total); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		totals[metric] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate usage: %w", err)
	}

	return totals, nil
}
