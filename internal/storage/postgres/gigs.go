package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/gigboard/internal/models"
)

const gigColumns = `id, owner_id, title, description, category, budget_minor, currency, status, created_at, updated_at`

func scanGig(row rowScanner) (*models.Gig, error) {
	gig := &models.Gig{}
	var budgetMinor int64
	var status string
	err := row.Scan(&gig.ID, &gig.OwnerID, &gig.Title, &gig.Description, &gig.Category,
		&budgetMinor, &gig.Currency, &status, &gig.CreatedAt, &gig.UpdatedAt)
	gig.Budget = decimal.New(budgetMinor, -2)
	gig.Status = models.GigStatus(status)
	return gig, err
}

func toMinor(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func (s *Store) CreateGig(ctx context.Context, gig *models.Gig) error {
	if gig.ID == "" {
		gig.ID = uuid.New().String()
	}
	if gig.CreatedAt == 0 {
		gig.CreatedAt = nowUnix()
	}
	gig.UpdatedAt = gig.CreatedAt
	if gig.Status == "" {
		gig.Status = models.GigOpen
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO gigs (`+gigColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		gig.ID, gig.OwnerID, gig.Title, gig.Description, gig.Category,
		toMinor(gig.Budget), gig.Currency, string(gig.Status), gig.CreatedAt, gig.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert gig: %w", err)
	}
	return nil
}

func (s *Store) GetGig(ctx context.Context, gigID string) (*models.Gig, error) {
	gig, err := scanGig(s.pool.QueryRow(ctx, `SELECT `+gigColumns+` FROM gigs WHERE id = $1`, gigID))
	if isNoRows(err) {
		return nil, notFound("gig", gigID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gig: %w", err)
	}
	return gig, nil
}

func (s *Store) ListGigs(ctx context.Context, filter models.GigFilter) ([]*models.Gig, error) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.OwnerID != "" {
		add("owner_id = $%d", filter.OwnerID)
	}

	query := `SELECT ` + gigColumns + ` FROM gigs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, seq DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list gigs: %w", err)
	}
	defer rows.Close()

	var gigs []*models.Gig
	for rows.Next() {
		gig, err := scanGig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gig: %w", err)
		}
		gigs = append(gigs, gig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate gigs: %w", err)
	}
	return gigs, nil
}

func (s *Store) UpdateGig(ctx context.Context, gig *models.Gig) error {
	gig.UpdatedAt = nowUnix()

	tag, err := s.pool.Exec(ctx,
		`UPDATE gigs SET title = $1, description = $2, category = $3, budget_minor = $4, currency = $5, status = $6, updated_at = $7
		 WHERE id = $8`,
		gig.Title, gig.Description, gig.Category, toMinor(gig.Budget), gig.Currency, string(gig.Status), gig.UpdatedAt, gig.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update gig: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("gig", gig.ID)
	}
	return nil
}
