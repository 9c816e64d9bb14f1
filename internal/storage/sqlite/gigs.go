package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/gigboard/internal/models"
)

const gigColumns = `id, owner_id, title, description, category, budget_minor, currency, status, created_at, updated_at`

func scanGig(row rowScanner) (*models.Gig, error) {
	gig := &models.Gig{}
	var budgetMinor int64
	err := row.Scan(&gig.ID, &gig.OwnerID, &gig.Title, &gig.Description, &gig.Category,
		&budgetMinor, &gig.Currency, &gig.Status, &gig.CreatedAt, &gig.UpdatedAt)
	gig.Budget = decimal.New(budgetMinor, -2)
	return gig, err
}

// toMinor converts a decimal amount to integer minor units.
func toMinor(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// CreateGig persists a new gig.
func (s *SQLiteStore) CreateGig(ctx context.Context, gig *models.Gig) error {
	if gig.ID == "" {
		gig.ID = uuid.New().String()
	}
	if gig.CreatedAt == 0 {
		gig.CreatedAt = time.Now().Unix()
	}
	gig.UpdatedAt = gig.CreatedAt
	if gig.Status == "" {
		gig.Status = models.GigOpen
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO gigs (`+gigColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		gig.ID, gig.OwnerID, gig.Title, gig.Description, gig.Category,
		toMinor(gig.Budget), gig.Currency, gig.Status, gig.CreatedAt, gig.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert gig: %w", err)
	}

	return nil
}

// GetGig retrieves a gig by ID.
func (s *SQLiteStore) GetGig(ctx context.Context, gigID string) (*models.Gig, error) {
	gig, err := scanGig(s.db.QueryRowContext(ctx,
		`SELECT `+gigColumns+` FROM gigs WHERE id = ?`, gigID))
	if isNoRows(err) {
		return nil, notFound("gig", gigID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gig: %w", err)
	}

	return gig, nil
}

// ListGigs returns gigs matching the filter, newest first.
func (s *SQLiteStore) ListGigs(ctx context.Context, filter models.GigFilter) ([]*models.Gig, error) {
	var conds []string
	var args []interface{}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.OwnerID != "" {
		conds = append(conds, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}

	query := `SELECT ` + gigColumns + ` FROM gigs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
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

// UpdateGig overwrites the mutable fields of a gig.
func (s *SQLiteStore) UpdateGig(ctx context.Context, gig *models.Gig) error {
	gig.UpdatedAt = time.Now().Unix()

	res, err := s.db.ExecContext(ctx,
		`UPDATE gigs SET title = ?, description = ?, category = ?, budget_minor = ?, currency = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		gig.Title, gig.Description, gig.Category, toMinor(gig.Budget), gig.Currency, gig.Status, gig.UpdatedAt, gig.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update gig: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return notFound("gig", gig.ID)
	}

	return nil
}
