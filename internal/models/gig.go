package models

import "github.com/shopspring/decimal"

// GigStatus is the lifecycle state of a gig posting.
type GigStatus string

const (
	GigOpen       GigStatus = "open"
	GigInProgress GigStatus = "in_progress"
	GigClosed     GigStatus = "closed"
)

// Valid reports whether s is a known gig status.
func (s GigStatus) Valid() bool {
	switch s {
	case GigOpen, GigInProgress, GigClosed:
		return true
	}
	return false
}

// Gig is a job posted to the marketplace by a client.
type Gig struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Category    string

	// Budget is in decimal currency units. Stored as minor units.
	Budget   decimal.Decimal
	Currency string

	Status    GigStatus
	CreatedAt int64
	UpdatedAt int64
}

// GigFilter narrows ListGigs. Zero values mean "any".
type GigFilter struct {
	Status   GigStatus
	Category string
	OwnerID  string
	Limit    int
}
