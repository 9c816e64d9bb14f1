package models

// Message is a direct message between two users, optionally about a gig.
type Message struct {
	ID          string
	SenderID    string
	RecipientID string
	GigID       string
	Body        string
	CreatedAt   int64
}
