package rpc

import "github.com/shopspring/decimal"

const (
	GigServiceName     = "gigboard.v1.GigService"
	MessageServiceName = "gigboard.v1.MessageService"
)

const (
	GigServiceListGigsProcedure  = "/" + GigServiceName + "/ListGigs"
	GigServiceGetGigProcedure    = "/" + GigServiceName + "/GetGig"
	GigServiceCreateGigProcedure = "/" + GigServiceName + "/CreateGig"
	GigServiceUpdateGigProcedure = "/" + GigServiceName + "/UpdateGig"

	MessageServiceSendMessageProcedure      = "/" + MessageServiceName + "/SendMessage"
	MessageServiceListConversationProcedure = "/" + MessageServiceName + "/ListConversation"
	MessageServiceListInboxProcedure        = "/" + MessageServiceName + "/ListInbox"
)

// Gig is the wire form of a gig posting. Budget is a decimal string, e.g. "150.00".
type Gig struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"ownerId"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Budget      decimal.Decimal `json:"budget"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	CreatedAt   int64           `json:"createdAt"`
	UpdatedAt   int64           `json:"updatedAt"`
}

type ListGigsRequest struct {
	Status   string `json:"status,omitempty"`
	Category string `json:"category,omitempty"`
	OwnerID  string `json:"ownerId,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type ListGigsResponse struct {
	Gigs []*Gig `json:"gigs"`
}

type GetGigRequest struct {
	GigID string `json:"gigId"`
}

type GetGigResponse struct {
	Gig *Gig `json:"gig"`
}

type CreateGigRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Budget      decimal.Decimal `json:"budget"`
	Currency    string          `json:"currency"`
}

type CreateGigResponse struct {
	Gig *Gig `json:"gig"`
}

// UpdateGigRequest changes only the fields that are set.
type UpdateGigRequest struct {
	GigID       string           `json:"gigId"`
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Budget      *decimal.Decimal `json:"budget,omitempty"`
	Status      *string          `json:"status,omitempty"`
}

type UpdateGigResponse struct {
	Gig *Gig `json:"gig"`
}

// Message is the wire form of a direct message.
type Message struct {
	ID          string `json:"id"`
	SenderID    string `json:"senderId"`
	SenderName  string `json:"senderName,omitempty"`
	RecipientID string `json:"recipientId"`
	GigID       string `json:"gigId,omitempty"`
	Body        string `json:"body"`
	CreatedAt   int64  `json:"createdAt"`
}

type SendMessageRequest struct {
	RecipientID string `json:"recipientId"`
	GigID       string `json:"gigId,omitempty"`
	Body        string `json:"body"`
}

type SendMessageResponse struct {
	Message *Message `json:"message"`
}

type ListConversationRequest struct {
	OtherUserID string `json:"otherUserId"`
	Limit       int    `json:"limit,omitempty"`
}

type ListConversationResponse struct {
	Messages []*Message `json:"messages"`
}

type ListInboxRequest struct{}

// InboxEntry is the latest message exchanged with one counterpart.
type InboxEntry struct {
	CounterpartID   string   `json:"counterpartId"`
	CounterpartName string   `json:"counterpartName"`
	LastMessage     *Message `json:"lastMessage"`
}

type ListInboxResponse struct {
	Conversations []*InboxEntry `json:"conversations"`
}
