package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"connectrpc.com/connect"

	"github.com/mmynk/gigboard/internal/middleware"
	"github.com/mmynk/gigboard/internal/models"
	"github.com/mmynk/gigboard/internal/rpc"
	"github.com/mmynk/gigboard/internal/storage"
)

const (
	maxMessageLength       = 4000
	maxConversationHistory = 500
)

// MessageStore is the part of the record store messaging needs.
type MessageStore interface {
	storage.UserStore
	storage.GigStore
	storage.MessageStore
}

// MessageService implements the Connect MessageService.
type MessageService struct {
	store  MessageStore
	usage  *UsageService
	logger *slog.Logger
}

var _ rpc.MessageServiceHandler = (*MessageService)(nil)

// NewMessageService creates a new MessageService.
func NewMessageService(store MessageStore, usage *UsageService, logger *slog.Logger) *MessageService {
	return &MessageService{store: store, usage: usage, logger: logger}
}

// SendMessage delivers a message from the caller to another user.
func (s *MessageService) SendMessage(ctx context.Context, req *connect.Request[rpc.SendMessageRequest]) (*connect.Response[rpc.SendMessageResponse], error) {
	userID := middleware.GetUserID(ctx)
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	body := strings.TrimSpace(req.Msg.Body)
	switch {
	case body == "":
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("message body is required"))
	case utf8.RuneCountInString(body) > maxMessageLength:
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("message body exceeds %d characters", maxMessageLength))
	case req.Msg.RecipientID == "":
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("recipientId is required"))
	case req.Msg.RecipientID == userID:
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("cannot send a message to yourself"))
	}

	if _, err := s.store.GetUserByID(ctx, req.Msg.RecipientID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("recipient not found"))
		}
		return nil, storeError(err)
	}
	if req.Msg.GigID != "" {
		if _, err := s.store.GetGig(ctx, req.Msg.GigID); err != nil {
			return nil, storeError(err)
		}
	}

	msg := &models.Message{
		SenderID:    userID,
		RecipientID: req.Msg.RecipientID,
		GigID:       req.Msg.GigID,
		Body:        body,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		s.logger.Error("CreateMessage failed", "user_id", userID, "error", err)
		return nil, storeError(err)
	}

	s.usage.track(ctx, userID, models.UsageMessagesSent)

	s.logger.Info("Message sent", "message_id", msg.ID, "sender_id", userID, "recipient_id", msg.RecipientID)
	return connect.NewResponse(&rpc.SendMessageResponse{Message: toWireMessage(msg, nil)}), nil
}

// ListConversation returns the messages between the caller and another user,
// oldest first.
func (s *MessageService) ListConversation(ctx context.Context, req *connect.Request[rpc.ListConversationRequest]) (*connect.Response[rpc.ListConversationResponse], error) {
	userID := middleware.GetUserID(ctx)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if req.Msg.OtherUserID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("otherUserId is required"))
	}

	limit := req.Msg.Limit
	if limit < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("limit must not be negative"))
	}
	if limit == 0 || limit > maxConversationHistory {
		limit = maxConversationHistory
	}

	msgs, err := s.store.ListConversation(ctx, userID, req.Msg.OtherUserID, limit)
	if err != nil {
		s.logger.Error("ListConversation failed", "user_id", userID, "error", err)
		return nil, storeError(err)
	}

	users, err := s.store.GetUsersByIDs(ctx, []string{userID, req.Msg.OtherUserID})
	if err != nil {
		return nil, storeError(err)
	}

	resp := &rpc.ListConversationResponse{Messages: make([]*rpc.Message, len(msgs))}
	for i, msg := range msgs {
		resp.Messages[i] = toWireMessage(msg, users)
	}
	return connect.NewResponse(resp), nil
}

// ListInbox returns the latest message exchanged with each counterpart,
// newest first.
func (s *MessageService) ListInbox(ctx context.Context, req *connect.Request[rpc.ListInboxRequest]) (*connect.Response[rpc.ListInboxResponse], error) {
	userID := middleware.GetUserID(ctx)
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	msgs, err := s.store.ListInbox(ctx, userID)
	if err != nil {
		s.logger.Error("ListInbox failed", "user_id", userID, "error", err)
		return nil, storeError(err)
	}

	ids := []string{userID}
	for _, msg := range msgs {
		ids = append(ids, counterpart(msg, userID))
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, storeError(err)
	}

	resp := &rpc.ListInboxResponse{Conversations: make([]*rpc.InboxEntry, len(msgs))}
	for i, msg := range msgs {
		other := counterpart(msg, userID)
		entry := &rpc.InboxEntry{
			CounterpartID: other,
			LastMessage:   toWireMessage(msg, users),
		}
		if u, ok := users[other]; ok {
			entry.CounterpartName = u.DisplayName
		}
		resp.Conversations[i] = entry
	}
	return connect.NewResponse(resp), nil
}

func counterpart(msg *models.Message, userID string) string {
	if msg.SenderID == userID {
		return msg.RecipientID
	}
	return msg.SenderID
}

// toWireMessage converts a message; users, when given, supplies sender names.
func toWireMessage(msg *models.Message, users map[string]*models.User) *rpc.Message {
	out := &rpc.Message{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		GigID:       msg.GigID,
		Body:        msg.Body,
		CreatedAt:   msg.CreatedAt,
	}
	if u, ok := users[msg.SenderID]; ok {
		out.SenderName = u.DisplayName
	}
	return out
}
