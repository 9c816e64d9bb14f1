package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/gigboard/internal/middleware"
	"github.com/mmynk/gigboard/internal/models"
	"github.com/mmynk/gigboard/internal/rpc"
	"github.com/mmynk/gigboard/internal/storage"
)

const (
	defaultGigLimit = 20
	maxGigLimit     = 100
	defaultCurrency = "usd"
)

// GigService implements the Connect GigService.
// Listing and reading are public; creating and updating need a signed-in user.
type GigService struct {
	store  storage.GigStore
	usage  *UsageService
	logger *slog.Logger
}

var _ rpc.GigServiceHandler = (*GigService)(nil)

// NewGigService creates a new GigService with the given storage backend.
func NewGigService(store storage.GigStore, usage *UsageService, logger *slog.Logger) *GigService {
	return &GigService{store: store, usage: usage, logger: logger}
}

// ListGigs returns gigs newest first.
func (s *GigService) ListGigs(ctx context.Context, req *connect.Request[rpc.ListGigsRequest]) (*connect.Response[rpc.ListGigsResponse], error) {
	s.logger.Info("ListGigs request received",
		"status", req.Msg.Status,
		"category", req.Msg.Category,
		"owner_id", req.Msg.OwnerID,
	)

	status := models.GigStatus(req.Msg.Status)
	if status != "" && !status.Valid() {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("unknown gig status %q", req.Msg.Status))
	}

	limit := req.Msg.Limit
	switch {
	case limit < 0:
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("limit must not be negative"))
	case limit == 0:
		limit = defaultGigLimit
	case limit > maxGigLimit:
		limit = maxGigLimit
	}

	gigs, err := s.store.ListGigs(ctx, models.GigFilter{
		Status:   status,
		Category: req.Msg.Category,
		OwnerID:  req.Msg.OwnerID,
		Limit:    limit,
	})
	if err != nil {
		s.logger.Error("ListGigs failed", "error", err)
		return nil, storeError(err)
	}

	resp := &rpc.ListGigsResponse{Gigs: make([]*rpc.Gig, len(gigs))}
	for i, gig := range gigs {
		resp.Gigs[i] = toWireGig(gig)
	}

	s.logger.Info("ListGigs successful", "count", len(gigs))
	return connect.NewResponse(resp), nil
}

// GetGig retrieves a gig by ID.
func (s *GigService) GetGig(ctx context.Context, req *connect.Request[rpc.GetGigRequest]) (*connect.Response[rpc.GetGigResponse], error) {
	if req.Msg.GigID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("gigId is required"))
	}

	gig, err := s.store.GetGig(ctx, req.Msg.GigID)
	if err != nil {
		s.logger.Warn("GetGig failed", "gig_id", req.Msg.GigID, "error", err)
		return nil, storeError(err)
	}

	return connect.NewResponse(&rpc.GetGigResponse{Gig: toWireGig(gig)}), nil
}

// CreateGig posts a new open gig owned by the caller.
func (s *GigService) CreateGig(ctx context.Context, req *connect.Request[rpc.CreateGigRequest]) (*connect.Response[rpc.CreateGigResponse], error) {
	userID := middleware.GetUserID(ctx)
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Msg.Title)
	if title == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("title is required"))
	}
	if !req.Msg.Budget.IsPositive() {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("budget must be greater than zero"))
	}

	gig := &models.Gig{
		OwnerID:     userID,
		Title:       title,
		Description: strings.TrimSpace(req.Msg.Description),
		Category:    strings.TrimSpace(req.Msg.Category),
		Budget:      req.Msg.Budget.Round(2),
		Currency:    normalizeCurrency(req.Msg.Currency),
		Status:      models.GigOpen,
	}

	if err := s.store.CreateGig(ctx, gig); err != nil {
		s.logger.Error("CreateGig failed", "user_id", userID, "error", err)
		return nil, storeError(err)
	}

	s.usage.track(ctx, userID, models.UsageGigsPosted)

	s.logger.Info("Gig created", "gig_id", gig.ID, "owner_id", userID)
	return connect.NewResponse(&rpc.CreateGigResponse{Gig: toWireGig(gig)}), nil
}

// UpdateGig changes the fields set in the request. Only the owner may update.
func (s *GigService) UpdateGig(ctx context.Context, req *connect.Request[rpc.UpdateGigRequest]) (*connect.Response[rpc.UpdateGigResponse], error) {
	userID := middleware.GetUserID(ctx)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if req.Msg.GigID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("gigId is required"))
	}

	gig, err := s.store.GetGig(ctx, req.Msg.GigID)
	if err != nil {
		return nil, storeError(err)
	}
	if gig.OwnerID != userID {
		s.logger.Warn("UpdateGig by non-owner", "gig_id", gig.ID, "user_id", userID)
		return nil, connect.NewError(connect.CodePermissionDenied, errors.New("only the owner can update this gig"))
	}

	if req.Msg.Title != nil {
		title := strings.TrimSpace(*req.Msg.Title)
		if title == "" {
			return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("title must not be empty"))
		}
		gig.Title = title
	}
	if req.Msg.Description != nil {
		gig.Description = strings.TrimSpace(*req.Msg.Description)
	}
	if req.Msg.Category != nil {
		gig.Category = strings.TrimSpace(*req.Msg.Category)
	}
	if req.Msg.Budget != nil {
		if !req.Msg.Budget.IsPositive() {
			return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("budget must be greater than zero"))
		}
		gig.Budget = req.Msg.Budget.Round(2)
	}
	if req.Msg.Status != nil {
		status := models.GigStatus(*req.Msg.Status)
		if !status.Valid() {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("unknown gig status %q", *req.Msg.Status))
		}
		gig.Status = status
	}

	if err := s.store.UpdateGig(ctx, gig); err != nil {
		s.logger.Error("UpdateGig failed", "gig_id", gig.ID, "error", err)
		return nil, storeError(err)
	}

	s.logger.Info("Gig updated", "gig_id", gig.ID, "status", gig.Status)
	return connect.NewResponse(&rpc.UpdateGigResponse{Gig: toWireGig(gig)}), nil
}

func normalizeCurrency(currency string) string {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		return defaultCurrency
	}
	return currency
}

func toWireGig(gig *models.Gig) *rpc.Gig {
	return &rpc.Gig{
		ID:          gig.ID,
		OwnerID:     gig.OwnerID,
		Title:       gig.Title,
		Description: gig.Description,
		Category:    gig.Category,
		Budget:      gig.Budget,
		Currency:    gig.Currency,
		Status:      string(gig.Status),
		CreatedAt:   gig.CreatedAt,
		UpdatedAt:   gig.UpdatedAt,
	}
}
