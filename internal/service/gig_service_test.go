package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/gigboard/internal/auth"
	"github.com/mmynk/gigboard/internal/metrics"
	"github.com/mmynk/gigboard/internal/middleware"
	"github.com/mmynk/gigboard/internal/models"
	"github.com/mmynk/gigboard/internal/rpc"
	"github.com/mmynk/gigboard/internal/storage/sqlite"
)

type rpcFixture struct {
	store    *sqlite.SQLiteStore
	gigs     *rpc.GigServiceClient
	messages *rpc.MessageServiceClient
	jwt      *auth.JWTManager
}

// setupRPCServer serves GigService and MessageService the way the server does.
func setupRPCServer(t *testing.T) *rpcFixture {
	t.Helper()

	store := setupStore(t)
	logger := discardLogger()
	m := metrics.New()
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	usage := NewUsageService(store, m, logger)

	gigPath, gigHandler := rpc.NewGigServiceHandler(
		NewGigService(store, usage, logger),
		connect.WithInterceptors(middleware.OptionalAuth(jwtManager), middleware.LoggingInterceptor(logger, m)),
	)
	msgPath, msgHandler := rpc.NewMessageServiceHandler(
		NewMessageService(store, usage, logger),
		connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor(logger, m)),
	)

	mux := http.NewServeMux()
	mux.Handle(gigPath, gigHandler)
	mux.Handle(msgPath, msgHandler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &rpcFixture{
		store:    store,
		gigs:     rpc.NewGigServiceClient(http.DefaultClient, server.URL),
		messages: rpc.NewMessageServiceClient(http.DefaultClient, server.URL),
		jwt:      jwtManager,
	}
}

// request builds an RPC request, signed in as user when non-nil.
func request[T any](t *testing.T, f *rpcFixture, user *models.User, msg *T) *connect.Request[T] {
	t.Helper()
	req := connect.NewRequest(msg)
	if user != nil {
		token, err := f.jwt.Generate(user)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		req.Header().Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestCreateAndGetGig(t *testing.T) {
	f := setupRPCServer(t)
	owner := mustCreateUser(t, f.store, "owner@example.com", "Owner")
	ctx := context.Background()

	created, err := f.gigs.CreateGig(ctx, request(t, f, owner, &rpc.CreateGigRequest{
		Title:       "  Logo design ",
		Description: "Need a logo for a coffee shop",
		Category:    "design",
		Budget:      decimal.RequireFromString("150.50"),
		Currency:    "USD",
	}))
	if err != nil {
		t.Fatalf("CreateGig failed: %v", err)
	}

	gig := created.Msg.Gig
	if gig.ID == "" {
		t.Fatal("expected gig ID to be set")
	}
	if gig.Title != "Logo design" || gig.OwnerID != owner.ID || gig.Status != "open" || gig.Currency != "usd" {
		t.Errorf("unexpected gig: %+v", gig)
	}

	got, err := f.gigs.GetGig(ctx, request(t, f, nil, &rpc.GetGigRequest{GigID: gig.ID}))
	if err != nil {
		t.Fatalf("GetGig failed: %v", err)
	}
	if !got.Msg.Gig.Budget.Equal(decimal.RequireFromString("150.5")) {
		t.Errorf("budget = %s, want 150.50", got.Msg.Gig.Budget)
	}

	totals, err := f.store.SumUsage(ctx, owner.ID, 0)
	if err != nil {
		t.Fatalf("SumUsage failed: %v", err)
	}
	if totals[models.UsageGigsPosted] != 1 {
		t.Errorf("gigs_posted usage = %d, want 1", totals[models.UsageGigsPosted])
	}
}

func TestCreateGigValidation(t *testing.T) {
	f := setupRPCServer(t)
	owner := mustCreateUser(t, f.store, "owner@example.com", "Owner")

	tests := []struct {
		name string
		user *models.User
		req  *rpc.CreateGigRequest
		want connect.Code
	}{
		{"anonymous", nil, &rpc.CreateGigRequest{Title: "x", Budget: decimal.NewFromInt(10)}, connect.CodeUnauthenticated},
		{"missing title", owner, &rpc.CreateGigRequest{Title: "  ", Budget: decimal.NewFromInt(10)}, connect.CodeInvalidArgument},
		{"zero budget", owner, &rpc.CreateGigRequest{Title: "x"}, connect.CodeInvalidArgument},
		{"negative budget", owner, &rpc.CreateGigRequest{Title: "x", Budget: decimal.NewFromInt(-5)}, connect.CodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.gigs.CreateGig(context.Background(), request(t, f, tt.user, tt.req))
			if connect.CodeOf(err) != tt.want {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestListGigs(t *testing.T) {
	f := setupRPCServer(t)
	alice := mustCreateUser(t, f.store, "alice@example.com", "Alice")
	bob := mustCreateUser(t, f.store, "bob@example.com", "Bob")
	ctx := context.Background()

	for _, g := range []struct {
		owner    *models.User
		title    string
		category string
	}{
		{alice, "Logo", "design"},
		{alice, "Website", "dev"},
		{bob, "Poster", "design"},
	} {
		if _, err := f.gigs.CreateGig(ctx, request(t, f, g.owner, &rpc.CreateGigRequest{
			Title: g.title, Category: g.category, Budget: decimal.NewFromInt(100),
		})); err != nil {
			t.Fatalf("CreateGig(%s) failed: %v", g.title, err)
		}
	}

	all, err := f.gigs.ListGigs(ctx, request(t, f, nil, &rpc.ListGigsRequest{}))
	if err != nil {
		t.Fatalf("ListGigs failed: %v", err)
	}
	if len(all.Msg.Gigs) != 3 {
		t.Fatalf("expected 3 gigs, got %d", len(all.Msg.Gigs))
	}
	if all.Msg.Gigs[0].Title != "Poster" {
		t.Errorf("expected newest first, got %s", all.Msg.Gigs[0].Title)
	}

	design, err := f.gigs.ListGigs(ctx, request(t, f, nil, &rpc.ListGigsRequest{Category: "design"}))
	if err != nil {
		t.Fatalf("ListGigs failed: %v", err)
	}
	if len(design.Msg.Gigs) != 2 {
		t.Errorf("expected 2 design gigs, got %d", len(design.Msg.Gigs))
	}

	mine, err := f.gigs.ListGigs(ctx, request(t, f, nil, &rpc.ListGigsRequest{OwnerID: alice.ID, Limit: 1}))
	if err != nil {
		t.Fatalf("ListGigs failed: %v", err)
	}
	if len(mine.Msg.Gigs) != 1 || mine.Msg.Gigs[0].OwnerID != alice.ID {
		t.Errorf("unexpected owner filter result: %+v", mine.Msg.Gigs)
	}

	if _, err := f.gigs.ListGigs(ctx, request(t, f, nil, &rpc.ListGigsRequest{Status: "archived"})); connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("expected InvalidArgument for unknown status, got %v", err)
	}
}

func TestUpdateGig(t *testing.T) {
	f := setupRPCServer(t)
	owner := mustCreateUser(t, f.store, "owner@example.com", "Owner")
	stranger := mustCreateUser(t, f.store, "stranger@example.com", "Stranger")
	ctx := context.Background()

	created, err := f.gigs.CreateGig(ctx, request(t, f, owner, &rpc.CreateGigRequest{
		Title: "Logo", Budget: decimal.NewFromInt(100),
	}))
	if err != nil {
		t.Fatalf("CreateGig failed: %v", err)
	}
	gigID := created.Msg.Gig.ID

	status := "in_progress"
	budget := decimal.NewFromInt(250)
	updated, err := f.gigs.UpdateGig(ctx, request(t, f, owner, &rpc.UpdateGigRequest{
		GigID: gigID, Status: &status, Budget: &budget,
	}))
	if err != nil {
		t.Fatalf("UpdateGig failed: %v", err)
	}
	if updated.Msg.Gig.Status != "in_progress" || !updated.Msg.Gig.Budget.Equal(budget) || updated.Msg.Gig.Title != "Logo" {
		t.Errorf("unexpected updated gig: %+v", updated.Msg.Gig)
	}

	closed := "closed"
	if _, err := f.gigs.UpdateGig(ctx, request(t, f, stranger, &rpc.UpdateGigRequest{GigID: gigID, Status: &closed})); connect.CodeOf(err) != connect.CodePermissionDenied {
		t.Errorf("expected PermissionDenied for non-owner, got %v", err)
	}

	bogus := "paused"
	if _, err := f.gigs.UpdateGig(ctx, request(t, f, owner, &rpc.UpdateGigRequest{GigID: gigID, Status: &bogus})); connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("expected InvalidArgument for unknown status, got %v", err)
	}

	if _, err := f.gigs.UpdateGig(ctx, request(t, f, owner, &rpc.UpdateGigRequest{GigID: "missing", Status: &closed})); connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}
