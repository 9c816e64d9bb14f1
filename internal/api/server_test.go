package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/gigboard/internal/auth"
	"github.com/mmynk/gigboard/internal/metrics"
	"github.com/mmynk/gigboard/internal/models"
	"github.com/mmynk/gigboard/internal/payments"
	"github.com/mmynk/gigboard/internal/payments/paymentstest"
	"github.com/mmynk/gigboard/internal/service"
	"github.com/mmynk/gigboard/internal/storage/sqlite"
)

type testAPI struct {
	server *Server
	store  *sqlite.SQLiteStore
	fake   *paymentstest.Fake
	jwt    *auth.JWTManager
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tmpFile, err := os.CreateTemp("", "api-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
		os.Remove(tmpFile.Name())
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	fake := &paymentstest.Fake{}
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	usage := service.NewUsageService(store, m, logger)

	server := NewServer(Deps{
		Auth:    service.NewAuthService(auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost), jwtManager, store, logger),
		Billing: service.NewBillingService(store, fake, service.BillingConfig{}, m, logger),
		Escrow:  service.NewEscrowService(store, fake, usage, m, logger),
		Usage:   usage,
		JWT:     jwtManager,
		Store:   store,
		Metrics: m,
		Logger:  logger,
	})

	return &testAPI{server: server, store: store, fake: fake, jwt: jwtManager}
}

func (a *testAPI) user(t *testing.T, email string) (*models.User, string) {
	t.Helper()
	user := models.NewUser(email, strings.Split(email, "@")[0], "hash")
	if err := a.store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	token, err := a.jwt.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return user, token
}

func (a *testAPI) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %q", rec.Body.String())
	}
	return body.Error
}

func TestBillingHistoryEndpoint(t *testing.T) {
	a := newTestAPI(t)
	user, token := a.user(t, "client@example.com")
	if err := a.store.LinkBillingCustomer(context.Background(), &models.BillingCustomer{UserID: user.ID, StripeCustomerID: "cus_1"}); err != nil {
		t.Fatalf("LinkBillingCustomer failed: %v", err)
	}

	a.fake.ListPaidInvoicesFunc = func(ctx context.Context, customerID string, limit int) ([]payments.Invoice, error) {
		return []payments.Invoice{{ID: "in_1", Created: 1000, AmountPaid: 5000, PDFURL: "https://stripe.example/in_1.pdf"}}, nil
	}
	a.fake.ListPaymentAttemptsFunc = func(ctx context.Context, customerID string, limit int) ([]payments.PaymentAttempt, error) {
		return []payments.PaymentAttempt{{ID: "ch_1", Created: 2000, Amount: 1200, Status: "failed"}}, nil
	}

	rec := a.do(t, http.MethodGet, "/billing-history", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	want := `[` +
		`{"id":"ch_1","date":"1970-01-01T00:33:20.000Z","amount":12.00,"status":"failed","invoiceUrl":null},` +
		`{"id":"in_1","date":"1970-01-01T00:16:40.000Z","amount":50.00,"status":"succeeded","invoiceUrl":"https://stripe.example/in_1.pdf"}` +
		`]`
	var compact bytes.Buffer
	if err := json.Compact(&compact, rec.Body.Bytes()); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if compact.String() != want {
		t.Errorf("body mismatch\n got: %s\nwant: %s", compact.String(), want)
	}
}

func TestBillingHistoryErrors(t *testing.T) {
	a := newTestAPI(t)
	user, token := a.user(t, "client@example.com")

	if rec := a.do(t, http.MethodGet, "/billing-history", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", rec.Code)
	}

	rec := a.do(t, http.MethodGet, "/billing-history", token, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("no customer: expected 404, got %d", rec.Code)
	}
	if msg := errorBody(t, rec); msg != "no billing customer on file" {
		t.Errorf("unexpected error message %q", msg)
	}

	if err := a.store.LinkBillingCustomer(context.Background(), &models.BillingCustomer{UserID: user.ID, StripeCustomerID: "cus_1"}); err != nil {
		t.Fatalf("LinkBillingCustomer failed: %v", err)
	}
	a.fake.ListPaidInvoicesFunc = func(ctx context.Context, customerID string, limit int) ([]payments.Invoice, error) {
		return nil, errors.New("stripe: api_key invalid")
	}
	rec = a.do(t, http.MethodGet, "/billing-history", token, "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("upstream failure: expected 500, got %d", rec.Code)
	}
	if msg := errorBody(t, rec); strings.Contains(msg, "api_key") {
		t.Errorf("upstream detail leaked to client: %q", msg)
	}
}

func TestEscrowReleaseEndpoint(t *testing.T) {
	a := newTestAPI(t)
	owner, ownerToken := a.user(t, "client@example.com")
	_, otherToken := a.user(t, "other@example.com")

	if err := a.store.HoldPayment(context.Background(), &models.Payment{
		ID: "pay_42", UserID: owner.ID, Amount: 5000, Currency: "usd", CreativeStripeAccountID: "acct_1",
	}); err != nil {
		t.Fatalf("HoldPayment failed: %v", err)
	}

	tests := []struct {
		name    string
		token   string
		body    string
		want    int
		wantMsg string
	}{
		{"no token", "", `{"paymentId":"pay_42"}`, http.StatusUnauthorized, ""},
		{"malformed body", ownerToken, `{"paymentId":`, http.StatusBadRequest, "invalid request body"},
		{"wrong type", ownerToken, `{"paymentId":42}`, http.StatusBadRequest, "invalid request body"},
		{"missing payment id", ownerToken, `{}`, http.StatusBadRequest, "paymentId is required"},
		{"unknown payment", ownerToken, `{"paymentId":"pay_missing"}`, http.StatusNotFound, "escrow not found"},
		{"not the owner", otherToken, `{"paymentId":"pay_42"}`, http.StatusForbidden, "not authorized to release this escrow"},
		{"owner", ownerToken, `{"paymentId":"pay_42"}`, http.StatusOK, ""},
		{"already released", ownerToken, `{"paymentId":"pay_42"}`, http.StatusConflict, "escrow already released"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, http.MethodPost, "/escrow/release", tt.token, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if tt.wantMsg != "" {
				if msg := errorBody(t, rec); msg != tt.wantMsg {
					t.Errorf("error = %q, want %q", msg, tt.wantMsg)
				}
			}
			if tt.want == http.StatusOK && strings.TrimSpace(rec.Body.String()) != `{"success":true}` {
				t.Errorf("unexpected body %s", rec.Body.String())
			}
		})
	}

	if n := len(a.fake.Transfers()); n != 1 {
		t.Errorf("expected exactly 1 transfer, got %d", n)
	}
}

func TestEscrowReleaseTransferFailure(t *testing.T) {
	a := newTestAPI(t)
	owner, token := a.user(t, "client@example.com")
	if err := a.store.HoldPayment(context.Background(), &models.Payment{
		ID: "pay_1", UserID: owner.ID, Amount: 100, Currency: "usd", CreativeStripeAccountID: "acct_1",
	}); err != nil {
		t.Fatalf("HoldPayment failed: %v", err)
	}
	a.fake.CreateTransferFunc = func(ctx context.Context, req payments.TransferRequest) (*payments.Transfer, error) {
		return nil, fmt.Errorf("%w: %w: balance_insufficient", payments.ErrUpstream, payments.ErrRejected)
	}

	rec := a.do(t, http.MethodPost, "/escrow/release", token, `{"paymentId":"pay_1"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if msg := errorBody(t, rec); msg == "" {
		t.Error("expected an error message")
	}

	// Once the balance is funded the owner can simply ask again.
	a.fake.CreateTransferFunc = nil
	rec = a.do(t, http.MethodPost, "/escrow/release", token, `{"paymentId":"pay_1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("retry: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthEndpoints(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/auth/register", "", `{"email":"ada@example.com","displayName":"Ada","password":"analytical"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = a.do(t, http.MethodPost, "/auth/register", "", `{"email":"ada@example.com","displayName":"Ada","password":"analytical"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register: expected 409, got %d", rec.Code)
	}

	rec = a.do(t, http.MethodPost, "/auth/login", "", `{"email":"ada@example.com","password":"wrong-password"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login: expected 401, got %d", rec.Code)
	}

	rec = a.do(t, http.MethodPost, "/auth/login", "", `{"email":"ada@example.com","password":"analytical"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", rec.Code)
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly || cookie.Value == "" {
		t.Fatalf("expected HttpOnly session cookie, got %+v", cookie)
	}

	// The cookie alone authenticates.
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(cookie)
	me := httptest.NewRecorder()
	a.server.ServeHTTP(me, req)
	if me.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", me.Code)
	}
	var body struct {
		User struct {
			Email       string `json:"email"`
			DisplayName string `json:"displayName"`
		} `json:"user"`
	}
	if err := json.Unmarshal(me.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.User.Email != "ada@example.com" || body.User.DisplayName != "Ada" {
		t.Errorf("unexpected user %+v", body.User)
	}
}

func TestCheckoutAndPortalEndpoints(t *testing.T) {
	a := newTestAPI(t)
	user, token := a.user(t, "buyer@example.com")

	if rec := a.do(t, http.MethodPost, "/billing/portal", token, ""); rec.Code != http.StatusNotFound {
		t.Errorf("portal without customer: expected 404, got %d", rec.Code)
	}
	if rec := a.do(t, http.MethodPost, "/billing/checkout", token, `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("checkout without price: expected 400, got %d", rec.Code)
	}

	rec := a.do(t, http.MethodPost, "/billing/checkout", token, `{"priceId":"price_pro"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("checkout: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil || out.URL == "" {
		t.Fatalf("expected url, got %s", rec.Body.String())
	}

	rec = a.do(t, http.MethodPost, "/billing/portal", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("portal: expected 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil || out.URL != "https://portal.example.com/cus_"+user.ID {
		t.Errorf("unexpected portal url %s", rec.Body.String())
	}
}

func TestUsageEndpoint(t *testing.T) {
	a := newTestAPI(t)
	user, token := a.user(t, "meter@example.com")
	if err := a.store.RecordUsage(context.Background(), &models.UsageRecord{
		UserID: user.ID, Metric: models.UsageMessagesSent, Quantity: 4, RecordedAt: time.Now().Unix(),
	}); err != nil {
		t.Fatalf("RecordUsage failed: %v", err)
	}

	rec := a.do(t, http.MethodGet, "/usage", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		PeriodStart string           `json:"periodStart"`
		Usage       map[string]int64 `json:"usage"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Usage["messages_sent"] != 4 || body.Usage["gigs_posted"] != 0 {
		t.Errorf("unexpected usage %+v", body.Usage)
	}
	if _, ok := body.Usage["escrow_releases"]; !ok {
		t.Error("escrow_releases missing from usage")
	}
}

func TestOperationalEndpoints(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz: expected 200, got %d", rec.Code)
	}

	rec = a.do(t, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "gigboard_http_requests_total") {
		t.Error("expected request counter in exposition")
	}
}
