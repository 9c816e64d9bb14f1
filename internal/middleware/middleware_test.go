package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mmynk/gigboard/internal/auth"
	"github.com/mmynk/gigboard/internal/metrics"
	"github.com/mmynk/gigboard/internal/models"
)

type empty struct{}

func testToken(t *testing.T, m *auth.JWTManager) (string, *models.User) {
	t.Helper()
	user := models.NewUser("ada@example.com", "Ada", "")
	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return token, user
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if seen == "" {
			t.Fatal("expected a generated request id")
		}
		if got := rec.Header().Get(RequestIDHeader); got != seen {
			t.Errorf("response header %q, context %q", got, seen)
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if seen != "req-123" {
			t.Errorf("expected req-123, got %q", seen)
		}
	})
}

func TestRequireAuthInterceptor(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	token, user := testToken(t, jwtManager)

	var gotUser string
	next := connect.UnaryFunc(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		gotUser = GetUserID(ctx)
		return connect.NewResponse(&empty{}), nil
	})
	call := RequireAuth(jwtManager)(next)

	req := connect.NewRequest(&empty{})
	if _, err := call(context.Background(), req); connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("no token: expected Unauthenticated, got %v", err)
	}

	req = connect.NewRequest(&empty{})
	req.Header().Set("Authorization", "Bearer not-a-token")
	if _, err := call(context.Background(), req); connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("bad token: expected Unauthenticated, got %v", err)
	}

	req = connect.NewRequest(&empty{})
	req.Header().Set("Cookie", auth.SessionCookie+"="+token)
	if _, err := call(context.Background(), req); err != nil {
		t.Fatalf("cookie auth failed: %v", err)
	}
	if gotUser != user.ID {
		t.Errorf("expected user %s in context, got %q", user.ID, gotUser)
	}
}

func TestOptionalAuthInterceptor(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	token, user := testToken(t, jwtManager)

	var gotUser string
	next := connect.UnaryFunc(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		gotUser = GetUserID(ctx)
		return connect.NewResponse(&empty{}), nil
	})
	call := OptionalAuth(jwtManager)(next)

	req := connect.NewRequest(&empty{})
	req.Header().Set("Authorization", "Bearer garbage")
	if _, err := call(context.Background(), req); err != nil {
		t.Fatalf("anonymous call rejected: %v", err)
	}
	if gotUser != "" {
		t.Errorf("expected anonymous caller, got %q", gotUser)
	}

	req = connect.NewRequest(&empty{})
	req.Header().Set("Authorization", "Bearer "+token)
	if _, err := call(context.Background(), req); err != nil {
		t.Fatalf("authenticated call failed: %v", err)
	}
	if gotUser != user.ID {
		t.Errorf("expected %s, got %q", user.ID, gotUser)
	}
}

func TestGinAuthenticate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	token, user := testToken(t, jwtManager)
	m := metrics.New()

	router := gin.New()
	router.Use(AccessLog(slog.New(slog.NewTextHandler(io.Discard, nil)), m))
	router.GET("/whoami", Authenticate(jwtManager), func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c.Request.Context()))
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != user.ID {
		t.Errorf("expected %s, got %q", user.ID, rec.Body.String())
	}

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/whoami", "401")); got != 1 {
		t.Errorf("expected one 401 recorded, got %v", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/whoami", "200")); got != 1 {
		t.Errorf("expected one 200 recorded, got %v", got)
	}
}
