package auth

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/gigboard/internal/models"
	"github.com/mmynk/gigboard/internal/storage/sqlite"
)

func setupAuthenticator(t *testing.T) *PasswordAuthenticator {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "auth-test-*.db")
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

	return NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	a := setupAuthenticator(t)
	ctx := context.Background()

	user, err := a.Register(ctx, "  Ada@Example.com ", "Ada", "correct horse")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("expected normalized email, got %q", user.Email)
	}
	if user.PasswordHash == "correct horse" {
		t.Error("password stored in plain text")
	}

	got, err := a.Authenticate(ctx, "ADA@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("authenticated as %s, want %s", got.ID, user.ID)
	}

	if _, err := a.Authenticate(ctx, "ada@example.com", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := a.Authenticate(ctx, "nobody@example.com", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRegisterRejects(t *testing.T) {
	a := setupAuthenticator(t)
	ctx := context.Background()

	if _, err := a.Register(ctx, "short@example.com", "Short", "1234567"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}

	if _, err := a.Register(ctx, "dup@example.com", "First", "password1"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := a.Register(ctx, "DUP@example.com", "Second", "password2"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}
}

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	user := models.NewUser("ada@example.com", "Ada", "")

	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != user.Email {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestJWTRejects(t *testing.T) {
	user := models.NewUser("ada@example.com", "Ada", "")

	t.Run("wrong secret", func(t *testing.T) {
		token, _ := NewJWTManager("secret-a", time.Hour).Generate(user)
		if _, err := NewJWTManager("secret-b", time.Hour).Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		m := NewJWTManager("secret", time.Minute)
		m.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, err := m.Generate(user)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if _, err := NewJWTManager("secret", time.Minute).Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := NewJWTManager("secret", time.Hour).Validate("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestTokenFromHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  http.Header
		want    string
		wantErr error
	}{
		{
			name:   "bearer",
			header: http.Header{"Authorization": {"Bearer abc"}},
			want:   "abc",
		},
		{
			name:   "cookie",
			header: http.Header{"Cookie": {"theme=dark; session=xyz"}},
			want:   "xyz",
		},
		{
			name:   "bearer wins over cookie",
			header: http.Header{"Authorization": {"Bearer abc"}, "Cookie": {"session=xyz"}},
			want:   "abc",
		},
		{
			name:    "basic scheme",
			header:  http.Header{"Authorization": {"Basic abc"}},
			wantErr: ErrInvalidToken,
		},
		{
			name:    "missing",
			header:  http.Header{},
			wantErr: ErrMissingToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TokenFromHeader(tt.header)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
