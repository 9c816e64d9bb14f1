package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/mmynk/gigboard/internal/metrics"
	"github.com/mmynk/gigboard/internal/models"
	"github.com/mmynk/gigboard/internal/storage/sqlite"
)

// setupStore creates a SQLite store in a temp file, removed when the test ends.
func setupStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "service-test-*.db")
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

	return store
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustCreateUser(t *testing.T, store *sqlite.SQLiteStore, email, name string) *models.User {
	t.Helper()
	user := models.NewUser(email, name, "hash")
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", email, err)
	}
	return user
}

func newUsage(store *sqlite.SQLiteStore, m *metrics.Metrics) *UsageService {
	return NewUsageService(store, m, discardLogger())
}
