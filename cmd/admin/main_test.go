package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mmynk/gigboard/internal/config"
)

// runAdmin executes the CLI against a fresh command tree and returns stdout.
func runAdmin(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func setupDB(t *testing.T) {
	t.Helper()
	t.Setenv(config.FileEnv, "")
	t.Setenv("GIGBOARD_DB_DRIVER", config.DriverSQLite)
	t.Setenv("GIGBOARD_DB_PATH", filepath.Join(t.TempDir(), "admin.db"))
	t.Setenv("GIGBOARD_LOG_LEVEL", "error")
}

func TestAdminEscrowLifecycle(t *testing.T) {
	setupDB(t)

	out, err := runAdmin(t, "migrate")
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !strings.Contains(out, "schema up to date") {
		t.Errorf("unexpected migrate output %q", out)
	}

	out, err = runAdmin(t, "user", "create", "--email", "Client@Example.com", "--name", "Client", "--password", "password123")
	if err != nil {
		t.Fatalf("user create failed: %v", err)
	}
	fields := strings.Fields(out)
	if len(fields) < 3 || fields[0] != "created" {
		t.Fatalf("unexpected user create output %q", out)
	}
	userID := fields[2]
	if !strings.Contains(out, "<client@example.com>") {
		t.Errorf("expected normalized email in %q", out)
	}

	if _, err := runAdmin(t, "user", "create", "--email", "client@example.com", "--name", "Again", "--password", "password123"); err == nil {
		t.Error("expected duplicate email to fail")
	}

	if _, err := runAdmin(t, "customer", "link", "--user", userID, "--customer", "cus_123"); err != nil {
		t.Fatalf("customer link failed: %v", err)
	}
	if _, err := runAdmin(t, "customer", "link", "--user", "missing", "--customer", "cus_456"); err == nil {
		t.Error("expected link for unknown user to fail")
	}

	out, err = runAdmin(t, "escrow", "hold",
		"--payment-id", "pay_1", "--user", userID, "--amount", "125.50", "--currency", "USD", "--account", "acct_1")
	if err != nil {
		t.Fatalf("escrow hold failed: %v", err)
	}
	if !strings.Contains(out, "125.50 USD") || !strings.Contains(out, "pay_1") {
		t.Errorf("unexpected hold output %q", out)
	}

	out, err = runAdmin(t, "escrow", "show", "pay_1")
	if err != nil {
		t.Fatalf("escrow show failed: %v", err)
	}
	for _, want := range []string{"client    " + userID, "payee     acct_1", "status    pending", "escrow    held", "attempts  0"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	// Nothing to reconcile while the escrow is still held.
	if _, err := runAdmin(t, "escrow", "reconcile", "pay_1"); err == nil {
		t.Error("expected reconcile of a held escrow to fail")
	}
	if _, err := runAdmin(t, "escrow", "show", "pay_missing"); err == nil {
		t.Error("expected show of unknown payment to fail")
	}

	out, err = runAdmin(t, "usage", "--user", userID)
	if err != nil {
		t.Fatalf("usage failed: %v", err)
	}
	if !strings.Contains(out, "escrow_releases") {
		t.Errorf("unexpected usage output %q", out)
	}
}

func TestAdminRequiresFlags(t *testing.T) {
	setupDB(t)

	if _, err := runAdmin(t, "escrow", "hold", "--user", "u1"); err == nil {
		t.Error("expected missing --amount and --account to fail")
	}
	if _, err := runAdmin(t, "escrow", "show"); err == nil {
		t.Error("expected missing payment id to fail")
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"125.50", 12550, false},
		{"10", 1000, false},
		{"0.01", 1, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"1.005", 0, true},
		{"abc", 0, true},
		{"92233720368547758.07", 9223372036854775807, false},
		{"92233720368547758.08", 0, true},
		{"100000000000000000", 0, true},
		{"184467440737095516.17", 0, true},
	}
	for _, tt := range tests {
		got, err := parseAmount(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAmount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseAmount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
