package rpc

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCodec(t *testing.T) {
	var c Codec
	if c.Name() != "json" {
		t.Errorf("codec name = %q, want json", c.Name())
	}

	data, err := c.Marshal(&CreateGigRequest{Title: "Logo", Budget: decimal.RequireFromString("150.5")})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got CreateGigRequest
	if err := c.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.Title != "Logo" || !got.Budget.Equal(decimal.RequireFromString("150.50")) {
		t.Errorf("unexpected message: %+v", got)
	}

	// Budgets may be sent as bare JSON numbers.
	if err := c.Unmarshal([]byte(`{"title":"Site","budget":99.99}`), &got); err != nil {
		t.Fatalf("Unmarshal number budget failed: %v", err)
	}
	if !got.Budget.Equal(decimal.RequireFromString("99.99")) {
		t.Errorf("budget = %s, want 99.99", got.Budget)
	}

	var empty ListInboxRequest
	if err := c.Unmarshal(nil, &empty); err != nil {
		t.Errorf("empty body should decode: %v", err)
	}

	if err := c.Unmarshal([]byte(`{`), &got); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
