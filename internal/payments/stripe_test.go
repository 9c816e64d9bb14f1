package payments

import (
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v76"
)

func TestUpstreamClassifiesStripeErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		rejected bool
	}{
		{"insufficient balance", &stripe.Error{HTTPStatusCode: 400, Code: stripe.ErrorCodeBalanceInsufficient, Msg: "insufficient funds"}, true},
		{"unknown account", &stripe.Error{HTTPStatusCode: 404, Code: stripe.ErrorCodeResourceMissing, Msg: "no such destination"}, true},
		{"key in use", &stripe.Error{HTTPStatusCode: 409, Msg: "idempotency key in use"}, false},
		{"rate limited", &stripe.Error{HTTPStatusCode: 429, Code: stripe.ErrorCodeRateLimit, Msg: "slow down"}, false},
		{"server error", &stripe.Error{HTTPStatusCode: 500, Msg: "internal"}, false},
		{"network", errors.New("connection reset by peer"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := upstream("create transfer", tt.err)
			if !errors.Is(err, ErrUpstream) {
				t.Errorf("expected ErrUpstream, got %v", err)
			}
			if got := errors.Is(err, ErrRejected); got != tt.rejected {
				t.Errorf("ErrRejected = %v, want %v (%v)", got, tt.rejected, err)
			}
		})
	}
}
