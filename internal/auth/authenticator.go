package auth

import (
	"context"

	"github.com/mmynk/gigboard/internal/models"
)

// Authenticator verifies who a marketplace user is.
// Clients and creatives share the same account model; the implementation
// decides what the credential is (a password today).
type Authenticator interface {
	// Register creates a new account. Returns ErrEmailExists if the email is taken.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the user owning the email if the credential matches.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks the credential before anything is stored.
	ValidateCredential(credential string) error
}
