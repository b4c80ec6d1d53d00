// Package auth issues and verifies the caller identity that every ledger
// invocation carries: accounts with bcrypt passwords, sessions as HS256 JWTs.
package auth

import (
	"context"

	"github.com/mmynk/groupledger/internal/models"
)

// Authenticator registers accounts and verifies their credentials.
// Implementations decide what a credential is; the ledger only needs the
// resulting user ID.
type Authenticator interface {
	// Register creates an account and returns it.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the account whose credential matches.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks the credential before it is stored.
	ValidateCredential(credential string) error
}
