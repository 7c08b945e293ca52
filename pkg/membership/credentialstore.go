package membership

import (
	"context"

	"github.com/google/uuid"
)

// CredentialStore defines the membership backend that owns credential state:
// password hashes, reset tokens, lockout and sign-in sessions. The service
// validates first and only then delegates here.
type CredentialStore interface {
	// CreateCredential stores the initial password for a user
	CreateCredential(ctx context.Context, userID uuid.UUID, password string) error

	// DeleteCredential removes all credential state for a user
	DeleteCredential(ctx context.Context, userID uuid.UUID) error

	// CheckPassword reports whether password matches the stored hash
	CheckPassword(ctx context.Context, userID uuid.UUID, password string) (bool, error)

	// ChangePassword verifies oldPassword and stores newPassword
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) (bool, error)

	// GeneratePasswordResetToken issues a single-use reset token
	GeneratePasswordResetToken(ctx context.Context, userID uuid.UUID) (string, error)

	// ResetPassword consumes token and stores newPassword
	ResetPassword(ctx context.Context, userID uuid.UUID, token, newPassword string) error

	// CanSignIn reports whether sign-in is administratively allowed
	// (false while the user is locked out)
	CanSignIn(ctx context.Context, userID uuid.UUID) (bool, error)

	// SignIn establishes a session without a password check
	SignIn(ctx context.Context, userID uuid.UUID, persistent bool) error

	// PasswordSignIn verifies password and establishes a session.
	// When lockoutOnFailure is set, failed attempts count toward lockout.
	PasswordSignIn(ctx context.Context, userID uuid.UUID, password string, persistent, lockoutOnFailure bool) (bool, error)

	// AddExternalLogin links an external provider login to the user
	AddExternalLogin(ctx context.Context, userID uuid.UUID, login ExternalLogin) error
}
