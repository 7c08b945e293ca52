package membership

import (
	"time"

	"github.com/google/uuid"
)

// Field length limits enforced on user records
const (
	FirstNameMaxLen        = 100
	LastNameMaxLen         = 100
	PasswordQuestionMaxLen = 100
)

// DefaultInitialPassword is assigned when a user is created without a
// password. Callers are expected to force a reset on first sign-in.
const DefaultInitialPassword = "ChangeMe@123"

// User represents a user account. Email doubles as the login name.
type User struct {
	ID                 uuid.UUID `json:"id"`
	Email              string    `json:"email"`
	FirstName          string    `json:"first_name,omitempty"`
	LastName           string    `json:"last_name,omitempty"`
	PasswordQuestion   string    `json:"password_question,omitempty"`
	PasswordAnswerHash string    `json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	LastModifiedAt     time.Time `json:"last_modified_at"`
}

// Role represents a named permission group
type Role struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// UserRoleAssignment links one user to one role
type UserRoleAssignment struct {
	UserID uuid.UUID `json:"user_id"`
	RoleID uuid.UUID `json:"role_id"`
}

// ExternalLogin identifies a login at an external provider
type ExternalLogin struct {
	Provider    string `json:"provider"`
	ProviderKey string `json:"provider_key"`
}

// AddUserParams contains parameters for creating a new user.
// Role distinguishes "no role" (nil) from an explicitly blank role name,
// which is rejected.
type AddUserParams struct {
	Email     string
	Password  string
	Question  string
	Answer    string
	FirstName string
	LastName  string
	Role      *string
}

// CreateUserParams contains parameters for inserting a user row
type CreateUserParams struct {
	Email              string
	FirstName          string
	LastName           string
	PasswordQuestion   string
	PasswordAnswerHash string
}

// UpdateUserParams contains parameters for updating a user row
type UpdateUserParams struct {
	ID                 uuid.UUID
	Email              string
	FirstName          string
	LastName           string
	PasswordQuestion   string
	PasswordAnswerHash string
}

// UserRoleParams contains parameters for a user-role assignment
type UserRoleParams struct {
	UserID uuid.UUID
	RoleID uuid.UUID
}
