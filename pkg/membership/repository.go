package membership

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the relational store backing the membership service:
// user rows, role rows and user-role assignment rows.
//
// Implementations return ErrUserNotFound / ErrRoleNotFound for missing rows
// so the service can translate lookups uniformly. The batch operations
// (CreateRoles, DeleteRoles) are atomic: either every row is written or none.
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	FindUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, params UpdateUserParams) (User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	AnyUserExists(ctx context.Context) (bool, error)

	// Role operations
	CreateRole(ctx context.Context, name string) (Role, error)
	CreateRoles(ctx context.Context, names []string) ([]Role, error)
	GetRoleByName(ctx context.Context, name string) (Role, error)
	FindRoles(ctx context.Context) ([]Role, error)
	DeleteRole(ctx context.Context, id uuid.UUID) error
	DeleteRoles(ctx context.Context, ids []uuid.UUID) error

	// User-role assignment operations
	CreateUserRole(ctx context.Context, params UserRoleParams) error
	DeleteUserRole(ctx context.Context, params UserRoleParams) error
	DeleteUserRoles(ctx context.Context, userID uuid.UUID) error
	HasUserRole(ctx context.Context, params UserRoleParams) (bool, error)
	FindUsersByRole(ctx context.Context, roleID uuid.UUID) ([]User, error)
	FindRolesByUser(ctx context.Context, userID uuid.UUID) ([]Role, error)
	CountUsersInRole(ctx context.Context, roleID uuid.UUID) (int64, error)
}

// SchemaEnsurer is optionally implemented by repositories that can create or
// migrate their schema on demand. The bootstrap seeding path uses it to retry
// once after a store fault.
type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}
