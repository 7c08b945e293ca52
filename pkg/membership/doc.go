// Package membership provides validated role and user management for
// simple-membership.
//
// This package coordinates user accounts, roles and user-role assignments.
// Every operation validates its inputs against the relational store before
// delegating mutations to the store or the credential backend, so the common
// failure path never reaches the backend.
//
// # Overview
//
// The membership package provides:
//   - Role lifecycle management with batch variants (all-or-nothing)
//   - User lifecycle management (create, read, update, delete, batch delete)
//   - User-role assignments with membership checks
//   - Password operations delegated to a credential store
//   - Repository pattern for database abstraction
//
// # Basic Usage
//
//	import "github.com/tendant/simple-membership/pkg/membership"
//
//	repo := membership.NewInMemoryRepository()
//	creds := membership.NewInMemoryCredentialStore(nil)
//	service := membership.NewMembershipService(repo, creds, nil)
//
//	// Create a role, then a user holding it
//	err := service.AddRole(ctx, "admin")
//
//	role := "admin"
//	user, err := service.AddUser(ctx, membership.AddUserParams{
//		Email:    "admin@example.com",
//		Password: "Password@1",
//		Role:     &role,
//	})
//
// # Error Handling
//
// Validation rejections are sentinel errors; test with errors.Is or the
// IsRejection helper. Store faults are wrapped and propagate unchanged:
//
//	err := service.AddRole(ctx, "admin")
//	switch {
//	case errors.Is(err, membership.ErrRoleExists):
//		// operation did not apply, input can be corrected
//	case err != nil:
//		// backend fault
//	}
//
// # Role Assignment
//
//	err = service.AddUserToRole(ctx, &user, "admin")
//	ok, err := service.IsUserInRole(ctx, &user, "admin")
//	err = service.RemoveUserFromRole(ctx, &user, "admin")
//
// The batch form is all-or-nothing: when the user already holds any of the
// requested roles, none is added. An empty batch is rejected.
//
// # Password Operations
//
//	ok, err := service.CheckPassword(ctx, &user, "Password@1")
//	err = service.ChangePassword(ctx, &user, "Password@1", "N3w-Password!")
//	err = service.ResetPassword(ctx, &user, "recovery answer", "N3w-Password!")
//	err = service.SignIn(ctx, &user, "N3w-Password!")
//
// # Storage Backends
//
// Two Repository implementations ship with the package:
//
//	// In-memory, for tests and quick starts
//	repo := membership.NewInMemoryRepository()
//
//	// PostgreSQL, for production
//	pool, _ := pgxpool.New(ctx, databaseURL)
//	repo := membership.NewPostgresRepository(pool)
//
// Custom backends implement the Repository and CredentialStore interfaces.
//
// # Concurrency
//
// The service itself holds no mutable state; concurrency safety is the
// store's contract. Existence pre-checks and the following write are not
// atomic across concurrent callers, so SQL backends must carry unique
// constraints on users.email and roles.name as the final arbiter.
package membership
