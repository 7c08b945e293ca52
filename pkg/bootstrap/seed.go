package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-membership/pkg/membership"
)

// SeedUser describes one user from the initial-data configuration
type SeedUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// SeedConfig contains the initial roles and users to ensure at startup
type SeedConfig struct {
	Roles []string
	Users []SeedUser

	Service    *membership.MembershipService
	Repository membership.Repository
}

// SeedResult reports what the seeding pass created
type SeedResult struct {
	RolesCreated int
	UsersCreated int
	Skipped      bool // true when users already existed
}

// ConfigError marks malformed seed configuration. It is fatal to startup
// seeding and never retried, unlike store faults which get one retry after
// a forced schema migration.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("seed configuration error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("seed configuration error: %s", e.Msg)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is a seed configuration fault
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Seed ensures the configured roles and users exist. It skips entirely when
// any user is already present. A store fault is retried exactly once after
// asking the repository to ensure its schema; configuration faults are not
// retried.
func Seed(ctx context.Context, cfg SeedConfig) (*SeedResult, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	result, err := seedOnce(ctx, cfg)
	if err == nil || IsConfigError(err) {
		return result, err
	}

	ensurer, ok := cfg.Repository.(membership.SchemaEnsurer)
	if !ok {
		return nil, err
	}

	slog.Warn("Seeding failed, forcing schema migration and retrying once", "err", err)
	if schemaErr := ensurer.EnsureSchema(ctx); schemaErr != nil {
		return nil, fmt.Errorf("failed to ensure schema after seed failure: %w", schemaErr)
	}

	return seedOnce(ctx, cfg)
}

func validateConfig(cfg SeedConfig) error {
	if cfg.Service == nil {
		return &ConfigError{Msg: "membership service is required"}
	}
	if cfg.Repository == nil {
		return &ConfigError{Msg: "repository is required"}
	}

	for _, name := range cfg.Roles {
		if name == "" {
			return &ConfigError{Msg: "role name cannot be empty"}
		}
	}

	for _, user := range cfg.Users {
		if !membership.IsValidEmail(user.Email) {
			return &ConfigError{Msg: fmt.Sprintf("invalid seed user email %q", user.Email)}
		}
		if user.Role != "" && !containsRole(cfg.Roles, user.Role) {
			return &ConfigError{Msg: fmt.Sprintf("seed user %q references unknown role %q", user.Email, user.Role)}
		}
	}

	return nil
}

func seedOnce(ctx context.Context, cfg SeedConfig) (*SeedResult, error) {
	exists, err := cfg.Repository.AnyUserExists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing users: %w", err)
	}
	if exists {
		slog.Info("Users already exist - skipping seed")
		return &SeedResult{Skipped: true}, nil
	}

	result := &SeedResult{}

	for _, name := range cfg.Roles {
		err := cfg.Service.AddRole(ctx, name)
		if errors.Is(err, membership.ErrRoleExists) {
			continue
		}
		if err != nil {
			if membership.IsRejection(err) {
				return nil, &ConfigError{Msg: fmt.Sprintf("cannot seed role %q", name), Err: err}
			}
			return nil, fmt.Errorf("failed to seed role %q: %w", name, err)
		}
		result.RolesCreated++
	}

	for _, seedUser := range cfg.Users {
		params := membership.AddUserParams{
			Email:     seedUser.Email,
			Password:  seedUser.Password,
			FirstName: seedUser.FirstName,
			LastName:  seedUser.LastName,
		}
		if seedUser.Role != "" {
			role := seedUser.Role
			params.Role = &role
		}

		_, err := cfg.Service.AddUser(ctx, params)
		if errors.Is(err, membership.ErrEmailExists) {
			continue
		}
		if err != nil {
			if membership.IsRejection(err) {
				return nil, &ConfigError{Msg: fmt.Sprintf("cannot seed user %q", seedUser.Email), Err: err}
			}
			return nil, fmt.Errorf("failed to seed user %q: %w", seedUser.Email, err)
		}
		result.UsersCreated++
	}

	slog.Info("Seed completed", "roles_created", result.RolesCreated, "users_created", result.UsersCreated)
	return result, nil
}

func containsRole(roles []string, name string) bool {
	for _, role := range roles {
		if role == name {
			return true
		}
	}
	return false
}
