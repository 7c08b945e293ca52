package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-membership/pkg/membership"
)

func setupSeedTest(t *testing.T) (*membership.MembershipService, *membership.InMemoryRepository) {
	repo := membership.NewInMemoryRepository()
	creds := membership.NewInMemoryCredentialStore(&membership.BcryptV1Hasher{})
	service := membership.NewMembershipService(repo, creds, &membership.BcryptV1Hasher{})
	return service, repo
}

func TestSeed(t *testing.T) {
	ctx := context.Background()

	t.Run("creates roles and users on an empty store", func(t *testing.T) {
		service, repo := setupSeedTest(t)

		result, err := Seed(ctx, SeedConfig{
			Roles: []string{"admin", "user"},
			Users: []SeedUser{
				{Email: "admin@example.com", Password: "Admin1!", FirstName: "Admin", Role: "admin"},
			},
			Service:    service,
			Repository: repo,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, result.RolesCreated)
		assert.Equal(t, 1, result.UsersCreated)
		assert.False(t, result.Skipped)

		admin, err := service.GetUser(ctx, "admin@example.com")
		require.NoError(t, err)
		require.NotNil(t, admin)

		inRole, err := service.IsUserInRole(ctx, admin, "admin")
		require.NoError(t, err)
		assert.True(t, inRole)
	})

	t.Run("skips entirely when users already exist", func(t *testing.T) {
		service, repo := setupSeedTest(t)

		_, err := service.AddUser(ctx, membership.AddUserParams{
			Email:    "existing@example.com",
			Password: "Pass1!",
		})
		require.NoError(t, err)

		result, err := Seed(ctx, SeedConfig{
			Roles:      []string{"admin"},
			Service:    service,
			Repository: repo,
		})
		require.NoError(t, err)
		assert.True(t, result.Skipped)

		roles, err := service.GetAllRoles(ctx)
		require.NoError(t, err)
		assert.Empty(t, roles)
	})

	t.Run("existing roles are not an error", func(t *testing.T) {
		service, repo := setupSeedTest(t)
		require.NoError(t, service.AddRole(ctx, "admin"))

		result, err := Seed(ctx, SeedConfig{
			Roles:      []string{"admin", "user"},
			Service:    service,
			Repository: repo,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, result.RolesCreated)
	})
}

func TestSeedConfigValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("missing dependencies", func(t *testing.T) {
		service, repo := setupSeedTest(t)

		_, err := Seed(ctx, SeedConfig{Repository: repo})
		assert.True(t, IsConfigError(err))

		_, err = Seed(ctx, SeedConfig{Service: service})
		assert.True(t, IsConfigError(err))
	})

	t.Run("empty role name", func(t *testing.T) {
		service, repo := setupSeedTest(t)

		_, err := Seed(ctx, SeedConfig{
			Roles:      []string{"admin", ""},
			Service:    service,
			Repository: repo,
		})
		assert.True(t, IsConfigError(err))
	})

	t.Run("invalid user email", func(t *testing.T) {
		service, repo := setupSeedTest(t)

		_, err := Seed(ctx, SeedConfig{
			Roles:      []string{"admin"},
			Users:      []SeedUser{{Email: "not-an-email"}},
			Service:    service,
			Repository: repo,
		})
		assert.True(t, IsConfigError(err))
	})

	t.Run("user referencing unknown role", func(t *testing.T) {
		service, repo := setupSeedTest(t)

		_, err := Seed(ctx, SeedConfig{
			Roles:      []string{"admin"},
			Users:      []SeedUser{{Email: "user@example.com", Role: "missing"}},
			Service:    service,
			Repository: repo,
		})
		assert.True(t, IsConfigError(err))

		users, err := service.GetAllUsers(ctx)
		require.NoError(t, err)
		assert.Empty(t, users)
	})
}

// flakyRepository fails every call until EnsureSchema runs, mimicking a store
// whose tables have not been created yet.
type flakyRepository struct {
	*membership.InMemoryRepository
	migrated bool
}

func (r *flakyRepository) AnyUserExists(ctx context.Context) (bool, error) {
	if !r.migrated {
		return false, errors.New(`relation "users" does not exist`)
	}
	return r.InMemoryRepository.AnyUserExists(ctx)
}

func (r *flakyRepository) EnsureSchema(ctx context.Context) error {
	r.migrated = true
	return nil
}

func TestSeedRetriesAfterMigration(t *testing.T) {
	ctx := context.Background()

	repo := &flakyRepository{InMemoryRepository: membership.NewInMemoryRepository()}
	creds := membership.NewInMemoryCredentialStore(&membership.BcryptV1Hasher{})
	service := membership.NewMembershipService(repo, creds, &membership.BcryptV1Hasher{})

	result, err := Seed(ctx, SeedConfig{
		Roles:      []string{"admin"},
		Service:    service,
		Repository: repo,
	})
	require.NoError(t, err)
	assert.True(t, repo.migrated)
	assert.Equal(t, 1, result.RolesCreated)
}

func TestSeedDoesNotRetryConfigErrors(t *testing.T) {
	ctx := context.Background()

	repo := &flakyRepository{InMemoryRepository: membership.NewInMemoryRepository()}
	creds := membership.NewInMemoryCredentialStore(&membership.BcryptV1Hasher{})
	service := membership.NewMembershipService(repo, creds, &membership.BcryptV1Hasher{})

	_, err := Seed(ctx, SeedConfig{
		Roles:      []string{""},
		Service:    service,
		Repository: repo,
	})
	assert.True(t, IsConfigError(err))
	assert.False(t, repo.migrated)
}
