package membership

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCredentialStore(t *testing.T) {
	ctx := context.Background()

	t.Run("create and check credential", func(t *testing.T) {
		store := NewInMemoryCredentialStore(&BcryptV1Hasher{})
		userID := uuid.New()

		require.NoError(t, store.CreateCredential(ctx, userID, "secret"))

		ok, err := store.CheckPassword(ctx, userID, "secret")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.CheckPassword(ctx, userID, "wrong")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("duplicate credential is rejected", func(t *testing.T) {
		store := NewInMemoryCredentialStore(&BcryptV1Hasher{})
		userID := uuid.New()

		require.NoError(t, store.CreateCredential(ctx, userID, "secret"))
		assert.Error(t, store.CreateCredential(ctx, userID, "other"))
	})

	t.Run("unknown user never matches", func(t *testing.T) {
		store := NewInMemoryCredentialStore(&BcryptV1Hasher{})

		ok, err := store.CheckPassword(ctx, uuid.New(), "secret")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("delete removes all state", func(t *testing.T) {
		store := NewInMemoryCredentialStore(&BcryptV1Hasher{})
		userID := uuid.New()

		require.NoError(t, store.CreateCredential(ctx, userID, "secret"))
		require.NoError(t, store.SignIn(ctx, userID, false))
		require.NoError(t, store.DeleteCredential(ctx, userID))

		ok, err := store.CheckPassword(ctx, userID, "secret")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.False(t, store.IsSignedIn(userID))
	})
}

func TestResetToken(t *testing.T) {
	ctx := context.Background()

	t.Run("token resets the password once", func(t *testing.T) {
		store := NewInMemoryCredentialStore(&BcryptV1Hasher{})
		userID := uuid.New()
		require.NoError(t, store.CreateCredential(ctx, userID, "old"))

		token, err := store.GeneratePasswordResetToken(ctx, userID)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		require.NoError(t, store.ResetPassword(ctx, userID, token, "new"))

		ok, err := store.CheckPassword(ctx, userID, "new")
		require.NoError(t, err)
		assert.True(t, ok)

		// the token is single use
		assert.Error(t, store.ResetPassword(ctx, userID, token, "again"))
	})

	t.Run("token is bound to its user", func(t *testing.T) {
		store := NewInMemoryCredentialStore(&BcryptV1Hasher{})
		owner := uuid.New()
		other := uuid.New()
		require.NoError(t, store.CreateCredential(ctx, owner, "old"))
		require.NoError(t, store.CreateCredential(ctx, other, "old"))

		token, err := store.GeneratePasswordResetToken(ctx, owner)
		require.NoError(t, err)

		assert.Error(t, store.ResetPassword(ctx, other, token, "new"))
	})

	t.Run("no token for unknown user", func(t *testing.T) {
		store := NewInMemoryCredentialStore(&BcryptV1Hasher{})
		_, err := store.GeneratePasswordResetToken(ctx, uuid.New())
		assert.Error(t, err)
	})
}

func TestPasswordSignInLockout(t *testing.T) {
	ctx := context.Background()

	t.Run("locks out after repeated failures", func(t *testing.T) {
		store := NewInMemoryCredentialStore(&BcryptV1Hasher{})
		store.MaxFailedAttempts = 3
		userID := uuid.New()
		require.NoError(t, store.CreateCredential(ctx, userID, "secret"))

		for i := 0; i < 3; i++ {
			ok, err := store.PasswordSignIn(ctx, userID, "wrong", false, true)
			require.NoError(t, err)
			assert.False(t, ok)
		}

		allowed, err := store.CanSignIn(ctx, userID)
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("failures without lockoutOnFailure never lock", func(t *testing.T) {
		store := NewInMemoryCredentialStore(&BcryptV1Hasher{})
		store.MaxFailedAttempts = 2
		userID := uuid.New()
		require.NoError(t, store.CreateCredential(ctx, userID, "secret"))

		for i := 0; i < 5; i++ {
			ok, err := store.PasswordSignIn(ctx, userID, "wrong", false, false)
			require.NoError(t, err)
			assert.False(t, ok)
		}

		allowed, err := store.CanSignIn(ctx, userID)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("success resets the failure count", func(t *testing.T) {
		store := NewInMemoryCredentialStore(&BcryptV1Hasher{})
		store.MaxFailedAttempts = 2
		userID := uuid.New()
		require.NoError(t, store.CreateCredential(ctx, userID, "secret"))

		ok, err := store.PasswordSignIn(ctx, userID, "wrong", false, true)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = store.PasswordSignIn(ctx, userID, "secret", true, true)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, store.IsSignedIn(userID))

		ok, err = store.PasswordSignIn(ctx, userID, "wrong", false, true)
		require.NoError(t, err)
		assert.False(t, ok)

		allowed, err := store.CanSignIn(ctx, userID)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestAddExternalLogin(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryCredentialStore(&BcryptV1Hasher{})
	userID := uuid.New()

	login := ExternalLogin{Provider: "google", ProviderKey: "abc"}
	require.NoError(t, store.AddExternalLogin(ctx, userID, login))

	// linking the same login twice is a no-op
	require.NoError(t, store.AddExternalLogin(ctx, userID, login))
	assert.Len(t, store.externalLogins[userID], 1)
}
