package membership

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryCredentialStore implements CredentialStore using in-memory storage
// and the injected hasher. Intended for tests and quick starts.
type InMemoryCredentialStore struct {
	mu             sync.RWMutex
	hasher         PasswordHasher
	credentials    map[uuid.UUID]string // userID -> password hash
	resetTokens    map[string]uuid.UUID // token -> userID
	failedAttempts map[uuid.UUID]int
	lockedOut      map[uuid.UUID]bool
	sessions       map[uuid.UUID]session
	externalLogins map[uuid.UUID][]ExternalLogin

	// MaxFailedAttempts is the lockout threshold when PasswordSignIn is
	// called with lockoutOnFailure
	MaxFailedAttempts int
}

type session struct {
	persistent bool
	startedAt  time.Time
}

// NewInMemoryCredentialStore creates a new in-memory credential store
func NewInMemoryCredentialStore(hasher PasswordHasher) *InMemoryCredentialStore {
	if hasher == nil {
		hasher = DefaultHasher()
	}
	return &InMemoryCredentialStore{
		hasher:            hasher,
		credentials:       make(map[uuid.UUID]string),
		resetTokens:       make(map[string]uuid.UUID),
		failedAttempts:    make(map[uuid.UUID]int),
		lockedOut:         make(map[uuid.UUID]bool),
		sessions:          make(map[uuid.UUID]session),
		externalLogins:    make(map[uuid.UUID][]ExternalLogin),
		MaxFailedAttempts: 5,
	}
}

// CreateCredential stores the initial password hash for a user
func (s *InMemoryCredentialStore) CreateCredential(ctx context.Context, userID uuid.UUID, password string) error {
	if password == "" {
		return errors.New("password cannot be empty")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.credentials[userID]; ok {
		return errors.New("credential already exists")
	}
	s.credentials[userID] = hash
	return nil
}

// DeleteCredential removes all credential state for a user
func (s *InMemoryCredentialStore) DeleteCredential(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.credentials, userID)
	delete(s.failedAttempts, userID)
	delete(s.lockedOut, userID)
	delete(s.sessions, userID)
	delete(s.externalLogins, userID)
	for token, id := range s.resetTokens {
		if id == userID {
			delete(s.resetTokens, token)
		}
	}
	return nil
}

// CheckPassword reports whether password matches the stored hash
func (s *InMemoryCredentialStore) CheckPassword(ctx context.Context, userID uuid.UUID, password string) (bool, error) {
	s.mu.RLock()
	hash, ok := s.credentials[userID]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	return s.hasher.Verify(password, hash)
}

// ChangePassword verifies oldPassword and stores newPassword
func (s *InMemoryCredentialStore) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) (bool, error) {
	match, err := s.CheckPassword(ctx, userID, oldPassword)
	if err != nil {
		return false, err
	}
	if !match {
		return false, nil
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[userID] = hash
	return true, nil
}

// GeneratePasswordResetToken issues a single-use reset token
func (s *InMemoryCredentialStore) GeneratePasswordResetToken(ctx context.Context, userID uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.credentials[userID]; !ok {
		return "", errors.New("no credential for user")
	}

	token := generateRandomString(32)
	s.resetTokens[token] = userID
	return token, nil
}

// ResetPassword consumes token and stores newPassword
func (s *InMemoryCredentialStore) ResetPassword(ctx context.Context, userID uuid.UUID, token, newPassword string) error {
	if newPassword == "" {
		return errors.New("password cannot be empty")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.resetTokens[token]
	if !ok || owner != userID {
		return errors.New("invalid reset token")
	}
	delete(s.resetTokens, token)

	s.credentials[userID] = hash
	s.failedAttempts[userID] = 0
	s.lockedOut[userID] = false
	return nil
}

// CanSignIn reports whether sign-in is allowed for the user
func (s *InMemoryCredentialStore) CanSignIn(ctx context.Context, userID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.credentials[userID]; !ok {
		return false, nil
	}
	return !s.lockedOut[userID], nil
}

// SignIn establishes a session without a password check
func (s *InMemoryCredentialStore) SignIn(ctx context.Context, userID uuid.UUID, persistent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.credentials[userID]; !ok {
		return errors.New("no credential for user")
	}
	s.sessions[userID] = session{persistent: persistent, startedAt: time.Now()}
	return nil
}

// PasswordSignIn verifies password and establishes a session
func (s *InMemoryCredentialStore) PasswordSignIn(ctx context.Context, userID uuid.UUID, password string, persistent, lockoutOnFailure bool) (bool, error) {
	match, err := s.CheckPassword(ctx, userID, password)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !match {
		if lockoutOnFailure {
			s.failedAttempts[userID]++
			if s.failedAttempts[userID] >= s.MaxFailedAttempts {
				s.lockedOut[userID] = true
			}
		}
		return false, nil
	}

	s.failedAttempts[userID] = 0
	s.sessions[userID] = session{persistent: persistent, startedAt: time.Now()}
	return true, nil
}

// AddExternalLogin links an external provider login to the user
func (s *InMemoryCredentialStore) AddExternalLogin(ctx context.Context, userID uuid.UUID, login ExternalLogin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.externalLogins[userID] {
		if existing == login {
			return nil
		}
	}
	s.externalLogins[userID] = append(s.externalLogins[userID], login)
	return nil
}

// IsSignedIn reports whether the user has an active session
func (s *InMemoryCredentialStore) IsSignedIn(userID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.sessions[userID]
	return ok
}

// SetLockedOut marks a user as locked out (for testing lockout behavior)
func (s *InMemoryCredentialStore) SetLockedOut(userID uuid.UUID, locked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockedOut[userID] = locked
}
