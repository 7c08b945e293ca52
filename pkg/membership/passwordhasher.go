package membership

import "fmt"

// HashVersion represents the version of the hashing algorithm
type HashVersion int

const (
	// HashV1 is the original bcrypt implementation
	HashV1 HashVersion = 1
	// HashV2 adds a salt prefix and uses a higher cost
	HashV2 HashVersion = 2

	// CurrentHashVersion is the version used for new hashes
	CurrentHashVersion = HashV2
)

// PasswordHasher defines the interface for one-way hashing of secrets.
// The service uses it for password-recovery answers; credential stores may
// reuse it for passwords. Implementations are stateless.
type PasswordHasher interface {
	// Hash hashes a plaintext secret
	Hash(secret string) (string, error)

	// Verify checks if the provided secret matches the stored hash
	Verify(secret, hashedSecret string) (bool, error)
}

// NewHasher returns the hasher for the given version
func NewHasher(version HashVersion) (PasswordHasher, error) {
	switch version {
	case HashV1:
		return &BcryptV1Hasher{}, nil
	case HashV2:
		return &BcryptV2Hasher{}, nil
	default:
		return nil, fmt.Errorf("unsupported hash version: %d", version)
	}
}

// DefaultHasher returns the hasher for CurrentHashVersion
func DefaultHasher() PasswordHasher {
	hasher, _ := NewHasher(CurrentHashVersion)
	return hasher
}
