package membership

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// BcryptV1Hasher implements PasswordHasher using plain bcrypt
type BcryptV1Hasher struct{}

// Hash implements PasswordHasher.Hash
func (h *BcryptV1Hasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret cannot be empty")
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hashedBytes), nil
}

// Verify implements PasswordHasher.Verify
func (h *BcryptV1Hasher) Verify(secret, hashedSecret string) (bool, error) {
	if secret == "" || hashedSecret == "" {
		return false, errors.New("secret and hashed secret cannot be empty")
	}

	err := bcrypt.CompareHashAndPassword([]byte(hashedSecret), []byte(secret))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil // Secret doesn't match, but not an error
		}
		return false, err
	}

	return true, nil
}

// BcryptV2Hasher implements PasswordHasher using bcrypt with a salt prefix
// and a higher cost. Stored format: salt:hash
type BcryptV2Hasher struct{}

// Hash implements PasswordHasher.Hash
func (h *BcryptV2Hasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret cannot be empty")
	}

	salt := generateRandomString(16)
	saltedSecret := salt + secret
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(saltedSecret), bcrypt.DefaultCost+2)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s:%s", salt, string(hashedBytes)), nil
}

// Verify implements PasswordHasher.Verify
func (h *BcryptV2Hasher) Verify(secret, hashedSecret string) (bool, error) {
	if secret == "" || hashedSecret == "" {
		return false, errors.New("secret and hashed secret cannot be empty")
	}

	parts := strings.SplitN(hashedSecret, ":", 2)
	if len(parts) != 2 {
		return false, errors.New("invalid hash format")
	}

	salt := parts[0]
	hash := parts[1]

	saltedSecret := salt + secret
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(saltedSecret))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// VerifyHash detects the hash version from the stored format and verifies
// with the matching hasher. Hashes carrying a salt prefix are V2.
func VerifyHash(secret, hashedSecret string) (bool, error) {
	if strings.Contains(hashedSecret, ":") {
		return (&BcryptV2Hasher{}).Verify(secret, hashedSecret)
	}
	return (&BcryptV1Hasher{}).Verify(secret, hashedSecret)
}

func generateRandomString(length int) string {
	bytes := make([]byte, (length+1)/2)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return hex.EncodeToString(bytes)[:length]
}
