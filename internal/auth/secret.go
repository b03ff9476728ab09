package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// The admin cache-flush token is never stored in plain text. The operator
// runs `yatube hash-token`, puts the printed bcrypt hash into the config as
// admin_token_hash and keeps the plain token for the Authorization header.
//
// Hash format:
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost
//	 version

const defaultCost = 12

// maxSecretLen is bcrypt's input limit; longer input is silently truncated
// by the library, so we refuse it.
const maxSecretLen = 72

// ErrSecretMismatch is returned by Verify when the secret does not match.
var ErrSecretMismatch = errors.New("auth: secret does not match")

// SecretHasher hashes and verifies shared secrets with bcrypt.
type SecretHasher struct {
	cost int
}

func NewSecretHasher() *SecretHasher {
	return &SecretHasher{cost: defaultCost}
}

// NewSecretHasherWithCost lets tests use bcrypt.MinCost.
func NewSecretHasherWithCost(cost int) *SecretHasher {
	return &SecretHasher{cost: cost}
}

// Hash returns the bcrypt hash of secret. The salt and cost are embedded in
// the result.
func (h *SecretHasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("auth: secret must not be empty")
	}
	if len(secret) > maxSecretLen {
		return "", fmt.Errorf("auth: secret must be %d bytes or fewer", maxSecretLen)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing secret: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when secret matches hash and ErrSecretMismatch when it
// does not. Any other error means hash is not a usable bcrypt hash.
//
// The comparison is constant time.
func (h *SecretHasher) Verify(hash, secret string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrSecretMismatch
		}
		return fmt.Errorf("auth: comparing secret hash: %w", err)
	}
	return nil
}
