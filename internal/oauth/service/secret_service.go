package service

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/allisson/go-pwdhash"

	apperrors "github.com/allisson/tokenkeeper/internal/errors"
)

// secretLength is the number of random bytes in a generated client secret.
const secretLength = 32

// secretService implements SecretService using Argon2id for password hashing.
type secretService struct {
	hasher *pwdhash.PasswordHasher
}

// GenerateSecret creates a new random client secret, base64url encoded, and its hash.
func (s *secretService) GenerateSecret() (string, string, error) {
	randomBytes := make([]byte, secretLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate random secret")
	}

	plainSecret := base64.RawURLEncoding.EncodeToString(randomBytes)

	hashedSecret, err := s.HashSecret(plainSecret)
	if err != nil {
		return "", "", err
	}

	return plainSecret, hashedSecret, nil
}

// HashSecret hashes a plain text secret using Argon2id.
func (s *secretService) HashSecret(plainSecret string) (string, error) {
	hashedSecret, err := s.hasher.Hash([]byte(plainSecret))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash secret")
	}
	return hashedSecret, nil
}

// CompareSecret verifies a plain secret against its hash. Malformed hashes never match.
func (s *secretService) CompareSecret(plainSecret string, hashedSecret string) bool {
	if hashedSecret == "" {
		return false
	}
	ok, err := s.hasher.Verify([]byte(plainSecret), hashedSecret)
	if err != nil {
		return false
	}
	return ok
}

// NewSecretService creates a SecretService with the Moderate Argon2id policy.
func NewSecretService() SecretService {
	hasher, err := pwdhash.New(
		pwdhash.WithPolicy(pwdhash.PolicyModerate),
	)
	if err != nil {
		// This should never happen with valid policy
		panic(err)
	}

	return &secretService{
		hasher: hasher,
	}
}
