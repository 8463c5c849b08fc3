package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	apperrors "github.com/allisson/tokenkeeper/internal/errors"
)

// referenceService implements ReferenceService using SHA-256. Handles carry 256 bits
// of entropy, so a fast hash is sufficient.
type referenceService struct{}

// GenerateReference creates a random handle and its SHA-256 hex digest.
func (r *referenceService) GenerateReference() (string, string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate reference handle")
	}

	plainHandle := base64.RawURLEncoding.EncodeToString(randomBytes)
	return plainHandle, r.HashReference(plainHandle), nil
}

// HashReference returns the hex SHA-256 digest stored as the token reference id.
func (r *referenceService) HashReference(plainHandle string) string {
	hash := sha256.Sum256([]byte(plainHandle))
	return hex.EncodeToString(hash[:])
}

// NewReferenceService creates a new ReferenceService.
func NewReferenceService() ReferenceService {
	return &referenceService{}
}
