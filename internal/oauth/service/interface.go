// Package service provides the credential primitives of the OAuth core: client secret
// hashing and reference token handles.
package service

// SecretService defines operations for client secret generation and validation.
type SecretService interface {
	// GenerateSecret creates a new random secret and returns it with its Argon2id hash.
	// The plain secret is only shown once to the caller.
	GenerateSecret() (plainSecret string, hashedSecret string, err error)

	// HashSecret hashes a caller-supplied secret.
	HashSecret(plainSecret string) (hashedSecret string, err error)

	// CompareSecret reports whether plainSecret matches hashedSecret in constant time.
	CompareSecret(plainSecret string, hashedSecret string) bool
}

// ReferenceService generates and hashes opaque reference token handles.
// Only the hash is persisted, so a database leak does not expose usable handles.
type ReferenceService interface {
	GenerateReference() (plainHandle string, referenceHash string, err error)
	HashReference(plainHandle string) string
}
