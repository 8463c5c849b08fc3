package blacklist

import "time"

const (
	tokenKeyPrefix   = "token:blacklist:"
	subjectKeyPrefix = "user:blacklist:"

	// tokenMarkerValue is the payload of a token entry; only presence matters.
	tokenMarkerValue = "revoked"
)

// Marker is a blacklist entry. It is either a TokenMarker or a SubjectMarker.
type Marker interface {
	Key() string
	Value() string
}

// TokenMarker blacklists a single token id.
type TokenMarker struct {
	TokenID string
}

// Key returns the cache key of the marker.
func (m TokenMarker) Key() string {
	return tokenKeyPrefix + m.TokenID
}

// Value returns the presence payload.
func (m TokenMarker) Value() string {
	return tokenMarkerValue
}

// SubjectMarker blacklists every token of a subject issued at or before RevokedAt.
type SubjectMarker struct {
	Subject   string
	RevokedAt time.Time
}

// Key returns the cache key of the marker.
func (m SubjectMarker) Key() string {
	return subjectKeyPrefix + m.Subject
}

// Value returns the revocation instant in RFC3339 with nanoseconds, UTC.
func (m SubjectMarker) Value() string {
	return m.RevokedAt.UTC().Format(time.RFC3339Nano)
}

// Revokes reports whether a token issued at issuedAt is covered by the marker.
// Tokens issued after the revocation instant stay valid.
func (m SubjectMarker) Revokes(issuedAt time.Time) bool {
	return !issuedAt.After(m.RevokedAt)
}

func parseSubjectMarker(subject, value string) (*SubjectMarker, error) {
	revokedAt, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil, err
	}
	return &SubjectMarker{Subject: subject, RevokedAt: revokedAt}, nil
}
