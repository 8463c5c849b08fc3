// Package repository holds the column codecs shared by the PostgreSQL and MySQL
// OAuth store implementations.
package repository

import (
	"encoding/json"

	apperrors "github.com/allisson/tokenkeeper/internal/errors"
)

// EncodeStrings serializes an ordered string list for a JSON column. Nil becomes "[]".
func EncodeStrings(values []string) (string, error) {
	if values == nil {
		return "[]", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to marshal string list")
	}
	return string(data), nil
}

// DecodeStrings parses a JSON column back into a string list, preserving order.
func DecodeStrings(data []byte) ([]string, error) {
	values := []string{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal string list")
	}
	return values, nil
}

// EncodeProperties serializes free-form properties. Nil becomes "{}".
func EncodeProperties(properties map[string]any) (string, error) {
	if properties == nil {
		return "{}", nil
	}
	data, err := json.Marshal(properties)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to marshal properties")
	}
	return string(data), nil
}

// DecodeProperties parses a JSON properties column.
func DecodeProperties(data []byte) (map[string]any, error) {
	properties := map[string]any{}
	if len(data) == 0 {
		return properties, nil
	}
	if err := json.Unmarshal(data, &properties); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal properties")
	}
	return properties, nil
}
