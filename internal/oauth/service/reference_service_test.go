package service

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceService_GenerateReference(t *testing.T) {
	service := NewReferenceService()

	plainHandle, referenceHash, err := service.GenerateReference()
	require.NoError(t, err)

	assert.Len(t, plainHandle, 43)
	assert.Len(t, referenceHash, 64)

	expected := sha256.Sum256([]byte(plainHandle))
	assert.Equal(t, hex.EncodeToString(expected[:]), referenceHash)
	assert.Equal(t, referenceHash, service.HashReference(plainHandle))

	other, _, err := service.GenerateReference()
	require.NoError(t, err)
	assert.NotEqual(t, plainHandle, other)
}
