package helper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("64f1b2c3d4e5f6a7b8c9d0e1"))
	assert.True(t, ValidIdentifier("000000000000000000000000"))

	assert.False(t, ValidIdentifier(""))
	assert.False(t, ValidIdentifier("64f1b2c3d4e5f6a7b8c9d0e"))    // 23 chars
	assert.False(t, ValidIdentifier("64f1b2c3d4e5f6a7b8c9d0e12"))  // 25 chars
	assert.False(t, ValidIdentifier("64F1B2C3D4E5F6A7B8C9D0E1"))   // uppercase
	assert.False(t, ValidIdentifier("64f1b2c3d4e5f6a7b8c9d0g1"))   // non-hex
	assert.False(t, ValidIdentifier("64f1b2c3-4e5f-a7b8-9d0e1"))   // separators
	assert.False(t, ValidIdentifier(" 64f1b2c3d4e5f6a7b8c9d0e1")) // padding
}

func TestGenerateTokenID(t *testing.T) {
	id := GenerateTokenID()
	assert.True(t, strings.HasPrefix(id, TokenIDPrefix))
	assert.Len(t, id, len(TokenIDPrefix)+32)

	assert.NotEqual(t, id, GenerateTokenID())
}

func TestGenerateDeliveryID(t *testing.T) {
	id := GenerateDeliveryID()
	assert.Len(t, id, 26) // ULID canonical encoding

	assert.NotEqual(t, id, GenerateDeliveryID())
}

func TestGet8BytesHash(t *testing.T) {
	hash := Get8BytesHash("bmk.sometoken")
	assert.Len(t, hash, 16) // 8 bytes hex encoded

	assert.Equal(t, hash, Get8BytesHash("bmk.sometoken"))
	assert.NotEqual(t, hash, Get8BytesHash("bmk.othertoken"))
}
