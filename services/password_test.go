package services

import (
	"strings"
	"testing"

	"university-portal-api/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurePasswordGeneratorMeetsComplexity(t *testing.T) {
	gen := NewSecurePasswordGenerator()
	for i := 0; i < 100; i++ {
		password, err := gen.Generate()
		require.NoError(t, err)
		assert.Len(t, password, 16)

		ok, msg := utils.ValidatePassword(password)
		assert.True(t, ok, "%q: %s", password, msg)
		assert.True(t, strings.ContainsAny(password, passwordSymbols))
		assert.True(t, strings.ContainsAny(password, passwordDigits))
	}
}

func TestSecurePasswordGeneratorEnforcesMinimumLength(t *testing.T) {
	password, err := (&SecurePasswordGenerator{Length: 3}).Generate()
	require.NoError(t, err)
	assert.Len(t, password, 8)
}

func TestBcryptHasherRoundTrip(t *testing.T) {
	hash, err := BcryptHasher{}.Hash("Secret#123")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret#123", hash)
	assert.True(t, utils.CheckPasswordHash("Secret#123", hash))
	assert.False(t, utils.CheckPasswordHash("secret#123", hash))
}
