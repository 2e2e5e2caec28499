package utils_test

import (
	"testing"

	"regtechhorizon/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomToken_UniqueAndURLSafe(t *testing.T) {
	first, err := utils.GenerateRandomToken(48)
	require.NoError(t, err)
	second, err := utils.GenerateRandomToken(48)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotContains(t, first, "+")
	assert.NotContains(t, first, "/")
	assert.NotContains(t, first, "=")
}

func TestHashToken_DeterministicAndOneWay(t *testing.T) {
	token := "some-refresh-token"
	hash := utils.HashToken(token)

	assert.Equal(t, hash, utils.HashToken(token))
	assert.NotEqual(t, hash, utils.HashToken(token+"x"))
	assert.NotEqual(t, token, hash)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", utils.NormalizeEmail("  A@X.COM  "))
	assert.Equal(t, "a@x.com", utils.NormalizeEmail("a@x.com"))
}
