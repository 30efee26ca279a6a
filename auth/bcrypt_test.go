package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planora/planora/auth"
)

func TestHashPassword(t *testing.T) {
	hash := testPasswordHash(t)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, testPassword, hash)

	assert.NoError(t, auth.ComparePasswordAndHash(testPassword, hash))
}

func TestHashPassword_EmptyString(t *testing.T) {
	_, err := auth.HashPassword("")
	assert.ErrorIs(t, err, auth.ErrNoEmptyString)
}

func TestComparePasswordAndHash_Mismatch(t *testing.T) {
	hash := testPasswordHash(t)

	err := auth.ComparePasswordAndHash("wrong-password", hash)
	assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
}

func TestComparePasswordAndHash_BadHash(t *testing.T) {
	err := auth.ComparePasswordAndHash(testPassword, "not-a-bcrypt-hash")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
}
