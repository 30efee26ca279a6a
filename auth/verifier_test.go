package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planora/planora/auth"
)

func testUser() *auth.User {
	return &auth.User{
		ID:           uuid.New(),
		Email:        "pepe@example.com",
		PasswordHash: "$2a$10$fakehashfakehashfakehash",
		IsActive:     false,
	}
}

func TestVerifier_IssueAndVerify(t *testing.T) {
	v := auth.NewVerifier([]byte(testVerifierSecret), 24*time.Hour)
	user := testUser()

	token := v.Issue(user)
	require.NotEmpty(t, token)
	assert.Contains(t, token, "-")

	assert.True(t, v.Verify(user, token))
}

func TestVerifier_RejectsMalformedTokens(t *testing.T) {
	v := auth.NewVerifier([]byte(testVerifierSecret), 24*time.Hour)
	user := testUser()

	for _, token := range []string{
		"",
		"no-separator-at-all-here",
		"notbase36!-abcdef",
		"-",
		"1z2x3-",
	} {
		assert.False(t, v.Verify(user, token), "token %q should not verify", token)
	}
}

func TestVerifier_RejectsTamperedSignature(t *testing.T) {
	v := auth.NewVerifier([]byte(testVerifierSecret), 24*time.Hour)
	user := testUser()

	token := v.Issue(user)
	ts, sig, ok := strings.Cut(token, "-")
	require.True(t, ok)

	flipped := "0"
	if sig[0] == '0' {
		flipped = "1"
	}
	tampered := ts + "-" + flipped + sig[1:]

	assert.False(t, v.Verify(user, tampered))
}

func TestVerifier_InvalidatedByStateChange(t *testing.T) {
	v := auth.NewVerifier([]byte(testVerifierSecret), 24*time.Hour)

	t.Run("password hash change", func(t *testing.T) {
		user := testUser()
		token := v.Issue(user)

		user.PasswordHash = "$2a$10$differenthash"
		assert.False(t, v.Verify(user, token))
	})

	t.Run("activation flag flip", func(t *testing.T) {
		user := testUser()
		token := v.Issue(user)

		user.IsActive = true
		assert.False(t, v.Verify(user, token))
	})
}

func TestVerifier_DifferentSecretsDisagree(t *testing.T) {
	user := testUser()

	a := auth.NewVerifier([]byte("secret-a"), 24*time.Hour)
	b := auth.NewVerifier([]byte("secret-b"), 24*time.Hour)

	token := a.Issue(user)
	assert.True(t, a.Verify(user, token))
	assert.False(t, b.Verify(user, token))
}

func TestVerifier_Expiry(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	current := issued
	clock := func() time.Time { return current }

	v := auth.NewVerifier([]byte(testVerifierSecret), 24*time.Hour).WithClock(clock)
	user := testUser()

	token := v.Issue(user)
	require.True(t, v.Verify(user, token))

	current = issued.Add(23 * time.Hour)
	assert.True(t, v.Verify(user, token))

	current = issued.Add(25 * time.Hour)
	assert.False(t, v.Verify(user, token))
}

func TestEncodeDecodeUID(t *testing.T) {
	id := uuid.New()

	encoded := auth.EncodeUID(id)
	require.NotEmpty(t, encoded)
	assert.NotContains(t, encoded, "=")

	decoded, err := auth.DecodeUID(encoded)
	require.NoError(t, err)
	assert.Equal(t, id, decoded)
}

func TestDecodeUID_Garbage(t *testing.T) {
	for _, encoded := range []string{
		"",
		"%%%%",
		"bm90LWEtdXVpZA", // valid base64, not a uuid
	} {
		_, err := auth.DecodeUID(encoded)
		assert.Error(t, err, "encoded %q should not decode", encoded)
	}
}
