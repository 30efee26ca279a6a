package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planora/planora/auth"
)

func newAuther(t *testing.T) (*auth.Auther, auth.RepositoryManager) {
	t.Helper()

	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	tokens := auth.NewTokenService(newTestConfig(), nil)

	return auth.NewAuthenticator(repo, tokens), repo
}

func TestAuther_Login(t *testing.T) {
	ctx := context.Background()
	auther, repo := newAuther(t)
	user := createUserFor(t, repo, "active@example.com", true)

	t.Run("active user with correct password", func(t *testing.T) {
		pair, err := auther.Login(ctx, user.Email, testPassword)
		require.NoError(t, err)
		require.NotNil(t, pair)

		claims, err := auther.SessionFromToken(pair.Access)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.UserID())
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := auther.Login(ctx, "ghost@example.com", testPassword)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestAuther_Login_WrongPassword(t *testing.T) {
	ctx := context.Background()
	auther, repo := newAuther(t)
	user := createUserFor(t, repo, "wrongpass@example.com", true)

	_, err := auther.Login(ctx, user.Email, "not-the-password")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestAuther_Login_InactiveAccount(t *testing.T) {
	ctx := context.Background()
	auther, repo := newAuther(t)
	user := createUserFor(t, repo, "pending@example.com", false)

	// Same rejection as a bad password, so callers cannot probe
	// activation state through the login endpoint.
	_, err := auther.Login(ctx, user.Email, testPassword)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestAuther_Refresh(t *testing.T) {
	ctx := context.Background()
	auther, repo := newAuther(t)
	user := createUserFor(t, repo, "refresh@example.com", true)

	pair, err := auther.Login(ctx, user.Email, testPassword)
	require.NoError(t, err)

	access, err := auther.Refresh(pair.Refresh)
	require.NoError(t, err)
	require.NotEmpty(t, access)

	claims, err := auther.SessionFromToken(access)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID())
}

func TestAuther_Refresh_RejectsAccessToken(t *testing.T) {
	ctx := context.Background()
	auther, repo := newAuther(t)
	user := createUserFor(t, repo, "crosstype@example.com", true)

	pair, err := auther.Login(ctx, user.Email, testPassword)
	require.NoError(t, err)

	_, err = auther.Refresh(pair.Access)
	assert.ErrorIs(t, err, auth.ErrTokenMalformed)
}

func TestAuther_ResolveUser(t *testing.T) {
	ctx := context.Background()
	auther, repo := newAuther(t)
	user := createUserFor(t, repo, "resolve@example.com", true)

	pair, err := auther.Login(ctx, user.Email, testPassword)
	require.NoError(t, err)

	claims, err := auther.SessionFromToken(pair.Access)
	require.NoError(t, err)

	resolved, err := auther.ResolveUser(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, user.Email, resolved.Email)
}

func createUserFor(t *testing.T, repo auth.RepositoryManager, email string, active bool) *auth.User {
	t.Helper()

	user := &auth.User{
		Email:        email,
		PasswordHash: testPasswordHash(t),
		IsActive:     active,
	}

	created, err := repo.Users().Create(context.Background(), user)
	require.NoError(t, err)
	return created
}
