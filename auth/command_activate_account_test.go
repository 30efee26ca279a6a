package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planora/planora/auth"
)

func TestActivateAccount(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	verifier := auth.NewVerifier([]byte(cfg.GetVerifierSecret()), cfg.GetVerifierTTL())
	handler := auth.NewActivateAccountHandler(repo, verifier)

	user := createUser(t, db, "pending@example.com", inactive())
	token := verifier.Issue(user)

	err := handler.Execute(ctx, auth.ActivateAccountMessage{
		EncodedID: auth.EncodeUID(user.ID),
		Token:     token,
	})
	require.NoError(t, err)

	activated, err := repo.Users().GetByID(ctx, user.ID.String())
	require.NoError(t, err)
	assert.True(t, activated.IsActive)

	t.Run("replay is rejected", func(t *testing.T) {
		err := handler.Execute(ctx, auth.ActivateAccountMessage{
			EncodedID: auth.EncodeUID(user.ID),
			Token:     token,
		})
		assert.ErrorIs(t, err, auth.ErrAccountAlreadyActive)
	})
}

func TestActivateAccount_BadUID(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	verifier := auth.NewVerifier([]byte(cfg.GetVerifierSecret()), cfg.GetVerifierTTL())
	handler := auth.NewActivateAccountHandler(repo, verifier)

	err := handler.Execute(ctx, auth.ActivateAccountMessage{
		EncodedID: "%%%not-base64%%%",
		Token:     "1abc-whatever",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidVerification)
}

func TestActivateAccount_UnknownUser(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	verifier := auth.NewVerifier([]byte(cfg.GetVerifierSecret()), cfg.GetVerifierTTL())
	handler := auth.NewActivateAccountHandler(repo, verifier)

	createUser(t, db, "exists@example.com")

	// Well formed uid for a row that does not exist gets the same
	// rejection as a garbage uid.
	unknown := auth.EncodeUID(uuid.New())
	err := handler.Execute(ctx, auth.ActivateAccountMessage{
		EncodedID: unknown,
		Token:     "1abc-whatever",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidVerification)
}

func TestActivateAccount_TamperedToken(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	verifier := auth.NewVerifier([]byte(cfg.GetVerifierSecret()), cfg.GetVerifierTTL())
	handler := auth.NewActivateAccountHandler(repo, verifier)

	user := createUser(t, db, "tamper@example.com", inactive())
	token := verifier.Issue(user)

	err := handler.Execute(ctx, auth.ActivateAccountMessage{
		EncodedID: auth.EncodeUID(user.ID),
		Token:     token + "x",
	})
	assert.ErrorIs(t, err, auth.ErrVerificationExpired)

	fetched, err := repo.Users().GetByID(ctx, user.ID.String())
	require.NoError(t, err)
	assert.False(t, fetched.IsActive)
}

func TestActivateAccount_ExpiredToken(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)

	issued := time.Now().Add(-48 * time.Hour)
	stale := auth.NewVerifier([]byte(cfg.GetVerifierSecret()), cfg.GetVerifierTTL()).
		WithClock(func() time.Time { return issued })

	fresh := auth.NewVerifier([]byte(cfg.GetVerifierSecret()), cfg.GetVerifierTTL())
	handler := auth.NewActivateAccountHandler(repo, fresh)

	user := createUser(t, db, "late@example.com", inactive())
	token := stale.Issue(user)

	err := handler.Execute(ctx, auth.ActivateAccountMessage{
		EncodedID: auth.EncodeUID(user.ID),
		Token:     token,
	})
	assert.ErrorIs(t, err, auth.ErrVerificationExpired)
}
