package auth_test

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planora/planora/auth"
)

func newRegisterHandler(t *testing.T) (*auth.RegisterUserHandler, auth.RepositoryManager, *auth.MemoryMailer, *auth.Verifier) {
	t.Helper()

	cfg := newTestConfig()
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	verifier := auth.NewVerifier([]byte(cfg.GetVerifierSecret()), cfg.GetVerifierTTL())
	mailer := auth.NewMemoryMailer()

	return auth.NewRegisterUserHandler(repo, verifier, mailer, cfg), repo, mailer, verifier
}

func TestRegisterUser(t *testing.T) {
	ctx := context.Background()
	handler, repo, mailer, verifier := newRegisterHandler(t)

	resp, err := handler.Execute(ctx, auth.RegisterUserMessage{
		Email:    "fresh@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Contains(t, resp.Msg, "check your email")

	user, err := repo.Users().GetByEmail(ctx, "fresh@example.com")
	require.NoError(t, err)
	assert.False(t, user.IsActive)
	assert.NotEqual(t, testPassword, user.PasswordHash)
	assert.NoError(t, auth.ComparePasswordAndHash(testPassword, user.PasswordHash))

	messages := mailer.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, []string{"fresh@example.com"}, messages[0].To)
	assert.Contains(t, messages[0].Body, auth.EncodeUID(user.ID))

	// The mailed link must carry a token that verifies against the
	// freshly stored account state.
	_, token := extractLink(t, messages[0].Body, "/api/auth/activate/")
	assert.True(t, verifier.Verify(user, token))
}

func TestRegisterUser_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	handler, _, mailer, _ := newRegisterHandler(t)

	_, err := handler.Execute(ctx, auth.RegisterUserMessage{
		Email:    "taken@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)

	_, err = handler.Execute(ctx, auth.RegisterUserMessage{
		Email:    "taken@example.com",
		Password: "another-fine-password",
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))

	fields, ok := richErr.Metadata["fields"].(map[string][]string)
	require.True(t, ok)
	assert.Contains(t, fields, "email")

	assert.Len(t, mailer.Messages(), 1)
}

func TestRegisterUser_WeakPassword(t *testing.T) {
	ctx := context.Background()
	handler, repo, mailer, _ := newRegisterHandler(t)

	_, err := handler.Execute(ctx, auth.RegisterUserMessage{
		Email:    "weak@example.com",
		Password: "1234",
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))

	fields, ok := richErr.Metadata["fields"].(map[string][]string)
	require.True(t, ok)
	assert.NotEmpty(t, fields["password"])

	_, err = repo.Users().GetByEmail(ctx, "weak@example.com")
	assert.Error(t, err)
	assert.Empty(t, mailer.Messages())
}

func TestRegisterUser_SimilarToEmail(t *testing.T) {
	ctx := context.Background()
	handler, _, _, _ := newRegisterHandler(t)

	_, err := handler.Execute(ctx, auth.RegisterUserMessage{
		Email:    "sebastian@example.com",
		Password: "sebastian2025",
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Contains(t, richErr.Metadata["fields"].(map[string][]string), "password")
}
