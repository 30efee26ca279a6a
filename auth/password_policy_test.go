package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/planora/planora/auth"
)

func TestPasswordValidator_Validate(t *testing.T) {
	policy := auth.NewPasswordValidator()
	user := &auth.User{Email: "margarita@example.com"}

	t.Run("accepts a strong password", func(t *testing.T) {
		violations := policy.Validate("correct-horse-battery", user)
		assert.Empty(t, violations)
	})

	t.Run("rejects short passwords", func(t *testing.T) {
		violations := policy.Validate("shorty", user)
		assert.NotEmpty(t, violations)
	})

	t.Run("rejects entirely numeric passwords", func(t *testing.T) {
		violations := policy.Validate("8675309123", user)
		assert.NotEmpty(t, violations)
	})

	t.Run("rejects common passwords", func(t *testing.T) {
		violations := policy.Validate("password", user)
		assert.NotEmpty(t, violations)
	})

	t.Run("rejects passwords similar to the email", func(t *testing.T) {
		violations := policy.Validate("margarita99", user)
		assert.NotEmpty(t, violations)
	})

	t.Run("accepts strong passwords that merely share characters with the email", func(t *testing.T) {
		assert.Empty(t, policy.Validate("rotated-secret-phrase", &auth.User{Email: "rotate@example.com"}))
		assert.Empty(t, policy.Validate("alexithymia-42", &auth.User{Email: "alex@example.com"}))
	})

	t.Run("nil user skips the similarity rule", func(t *testing.T) {
		violations := policy.Validate("margarita99", nil)
		assert.Empty(t, violations)
	})

	t.Run("collects multiple violations", func(t *testing.T) {
		violations := policy.Validate("1234", user)
		assert.GreaterOrEqual(t, len(violations), 2)
	})
}

func TestPasswordValidator_ValidateForEmail(t *testing.T) {
	policy := auth.NewPasswordValidator()

	assert.Empty(t, policy.ValidateForEmail("correct-horse-battery", "pepe@example.com"))
	assert.NotEmpty(t, policy.ValidateForEmail("pepelepew99", "pepelepew@example.com"))
}
