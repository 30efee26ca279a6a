package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const changeConfirmation = "Password changed successfully."

type ChangePasswordMessage struct {
	UserID      uuid.UUID `json:"-"`
	OldPassword string    `json:"old_password"`
	NewPassword string    `json:"new_password"`
}

func (e ChangePasswordMessage) Type() string { return "user.change_password" }

// ChangePasswordHandler mutates the password of an already resolved
// caller after re-verifying the current password. Existing access
// credentials are untouched and expire on their own schedule.
type ChangePasswordHandler struct {
	repo   RepositoryManager
	policy *PasswordValidator
	logger Logger
}

// NewChangePasswordHandler creates a handler with sane defaults.
func NewChangePasswordHandler(repo RepositoryManager) *ChangePasswordHandler {
	return &ChangePasswordHandler{
		repo:   repo,
		policy: NewPasswordValidator(),
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *ChangePasswordHandler) WithLogger(logger Logger) *ChangePasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithPolicy overrides the password strength policy.
func (h *ChangePasswordHandler) WithPolicy(policy *PasswordValidator) *ChangePasswordHandler {
	if policy != nil {
		h.policy = policy
	}
	return h
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByID(ctx, event.UserID.String())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrUnauthenticated
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password change")
		}

		// The current password must match even when the new one is
		// perfectly fine.
		if err := ComparePasswordAndHash(event.OldPassword, user.PasswordHash); err != nil {
			if goerrors.Is(err, ErrMismatchedHashAndPassword) {
				return ErrIncorrectPassword
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to compare current password")
		}

		if violations := h.policy.Validate(event.NewPassword, user); len(violations) > 0 {
			return NewPolicyViolations(violations)
		}

		passwordHash, err := HashPassword(event.NewPassword)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash new password")
		}

		if err := h.repo.Users().SetPasswordTx(ctx, tx, user.ID, passwordHash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password in database")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to change password")
	}

	return nil
}
