package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

const resetConfirmation = "Password reset successfully."

type FinalizePasswordResetMessage struct {
	EncodedID  string `json:"uid"`
	Token      string `json:"token"`
	Password   string `json:"password"`
	SourceAddr string `json:"-"`
}

func (p FinalizePasswordResetMessage) Type() string { return "user.password_reset_finalize" }

// FinalizePasswordResetHandler verifies the reset link and swaps the
// password hash. The token is single use by construction: the hash swap
// changes the fingerprint every issued token was derived from.
type FinalizePasswordResetHandler struct {
	repo     RepositoryManager
	verifier *Verifier
	policy   *PasswordValidator
	audit    AuditSink
	logger   Logger
}

// NewFinalizePasswordResetHandler creates a handler with sane defaults.
func NewFinalizePasswordResetHandler(repo RepositoryManager, verifier *Verifier) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		repo:     repo,
		verifier: verifier,
		policy:   NewPasswordValidator(),
		audit:    NoOpSink{},
		logger:   defLogger{},
	}
}

// WithAuditSink sets the sink used to record reset confirmations.
func (h *FinalizePasswordResetHandler) WithAuditSink(sink AuditSink) *FinalizePasswordResetHandler {
	h.audit = normalizeAuditSink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithPolicy overrides the password strength policy.
func (h *FinalizePasswordResetHandler) WithPolicy(policy *PasswordValidator) *FinalizePasswordResetHandler {
	if policy != nil {
		h.policy = policy
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	// Strength policy runs before any token work so a weak password is
	// reported even when the link is garbage. No user context yet, so
	// the similarity rule does not apply here.
	if violations := h.policy.Validate(event.Password, nil); len(violations) > 0 {
		return NewPolicyViolations(violations)
	}

	id, err := DecodeUID(event.EncodedID)
	if err != nil {
		return ErrInvalidVerification
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var user *User

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err = h.repo.Users().GetByID(ctx, id.String())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrInvalidVerification
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve user for password reset")
		}

		if !h.verifier.Verify(user, event.Token) {
			return ErrVerificationExpired
		}

		passwordHash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
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
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	h.audit.Emit(ctx, AuditEvent{
		Timestamp:  time.Now(),
		EventType:  AuditEventResetConfirmed,
		Email:      user.Email,
		UserID:     user.ID.String(),
		SourceAddr: event.SourceAddr,
		Success:    true,
	})

	return nil
}
