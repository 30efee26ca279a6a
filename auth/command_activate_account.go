package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

const activationConfirmation = "Account activated."

type ActivateAccountMessage struct {
	EncodedID string `json:"uid"`
	Token     string `json:"token"`
}

func (e ActivateAccountMessage) Type() string { return "user.activate" }

// ActivateAccountHandler performs the one-way inactive to active
// transition. Single shot: the token is checked once against current
// state, with no retry path.
type ActivateAccountHandler struct {
	repo     RepositoryManager
	verifier *Verifier
	logger   Logger
}

// NewActivateAccountHandler creates a handler with sane defaults.
func NewActivateAccountHandler(repo RepositoryManager, verifier *Verifier) *ActivateAccountHandler {
	return &ActivateAccountHandler{
		repo:     repo,
		verifier: verifier,
		logger:   defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *ActivateAccountHandler) WithLogger(logger Logger) *ActivateAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ActivateAccountHandler) Execute(ctx context.Context, event ActivateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account activation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateAccountHandler) execute(ctx context.Context, event ActivateAccountMessage) error {
	// Undecodable ids and unknown users share one rejection so the
	// endpoint is not an existence oracle.
	id, err := DecodeUID(event.EncodedID)
	if err != nil {
		return ErrInvalidVerification
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByID(ctx, id.String())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrInvalidVerification
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for activation")
		}

		if user.IsActive {
			return ErrAccountAlreadyActive
		}

		if !h.verifier.Verify(user, event.Token) {
			return ErrVerificationExpired
		}

		if err := h.repo.Users().ActivateTx(ctx, tx, user.ID); err != nil {
			if repository.IsRecordNotFound(err) {
				// Lost the race against a concurrent activation.
				return ErrAccountAlreadyActive
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist account activation")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account activation transaction failed")
	}

	return nil
}
