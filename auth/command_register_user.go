package auth

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// RegisterMessages
const registerConfirmation = "User created. Please check your email to activate your account."

type RegisterUserMessage struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserResponse reports the outcome without leaking the token.
type RegisterUserResponse struct {
	User *User
	Msg  string
}

// RegisterUserHandler creates an inactive account and dispatches the
// activation link.
type RegisterUserHandler struct {
	repo     RepositoryManager
	verifier *Verifier
	policy   *PasswordValidator
	mailer   Mailer
	logger   Logger
	baseURL  string
	sender   string
}

// NewRegisterUserHandler creates a handler with sane defaults.
func NewRegisterUserHandler(repo RepositoryManager, verifier *Verifier, mailer Mailer, cfg Config) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:     repo,
		verifier: verifier,
		policy:   NewPasswordValidator(),
		mailer:   mailer,
		logger:   defLogger{},
		baseURL:  cfg.GetBaseURL(),
		sender:   cfg.GetSenderAddress(),
	}
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithPolicy overrides the password strength policy.
func (h *RegisterUserHandler) WithPolicy(policy *PasswordValidator) *RegisterUserHandler {
	if policy != nil {
		h.policy = policy
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*RegisterUserResponse, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*RegisterUserResponse, error) {
	if violations := h.policy.ValidateForEmail(event.Password, event.Email); len(violations) > 0 {
		return nil, NewFieldErrors(map[string][]string{
			"password": violations,
		})
	}

	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetByEmailTx(ctx, tx, event.Email); err == nil {
			// Same response shape whether the address is taken or merely
			// rejected: the body names the field, never the reason.
			return NewFieldErrors(map[string][]string{
				"email": {"A user with this email address cannot be registered."},
			})
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.Email = event.Email
		user.PasswordHash = hash
		user.IsActive = false
		if id, err := hashid.NewUUID(event.Email); err == nil {
			user.ID = id
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	// The account row is committed; a delivery failure must not undo the
	// registration. Log and move on.
	if err := h.sendActivationEmail(ctx, user); err != nil {
		h.logger.Error("failed to send activation email user_id=%s: %v", user.ID.String(), err)
	}

	return &RegisterUserResponse{User: user, Msg: registerConfirmation}, nil
}

func (h *RegisterUserHandler) sendActivationEmail(ctx context.Context, user *User) error {
	token := h.verifier.Issue(user)
	link := fmt.Sprintf("%s/api/auth/activate/%s/%s/", h.baseURL, EncodeUID(user.ID), token)

	return h.mailer.Send(ctx, Message{
		Subject: "Activate your account",
		Body:    fmt.Sprintf("Activate your account using this link: %s", link),
		From:    h.sender,
		To:      []string{user.Email},
	})
}
