package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

const resetRequestConfirmation = "If the email exists, a password reset link has been sent."

// Reset requests are throttled to 6 per hour per source address.
const (
	resetRequestLimit  = 6
	resetRequestWindow = time.Hour
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email"`
	SourceAddr string `json:"-"`
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

// InitializePasswordResetResponse reports the outcome to the caller.
type InitializePasswordResetResponse struct {
	Msg string
}

// InitializePasswordResetHandler handles the reset request: throttle,
// audit, lookup, and link dispatch. Unlike every other flow this one
// reports account existence (404 for unknown emails); see the package
// note.
type InitializePasswordResetHandler struct {
	repo     RepositoryManager
	verifier *Verifier
	mailer   Mailer
	audit    AuditSink
	logger   Logger
	throttle *resetThrottle
	baseURL  string
	sender   string
}

// NewInitializePasswordResetHandler creates a handler with sane defaults.
func NewInitializePasswordResetHandler(repo RepositoryManager, verifier *Verifier, mailer Mailer, cfg Config) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:     repo,
		verifier: verifier,
		mailer:   mailer,
		audit:    NoOpSink{},
		logger:   defLogger{},
		throttle: newResetThrottle(resetRequestLimit, resetRequestWindow),
		baseURL:  cfg.GetBaseURL(),
		sender:   cfg.GetSenderAddress(),
	}
}

// WithAuditSink sets the sink used to record reset request events.
func (h *InitializePasswordResetHandler) WithAuditSink(sink AuditSink) *InitializePasswordResetHandler {
	h.audit = normalizeAuditSink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithThrottle overrides the request throttle, mostly for tests.
func (h *InitializePasswordResetHandler) WithThrottle(limit int, window time.Duration) *InitializePasswordResetHandler {
	h.throttle = newResetThrottle(limit, window)
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) (*InitializePasswordResetResponse, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) (*InitializePasswordResetResponse, error) {
	if !h.throttle.Allow(event.SourceAddr) {
		return nil, ErrTooManyResetRequests
	}

	// Every request is audited, hit or miss.
	h.audit.Emit(ctx, AuditEvent{
		Timestamp:  time.Now(),
		EventType:  AuditEventResetRequested,
		Email:      event.Email,
		SourceAddr: event.SourceAddr,
		Success:    true,
	})

	user, err := h.repo.Users().GetByEmail(ctx, event.Email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrResetEmailNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	// Delivery is best effort; the caller gets the same response either
	// way so the outcome cannot be probed.
	if err := h.sendResetEmail(ctx, user); err != nil {
		h.logger.Error("failed to send password reset email user_id=%s: %v", user.ID.String(), err)
	}

	return &InitializePasswordResetResponse{Msg: resetRequestConfirmation}, nil
}

func (h *InitializePasswordResetHandler) sendResetEmail(ctx context.Context, user *User) error {
	token := h.verifier.Issue(user)
	link := fmt.Sprintf("%s/api/auth/reset-password-confirm/%s/%s/", h.baseURL, EncodeUID(user.ID), token)

	return h.mailer.Send(ctx, Message{
		Subject: "Reset your password",
		Body:    fmt.Sprintf("Use this link to reset your password: %s", link),
		From:    h.sender,
		To:      []string{user.Email},
	})
}

// resetThrottle is a fixed-window counter keyed by source address. It
// only needs to hold the single in-process rule the reset flow has, so
// there is no shared store behind it.
type resetThrottle struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	seen   map[string]*throttleWindow
	now    func() time.Time
}

type throttleWindow struct {
	start time.Time
	count int
}

func newResetThrottle(limit int, window time.Duration) *resetThrottle {
	return &resetThrottle{
		limit:  limit,
		window: window,
		seen:   make(map[string]*throttleWindow),
		now:    time.Now,
	}
}

func (t *resetThrottle) Allow(addr string) bool {
	if addr == "" {
		addr = "unknown"
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()

	w, ok := t.seen[addr]
	if !ok || now.Sub(w.start) > t.window {
		t.prune(now)
		t.seen[addr] = &throttleWindow{start: now, count: 1}
		return true
	}

	if w.count >= t.limit {
		return false
	}

	w.count++
	return true
}

// prune drops expired windows so the map does not grow unbounded.
func (t *resetThrottle) prune(now time.Time) {
	for addr, w := range t.seen {
		if now.Sub(w.start) > t.window {
			delete(t.seen, addr)
		}
	}
}
