package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// Auther issues and validates session credentials. It is the single
// gate for "who is the caller": login, refresh, and protected-route
// resolution all go through it.
type Auther struct {
	repo   RepositoryManager
	tokens TokenService
	logger Logger
}

// NewAuthenticator returns a new Auther.
func NewAuthenticator(repo RepositoryManager, tokens TokenService) *Auther {
	return &Auther{
		repo:   repo,
		tokens: tokens,
		logger: defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// TokenService returns the TokenService instance used by this Auther.
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login verifies the credentials and mints a token pair. Unknown email,
// wrong password, and inactive account are indistinguishable to the
// caller: all return ErrInvalidCredentials.
func (s *Auther) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during login")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to compare password hash")
	}

	if !user.IsActive {
		s.logger.Debug("login rejected for inactive account, response stays generic")
		return nil, ErrInvalidCredentials
	}

	pair, err := s.tokens.GeneratePair(user.ID.String())
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// Refresh exchanges a refresh credential for a fresh access credential.
// The refresh credential is not rotated and stays valid until its own
// expiry.
func (s *Auther) Refresh(refresh string) (string, error) {
	claims, err := s.tokens.Validate(refresh, TokenTypeRefresh)
	if err != nil {
		return "", err
	}

	return s.tokens.GenerateAccess(claims.UserID())
}

// SessionFromToken validates an access credential and returns its
// claims.
func (s *Auther) SessionFromToken(raw string) (*SessionClaims, error) {
	return s.tokens.Validate(raw, TokenTypeAccess)
}

// ResolveUser loads the account behind a session. Protected operations
// use it to turn a credential into a caller.
func (s *Auther) ResolveUser(ctx context.Context, claims *SessionClaims) (*User, error) {
	if claims == nil {
		return nil, ErrUnauthenticated
	}

	user, err := s.repo.Users().GetByID(ctx, claims.UserID())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUnauthenticated
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve session user")
	}

	return user, nil
}
