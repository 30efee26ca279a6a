package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenType discriminates the two session credentials.
type TokenType string

const (
	// TokenTypeAccess is the short lived credential presented on every
	// protected call.
	TokenTypeAccess TokenType = "access"
	// TokenTypeRefresh is the long lived credential exchanged for new
	// access credentials.
	TokenTypeRefresh TokenType = "refresh"
)

// TokenPair bundles the two credentials returned by login.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// SessionClaims are the JWT claims carried by both credential types.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID       string `json:"uid,omitempty"`
	TokenType string `json:"token_type,omitempty"`
}

// UserID returns the user id claim, falling back to the subject.
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}

// TokenService mints and validates session credentials
type TokenService interface {
	GeneratePair(userID string) (*TokenPair, error)
	GenerateAccess(userID string) (string, error)
	Validate(raw string, typ TokenType) (*SessionClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	now        func() time.Time
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg Config, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: []byte(cfg.GetSigningKey()),
		accessTTL:  cfg.GetAccessTokenTTL(),
		refreshTTL: cfg.GetRefreshTokenTTL(),
		issuer:     cfg.GetIssuer(),
		audience:   jwt.ClaimStrings(cfg.GetAudience()),
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source, mostly for tests.
func (ts *TokenServiceImpl) WithClock(now func() time.Time) *TokenServiceImpl {
	if now != nil {
		ts.now = now
	}
	return ts
}

// GeneratePair mints a fresh access/refresh credential pair.
func (ts *TokenServiceImpl) GeneratePair(userID string) (*TokenPair, error) {
	access, err := ts.sign(userID, TokenTypeAccess, ts.accessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := ts.sign(userID, TokenTypeRefresh, ts.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// GenerateAccess mints a single access credential, used by the refresh
// exchange.
func (ts *TokenServiceImpl) GenerateAccess(userID string) (string, error) {
	return ts.sign(userID, TokenTypeAccess, ts.accessTTL)
}

func (ts *TokenServiceImpl) sign(userID string, typ TokenType, ttl time.Duration) (string, error) {
	now := ts.now()

	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   userID,
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:       userID,
		TokenType: string(typ),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// Validate parses and validates a raw credential of the expected type.
// It fails closed: expiry, bad signature, wrong signing method, and a
// type mismatch are all rejections.
func (ts *TokenServiceImpl) Validate(raw string, typ TokenType) (*SessionClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 3)
	parserOptions = append(parserOptions, jwt.WithTimeFunc(ts.now))
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience[0]))
	}

	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService validate could not decode or validate claims")
		return nil, ErrTokenMalformed
	}

	if claims.TokenType != string(typ) {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
