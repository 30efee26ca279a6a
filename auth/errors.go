package auth

import (
	"net/http"

	"github.com/goliatone/go-errors"
)

// Text codes for machine readable error discrimination.
const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeInvalidToken       = "INVALID_TOKEN"
	TextCodeAlreadyActive      = "ACCOUNT_ALREADY_ACTIVE"
	TextCodeEmailNotFound      = "EMAIL_NOT_FOUND"
	TextCodeWrongPassword      = "INCORRECT_PASSWORD"
	TextCodeThrottled          = "RESET_THROTTLED"
)

// ErrNoEmptyString rejects empty input to the password hasher.
var ErrNoEmptyString = errors.New("expected non empty string", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a cleartext password
// does not match the stored hash.
var ErrMismatchedHashAndPassword = errors.New("password does not match stored hash", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidCredentials is the single login failure. Unknown email,
// wrong password, and inactive account all collapse into it so the
// response never discloses which one it was.
var ErrInvalidCredentials = errors.New("No active account found with the given credentials", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCredentials)

// ErrTokenExpired is returned for session credentials past their expiry.
var ErrTokenExpired = errors.New("Token is invalid or expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed covers unparseable, tampered, or wrong-type session
// credentials.
var ErrTokenMalformed = errors.New("Token is invalid or expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrUnauthenticated is returned by the bearer middleware when no
// usable credential is present.
var ErrUnauthenticated = errors.New("Authentication credentials were not provided", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidVerification covers undecodable ids and unknown users in
// the activation and reset-confirm flows. Both cases share one shape to
// avoid existence disclosure.
var ErrInvalidVerification = errors.New("Invalid token", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeInvalidToken)

// ErrVerificationExpired is returned when a verification token fails
// the fingerprint or window check.
var ErrVerificationExpired = errors.New("Invalid or expired token", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeInvalidToken)

// ErrAccountAlreadyActive rejects activation replays. Kept distinct
// from the invalid-token rejection.
var ErrAccountAlreadyActive = errors.New("Account already active", errors.CategoryConflict).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeAlreadyActive)

// ErrResetEmailNotFound is the reset-request miss. This flow reports
// account existence; see the package note.
var ErrResetEmailNotFound = errors.New("This email does not exist in our system", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound).
	WithTextCode(TextCodeEmailNotFound)

// ErrIncorrectPassword is the password-change rejection for a wrong
// current password.
var ErrIncorrectPassword = errors.New("Incorrect current password", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeWrongPassword)

// ErrTooManyResetRequests throttles anonymous reset requests.
var ErrTooManyResetRequests = errors.New("Too many password reset requests, try again later", errors.CategoryRateLimit).
	WithCode(http.StatusTooManyRequests).
	WithTextCode(TextCodeThrottled)

// NewFieldErrors builds the field-level validation failure used by the
// register and login payloads: a 400 whose body lists the offending
// fields with their messages.
func NewFieldErrors(fields map[string][]string) *errors.Error {
	return errors.New("invalid input provided", errors.CategoryValidation).
		WithCode(errors.CodeBadRequest).
		WithMetadata(map[string]any{
			"fields": fields,
		})
}

// NewPolicyViolations builds the strength-policy failure used by the
// reset-confirm and change-password flows: a 400 whose body lists every
// violated rule.
func NewPolicyViolations(violations []string) *errors.Error {
	return errors.New("password does not satisfy the strength policy", errors.CategoryValidation).
		WithCode(errors.CodeBadRequest).
		WithMetadata(map[string]any{
			"messages": violations,
		})
}
