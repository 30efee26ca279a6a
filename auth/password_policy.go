package auth

import (
	"strings"
	"unicode"
)

// commonPasswords is a short deny list of passwords seen in every
// breach corpus. Enough to stop the obvious ones; adopters wanting the
// full list can swap the validator.
var commonPasswords = map[string]struct{}{
	"password":    {},
	"password1":   {},
	"password123": {},
	"12345678":    {},
	"123456789":   {},
	"qwerty123":   {},
	"letmein123":  {},
	"iloveyou1":   {},
	"admin123":    {},
	"welcome1":    {},
}

// PasswordValidator applies the strength policy. Each method of Validate
// appends one message per violated rule so callers can report all of
// them at once.
type PasswordValidator struct {
	MinLength int
}

// NewPasswordValidator returns the default policy.
func NewPasswordValidator() *PasswordValidator {
	return &PasswordValidator{MinLength: 8}
}

// Validate checks password against the policy. The user is optional
// context for the similarity rule; pass nil when no account exists yet
// and the email is carried separately.
func (p *PasswordValidator) Validate(password string, user *User) []string {
	var violations []string

	if len(password) < p.MinLength {
		violations = append(violations, "This password is too short. It must contain at least 8 characters.")
	}

	if password != "" && isEntirelyNumeric(password) {
		violations = append(violations, "This password is entirely numeric.")
	}

	if _, common := commonPasswords[strings.ToLower(password)]; common {
		violations = append(violations, "This password is too common.")
	}

	if user != nil && tooSimilarToEmail(password, user.Email) {
		violations = append(violations, "The password is too similar to the email.")
	}

	return violations
}

// ValidateForEmail applies the policy before an account exists, using
// the registration email for the similarity rule.
func (p *PasswordValidator) ValidateForEmail(password, email string) []string {
	return p.Validate(password, &User{Email: email})
}

func isEntirelyNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// maxSimilarity is the ratio above which a password counts as a
// rewording of the email.
const maxSimilarity = 0.7

// tooSimilarToEmail compares the password against the whole email and
// each word inside it, using a character-bag ratio. "margarita99" is
// close enough to margarita@example.com; "rotated-secret-phrase" for
// rotate@example.com is not.
func tooSimilarToEmail(password, email string) bool {
	if password == "" || email == "" {
		return false
	}

	pwd := strings.ToLower(password)
	lowered := strings.ToLower(email)

	for _, part := range append(emailWords(lowered), lowered) {
		if len(part) < 3 {
			continue
		}
		if similarityRatio(pwd, part) >= maxSimilarity {
			return true
		}
	}

	return false
}

func emailWords(email string) []string {
	return strings.FieldsFunc(email, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// similarityRatio is 2*M/T, where M counts runes the two strings have
// in common (with multiplicity) and T is their combined length.
func similarityRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra)+len(rb) == 0 {
		return 0
	}

	counts := make(map[rune]int, len(rb))
	for _, r := range rb {
		counts[r]++
	}

	matches := 0
	for _, r := range ra {
		if counts[r] > 0 {
			counts[r]--
			matches++
		}
	}

	return 2 * float64(matches) / float64(len(ra)+len(rb))
}
