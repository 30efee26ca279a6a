// Package auth implements the account and credential lifecycle for the
// planora backend: registration with email activation, JWT login and
// refresh, token based password reset, and authenticated password
// change.
//
// Verification links (activation, password reset) carry a stateless
// token derived from the user's current state. Any state change that
// matters to the link (password hash, active flag) invalidates every
// previously issued token for that user, so tokens are single use
// without a blacklist.
//
// Note for adopters: the reset request endpoint answers 404 for unknown
// emails while login and activation deliberately never disclose account
// existence. That asymmetry is inherited behavior and is preserved here
// on purpose.
package auth
