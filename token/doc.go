// Package token signs and verifies the structured bearer tokens used by
// the engine: short-lived access tokens, claims-container refresh
// tokens, and the email-verification, password-reset, and MFA-challenge
// variants.
//
// Every token carries a purpose tag alongside the registered claims,
// and verification requires the expected purpose to match. A valid
// signature on a token of the wrong purpose is still a verification
// failure; this is what keeps a stolen verification token from being
// replayed as an access token.
package token
