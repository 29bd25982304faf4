// Package authcore provides a storage-agnostic authentication engine with argon2id
// password hashing, RS256 purpose-tagged JWTs, capped server-side sessions, and
// single-use rotating refresh tokens.
//
// The package is designed for concurrent server workloads: Engine methods are safe to
// call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config], the store
// interfaces ([CredentialStore], [SessionStore], [RefreshTokenStore]), and value types
// (TokenPair, SessionInfo, SecurityReport, etc.). All internal coordination, including
// flow orchestration, audit dispatch, and metric counters, lives under internal/ and is
// never exported.
//
// # What this package must NOT do
//
//   - Expose store implementations, Redis clients, or hash encodings in its public API.
//   - Leak whether an identifier exists: Login answers unknown users and wrong passwords
//     with the same error and the same timing profile.
//   - Accept a refresh token more than once. A replayed token revokes its whole chain
//     and the session behind it.
//
// # Failure posture
//
// Password verification fails closed: any malformed stored hash is a mismatch. Rate
// limiting fails open: when both limiter backends are unreachable the request is
// admitted and the degradation is logged, counted, and audited.
package authcore
