// Package internal holds shared helpers that must stay out of the public
// API surface: secure random material for session identifiers and opaque
// tokens, and the one-way digests used to store them at rest.
package internal
