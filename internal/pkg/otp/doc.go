// Package otp derives per-identity secrets and generates and verifies
// time-based one-time passwords (TOTP, RFC 6238) against them.
//
// Secrets are never stored. Each call recomputes the secret from the identity
// and a process-wide salt, so verification needs no state beyond the clock.
package otp
