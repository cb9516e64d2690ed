// Package hash provides helpers for hashing and verifying secrets.
//
// Two hashers live here behind the small Hash interface: SaltedSHA256 derives
// deterministic per-identity digests (the TOTP secret source), and HMACSHA256
// produces keyed digests for values that must not be stored in the clear.
package hash
