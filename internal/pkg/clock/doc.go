// Package clock provides a tiny time abstraction.
//
// Production code should depend on the Clocker interface instead of calling
// time.Now() directly. TOTP step counters and rate-limit windows are both
// derived from Now(), so tests drive them with a Manual clock.
package clock
