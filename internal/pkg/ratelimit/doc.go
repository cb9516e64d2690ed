// Package ratelimit provides in-memory sliding-window limiters keyed by
// identity.
//
// A Window remembers the millisecond timestamps of recorded events per key and
// admits a new one while fewer than max of them are strictly newer than
// now-window. State lives only in process memory and is lost on restart.
package ratelimit
