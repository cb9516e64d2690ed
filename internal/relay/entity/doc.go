// Package entity holds the relay domain types and the pure input rules of
// the contact form: phone normalization, bot heuristics and message content
// checks.
package entity
