// Package config reads runtime configuration.
//
// Callers depend on the Config interface. Keys are dot separated paths into
// the config file (e.g. "modules.relay.salt") and can be overridden from the
// environment when the implementation supports it.
package config

import (
	"io"
	"time"
)

// DurationConfig defines helpers for retrieving time-based configuration values.
//
// The unit helpers read a plain integer and scale it. GetDuration parses a Go
// duration string such as "90s" or "1h30m".
type DurationConfig interface {
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration
	GetHour(key string) time.Duration
	GetDay(key string) time.Duration
	GetDuration(key string) time.Duration
}

// Config defines a set of methods for retrieving configuration values of various types.
// Missing keys and unconvertible values yield the zero value of the return type.
type Config interface {
	io.Closer
	DurationConfig

	GetBool(key string) bool
	GetInt(key string) int
	GetUint64(key string) uint64
	GetFloat64(key string) float64
	GetString(key string) string

	// GetArray returns the value as a list. Values stored as a single string
	// use the format <element1>,<element2>,... Blank elements are dropped.
	GetArray(key string) []string

	// GetMap returns the value as a string map. Values stored as a single
	// string use the format <key1>:<value1>,<key2>:<value2>,...
	GetMap(key string) map[string]string

	// IsSet reports whether key has a value from any source.
	IsSet(key string) bool
}
