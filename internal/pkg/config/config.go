// Package config exposes settings by dotted key such as "docmail.poll.attempts".
// Every getter returns the zero value for a missing or unconvertible key, so
// callers own their defaults.
package config

import (
	"io"
	"time"
)

type Config interface {
	io.Closer

	GetBool(key string) bool
	GetString(key string) string

	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
	GetUint16(key string) uint16
	GetUint64(key string) uint64
	GetFloat64(key string) float64

	// The duration getters read a plain number in the named unit, so
	// "timeout_seconds: 30" is 30s.
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration
	GetHour(key string) time.Duration

	// GetBinary base64-decodes the value; credentials and keys are stored this way.
	GetBinary(key string) []byte
	// GetArray accepts a YAML sequence or, from the environment, a string
	// split on ";" when present and on "," otherwise.
	GetArray(key string) []string
	// GetMap accepts a YAML mapping or a "k:v,k:v" string.
	GetMap(key string) map[string]string
}
