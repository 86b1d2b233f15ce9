// Package uid generates identifiers: snowflake numbers for rows, UUIDv7
// strings for correlation and token ids, and object ids for storage keys.
package uid

// NumberID generates unique, roughly time-ordered int64 ids.
type NumberID interface {
	Generate() int64
}

// StringID generates unique string ids.
type StringID interface {
	Generate() string
}
