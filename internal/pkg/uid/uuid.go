package uid

import "github.com/google/uuid"

// UUID generates version 7 UUIDs, falling back to version 4 when the
// time-based variant cannot read randomness.
type UUID struct{}

func NewUUID() *UUID {
	return &UUID{}
}

func (*UUID) Generate() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
