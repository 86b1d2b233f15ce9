package uid

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectID_Generate(t *testing.T) {
	// Arrange
	g, err := NewObjectIDGenerator()
	require.NoError(t, err)
	g.now = func() time.Time { return time.Unix(0x65f0c0ff, 0) }

	// Act
	a := g.Generate()
	b := g.Generate()

	// Assert
	assert.Len(t, a, 24)
	assert.NotEqual(t, a, b)
	assert.Equal(t, "65f0c0ff", a[:8])
	assert.Equal(t, a[:18], b[:18])
	_, err = hex.DecodeString(a)
	require.NoError(t, err)
}

func TestUUID_Generate(t *testing.T) {
	id, err := uuid.Parse(NewUUID().Generate())

	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestSnowflake(t *testing.T) {
	g, err := NewSnowflake(7)
	require.NoError(t, err)

	a, b := g.Generate(), g.Generate()

	assert.Positive(t, a)
	assert.Greater(t, b, a)

	_, err = NewSnowflake(4096)
	require.Error(t, err)
}
