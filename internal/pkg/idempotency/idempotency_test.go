package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTracker_MarkRetriesThenReportsOutcomeNotRecorded(t *testing.T) {
	// Arrange
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	attempts := 0
	s := New(client)
	s.markBackoff = func() retry.Backoff {
		b := retry.WithMaxRetries(2, retry.NewConstant(time.Millisecond))
		return retry.BackoffFunc(func() (time.Duration, bool) {
			attempts++
			return b.Next()
		})
	}

	// Act
	err := s.MarkCompleted(context.Background(), "mailing:acme:req-1", time.Hour)

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutcomeNotRecorded)
	assert.Contains(t, err.Error(), "as completed")
	assert.Equal(t, 3, attempts)
}
