package messaging

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/shandysiswandi/docmailer/internal/pkg/stacktrace"
)

// settleOnce makes Ack and Nack idempotent: only the first call reaches the broker.
type settleOnce struct {
	done atomic.Bool
}

func (s *settleOnce) claim() bool   { return !s.done.Swap(true) }
func (s *settleOnce) settled() bool { return s.done.Load() }

type settleable interface {
	Message
	settled() bool
}

// dispatch runs handler and, unless the consumer acks manually, settles msg
// from the handler result. Only a failed settle is returned.
func dispatch(ctx context.Context, broker string, handler Handler, msg settleable, co consumeOptions) error {
	herr := safeCall(ctx, broker, handler, msg)
	if co.manualAck || msg.settled() {
		return nil
	}

	sctx := context.WithoutCancel(ctx)
	if herr == nil {
		return msg.Ack(sctx)
	}
	return msg.Nack(sctx)
}

func safeCall(ctx context.Context, broker string, handler Handler, msg Message) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			stacktrace.LogPanic(ctx, "panic in message handler", rvr, "broker", broker, "topic", msg.Topic())
			err = fmt.Errorf("messaging: %s handler panic: %v", broker, rvr)
		}
	}()

	return handler(ctx, msg)
}

func checkConsume(topic string, handler Handler) error {
	if topic == "" {
		return ErrTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	return nil
}
