package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrTopicRequired   = errors.New("messaging: topic is required")
	ErrHandlerRequired = errors.New("messaging: handler is required")
	ErrNameRequired    = errors.New("messaging: consumer name is required")
	ErrClosed          = errors.New("messaging: client is closed")
)

type Messaging interface {
	io.Closer
	Publisher
	Consumer
}

type Publisher interface {
	Publish(ctx context.Context, topic string, msg OutgoingMessage) (PublishResult, error)
}

// Consumer blocks in Consume until ctx is done or the broker fails.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error
}

type Handler func(ctx context.Context, msg Message) error

// Headers are single-valued string headers. Brokers without header support
// (NSQ) drop them on publish.
type Headers map[string]string

func (h Headers) Get(key string) string {
	return h[key]
}

type OutgoingMessage struct {
	// Key orders messages where the broker supports it (Kafka partition, Pub/Sub ordering key).
	Key     []byte
	Body    []byte
	Headers Headers
}

type PublishResult struct {
	MessageID string
	Topic     string
	Timestamp time.Time
}

type Message interface {
	Body() []byte
	Key() []byte
	Headers() Headers
	ID() string
	Topic() string
	Timestamp() time.Time
	// Attempt is 1 on first delivery. Brokers that do not count deliveries
	// report 1 or 2 (redelivered).
	Attempt() int

	Ack(ctx context.Context) error
	// Nack asks for redelivery. On Kafka it only leaves the offset uncommitted.
	Nack(ctx context.Context) error
}
