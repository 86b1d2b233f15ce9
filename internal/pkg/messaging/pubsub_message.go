package messaging

import (
	"context"
	"time"

	"cloud.google.com/go/pubsub/v2"
)

type pubSubMessage struct {
	settleOnce
	topic string
	m     *pubsub.Message
}

func (m *pubSubMessage) Body() []byte         { return m.m.Data }
func (m *pubSubMessage) Key() []byte          { return []byte(m.m.OrderingKey) }
func (m *pubSubMessage) Headers() Headers     { return Headers(m.m.Attributes) }
func (m *pubSubMessage) ID() string           { return m.m.ID }
func (m *pubSubMessage) Topic() string        { return m.topic }
func (m *pubSubMessage) Timestamp() time.Time { return m.m.PublishTime }

// Attempt is only tracked when the subscription has a dead-letter policy.
func (m *pubSubMessage) Attempt() int {
	if m.m.DeliveryAttempt != nil {
		return *m.m.DeliveryAttempt
	}
	return 1
}

func (m *pubSubMessage) Ack(_ context.Context) error {
	if m.claim() {
		m.m.Ack()
	}
	return nil
}

func (m *pubSubMessage) Nack(_ context.Context) error {
	if m.claim() {
		m.m.Nack()
	}
	return nil
}
