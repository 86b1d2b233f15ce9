package messaging

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type rabbitMQMessage struct {
	settleOnce
	d amqp.Delivery
}

func (m *rabbitMQMessage) Body() []byte { return m.d.Body }
func (m *rabbitMQMessage) Key() []byte  { return []byte(m.d.CorrelationId) }

func (m *rabbitMQMessage) Headers() Headers {
	out := make(Headers, len(m.d.Headers))
	for k, v := range m.d.Headers {
		out[k] = fmt.Sprint(v)
	}
	return out
}

func (m *rabbitMQMessage) ID() string    { return m.d.MessageId }
func (m *rabbitMQMessage) Topic() string { return m.d.RoutingKey }

func (m *rabbitMQMessage) Timestamp() time.Time { return m.d.Timestamp }

func (m *rabbitMQMessage) Attempt() int {
	if m.d.Redelivered {
		return 2
	}
	return 1
}

func (m *rabbitMQMessage) Ack(_ context.Context) error {
	if !m.claim() {
		return nil
	}
	return m.d.Ack(false)
}

// Nack requeues a first delivery and drops a redelivered one, so a poison
// message is tried at most twice.
func (m *rabbitMQMessage) Nack(_ context.Context) error {
	if !m.claim() {
		return nil
	}
	return m.d.Nack(false, !m.d.Redelivered)
}
