package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
)

type natsMessage struct {
	settleOnce
	m          *nats.Msg
	receivedAt time.Time
}

func (m *natsMessage) Body() []byte { return m.m.Data }
func (m *natsMessage) Key() []byte  { return nil }

func (m *natsMessage) Headers() Headers {
	out := make(Headers, len(m.m.Header))
	for k := range m.m.Header {
		out[k] = m.m.Header.Get(k)
	}
	return out
}

func (m *natsMessage) ID() string {
	return m.m.Header.Get(nats.MsgIdHdr)
}

func (m *natsMessage) Topic() string        { return m.m.Subject }
func (m *natsMessage) Timestamp() time.Time { return m.receivedAt }

func (m *natsMessage) Attempt() int {
	if md, err := m.m.Metadata(); err == nil && md.NumDelivered > 0 {
		return int(md.NumDelivered)
	}
	return 1
}

// Ack and Nack only reach the server for JetStream deliveries.
func (m *natsMessage) Ack(_ context.Context) error {
	if !m.claim() {
		return nil
	}
	return ignoreNoReply(m.m.Ack())
}

func (m *natsMessage) Nack(_ context.Context) error {
	if !m.claim() {
		return nil
	}
	return ignoreNoReply(m.m.Nak())
}

func ignoreNoReply(err error) error {
	if errors.Is(err, nats.ErrMsgNoReply) || errors.Is(err, nats.ErrMsgNotBound) {
		return nil
	}
	return err
}
