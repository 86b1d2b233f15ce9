package messaging

import (
	"context"
	"encoding/hex"
	"time"

	nsq "github.com/nsqio/go-nsq"
)

type nsqMessage struct {
	settleOnce
	topic   string
	m       *nsq.Message
	requeue time.Duration
}

func (m *nsqMessage) Body() []byte         { return m.m.Body }
func (m *nsqMessage) Key() []byte          { return nil }
func (m *nsqMessage) Headers() Headers     { return Headers{} }
func (m *nsqMessage) ID() string           { return hex.EncodeToString(m.m.ID[:]) }
func (m *nsqMessage) Topic() string        { return m.topic }
func (m *nsqMessage) Timestamp() time.Time { return time.Unix(0, m.m.Timestamp) }
func (m *nsqMessage) Attempt() int         { return int(m.m.Attempts) }

func (m *nsqMessage) Ack(_ context.Context) error {
	if m.claim() {
		m.m.Finish()
	}
	return nil
}

func (m *nsqMessage) Nack(_ context.Context) error {
	if !m.claim() {
		return nil
	}
	delay := m.requeue
	if delay <= 0 {
		delay = -1
	}
	m.m.Requeue(delay)
	return nil
}
