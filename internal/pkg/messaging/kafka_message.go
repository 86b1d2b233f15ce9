package messaging

import (
	"context"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

type kafkaMessage struct {
	settleOnce
	reader *kafka.Reader
	m      kafka.Message
}

func (m *kafkaMessage) Body() []byte { return m.m.Value }
func (m *kafkaMessage) Key() []byte  { return m.m.Key }

func (m *kafkaMessage) Headers() Headers {
	out := make(Headers, len(m.m.Headers))
	for _, h := range m.m.Headers {
		if _, ok := out[h.Key]; !ok {
			out[h.Key] = string(h.Value)
		}
	}
	return out
}

func (m *kafkaMessage) ID() string {
	return m.m.Topic + "/" + strconv.Itoa(m.m.Partition) + "/" + strconv.FormatInt(m.m.Offset, 10)
}

func (m *kafkaMessage) Topic() string        { return m.m.Topic }
func (m *kafkaMessage) Timestamp() time.Time { return m.m.Time }
func (m *kafkaMessage) Attempt() int         { return 1 }

func (m *kafkaMessage) Ack(ctx context.Context) error {
	if !m.claim() {
		return nil
	}
	return m.reader.CommitMessages(ctx, m.m)
}

func (m *kafkaMessage) Nack(_ context.Context) error {
	m.claim()
	return nil
}
