package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

var ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")

type KafkaConfig struct {
	Brokers []string
	Dialer  *kafka.Dialer
	// MaxBytes bounds a single fetch; zero uses 10MB.
	MaxBytes int
}

// Kafka keeps one writer per topic. Readers are created per Consume call and
// commit offsets explicitly on Ack.
type Kafka struct {
	cfg KafkaConfig

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	readers map[*kafka.Reader]struct{}
	closed  bool
}

func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 10e6
	}

	return &Kafka{
		cfg:     cfg,
		writers: map[string]*kafka.Writer{},
		readers: map[*kafka.Reader]struct{}{},
	}, nil
}

func (k *Kafka) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil
	}
	k.closed = true

	var err error
	for r := range k.readers {
		err = errors.Join(err, r.Close())
	}
	for _, w := range k.writers {
		err = errors.Join(err, w.Close())
	}
	return err
}

func (k *Kafka) writer(topic string) (*kafka.Writer, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil, ErrClosed
	}
	if w, ok := k.writers[topic]; ok {
		return w, nil
	}

	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  k.cfg.Brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
		Dialer:   k.cfg.Dialer,
	})
	k.writers[topic] = w
	return w, nil
}

// Publish hashes Key to a partition, so events of one mailing stay ordered.
func (k *Kafka) Publish(ctx context.Context, topic string, msg OutgoingMessage) (PublishResult, error) {
	if topic == "" {
		return PublishResult{}, ErrTopicRequired
	}
	w, err := k.writer(topic)
	if err != nil {
		return PublishResult{}, err
	}

	km := kafka.Message{Key: msg.Key, Value: msg.Body, Time: time.Now()}
	for key, v := range msg.Headers {
		km.Headers = append(km.Headers, kafka.Header{Key: key, Value: []byte(v)})
	}

	if err := w.WriteMessages(ctx, km); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: kafka publish: %w", err)
	}

	return PublishResult{Topic: topic, Timestamp: km.Time}, nil
}

func (k *Kafka) track(r *kafka.Reader) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return false
	}
	k.readers[r] = struct{}{}
	return true
}

func (k *Kafka) untrack(r *kafka.Reader) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.readers, r)
}

// Consume joins the consumer group named by WithName.
func (k *Kafka) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := checkConsume(topic, handler); err != nil {
		return err
	}
	co := newConsumeOptions(opts...)
	if co.name == "" {
		return ErrNameRequired
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.cfg.Brokers,
		GroupID:  co.name,
		Topic:    topic,
		MaxBytes: k.cfg.MaxBytes,
		Dialer:   k.cfg.Dialer,
	})
	if !k.track(reader) {
		return errors.Join(ErrClosed, reader.Close())
	}
	defer k.untrack(reader)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() { firstErr = err })
		cancel()
	}

	fetched := make(chan kafka.Message)
	for range co.concurrency {
		wg.Go(func() {
			for m := range fetched {
				if err := dispatch(ctx, DriverKafka, handler, &kafkaMessage{reader: reader, m: m}, co); err != nil {
					fail(fmt.Errorf("messaging: kafka commit: %w", err))
					return
				}
			}
		})
	}

	for ctx.Err() == nil {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				fail(fmt.Errorf("messaging: kafka fetch: %w", err))
			}
			break
		}
		select {
		case fetched <- m:
		case <-ctx.Done():
		}
	}
	close(fetched)
	wg.Wait()

	if firstErr != nil {
		return errors.Join(firstErr, reader.Close())
	}
	return errors.Join(context.Cause(ctx), reader.Close())
}
