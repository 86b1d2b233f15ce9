package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrRabbitMQURLRequired = errors.New("messaging: rabbitmq url is required")

type RabbitMQConfig struct {
	URL string
	// Exchange receives publishes with the topic as routing key. Empty uses the
	// default exchange, where the topic is the queue name.
	Exchange string
	// Prefetch overrides the per-consumer QoS; zero uses max in-flight.
	Prefetch int
	Durable  bool
}

type RabbitMQ struct {
	cfg  RabbitMQConfig
	conn *amqp.Connection

	// amqp channels are not safe for concurrent publishers.
	pubMu sync.Mutex
	pubCh *amqp.Channel

	declared sync.Map
}

func NewRabbitMQ(cfg RabbitMQConfig) (*RabbitMQ, error) {
	if cfg.URL == "" {
		return nil, ErrRabbitMQURLRequired
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("messaging: rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("messaging: rabbitmq channel: %w", err), conn.Close())
	}

	return &RabbitMQ{cfg: cfg, conn: conn, pubCh: ch}, nil
}

// Close also ends every running Consume, since their channels share the connection.
func (r *RabbitMQ) Close() error {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	if r.conn.IsClosed() {
		return nil
	}
	return errors.Join(r.pubCh.Close(), r.conn.Close())
}

func (r *RabbitMQ) declare(ch *amqp.Channel, queue string) error {
	if _, ok := r.declared.Load(queue); ok {
		return nil
	}
	if _, err := ch.QueueDeclare(queue, r.cfg.Durable, false, false, false, nil); err != nil {
		return fmt.Errorf("messaging: rabbitmq declare %s: %w", queue, err)
	}
	r.declared.Store(queue, struct{}{})
	return nil
}

func (r *RabbitMQ) Publish(ctx context.Context, topic string, msg OutgoingMessage) (PublishResult, error) {
	if topic == "" {
		return PublishResult{}, ErrTopicRequired
	}
	if r.conn.IsClosed() {
		return PublishResult{}, ErrClosed
	}

	headers := make(amqp.Table, len(msg.Headers))
	for k, v := range msg.Headers {
		headers[k] = v
	}

	now := time.Now()
	pub := amqp.Publishing{
		ContentType:   "application/json",
		Body:          msg.Body,
		Headers:       headers,
		DeliveryMode:  amqp.Persistent,
		Timestamp:     now,
		MessageId:     uuid.NewString(),
		CorrelationId: string(msg.Key),
	}

	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	if r.cfg.Exchange == "" {
		if err := r.declare(r.pubCh, topic); err != nil {
			return PublishResult{}, err
		}
	}
	if err := r.pubCh.PublishWithContext(ctx, r.cfg.Exchange, topic, false, false, pub); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: rabbitmq publish: %w", err)
	}

	return PublishResult{MessageID: pub.MessageId, Topic: topic, Timestamp: now}, nil
}

// Consume reads the queue named topic on a dedicated channel.
func (r *RabbitMQ) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := checkConsume(topic, handler); err != nil {
		return err
	}
	co := newConsumeOptions(opts...)

	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("messaging: rabbitmq channel: %w", err)
	}
	defer ch.Close()

	if err := r.declare(ch, topic); err != nil {
		return err
	}
	prefetch := r.cfg.Prefetch
	if prefetch <= 0 {
		prefetch = co.maxInFlight
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("messaging: rabbitmq qos: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, topic, co.name, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("messaging: rabbitmq consume: %w", err)
	}

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for d := range deliveries {
				// Unsettled deliveries return to the queue when the channel closes.
				_ = dispatch(ctx, DriverRabbitMQ, handler, &rabbitMQMessage{d: d}, co) //nolint:errcheck
			}
		})
	}

	select {
	case <-ctx.Done():
	case <-ch.NotifyClose(make(chan *amqp.Error, 1)):
	}
	cerr := ch.Close()
	wg.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("messaging: rabbitmq channel closed: %w", errors.Join(cerr, amqp.ErrClosed))
}
