package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	nsq "github.com/nsqio/go-nsq"
)

var (
	ErrNSQProducerAddrRequired  = errors.New("messaging: nsq producer address is required")
	ErrNSQConsumerAddrsRequired = errors.New("messaging: nsq nsqd or lookupd addresses are required")
)

type NSQConfig struct {
	ProducerAddr string
	// Lookupd addresses win over direct nsqd addresses when both are set.
	ConsumerNSQDAddrs    []string
	ConsumerLookupdAddrs []string

	ProducerConfig *nsq.Config
	ConsumerConfig *nsq.Config
	// RequeueDelay is the backoff for a nacked message; zero uses the consumer's backoff-scaled default.
	RequeueDelay time.Duration
}

// NSQ has no message headers; they are dropped on publish.
type NSQ struct {
	cfg      NSQConfig
	producer *nsq.Producer

	mu        sync.Mutex
	consumers map[*nsq.Consumer]struct{}
	closed    bool
}

func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	if cfg.ProducerConfig == nil {
		cfg.ProducerConfig = nsq.NewConfig()
	}
	if cfg.ConsumerConfig == nil {
		cfg.ConsumerConfig = nsq.NewConfig()
	}

	n := &NSQ{cfg: cfg, consumers: map[*nsq.Consumer]struct{}{}}
	if cfg.ProducerAddr != "" {
		p, err := nsq.NewProducer(cfg.ProducerAddr, cfg.ProducerConfig)
		if err != nil {
			return nil, fmt.Errorf("messaging: nsq producer: %w", err)
		}
		p.SetLoggerLevel(nsq.LogLevelError)
		n.producer = p
	}

	return n, nil
}

func (n *NSQ) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	consumers := make([]*nsq.Consumer, 0, len(n.consumers))
	for c := range n.consumers {
		consumers = append(consumers, c)
	}
	n.mu.Unlock()

	for _, c := range consumers {
		c.Stop()
		<-c.StopChan
	}
	if n.producer != nil {
		n.producer.Stop()
	}
	return nil
}

func (n *NSQ) Publish(ctx context.Context, topic string, msg OutgoingMessage) (PublishResult, error) {
	if topic == "" {
		return PublishResult{}, ErrTopicRequired
	}
	if n.producer == nil {
		return PublishResult{}, ErrNSQProducerAddrRequired
	}
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}

	if err := n.producer.Publish(topic, msg.Body); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nsq publish: %w", err)
	}

	return PublishResult{Topic: topic, Timestamp: time.Now()}, nil
}

func (n *NSQ) track(c *nsq.Consumer) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return false
	}
	n.consumers[c] = struct{}{}
	return true
}

func (n *NSQ) untrack(c *nsq.Consumer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.consumers, c)
}

// Consume reads topic through the channel named by WithName.
func (n *NSQ) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := checkConsume(topic, handler); err != nil {
		return err
	}
	co := newConsumeOptions(opts...)
	if co.name == "" {
		return ErrNameRequired
	}
	if len(n.cfg.ConsumerNSQDAddrs) == 0 && len(n.cfg.ConsumerLookupdAddrs) == 0 {
		return ErrNSQConsumerAddrsRequired
	}

	ccfg := *n.cfg.ConsumerConfig
	ccfg.MaxInFlight = co.maxInFlight

	consumer, err := nsq.NewConsumer(topic, co.name, &ccfg)
	if err != nil {
		return fmt.Errorf("messaging: nsq consumer: %w", err)
	}
	consumer.SetLoggerLevel(nsq.LogLevelError)
	consumer.AddConcurrentHandlers(nsq.HandlerFunc(func(m *nsq.Message) error {
		m.DisableAutoResponse()
		return dispatch(ctx, DriverNSQ, handler, &nsqMessage{topic: topic, m: m, requeue: n.cfg.RequeueDelay}, co)
	}), co.concurrency)

	if !n.track(consumer) {
		return ErrClosed
	}
	defer n.untrack(consumer)

	if len(n.cfg.ConsumerLookupdAddrs) > 0 {
		err = consumer.ConnectToNSQLookupds(n.cfg.ConsumerLookupdAddrs)
	} else {
		err = consumer.ConnectToNSQDs(n.cfg.ConsumerNSQDAddrs)
	}
	if err != nil {
		consumer.Stop()
		<-consumer.StopChan
		return fmt.Errorf("messaging: nsq connect: %w", err)
	}

	select {
	case <-ctx.Done():
		consumer.Stop()
		<-consumer.StopChan
		return ctx.Err()
	case <-consumer.StopChan:
		return ErrClosed
	}
}
