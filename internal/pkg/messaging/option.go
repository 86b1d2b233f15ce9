package messaging

type consumeOptions struct {
	// name maps to the broker's notion of a shared consumer: Kafka group,
	// NSQ channel, NATS queue group, Pub/Sub subscription, RabbitMQ consumer tag.
	name        string
	concurrency int
	maxInFlight int
	manualAck   bool
}

type ConsumeOption func(*consumeOptions)

func newConsumeOptions(opts ...ConsumeOption) consumeOptions {
	co := consumeOptions{concurrency: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(&co)
		}
	}
	if co.concurrency <= 0 {
		co.concurrency = 1
	}
	if co.maxInFlight < co.concurrency {
		co.maxInFlight = co.concurrency
	}
	return co
}

func WithName(name string) ConsumeOption {
	return func(o *consumeOptions) { o.name = name }
}

// WithConcurrency sets how many handlers run in parallel.
func WithConcurrency(n int) ConsumeOption {
	return func(o *consumeOptions) { o.concurrency = n }
}

// WithMaxInFlight caps unacknowledged messages; never below the concurrency.
func WithMaxInFlight(n int) ConsumeOption {
	return func(o *consumeOptions) { o.maxInFlight = n }
}

// WithManualAck leaves Ack/Nack to the handler.
func WithManualAck() ConsumeOption {
	return func(o *consumeOptions) { o.manualAck = true }
}
