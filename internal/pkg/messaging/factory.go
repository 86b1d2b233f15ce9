package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	DriverNSQ          = "nsq"
	DriverNATS         = "nats"
	DriverKafka        = "kafka"
	DriverGooglePubSub = "google-pubsub"
	DriverRabbitMQ     = "rabbitmq"
)

var ErrUnknownDriver = errors.New("messaging: unknown driver")

// FactoryOptions holds one config per driver; only the selected one is read.
type FactoryOptions struct {
	NSQ      NSQConfig
	Kafka    KafkaConfig
	NATS     NATSConfig
	PubSub   PubSubConfig
	RabbitMQ RabbitMQConfig
}

func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Messaging, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverNSQ:
		return NewNSQ(opts.NSQ)
	case DriverKafka:
		return NewKafka(opts.Kafka)
	case DriverNATS:
		return NewNATS(opts.NATS)
	case DriverGooglePubSub:
		return NewPubSub(ctx, opts.PubSub)
	case DriverRabbitMQ:
		return NewRabbitMQ(opts.RabbitMQ)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
