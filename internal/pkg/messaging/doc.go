// Package messaging publishes and consumes events over one of several brokers
// (Kafka, NATS, NSQ, RabbitMQ, Google Pub/Sub) behind a single Messaging API.
//
// Consumers are at-least-once: with auto-ack a handler error nacks the message
// so the broker can redeliver it. Handlers must tolerate duplicates.
package messaging
