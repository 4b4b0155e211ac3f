package mq

import "context"

// Message is one reconciliation event as it travels through the broker.
type Message struct {
	ID       string            // broker-assigned id (e.g. Redis Stream ID)
	Topic    string            // e.g. "relay.mirror.failures"
	Key      string            // partition key, usually the signer address
	Payload  []byte            // JSON body
	Metadata map[string]string // optional broker metadata
}

// Producer publishes reconciliation events.
type Producer interface {
	// Publish sends one message. key selects the partition so events for
	// the same signer stay ordered; empty means any partition.
	Publish(ctx context.Context, topic string, key string, payload []byte) error
}

// Consumer subscribes to reconciliation events.
type Consumer interface {
	// Subscribe delivers messages to handler. A handler error leaves the
	// message unacknowledged for redelivery.
	Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error

	Close() error
}
