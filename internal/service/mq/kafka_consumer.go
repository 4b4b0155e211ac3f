package mq

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"relay-core/pkg/logger"
)

// KafkaConsumer implements Consumer on a kafka-go Reader with manual offset
// commits.
type KafkaConsumer struct {
	brokers []string
	groupID string
	reader  *kafka.Reader
}

func NewKafkaConsumer(brokers []string, groupID string) *KafkaConsumer {
	return &KafkaConsumer{
		brokers: brokers,
		groupID: groupID,
	}
}

func (c *KafkaConsumer) Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error {
	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.brokers,
		GroupID:     c.groupID,
		Topic:       topic,
		MinBytes:    10e3,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})

	logger.Info("kafka consumer subscribed",
		zap.String("topic", topic), zap.String("group", c.groupID))

	go c.consumeLoop(ctx, topic, handler)
	return nil
}

func (c *KafkaConsumer) consumeLoop(ctx context.Context, topic string, handler func(msg *Message) error) {
	defer c.reader.Close()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("kafka fetch failed", zap.String("topic", topic), zap.Error(err))
			time.Sleep(1 * time.Second)
			continue
		}

		msg := &Message{
			ID:      string(m.Key),
			Topic:   topic,
			Key:     string(m.Key),
			Payload: m.Value,
		}

		// Failed events are left uncommitted and redelivered; the handler
		// must be idempotent.
		if err := handler(msg); err != nil {
			logger.Warn("reconciliation handler failed",
				zap.String("topic", topic), zap.Error(err))
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			logger.Warn("kafka offset commit failed",
				zap.String("topic", topic), zap.Error(err))
		}
	}
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
