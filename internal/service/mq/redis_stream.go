package mq

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"relay-core/pkg/logger"
)

// RedisProducer implements Producer on Redis Streams. Used in development
// deployments without a Kafka cluster.
type RedisProducer struct {
	client *redis.Client
}

func NewRedisProducer(client *redis.Client) *RedisProducer {
	return &RedisProducer{client: client}
}

func (p *RedisProducer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: map[string]interface{}{
			"key":     key,
			"payload": payload,
		},
	}).Err()
	if err != nil {
		logger.Error("redis stream publish failed", zap.String("topic", topic), zap.Error(err))
		return fmt.Errorf("redis xadd error: %w", err)
	}
	return nil
}

// RedisConsumer implements Consumer on a Redis Streams consumer group.
type RedisConsumer struct {
	client *redis.Client
	group  string
	name   string
}

func NewRedisConsumer(client *redis.Client, group, name string) *RedisConsumer {
	return &RedisConsumer{
		client: client,
		group:  group,
		name:   name,
	}
}

func (c *RedisConsumer) Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error {
	err := c.client.XGroupCreateMkStream(ctx, topic, c.group, "$").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("create consumer group: %w", err)
	}

	logger.Info("redis stream consumer subscribed",
		zap.String("topic", topic), zap.String("group", c.group))

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    c.group,
				Consumer: c.name,
				Streams:  []string{topic, ">"},
				Count:    1,
				Block:    2 * time.Second,
			}).Result()

			if err == redis.Nil {
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Warn("redis stream read failed", zap.String("topic", topic), zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}

			for _, stream := range streams {
				for _, xMessage := range stream.Messages {
					val, ok := xMessage.Values["payload"].(string)
					if !ok {
						logger.Warn("redis stream message lacks payload", zap.String("id", xMessage.ID))
						c.ack(ctx, topic, xMessage.ID)
						continue
					}

					msg := &Message{
						ID:      xMessage.ID,
						Topic:   topic,
						Payload: []byte(val),
					}
					if key, ok := xMessage.Values["key"].(string); ok {
						msg.Key = key
					}

					if err := handler(msg); err != nil {
						logger.Warn("reconciliation handler failed",
							zap.String("topic", topic), zap.Error(err))
						// left pending for redelivery via XAUTOCLAIM
					} else {
						c.ack(ctx, topic, xMessage.ID)
					}
				}
			}
		}
	}
}

func (c *RedisConsumer) ack(ctx context.Context, topic, id string) {
	c.client.XAck(ctx, topic, c.group, id)
}

func (c *RedisConsumer) Close() error {
	return c.client.Close()
}
