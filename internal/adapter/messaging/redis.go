package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/fixora/spaceships/internal/ports"
)

// RedisConfig configuration untuk Redis transport
type RedisConfig struct {
	// ConsumerName names this consumer's processing list
	ConsumerName string
	// PollTimeout bounds each blocking pop; Redis rounds it to whole seconds
	PollTimeout time.Duration
	// RetryDelay is the pause after a failed pop or handler
	RetryDelay time.Duration
}

// RedisTransport implements the reliable queue pattern on Redis lists.
// Publishers LPUSH, a consumer atomically moves each message into its own
// processing list with BRPOPLPUSH and removes it once handled. Messages a
// crashed consumer left in its processing list are re-queued when it starts
// again.
type RedisTransport struct {
	client *redis.Client
	config RedisConfig
	logger *logrus.Entry
}

var _ ports.MessageTransport = (*RedisTransport)(nil)

// NewRedisTransport creates a transport on client. The client stays owned by
// the caller.
func NewRedisTransport(client *redis.Client, config RedisConfig, logger logrus.FieldLogger) *RedisTransport {
	if config.ConsumerName == "" {
		config.ConsumerName = "default"
	}
	if config.PollTimeout < time.Second {
		config.PollTimeout = time.Second
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 200 * time.Millisecond
	}

	return &RedisTransport{
		client: client,
		config: config,
		logger: logger.WithField("component", "redis_transport"),
	}
}

// ProcessingKey names the list holding this consumer's in-flight messages
func (t *RedisTransport) ProcessingKey(queue string) string {
	return fmt.Sprintf("%s:processing:%s", queue, t.config.ConsumerName)
}

// Publish pushes msg onto the head of queue
func (t *RedisTransport) Publish(ctx context.Context, queue string, msg ports.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	if err := t.client.LPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Subscribe consumes queue one message at a time until ctx is done
func (t *RedisTransport) Subscribe(ctx context.Context, queue string, handler ports.MessageHandler) error {
	processing := t.ProcessingKey(queue)
	log := t.logger.WithFields(logrus.Fields{
		"queue":      queue,
		"processing": processing,
	})

	recovered, err := t.recoverProcessing(ctx, queue, processing)
	if err != nil {
		return fmt.Errorf("failed to recover in-flight messages: %w", err)
	}
	if recovered > 0 {
		log.WithField("count", recovered).Warn("Re-queued messages left by a previous run")
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		raw, err := t.client.BRPopLPush(ctx, queue, processing, t.config.PollTimeout).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			log.WithError(err).Warn("Failed to receive message")
			t.pause(ctx)
			continue
		}

		// the popped message is finished even if shutdown starts meanwhile
		t.process(context.WithoutCancel(ctx), log, queue, processing, raw, handler)
	}
}

func (t *RedisTransport) process(ctx context.Context, log *logrus.Entry, queue, processing, raw string, handler ports.MessageHandler) {
	var msg ports.Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		log.WithError(err).Error("Dropping undecodable message")
		t.ack(ctx, log, processing, raw)
		return
	}

	if err := handler(ctx, msg); err != nil {
		log.WithError(err).WithField("message_id", msg.ID).Warn("Message handler failed, message will be redelivered")
		if err := t.requeue(ctx, queue, processing, raw); err != nil {
			log.WithError(err).Error("Failed to requeue message, it stays in the processing list")
		}
		t.pause(ctx)
		return
	}

	t.ack(ctx, log, processing, raw)
}

func (t *RedisTransport) ack(ctx context.Context, log *logrus.Entry, processing, raw string) {
	if err := t.client.LRem(ctx, processing, 1, raw).Err(); err != nil {
		log.WithError(err).Warn("Failed to acknowledge message")
	}
}

// requeue moves raw from the processing list back to the tail of queue, where
// it is the next message popped
func (t *RedisTransport) requeue(ctx context.Context, queue, processing, raw string) error {
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, processing, 1, raw)
		pipe.RPush(ctx, queue, raw)
		return nil
	})
	return err
}

func (t *RedisTransport) recoverProcessing(ctx context.Context, queue, processing string) (int, error) {
	count := 0
	for {
		err := t.client.RPopLPush(ctx, processing, queue).Err()
		if err == redis.Nil {
			return count, nil
		}
		if err != nil {
			return count, err
		}
		count++
	}
}

func (t *RedisTransport) pause(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(t.config.RetryDelay):
	}
}

// Close is a no-op; the Redis client belongs to the caller
func (t *RedisTransport) Close() error {
	return nil
}
