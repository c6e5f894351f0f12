// Package notification carries the fire-and-forget audit notifications from
// the write path to the audit trail.
package notification

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fixora/spaceships/internal/ports"
)

// ProducerConfig configuration untuk notification producer
type ProducerConfig struct {
	Queue string
	// BufferSize bounds the messages waiting for the forwarder
	BufferSize int
	// PublishRetries is the number of extra attempts per message
	PublishRetries int
	// RetryBackoff is the delay before the first retry, doubled on each one
	RetryBackoff time.Duration
	// DrainTimeout bounds the flush of buffered messages on shutdown
	DrainTimeout time.Duration
}

// Producer hands notification texts to a transport without blocking the
// caller. A single forwarder started with Run publishes them in order.
type Producer struct {
	publisher ports.MessagePublisher
	config    ProducerConfig
	buffer    chan ports.Message
	logger    *logrus.Entry
	// mu guards stopped so no message enters the buffer after the final drain
	mu        sync.RWMutex
	stopped   bool
	dropped   atomic.Int64
	published atomic.Int64
}

var _ ports.Notifier = (*Producer)(nil)

// NewProducer creates a producer publishing to config.Queue
func NewProducer(publisher ports.MessagePublisher, config ProducerConfig, logger logrus.FieldLogger) *Producer {
	if config.BufferSize <= 0 {
		config.BufferSize = 256
	}
	if config.PublishRetries < 0 {
		config.PublishRetries = 0
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = 5 * time.Second
	}

	return &Producer{
		publisher: publisher,
		config:    config,
		buffer:    make(chan ports.Message, config.BufferSize),
		logger: logger.WithFields(logrus.Fields{
			"component": "notification_producer",
			"queue":     config.Queue,
		}),
	}
}

// Enqueue buffers text for publishing. When the buffer is full, or Run has
// already stopped, the message is dropped and logged.
func (p *Producer) Enqueue(text string) {
	msg := ports.Message{
		ID:          uuid.NewString(),
		Body:        text,
		PublishedAt: time.Now().UTC(),
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		p.dropped.Add(1)
		p.logger.WithFields(logrus.Fields{
			"message_id": msg.ID,
			"body":       text,
		}).Warn("Notification producer stopped, dropping message")
		return
	}

	select {
	case p.buffer <- msg:
	default:
		p.dropped.Add(1)
		p.logger.WithFields(logrus.Fields{
			"message_id": msg.ID,
			"body":       text,
		}).Warn("Notification buffer full, dropping message")
	}
}

// Run forwards buffered messages until ctx is done, then drains what is left
// within the drain timeout
func (p *Producer) Run(ctx context.Context) error {
	p.logger.Info("Notification producer started")

	for {
		if ctx.Err() != nil {
			break
		}

		select {
		case <-ctx.Done():
		case msg := <-p.buffer:
			p.publish(ctx, msg)
		}
	}

	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	p.drain()
	p.logger.Info("Notification producer stopped")
	return nil
}

func (p *Producer) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.DrainTimeout)
	defer cancel()

	for {
		select {
		case msg := <-p.buffer:
			if ctx.Err() != nil {
				p.dropped.Add(1)
				p.logger.WithField("message_id", msg.ID).Warn("Drain timeout reached, dropping message")
				continue
			}
			p.publish(ctx, msg)
		default:
			return
		}
	}
}

func (p *Producer) publish(ctx context.Context, msg ports.Message) {
	log := p.logger.WithField("message_id", msg.ID)
	backoff := p.config.RetryBackoff

	var err error
	for attempt := 0; attempt <= p.config.PublishRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		if err = p.publisher.Publish(ctx, p.config.Queue, msg); err == nil {
			p.published.Add(1)
			log.Debug("Notification published")
			return
		}

		log.WithError(err).WithField("attempt", attempt+1).Warn("Failed to publish notification")
		if ctx.Err() != nil {
			break
		}
	}

	p.dropped.Add(1)
	log.WithError(err).WithField("body", msg.Body).Error("Dropping notification after failed publish")
}

// Pending returns the number of buffered messages
func (p *Producer) Pending() int {
	return len(p.buffer)
}

// Dropped returns the number of messages lost to a full buffer or a failed
// publish
func (p *Producer) Dropped() int64 {
	return p.dropped.Load()
}

// Published returns the number of messages handed to the transport
func (p *Producer) Published() int64 {
	return p.published.Load()
}
