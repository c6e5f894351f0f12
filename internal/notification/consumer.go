package notification

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/fixora/spaceships/internal/domain"
	"github.com/fixora/spaceships/internal/ports"
)

// AuditConsumer records every delivered notification in the audit log
type AuditConsumer struct {
	subscriber ports.MessageSubscriber
	auditRepo  ports.AuditLogRepository
	queue      string
	logger     *logrus.Entry
	handled    atomic.Int64
}

// NewAuditConsumer creates a consumer of queue
func NewAuditConsumer(subscriber ports.MessageSubscriber, auditRepo ports.AuditLogRepository, queue string, logger logrus.FieldLogger) *AuditConsumer {
	return &AuditConsumer{
		subscriber: subscriber,
		auditRepo:  auditRepo,
		queue:      queue,
		logger: logger.WithFields(logrus.Fields{
			"component": "audit_consumer",
			"queue":     queue,
		}),
	}
}

// Run consumes until ctx is done
func (c *AuditConsumer) Run(ctx context.Context) error {
	c.logger.Info("Audit consumer started")
	defer c.logger.Info("Audit consumer stopped")

	if err := c.subscriber.Subscribe(ctx, c.queue, c.Handle); err != nil {
		return fmt.Errorf("audit consumer: %w", err)
	}
	return nil
}

// Handle appends one audit entry. Returning an error leaves the message to be
// delivered again, so an entry may be recorded more than once.
func (c *AuditConsumer) Handle(ctx context.Context, msg ports.Message) error {
	c.logger.WithField("message_id", msg.ID).Infof("Received Message: %s", msg.Body)

	entry := domain.NewAuditLogEntry(msg.Body)
	if err := c.auditRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	c.handled.Add(1)
	return nil
}

// Handled returns the number of messages recorded by this consumer
func (c *AuditConsumer) Handled() int64 {
	return c.handled.Load()
}
