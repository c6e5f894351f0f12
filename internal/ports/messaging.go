package ports

import (
	"context"
	"time"
)

// Message is a notification handed to a transport
type Message struct {
	ID          string    `json:"id"`
	Body        string    `json:"body"`
	PublishedAt time.Time `json:"published_at"`
}

// MessageHandler processes one delivered message. A non-nil error leaves the
// message unacknowledged so it is delivered again.
type MessageHandler func(ctx context.Context, msg Message) error

// MessagePublisher defines the sending side of a queue
type MessagePublisher interface {
	Publish(ctx context.Context, queue string, msg Message) error
}

// MessageSubscriber defines the receiving side of a queue
type MessageSubscriber interface {
	// Subscribe delivers messages to handler one at a time and blocks until
	// ctx is done
	Subscribe(ctx context.Context, queue string, handler MessageHandler) error
}

// MessageTransport is a queue both ends can use
type MessageTransport interface {
	MessagePublisher
	MessageSubscriber
	Close() error
}

// Notifier accepts notification text without blocking the caller
type Notifier interface {
	Enqueue(text string)
}
