package messaging

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fixora/spaceships/internal/ports"
)

// ErrTransportClosed is returned when publishing to a closed transport
var ErrTransportClosed = errors.New("message transport closed")

// MemoryTransport is an in-process queue made of buffered channels. Messages
// do not survive a restart and are only visible inside the process.
type MemoryTransport struct {
	mu         sync.Mutex
	queues     map[string]chan ports.Message
	bufferSize int
	retryDelay time.Duration
	closed     bool
}

var _ ports.MessageTransport = (*MemoryTransport)(nil)

// NewMemoryTransport creates a transport whose queues hold bufferSize messages
func NewMemoryTransport(bufferSize int, retryDelay time.Duration) *MemoryTransport {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &MemoryTransport{
		queues:     make(map[string]chan ports.Message),
		bufferSize: bufferSize,
		retryDelay: retryDelay,
	}
}

func (t *MemoryTransport) queue(name string) (chan ports.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrTransportClosed
	}

	ch, ok := t.queues[name]
	if !ok {
		ch = make(chan ports.Message, t.bufferSize)
		t.queues[name] = ch
	}
	return ch, nil
}

// Publish blocks until the queue has room or ctx is done
func (t *MemoryTransport) Publish(ctx context.Context, queue string, msg ports.Message) error {
	ch, err := t.queue(queue)
	if err != nil {
		return err
	}

	select {
	case ch <- msg:
		return nil
	default:
	}

	select {
	case ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe hands messages to handler until ctx is done. A failed message is
// retried after the retry delay before the next one is taken.
func (t *MemoryTransport) Subscribe(ctx context.Context, queue string, handler ports.MessageHandler) error {
	ch, err := t.queue(queue)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-ch:
			for handler(ctx, msg) != nil {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(t.retryDelay):
				}
			}
		}
	}
}

// Pending returns the number of undelivered messages on queue
func (t *MemoryTransport) Pending(queue string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queues[queue])
}

// Close rejects further publishes
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
