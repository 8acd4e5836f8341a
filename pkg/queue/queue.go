package queue

import (
	"sync"
	"time"
)

// Message is an undelivered notification waiting for another attempt.
type Message struct {
	ID          string
	RoutingKey  string
	ContentType string
	Body        []byte
	RetryAt     time.Time
	RetryCount  int
	MaxRetries  int
}

// Exhausted reports whether the message used up its attempts.
func (m *Message) Exhausted() bool {
	return m.MaxRetries > 0 && m.RetryCount >= m.MaxRetries
}

// Queue holds messages in arrival order. A message is handed out once its
// RetryAt has passed.
type Queue struct {
	items    []*Message
	capacity int
	mu       sync.Mutex
}

// NewQueue with capacity <= 0 is unbounded. A full queue drops its oldest
// message to make room.
func NewQueue(capacity int) *Queue {
	return &Queue{
		items:    make([]*Message, 0),
		capacity: capacity,
	}
}

// Enqueue returns the message dropped to make room, if any.
func (q *Queue) Enqueue(msg *Message) (dropped *Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.capacity > 0 && len(q.items) >= q.capacity {
		dropped = q.items[0]
		q.items = q.items[1:]
	}
	q.items = append(q.items, msg)
	return dropped
}

// Dequeue removes and returns the first message due at now, or nil.
func (q *Queue) Dequeue(now time.Time) *Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, msg := range q.items {
		if !msg.RetryAt.After(now) {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return msg
		}
	}
	return nil
}

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) GetAll() []*Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := make([]*Message, len(q.items))
	copy(result, q.items)
	return result
}
