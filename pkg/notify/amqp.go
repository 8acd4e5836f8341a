package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"libraryms/pkg/circuitbreaker"
	"libraryms/pkg/queue"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the part of an AMQP channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Dialer opens a channel with the target queue declared.
type Dialer func(ctx context.Context) (Channel, error)

// Publisher sends events as persistent JSON messages to one durable queue.
// Messages that fail to publish are kept in a retry queue and resent by
// Flush.
type Publisher struct {
	queueName  string
	dial       Dialer
	breaker    *circuitbreaker.CircuitBreaker
	retries    *queue.Queue
	maxRetries int
	backoff    time.Duration
	now        func() time.Time

	mu sync.Mutex
	ch Channel
}

type PublisherOption func(*Publisher)

func WithDialer(d Dialer) PublisherOption {
	return func(p *Publisher) { p.dial = d }
}

func WithBreaker(cb *circuitbreaker.CircuitBreaker) PublisherOption {
	return func(p *Publisher) { p.breaker = cb }
}

func WithRetry(maxRetries int, backoff time.Duration) PublisherOption {
	return func(p *Publisher) {
		p.maxRetries = maxRetries
		p.backoff = backoff
	}
}

func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) { p.now = now }
}

func NewPublisher(url, queueName string, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		queueName:  queueName,
		dial:       AMQPDialer(url, queueName, defaultDialTimeout),
		breaker:    circuitbreaker.NewCircuitBreaker(5, 30*time.Second),
		retries:    queue.NewQueue(1000),
		maxRetries: 10,
		backoff:    10 * time.Second,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

const defaultDialTimeout = 3 * time.Second

// AMQPDialer connects to the broker at url and declares queueName durable.
// Connecting is bounded by timeout and by ctx's deadline.
func AMQPDialer(url, queueName string, timeout time.Duration) Dialer {
	return func(ctx context.Context) (Channel, error) {
		wait, err := dialTimeout(ctx, timeout)
		if err != nil {
			return nil, fmt.Errorf("dial rabbitmq: %w", err)
		}
		conn, err := amqp.DialConfig(url, amqp.Config{
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
			Dial:      amqp.DefaultDial(wait),
		})
		if err != nil {
			return nil, fmt.Errorf("dial rabbitmq: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("open channel: %w", err)
		}
		if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
		}
		return &connChannel{Channel: ch, conn: conn}, nil
	}
}

// dialTimeout is timeout shortened to the time left before ctx's deadline.
func dialTimeout(ctx context.Context, timeout time.Duration) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			if left <= 0 {
				return 0, context.DeadlineExceeded
			}
			return left, nil
		}
	}
	return timeout, nil
}

// connChannel closes the connection together with its channel.
type connChannel struct {
	*amqp.Channel
	conn *amqp.Connection
}

func (c *connChannel) Close() error {
	_ = c.Channel.Close()
	return c.conn.Close()
}

// Notify publishes e. When the broker is unreachable the message is kept
// for Flush and the error is returned for logging.
func (p *Publisher) Notify(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", e.Type, err)
	}
	msg := &queue.Message{
		ID:          e.ID,
		RoutingKey:  p.queueName,
		ContentType: "application/json",
		Body:        body,
		MaxRetries:  p.maxRetries,
	}
	if err := p.publish(ctx, msg); err != nil {
		p.requeue(msg)
		return fmt.Errorf("publish %s, kept for retry: %w", e.Type, err)
	}
	return nil
}

// Flush resends retained messages that are due. It returns how many were
// delivered.
func (p *Publisher) Flush(ctx context.Context) int {
	now := p.now()
	pending := p.retries.Size()
	sent := 0
	for i := 0; i < pending; i++ {
		msg := p.retries.Dequeue(now)
		if msg == nil {
			break
		}
		if err := p.publish(ctx, msg); err != nil {
			log.Printf("Retry of message %s failed: %v", msg.ID, err)
			p.requeue(msg)
			continue
		}
		sent++
	}
	return sent
}

// Pending is the number of messages waiting for a retry.
func (p *Publisher) Pending() int {
	return p.retries.Size()
}

// Run flushes the retry queue every interval until ctx is done.
func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := p.Flush(ctx); n > 0 {
				log.Printf("Resent %d notifications", n)
			}
		}
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	return err
}

func (p *Publisher) publish(ctx context.Context, msg *queue.Message) error {
	return p.breaker.Execute(func() error {
		ch, err := p.channel(ctx)
		if err != nil {
			return err
		}
		err = ch.PublishWithContext(ctx, "", msg.RoutingKey, false, false, amqp.Publishing{
			MessageId:    msg.ID,
			ContentType:  msg.ContentType,
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now().UTC(),
			Body:         msg.Body,
		})
		if err != nil {
			p.dropChannel(ch)
		}
		return err
	}, nil)
}

func (p *Publisher) channel(ctx context.Context) (Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		return p.ch, nil
	}
	ch, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}
	p.ch = ch
	return ch, nil
}

// dropChannel forgets ch so the next publish dials again.
func (p *Publisher) dropChannel(ch Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == ch {
		_ = p.ch.Close()
		p.ch = nil
	}
}

func (p *Publisher) requeue(msg *queue.Message) {
	msg.RetryCount++
	if msg.Exhausted() {
		log.Printf("Dropping message %s after %d attempts", msg.ID, msg.RetryCount)
		return
	}
	msg.RetryAt = p.now().Add(p.backoff)
	if dropped := p.retries.Enqueue(msg); dropped != nil {
		log.Printf("Retry queue full, dropped message %s", dropped.ID)
	}
}
