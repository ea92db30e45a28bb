package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"budgets/internal/core"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	baseBackoff    = time.Second
	maxBackoff     = 30 * time.Second
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// publisher is the part of *amqp091.Channel the client publishes through.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Client publishes notifications to a durable direct exchange. It
// reconnects lazily after connection errors and stops trying for a while
// once too many publishes fail in a row.
type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel publisher
	dial    func() (publisher, error)

	failureCount int64
	state        int32
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	c.dial = c.connect

	ch, err := c.dial()
	if err != nil {
		return nil, err
	}
	c.channel = ch
	return c, nil
}

// NewClientWithRetry dials until it succeeds, attempts run out, or ctx ends.
func NewClientWithRetry(ctx context.Context, url, exchangeName, queueName string, attempts int) (*Client, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		c, err := NewClient(url, exchangeName, queueName)
		if err == nil {
			return c, nil
		}
		lastErr = err
		wait := exponentialBackoff(i)
		slog.WarnContext(ctx, "AMQP connection failed, retrying",
			"attempt", i+1,
			"wait", wait,
			"error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("connect to AMQP after %d attempts: %w", attempts, lastErr)
}

func (c *Client) connect() (publisher, error) {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.conn = conn
	return channel, nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// routing key is the queue name
	if err := ch.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Deliver publishes n as a persistent JSON message. The event id doubles as
// MessageId so consumers can drop duplicates from relay retries.
func (c *Client) Deliver(ctx context.Context, n core.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("deliver notification %s: %w", n.EventID, ErrCircuitOpen)
	}

	body, err := NewNotificationMessage(n).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = c.publish(ctx, n.EventID, body)
	if err != nil && isConnectionError(err) {
		c.resetChannel()
		err = c.publish(ctx, n.EventID, body)
	}
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish notification %s: %w", n.EventID, err)
	}

	c.recordSuccess()
	slog.DebugContext(ctx, "Published notification",
		"event_id", n.EventID,
		"user_id", n.UserID,
		"exchange", c.exchangeName)
	return nil
}

func (c *Client) publish(ctx context.Context, messageID string, body []byte) error {
	c.mu.Lock()
	ch := c.channel
	if ch == nil {
		if c.dial == nil {
			c.mu.Unlock()
			return errors.New("AMQP connection closed")
		}
		var err error
		ch, err = c.dial()
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.channel = ch
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

func (c *Client) resetChannel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// exponentialBackoff returns 1s, 2s, 4s ... capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	d := baseBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dial = nil
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
