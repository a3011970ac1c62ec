// Package amqp publishes and consumes ledger events over RabbitMQ.
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
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrBrokerUnavailable is returned while the publisher waits out the
	// backoff before dialing the broker again.
	ErrBrokerUnavailable = errors.New("broker unavailable")
	// ErrPermanent marks handler failures that redelivery cannot fix. Such
	// messages are rejected without requeue.
	ErrPermanent = errors.New("permanent failure")
)

// Permanent wraps err so consumers drop the message instead of requeueing it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

type Client struct {
	url          string
	exchangeName string
	queueName    string

	// connMu guards the connection and the publisher's redial schedule.
	connMu     sync.Mutex
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	stale      bool
	redials    int
	lastRedial time.Time
	dial       func() error
	now        func() time.Time

	state        int32
	failureCount int64
	mu           sync.Mutex
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.conn, c.channel = conn, channel
	if err := c.setup(); err != nil {
		c.closeConn()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	return nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Direct exchange: the routing key is the queue name.
	err = c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishLedgerEvent publishes a persistent JSON ledger event. It fails fast
// while the circuit breaker is open.
func (c *Client) PublishLedgerEvent(ctx context.Context, evt *LedgerEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish ledger event: %w", ErrCircuitOpen)
	}
	channel, err := c.publishChannel()
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish ledger event: %w", err)
	}

	body, err := evt.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    evt.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		if isConnectionError(err) {
			c.markStale()
		}
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	slog.InfoContext(ctx, "Published ledger event",
		"kind", evt.Kind,
		"user_id", evt.UserID,
		"transaction_id", evt.TransactionID,
		"exchange", c.exchangeName)

	return nil
}

// publishChannel returns an open channel, redialing the broker when the
// previous one was closed. Redials are spaced by Backoff.
func (c *Client) publishChannel() (*amqp091.Channel, error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.channel != nil && !c.stale && !c.channel.IsClosed() {
		return c.channel, nil
	}

	now := time.Now
	if c.now != nil {
		now = c.now
	}
	if c.redials > 0 && now().Sub(c.lastRedial) < Backoff(c.redials-1) {
		return nil, ErrBrokerUnavailable
	}

	dial := c.dial
	if dial == nil {
		dial = c.redial
	}
	c.lastRedial = now()
	if err := dial(); err != nil {
		c.redials++
		slog.Warn("AMQP redial failed", "error", err, "attempt", c.redials)
		return nil, fmt.Errorf("%w: %w", ErrBrokerUnavailable, err)
	}

	c.redials = 0
	c.stale = false
	slog.Info("AMQP publisher reconnected", "exchange", c.exchangeName)
	if c.channel == nil {
		return nil, ErrBrokerUnavailable
	}
	return c.channel, nil
}

func (c *Client) markStale() {
	c.connMu.Lock()
	c.stale = true
	c.connMu.Unlock()
}

// redial replaces the connection. Callers hold connMu.
func (c *Client) redial() error {
	c.closeConn()
	return c.connect()
}

// ConsumeLedgerEvents delivers events to handler until ctx is done or the
// channel closes. Malformed bodies and ErrPermanent failures are dropped;
// other handler failures are requeued.
func (c *Client) ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *LedgerEvent) error) error {
	c.connMu.Lock()
	channel := c.channel
	c.connMu.Unlock()
	if channel == nil {
		return errors.New("consume ledger events: channel not open")
	}
	msgs, err := channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming ledger events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}

			handleDelivery(ctx, delivery, handler)
		}
	}
}

// handleDelivery settles one message: ack on success, drop malformed bodies
// and permanent failures, requeue anything else.
func handleDelivery(ctx context.Context, delivery amqp091.Delivery, handler func(context.Context, *LedgerEvent) error) {
	evt, err := LedgerEventFromJSON(delivery.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to decode ledger event", "error", err)
		_ = delivery.Nack(false, false)
		return
	}

	if err := handler(ctx, evt); err != nil {
		requeue := !errors.Is(err, ErrPermanent)
		slog.ErrorContext(ctx, "Failed to handle ledger event",
			"error", err,
			"kind", evt.Kind,
			"transaction_id", evt.TransactionID,
			"requeue", requeue)
		_ = delivery.Nack(false, requeue)
		return
	}

	_ = delivery.Ack(false)
}

// Reconnect drops the current connection and dials again.
func (c *Client) Reconnect() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if err := c.redial(); err != nil {
		return err
	}
	c.stale = false
	c.redials = 0
	return nil
}

func (c *Client) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.closeConn()
}

func (c *Client) closeConn() error {
	var err error
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		err = c.conn.Close()
	}
	c.conn, c.channel = nil, nil
	return err
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	since := time.Since(c.lastFailure)
	c.mu.Unlock()
	if since > openTimeout {
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

// IsConnectionError reports whether err looks like a broken broker link.
func IsConnectionError(err error) bool {
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe", "channel closed"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Backoff returns the reconnect delay for the given attempt.
func Backoff(attempt int) time.Duration {
	return exponentialBackoff(attempt)
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
