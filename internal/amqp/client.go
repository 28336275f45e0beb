// Package amqp moves report export requests and rate change events between
// the dashboard and the worker.
package amqp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"payboard/internal/core"
	"payboard/internal/log"
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

// Publisher sends messages to the worker queue.
type Publisher interface {
	PublishReportExport(ctx context.Context, filter core.FetchFilter) (string, error)
	PublishRatesChanged(ctx context.Context, rates core.PayoutRates) error
}

// Handler processes consumed messages. Returning an error requeues the
// delivery.
type Handler interface {
	HandleReportExport(ctx context.Context, msg *ReportExportMessage) error
	HandleRatesChanged(ctx context.Context, msg *RatesChangedMessage) error
}

type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	cbMu         sync.Mutex
	lastFailure  time.Time
}

var _ Publisher = (*Client)(nil)

// NewClient connects to the broker and declares the exchange and queue.
func NewClient(url, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}
	if _, err := c.ensureChannel(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) log() *log.Logger {
	if c.logger == nil {
		return log.Discard()
	}
	return c.logger
}

func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil && c.conn != nil && !c.conn.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()

	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	c.conn, c.channel = conn, channel
	if err := c.setup(); err != nil {
		c.closeLocked()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return channel, nil
}

func (c *Client) setup() error {
	if err := c.channel.ExchangeDeclare(
		c.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := c.channel.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Direct exchange: the queue name doubles as routing key.
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishReportExport queues a spreadsheet export and returns the message id.
func (c *Client) PublishReportExport(ctx context.Context, filter core.FetchFilter) (string, error) {
	msg := NewReportExportMessage(filter)
	body, err := msg.ToJSON()
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, TypeReportExport, msg.ID, body); err != nil {
		return "", err
	}
	c.log().InfoContext(ctx, "Published report export request",
		log.FieldMessageID, msg.ID,
		log.FieldFilterKey, msg.Filter.Key())
	return msg.ID, nil
}

// PublishRatesChanged announces a committed rate change.
func (c *Client) PublishRatesChanged(ctx context.Context, rates core.PayoutRates) error {
	msg := NewRatesChangedMessage(rates)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, TypeRatesChanged, msg.ID, body); err != nil {
		return err
	}
	c.log().InfoContext(ctx, "Published rates changed event",
		log.FieldMessageID, msg.ID,
		log.FieldRateNews, msg.News,
		log.FieldRateBlog, msg.Blog)
	return nil
}

func (c *Client) publish(ctx context.Context, msgType, id string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: circuit breaker is open", msgType)
	}

	channel, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = channel.PublishWithContext(ctx,
		c.exchangeName,
		c.queueName,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Type:         msgType,
			MessageId:    id,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.reset()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()
	return nil
}

// Consume dispatches deliveries to h until ctx is done, reconnecting with
// exponential backoff when the broker goes away.
func (c *Client) Consume(ctx context.Context, h Handler) error {
	attempt := 0
	for {
		msgs, err := c.startConsuming()
		if err != nil {
			wait := exponentialBackoff(attempt)
			attempt++
			c.log().WarnContext(ctx, "Failed to start consuming, retrying",
				log.FieldError, err.Error(),
				"retry_in", wait.String())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		attempt = 0

		c.log().InfoContext(ctx, "Started consuming messages", "queue", c.queueName)
		c.drain(ctx, msgs, h)
		if ctx.Err() != nil {
			c.log().InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		c.log().WarnContext(ctx, "Message channel closed, reconnecting")
		c.reset()
	}
}

func (c *Client) startConsuming() (<-chan amqp091.Delivery, error) {
	channel, err := c.ensureChannel()
	if err != nil {
		return nil, err
	}
	msgs, err := channel.Consume(
		c.queueName,
		"",    // consumer
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("start consuming: %w", err)
	}
	return msgs, nil
}

func (c *Client) drain(ctx context.Context, msgs <-chan amqp091.Delivery, h Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}
			c.dispatch(ctx, d, h)
		}
	}
}

// dispatch acks handled deliveries, requeues handler failures and drops
// deliveries that cannot be decoded.
func (c *Client) dispatch(ctx context.Context, d amqp091.Delivery, h Handler) {
	var err error
	switch d.Type {
	case TypeReportExport:
		msg, decodeErr := ReportExportMessageFromJSON(d.Body)
		if decodeErr != nil {
			c.drop(ctx, d, decodeErr)
			return
		}
		err = h.HandleReportExport(ctx, msg)
	case TypeRatesChanged:
		msg, decodeErr := RatesChangedMessageFromJSON(d.Body)
		if decodeErr != nil {
			c.drop(ctx, d, decodeErr)
			return
		}
		err = h.HandleRatesChanged(ctx, msg)
	default:
		c.drop(ctx, d, fmt.Errorf("unknown message type %q", d.Type))
		return
	}

	if err != nil {
		c.log().ErrorContext(ctx, "Failed to handle message",
			log.FieldError, err.Error(),
			log.FieldMessageID, d.MessageId,
			"type", d.Type)
		d.Nack(false, true)
		return
	}
	d.Ack(false)
	c.log().InfoContext(ctx, "Processed message",
		log.FieldOperation, log.OpConsume,
		log.FieldMessageID, d.MessageId,
		"type", d.Type)
}

func (c *Client) drop(ctx context.Context, d amqp091.Delivery, err error) {
	c.log().ErrorContext(ctx, "Dropping undecodable message",
		log.FieldError, err.Error(),
		log.FieldMessageID, d.MessageId)
	d.Nack(false, false)
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.cbMu.Lock()
	last := c.lastFailure
	c.cbMu.Unlock()
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
	c.cbMu.Lock()
	c.lastFailure = time.Now()
	c.cbMu.Unlock()
	n := atomic.AddInt64(&c.failureCount, 1)
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		if atomic.SwapInt32(&c.state, StateOpen) != StateOpen {
			c.log().Warn("AMQP circuit breaker opened", "failures", n)
		}
	}
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

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
