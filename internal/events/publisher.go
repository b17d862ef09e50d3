// internal/events/publisher.go
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// QueueName is the durable queue the notification consumer reads from.
const QueueName = "loan_notifications"

const defaultRetryInterval = 5 * time.Second

// ErrNotConnected is returned by Publish while the broker connection is down.
// The event is dropped; the broker redelivers nothing that was never enqueued,
// which is acceptable for best-effort notifications.
var ErrNotConnected = errors.New("broker not connected")

// ConnState is the publisher's connection lifecycle state.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
}

// connection is the subset of *amqp.Connection the publisher uses.
type connection interface {
	Channel() (channel, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	Close() error
}

type dialFunc func(url string) (connection, error)

type amqpConnection struct {
	*amqp.Connection
}

func (c *amqpConnection) Channel() (channel, error) {
	return c.Connection.Channel()
}

func amqpDial(url string) (connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return &amqpConnection{conn}, nil
}

// AMQPPublisher publishes domain events to a durable queue. It owns one
// process-wide connection and keeps it alive with a timed reconnect loop:
// on startup or any transport failure it re-enters CONNECTING, waits a fixed
// interval and retries indefinitely. Publish is safe for concurrent use.
type AMQPPublisher struct {
	url           string
	dial          dialFunc
	retryInterval time.Duration
	logger        *zap.Logger

	mu    sync.Mutex
	state ConnState
	conn  connection
	ch    channel

	done chan struct{}
	wg   sync.WaitGroup
}

// NewAMQPPublisher creates a publisher for the given broker URL. The
// connection is not established until Start is called.
func NewAMQPPublisher(url string, logger *zap.Logger) *AMQPPublisher {
	return newAMQPPublisher(url, amqpDial, logger)
}

func newAMQPPublisher(url string, dial dialFunc, logger *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		url:           url,
		dial:          dial,
		retryInterval: defaultRetryInterval,
		logger:        logger,
		state:         Disconnected,
		done:          make(chan struct{}),
	}
}

// Start launches the connection manager and returns immediately.
func (p *AMQPPublisher) Start() {
	p.wg.Add(1)
	go p.manage()
}

// Shutdown closes the connection and stops the reconnect loop.
func (p *AMQPPublisher) Shutdown() {
	close(p.done)
	p.mu.Lock()
	if p.conn != nil {
		p.conn.Close()
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// State reports the current connection state.
func (p *AMQPPublisher) State() ConnState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Publish enqueues the event to the notification queue. It fails fast with
// ErrNotConnected while the connection is down instead of blocking the caller
// behind the reconnect loop.
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	ch := p.ch
	state := p.state
	p.mu.Unlock()

	if state != Connected || ch == nil {
		return ErrNotConnected
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return ch.PublishWithContext(ctx, "", QueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

func (p *AMQPPublisher) manage() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		default:
		}

		p.setState(Connecting)
		conn, ch, err := p.connect()
		if err != nil {
			p.logger.Warn("broker connect failed",
				zap.Error(err),
				zap.Duration("retry_in", p.retryInterval),
			)
			select {
			case <-p.done:
				return
			case <-time.After(p.retryInterval):
			}
			continue
		}

		// An AMQP exception can close just the channel while the connection
		// stays open, so both must be watched; either one failing re-enters
		// the reconnect loop.
		connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
		chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

		p.mu.Lock()
		p.conn = conn
		p.ch = ch
		p.state = Connected
		p.mu.Unlock()

		p.logger.Info("connected to broker", zap.String("queue", QueueName))

		select {
		case <-p.done:
			conn.Close()
			return
		case amqpErr := <-connClosed:
			p.logger.Warn("broker connection lost", zap.Error(amqpErr))
		case amqpErr := <-chClosed:
			p.logger.Warn("broker channel lost", zap.Error(amqpErr))
			conn.Close()
		}

		p.mu.Lock()
		p.conn = nil
		p.ch = nil
		p.state = Disconnected
		p.mu.Unlock()
	}
}

func (p *AMQPPublisher) connect() (connection, channel, error) {
	conn, err := p.dial(p.url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("declare queue: %w", err)
	}

	return conn, ch, nil
}

func (p *AMQPPublisher) setState(s ConnState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}
