// internal/notifier/consumer.go
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"campusloan/internal/events"
)

const reconnectDelay = 5 * time.Second

// errBadPayload marks deliveries that can never be processed; they are
// rejected without requeue instead of looping through the broker forever.
type errBadPayload struct{ err error }

func (e errBadPayload) Error() string { return e.err.Error() }

// Consumer reads loan notification events from the queue and emails the
// affected user. A message is acknowledged only after the email is handed to
// the sender; unacknowledged messages are redelivered by the broker, so the
// sender must tolerate duplicates.
type Consumer struct {
	url    string
	sender EmailSender
	logger *zap.Logger

	done chan struct{}
	wg   sync.WaitGroup
}

func NewConsumer(url string, sender EmailSender, logger *zap.Logger) *Consumer {
	return &Consumer{
		url:    url,
		sender: sender,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start launches the consume loop and returns immediately. The loop
// re-establishes the connection with a fixed delay after any failure.
func (c *Consumer) Start() {
	c.wg.Add(1)
	go c.run()
}

// Shutdown stops the consume loop.
func (c *Consumer) Shutdown() {
	close(c.done)
	c.wg.Wait()
}

func (c *Consumer) run() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		if err := c.consume(); err != nil {
			c.logger.Warn("consumer connection failed",
				zap.Error(err),
				zap.Duration("retry_in", reconnectDelay),
			)
		}

		select {
		case <-c.done:
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *Consumer) consume() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(events.QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	deliveries, err := ch.Consume(events.QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consume: %w", err)
	}

	c.logger.Info("waiting for notification events", zap.String("queue", events.QueueName))

	for {
		select {
		case <-c.done:
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.dispatch(d)
		}
	}
}

func (c *Consumer) dispatch(d amqp.Delivery) {
	if err := c.handle(context.Background(), d.Body); err != nil {
		if _, bad := err.(errBadPayload); bad {
			c.logger.Error("discarding unprocessable event", zap.Error(err))
			_ = d.Nack(false, false)
			return
		}
		c.logger.Warn("event processing failed, requeueing", zap.Error(err))
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

// handle decodes one event payload, renders the email and sends it.
func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var ev events.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return errBadPayload{fmt.Errorf("decode event: %w", err)}
	}

	c.logger.Info("received event", zap.String("event", ev.Event))

	subject, emailBody := Render(ev)
	if err := c.sender.Send(ctx, ev.Contact, subject, emailBody); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
