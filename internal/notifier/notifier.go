// Package notifier publishes booking events to RabbitMQ.  Publishing is
// best effort: the booking flow must not fail because the broker is down,
// so every error is logged and swallowed, and the connection is re-dialed
// lazily on the next publish.
package notifier

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/medibook/doctor-appointment-booking/internal/queue"
)

// AMQPNotifier publishes OTP and confirmation events to their queues.
type AMQPNotifier struct {
	url string
	log zerolog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// New returns a notifier for the given broker URL.  The connection is
// established on first publish, not here, so startup does not depend on
// the broker being reachable.
func New(url string, log zerolog.Logger) *AMQPNotifier {
	return &AMQPNotifier{url: url, log: log}
}

// OTPIssued publishes the event to the OTP queue.
func (n *AMQPNotifier) OTPIssued(ctx context.Context, ev queue.OTPIssuedEvent) {
	n.publish(ctx, queue.OTPIssuedQueue, ev)
}

// AppointmentConfirmed publishes the event to the confirmation queue.
func (n *AMQPNotifier) AppointmentConfirmed(ctx context.Context, ev queue.AppointmentConfirmedEvent) {
	n.publish(ctx, queue.AppointmentConfirmedQueue, ev)
}

// Close shuts down the channel and connection if they were opened.
func (n *AMQPNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch != nil {
		_ = n.ch.Close()
		n.ch = nil
	}
	if n.conn != nil {
		_ = n.conn.Close()
		n.conn = nil
	}
}

func (n *AMQPNotifier) publish(ctx context.Context, queueName string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		n.log.Error().Err(err).Str("queue", queueName).Msg("notifier: marshal event failed")
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	ch, err := n.channel()
	if err != nil {
		n.log.Warn().Err(err).Str("queue", queueName).Msg("notifier: broker unavailable, event dropped")
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = ch.PublishWithContext(pubCtx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		// Drop the broken channel so the next publish re-dials.
		n.resetLocked()
		n.log.Warn().Err(err).Str("queue", queueName).Msg("notifier: publish failed, event dropped")
	}
}

// channel returns the cached channel, dialing and declaring queues when
// needed.  Caller must hold n.mu.
func (n *AMQPNotifier) channel() (*amqp.Channel, error) {
	if n.ch != nil && !n.ch.IsClosed() {
		return n.ch, nil
	}
	n.resetLocked()

	conn, err := amqp.Dial(n.url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	for _, name := range []string{queue.OTPIssuedQueue, queue.AppointmentConfirmedQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, err
		}
	}
	n.conn, n.ch = conn, ch
	return ch, nil
}

func (n *AMQPNotifier) resetLocked() {
	if n.ch != nil {
		_ = n.ch.Close()
		n.ch = nil
	}
	if n.conn != nil {
		_ = n.conn.Close()
		n.conn = nil
	}
}
