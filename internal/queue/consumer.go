package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const notificationLog = "notifications.log"

// StartNotificationConsumer connects to the broker at url, declares the
// durable notification queues, and consumes both of them, appending each
// message to logs/notifications.log in a single-line, human-friendly
// format.  It runs a reconnect loop with exponential backoff and never
// returns; processing errors are logged and the offending message
// rejected without requeue so a poison message cannot wedge the consumer.
func StartNotificationConsumer(url string, log zerolog.Logger) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("notification consumer: dial broker failed")
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, log); err != nil {
			log.Warn().Err(err).Msg("notification consumer: consume loop ended, reconnecting")
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, log zerolog.Logger) error {
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn().Err(err).Msg("notification consumer: set QoS failed")
	}

	for _, name := range []string{OTPIssuedQueue, AppointmentConfirmedQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
	}

	otpMsgs, err := ch.Consume(OTPIssuedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", OTPIssuedQueue, err)
	}
	confirmMsgs, err := ch.Consume(AppointmentConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", AppointmentConfirmedQueue, err)
	}

	for {
		select {
		case d, ok := <-otpMsgs:
			if !ok {
				return errors.New("otp deliveries channel closed")
			}
			ack(d, handleOTPIssued(d.Body), log)
		case d, ok := <-confirmMsgs:
			if !ok {
				return errors.New("confirmation deliveries channel closed")
			}
			ack(d, handleConfirmed(d.Body), log)
		}
	}
}

func ack(d amqp.Delivery, err error, log zerolog.Logger) {
	if err != nil {
		log.Error().Err(err).Str("queue", d.RoutingKey).Msg("notification consumer: handle message failed")
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

func handleOTPIssued(body []byte) error {
	var ev OTPIssuedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] OTP issued | appointment=%s | user_id=%d | code=%s | expires_at=%s\n",
		time.Now().UTC().Format(time.RFC3339), ev.PublicID, ev.UserID, ev.Code, ev.ExpiresAt)
	return appendLine(line)
}

func handleConfirmed(body []byte) error {
	var ev AppointmentConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Appointment confirmed | appointment=%s | user_id=%d | doctor_id=%d | slot_id=%d\n",
		ev.ConfirmedAt, ev.PublicID, ev.UserID, ev.DoctorID, ev.AvailabilityID)
	return appendLine(line)
}

func appendLine(line string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", notificationLog), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
