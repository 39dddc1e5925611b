// This file contains the background consumer that listens to the booking
// queues and appends one line per event to the booking log.
package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/rs/zerolog/log"
)

// StartBookingConsumer connects to the broker at url, declares both booking
// queues (durable) and consumes them until ctx is canceled.  Each event is
// appended to logPath.  Dial failures and closed channels are retried with a
// capped backoff; a message that cannot be handled is rejected without
// requeue so a poison message cannot spin the loop.
func StartBookingConsumer(ctx context.Context, url, logPath string) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Warn().Err(err).Dur("retry_in", backoff).Msg("booking-consumer: dial failed")
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, logPath)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn().Err(err).Msg("booking-consumer: consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logPath string) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warn().Err(err).Msg("booking-consumer: set QoS failed")
    }

    confirmed, err := declareAndConsume(ch, BookingConfirmedQueue)
    if err != nil {
        return err
    }
    canceled, err := declareAndConsume(ch, BookingCanceledQueue)
    if err != nil {
        return err
    }
    log.Info().Str("log_path", logPath).Msg("booking-consumer: consuming")

    for {
        var (
            d  amqp.Delivery
            ok bool
            q  string
        )
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok = <-confirmed:
            q = BookingConfirmedQueue
        case d, ok = <-canceled:
            q = BookingCanceledQueue
        }
        if !ok {
            return errors.New("deliveries channel closed")
        }
        if err := handleMessage(q, d.Body, logPath); err != nil {
            log.Error().Err(err).Str("queue", q).Msg("booking-consumer: handle message failed")
            _ = d.Nack(false, false)
            continue
        }
        _ = d.Ack(false)
    }
}

func declareAndConsume(ch *amqp.Channel, name string) (<-chan amqp.Delivery, error) {
    if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
        return nil, fmt.Errorf("queue declare %s: %w", name, err)
    }
    msgs, err := ch.Consume(name, "", false, false, false, false, nil)
    if err != nil {
        return nil, fmt.Errorf("queue consume %s: %w", name, err)
    }
    return msgs, nil
}

// handleMessage decodes body according to the queue it came from and appends
// a single log line.
func handleMessage(queueName string, body []byte, logPath string) error {
    var line string
    switch queueName {
    case BookingConfirmedQueue:
        var ev BookingConfirmedEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        line = fmt.Sprintf("[%s] Booking confirmed | booking_id=%d | user_id=%d | user=%q | place_id=%d | place=%q | dates=%s..%s | nights=%d | payment_id=%d | amount=%.2f\n",
            ev.ConfirmedAt, ev.BookingID, ev.UserID, ev.Username, ev.PlaceID, ev.PlaceName, ev.StartDate, ev.EndDate, ev.Nights, ev.PaymentID, ev.Amount)
    case BookingCanceledQueue:
        var ev BookingCanceledEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        line = fmt.Sprintf("[%s] Booking canceled | booking_id=%d | user_id=%d | user=%q | place_id=%d | previous_status=%s | payment_removed=%t\n",
            ev.CanceledAt, ev.BookingID, ev.UserID, ev.Username, ev.PlaceID, ev.PreviousStatus, ev.PaymentRemoved)
    default:
        return fmt.Errorf("unknown queue %q", queueName)
    }

    if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", filepath.Dir(logPath), err)
    }
    f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}
