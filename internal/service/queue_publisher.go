// This file publishes booking events to RabbitMQ.  Publishing is best-effort:
// the lifecycle service logs failures and never surfaces them to callers.
package service

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/place-reservation/internal/queue"
)

// EventPublisher delivers booking events.
type EventPublisher interface {
    PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
    PublishBookingCanceled(ctx context.Context, ev queue.BookingCanceledEvent) error
}

// NopPublisher drops every event.  It is used when EVENTS_ENABLED is false.
type NopPublisher struct{}

func (NopPublisher) PublishBookingConfirmed(context.Context, queue.BookingConfirmedEvent) error {
    return nil
}

func (NopPublisher) PublishBookingCanceled(context.Context, queue.BookingCanceledEvent) error {
    return nil
}

// defaultDialTimeout bounds the connection handshake when the caller's
// context carries no deadline.
const defaultDialTimeout = 5 * time.Second

// AMQPPublisher dials the broker per message.  Booking events are rare
// enough that a long-lived channel is not worth its reconnect handling.
type AMQPPublisher struct {
    url  string
    dial func(url string, timeout time.Duration) (*amqp.Connection, error)
}

func NewAMQPPublisher(url string) *AMQPPublisher {
    return &AMQPPublisher{url: url, dial: dialWithTimeout}
}

// dialWithTimeout connects with a deadline covering both the TCP connect and
// the AMQP handshake, so a broker that accepts but never answers cannot stall
// the caller.
func dialWithTimeout(url string, timeout time.Duration) (*amqp.Connection, error) {
    return amqp.DialConfig(url, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(timeout),
    })
}

// dialTimeout is the time left before ctx expires, or the default.
func dialTimeout(ctx context.Context) time.Duration {
    if dl, ok := ctx.Deadline(); ok {
        return time.Until(dl)
    }
    return defaultDialTimeout
}

func (p *AMQPPublisher) PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
    return p.publish(ctx, queue.BookingConfirmedQueue, ev)
}

func (p *AMQPPublisher) PublishBookingCanceled(ctx context.Context, ev queue.BookingCanceledEvent) error {
    return p.publish(ctx, queue.BookingCanceledQueue, ev)
}

func (p *AMQPPublisher) publish(ctx context.Context, queueName string, event any) error {
    body, err := json.Marshal(event)
    if err != nil {
        return fmt.Errorf("rabbitmq: marshal event: %w", err)
    }

    if err := ctx.Err(); err != nil {
        return fmt.Errorf("rabbitmq: dial: %w", err)
    }
    timeout := dialTimeout(ctx)
    if timeout <= 0 {
        return fmt.Errorf("rabbitmq: dial: %w", context.DeadlineExceeded)
    }
    conn, err := p.dial(p.url, timeout)
    if err != nil {
        return fmt.Errorf("rabbitmq: dial: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("rabbitmq: channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(
        queueName,
        true,  // durable
        false, // autoDelete
        false, // exclusive
        false, // noWait
        nil,
    ); err != nil {
        return fmt.Errorf("rabbitmq: queue declare %s: %w", queueName, err)
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    // default exchange, routing key = queue name
    if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
        return fmt.Errorf("rabbitmq: publish %s: %w", queueName, err)
    }
    return nil
}
