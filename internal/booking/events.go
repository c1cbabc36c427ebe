package booking

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	eventsExchange      = "booking.events"
	confirmedRoutingKey = "booking.confirmed"
)

type BookingConfirmedEvent struct {
	BookingId  string    `json:"bookingId"`
	ShowtimeId string    `json:"showtimeId"`
	UserId     string    `json:"userId"`
	Seats      []string  `json:"seats"`
	OccurredAt time.Time `json:"occurredAt"`
}

// EventPublisher emits booking lifecycle events to RabbitMQ so downstream
// consumers (notifications, analytics) can react to confirmed reservations.
// Connections are established lazily and re-dialed after a publish failure.
type EventPublisher struct {
	url    string
	logger *slog.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewEventPublisher(url string, logger *slog.Logger) *EventPublisher {
	return &EventPublisher{
		url:    url,
		logger: logger,
	}
}

func (p *EventPublisher) PublishBookingConfirmed(ctx context.Context, event BookingConfirmedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	channel, err := p.ensureChannel()
	if err != nil {
		return err
	}

	err = channel.PublishWithContext(ctx, eventsExchange, confirmedRoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return err
	}

	return nil
}

func (p *EventPublisher) ensureChannel() (*amqp.Channel, error) {
	if p.channel != nil && !p.conn.IsClosed() {
		return p.channel, nil
	}

	p.reset()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	err = channel.ExchangeDeclare(eventsExchange, "topic", true, false, false, false, nil)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	p.conn = conn
	p.channel = channel

	return channel, nil
}

func (p *EventPublisher) reset() {
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

func (p *EventPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reset()
}
