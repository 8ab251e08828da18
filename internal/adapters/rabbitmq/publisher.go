// Package rabbitmq delivers booking confirmations through a topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"travel_booking/internal/adapters/notify"
	"travel_booking/internal/domain"
)

const (
	ExchangeName = "bookings"
	ExchangeKind = "topic"
)

type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	return &Publisher{conn: conn, channel: ch}, nil
}

func (p *Publisher) Name() string { return "amqp" }

// RoutingKey is booking.confirmed.<kind>, e.g. booking.confirmed.hotel.
func RoutingKey(b domain.Booking) string {
	return "booking.confirmed." + string(b.Kind)
}

func message(b domain.Booking) (amqp.Publishing, error) {
	body, err := json.Marshal(notify.NewConfirmation(b))
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal confirmation: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    b.ID,
		Timestamp:    b.CreatedAt,
		Body:         body,
	}, nil
}

// Notify publishes the booking's confirmation.
func (p *Publisher) Notify(ctx context.Context, b domain.Booking) error {
	msg, err := message(b)
	if err != nil {
		return err
	}
	key := RoutingKey(b)
	if err := p.channel.PublishWithContext(ctx, ExchangeName, key, false, false, msg); err != nil {
		return fmt.Errorf("publish confirmation: %w", err)
	}

	log.Debug().Str("exchange", ExchangeName).Str("key", key).Str("booking", b.ID).Msg("confirmation published")
	return nil
}

func (p *Publisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
