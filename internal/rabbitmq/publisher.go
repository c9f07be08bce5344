package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/speakup/internal/lib/sl"
)

// Channel - часть amqp.Channel, нужная для публикации.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// PublishMessage публикует сообщение в формате JSON с постоянной доставкой.
func PublishMessage(ch Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Publisher публикует события бронирований в exchange.
type Publisher struct {
	ch       Channel
	exchange string
	log      *slog.Logger
}

// NewPublisher создаёт издателя событий поверх открытого канала.
func NewPublisher(ch Channel, exchange string, log *slog.Logger) *Publisher {
	return &Publisher{ch: ch, exchange: exchange, log: log}
}

// Publish отправляет событие. Ошибка публикации не отменяет уже сохранённое изменение,
// поэтому вызывающий код лишь логирует её.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	const op = "rabbitmq.Publisher.Publish"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := PublishMessage(p.ch, p.exchange, ev.RoutingKey(), ev); err != nil {
		p.log.Error("failed to publish booking event",
			slog.String("op", op),
			slog.String("routing_key", ev.RoutingKey()),
			sl.Err(err),
		)
		return err
	}
	p.log.Debug("booking event published",
		slog.String("op", op),
		slog.String("routing_key", ev.RoutingKey()),
		slog.Int64("booking_id", ev.BookingID),
	)
	return nil
}

// NopPublisher используется, когда шина событий не настроена.
type NopPublisher struct{}

// Publish ничего не делает.
func (NopPublisher) Publish(context.Context, Event) error { return nil }
