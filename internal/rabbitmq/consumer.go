package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/speakup/internal/lib/sl"
)

// ConsumerMessage запускает потребителя очереди. Каждое сообщение обрабатывается
// в отдельной горутине, не более prefetch одновременно.
func ConsumerMessage(ctx context.Context, log *slog.Logger, ch *amqp.Channel, queueName string, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("op", op), slog.String("queue", queueName))
	sem := make(chan struct{}, prefetch)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					handleDelivery(log, d, handler)
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// handleDelivery подтверждает обработанное сообщение. После первой ошибки
// сообщение возвращается в очередь один раз, после повторной отбрасывается:
// инвалидация кэша подстрахована его TTL.
func handleDelivery(log *slog.Logger, d amqp.Delivery, handler func([]byte) error) {
	err := handler(d.Body)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			log.Error("failed to ack message", sl.Err(ackErr))
		}
		return
	}

	requeue := !d.Redelivered
	if requeue {
		log.Warn("message handler failed, requeueing once", sl.Err(err))
	} else {
		log.Error("message handler failed again, dropping message", slog.String("routing_key", d.RoutingKey), sl.Err(err))
	}
	if nackErr := d.Nack(false, requeue); nackErr != nil {
		log.Error("failed to nack message", sl.Err(nackErr))
	}
}

// DecodeEvent разбирает тело сообщения в Event.
func DecodeEvent(body []byte) (Event, error) {
	const op = "rabbitmq.DecodeEvent"
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, fmt.Errorf("%s: %w", op, err)
	}
	if ev.BookingID == 0 || ev.Kind == "" {
		return Event{}, fmt.Errorf("%s: incomplete event", op)
	}
	return ev, nil
}
