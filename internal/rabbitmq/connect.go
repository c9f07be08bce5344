// Package rabbitmq содержит подключение к RabbitMQ и шину событий бронирований.
//
// Sandbox публикует событие после каждого изменения бронирования, портал
// подписывается на них и помечает устаревшими закэшированные коллекции.
package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/speakup/internal/config"
	"github.com/magabrotheeeer/speakup/internal/lib/sl"
)

// prefetch - сколько неподтверждённых сообщений брокер отдаёт потребителю.
// Столько же сообщений ConsumerMessage обрабатывает одновременно.
const prefetch = 10

// maxDialDelay ограничивает рост паузы между попытками подключения.
const maxDialDelay = 30 * time.Second

var dial = amqp.Dial

// Dial подключается к брокеру cfg.URL за cfg.Retries попыток. Пауза между
// попытками начинается с cfg.Delay и удваивается до maxDialDelay.
// Отмена ctx прерывает ожидание следующей попытки.
func Dial(ctx context.Context, cfg config.RabbitMQ, log *slog.Logger) (*amqp.Connection, error) {
	const op = "rabbitmq.Dial"
	attempts := max(cfg.Retries, 1)
	delay := cfg.Delay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := dial(cfg.URL)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		log.Warn("rabbitmq is not reachable, retrying",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			sl.Err(err),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(delay):
		}
		delay = min(delay*2, maxDialDelay)
	}
	return nil, fmt.Errorf("%s: %d attempts failed: %w", op, attempts, lastErr)
}

// Topology - topic-exchange событий и очереди, привязанные к нему.
// Публикующей стороне очереди не нужны.
type Topology struct {
	Exchange string
	Queues   []QueueConfig
}

// declarer - часть *amqp.Channel, которой объявляется топология.
type declarer interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// declare объявляет durable exchange и очереди. Повторное объявление с теми же
// параметрами брокер принимает без изменений.
func (t Topology) declare(ch declarer) error {
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	if err := ch.ExchangeDeclare(t.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", t.Exchange, err)
	}
	for _, q := range t.Queues {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.QueueName, err)
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, t.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s by %s: %w", q.QueueName, q.RoutingKey, err)
		}
	}
	return nil
}

// OpenChannel открывает канал и объявляет на нём топологию t.
func OpenChannel(conn *amqp.Connection, t Topology) (*amqp.Channel, error) {
	const op = "rabbitmq.OpenChannel"
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := t.declare(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ch, nil
}
