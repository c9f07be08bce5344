package rabbitmq

// QueueConfig описывает очередь и ключ, которым она привязана к exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// BookingQueues возвращает очереди подписчика событий бронирований.
// Одна очередь получает все события через шаблон booking.*.
func BookingQueues(queue string) []QueueConfig {
	return []QueueConfig{
		{QueueName: queue, RoutingKey: RoutingPrefix + "*"},
	}
}
