package booking

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/speakup/internal/cache"
	"github.com/magabrotheeeer/speakup/internal/rabbitmq"
)

// InvalidateForEvent помечает устаревшими коллекции, затронутые событием бэкенда.
// Так изменения, сделанные другой стороной, становятся видны без ожидания TTL.
func InvalidateForEvent(ctx context.Context, c cache.Cache, ev rabbitmq.Event) error {
	const op = "booking.InvalidateForEvent"
	keys := []string{
		cache.MentorBookingsKey(ev.MentorID),
		cache.LearnerBookingsKey(ev.LearnerID),
	}
	if ev.Kind == rabbitmq.KindCreated {
		keys = append(keys, cache.SlotsKey(ev.MentorID))
	}
	if err := c.Invalidate(ctx, keys...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
