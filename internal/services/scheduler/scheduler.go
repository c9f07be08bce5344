// Package services содержит фоновый планировщик, завершающий прошедшие занятия.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/models"
)

// Completer - часть сервиса бронирований, нужная планировщику.
type Completer interface {
	EndedConfirmed(ctx context.Context, now time.Time) ([]models.Booking, error)
	Complete(ctx context.Context, id int64) (models.Booking, error)
}

// SchedulerService периодически переводит CONFIRMED бронирования в COMPLETED,
// когда время слота истекло.
type SchedulerService struct {
	bookings Completer
	interval time.Duration
	now      func() time.Time
	log      *slog.Logger
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(bookings Completer, interval time.Duration, log *slog.Logger) *SchedulerService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SchedulerService{
		bookings: bookings,
		interval: interval,
		now:      time.Now,
		log:      log,
	}
}

// Run выполняет проход сразу и затем по таймеру, пока не отменён ctx.
func (s *SchedulerService) Run(ctx context.Context) {
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("completion scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce завершает все закончившиеся занятия и возвращает их число.
// Ошибка по одному бронированию не прерывает проход.
func (s *SchedulerService) RunOnce(ctx context.Context) int {
	const op = "services.scheduler.RunOnce"
	log := s.log.With(slog.String("op", op))

	ended, err := s.bookings.EndedConfirmed(ctx, s.now().UTC())
	if err != nil {
		log.Error("failed to find ended bookings", sl.Err(err))
		return 0
	}
	if len(ended) == 0 {
		log.Debug("no ended bookings found")
		return 0
	}

	completed := 0
	for _, b := range ended {
		if _, err := s.bookings.Complete(ctx, b.ID); err != nil {
			log.Warn("failed to complete booking", slog.Int64("booking_id", b.ID), sl.Err(err))
			continue
		}
		completed++
	}
	log.Info("ended bookings completed", slog.Int("count", completed))
	return completed
}
