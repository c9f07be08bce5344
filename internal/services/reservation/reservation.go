// Package services содержит логику бронирований sandbox-бэкенда.
//
// Бэкенд - единственная точка сериализации: слот занимается атомарно, а каждый
// переход статуса выполняется условным обновлением из прочитанного статуса.
// Если статус успел измениться, переход отклоняется как конфликт.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/speakup/internal/lib/metrics"
	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/models"
	"github.com/magabrotheeeer/speakup/internal/rabbitmq"
)

var (
	// ErrForbidden возвращается, когда пользователь не участник бронирования
	// или его роль не позволяет событие.
	ErrForbidden = errors.New("operation is not allowed for this user")
	// ErrNotLearner возвращается при попытке забронировать слот не учеником.
	ErrNotLearner = errors.New("only learners can book slots")
)

// Repository определяет методы хранилища для бронирований.
type Repository interface {
	CreateBooking(ctx context.Context, slotID, learnerID int64) (models.Booking, error)
	GetBooking(ctx context.Context, id int64) (models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, from, to models.BookingStatus, reason *string) (models.Booking, error)
	ListBookingsByMentor(ctx context.Context, mentorID int64) ([]models.Booking, error)
	ListBookingsByLearner(ctx context.Context, learnerID int64) ([]models.Booking, error)
	ListEndedConfirmed(ctx context.Context, before time.Time) ([]models.Booking, error)
}

// Publisher отправляет события бронирований в шину.
type Publisher interface {
	Publish(ctx context.Context, ev rabbitmq.Event) error
}

// ReservationService реализует жизненный цикл бронирования.
type ReservationService struct {
	repo      Repository
	publisher Publisher
	log       *slog.Logger
}

// NewReservationService создает новый экземпляр ReservationService.
func NewReservationService(repo Repository, publisher Publisher, log *slog.Logger) *ReservationService {
	return &ReservationService{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// CreateBooking занимает слот для ученика. Из конкурирующих запросов успешен ровно один.
func (s *ReservationService) CreateBooking(ctx context.Context, learner models.User, slotID int64) (models.Booking, error) {
	const op = "services.reservation.CreateBooking"
	if learner.Role != models.RoleLearner {
		return models.Booking{}, fmt.Errorf("%s: %w", op, ErrNotLearner)
	}
	b, err := s.repo.CreateBooking(ctx, slotID, learner.ID)
	if err != nil {
		metrics.BookingTransitions.WithLabelValues("create", "rejected").Inc()
		return models.Booking{}, fmt.Errorf("%s: %w", op, err)
	}
	metrics.BookingTransitions.WithLabelValues("create", "ok").Inc()
	s.log.Info("booking created", slog.String("op", op),
		slog.Int64("booking_id", b.ID), slog.Int64("slot_id", slotID), slog.Int64("learner_id", learner.ID))
	s.publish(ctx, rabbitmq.KindCreated, b)
	return b, nil
}

// Accept подтверждает бронирование наставником.
func (s *ReservationService) Accept(ctx context.Context, actor models.User, id int64) (models.Booking, error) {
	return s.transition(ctx, actor, id, models.EventAccept, nil)
}

// Reject отклоняет бронирование наставником. Пустая причина не сохраняется.
func (s *ReservationService) Reject(ctx context.Context, actor models.User, id int64, reason string) (models.Booking, error) {
	var r *string
	if reason != "" {
		r = &reason
	}
	return s.transition(ctx, actor, id, models.EventReject, r)
}

// Cancel отменяет бронирование учеником или наставником. Слот при этом остаётся занятым.
func (s *ReservationService) Cancel(ctx context.Context, actor models.User, id int64) (models.Booking, error) {
	return s.transition(ctx, actor, id, models.EventCancel, nil)
}

// allowed проверяет, может ли actor применить событие к бронированию.
func allowed(actor models.User, b models.Booking, ev models.BookingEvent) bool {
	switch ev {
	case models.EventAccept, models.EventReject:
		return actor.Role == models.RoleMentor && actor.ID == b.MentorID
	case models.EventCancel:
		return actor.ID == b.MentorID || actor.ID == b.LearnerID
	}
	return false
}

func (s *ReservationService) transition(ctx context.Context, actor models.User, id int64, ev models.BookingEvent, reason *string) (models.Booking, error) {
	const op = "services.reservation.transition"
	log := s.log.With(slog.String("op", op), slog.Int64("booking_id", id), slog.String("event", string(ev)))

	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return models.Booking{}, fmt.Errorf("%s: %w", op, err)
	}
	if !allowed(actor, b, ev) {
		log.Warn("transition forbidden", slog.Int64("actor_id", actor.ID))
		return models.Booking{}, fmt.Errorf("%s: %w", op, ErrForbidden)
	}
	return s.apply(ctx, log, b, ev, reason)
}

func (s *ReservationService) apply(ctx context.Context, log *slog.Logger, b models.Booking, ev models.BookingEvent, reason *string) (models.Booking, error) {
	const op = "services.reservation.apply"
	to, err := b.Status.Apply(ev)
	if err != nil {
		metrics.BookingTransitions.WithLabelValues(string(ev), "rejected").Inc()
		return models.Booking{}, fmt.Errorf("%s: %w", op, err)
	}
	updated, err := s.repo.UpdateBookingStatus(ctx, b.ID, b.Status, to, reason)
	if err != nil {
		metrics.BookingTransitions.WithLabelValues(string(ev), "rejected").Inc()
		return models.Booking{}, fmt.Errorf("%s: %w", op, err)
	}
	metrics.BookingTransitions.WithLabelValues(string(ev), "ok").Inc()
	log.Info("booking status changed", slog.String("from", string(b.Status)), slog.String("to", string(to)))
	s.publish(ctx, rabbitmq.KindOf(ev), updated)
	return updated, nil
}

// Complete завершает подтверждённое бронирование. Вызывается только планировщиком.
func (s *ReservationService) Complete(ctx context.Context, id int64) (models.Booking, error) {
	const op = "services.reservation.Complete"
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return models.Booking{}, fmt.Errorf("%s: %w", op, err)
	}
	return s.apply(ctx, s.log.With(slog.String("op", op), slog.Int64("booking_id", id)), b, models.EventComplete, nil)
}

// ListForMentor возвращает бронирования на слоты наставника.
func (s *ReservationService) ListForMentor(ctx context.Context, mentor models.User) ([]models.Booking, error) {
	const op = "services.reservation.ListForMentor"
	if mentor.Role != models.RoleMentor {
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}
	out, err := s.repo.ListBookingsByMentor(ctx, mentor.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// ListForLearner возвращает бронирования ученика.
func (s *ReservationService) ListForLearner(ctx context.Context, learner models.User) ([]models.Booking, error) {
	const op = "services.reservation.ListForLearner"
	out, err := s.repo.ListBookingsByLearner(ctx, learner.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// EndedConfirmed возвращает подтверждённые бронирования, закончившиеся к моменту now.
func (s *ReservationService) EndedConfirmed(ctx context.Context, now time.Time) ([]models.Booking, error) {
	const op = "services.reservation.EndedConfirmed"
	out, err := s.repo.ListEndedConfirmed(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// publish отправляет событие. Ошибка шины не отменяет сохранённое изменение.
func (s *ReservationService) publish(ctx context.Context, kind rabbitmq.Kind, b models.Booking) {
	if err := s.publisher.Publish(ctx, rabbitmq.NewEvent(kind, b)); err != nil {
		s.log.Warn("booking event not published", slog.Int64("booking_id", b.ID), sl.Err(err))
	}
}
