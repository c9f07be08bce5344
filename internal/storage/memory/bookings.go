package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/magabrotheeeer/speakup/internal/models"
	"github.com/magabrotheeeer/speakup/internal/storage"
)

// CreateSlot сохраняет новый свободный слот.
func (s *Storage) CreateSlot(ctx context.Context, slot models.AvailabilitySlot) (models.AvailabilitySlot, error) {
	const op = "memory.CreateSlot"
	if err := checkCtx(ctx, op); err != nil {
		return models.AvailabilitySlot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	slot.ID = s.nextID()
	slot.StartTime = slot.StartTime.UTC()
	slot.EndTime = slot.EndTime.UTC()
	slot.IsBooked = false
	s.slots[slot.ID] = slot
	return slot, nil
}

// ListSlots возвращает слоты наставника по возрастанию времени начала.
func (s *Storage) ListSlots(ctx context.Context, mentorID int64) ([]models.AvailabilitySlot, error) {
	const op = "memory.ListSlots"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.AvailabilitySlot, 0)
	for _, sl := range s.slots {
		if sl.MentorID == mentorID {
			out = append(out, sl)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CreateBooking занимает слот и создаёт бронирование в статусе PENDING.
func (s *Storage) CreateBooking(ctx context.Context, slotID, learnerID int64) (models.Booking, error) {
	const op = "memory.CreateBooking"
	if err := checkCtx(ctx, op); err != nil {
		return models.Booking{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[slotID]
	if !ok {
		return models.Booking{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if slot.IsBooked {
		return models.Booking{}, fmt.Errorf("%s: %w", op, storage.ErrSlotTaken)
	}
	slot.IsBooked = true
	s.slots[slotID] = slot

	b := models.Booking{
		ID:        s.nextID(),
		SlotID:    slotID,
		MentorID:  slot.MentorID,
		LearnerID: learnerID,
		Status:    models.BookingPending,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		CreatedAt: s.now().UTC(),
	}
	s.bookings[b.ID] = b
	return b, nil
}

// GetBooking возвращает бронирование по ID.
func (s *Storage) GetBooking(ctx context.Context, id int64) (models.Booking, error) {
	const op = "memory.GetBooking"
	if err := checkCtx(ctx, op); err != nil {
		return models.Booking{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return models.Booking{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return b, nil
}

// UpdateBookingStatus переводит бронирование из from в to.
func (s *Storage) UpdateBookingStatus(ctx context.Context, id int64, from, to models.BookingStatus, reason *string) (models.Booking, error) {
	const op = "memory.UpdateBookingStatus"
	if err := checkCtx(ctx, op); err != nil {
		return models.Booking{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return models.Booking{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if b.Status != from {
		return models.Booking{}, fmt.Errorf("%s: %w", op, storage.ErrStatusChanged)
	}
	b.Status = to
	if reason != nil {
		r := *reason
		b.RejectionReason = &r
	}
	s.bookings[id] = b
	return b, nil
}

func (s *Storage) listBookings(ctx context.Context, op string, keep func(models.Booking) bool) ([]models.Booking, error) {
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Booking, 0)
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListBookingsByMentor возвращает бронирования на слоты наставника.
func (s *Storage) ListBookingsByMentor(ctx context.Context, mentorID int64) ([]models.Booking, error) {
	return s.listBookings(ctx, "memory.ListBookingsByMentor", func(b models.Booking) bool {
		return b.MentorID == mentorID
	})
}

// ListBookingsByLearner возвращает бронирования ученика.
func (s *Storage) ListBookingsByLearner(ctx context.Context, learnerID int64) ([]models.Booking, error) {
	return s.listBookings(ctx, "memory.ListBookingsByLearner", func(b models.Booking) bool {
		return b.LearnerID == learnerID
	})
}

// ListEndedConfirmed возвращает подтверждённые бронирования, закончившиеся до before.
func (s *Storage) ListEndedConfirmed(ctx context.Context, before time.Time) ([]models.Booking, error) {
	return s.listBookings(ctx, "memory.ListEndedConfirmed", func(b models.Booking) bool {
		return b.Status == models.BookingConfirmed && !b.EndTime.After(before)
	})
}
