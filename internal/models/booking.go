package models

import (
	"errors"
	"fmt"
	"time"
)

// BookingStatus — статус бронирования.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"   // ожидает решения наставника
	BookingConfirmed BookingStatus = "CONFIRMED" // подтверждено наставником
	BookingCancelled BookingStatus = "CANCELLED" // отклонено или отменено
	BookingCompleted BookingStatus = "COMPLETED" // занятие состоялось
)

// BookingEvent — событие, переводящее бронирование между статусами.
type BookingEvent string

const (
	EventAccept   BookingEvent = "accept"
	EventReject   BookingEvent = "reject"
	EventComplete BookingEvent = "complete"
	EventCancel   BookingEvent = "cancel"
)

// ErrInvalidTransition возвращается, когда событие недопустимо для текущего статуса.
var ErrInvalidTransition = errors.New("invalid booking status transition")

// Terminal сообщает, является ли статус конечным.
func (s BookingStatus) Terminal() bool {
	return s == BookingCancelled || s == BookingCompleted
}

// Apply применяет событие к статусу и возвращает новый статус.
//
//	PENDING   --accept-->   CONFIRMED
//	PENDING   --reject-->   CANCELLED
//	CONFIRMED --complete--> COMPLETED
//	PENDING|CONFIRMED --cancel--> CANCELLED
//
// Из CANCELLED и COMPLETED переходов нет.
func (s BookingStatus) Apply(ev BookingEvent) (BookingStatus, error) {
	switch {
	case s == BookingPending && ev == EventAccept:
		return BookingConfirmed, nil
	case s == BookingPending && ev == EventReject:
		return BookingCancelled, nil
	case s == BookingConfirmed && ev == EventComplete:
		return BookingCompleted, nil
	case ev == EventCancel && (s == BookingPending || s == BookingConfirmed):
		return BookingCancelled, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, s)
}

// AvailabilitySlot — окно времени, которое наставник открыл для бронирования.
// Флаг IsBooked выставляется ровно один раз, когда слот занимает бронирование.
type AvailabilitySlot struct {
	ID        int64     `json:"id"`
	MentorID  int64     `json:"mentor_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	IsBooked  bool      `json:"is_booked"`
}

// NewSlot — данные для создания слота наставником.
type NewSlot struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
}

// Booking — заявка ученика на слот наставника.
type Booking struct {
	ID              int64         `json:"id"`
	SlotID          int64         `json:"slot_id"`
	MentorID        int64         `json:"mentor_id"`
	LearnerID       int64         `json:"learner_id"`
	Status          BookingStatus `json:"status"`
	RejectionReason *string       `json:"rejection_reason,omitempty"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	CreatedAt       time.Time     `json:"created_at"`
}

// BookingRequest — тело запроса на создание бронирования.
type BookingRequest struct {
	SlotID int64 `json:"slot_id" validate:"required,gt=0"`
}

// RejectRequest — тело запроса на отклонение бронирования. Причина необязательна.
type RejectRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}
