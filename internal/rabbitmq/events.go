package rabbitmq

import (
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/speakup/internal/models"
)

// RoutingPrefix - общий префикс ключей событий бронирований.
const RoutingPrefix = "booking."

// Kind - вид события бронирования.
type Kind string

const (
	KindCreated   Kind = "created"
	KindAccepted  Kind = "accepted"
	KindRejected  Kind = "rejected"
	KindCancelled Kind = "cancelled"
	KindCompleted Kind = "completed"
)

// KindOf возвращает вид события, вызванного переходом ev.
func KindOf(ev models.BookingEvent) Kind {
	switch ev {
	case models.EventAccept:
		return KindAccepted
	case models.EventReject:
		return KindRejected
	case models.EventCancel:
		return KindCancelled
	case models.EventComplete:
		return KindCompleted
	}
	return KindCreated
}

// Event - сообщение о изменении бронирования.
type Event struct {
	ID         string               `json:"id"`
	Kind       Kind                 `json:"kind"`
	BookingID  int64                `json:"booking_id"`
	SlotID     int64                `json:"slot_id"`
	MentorID   int64                `json:"mentor_id"`
	LearnerID  int64                `json:"learner_id"`
	Status     models.BookingStatus `json:"status"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// NewEvent собирает событие по бронированию с новым идентификатором.
func NewEvent(kind Kind, b models.Booking) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		BookingID:  b.ID,
		SlotID:     b.SlotID,
		MentorID:   b.MentorID,
		LearnerID:  b.LearnerID,
		Status:     b.Status,
		OccurredAt: time.Now().UTC(),
	}
}

// RoutingKey возвращает ключ маршрутизации события, например booking.accepted.
func (e Event) RoutingKey() string {
	return RoutingPrefix + string(e.Kind)
}
