// Package mentor реализует раздел наставника в портале.
package mentor

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/speakup/internal/booking"
	"github.com/magabrotheeeer/speakup/internal/http/handlers"
	"github.com/magabrotheeeer/speakup/internal/models"
)

// Handler обрабатывает запросы раздела /mentor.
type Handler struct {
	log      *slog.Logger
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger) *Handler {
	return &Handler{
		log:      log,
		validate: validator.New(),
	}
}

// Dashboard отдаёт входящие бронирования наставника.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	log := handlers.Logger(h.log, r, "handlers.mentor.Dashboard")
	scope, ok := handlers.Scope(w, r, log)
	if !ok {
		return
	}
	bookings, err := scope.Manager.ListMentorBookings(r.Context())
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	u, _ := scope.Session.User()
	handlers.OK(w, r, map[string]any{
		"user":     u,
		"bookings": bookings,
	})
}

// Slots отдаёт собственные слоты наставника.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	log := handlers.Logger(h.log, r, "handlers.mentor.Slots")
	scope, ok := handlers.Scope(w, r, log)
	if !ok {
		return
	}
	u, _ := scope.Session.User()
	slots, err := scope.Manager.ListSlots(r.Context(), u.ID)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"slots": slots})
}

// CreateSlot публикует новый слот.
func (h *Handler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	log := handlers.Logger(h.log, r, "handlers.mentor.CreateSlot")
	scope, ok := handlers.Scope(w, r, log)
	if !ok {
		return
	}
	var req models.NewSlot
	if !handlers.Decode(w, r, log, h.validate, &req) {
		return
	}
	slot, err := scope.Manager.CreateSlot(r.Context(), req)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	render.Status(r, http.StatusCreated)
	handlers.OK(w, r, map[string]any{"slot": slot})
}

// Profile обновляет профиль наставника.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	log := handlers.Logger(h.log, r, "handlers.mentor.Profile")
	scope, ok := handlers.Scope(w, r, log)
	if !ok {
		return
	}
	var req models.ProfileUpdate
	if !handlers.Decode(w, r, log, h.validate, &req) {
		return
	}
	profile, err := scope.Manager.UpdateProfile(r.Context(), req)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"profile": profile})
}

// Accept подтверждает бронирование.
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "handlers.mentor.Accept", func(m *booking.Manager, r *http.Request, id int64) (models.Booking, error) {
		return m.AcceptBooking(r.Context(), id)
	})
}

// Reject отклоняет бронирование. Тело с причиной необязательно.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	log := handlers.Logger(h.log, r, "handlers.mentor.Reject")
	var req models.RejectRequest
	if r.ContentLength != 0 && !handlers.Decode(w, r, log, h.validate, &req) {
		return
	}
	h.transition(w, r, "handlers.mentor.Reject", func(m *booking.Manager, r *http.Request, id int64) (models.Booking, error) {
		return m.RejectBooking(r.Context(), id, req.Reason)
	})
}

// Cancel отменяет бронирование со стороны наставника.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "handlers.mentor.Cancel", func(m *booking.Manager, r *http.Request, id int64) (models.Booking, error) {
		return m.CancelBooking(r.Context(), id)
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op string,
	apply func(m *booking.Manager, r *http.Request, id int64) (models.Booking, error),
) {
	log := handlers.Logger(h.log, r, op)
	scope, ok := handlers.Scope(w, r, log)
	if !ok {
		return
	}
	id, ok := handlers.ID(w, r, log, "id")
	if !ok {
		return
	}
	b, err := apply(scope.Manager, r, id)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	log.Info("booking updated", slog.Int64("booking_id", b.ID), slog.String("status", string(b.Status)))
	handlers.OK(w, r, map[string]any{"booking": b})
}
