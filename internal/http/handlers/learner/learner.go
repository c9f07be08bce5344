// Package learner реализует раздел ученика в портале: поиск наставников,
// просмотр слотов, бронирование и отмену.
//
// Все обработчики стоят за RequireRole(LEARNER) и работают через менеджер
// бронирований текущей сессии.
package learner

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/speakup/internal/http/handlers"
	"github.com/magabrotheeeer/speakup/internal/models"
)

// Handler обрабатывает запросы раздела /learner.
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

// Dashboard отдаёт бронирования ученика.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	log := handlers.Logger(h.log, r, "handlers.learner.Dashboard")
	scope, ok := handlers.Scope(w, r, log)
	if !ok {
		return
	}
	bookings, err := scope.Manager.ListLearnerBookings(r.Context())
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

// Mentors ищет проверенных наставников. Параметр skill фильтрует по навыку.
func (h *Handler) Mentors(w http.ResponseWriter, r *http.Request) {
	log := handlers.Logger(h.log, r, "handlers.learner.Mentors")
	scope, ok := handlers.Scope(w, r, log)
	if !ok {
		return
	}
	f := models.MentorFilter{Skill: strings.TrimSpace(r.URL.Query().Get("skill"))}
	mentors, err := scope.Manager.ListMentors(r.Context(), models.RoleLearner, f)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"mentors": mentors})
}

// Slots отдаёт слоты наставника. Занятые слоты приходят с selectable=false.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	log := handlers.Logger(h.log, r, "handlers.learner.Slots")
	scope, ok := handlers.Scope(w, r, log)
	if !ok {
		return
	}
	mentorID, ok := handlers.ID(w, r, log, "id")
	if !ok {
		return
	}
	slots, err := scope.Manager.ListSlots(r.Context(), mentorID)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"slots": slots})
}

// Book бронирует слот.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	log := handlers.Logger(h.log, r, "handlers.learner.Book")
	scope, ok := handlers.Scope(w, r, log)
	if !ok {
		return
	}
	var req models.BookingRequest
	if !handlers.Decode(w, r, log, h.validate, &req) {
		return
	}
	b, err := scope.Manager.CreateBooking(r.Context(), req.SlotID)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	render.Status(r, http.StatusCreated)
	handlers.OK(w, r, map[string]any{"booking": b})
}

// Cancel отменяет бронирование ученика.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	log := handlers.Logger(h.log, r, "handlers.learner.Cancel")
	scope, ok := handlers.Scope(w, r, log)
	if !ok {
		return
	}
	id, ok := handlers.ID(w, r, log, "id")
	if !ok {
		return
	}
	b, err := scope.Manager.CancelBooking(r.Context(), id)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"booking": b})
}
