// Package mentors реализует HTTP-обработчики каталога наставников, слотов и
// раздела наставника.
package mentors

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/speakup/internal/api/handlers"
	"github.com/magabrotheeeer/speakup/internal/api/middlewarectx"
	"github.com/magabrotheeeer/speakup/internal/models"
)

// MentorService описывает операции каталога и профиля наставника.
type MentorService interface {
	ListMentors(ctx context.Context, viewer models.Role, f models.MentorFilter) ([]models.MentorProfile, error)
	ListSlots(ctx context.Context, mentorID int64) ([]models.AvailabilitySlot, error)
	CreateSlot(ctx context.Context, mentor models.User, req models.NewSlot) (models.AvailabilitySlot, error)
	UpdateProfile(ctx context.Context, mentor models.User, req models.ProfileUpdate) (models.MentorProfile, error)
}

// BookingService описывает операции наставника над бронированиями.
type BookingService interface {
	ListForMentor(ctx context.Context, mentor models.User) ([]models.Booking, error)
	Accept(ctx context.Context, actor models.User, id int64) (models.Booking, error)
	Reject(ctx context.Context, actor models.User, id int64, reason string) (models.Booking, error)
}

// Handler обрабатывает запросы /mentors/*.
type Handler struct {
	log      *slog.Logger
	mentors  MentorService
	bookings BookingService
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, mentors MentorService, bookings BookingService) *Handler {
	return &Handler{
		log:      log,
		mentors:  mentors,
		bookings: bookings,
		validate: validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// List godoc
// @Summary Каталог наставников
// @Description Ученики видят только проверенных наставников, администратор видит всех.
// @Tags Mentors
// @Produce json
// @Security BearerAuth
// @Param skill query string false "Навык (без учёта регистра)"
// @Param status query string false "Статус проверки"
// @Success 200 {object} response.Response
// @Router /mentors [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.mentors.List")

	viewer, _ := middlewarectx.UserFrom(r.Context())
	f := models.MentorFilter{
		Skill:  r.URL.Query().Get("skill"),
		Status: models.VerificationStatus(strings.ToUpper(r.URL.Query().Get("status"))),
	}
	mentors, err := h.mentors.ListMentors(r.Context(), viewer.Role, f)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"mentors": mentors})
}

// Slots godoc
// @Summary Слоты наставника
// @Tags Mentors
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID наставника"
// @Success 200 {object} response.Response
// @Router /mentors/{id}/slots [get]
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.mentors.Slots")

	id, err := handlers.IDParam(r, "id")
	if err != nil {
		handlers.BadID(w, r, log, err)
		return
	}
	slots, err := h.mentors.ListSlots(r.Context(), id)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"slots": slots})
}

// CreateSlot godoc
// @Summary Открыть слот
// @Tags Mentors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.NewSlot true "Время слота"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.ErrorResponse "Конец раньше начала"
// @Router /mentors/slots [post]
func (h *Handler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.mentors.CreateSlot")

	var req models.NewSlot
	if !handlers.DecodeAndValidate(w, r, log, h.validate, &req) {
		return
	}
	mentor, _ := middlewarectx.UserFrom(r.Context())
	slot, err := h.mentors.CreateSlot(r.Context(), mentor, req)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	log.Info("slot created", slog.Int64("slot_id", slot.ID))
	handlers.OK(w, r, map[string]any{"slot": slot})
}

// UpdateProfile godoc
// @Summary Обновить профиль наставника
// @Tags Mentors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ProfileUpdate true "Профиль"
// @Success 200 {object} response.Response
// @Router /mentors/profile [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.mentors.UpdateProfile")

	var req models.ProfileUpdate
	if !handlers.DecodeAndValidate(w, r, log, h.validate, &req) {
		return
	}
	mentor, _ := middlewarectx.UserFrom(r.Context())
	profile, err := h.mentors.UpdateProfile(r.Context(), mentor, req)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"profile": profile})
}
