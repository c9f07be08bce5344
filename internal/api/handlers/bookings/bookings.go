// Package bookings реализует HTTP-обработчики бронирований ученика.
package bookings

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/speakup/internal/api/handlers"
	"github.com/magabrotheeeer/speakup/internal/api/middlewarectx"
	"github.com/magabrotheeeer/speakup/internal/models"
)

// Service описывает операции над бронированиями со стороны ученика.
type Service interface {
	CreateBooking(ctx context.Context, learner models.User, slotID int64) (models.Booking, error)
	ListForLearner(ctx context.Context, learner models.User) ([]models.Booking, error)
	Cancel(ctx context.Context, actor models.User, id int64) (models.Booking, error)
}

// Handler обрабатывает запросы /bookings/*.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Create godoc
// @Summary Забронировать слот
// @Tags Bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.BookingRequest true "Слот"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Слот не найден"
// @Failure 409 {object} response.ErrorResponse "Слот уже занят"
// @Router /bookings/create [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.bookings.Create")

	var req models.BookingRequest
	if !handlers.DecodeAndValidate(w, r, log, h.validate, &req) {
		return
	}
	learner, _ := middlewarectx.UserFrom(r.Context())
	b, err := h.service.CreateBooking(r.Context(), learner, req.SlotID)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	log.Info("booking created", slog.Int64("booking_id", b.ID), slog.Int64("slot_id", b.SlotID))
	handlers.OK(w, r, map[string]any{"booking": b})
}

// Mine godoc
// @Summary Бронирования текущего ученика
// @Tags Bookings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /bookings/me [get]
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.bookings.Mine")

	learner, _ := middlewarectx.UserFrom(r.Context())
	list, err := h.service.ListForLearner(r.Context(), learner)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"bookings": list})
}

// Cancel godoc
// @Summary Отменить бронирование
// @Description Отменить может ученик или наставник этого бронирования.
// @Tags Bookings
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID бронирования"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.ErrorResponse "Недопустимый переход статуса"
// @Router /bookings/{id}/cancel [put]
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.bookings.Cancel")

	id, err := handlers.IDParam(r, "id")
	if err != nil {
		handlers.BadID(w, r, log, err)
		return
	}
	actor, _ := middlewarectx.UserFrom(r.Context())
	b, err := h.service.Cancel(r.Context(), actor, id)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	log.Info("booking cancelled", slog.Int64("booking_id", b.ID))
	handlers.OK(w, r, map[string]any{"booking": b})
}
