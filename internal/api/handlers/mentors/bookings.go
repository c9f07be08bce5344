package mentors

import (
	"log/slog"
	"net/http"

	"github.com/magabrotheeeer/speakup/internal/api/handlers"
	"github.com/magabrotheeeer/speakup/internal/api/middlewarectx"
	"github.com/magabrotheeeer/speakup/internal/models"
)

// Bookings godoc
// @Summary Входящие бронирования наставника
// @Tags Mentors
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /mentors/bookings [get]
func (h *Handler) Bookings(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.mentors.Bookings")

	mentor, _ := middlewarectx.UserFrom(r.Context())
	list, err := h.bookings.ListForMentor(r.Context(), mentor)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"bookings": list})
}

// Accept godoc
// @Summary Подтвердить бронирование
// @Tags Mentors
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID бронирования"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.ErrorResponse "Недопустимый переход статуса"
// @Router /mentors/bookings/{id}/accept [put]
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.mentors.Accept")

	id, err := handlers.IDParam(r, "id")
	if err != nil {
		handlers.BadID(w, r, log, err)
		return
	}
	mentor, _ := middlewarectx.UserFrom(r.Context())
	b, err := h.bookings.Accept(r.Context(), mentor, id)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	log.Info("booking accepted", slog.Int64("booking_id", b.ID))
	handlers.OK(w, r, map[string]any{"booking": b})
}

// Reject godoc
// @Summary Отклонить бронирование
// @Tags Mentors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID бронирования"
// @Param request body models.RejectRequest false "Причина"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.ErrorResponse "Недопустимый переход статуса"
// @Router /mentors/bookings/{id}/reject [put]
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.mentors.Reject")

	id, err := handlers.IDParam(r, "id")
	if err != nil {
		handlers.BadID(w, r, log, err)
		return
	}
	var req models.RejectRequest
	// Тело необязательно: пустой запрос означает отказ без причины.
	if r.ContentLength != 0 {
		if !handlers.DecodeAndValidate(w, r, log, h.validate, &req) {
			return
		}
	}
	mentor, _ := middlewarectx.UserFrom(r.Context())
	b, err := h.bookings.Reject(r.Context(), mentor, id, req.Reason)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	log.Info("booking rejected", slog.Int64("booking_id", b.ID))
	handlers.OK(w, r, map[string]any{"booking": b})
}
