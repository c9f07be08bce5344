// Package admin реализует HTTP-обработчики раздела администратора.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/speakup/internal/api/handlers"
	"github.com/magabrotheeeer/speakup/internal/api/middlewarectx"
	"github.com/magabrotheeeer/speakup/internal/api/response"
	"github.com/magabrotheeeer/speakup/internal/models"
)

// Service описывает операции модерации.
type Service interface {
	ListMentors(ctx context.Context, f models.MentorFilter) ([]models.MentorProfile, error)
	Moderate(ctx context.Context, mentorID int64, action models.VerificationAction) (models.MentorProfile, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SetUserActive(ctx context.Context, admin models.User, id int64, active bool) (models.User, error)
	SetUserRole(ctx context.Context, admin models.User, id int64, role models.Role) (models.User, error)
}

// Handler обрабатывает запросы /admin/*.
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

// Mentors godoc
// @Summary Все наставники
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Статус проверки"
// @Success 200 {object} response.Response
// @Router /admin/mentors [get]
func (h *Handler) Mentors(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.Mentors")

	f := models.MentorFilter{
		Skill:  r.URL.Query().Get("skill"),
		Status: models.VerificationStatus(strings.ToUpper(r.URL.Query().Get("status"))),
	}
	mentors, err := h.service.ListMentors(r.Context(), f)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"mentors": mentors})
}

// Moderate godoc
// @Summary Изменить статус проверки наставника
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID наставника"
// @Param action path string true "verify, unverify или reject"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.ErrorResponse "Недопустимый переход статуса"
// @Router /admin/mentors/{id}/{action} [put]
func (h *Handler) Moderate(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.Moderate")

	id, err := handlers.IDParam(r, "id")
	if err != nil {
		handlers.BadID(w, r, log, err)
		return
	}
	action := models.VerificationAction(chi.URLParam(r, "action"))
	switch action {
	case models.ActionVerify, models.ActionUnverify, models.ActionReject:
	default:
		log.Info("unknown moderation action", slog.String("action", string(action)))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("unknown action"))
		return
	}
	profile, err := h.service.Moderate(r.Context(), id, action)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	log.Info("mentor moderated",
		slog.Int64("mentor_id", id),
		slog.String("action", string(action)),
		slog.String("status", string(profile.Verification)),
	)
	handlers.OK(w, r, map[string]any{"profile": profile})
}

// Users godoc
// @Summary Все пользователи
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /admin/users [get]
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.Users")

	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	handlers.OK(w, r, map[string]any{"users": users})
}

// SetStatus godoc
// @Summary Включить или отключить учётную запись
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID пользователя"
// @Param request body models.UserStatusUpdate true "Статус"
// @Success 200 {object} response.Response
// @Router /admin/users/{id}/status [put]
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.SetStatus")

	id, err := handlers.IDParam(r, "id")
	if err != nil {
		handlers.BadID(w, r, log, err)
		return
	}
	var req models.UserStatusUpdate
	if !handlers.DecodeAndValidate(w, r, log, h.validate, &req) {
		return
	}
	admin, _ := middlewarectx.UserFrom(r.Context())
	u, err := h.service.SetUserActive(r.Context(), admin, id, *req.IsActive)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	log.Info("user status changed", slog.Int64("user_id", u.ID), slog.Bool("is_active", u.IsActive))
	handlers.OK(w, r, map[string]any{"user": u})
}

// SetRole godoc
// @Summary Сменить роль пользователя
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID пользователя"
// @Param request body models.UserRoleUpdate true "Роль"
// @Success 200 {object} response.Response
// @Router /admin/users/{id}/role [put]
func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.SetRole")

	id, err := handlers.IDParam(r, "id")
	if err != nil {
		handlers.BadID(w, r, log, err)
		return
	}
	var req models.UserRoleUpdate
	if !handlers.DecodeAndValidate(w, r, log, h.validate, &req) {
		return
	}
	admin, _ := middlewarectx.UserFrom(r.Context())
	u, err := h.service.SetUserRole(r.Context(), admin, id, req.Role)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	log.Info("user role changed", slog.Int64("user_id", u.ID), slog.String("role", string(u.Role)))
	handlers.OK(w, r, map[string]any{"user": u})
}
