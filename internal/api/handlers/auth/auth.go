// Package auth реализует HTTP-обработчики регистрации, входа и текущего пользователя.
package auth

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

// Service описывает бизнес-логику аутентификации.
type Service interface {
	Register(ctx context.Context, req models.Registration) (models.User, error)
	Login(ctx context.Context, creds models.Credentials) (string, error)
	GoogleLoginURL(state string) (string, error)
	GoogleCallback(ctx context.Context, code string) (string, error)
	RedeemLoginCode(ctx context.Context, code string) (string, error)
}

// Handler обрабатывает запросы /auth/* и /users/me.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
	// portalCallback - адрес портала, куда возвращается код входа после входа через Google.
	portalCallback string
	secureCookie   bool
}

// New создает новый Handler.
func New(log *slog.Logger, service Service, portalCallback string, secureCookie bool) *Handler {
	return &Handler{
		log:            log,
		service:        service,
		validate:       validator.New(),
		portalCallback: portalCallback,
		secureCookie:   secureCookie,
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Register godoc
// @Summary Регистрация
// @Description Создает учётную запись ученика или наставника.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.Registration true "Данные регистрации"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.ErrorResponse "Email уже занят"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.Register")

	var req models.Registration
	if !handlers.DecodeAndValidate(w, r, log, h.validate, &req) {
		return
	}
	u, err := h.service.Register(r.Context(), req)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	log.Info("user registered", slog.Int64("user_id", u.ID))
	handlers.OK(w, r, map[string]any{"user": u})
}

// Login godoc
// @Summary Вход по email и паролю
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.Credentials true "Учётные данные"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Неверные учётные данные"
// @Failure 403 {object} response.ErrorResponse "Учётная запись отключена"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.Login")

	var req models.Credentials
	if !handlers.DecodeAndValidate(w, r, log, h.validate, &req) {
		return
	}
	token, err := h.service.Login(r.Context(), req)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	log.Info("user logged in")
	handlers.OK(w, r, map[string]any{"token": token})
}

// Me godoc
// @Summary Текущий пользователь
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Router /users/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, _ := middlewarectx.UserFrom(r.Context())
	handlers.OK(w, r, map[string]any{"user": u})
}
