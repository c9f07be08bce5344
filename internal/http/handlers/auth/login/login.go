// Package login реализует вход в портал по email и паролю.
//
// Обработчик получает токен у бэкенда, передаёт его сессии и перенаправляет
// пользователя в раздел его роли. Токен в ответ не попадает: он живёт только
// в подписанной cookie.
package login

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/speakup/internal/apiclient"
	"github.com/magabrotheeeer/speakup/internal/http/handlers"
	"github.com/magabrotheeeer/speakup/internal/http/middlewarectx"
	"github.com/magabrotheeeer/speakup/internal/http/response"
	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/models"
	"github.com/magabrotheeeer/speakup/internal/policy"
)

// Service описывает вход на бэкенде.
type Service interface {
	Login(ctx context.Context, creds models.Credentials) (string, error)
}

// Handler обрабатывает GET и POST /login.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// Page отдаёт данные страницы входа. Уже вошедшего пользователя отправляет в его раздел.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	if scope, ok := middlewarectx.ScopeFrom(r.Context()); ok {
		if u, ok := scope.Session.User(); ok {
			http.Redirect(w, r, policy.Landing(u.Role), http.StatusSeeOther)
			return
		}
	}
	handlers.OK(w, r, map[string]any{
		"google_login": "/auth/google",
		"error":        r.URL.Query().Get("error"),
	})
}

// ServeHTTP выполняет вход.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"
	log := handlers.Logger(h.log, r, op)

	scope, ok := middlewarectx.ScopeFrom(r.Context())
	if !ok {
		log.Error("session scope is missing")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	var req models.Credentials
	if !handlers.Decode(w, r, log, h.validate, &req) {
		return
	}

	token, err := h.service.Login(r.Context(), req)
	if err != nil {
		Reject(w, r, log, err)
		return
	}
	u, err := scope.Session.Login(r.Context(), token)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}

	log.Info("login success", slog.Int64("user_id", u.ID), slog.String("role", string(u.Role)))
	http.Redirect(w, r, policy.Landing(u.Role), http.StatusSeeOther)
}

// Reject отвечает на отказ бэкенда во входе. Неверный пароль и неизвестный email
// не различаются.
func Reject(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		log.Info("invalid credentials", sl.Err(err))
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid email or password"))
	case errors.Is(err, apiclient.ErrForbidden):
		log.Info("inactive account", sl.Err(err))
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, response.Error("account is deactivated"))
	default:
		handlers.Fail(w, r, log, err)
	}
}
