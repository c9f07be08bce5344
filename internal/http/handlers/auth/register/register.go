// Package register реализует самостоятельную регистрацию ученика или наставника.
package register

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/speakup/internal/http/handlers"
	"github.com/magabrotheeeer/speakup/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/speakup/internal/http/middlewarectx"
	"github.com/magabrotheeeer/speakup/internal/http/response"
	"github.com/magabrotheeeer/speakup/internal/models"
	"github.com/magabrotheeeer/speakup/internal/policy"
)

// Service описывает регистрацию и вход на бэкенде.
type Service interface {
	Register(ctx context.Context, req models.Registration) (models.User, error)
	Login(ctx context.Context, creds models.Credentials) (string, error)
}

// Handler обрабатывает POST /register.
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

// ServeHTTP регистрирует пользователя и сразу открывает для него сессию.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"
	log := handlers.Logger(h.log, r, op)

	scope, ok := middlewarectx.ScopeFrom(r.Context())
	if !ok {
		log.Error("session scope is missing")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	var req models.Registration
	if !handlers.Decode(w, r, log, h.validate, &req) {
		return
	}

	created, err := h.service.Register(r.Context(), req)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	log.Info("user registered", slog.Int64("user_id", created.ID))

	token, err := h.service.Login(r.Context(), models.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		login.Reject(w, r, log, err)
		return
	}
	u, err := scope.Session.Login(r.Context(), token)
	if err != nil {
		handlers.Fail(w, r, log, err)
		return
	}
	http.Redirect(w, r, policy.Landing(u.Role), http.StatusSeeOther)
}
