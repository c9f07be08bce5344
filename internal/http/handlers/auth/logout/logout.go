// Package logout реализует выход из портала и выдачу состояния сессии.
package logout

import (
	"log/slog"
	"net/http"

	"github.com/magabrotheeeer/speakup/internal/http/handlers"
	"github.com/magabrotheeeer/speakup/internal/http/middlewarectx"
	"github.com/magabrotheeeer/speakup/internal/policy"
)

// Handler обрабатывает POST /logout и GET /session.
type Handler struct {
	log *slog.Logger
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

// ServeHTTP завершает сессию и отправляет на страницу входа.
// Выход без сессии не ошибка.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"
	log := handlers.Logger(h.log, r, op)

	if scope, ok := middlewarectx.ScopeFrom(r.Context()); ok {
		if u, ok := scope.Session.User(); ok {
			log.Info("logout", slog.Int64("user_id", u.ID))
		}
		scope.Session.Logout(r.Context())
	}
	http.Redirect(w, r, policy.LoginPath, http.StatusSeeOther)
}

// State отдаёт состояние сессии и, если она открыта, пользователя и его раздел.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	scope, ok := middlewarectx.ScopeFrom(r.Context())
	if !ok {
		handlers.OK(w, r, map[string]any{"state": "unauthenticated"})
		return
	}
	data := map[string]any{"state": scope.Session.State().String()}
	if u, ok := scope.Session.User(); ok {
		data["user"] = u
		data["landing"] = policy.Landing(u.Role)
	}
	handlers.OK(w, r, data)
}
