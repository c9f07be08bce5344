package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/speakup/internal/http/response"
	"github.com/magabrotheeeer/speakup/internal/models"
	"github.com/magabrotheeeer/speakup/internal/policy"
	"github.com/magabrotheeeer/speakup/internal/session"
)

// RequireRole пропускает запрос в раздел, только если роль сессии входит в roles.
// Пустой roles означает любого аутентифицированного пользователя.
//
//	Allow           -> следующий обработчик
//	Loading         -> 202 {"status":"Loading"}
//	RedirectLogin   -> 303 /login
//	RedirectLanding -> 303 в раздел своей роли
func RequireRole(log *slog.Logger, roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RequireRole"
			reqLog := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			scope, ok := ScopeFrom(r.Context())
			if !ok {
				reqLog.Error("session scope is missing")
				http.Redirect(w, r, policy.LoginPath, http.StatusSeeOther)
				return
			}

			d := scope.Session.Check(roles...)
			switch d.Kind {
			case session.Allow:
				next.ServeHTTP(w, r)
			case session.Loading:
				render.Status(r, http.StatusAccepted)
				render.JSON(w, r, response.Loading())
			default:
				reqLog.Info("access redirected", slog.String("decision", string(d.Kind)), slog.String("location", d.Location))
				http.Redirect(w, r, d.Location, http.StatusSeeOther)
			}
		})
	}
}
