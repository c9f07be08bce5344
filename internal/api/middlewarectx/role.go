package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/speakup/internal/api/response"
	"github.com/magabrotheeeer/speakup/internal/models"
	"github.com/magabrotheeeer/speakup/internal/policy"
)

// RequireRole пропускает запрос, только если роль пользователя входит в roles.
// Должен стоять после JWTMiddleware.
func RequireRole(log *slog.Logger, roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFrom(r.Context())
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("unauthorized"))
				return
			}
			if !policy.CanAccess(u.Role, roles) {
				log.Warn("role not allowed",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.Int64("user_id", u.ID),
					slog.String("role", string(u.Role)),
				)
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("forbidden"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
