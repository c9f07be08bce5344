// Package middlewarectx содержит HTTP middleware sandbox-бэкенда.
//
// JWTMiddleware проверяет токен в заголовке Authorization и кладёт
// пользователя в контекст запроса. RequireRole пропускает только
// пользователей с одной из указанных ролей.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/speakup/internal/api/response"
	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// User - ключ пользователя в контексте.
const User Key = "user"

// Authenticator проверяет токен и возвращает пользователя.
type Authenticator interface {
	ValidateToken(ctx context.Context, token string) (models.User, error)
}

// WithUser кладёт пользователя в контекст.
func WithUser(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, User, u)
}

// UserFrom достаёт пользователя из контекста.
func UserFrom(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(User).(models.User)
	return u, ok && u.ID > 0
}

// JWTMiddleware возвращает middleware, который проверяет JWT в заголовке Authorization.
// Любая ошибка проверки, включая деактивированную учётную запись, даёт 401.
func JWTMiddleware(auth Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Warn("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

			u, err := auth.ValidateToken(r.Context(), tokenStr)
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}
