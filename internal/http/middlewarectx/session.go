// Package middlewarectx содержит HTTP middleware портала.
//
// SessionMiddleware восстанавливает сессию браузера из cookie и кладёт в контекст
// запроса Scope: сессию, клиента бэкенда от её имени и менеджер бронирований.
// RequireRole решает по сессии, можно ли показывать раздел, и до решения
// ничего не пишет в ответ.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/speakup/internal/apiclient"
	"github.com/magabrotheeeer/speakup/internal/booking"
	"github.com/magabrotheeeer/speakup/internal/cache"
	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/session"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// ScopeKey - ключ Scope в контексте.
const ScopeKey Key = "scope"

// Scope - всё, что принадлежит сессии одного браузера в рамках запроса.
type Scope struct {
	Session *session.Session
	// Client действует от имени сессии: подставляет токен и завершает сессию на 401.
	Client *apiclient.Client
	// Manager есть только у аутентифицированной сессии.
	Manager *booking.Manager
	// Values - прочие значения cookie сессии (состояние входа через Google).
	Values session.ValueStore
}

// ScopeFrom достаёт Scope из контекста.
func ScopeFrom(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(ScopeKey).(*Scope)
	return s, ok && s != nil
}

// WithScope кладёт Scope в контекст.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, ScopeKey, s)
}

// SessionOptions - зависимости SessionMiddleware.
type SessionOptions struct {
	Store *session.CookieStore
	API   *apiclient.Client
	Cache cache.Cache
	TTL   time.Duration
}

// SessionMiddleware создаёт сессию для каждого запроса и восстанавливает её из cookie.
// Отказ бэкенда не прерывает запрос: сессия просто остаётся неаутентифицированной,
// а решение принимает RequireRole.
func SessionMiddleware(opts SessionOptions, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.SessionMiddleware"
			reqLog := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			creds := opts.Store.Bind(w, r)
			sess := session.New(creds, opts.API, reqLog)
			if err := sess.Restore(r.Context()); err != nil {
				reqLog.Info("stored session rejected", sl.Err(err))
			}

			scope := &Scope{
				Session: sess,
				Client:  opts.API.WithCredentials(sess),
				Values:  creds,
			}
			if u, ok := sess.User(); ok {
				scope.Manager = booking.New(scope.Client, opts.Cache, opts.TTL, u, log)
			}
			next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), scope)))
		})
	}
}
