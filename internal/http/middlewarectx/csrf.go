package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/gorilla/csrf"

	"github.com/magabrotheeeer/speakup/internal/config"
	"github.com/magabrotheeeer/speakup/internal/http/response"
	"github.com/magabrotheeeer/speakup/internal/lib/sl"
)

// CSRFHeader - заголовок, в котором портал отдаёт и принимает CSRF-токен.
const CSRFHeader = "X-CSRF-Token"

// CSRFMiddleware защищает изменяющие запросы портала. Токен выдаётся в заголовке
// X-CSRF-Token каждого ответа и должен вернуться в нём же. Пустой ключ отключает защиту.
func CSRFMiddleware(log *slog.Logger, cfg config.CSRF) func(http.Handler) http.Handler {
	if cfg.AuthKey == "" {
		log.Warn("csrf auth key is empty, csrf protection disabled")
		return func(next http.Handler) http.Handler { return next }
	}

	protect := csrf.Protect(
		[]byte(cfg.AuthKey),
		csrf.Secure(cfg.Secure),
		csrf.Path("/"),
		csrf.RequestHeader(CSRFHeader),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Warn("csrf check failed", slog.String("path", r.URL.Path), sl.Err(csrf.FailureReason(r)))
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error("invalid csrf token"))
		})),
	)

	return func(next http.Handler) http.Handler {
		withToken := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(CSRFHeader, csrf.Token(r))
			next.ServeHTTP(w, r)
		})
		protected := protect(withToken)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}
