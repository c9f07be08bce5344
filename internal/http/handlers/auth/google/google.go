// Package google реализует вход через Google со стороны портала.
//
// Портал не говорит с Google сам. Start сохраняет в cookie сессии случайный
// state и отправляет браузер на бэкенд. Бэкенд после согласия возвращает браузер
// на /auth/callback с тем же state и одноразовым кодом, а портал обменивает код
// на токен запросом к бэкенду. Токен в адресной строке не появляется.
package google

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/speakup/internal/http/handlers"
	"github.com/magabrotheeeer/speakup/internal/http/middlewarectx"
	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/policy"
)

// StateKey - ключ состояния входа в cookie сессии.
const StateKey = "oauth_state"

// Backend - часть клиента бэкенда, нужная для входа через Google.
type Backend interface {
	GoogleLoginURL(state string) string
	ExchangeLoginCode(ctx context.Context, code string) (string, error)
}

// Handler обрабатывает GET /auth/google и GET /auth/callback.
type Handler struct {
	log     *slog.Logger
	backend Backend
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, backend Backend) *Handler {
	return &Handler{log: log, backend: backend}
}

// Start запоминает state и перенаправляет браузер на бэкенд.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.google.Start"
	log := handlers.Logger(h.log, r, op)

	scope, ok := middlewarectx.ScopeFrom(r.Context())
	if !ok || scope.Values == nil {
		log.Error("session scope is missing")
		loginWithError(w, r, "internal")
		return
	}
	state := uuid.NewString()
	if err := scope.Values.SetValue(StateKey, state); err != nil {
		log.Error("failed to store oauth state", sl.Err(err))
		loginWithError(w, r, "internal")
		return
	}
	http.Redirect(w, r, h.backend.GoogleLoginURL(state), http.StatusTemporaryRedirect)
}

// Callback проверяет state, обменивает код на токен и открывает сессию.
// State одноразовый: он удаляется из cookie при любом исходе.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.google.Callback"
	log := handlers.Logger(h.log, r, op)

	scope, ok := middlewarectx.ScopeFrom(r.Context())
	if !ok || scope.Values == nil {
		log.Error("session scope is missing")
		loginWithError(w, r, "internal")
		return
	}
	expected, found, err := scope.Values.TakeValue(StateKey)
	if err != nil {
		log.Warn("failed to read oauth state", sl.Err(err))
	}

	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		log.Info("google login failed on backend", slog.String("reason", reason))
		loginWithError(w, r, reason)
		return
	}
	if !found || subtle.ConstantTimeCompare([]byte(expected), []byte(q.Get("state"))) != 1 {
		log.Warn("oauth state mismatch")
		loginWithError(w, r, "invalid_state")
		return
	}
	code := q.Get("code")
	if code == "" {
		log.Info("callback without code")
		loginWithError(w, r, "missing_code")
		return
	}

	token, err := h.backend.ExchangeLoginCode(r.Context(), code)
	if err != nil {
		log.Info("login code rejected", sl.Err(err))
		loginWithError(w, r, "google_login_failed")
		return
	}
	u, err := scope.Session.Login(r.Context(), token)
	if err != nil {
		log.Info("google token rejected", sl.Err(err))
		loginWithError(w, r, "google_login_failed")
		return
	}

	log.Info("google login success", slog.Int64("user_id", u.ID))
	http.Redirect(w, r, policy.Landing(u.Role), http.StatusSeeOther)
}

func loginWithError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, policy.LoginPath+"?error="+url.QueryEscape(code), http.StatusSeeOther)
}
