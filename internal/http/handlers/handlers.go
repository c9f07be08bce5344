// Package handlers содержит общие помощники обработчиков портала.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/speakup/internal/apiclient"
	"github.com/magabrotheeeer/speakup/internal/http/middlewarectx"
	"github.com/magabrotheeeer/speakup/internal/http/response"
	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/policy"
	"github.com/magabrotheeeer/speakup/internal/session"
)

// Logger возвращает логгер запроса с op и request_id.
func Logger(log *slog.Logger, r *http.Request, op string) *slog.Logger {
	return log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Scope достаёт Scope аутентифицированной сессии. Обработчики разделов стоят за
// RequireRole, поэтому отсутствие менеджера означает ошибку сборки маршрутов.
func Scope(w http.ResponseWriter, r *http.Request, log *slog.Logger) (*middlewarectx.Scope, bool) {
	scope, ok := middlewarectx.ScopeFrom(r.Context())
	if !ok || scope.Manager == nil {
		log.Error("handler reached without authenticated scope")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("not authenticated"))
		return nil, false
	}
	return scope, true
}

// Decode читает JSON-тело в dst и проверяет его. При ошибке ответ уже записан.
func Decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, v *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return false
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			log.Error("validator failed", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid request body"))
			return false
		}
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(verrs))
		return false
	}
	return true
}

// ID разбирает числовой параметр пути. При ошибке ответ уже записан.
func ID(w http.ResponseWriter, r *http.Request, log *slog.Logger, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		log.Info("bad id in url", slog.String("param", chi.URLParam(r, name)))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid id"))
		return 0, false
	}
	return id, true
}

// Fail превращает ошибку в JSON-уведомление. Если бэкенд ответил 401 посреди
// запроса, сессия уже завершена клиентом, и браузер отправляется на вход, как
// это делает RequireRole. Отказ в новом входе остаётся JSON-ответом.
func Fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, msg := response.FromError(err)
	switch {
	case status >= http.StatusInternalServerError:
		log.Error("request failed", sl.Err(err))
	case errors.Is(err, apiclient.ErrUnauthorized) && !errors.Is(err, session.ErrRejected):
		log.Warn("backend rejected session", sl.Err(err))
		http.Redirect(w, r, policy.LoginPath, http.StatusSeeOther)
		return
	default:
		log.Info("request rejected", slog.Int("status", status), sl.Err(err))
	}
	render.Status(r, status)
	render.JSON(w, r, response.Error(msg))
}

// OK отвечает 200 с данными в конверте.
func OK(w http.ResponseWriter, r *http.Request, data map[string]any) {
	render.JSON(w, r, response.StatusOKWithData(data))
}
