// Package handlers содержит общие помощники HTTP-обработчиков sandbox-бэкенда.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/speakup/internal/api/response"
	"github.com/magabrotheeeer/speakup/internal/lib/sl"
)

// ErrBadID возвращается, когда параметр пути не является положительным числом.
var ErrBadID = errors.New("invalid id")

// IDParam разбирает числовой параметр пути name.
func IDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadID, chi.URLParam(r, name))
	}
	return id, nil
}

// DecodeAndValidate читает JSON-тело в dst и проверяет его валидатором.
// При ошибке ответ уже записан, и вызывающий должен просто вернуться.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, log *slog.Logger, v *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return false
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			log.Info("validation failed", sl.Err(err))
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.ValidationError(verrs))
			return false
		}
		log.Error("validator failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return false
	}
	return true
}

// BadID отвечает 400 на некорректный идентификатор в пути.
func BadID(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	log.Info("bad id in url", sl.Err(err))
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, response.Error("invalid id"))
}

// Fail переводит ошибку сервиса в ответ. Серверные ошибки логируются как Error,
// ожидаемые отказы как Info.
func Fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, msg := response.FromError(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", sl.Err(err))
	} else {
		log.Info("request rejected", slog.Int("status", status), sl.Err(err))
	}
	render.Status(r, status)
	render.JSON(w, r, response.Error(msg))
}

// OK отвечает 200 с данными в конверте.
func OK(w http.ResponseWriter, r *http.Request, data map[string]any) {
	render.JSON(w, r, response.StatusOKWithData(data))
}
