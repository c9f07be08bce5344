// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON-ответов портала. Ошибки бэкенда и менеджера бронирований
// переводятся здесь в понятные пользователю уведомления.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/speakup/internal/apiclient"
	"github.com/magabrotheeeer/speakup/internal/booking"
	"github.com/magabrotheeeer/speakup/internal/session"
)

// Response описывает стандартную структуру JSON-ответа портала.
// Поле Status - "OK", "Error" или "Loading".
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

const (
	// StatusOK - значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError - значение статуса для ответа с ошибкой.
	StatusError = "Error"
	// StatusLoading - личность пользователя ещё проверяется, раздел не показывается.
	StatusLoading = "Loading"
)

// StatusOKWithData возвращает успешный Response с переданными данными.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
	}
}

// Loading возвращает заглушку на время проверки сессии.
func Loading() Response {
	return Response{Status: StatusLoading}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации формы.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min", "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s has invalid length", err.Field()))
		case "gtfield":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be after %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}

// FromError переводит ошибку в HTTP-статус и текст уведомления.
func FromError(err error) (int, string) {
	var apiErr *apiclient.Error
	switch {
	case errors.Is(err, booking.ErrSlotTaken):
		return http.StatusConflict, "slot may already be taken"
	case errors.Is(err, booking.ErrInvalidTransition):
		return http.StatusConflict, "booking can no longer be changed this way"
	case errors.Is(err, session.ErrRejected), errors.Is(err, session.ErrEmptyToken):
		return http.StatusUnauthorized, "login failed"
	case errors.Is(err, apiclient.ErrUnauthorized):
		return http.StatusUnauthorized, "session expired, please log in again"
	case errors.Is(err, apiclient.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apiclient.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, apiclient.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apiclient.ErrValidation):
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return http.StatusUnprocessableEntity, apiErr.Message
		}
		return http.StatusUnprocessableEntity, "validation failed"
	case errors.Is(err, apiclient.ErrTransport):
		return http.StatusBadGateway, "network failure, try again"
	}
	return http.StatusInternalServerError, "internal error"
}
