// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON-ответов sandbox-бэкенда и перевода доменных ошибок в HTTP-статусы.
package response

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/speakup/internal/models"
	authservice "github.com/magabrotheeeer/speakup/internal/services/auth"
	mentorservice "github.com/magabrotheeeer/speakup/internal/services/mentor"
	moderationservice "github.com/magabrotheeeer/speakup/internal/services/moderation"
	reservationservice "github.com/magabrotheeeer/speakup/internal/services/reservation"
	"github.com/magabrotheeeer/speakup/internal/storage"
)

// Response описывает стандартную структуру JSON-ответа сервера.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse - структура ошибки для Swagger-документации.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

const (
	// StatusOK - значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError - значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// StatusOKWithData возвращает успешный Response с переданными данными.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает ответ с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s characters", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s characters", err.Field(), err.Param()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of [%s]", err.Field(), err.Param()))
		case "gtfield":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be after %s", err.Field(), err.Param()))
		case "gt":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be greater than %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}

// FromError переводит ошибку сервиса в HTTP-статус и сообщение для клиента.
// Неизвестные ошибки становятся 500 без подробностей.
func FromError(err error) (int, string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, storage.ErrSlotTaken):
		return http.StatusConflict, "slot already booked"
	case errors.Is(err, storage.ErrEmailTaken):
		return http.StatusConflict, "email already registered"
	case errors.Is(err, storage.ErrStatusChanged), errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict, "invalid status transition"
	case errors.Is(err, authservice.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, authservice.ErrInactive):
		return http.StatusForbidden, "account is deactivated"
	case errors.Is(err, authservice.ErrRoleNotAllowed):
		return http.StatusUnprocessableEntity, "role is not allowed"
	case errors.Is(err, authservice.ErrGoogleDisabled):
		return http.StatusServiceUnavailable, "google login is not configured"
	case errors.Is(err, reservationservice.ErrForbidden),
		errors.Is(err, reservationservice.ErrNotLearner),
		errors.Is(err, mentorservice.ErrNotMentor),
		errors.Is(err, moderationservice.ErrSelfChange):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	}
	return http.StatusInternalServerError, "internal error"
}
