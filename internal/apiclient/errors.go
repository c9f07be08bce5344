package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Классы ошибок бэкенда. Конкретная ошибка - *Error, её класс проверяется через errors.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrTransport    = errors.New("network failure")
)

// Error - неуспешный ответ бэкенда или сбой сети.
type Error struct {
	// StatusCode равен 0 для сбоев транспорта.
	StatusCode int
	// Message - текст из поля error конверта ответа, если он был.
	Message string
	kind    error
}

// NewError создаёт ошибку для HTTP-статуса бэкенда.
func NewError(status int, msg string) *Error {
	return &Error{StatusCode: status, Message: msg, kind: classify(status)}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.kind, e.Message)
}

// Unwrap возвращает класс ошибки.
func (e *Error) Unwrap() error { return e.kind }

// classify переводит HTTP-статус в класс ошибки.
//
//	401 → ErrUnauthorized, 403 → ErrForbidden, 404 → ErrNotFound,
//	409 → ErrConflict, 400/422 → ErrValidation, остальное → ErrTransport.
func classify(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrValidation
	}
	return ErrTransport
}

// Outcome возвращает короткое имя класса ошибки для метрик и логов.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrValidation):
		return "validation"
	}
	return "transport"
}
