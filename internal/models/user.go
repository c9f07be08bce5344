// Package models содержит доменные структуры платформы разговорной практики:
// пользователей, профили наставников, слоты доступности и бронирования.
// Структуры используются и порталом (как кэшированная копия данных бэкенда),
// и sandbox-реализацией REST-контракта.
package models

import "strings"

// Role — роль пользователя платформы.
type Role string

const (
	// RoleLearner — ученик, бронирует слоты наставников.
	RoleLearner Role = "LEARNER"
	// RoleMentor — наставник, публикует слоты и подтверждает бронирования.
	RoleMentor Role = "MENTOR"
	// RoleAdmin — администратор, модерирует наставников и пользователей.
	RoleAdmin Role = "ADMIN"
)

// Valid сообщает, является ли роль одной из известных.
func (r Role) Valid() bool {
	switch r {
	case RoleLearner, RoleMentor, RoleAdmin:
		return true
	}
	return false
}

// ParseRole разбирает роль без учёта регистра. Неизвестная роль возвращает false.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// User представляет пользователя платформы.
// Пользователи не удаляются: администратор может лишь деактивировать учётную запись.
type User struct {
	ID           int64   `json:"id"`
	Email        string  `json:"email"`
	FullName     string  `json:"full_name"`
	Role         Role    `json:"role"`
	IsActive     bool    `json:"is_active"`
	AvatarURL    *string `json:"avatar_url,omitempty"`
	PasswordHash string  `json:"-"`
}

// Credentials — учётные данные для входа по email и паролю.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginCodeExchange — тело запроса на обмен одноразового кода входа на токен.
type LoginCodeExchange struct {
	Code string `json:"code" validate:"required"`
}

// UserStatusUpdate — тело запроса администратора на (де)активацию пользователя.
type UserStatusUpdate struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// UserRoleUpdate — тело запроса администратора на смену роли.
type UserRoleUpdate struct {
	Role Role `json:"role" validate:"required,oneof=LEARNER MENTOR ADMIN"`
}

// Registration — данные самостоятельной регистрации. Администратором зарегистрироваться нельзя.
type Registration struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required,max=255"`
	Role     Role   `json:"role,omitempty" validate:"omitempty,oneof=LEARNER MENTOR"`
}
