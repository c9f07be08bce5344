// Package cache хранит копии коллекций бэкенда, прочитанные порталом.
//
// Кэш не является источником истины: после любого изменения менеджер
// бронирований помечает затронутые коллекции устаревшими, и следующее
// чтение идёт в бэкенд.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/speakup/internal/models"
)

// Cache - хранилище закэшированных коллекций.
//
// Каждая инвалидация увеличивает поколение кэша. Чтение из бэкенда, начатое
// до инвалидации, сохраняется через SetIfGeneration и не перезаписывает
// более свежее состояние.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	// Take читает значение и удаляет его одной операцией.
	Take(ctx context.Context, key string, result any) (bool, error)
	Invalidate(ctx context.Context, keys ...string) error
	InvalidatePrefix(ctx context.Context, prefix string) error
	Generation(ctx context.Context) (int64, error)
	// SetIfGeneration сохраняет значение, только если поколение всё ещё равно gen.
	SetIfGeneration(ctx context.Context, key string, gen int64, value any, expiration time.Duration) (bool, error)
}

// LoginCodeKey - ключ одноразового кода входа через Google.
func LoginCodeKey(code string) string {
	return "login_code:" + code
}

// MentorsPrefix - общий префикс всех выборок наставников.
const MentorsPrefix = "mentors:"

// MentorsKey - ключ выборки наставников для роли и фильтра.
func MentorsKey(viewer models.Role, f models.MentorFilter) string {
	return fmt.Sprintf("%s%s:%s:%s", MentorsPrefix, viewer, strings.ToLower(strings.TrimSpace(f.Skill)), f.Status)
}

// SlotsKey - ключ слотов наставника.
func SlotsKey(mentorID int64) string {
	return fmt.Sprintf("slots:%d", mentorID)
}

// LearnerBookingsKey - ключ бронирований ученика.
func LearnerBookingsKey(learnerID int64) string {
	return fmt.Sprintf("bookings:learner:%d", learnerID)
}

// MentorBookingsKey - ключ бронирований на слоты наставника.
func MentorBookingsKey(mentorID int64) string {
	return fmt.Sprintf("bookings:mentor:%d", mentorID)
}

// AdminUsersKey - ключ списка пользователей для администратора.
const AdminUsersKey = "admin:users"
