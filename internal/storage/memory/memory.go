// Package memory - хранилище sandbox-бэкенда в памяти процесса.
// Используется, когда строка подключения к PostgreSQL не задана, и в тестах.
// Семантика ошибок совпадает с пакетом storage.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/magabrotheeeer/speakup/internal/models"
	"github.com/magabrotheeeer/speakup/internal/storage"
)

// Storage хранит данные в map под одним мьютексом.
type Storage struct {
	mu       sync.Mutex
	seq      int64
	users    map[int64]models.User
	profiles map[int64]models.MentorProfile
	slots    map[int64]models.AvailabilitySlot
	bookings map[int64]models.Booking
	now      func() time.Time
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		users:    make(map[int64]models.User),
		profiles: make(map[int64]models.MentorProfile),
		slots:    make(map[int64]models.AvailabilitySlot),
		bookings: make(map[int64]models.Booking),
		now:      time.Now,
	}
}

// Close ничего не делает и нужен для совместимости с storage.Storage.
func (s *Storage) Close() error { return nil }

// Ping проверяет только отмену контекста.
func (s *Storage) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Storage) nextID() int64 {
	s.seq++
	return s.seq
}

func checkCtx(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
		return nil
	}
}

// CreateUser сохраняет нового пользователя.
func (s *Storage) CreateUser(ctx context.Context, u models.User) (int64, error) {
	const op = "memory.CreateUser"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u.Email = strings.ToLower(u.Email)
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrEmailTaken)
		}
	}
	u.ID = s.nextID()
	s.users[u.ID] = u
	return u.ID, nil
}

// GetUserByEmail ищет пользователя по email без учёта регистра.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "memory.GetUserByEmail"
	if err := checkCtx(ctx, op); err != nil {
		return models.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
}

// GetUserByID ищет пользователя по ID.
func (s *Storage) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	const op = "memory.GetUserByID"
	if err := checkCtx(ctx, op); err != nil {
		return models.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return u, nil
}

// ListUsers возвращает пользователей по возрастанию ID.
func (s *Storage) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "memory.ListUsers"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Storage) updateUser(ctx context.Context, op string, id int64, fn func(*models.User)) (models.User, error) {
	if err := checkCtx(ctx, op); err != nil {
		return models.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	fn(&u)
	s.users[id] = u
	return u, nil
}

// SetUserActive включает или выключает учётную запись.
func (s *Storage) SetUserActive(ctx context.Context, id int64, active bool) (models.User, error) {
	return s.updateUser(ctx, "memory.SetUserActive", id, func(u *models.User) { u.IsActive = active })
}

// SetUserRole меняет роль пользователя.
func (s *Storage) SetUserRole(ctx context.Context, id int64, role models.Role) (models.User, error) {
	return s.updateUser(ctx, "memory.SetUserRole", id, func(u *models.User) { u.Role = role })
}
