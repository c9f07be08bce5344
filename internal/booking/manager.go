// Package booking - менеджер жизненного цикла бронирований на стороне портала.
//
// Менеджер не хранит собственных списков: он читает коллекции из бэкенда
// через кэш и после каждого изменения помечает затронутые коллекции
// устаревшими. Правила переходов не проверяются заранее: их применяет бэкенд,
// а конфликт превращается в ErrSlotTaken или ErrInvalidTransition.
package booking

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/magabrotheeeer/speakup/internal/apiclient"
	"github.com/magabrotheeeer/speakup/internal/cache"
	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/models"
	"github.com/magabrotheeeer/speakup/internal/policy"
)

var (
	// ErrSlotTaken - слот успели забронировать раньше.
	ErrSlotTaken = errors.New("slot may already be taken")
	// ErrInvalidTransition - бронирование уже не в том статусе, который допускает действие.
	ErrInvalidTransition = errors.New("booking can no longer be changed this way")
)

// API - часть REST-клиента, которую использует менеджер.
type API interface {
	ListMentors(ctx context.Context, f models.MentorFilter) ([]models.MentorProfile, error)
	ListSlots(ctx context.Context, mentorID int64) ([]models.AvailabilitySlot, error)
	CreateSlot(ctx context.Context, in models.NewSlot) (models.AvailabilitySlot, error)
	UpdateProfile(ctx context.Context, in models.ProfileUpdate) (models.MentorProfile, error)
	CreateBooking(ctx context.Context, slotID int64) (models.Booking, error)
	AcceptBooking(ctx context.Context, id int64) (models.Booking, error)
	RejectBooking(ctx context.Context, id int64, reason string) (models.Booking, error)
	CancelBooking(ctx context.Context, id int64) (models.Booking, error)
	ListMentorBookings(ctx context.Context) ([]models.Booking, error)
	ListMyBookings(ctx context.Context) ([]models.Booking, error)
	AdminListMentors(ctx context.Context) ([]models.MentorProfile, error)
	ModerateMentor(ctx context.Context, mentorID int64, action models.VerificationAction) (models.MentorProfile, error)
	AdminListUsers(ctx context.Context) ([]models.User, error)
	SetUserActive(ctx context.Context, userID int64, active bool) (models.User, error)
	SetUserRole(ctx context.Context, userID int64, role models.Role) (models.User, error)
}

// SlotRow - слот в том виде, в каком его показывает портал.
// Занятые слоты не скрываются, а показываются недоступными для выбора.
type SlotRow struct {
	models.AvailabilitySlot
	Selectable bool `json:"selectable"`
}

// Manager - менеджер бронирований одной сессии.
type Manager struct {
	api   API
	cache cache.Cache
	ttl   time.Duration
	owner models.User
	log   *slog.Logger
}

// New создаёт менеджер от имени пользователя owner.
func New(api API, c cache.Cache, ttl time.Duration, owner models.User, log *slog.Logger) *Manager {
	return &Manager{
		api:   api,
		cache: c,
		ttl:   ttl,
		owner: owner,
		log:   log.With(slog.Int64("user_id", owner.ID)),
	}
}

// cached читает коллекцию из кэша, а при промахе загружает её через fetch и сохраняет.
// Если за время загрузки кэш инвалидировали, результат возвращается, но не сохраняется.
// Ошибки кэша не мешают чтению из бэкенда.
func cached[T any](ctx context.Context, m *Manager, key string, fetch func(context.Context) (T, error)) (T, error) {
	var out T
	if found, err := m.cache.Get(ctx, key, &out); err != nil {
		m.log.Warn("cache read failed", slog.String("key", key), sl.Err(err))
	} else if found {
		return out, nil
	}
	gen, genErr := m.cache.Generation(ctx)
	if genErr != nil {
		m.log.Warn("cache generation read failed", slog.String("key", key), sl.Err(genErr))
	}
	out, err := fetch(ctx)
	if err != nil || genErr != nil {
		return out, err
	}
	stored, err := m.cache.SetIfGeneration(ctx, key, gen, out, m.ttl)
	if err != nil {
		m.log.Warn("cache write failed", slog.String("key", key), sl.Err(err))
	} else if !stored {
		m.log.Debug("cache invalidated during fetch, result not stored", slog.String("key", key))
	}
	return out, nil
}

// stale помечает коллекции устаревшими.
func (m *Manager) stale(ctx context.Context, keys ...string) {
	if err := m.cache.Invalidate(ctx, keys...); err != nil {
		m.log.Warn("cache invalidation failed", slog.Any("keys", keys), sl.Err(err))
	}
}

func (m *Manager) staleMentors(ctx context.Context) {
	if err := m.cache.InvalidatePrefix(ctx, cache.MentorsPrefix); err != nil {
		m.log.Warn("cache invalidation failed", slog.String("prefix", cache.MentorsPrefix), sl.Err(err))
	}
}

// ListMentors возвращает наставников, которых роль viewer может видеть.
// Для ученика выдача всегда ограничена проверенными наставниками.
func (m *Manager) ListMentors(ctx context.Context, viewer models.Role, f models.MentorFilter) ([]models.MentorProfile, error) {
	const op = "booking.ListMentors"
	f = policy.MentorQuery(viewer, f)
	mentors, err := cached(ctx, m, cache.MentorsKey(viewer, f), func(ctx context.Context) ([]models.MentorProfile, error) {
		return m.api.ListMentors(ctx, f)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := policy.VisibleMentors(viewer, mentors)
	if f.Skill != "" {
		out = slices.DeleteFunc(out, func(p models.MentorProfile) bool { return !p.HasSkill(f.Skill) })
	}
	return out, nil
}

// ListSlots возвращает слоты наставника по возрастанию времени начала.
func (m *Manager) ListSlots(ctx context.Context, mentorID int64) ([]SlotRow, error) {
	const op = "booking.ListSlots"
	slots, err := cached(ctx, m, cache.SlotsKey(mentorID), func(ctx context.Context) ([]models.AvailabilitySlot, error) {
		return m.api.ListSlots(ctx, mentorID)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	slices.SortStableFunc(slots, func(a, b models.AvailabilitySlot) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	rows := make([]SlotRow, 0, len(slots))
	for _, s := range slots {
		rows = append(rows, SlotRow{AvailabilitySlot: s, Selectable: !s.IsBooked})
	}
	return rows, nil
}

// CreateBooking бронирует слот. Повторная защита от двойного бронирования не
// делается: занятый слот бэкенд отклоняет конфликтом, и возвращается ErrSlotTaken.
func (m *Manager) CreateBooking(ctx context.Context, slotID int64) (models.Booking, error) {
	const op = "booking.CreateBooking"
	b, err := m.api.CreateBooking(ctx, slotID)
	if err != nil {
		if errors.Is(err, apiclient.ErrConflict) {
			return models.Booking{}, fmt.Errorf("%s: %w", op, ErrSlotTaken)
		}
		return models.Booking{}, fmt.Errorf("%s: %w", op, err)
	}
	m.stale(ctx,
		cache.SlotsKey(b.MentorID),
		cache.LearnerBookingsKey(m.owner.ID),
		cache.LearnerBookingsKey(b.LearnerID),
		cache.MentorBookingsKey(b.MentorID),
	)
	m.log.Info("booking created", slog.Int64("booking_id", b.ID), slog.Int64("slot_id", slotID))
	return b, nil
}

func (m *Manager) transition(ctx context.Context, op string, call func(context.Context) (models.Booking, error)) (models.Booking, error) {
	b, err := call(ctx)
	if err != nil {
		if errors.Is(err, apiclient.ErrConflict) {
			return models.Booking{}, fmt.Errorf("%s: %w", op, ErrInvalidTransition)
		}
		return models.Booking{}, fmt.Errorf("%s: %w", op, err)
	}
	m.stale(ctx,
		cache.MentorBookingsKey(b.MentorID),
		cache.LearnerBookingsKey(b.LearnerID),
		cache.MentorBookingsKey(m.owner.ID),
		cache.LearnerBookingsKey(m.owner.ID),
	)
	m.log.Info("booking status changed", slog.String("op", op), slog.Int64("booking_id", b.ID), slog.String("status", string(b.Status)))
	return b, nil
}

// AcceptBooking подтверждает бронирование от имени наставника.
func (m *Manager) AcceptBooking(ctx context.Context, id int64) (models.Booking, error) {
	return m.transition(ctx, "booking.AcceptBooking", func(ctx context.Context) (models.Booking, error) {
		return m.api.AcceptBooking(ctx, id)
	})
}

// RejectBooking отклоняет бронирование от имени наставника.
func (m *Manager) RejectBooking(ctx context.Context, id int64, reason string) (models.Booking, error) {
	return m.transition(ctx, "booking.RejectBooking", func(ctx context.Context) (models.Booking, error) {
		return m.api.RejectBooking(ctx, id, reason)
	})
}

// CancelBooking отменяет бронирование от имени любой из сторон.
func (m *Manager) CancelBooking(ctx context.Context, id int64) (models.Booking, error) {
	return m.transition(ctx, "booking.CancelBooking", func(ctx context.Context) (models.Booking, error) {
		return m.api.CancelBooking(ctx, id)
	})
}

// ListMentorBookings возвращает бронирования на слоты текущего наставника.
func (m *Manager) ListMentorBookings(ctx context.Context) ([]models.Booking, error) {
	const op = "booking.ListMentorBookings"
	out, err := cached(ctx, m, cache.MentorBookingsKey(m.owner.ID), m.api.ListMentorBookings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// ListLearnerBookings возвращает бронирования текущего ученика.
func (m *Manager) ListLearnerBookings(ctx context.Context) ([]models.Booking, error) {
	const op = "booking.ListLearnerBookings"
	out, err := cached(ctx, m, cache.LearnerBookingsKey(m.owner.ID), m.api.ListMyBookings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// CreateSlot открывает слот текущего наставника.
func (m *Manager) CreateSlot(ctx context.Context, in models.NewSlot) (models.AvailabilitySlot, error) {
	const op = "booking.CreateSlot"
	slot, err := m.api.CreateSlot(ctx, in)
	if err != nil {
		return models.AvailabilitySlot{}, fmt.Errorf("%s: %w", op, err)
	}
	m.stale(ctx, cache.SlotsKey(m.owner.ID), cache.SlotsKey(slot.MentorID))
	return slot, nil
}

// UpdateProfile обновляет профиль текущего наставника.
func (m *Manager) UpdateProfile(ctx context.Context, in models.ProfileUpdate) (models.MentorProfile, error) {
	const op = "booking.UpdateProfile"
	p, err := m.api.UpdateProfile(ctx, in)
	if err != nil {
		return models.MentorProfile{}, fmt.Errorf("%s: %w", op, err)
	}
	m.staleMentors(ctx)
	return p, nil
}
