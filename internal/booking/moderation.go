package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/speakup/internal/apiclient"
	"github.com/magabrotheeeer/speakup/internal/cache"
	"github.com/magabrotheeeer/speakup/internal/models"
)

// AdminMentors возвращает наставников во всех статусах проверки.
func (m *Manager) AdminMentors(ctx context.Context) ([]models.MentorProfile, error) {
	return m.ListMentors(ctx, models.RoleAdmin, models.MentorFilter{})
}

// ModerateMentor меняет статус проверки наставника.
// После изменения все выборки наставников помечаются устаревшими.
func (m *Manager) ModerateMentor(ctx context.Context, mentorID int64, action models.VerificationAction) (models.MentorProfile, error) {
	const op = "booking.ModerateMentor"
	p, err := m.api.ModerateMentor(ctx, mentorID, action)
	if err != nil {
		if errors.Is(err, apiclient.ErrConflict) {
			return models.MentorProfile{}, fmt.Errorf("%s: %w", op, ErrInvalidTransition)
		}
		return models.MentorProfile{}, fmt.Errorf("%s: %w", op, err)
	}
	m.staleMentors(ctx)
	m.log.Info("mentor moderated", slog.Int64("mentor_id", mentorID), slog.String("status", string(p.Verification)))
	return p, nil
}

// ListUsers возвращает пользователей платформы.
func (m *Manager) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "booking.ListUsers"
	out, err := cached(ctx, m, cache.AdminUsersKey, m.api.AdminListUsers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// SetUserActive включает или выключает учётную запись.
func (m *Manager) SetUserActive(ctx context.Context, userID int64, active bool) (models.User, error) {
	const op = "booking.SetUserActive"
	u, err := m.api.SetUserActive(ctx, userID, active)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	m.stale(ctx, cache.AdminUsersKey)
	return u, nil
}

// SetUserRole меняет роль пользователя.
func (m *Manager) SetUserRole(ctx context.Context, userID int64, role models.Role) (models.User, error) {
	const op = "booking.SetUserRole"
	u, err := m.api.SetUserRole(ctx, userID, role)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	m.stale(ctx, cache.AdminUsersKey)
	m.staleMentors(ctx)
	return u, nil
}
