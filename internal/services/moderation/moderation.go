// Package services содержит логику модерации: проверку наставников и управление пользователями.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/speakup/internal/models"
)

// ErrSelfChange возвращается, когда администратор пытается отключить или разжаловать себя.
var ErrSelfChange = errors.New("admin cannot change own status or role")

// Repository определяет методы хранилища для модерации.
type Repository interface {
	GetProfile(ctx context.Context, mentorID int64) (models.MentorProfile, error)
	ListProfiles(ctx context.Context, f models.MentorFilter) ([]models.MentorProfile, error)
	UpdateVerification(ctx context.Context, mentorID int64, from, to models.VerificationStatus) (models.MentorProfile, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SetUserActive(ctx context.Context, id int64, active bool) (models.User, error)
	SetUserRole(ctx context.Context, id int64, role models.Role) (models.User, error)
}

// ModerationService реализует операции администратора.
type ModerationService struct {
	repo Repository
	log  *slog.Logger
}

// NewModerationService создает новый экземпляр ModerationService.
func NewModerationService(repo Repository, log *slog.Logger) *ModerationService {
	return &ModerationService{
		repo: repo,
		log:  log,
	}
}

// ListMentors возвращает наставников во всех статусах проверки.
func (s *ModerationService) ListMentors(ctx context.Context, f models.MentorFilter) ([]models.MentorProfile, error) {
	const op = "services.moderation.ListMentors"
	out, err := s.repo.ListProfiles(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// Moderate применяет действие администратора к статусу проверки наставника.
// Недопустимое действие и гонка с другим администратором возвращают конфликт.
func (s *ModerationService) Moderate(ctx context.Context, mentorID int64, action models.VerificationAction) (models.MentorProfile, error) {
	const op = "services.moderation.Moderate"
	p, err := s.repo.GetProfile(ctx, mentorID)
	if err != nil {
		return models.MentorProfile{}, fmt.Errorf("%s: %w", op, err)
	}
	to, err := p.Verification.Apply(action)
	if err != nil {
		return models.MentorProfile{}, fmt.Errorf("%s: %w", op, err)
	}
	updated, err := s.repo.UpdateVerification(ctx, mentorID, p.Verification, to)
	if err != nil {
		return models.MentorProfile{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("mentor verification changed", slog.String("op", op), slog.Int64("mentor_id", mentorID),
		slog.String("from", string(p.Verification)), slog.String("to", string(to)))
	return updated, nil
}

// ListUsers возвращает всех пользователей.
func (s *ModerationService) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "services.moderation.ListUsers"
	out, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// SetUserActive включает или выключает учётную запись. Пользователи не удаляются.
func (s *ModerationService) SetUserActive(ctx context.Context, admin models.User, id int64, active bool) (models.User, error) {
	const op = "services.moderation.SetUserActive"
	if admin.ID == id {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrSelfChange)
	}
	u, err := s.repo.SetUserActive(ctx, id, active)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user status changed", slog.String("op", op), slog.Int64("user_id", id), slog.Bool("active", active))
	return u, nil
}

// SetUserRole меняет роль пользователя.
func (s *ModerationService) SetUserRole(ctx context.Context, admin models.User, id int64, role models.Role) (models.User, error) {
	const op = "services.moderation.SetUserRole"
	if admin.ID == id {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrSelfChange)
	}
	u, err := s.repo.SetUserRole(ctx, id, role)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user role changed", slog.String("op", op), slog.Int64("user_id", id), slog.String("role", string(role)))
	return u, nil
}
