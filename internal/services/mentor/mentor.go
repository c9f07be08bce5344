// Package services содержит логику каталога наставников: профили и слоты доступности.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/speakup/internal/models"
	"github.com/magabrotheeeer/speakup/internal/policy"
)

// ErrNotMentor возвращается, когда операцию наставника вызывает пользователь другой роли.
var ErrNotMentor = errors.New("caller is not a mentor")

// Repository определяет методы хранилища, нужные каталогу.
type Repository interface {
	UpsertProfile(ctx context.Context, p models.MentorProfile) (models.MentorProfile, error)
	GetProfile(ctx context.Context, mentorID int64) (models.MentorProfile, error)
	ListProfiles(ctx context.Context, f models.MentorFilter) ([]models.MentorProfile, error)
	CreateSlot(ctx context.Context, slot models.AvailabilitySlot) (models.AvailabilitySlot, error)
	ListSlots(ctx context.Context, mentorID int64) ([]models.AvailabilitySlot, error)
}

// MentorService реализует каталог наставников.
type MentorService struct {
	repo Repository
	log  *slog.Logger
}

// NewMentorService создает новый экземпляр MentorService.
func NewMentorService(repo Repository, log *slog.Logger) *MentorService {
	return &MentorService{
		repo: repo,
		log:  log,
	}
}

// ListMentors возвращает наставников по фильтру. Для всех, кроме администратора,
// фильтр по статусу принудительно равен VERIFIED.
func (s *MentorService) ListMentors(ctx context.Context, viewer models.Role, f models.MentorFilter) ([]models.MentorProfile, error) {
	const op = "services.mentor.ListMentors"
	f = policy.MentorQuery(viewer, f)
	f.Skill = strings.TrimSpace(f.Skill)

	profiles, err := s.repo.ListProfiles(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return policy.VisibleMentors(viewer, profiles), nil
}

// ListSlots возвращает слоты наставника по возрастанию времени начала.
func (s *MentorService) ListSlots(ctx context.Context, mentorID int64) ([]models.AvailabilitySlot, error) {
	const op = "services.mentor.ListSlots"
	slots, err := s.repo.ListSlots(ctx, mentorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return slots, nil
}

// CreateSlot открывает новый слот от имени наставника.
func (s *MentorService) CreateSlot(ctx context.Context, mentor models.User, req models.NewSlot) (models.AvailabilitySlot, error) {
	const op = "services.mentor.CreateSlot"
	if mentor.Role != models.RoleMentor {
		return models.AvailabilitySlot{}, fmt.Errorf("%s: %w", op, ErrNotMentor)
	}
	slot, err := s.repo.CreateSlot(ctx, models.AvailabilitySlot{
		MentorID:  mentor.ID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		return models.AvailabilitySlot{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("slot created", slog.String("op", op), slog.Int64("slot_id", slot.ID), slog.Int64("mentor_id", mentor.ID))
	return slot, nil
}

// UpdateProfile создаёт или обновляет профиль наставника.
// Новый профиль ждёт проверки администратором.
func (s *MentorService) UpdateProfile(ctx context.Context, mentor models.User, req models.ProfileUpdate) (models.MentorProfile, error) {
	const op = "services.mentor.UpdateProfile"
	if mentor.Role != models.RoleMentor {
		return models.MentorProfile{}, fmt.Errorf("%s: %w", op, ErrNotMentor)
	}
	p, err := s.repo.UpsertProfile(ctx, models.MentorProfile{
		MentorID:    mentor.ID,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Bio:         req.Bio,
		Skills:      strings.Join(models.MentorProfile{Skills: req.Skills}.SkillList(), ", "),
	})
	if err != nil {
		return models.MentorProfile{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// Profile возвращает профиль наставника.
func (s *MentorService) Profile(ctx context.Context, mentorID int64) (models.MentorProfile, error) {
	const op = "services.mentor.Profile"
	p, err := s.repo.GetProfile(ctx, mentorID)
	if err != nil {
		return models.MentorProfile{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}
