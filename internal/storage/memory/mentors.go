package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/magabrotheeeer/speakup/internal/models"
	"github.com/magabrotheeeer/speakup/internal/storage"
)

// UpsertProfile создаёт профиль в статусе PENDING или обновляет поля существующего.
func (s *Storage) UpsertProfile(ctx context.Context, p models.MentorProfile) (models.MentorProfile, error) {
	const op = "memory.UpsertProfile"
	if err := checkCtx(ctx, op); err != nil {
		return models.MentorProfile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.profiles[p.MentorID]; ok {
		p.Verification = existing.Verification
	} else {
		p.Verification = models.VerificationPending
	}
	s.profiles[p.MentorID] = p
	return p, nil
}

// GetProfile возвращает профиль наставника.
func (s *Storage) GetProfile(ctx context.Context, mentorID int64) (models.MentorProfile, error) {
	const op = "memory.GetProfile"
	if err := checkCtx(ctx, op); err != nil {
		return models.MentorProfile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[mentorID]
	if !ok {
		return models.MentorProfile{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return p, nil
}

// ListProfiles возвращает профили активных наставников по фильтру.
func (s *Storage) ListProfiles(ctx context.Context, f models.MentorFilter) ([]models.MentorProfile, error) {
	const op = "memory.ListProfiles"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	skill := strings.ToLower(f.Skill)
	out := make([]models.MentorProfile, 0)
	for id, p := range s.profiles {
		u, ok := s.users[id]
		if !ok || !u.IsActive || u.Role != models.RoleMentor {
			continue
		}
		if f.Status != "" && p.Verification != f.Status {
			continue
		}
		if skill != "" && !strings.Contains(strings.ToLower(p.Skills), skill) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].MentorID < out[j].MentorID
	})
	return out, nil
}

// UpdateVerification меняет статус проверки, если текущий равен from.
func (s *Storage) UpdateVerification(ctx context.Context, mentorID int64, from, to models.VerificationStatus) (models.MentorProfile, error) {
	const op = "memory.UpdateVerification"
	if err := checkCtx(ctx, op); err != nil {
		return models.MentorProfile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[mentorID]
	if !ok {
		return models.MentorProfile{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if p.Verification != from {
		return models.MentorProfile{}, fmt.Errorf("%s: %w", op, storage.ErrStatusChanged)
	}
	p.Verification = to
	s.profiles[mentorID] = p
	return p, nil
}
