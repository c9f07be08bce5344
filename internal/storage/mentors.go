package storage

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/speakup/internal/models"
)

const profileColumns = `mentor_id, display_name, bio, skills, verification_status`

func scanProfile(row scanner) (models.MentorProfile, error) {
	var p models.MentorProfile
	err := row.Scan(&p.MentorID, &p.DisplayName, &p.Bio, &p.Skills, &p.Verification)
	return p, err
}

// UpsertProfile создаёт профиль наставника или обновляет его поля.
// Статус проверки при обновлении не меняется, новый профиль получает PENDING.
func (s *Storage) UpsertProfile(ctx context.Context, p models.MentorProfile) (models.MentorProfile, error) {
	const op = "storage.UpsertProfile"
	if err := checkCtx(ctx, op); err != nil {
		return models.MentorProfile{}, err
	}
	query := `INSERT INTO mentor_profiles (mentor_id, display_name, bio, skills, verification_status)
			  VALUES ($1, $2, $3, $4, 'PENDING')
			  ON CONFLICT (mentor_id) DO UPDATE
			  SET display_name = EXCLUDED.display_name, bio = EXCLUDED.bio, skills = EXCLUDED.skills
			  RETURNING ` + profileColumns
	out, err := scanProfile(s.DB.QueryRowContext(ctx, query, p.MentorID, p.DisplayName, p.Bio, p.Skills))
	if err != nil {
		return models.MentorProfile{}, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// GetProfile возвращает профиль наставника.
func (s *Storage) GetProfile(ctx context.Context, mentorID int64) (models.MentorProfile, error) {
	const op = "storage.GetProfile"
	if err := checkCtx(ctx, op); err != nil {
		return models.MentorProfile{}, err
	}
	p, err := scanProfile(s.DB.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM mentor_profiles WHERE mentor_id = $1`, mentorID))
	if err != nil {
		return models.MentorProfile{}, notFound(op, err)
	}
	return p, nil
}

// ListProfiles возвращает профили активных наставников по фильтру.
// Навык ищется как подстрока без учёта регистра.
func (s *Storage) ListProfiles(ctx context.Context, f models.MentorFilter) ([]models.MentorProfile, error) {
	const op = "storage.ListProfiles"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	query := `SELECT p.mentor_id, p.display_name, p.bio, p.skills, p.verification_status
			  FROM mentor_profiles p
			  JOIN users u ON u.id = p.mentor_id
			  WHERE u.is_active AND u.role = 'MENTOR'
			    AND ($1 = '' OR p.verification_status = $1)
			    AND ($2 = '' OR p.skills ILIKE '%' || $2 || '%')
			  ORDER BY p.display_name, p.mentor_id`
	rows, err := s.DB.QueryContext(ctx, query, string(f.Status), f.Skill)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.MentorProfile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// UpdateVerification меняет статус проверки, только если текущий статус равен from.
func (s *Storage) UpdateVerification(ctx context.Context, mentorID int64, from, to models.VerificationStatus) (models.MentorProfile, error) {
	const op = "storage.UpdateVerification"
	if err := checkCtx(ctx, op); err != nil {
		return models.MentorProfile{}, err
	}
	p, err := scanProfile(s.DB.QueryRowContext(ctx,
		`UPDATE mentor_profiles SET verification_status = $3
		 WHERE mentor_id = $1 AND verification_status = $2
		 RETURNING `+profileColumns, mentorID, from, to))
	if err != nil {
		err = notFound(op, err)
		if _, getErr := s.GetProfile(ctx, mentorID); getErr == nil {
			return models.MentorProfile{}, fmt.Errorf("%s: %w", op, ErrStatusChanged)
		}
		return models.MentorProfile{}, err
	}
	return p, nil
}
