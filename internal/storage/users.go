package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/speakup/internal/models"
)

const userColumns = `id, email, full_name, role, is_active, avatar_url, password_hash`

func scanUser(row scanner) (models.User, error) {
	var (
		u      models.User
		avatar sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.IsActive, &avatar, &u.PasswordHash); err != nil {
		return models.User{}, err
	}
	if avatar.Valid {
		u.AvatarURL = &avatar.String
	}
	return u, nil
}

// CreateUser сохраняет нового пользователя и возвращает его ID.
func (s *Storage) CreateUser(ctx context.Context, u models.User) (int64, error) {
	const op = "storage.CreateUser"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	query := `INSERT INTO users (email, full_name, role, is_active, avatar_url, password_hash)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var id int64
	err := s.DB.QueryRowContext(ctx, query,
		strings.ToLower(u.Email), u.FullName, u.Role, u.IsActive, u.AvatarURL, u.PasswordHash).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// GetUserByEmail возвращает пользователя по email без учёта регистра.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "storage.GetUserByEmail"
	if err := checkCtx(ctx, op); err != nil {
		return models.User{}, err
	}
	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
	if err != nil {
		return models.User{}, notFound(op, err)
	}
	return u, nil
}

// GetUserByID возвращает пользователя по ID.
func (s *Storage) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	const op = "storage.GetUserByID"
	if err := checkCtx(ctx, op); err != nil {
		return models.User{}, err
	}
	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return models.User{}, notFound(op, err)
	}
	return u, nil
}

// ListUsers возвращает всех пользователей по возрастанию ID.
func (s *Storage) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "storage.ListUsers"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// SetUserActive включает или выключает учётную запись.
func (s *Storage) SetUserActive(ctx context.Context, id int64, active bool) (models.User, error) {
	const op = "storage.SetUserActive"
	if err := checkCtx(ctx, op); err != nil {
		return models.User{}, err
	}
	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`UPDATE users SET is_active = $2 WHERE id = $1 RETURNING `+userColumns, id, active))
	if err != nil {
		return models.User{}, notFound(op, err)
	}
	return u, nil
}

// SetUserRole меняет роль пользователя.
func (s *Storage) SetUserRole(ctx context.Context, id int64, role models.Role) (models.User, error) {
	const op = "storage.SetUserRole"
	if err := checkCtx(ctx, op); err != nil {
		return models.User{}, err
	}
	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`UPDATE users SET role = $2 WHERE id = $1 RETURNING `+userColumns, id, role))
	if err != nil {
		return models.User{}, notFound(op, err)
	}
	return u, nil
}
