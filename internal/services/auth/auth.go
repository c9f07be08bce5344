// Package services содержит логику регистрации, входа и проверки токенов sandbox-бэкенда.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/speakup/internal/lib/jwt"
	"github.com/magabrotheeeer/speakup/internal/lib/password"
	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/models"
	"github.com/magabrotheeeer/speakup/internal/storage"
)

var (
	// ErrInvalidCredentials возвращается при неверном email или пароле.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactive возвращается, если учётная запись деактивирована.
	ErrInactive = errors.New("account is deactivated")
	// ErrRoleNotAllowed возвращается при попытке самостоятельно зарегистрироваться администратором.
	ErrRoleNotAllowed = errors.New("role is not allowed for self registration")
)

// UserRepository описывает контракт для работы с пользователями в хранилище.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя и возвращает его ID.
	CreateUser(ctx context.Context, u models.User) (int64, error)
	// GetUserByEmail возвращает пользователя по email или storage.ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	// GetUserByID возвращает пользователя по ID или storage.ErrNotFound.
	GetUserByID(ctx context.Context, id int64) (models.User, error)
}

// CodeStore хранит одноразовые коды входа через Google.
type CodeStore interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Take(ctx context.Context, key string, result any) (bool, error)
}

// LoginCodeTTL - время жизни кода входа до обмена на токен.
const LoginCodeTTL = time.Minute

// AuthService отвечает за регистрацию, вход и проверку JWT.
type AuthService struct {
	users    UserRepository
	jwtMaker jwt.Maker
	google   GoogleProvider
	codes    CodeStore
	log      *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
// google может быть nil, тогда вход через Google недоступен.
func NewAuthService(users UserRepository, jwtMaker jwt.Maker, google GoogleProvider, codes CodeStore, log *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
		google:   google,
		codes:    codes,
		log:      log,
	}
}

// Register создает пользователя с ролью LEARNER или MENTOR.
func (s *AuthService) Register(ctx context.Context, req models.Registration) (models.User, error) {
	const op = "services.auth.Register"
	if req.Role == models.RoleAdmin {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrRoleNotAllowed)
	}
	role := req.Role
	if role == "" {
		role = models.RoleLearner
	}

	hashed, err := password.GetHash(req.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	u := models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:     req.FullName,
		Role:         role,
		IsActive:     true,
		PasswordHash: hashed,
	}
	id, err := s.users.CreateUser(ctx, u)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	u.ID = id
	s.log.Info("user registered", slog.String("op", op), slog.Int64("user_id", id), slog.String("role", string(role)))
	return u, nil
}

// Login проверяет пароль пользователя и выпускает токен доступа.
func (s *AuthService) Login(ctx context.Context, creds models.Credentials) (string, error) {
	const op = "services.auth.Login"
	u, err := s.users.GetUserByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if u.PasswordHash == "" {
		// Пользователь создан через Google и пароля не имеет.
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err := password.CompareHash(u.PasswordHash, creds.Password); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !u.IsActive {
		return "", fmt.Errorf("%s: %w", op, ErrInactive)
	}
	return s.issue(op, u)
}

func (s *AuthService) issue(op string, u models.User) (string, error) {
	token, err := s.jwtMaker.GenerateToken(u.ID, u.Role)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// ValidateToken разбирает токен и возвращает актуального пользователя из хранилища.
// Роль и активность берутся из хранилища, а не из токена: смена роли действует сразу.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (models.User, error) {
	const op = "services.auth.ValidateToken"
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	id, err := claims.UserID()
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if !u.IsActive {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrInactive)
	}
	return u, nil
}

// SeedAdmin создаёт администратора, если пользователя с таким email ещё нет.
func (s *AuthService) SeedAdmin(ctx context.Context, email, rawPassword string) error {
	const op = "services.auth.SeedAdmin"
	if email == "" {
		return nil
	}
	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	id, err := s.users.CreateUser(ctx, models.User{
		Email:        strings.ToLower(email),
		FullName:     "Administrator",
		Role:         models.RoleAdmin,
		IsActive:     true,
		PasswordHash: hashed,
	})
	if err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return nil
		}
		s.log.Error("failed to seed admin", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("admin account created", slog.String("op", op), slog.Int64("user_id", id))
	return nil
}
