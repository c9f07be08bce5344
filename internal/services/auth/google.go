package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/magabrotheeeer/speakup/internal/cache"
	"github.com/magabrotheeeer/speakup/internal/config"
	"github.com/magabrotheeeer/speakup/internal/models"
	"github.com/magabrotheeeer/speakup/internal/storage"
)

// ErrGoogleDisabled возвращается, когда вход через Google не настроен.
var ErrGoogleDisabled = errors.New("google login is not configured")

// GoogleIdentity - данные пользователя, полученные от Google.
type GoogleIdentity struct {
	Email    string
	Name     string
	Picture  string
	Verified bool
}

// GoogleProvider описывает OAuth2-обмен с Google.
type GoogleProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (GoogleIdentity, error)
}

// GoogleOAuth реализует GoogleProvider через golang.org/x/oauth2 и API userinfo.
type GoogleOAuth struct {
	cfg *oauth2.Config
}

// NewGoogleOAuth возвращает провайдер или nil, если client_id не задан.
func NewGoogleOAuth(cfg config.GoogleOAuth) *GoogleOAuth {
	if cfg.ClientID == "" {
		return nil
	}
	return &GoogleOAuth{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
}

// AuthCodeURL возвращает адрес страницы согласия Google.
func (g *GoogleOAuth) AuthCodeURL(state string) string {
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange обменивает код на токен и запрашивает профиль пользователя.
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (GoogleIdentity, error) {
	const op = "services.auth.GoogleOAuth.Exchange"
	token, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("%s: %w", op, err)
	}
	svc, err := googleoauth.NewService(ctx, option.WithTokenSource(g.cfg.TokenSource(ctx, token)))
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("%s: %w", op, err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("%s: %w", op, err)
	}
	verified := info.VerifiedEmail != nil && *info.VerifiedEmail
	return GoogleIdentity{
		Email:    info.Email,
		Name:     info.Name,
		Picture:  info.Picture,
		Verified: verified,
	}, nil
}

// GoogleLoginURL возвращает адрес согласия для состояния state.
func (s *AuthService) GoogleLoginURL(state string) (string, error) {
	if s.google == nil {
		return "", ErrGoogleDisabled
	}
	return s.google.AuthCodeURL(state), nil
}

// GoogleCallback завершает вход через Google: находит или создаёт ученика, выпускает токен
// и возвращает одноразовый код, по которому портал заберёт токен через RedeemLoginCode.
func (s *AuthService) GoogleCallback(ctx context.Context, code string) (string, error) {
	const op = "services.auth.GoogleCallback"
	if s.google == nil {
		return "", fmt.Errorf("%s: %w", op, ErrGoogleDisabled)
	}
	identity, err := s.google.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if identity.Email == "" || !identity.Verified {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	u, err := s.users.GetUserByEmail(ctx, identity.Email)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		u = models.User{
			Email:    strings.ToLower(identity.Email),
			FullName: identity.Name,
			Role:     models.RoleLearner,
			IsActive: true,
		}
		if identity.Picture != "" {
			pic := identity.Picture
			u.AvatarURL = &pic
		}
		id, err := s.users.CreateUser(ctx, u)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		u.ID = id
		s.log.Info("user registered via google", slog.String("op", op), slog.Int64("user_id", id))
	default:
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if !u.IsActive {
		return "", fmt.Errorf("%s: %w", op, ErrInactive)
	}
	token, err := s.issue(op, u)
	if err != nil {
		return "", err
	}
	loginCode := uuid.NewString()
	if err := s.codes.Set(ctx, cache.LoginCodeKey(loginCode), token, LoginCodeTTL); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return loginCode, nil
}

// RedeemLoginCode обменивает код входа на токен. Код действует один раз.
func (s *AuthService) RedeemLoginCode(ctx context.Context, code string) (string, error) {
	const op = "services.auth.RedeemLoginCode"
	var token string
	found, err := s.codes.Take(ctx, cache.LoginCodeKey(code), &token)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !found || token == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	return token, nil
}
