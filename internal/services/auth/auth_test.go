package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/magabrotheeeer/speakup/internal/cache"
	"github.com/magabrotheeeer/speakup/internal/lib/jwt"
	"github.com/magabrotheeeer/speakup/internal/lib/password"
	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/models"
	services "github.com/magabrotheeeer/speakup/internal/services/auth"
	"github.com/magabrotheeeer/speakup/internal/storage"
	"github.com/magabrotheeeer/speakup/internal/storage/memory"
)

func init() {
	password.Cost = bcrypt.MinCost
}

// Мок для GoogleProvider
type GoogleMock struct {
	mock.Mock
}

func (m *GoogleMock) AuthCodeURL(state string) string {
	return m.Called(state).String(0)
}

func (m *GoogleMock) Exchange(ctx context.Context, code string) (services.GoogleIdentity, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(services.GoogleIdentity), args.Error(1)
}

func newService(t *testing.T, google services.GoogleProvider) (*services.AuthService, *memory.Storage) {
	t.Helper()
	repo := memory.New()
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	return services.NewAuthService(repo, maker, google, cache.NewMemory(), sl.Discard()), repo
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name     string
		req      models.Registration
		wantRole models.Role
		wantErr  error
	}{
		{
			name:     "learner by default",
			req:      models.Registration{Email: "Lev@Speakup.dev", Password: "secret1", FullName: "Lev"},
			wantRole: models.RoleLearner,
		},
		{
			name:     "mentor",
			req:      models.Registration{Email: "anna@speakup.dev", Password: "secret1", FullName: "Anna", Role: models.RoleMentor},
			wantRole: models.RoleMentor,
		},
		{
			name:    "admin is not allowed",
			req:     models.Registration{Email: "root@speakup.dev", Password: "secret1", FullName: "Root", Role: models.RoleAdmin},
			wantErr: services.ErrRoleNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t, nil)
			u, err := svc.Register(context.Background(), tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, u.Role)
			assert.True(t, u.IsActive)
			assert.NotEqual(t, tt.req.Password, u.PasswordHash)
		})
	}
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	svc, _ := newService(t, nil)
	req := models.Registration{Email: "lev@speakup.dev", Password: "secret1", FullName: "Lev"}
	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	req.Email = "LEV@speakup.dev"
	_, err = svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, storage.ErrEmailTaken)
}

func TestAuthService_LoginAndValidate(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t, nil)
	u, err := svc.Register(ctx, models.Registration{Email: "lev@speakup.dev", Password: "secret1", FullName: "Lev"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, models.Credentials{Email: "lev@speakup.dev", Password: "wrong-pass"})
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	_, err = svc.Login(ctx, models.Credentials{Email: "nobody@speakup.dev", Password: "secret1"})
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	token, err := svc.Login(ctx, models.Credentials{Email: "lev@speakup.dev", Password: "secret1"})
	require.NoError(t, err)

	got, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	// Смена роли действует без перевыпуска токена.
	_, err = repo.SetUserRole(ctx, u.ID, models.RoleMentor)
	require.NoError(t, err)
	got, err = svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMentor, got.Role)

	_, err = repo.SetUserActive(ctx, u.ID, false)
	require.NoError(t, err)
	_, err = svc.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, services.ErrInactive)
	_, err = svc.Login(ctx, models.Credentials{Email: "lev@speakup.dev", Password: "secret1"})
	assert.ErrorIs(t, err, services.ErrInactive)

	_, err = svc.ValidateToken(ctx, "garbage")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestAuthService_SeedAdmin(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t, nil)

	require.NoError(t, svc.SeedAdmin(ctx, "", ""))
	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, svc.SeedAdmin(ctx, "admin@speakup.dev", "admin-pass"))
	require.NoError(t, svc.SeedAdmin(ctx, "admin@speakup.dev", "admin-pass"))

	users, err = repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, models.RoleAdmin, users[0].Role)

	_, err = svc.Login(ctx, models.Credentials{Email: "admin@speakup.dev", Password: "admin-pass"})
	assert.NoError(t, err)
}

func TestAuthService_Google(t *testing.T) {
	ctx := context.Background()
	google := new(GoogleMock)
	google.On("AuthCodeURL", "state-1").Return("https://accounts.google.com/o/oauth2/auth?state=state-1")
	google.On("Exchange", mock.Anything, "good").
		Return(services.GoogleIdentity{Email: "G@speakup.dev", Name: "Gleb", Picture: "https://img", Verified: true}, nil)
	google.On("Exchange", mock.Anything, "unverified").
		Return(services.GoogleIdentity{Email: "u@speakup.dev", Verified: false}, nil)
	google.On("Exchange", mock.Anything, "broken").
		Return(services.GoogleIdentity{}, errors.New("oauth2: invalid_grant"))

	svc, repo := newService(t, google)

	url, err := svc.GoogleLoginURL("state-1")
	require.NoError(t, err)
	assert.Contains(t, url, "state=state-1")

	code, err := svc.GoogleCallback(ctx, "good")
	require.NoError(t, err)
	_, err = svc.ValidateToken(ctx, code)
	assert.Error(t, err, "login code is not a token")
	token, err := svc.RedeemLoginCode(ctx, code)
	require.NoError(t, err)
	u, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "g@speakup.dev", u.Email)
	assert.Equal(t, models.RoleLearner, u.Role)
	require.NotNil(t, u.AvatarURL)

	// Повторный вход находит того же пользователя.
	_, err = svc.GoogleCallback(ctx, "good")
	require.NoError(t, err)
	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	// Пользователь Google не может войти по паролю.
	_, err = svc.Login(ctx, models.Credentials{Email: "g@speakup.dev", Password: "anything"})
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, err = svc.GoogleCallback(ctx, "unverified")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	_, err = svc.GoogleCallback(ctx, "broken")
	assert.Error(t, err)
}

func TestAuthService_GoogleDisabled(t *testing.T) {
	svc, _ := newService(t, nil)
	_, err := svc.GoogleLoginURL("s")
	assert.ErrorIs(t, err, services.ErrGoogleDisabled)
	_, err = svc.GoogleCallback(context.Background(), "code")
	assert.ErrorIs(t, err, services.ErrGoogleDisabled)
}

func TestAuthService_RedeemLoginCode(t *testing.T) {
	ctx := context.Background()
	google := new(GoogleMock)
	google.On("Exchange", mock.Anything, "good").
		Return(services.GoogleIdentity{Email: "g@speakup.dev", Verified: true}, nil)
	svc, _ := newService(t, google)

	code, err := svc.GoogleCallback(ctx, "good")
	require.NoError(t, err)

	token, err := svc.RedeemLoginCode(ctx, code)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = svc.RedeemLoginCode(ctx, code)
	assert.ErrorIs(t, err, services.ErrInvalidCredentials, "code is single-use")
	_, err = svc.RedeemLoginCode(ctx, "never-issued")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}
