package middlewarectx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/models"
)

type MockAuth struct {
	mock.Mock
}

func (m *MockAuth) ValidateToken(ctx context.Context, token string) (models.User, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(models.User), args.Error(1)
}

func TestJWTMiddleware(t *testing.T) {
	mentor := models.User{ID: 7, Role: models.RoleMentor, IsActive: true}

	tests := []struct {
		name           string
		authHeader     string
		setupMocks     func(*MockAuth)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:       "valid token",
			authHeader: "Bearer good",
			setupMocks: func(m *MockAuth) {
				m.On("ValidateToken", mock.Anything, "good").Return(mentor, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing header",
			setupMocks:     func(*MockAuth) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"missing or invalid authorization header"}`,
		},
		{
			name:           "wrong scheme",
			authHeader:     "Basic abc",
			setupMocks:     func(*MockAuth) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"missing or invalid authorization header"}`,
		},
		{
			name:       "rejected token",
			authHeader: "Bearer bad",
			setupMocks: func(m *MockAuth) {
				m.On("ValidateToken", mock.Anything, "bad").Return(models.User{}, assert.AnError).Once()
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"invalid or expired token"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := new(MockAuth)
			tt.setupMocks(auth)

			var got models.User
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				u, ok := UserFrom(r.Context())
				require.True(t, ok)
				got = u
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			JWTMiddleware(auth, sl.Discard())(next).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, mentor, got)
			}
			auth.AssertExpectations(t)
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name           string
		user           *models.User
		roles          []models.Role
		expectedStatus int
	}{
		{name: "allowed", user: &models.User{ID: 1, Role: models.RoleAdmin}, roles: []models.Role{models.RoleAdmin}, expectedStatus: http.StatusOK},
		{name: "one of many", user: &models.User{ID: 1, Role: models.RoleMentor}, roles: []models.Role{models.RoleLearner, models.RoleMentor}, expectedStatus: http.StatusOK},
		{name: "wrong role", user: &models.User{ID: 1, Role: models.RoleLearner}, roles: []models.Role{models.RoleAdmin}, expectedStatus: http.StatusForbidden},
		{name: "no user", roles: []models.Role{models.RoleAdmin}, expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			if tt.user != nil {
				req = req.WithContext(WithUser(req.Context(), *tt.user))
			}
			w := httptest.NewRecorder()
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

			RequireRole(sl.Discard(), tt.roles...)(next).ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}
