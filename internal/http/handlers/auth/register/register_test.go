package register

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/speakup/internal/apiclient"
	"github.com/magabrotheeeer/speakup/internal/http/middlewarectx"
	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/models"
	"github.com/magabrotheeeer/speakup/internal/session"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Register(ctx context.Context, req models.Registration) (models.User, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *ServiceMock) Login(ctx context.Context, creds models.Credentials) (string, error) {
	args := m.Called(ctx, creds)
	return args.String(0), args.Error(1)
}

type identityFunc func(ctx context.Context, token string) (models.User, error)

func (f identityFunc) FetchIdentity(ctx context.Context, token string) (models.User, error) {
	return f(ctx, token)
}

func doRegister(t *testing.T, svc *ServiceMock, body any) (*httptest.ResponseRecorder, *session.Session) {
	t.Helper()
	sess := session.New(session.NewMemoryStore(), identityFunc(func(context.Context, string) (models.User, error) {
		return models.User{ID: 12, Role: models.RoleLearner, IsActive: true}, nil
	}), sl.Discard())

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(raw))
	req = req.WithContext(middlewarectx.WithScope(req.Context(), &middlewarectx.Scope{Session: sess}))
	rr := httptest.NewRecorder()
	New(sl.Discard(), svc).ServeHTTP(rr, req)
	return rr, sess
}

func TestRegisterHandler_LogsInAfterRegistration(t *testing.T) {
	in := models.Registration{Email: "new@speakup.dev", Password: "secret1", FullName: "New Learner"}
	svc := new(ServiceMock)
	svc.On("Register", mock.Anything, in).Return(models.User{ID: 12, Role: models.RoleLearner, IsActive: true}, nil).Once()
	svc.On("Login", mock.Anything, models.Credentials{Email: in.Email, Password: in.Password}).Return("jwt", nil).Once()

	rr, sess := doRegister(t, svc, in)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/learner", rr.Header().Get("Location"))
	assert.Equal(t, session.Authenticated, sess.State())
	svc.AssertExpectations(t)
}

func TestRegisterHandler_Failures(t *testing.T) {
	valid := models.Registration{Email: "new@speakup.dev", Password: "secret1", FullName: "New Learner"}

	tests := []struct {
		name        string
		body        any
		registerErr error
		wantStatus  int
	}{
		{name: "admin role not allowed", body: models.Registration{Email: "a@speakup.dev", Password: "secret1", FullName: "A", Role: models.RoleAdmin}, wantStatus: http.StatusUnprocessableEntity},
		{name: "short password", body: models.Registration{Email: "a@speakup.dev", Password: "123", FullName: "A"}, wantStatus: http.StatusUnprocessableEntity},
		{name: "email taken", body: valid, registerErr: apiclient.NewError(http.StatusConflict, "email already registered"), wantStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.registerErr != nil {
				svc.On("Register", mock.Anything, valid).Return(models.User{}, tt.registerErr).Once()
			}
			rr, sess := doRegister(t, svc, tt.body)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, session.Unauthenticated, sess.State())
			svc.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
			svc.AssertExpectations(t)
		})
	}
}
