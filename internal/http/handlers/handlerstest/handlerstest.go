// Package handlerstest содержит помощники тестов обработчиков портала:
// мок REST-бэкенда и сборку запроса с готовой сессией.
package handlerstest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/speakup/internal/booking"
	"github.com/magabrotheeeer/speakup/internal/cache"
	"github.com/magabrotheeeer/speakup/internal/http/middlewarectx"
	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/models"
	"github.com/magabrotheeeer/speakup/internal/session"
)

// API - мок booking.API.
type API struct {
	mock.Mock
}

var _ booking.API = (*API)(nil)

func (m *API) ListMentors(ctx context.Context, f models.MentorFilter) ([]models.MentorProfile, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]models.MentorProfile), args.Error(1)
}

func (m *API) ListSlots(ctx context.Context, mentorID int64) ([]models.AvailabilitySlot, error) {
	args := m.Called(ctx, mentorID)
	return args.Get(0).([]models.AvailabilitySlot), args.Error(1)
}

func (m *API) CreateSlot(ctx context.Context, in models.NewSlot) (models.AvailabilitySlot, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(models.AvailabilitySlot), args.Error(1)
}

func (m *API) UpdateProfile(ctx context.Context, in models.ProfileUpdate) (models.MentorProfile, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(models.MentorProfile), args.Error(1)
}

func (m *API) CreateBooking(ctx context.Context, slotID int64) (models.Booking, error) {
	args := m.Called(ctx, slotID)
	return args.Get(0).(models.Booking), args.Error(1)
}

func (m *API) AcceptBooking(ctx context.Context, id int64) (models.Booking, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Booking), args.Error(1)
}

func (m *API) RejectBooking(ctx context.Context, id int64, reason string) (models.Booking, error) {
	args := m.Called(ctx, id, reason)
	return args.Get(0).(models.Booking), args.Error(1)
}

func (m *API) CancelBooking(ctx context.Context, id int64) (models.Booking, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Booking), args.Error(1)
}

func (m *API) ListMentorBookings(ctx context.Context) ([]models.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *API) ListMyBookings(ctx context.Context) ([]models.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *API) AdminListMentors(ctx context.Context) ([]models.MentorProfile, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.MentorProfile), args.Error(1)
}

func (m *API) ModerateMentor(ctx context.Context, mentorID int64, action models.VerificationAction) (models.MentorProfile, error) {
	args := m.Called(ctx, mentorID, action)
	return args.Get(0).(models.MentorProfile), args.Error(1)
}

func (m *API) AdminListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *API) SetUserActive(ctx context.Context, userID int64, active bool) (models.User, error) {
	args := m.Called(ctx, userID, active)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *API) SetUserRole(ctx context.Context, userID int64, role models.Role) (models.User, error) {
	args := m.Called(ctx, userID, role)
	return args.Get(0).(models.User), args.Error(1)
}

type staticIdentity models.User

func (s staticIdentity) FetchIdentity(context.Context, string) (models.User, error) {
	return models.User(s), nil
}

// Scope возвращает аутентифицированную сессию пользователя u с менеджером поверх api.
func Scope(t *testing.T, u models.User, api booking.API) *middlewarectx.Scope {
	t.Helper()
	sess := session.New(session.NewMemoryStore(), staticIdentity(u), sl.Discard())
	_, err := sess.Login(context.Background(), "tok")
	require.NoError(t, err)
	return &middlewarectx.Scope{
		Session: sess,
		Manager: booking.New(api, cache.NewMemory(), time.Minute, u, sl.Discard()),
	}
}

// Request собирает запрос с телом body (JSON, если это не строка),
// параметрами маршрута params и сессией scope.
func Request(t *testing.T, method, target string, body any, params map[string]string, scope *middlewarectx.Scope) *http.Request {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if scope != nil {
		ctx = middlewarectx.WithScope(ctx, scope)
	}
	return req.WithContext(ctx)
}

// Envelope - разобранный конверт ответа.
type Envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

// Decode разбирает конверт и, если into не nil, его данные.
func Decode(t *testing.T, rr *httptest.ResponseRecorder, into any) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	if into != nil {
		require.NoError(t, json.Unmarshal(env.Data, into))
	}
	return env
}
