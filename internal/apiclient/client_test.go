package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/models"
)

type fakeCreds struct {
	token        string
	unauthorized atomic.Int32
}

func (f *fakeCreds) Token() string                      { return f.token }
func (f *fakeCreds) HandleUnauthorized(context.Context) { f.unauthorized.Add(1) }

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *fakeCreds) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	creds := &fakeCreds{token: "tok-123"}
	return New(srv.URL+"/", time.Second, sl.Discard()).WithCredentials(creds), creds
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "401", status: http.StatusUnauthorized, want: ErrUnauthorized},
		{name: "403", status: http.StatusForbidden, want: ErrForbidden},
		{name: "404", status: http.StatusNotFound, want: ErrNotFound},
		{name: "409", status: http.StatusConflict, want: ErrConflict},
		{name: "400", status: http.StatusBadRequest, want: ErrValidation},
		{name: "422", status: http.StatusUnprocessableEntity, want: ErrValidation},
		{name: "500", status: http.StatusInternalServerError, want: ErrTransport},
		{name: "502", status: http.StatusBadGateway, want: ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(t, w, tt.status, map[string]string{"status": "Error", "error": "backend says no"})
			})

			_, err := c.ListMyBookings(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "backend says no", apiErr.Message)
		})
	}
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := New(srv.URL, 200*time.Millisecond, sl.Discard())
	_, err := c.ListMentors(context.Background(), models.MentorFilter{})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestClient_MalformedBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>"))
	})
	_, err := c.ListMyBookings(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestClient_BearerInjectionAndUnauthorizedHook(t *testing.T) {
	var gotAuth atomic.Value
	c, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{"status": "Error", "error": "token expired"})
	})

	_, err := c.ListMentorBookings(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Bearer tok-123", gotAuth.Load())
	assert.Equal(t, int32(1), creds.unauthorized.Load())
}

func TestClient_FetchIdentity(t *testing.T) {
	c, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer explicit" {
			writeJSON(t, w, http.StatusUnauthorized, map[string]string{"status": "Error", "error": "bad token"})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"status": "OK",
			"data":   map[string]any{"user": map[string]any{"id": 5, "email": "a@b.c", "role": "MENTOR", "is_active": true}},
		})
	})

	u, err := c.FetchIdentity(context.Background(), "explicit")
	require.NoError(t, err)
	assert.Equal(t, int64(5), u.ID)
	assert.Equal(t, models.RoleMentor, u.Role)

	_, err = c.FetchIdentity(context.Background(), "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, creds.unauthorized.Load(), "explicit token must not trigger the session hook")

	_, err = c.FetchIdentity(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_Login(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		var body models.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "learner@speakup.dev", body.Email)
		writeJSON(t, w, http.StatusOK, map[string]any{"status": "OK", "data": map[string]string{"token": "jwt"}})
	})

	token, err := c.Login(context.Background(), models.Credentials{Email: "learner@speakup.dev", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "jwt", token)
}

func TestClient_ValidationBeforeSend(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(t, w, http.StatusOK, map[string]string{"status": "OK"})
	})
	ctx := context.Background()
	now := time.Now()

	_, err := c.Login(ctx, models.Credentials{Email: "not-an-email", Password: "secret1"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = c.CreateBooking(ctx, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = c.CreateSlot(ctx, models.NewSlot{StartTime: now, EndTime: now.Add(-time.Hour)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = c.UpdateProfile(ctx, models.ProfileUpdate{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = c.AcceptBooking(ctx, -1)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = c.ModerateMentor(ctx, 1, models.VerificationAction("promote"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = c.SetUserRole(ctx, 1, models.Role("ROOT"))
	assert.ErrorIs(t, err, ErrValidation)

	assert.Zero(t, calls.Load())
}

func TestClient_ListMentorsQuery(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mentors", r.URL.Path)
		assert.Equal(t, "ielts", r.URL.Query().Get("skill"))
		assert.Equal(t, "VERIFIED", r.URL.Query().Get("status"))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"status": "OK",
			"data": map[string]any{"mentors": []map[string]any{
				{"mentor_id": 1, "display_name": "Anna", "skills": "IELTS", "verification_status": "VERIFIED"},
			}},
		})
	})

	mentors, err := c.ListMentors(context.Background(), models.MentorFilter{Skill: "ielts", Status: models.VerificationVerified})
	require.NoError(t, err)
	require.Len(t, mentors, 1)
	assert.Equal(t, "Anna", mentors[0].DisplayName)
}

func TestClient_CreateBookingConflict(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bookings/create", r.URL.Path)
		writeJSON(t, w, http.StatusConflict, map[string]string{"status": "Error", "error": "slot already booked"})
	})

	_, err := c.CreateBooking(context.Background(), 7)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestClient_TransitionPaths(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		writeJSON(t, w, http.StatusOK, map[string]any{
			"status": "OK",
			"data":   map[string]any{"booking": map[string]any{"id": 3, "status": "CONFIRMED"}},
		})
	})
	ctx := context.Background()

	b, err := c.AcceptBooking(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, b.Status)

	_, err = c.RejectBooking(ctx, 3, "busy")
	require.NoError(t, err)
	_, err = c.CancelBooking(ctx, 3)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"PUT /mentors/bookings/3/accept",
		"PUT /mentors/bookings/3/reject",
		"PUT /bookings/3/cancel",
	}, paths)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "conflict", Outcome(NewError(409, "")))
	assert.Equal(t, "transport", Outcome(assert.AnError))
}

func TestClient_Ping(t *testing.T) {
	healthy := atomic.Bool{}
	healthy.Store(true)
	c, creds := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if healthy.Load() {
			writeJSON(t, w, http.StatusOK, map[string]any{"status": "OK", "data": map[string]string{"status": "ok"}})
			return
		}
		writeJSON(t, w, http.StatusServiceUnavailable, map[string]string{"status": "Error", "error": "dependency unavailable"})
	})

	require.NoError(t, c.Ping(context.Background()))
	healthy.Store(false)
	assert.ErrorIs(t, c.Ping(context.Background()), ErrTransport)
	assert.Zero(t, creds.unauthorized.Load())
}

func TestClient_GoogleLoginCode(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/google/exchange", r.URL.Path)
		var body models.LoginCodeExchange
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Code != "one-time" {
			writeJSON(t, w, http.StatusUnauthorized, map[string]string{"status": "Error", "error": "invalid login code"})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"status": "OK", "data": map[string]string{"token": "jwt-google"}})
	})

	assert.True(t, strings.HasSuffix(c.GoogleLoginURL("st 1"), "/auth/google/login?state=st+1"))

	token, err := c.ExchangeLoginCode(context.Background(), "one-time")
	require.NoError(t, err)
	assert.Equal(t, "jwt-google", token)

	_, err = c.ExchangeLoginCode(context.Background(), "used")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.ExchangeLoginCode(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
}
