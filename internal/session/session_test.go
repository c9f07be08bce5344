package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/models"
	"github.com/magabrotheeeer/speakup/internal/policy"
)

type mockIdentity struct {
	mock.Mock
}

func (m *mockIdentity) FetchIdentity(ctx context.Context, token string) (models.User, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(models.User), args.Error(1)
}

func learner() models.User {
	return models.User{ID: 1, Email: "l@speakup.dev", Role: models.RoleLearner, IsActive: true}
}

func TestSession_RestoreWithoutCredential(t *testing.T) {
	identity := new(mockIdentity)
	s := New(NewMemoryStore(), identity, sl.Discard())

	require.NoError(t, s.Restore(context.Background()))
	assert.Equal(t, Unauthenticated, s.State())
	identity.AssertNotCalled(t, "FetchIdentity", mock.Anything, mock.Anything)

	d := s.Check(models.RoleLearner)
	assert.Equal(t, RedirectLogin, d.Kind)
	assert.Equal(t, policy.LoginPath, d.Location)
}

func TestSession_RestoreAuthenticated(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set("tok"))
	identity := new(mockIdentity)
	identity.On("FetchIdentity", mock.Anything, "tok").Return(learner(), nil).Once()

	s := New(store, identity, sl.Discard())
	require.NoError(t, s.Restore(context.Background()))

	assert.Equal(t, Authenticated, s.State())
	assert.Equal(t, "tok", s.Token())
	u, ok := s.User()
	assert.True(t, ok)
	assert.Equal(t, int64(1), u.ID)
	identity.AssertExpectations(t)
}

func TestSession_FailClosed(t *testing.T) {
	tests := []struct {
		name string
		user models.User
		err  error
	}{
		{name: "unauthorized", err: errors.New("401")},
		{name: "network failure", err: errors.New("dial tcp: connection refused")},
		{name: "inactive user", user: models.User{ID: 2, Role: models.RoleMentor, IsActive: false}},
		{name: "unknown role", user: models.User{ID: 3, Role: models.Role("GUEST"), IsActive: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			require.NoError(t, store.Set("tok"))
			identity := new(mockIdentity)
			identity.On("FetchIdentity", mock.Anything, "tok").Return(tt.user, tt.err).Once()

			s := New(store, identity, sl.Discard())
			err := s.Restore(context.Background())

			require.ErrorIs(t, err, ErrRejected)
			assert.Equal(t, Unauthenticated, s.State())
			_, ok := store.Get()
			assert.False(t, ok, "credential must be purged")
			assert.Empty(t, s.Token())
			assert.Equal(t, RedirectLogin, s.Check().Kind)
		})
	}
}

func TestSession_Login(t *testing.T) {
	store := NewMemoryStore()
	identity := new(mockIdentity)
	mentor := models.User{ID: 9, Role: models.RoleMentor, IsActive: true}
	identity.On("FetchIdentity", mock.Anything, "good").Return(mentor, nil).Once()
	identity.On("FetchIdentity", mock.Anything, "bad").Return(models.User{}, errors.New("401")).Once()

	s := New(store, identity, sl.Discard())

	_, err := s.Login(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyToken)

	u, err := s.Login(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, mentor, u)
	token, ok := store.Get()
	assert.True(t, ok)
	assert.Equal(t, "good", token)

	_, err = s.Login(context.Background(), "bad")
	require.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, Unauthenticated, s.State())
	_, ok = store.Get()
	assert.False(t, ok)
}

func TestSession_LogoutIdempotent(t *testing.T) {
	store := NewMemoryStore()
	identity := new(mockIdentity)
	identity.On("FetchIdentity", mock.Anything, "tok").Return(learner(), nil).Once()

	s := New(store, identity, sl.Discard())
	_, err := s.Login(context.Background(), "tok")
	require.NoError(t, err)

	s.Logout(context.Background())
	first := s.State()
	_, firstStored := store.Get()

	s.Logout(context.Background())
	assert.Equal(t, first, s.State())
	_, secondStored := store.Get()
	assert.Equal(t, firstStored, secondStored)

	assert.Equal(t, Unauthenticated, s.State())
	assert.False(t, secondStored)
}

func TestSession_HandleUnauthorized(t *testing.T) {
	store := NewMemoryStore()
	identity := new(mockIdentity)
	identity.On("FetchIdentity", mock.Anything, "tok").Return(learner(), nil).Once()

	s := New(store, identity, sl.Discard())
	_, err := s.Login(context.Background(), "tok")
	require.NoError(t, err)

	s.HandleUnauthorized(context.Background())

	assert.Equal(t, Unauthenticated, s.State())
	_, ok := store.Get()
	assert.False(t, ok)
	assert.Equal(t, RedirectLogin, s.Check(models.RoleLearner).Kind)
}

func TestSession_CheckRoles(t *testing.T) {
	tests := []struct {
		name     string
		role     models.Role
		required []models.Role
		want     Decision
	}{
		{name: "learner allowed", role: models.RoleLearner, required: []models.Role{models.RoleLearner}, want: Decision{Kind: Allow}},
		{name: "learner to admin", role: models.RoleLearner, required: []models.Role{models.RoleAdmin}, want: Decision{Kind: RedirectLanding, Location: "/learner"}},
		{name: "mentor to learner", role: models.RoleMentor, required: []models.Role{models.RoleLearner}, want: Decision{Kind: RedirectLanding, Location: "/mentor"}},
		{name: "admin to mentor", role: models.RoleAdmin, required: []models.Role{models.RoleMentor}, want: Decision{Kind: RedirectLanding, Location: "/admin"}},
		{name: "any authenticated", role: models.RoleMentor, want: Decision{Kind: Allow}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := new(mockIdentity)
			identity.On("FetchIdentity", mock.Anything, "tok").
				Return(models.User{ID: 1, Role: tt.role, IsActive: true}, nil).Once()
			s := New(NewMemoryStore(), identity, sl.Discard())
			_, err := s.Login(context.Background(), "tok")
			require.NoError(t, err)

			assert.Equal(t, tt.want, s.Check(tt.required...))
		})
	}
}

func TestSession_LoadingWhileResolving(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set("tok"))

	entered := make(chan struct{})
	release := make(chan struct{})
	identity := new(mockIdentity)
	identity.On("FetchIdentity", mock.Anything, "tok").
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(learner(), nil).Once()

	s := New(store, identity, sl.Discard())
	done := make(chan error, 1)
	go func() { done <- s.Restore(context.Background()) }()

	<-entered
	assert.Equal(t, Resolving, s.State())
	assert.Equal(t, Decision{Kind: Loading}, s.Check(models.RoleAdmin))
	assert.Equal(t, "tok", s.Token())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, Decision{Kind: Allow}, s.Check(models.RoleLearner))
}

func TestSession_LogoutDuringResolvingWins(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set("tok"))

	entered := make(chan struct{})
	release := make(chan struct{})
	identity := new(mockIdentity)
	identity.On("FetchIdentity", mock.Anything, "tok").
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(learner(), nil).Once()

	s := New(store, identity, sl.Discard())
	done := make(chan error, 1)
	go func() { done <- s.Restore(context.Background()) }()

	<-entered
	s.Logout(context.Background())
	close(release)

	assert.ErrorIs(t, <-done, ErrRejected)
	assert.Equal(t, Unauthenticated, s.State())
}

func TestCookieStore_RoundTrip(t *testing.T) {
	cs := NewCookieStore(CookieOptions{Name: "sid", HashKey: []byte("0123456789abcdef0123456789abcdef"), MaxAge: 3600})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	creds := cs.Bind(w, r)
	_, ok := creds.Get()
	assert.False(t, ok)
	require.NoError(t, creds.Set("tok-abc"))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(cookies[0])
	w2 := httptest.NewRecorder()
	creds2 := cs.Bind(w2, r2)
	token, ok := creds2.Get()
	assert.True(t, ok)
	assert.Equal(t, "tok-abc", token)

	require.NoError(t, creds2.Delete())
	deleted := w2.Result().Cookies()
	require.Len(t, deleted, 1)
	assert.Less(t, deleted[0].MaxAge, 0)
}

func TestCookieStore_TamperedCookieIsEmpty(t *testing.T) {
	cs := NewCookieStore(CookieOptions{Name: "sid"})
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "sid", Value: "garbage"})

	_, ok := cs.Bind(httptest.NewRecorder(), r).Get()
	assert.False(t, ok)
}

func TestCookieStore_ValuesAreSingleUse(t *testing.T) {
	cs := NewCookieStore(CookieOptions{Name: "sid", HashKey: []byte("0123456789abcdef0123456789abcdef"), MaxAge: 3600})

	w := httptest.NewRecorder()
	require.NoError(t, cs.Bind(w, httptest.NewRequest(http.MethodGet, "/auth/google", nil)).SetValue("oauth_state", "st-1"))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	r := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
	r.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	v, ok, err := cs.Bind(w, r).TakeValue("oauth_state")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "st-1", v)

	// Ответ удаляет значение: повторный callback с той же cookie его уже не увидит.
	after := w.Result().Cookies()
	require.Len(t, after, 1)
	r = httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
	r.AddCookie(after[0])
	_, ok, err = cs.Bind(httptest.NewRecorder(), r).TakeValue("oauth_state")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCookieStore_DeleteKeepsOtherValues(t *testing.T) {
	cs := NewCookieStore(CookieOptions{Name: "sid", HashKey: []byte("0123456789abcdef0123456789abcdef"), MaxAge: 3600})

	w := httptest.NewRecorder()
	creds := cs.Bind(w, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	require.NoError(t, creds.Set("stale-token"))
	require.NoError(t, creds.Delete())
	require.NoError(t, creds.SetValue("oauth_state", "st-2"))

	cookies := w.Result().Cookies()
	last := cookies[len(cookies)-1]
	assert.Equal(t, 3600, last.MaxAge)

	r := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
	r.AddCookie(last)
	got := cs.Bind(httptest.NewRecorder(), r)
	_, hasToken := got.Get()
	assert.False(t, hasToken)
	v, ok, err := got.TakeValue("oauth_state")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "st-2", v)
}

func TestMemoryStore_TakeValue(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.SetValue("oauth_state", "abc"))
	v, ok, err := m.TakeValue("oauth_state")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
	_, ok, _ = m.TakeValue("oauth_state")
	assert.False(t, ok)
}
