// Package session - охранник сессии и ролей портала.
//
// Session выводит личность пользователя из сохранённого токена и решает,
// можно ли показывать защищённый раздел. Любая неудача при проверке личности,
// включая сбой сети, считается отказом: токен удаляется, сессия становится
// неаутентифицированной.
//
//	Unauthenticated --Login/Restore--> Resolving --ok--> Authenticated
//	                                   Resolving --fail--> Rejected --> Unauthenticated
//	Authenticated --Logout/401--> Unauthenticated
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/speakup/internal/lib/metrics"
	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/models"
	"github.com/magabrotheeeer/speakup/internal/policy"
)

// State - состояние сессии.
type State int

const (
	Unauthenticated State = iota
	Resolving
	Authenticated
	// Rejected - переходное состояние: токен уже удаляется, дальше Unauthenticated.
	Rejected
)

func (s State) String() string {
	switch s {
	case Resolving:
		return "resolving"
	case Authenticated:
		return "authenticated"
	case Rejected:
		return "rejected"
	}
	return "unauthenticated"
}

var (
	// ErrRejected возвращается, когда бэкенд не подтвердил личность по токену.
	ErrRejected = errors.New("session rejected")
	// ErrEmptyToken возвращается при попытке войти с пустым токеном.
	ErrEmptyToken = errors.New("empty token")
)

// IdentityFetcher запрашивает пользователя по токену (GET /users/me).
type IdentityFetcher interface {
	FetchIdentity(ctx context.Context, token string) (models.User, error)
}

// Session - сессия одного браузера. Безопасна для конкурентного использования.
type Session struct {
	mu       sync.Mutex
	state    State
	user     models.User
	token    string
	gen      uint64
	store    CredentialStore
	identity IdentityFetcher
	log      *slog.Logger
}

// New создаёт неаутентифицированную сессию поверх хранилища токена.
func New(store CredentialStore, identity IdentityFetcher, log *slog.Logger) *Session {
	return &Session{
		state:    Unauthenticated,
		store:    store,
		identity: identity,
		log:      log,
	}
}

// State возвращает текущее состояние.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User возвращает пользователя, если сессия аутентифицирована.
func (s *Session) User() (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.state == Authenticated
}

// Token возвращает токен для заголовка Authorization.
// Пока личность не подтверждена, токен уже доступен: он нужен самому запросу /users/me.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Resolving || s.state == Authenticated {
		return s.token
	}
	return ""
}

// Restore восстанавливает сессию из сохранённого токена при открытии портала.
// Без токена сессия остаётся неаутентифицированной, и это не ошибка.
func (s *Session) Restore(ctx context.Context) error {
	const op = "session.Restore"
	token, ok := s.store.Get()
	if !ok {
		s.mu.Lock()
		if s.state != Authenticated {
			s.state = Unauthenticated
		}
		s.mu.Unlock()
		return nil
	}
	if _, err := s.resolve(ctx, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Login сохраняет новый токен и подтверждает по нему личность.
func (s *Session) Login(ctx context.Context, token string) (models.User, error) {
	const op = "session.Login"
	if token == "" {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrEmptyToken)
	}
	if err := s.store.Set(token); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	u, err := s.resolve(ctx, token)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// resolve переводит сессию в Resolving, запрашивает пользователя и фиксирует результат.
// Мьютекс не удерживается во время запроса, чтобы Check видел Resolving.
func (s *Session) resolve(ctx context.Context, token string) (models.User, error) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.state = Resolving
	s.token = token
	s.user = models.User{}
	s.mu.Unlock()

	u, err := s.identity.FetchIdentity(ctx, token)
	if err == nil && (!u.Role.Valid() || !u.IsActive) {
		err = fmt.Errorf("identity not usable: role %q active %t", u.Role, u.IsActive)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		// Пока шёл запрос, сессию завершили или начали новую.
		return models.User{}, ErrRejected
	}
	if err != nil {
		s.rejectLocked(err)
		return models.User{}, fmt.Errorf("%w: %w", ErrRejected, err)
	}
	s.state = Authenticated
	s.user = u
	s.log.Debug("session authenticated", slog.Int64("user_id", u.ID), slog.String("role", string(u.Role)))
	return u, nil
}

func (s *Session) rejectLocked(cause error) {
	s.state = Rejected
	s.log.Info("session rejected", sl.Err(cause))
	s.purgeLocked()
}

// purgeLocked удаляет токен и переводит сессию в Unauthenticated.
func (s *Session) purgeLocked() {
	if err := s.store.Delete(); err != nil {
		s.log.Error("failed to delete stored credential", sl.Err(err))
	}
	s.gen++
	s.state = Unauthenticated
	s.token = ""
	s.user = models.User{}
}

// Logout завершает сессию. Повторный вызов ничего не меняет.
func (s *Session) Logout(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
}

// HandleUnauthorized вызывается на любой ответ 401 от бэкенда и завершает сессию.
func (s *Session) HandleUnauthorized(ctx context.Context) {
	s.mu.Lock()
	wasAuthenticated := s.state == Authenticated
	s.mu.Unlock()
	if wasAuthenticated {
		s.log.Info("backend rejected credential, logging out")
	}
	s.Logout(ctx)
}

// DecisionKind - исход проверки доступа к разделу.
type DecisionKind string

const (
	Allow           DecisionKind = "allow"
	Loading         DecisionKind = "loading"
	RedirectLogin   DecisionKind = "redirect_login"
	RedirectLanding DecisionKind = "redirect_landing"
)

// Decision - решение охранника. Location задан для перенаправлений.
type Decision struct {
	Kind     DecisionKind
	Location string
}

// Check решает, можно ли показать раздел, требующий одной из ролей required.
// Пустой required означает любого аутентифицированного пользователя.
func (s *Session) Check(required ...models.Role) Decision {
	s.mu.Lock()
	state, role := s.state, s.user.Role
	s.mu.Unlock()

	var d Decision
	switch {
	case state == Resolving:
		d = Decision{Kind: Loading}
	case state != Authenticated:
		d = Decision{Kind: RedirectLogin, Location: policy.LoginPath}
	case !policy.CanAccess(role, required):
		d = Decision{Kind: RedirectLanding, Location: policy.Landing(role)}
	default:
		d = Decision{Kind: Allow}
	}
	metrics.GuardDecisions.WithLabelValues(string(d.Kind)).Inc()
	return d
}
