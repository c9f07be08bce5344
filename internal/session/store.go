package session

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

// TokenKey - фиксированный ключ, под которым хранится токен доступа.
const TokenKey = "access_token"

// CredentialStore - хранилище токена, переживающее перезагрузку страницы.
type CredentialStore interface {
	// Get возвращает сохранённый токен. Повреждённое хранилище считается пустым.
	Get() (string, bool)
	Set(token string) error
	Delete() error
}

// ValueStore - прочие значения сессии браузера, например состояние входа через Google.
type ValueStore interface {
	SetValue(key, value string) error
	// TakeValue возвращает значение и сразу удаляет его.
	TakeValue(key string) (string, bool, error)
}

// MemoryStore хранит токен в памяти процесса.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[TokenKey]
	return v, ok && v != ""
}

func (m *MemoryStore) Set(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[TokenKey] = token
	return nil
}

func (m *MemoryStore) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, TokenKey)
	return nil
}

func (m *MemoryStore) SetValue(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) TakeValue(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	delete(m.values, key)
	return v, ok && v != "", nil
}

// CookieOptions - параметры cookie сессии портала.
type CookieOptions struct {
	Name     string
	HashKey  []byte
	BlockKey []byte
	MaxAge   int
	Secure   bool
}

// CookieStore хранит токен в подписанной и зашифрованной cookie браузера.
type CookieStore struct {
	store  *sessions.CookieStore
	name   string
	maxAge int
}

// NewCookieStore создаёт хранилище cookie. Без HashKey генерируется случайный
// ключ, и сессии не переживают перезапуск портала.
func NewCookieStore(opts CookieOptions) *CookieStore {
	hashKey := opts.HashKey
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
	}
	keys := [][]byte{hashKey}
	if len(opts.BlockKey) > 0 {
		keys = append(keys, opts.BlockKey)
	}
	store := sessions.NewCookieStore(keys...)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   opts.MaxAge,
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &CookieStore{store: store, name: opts.Name, maxAge: opts.MaxAge}
}

// Bind возвращает хранилище токена для конкретного запроса браузера.
// Запись попадает в заголовки ответа, поэтому Set и Delete вызываются до записи тела.
func (c *CookieStore) Bind(w http.ResponseWriter, r *http.Request) *CookieCredentials {
	return &CookieCredentials{store: c.store, name: c.name, maxAge: c.maxAge, w: w, r: r}
}

// CookieCredentials - CredentialStore и ValueStore поверх cookie одного запроса.
type CookieCredentials struct {
	store  *sessions.CookieStore
	name   string
	maxAge int
	w      http.ResponseWriter
	r      *http.Request
}

func (c *CookieCredentials) session() (*sessions.Session, error) {
	return c.store.Get(c.r, c.name)
}

func (c *CookieCredentials) Get() (string, bool) {
	sess, err := c.session()
	if err != nil {
		return "", false
	}
	token, ok := sess.Values[TokenKey].(string)
	return token, ok && token != ""
}

func (c *CookieCredentials) Set(token string) error {
	const op = "session.CookieCredentials.Set"
	sess, _ := c.session()
	sess.Values[TokenKey] = token
	if err := c.save(sess); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Delete удаляет токен. Cookie удаляется целиком, только если в ней ничего не осталось.
func (c *CookieCredentials) Delete() error {
	const op = "session.CookieCredentials.Delete"
	sess, _ := c.session()
	delete(sess.Values, TokenKey)
	if err := c.save(sess); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *CookieCredentials) SetValue(key, value string) error {
	const op = "session.CookieCredentials.SetValue"
	sess, _ := c.session()
	sess.Values[key] = value
	if err := c.save(sess); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *CookieCredentials) TakeValue(key string) (string, bool, error) {
	const op = "session.CookieCredentials.TakeValue"
	sess, err := c.session()
	if err != nil {
		return "", false, nil
	}
	v, ok := sess.Values[key].(string)
	if _, present := sess.Values[key]; !present {
		return "", false, nil
	}
	delete(sess.Values, key)
	if err := c.save(sess); err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return v, ok && v != "", nil
}

// save записывает cookie. Пустая сессия удаляется из браузера.
func (c *CookieCredentials) save(sess *sessions.Session) error {
	sess.Options.MaxAge = c.maxAge
	if len(sess.Values) == 0 {
		sess.Options.MaxAge = -1
	}
	return sess.Save(c.r, c.w)
}
