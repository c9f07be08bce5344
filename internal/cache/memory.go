package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

type entry struct {
	data    []byte
	expires time.Time
}

// Memory - Cache в памяти процесса. Используется, когда redis не настроен.
type Memory struct {
	mu    sync.Mutex
	items map[string]entry
	gen   int64
	now   func() time.Time
}

// NewMemory создаёт пустой кэш в памяти.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]entry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string, result any) (bool, error) {
	return m.read("cache.Memory.Get", key, result, false)
}

func (m *Memory) Take(_ context.Context, key string, result any) (bool, error) {
	return m.read("cache.Memory.Take", key, result, true)
}

func (m *Memory) read(op, key string, result any, remove bool) (bool, error) {
	m.mu.Lock()
	e, ok := m.items[key]
	expired := ok && !e.expires.IsZero() && !m.now().Before(e.expires)
	if expired || (ok && remove) {
		delete(m.items, key)
	}
	m.mu.Unlock()
	if !ok || expired {
		return false, nil
	}
	if err := json.Unmarshal(e.data, result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any, expiration time.Duration) error {
	const op = "cache.Memory.Set"
	e, err := m.entry(value, expiration)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	m.mu.Lock()
	m.items[key] = e
	m.mu.Unlock()
	return nil
}

func (m *Memory) SetIfGeneration(_ context.Context, key string, gen int64, value any, expiration time.Duration) (bool, error) {
	const op = "cache.Memory.SetIfGeneration"
	e, err := m.entry(value, expiration)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return false, nil
	}
	m.items[key] = e
	return true, nil
}

func (m *Memory) entry(value any, expiration time.Duration) (entry, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return entry{}, err
	}
	e := entry{data: data}
	if expiration > 0 {
		e.expires = m.now().Add(expiration)
	}
	return e, nil
}

func (m *Memory) Generation(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen, nil
}

func (m *Memory) Invalidate(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func (m *Memory) InvalidatePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			delete(m.items, k)
		}
	}
	return nil
}
