package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justsurfingit/jobboard-gateway/internal/storage"
)

// maxCookieBytes keeps a cookie session under the 4KB most browsers accept.
const maxCookieBytes = 4000

var (
	ErrNotFound      = errors.New("session: not found")
	ErrCookieTooLong = errors.New("session: state does not fit in a cookie")
)

// Store loads and persists a visitor's State.
type Store interface {
	Load(r *http.Request) (*State, error)
	Save(w http.ResponseWriter, r *http.Request, s *State) error
}

// CookieOptions control the cookie that carries either the whole state or
// the server-side session id.
type CookieOptions struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

func (o CookieOptions) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     o.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(o.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// CookieStore keeps the encrypted state in the browser, one cookie per
// visitor.
type CookieStore struct {
	opts       CookieOptions
	serializer *storage.Serializer
}

func NewCookieStore(opts CookieOptions, serializer *storage.Serializer) *CookieStore {
	return &CookieStore{opts: opts, serializer: serializer}
}

func (s *CookieStore) Load(r *http.Request) (*State, error) {
	st := New()
	c, err := r.Cookie(s.opts.Name)
	if err != nil {
		return st, nil
	}
	if err := s.serializer.Read(c.Value, st); err != nil {
		return New(), fmt.Errorf("read session cookie: %w", err)
	}
	return st, nil
}

func (s *CookieStore) Save(w http.ResponseWriter, _ *http.Request, st *State) error {
	value, err := s.serializer.Write(st)
	if err != nil {
		return fmt.Errorf("write session cookie: %w", err)
	}
	if len(value) > maxCookieBytes {
		return ErrCookieTooLong
	}
	http.SetCookie(w, s.opts.cookie(value))
	return nil
}

// Backend persists encrypted session payloads by id.
type Backend interface {
	Get(ctx context.Context, id string) (string, error)
	Put(ctx context.Context, id, payload string) error
}

// ServerStore keeps the state in a Backend and only a random id in the
// cookie.
type ServerStore struct {
	opts       CookieOptions
	backend    Backend
	serializer *storage.Serializer
}

func NewServerStore(opts CookieOptions, backend Backend, serializer *storage.Serializer) *ServerStore {
	return &ServerStore{opts: opts, backend: backend, serializer: serializer}
}

func (s *ServerStore) Load(r *http.Request) (*State, error) {
	st := New()
	c, err := r.Cookie(s.opts.Name)
	if err != nil || c.Value == "" {
		return st, nil
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return st, nil
	}

	payload, err := s.backend.Get(r.Context(), c.Value)
	if errors.Is(err, ErrNotFound) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("load session %s: %w", c.Value, err)
	}
	if err := s.serializer.Read(payload, st); err != nil {
		return New(), fmt.Errorf("decode session %s: %w", c.Value, err)
	}
	st.id = c.Value
	return st, nil
}

func (s *ServerStore) Save(w http.ResponseWriter, r *http.Request, st *State) error {
	payload, err := s.serializer.Write(st)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	fresh := st.id == ""
	if fresh {
		st.id = uuid.NewString()
	}
	if err := s.backend.Put(r.Context(), st.id, payload); err != nil {
		return fmt.Errorf("store session %s: %w", st.id, err)
	}
	if fresh {
		http.SetCookie(w, s.opts.cookie(st.id))
	}
	return nil
}

// MemoryBackend is an in-process Backend for development and tests. Run it
// under StartSweeper so abandoned sessions do not pile up.
type MemoryBackend struct {
	now func() time.Time

	mu   sync.RWMutex
	data map[string]memoryEntry
}

type memoryEntry struct {
	payload   string
	updatedAt time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{now: time.Now, data: make(map[string]memoryEntry)}
}

func (m *MemoryBackend) Get(_ context.Context, id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.data[id]
	if !ok {
		return "", ErrNotFound
	}
	return e.payload, nil
}

func (m *MemoryBackend) Put(_ context.Context, id, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = memoryEntry{payload: payload, updatedAt: m.now()}
	return nil
}

// Sweep removes sessions untouched since before cutoff.
func (m *MemoryBackend) Sweep(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, e := range m.data {
		if e.updatedAt.Before(cutoff) {
			delete(m.data, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Sweeper is a Backend that can drop expired sessions.
type Sweeper interface {
	Sweep(ctx context.Context, cutoff time.Time) (int64, error)
}

// StartSweeper drops sessions older than ttl from s every interval until ctx
// is done.
func StartSweeper(ctx context.Context, s Sweeper, interval, ttl time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				n, err := s.Sweep(ctx, now.Add(-ttl))
				if err != nil {
					logger.Warn("session sweep failed", zap.Error(err))
					continue
				}
				if n > 0 {
					logger.Info("expired sessions removed", zap.Int64("count", n))
				}
			}
		}
	}()
}
