package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/justsurfingit/jobboard-gateway/internal/models"
)

var ErrMiss = errors.New("cache: miss")

// JobCache holds the job store's data for a session. Entries are never
// persisted with the session itself.
type JobCache interface {
	Get(ctx context.Context, key string) (models.JobData, error)
	Put(ctx context.Context, key string, data models.JobData) error
	Delete(ctx context.Context, key string) error
}

type entry struct {
	data    models.JobData
	expires time.Time
}

// Memory is a process-local JobCache with a fixed TTL.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, entries: make(map[string]entry)}
}

func (m *Memory) Get(_ context.Context, key string) (models.JobData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return models.JobData{}, ErrMiss
	}
	if m.now().After(e.expires) {
		delete(m.entries, key)
		return models.JobData{}, ErrMiss
	}
	return e.data, nil
}

func (m *Memory) Put(_ context.Context, key string, data models.JobData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{data: data, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Prune drops expired entries.
func (m *Memory) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for k, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// StartPruner prunes expired entries every interval until ctx is done.
func (m *Memory) StartPruner(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Prune(); n > 0 {
					logger.Debug("job cache pruned", zap.Int("entries", n))
				}
			}
		}
	}()
}
