package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bilgisen/illustrate/internal/errs"
	"github.com/google/uuid"
)

// MemoryLocker is the in-process Locker used when Redis is not configured, and in tests.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]memoryLock
	now  func() time.Time
}

type memoryLock struct {
	token   string
	expires time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		held: make(map[string]memoryLock),
		now:  time.Now,
	}
}

func (m *MemoryLocker) Close() error {
	return nil
}

func (m *MemoryLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.held[name]; ok && m.now().Before(l.expires) {
		return nil, fmt.Errorf("%s: %w", name, errs.ErrConflict)
	}

	token := uuid.NewString()
	m.held[name] = memoryLock{token: token, expires: m.now().Add(ttl)}

	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if l, ok := m.held[name]; ok && l.token == token {
			delete(m.held, name)
		}
		return nil
	}, nil
}
