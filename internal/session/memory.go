package session

import (
	"context"
	"sync"
)

// MemoryStorage keeps the persisted session in process memory. It backs the
// dev backend and tests; production uses the SQLite repository.
type MemoryStorage struct {
	mu    sync.Mutex
	saved Session
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = s
	return nil
}

func (m *MemoryStorage) Load(_ context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved, nil
}

func (m *MemoryStorage) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = Session{}
	return nil
}
