package state

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process. Values are stored encoded so callers
// never share a *Session with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, threadID string) (*Session, error) {
	key, err := storeKey(defaultStoreKeyPrefix, threadID)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	payload, ok := m.sessions[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrStateNotFound
	}
	return decodeSession(payload)
}

func (m *MemoryStore) Save(_ context.Context, st *Session) error {
	payload, err := encodeSession(st)
	if err != nil {
		return err
	}
	key, err := storeKey(defaultStoreKeyPrefix, st.ThreadID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[key] = payload
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, threadID string) error {
	key, err := storeKey(defaultStoreKeyPrefix, threadID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.sessions, key)
	m.mu.Unlock()
	return nil
}
