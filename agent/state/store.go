package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrStateNotFound   = errors.New("session state not found")
	ErrNilSessionState = errors.New("session state is nil")
	ErrInvalidSession  = errors.New("thread id is empty")
)

const (
	defaultStoreKeyPrefix = "clinic:session:"
	defaultStoreTTL       = 24 * time.Hour
)

// Store is the persistence contract used by the orchestrator.
type Store interface {
	Load(ctx context.Context, threadID string) (*Session, error)
	Save(ctx context.Context, st *Session) error
	Delete(ctx context.Context, threadID string) error
}

// LoadOrCreate returns the stored session or a fresh default one.
func LoadOrCreate(ctx context.Context, store Store, threadID string, now time.Time) (*Session, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, ErrInvalidSession
	}
	st, err := store.Load(ctx, threadID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, ErrStateNotFound) {
		return nil, err
	}
	return NewSession(threadID, now), nil
}

// SavePatch merges p into the stored session through the reducers and persists it.
func SavePatch(ctx context.Context, store Store, threadID string, p Patch, now time.Time) (*Session, error) {
	st, err := LoadOrCreate(ctx, store, threadID, now)
	if err != nil {
		return nil, err
	}
	st.Apply(p, now)
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("state validation failed: %w", err)
	}
	if err := store.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func encodeSession(st *Session) ([]byte, error) {
	if st == nil {
		return nil, ErrNilSessionState
	}
	if strings.TrimSpace(st.ThreadID) == "" {
		return nil, ErrInvalidSession
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	} else {
		st.UpdatedAt = st.UpdatedAt.UTC()
	}
	payload, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("marshal session state: %w", err)
	}
	return payload, nil
}

func decodeSession(payload []byte) (*Session, error) {
	var st Session
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session state loaded from store: %w", err)
	}
	return &st, nil
}

func storeKey(prefix, threadID string) (string, error) {
	if strings.TrimSpace(threadID) == "" {
		return "", ErrInvalidSession
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultStoreKeyPrefix
	}
	return prefix + threadID, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
