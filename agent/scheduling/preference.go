package scheduling

import (
	"context"
	"sync"
)

// PreferenceStore remembers each patient's preferred provider.
type PreferenceStore interface {
	Preferred(ctx context.Context, patientID string) (string, bool, error)
	SetPreferred(ctx context.Context, patientID, provider string) error
}

type MemoryPreferences struct {
	mu    sync.RWMutex
	prefs map[string]string
}

var _ PreferenceStore = (*MemoryPreferences)(nil)

func NewMemoryPreferences() *MemoryPreferences {
	return &MemoryPreferences{prefs: make(map[string]string)}
}

func (p *MemoryPreferences) Preferred(_ context.Context, patientID string) (string, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.prefs[patientID]
	return v, ok, nil
}

func (p *MemoryPreferences) SetPreferred(_ context.Context, patientID, provider string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prefs[patientID] = provider
	return nil
}
