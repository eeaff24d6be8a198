package directory

import (
	"context"
	"sync"

	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
)

// MemoryDirectory holds patient profiles in process memory.
type MemoryDirectory struct {
	mu       sync.RWMutex
	patients []statex.Profile
}

func NewMemoryDirectory(patients []statex.Profile) *MemoryDirectory {
	return &MemoryDirectory{patients: append([]statex.Profile(nil), patients...)}
}

func (d *MemoryDirectory) Lookup(_ context.Context, fields statex.IdentityFields) (statex.Profile, bool, error) {
	q, ok := normalize(fields)
	if !ok {
		return statex.Profile{}, false, nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, found := match(d.patients, q)
	return p, found, nil
}

// Register adds or replaces a profile by id.
func (d *MemoryDirectory) Register(p statex.Profile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.patients {
		if d.patients[i].ID == p.ID {
			d.patients[i] = p
			return
		}
	}
	d.patients = append(d.patients, p)
}
