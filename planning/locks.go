package planning

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// resourceLocks hands out one mutex per resource. Mutexes are created on
// first use and never removed; the set of resources is small and stable.
type resourceLocks struct {
	m *xsync.MapOf[ResourceID, *sync.Mutex]
}

func newResourceLocks() *resourceLocks {
	return &resourceLocks{m: xsync.NewMapOf[ResourceID, *sync.Mutex]()}
}

// lock acquires the resource's mutex and returns the matching unlock.
func (l *resourceLocks) lock(id ResourceID) func() {
	mu, _ := l.m.LoadOrStore(id, &sync.Mutex{})
	mu.Lock()
	return mu.Unlock
}
