package export

import (
	"sync"
)

// Allocator hands out usrconnid values keyed by connection site name.
// Seeded names keep their id. New names get ids from max(seed)+1 upwards.
type Allocator struct {
	mu    sync.Mutex
	ids   map[string]int64
	fresh map[string]int64
	next  int64
}

// NewAllocator creates an allocator seeded with a prior sitename -> usrconnid table
func NewAllocator(seed map[string]int64) *Allocator {
	a := &Allocator{
		ids:   make(map[string]int64, len(seed)),
		fresh: make(map[string]int64),
		next:  1,
	}
	a.Seed(seed)
	return a
}

// Seed merges prior allocations; entries given here override earlier ones
func (a *Allocator) Seed(seed map[string]int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for name, id := range seed {
		a.ids[name] = id
		delete(a.fresh, name)
		if id >= a.next {
			a.next = id + 1
		}
	}
}

// AllocateOrReuse returns the id of a site name, assigning a new one on first use
func (a *Allocator) AllocateOrReuse(sitename string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id, ok := a.ids[sitename]; ok {
		return id
	}
	id := a.next
	a.next++
	a.ids[sitename] = id
	a.fresh[sitename] = id
	return id
}

// Fresh returns the allocations made after seeding
func (a *Allocator) Fresh() map[string]int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]int64, len(a.fresh))
	for name, id := range a.fresh {
		out[name] = id
	}
	return out
}

// Next returns the id the next new site name would get
func (a *Allocator) Next() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}
