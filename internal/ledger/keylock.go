package ledger

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Key identifies one stock position: a variant in a warehouse.
type Key struct {
	VariantID   uuid.UUID
	WarehouseID uuid.UUID
}

func (k Key) String() string {
	return k.VariantID.String() + "/" + k.WarehouseID.String()
}

// keyLock serializes ledger appends per stock key within this process.
// Locks are always acquired in sorted key order so two appends touching
// overlapping key sets cannot deadlock.
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[string]*sync.Mutex)}
}

func (kl *keyLock) lockFor(key string) *sync.Mutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	if m, ok := kl.locks[key]; ok {
		return m
	}
	m := &sync.Mutex{}
	kl.locks[key] = m
	return m
}

// acquire locks every distinct key and returns the release function.
func (kl *keyLock) acquire(keys []Key) func() {
	distinct := make(map[string]struct{}, len(keys))
	ordered := make([]string, 0, len(keys))
	for _, k := range keys {
		s := k.String()
		if _, ok := distinct[s]; ok {
			continue
		}
		distinct[s] = struct{}{}
		ordered = append(ordered, s)
	}
	sort.Strings(ordered)

	held := make([]*sync.Mutex, 0, len(ordered))
	for _, s := range ordered {
		m := kl.lockFor(s)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
