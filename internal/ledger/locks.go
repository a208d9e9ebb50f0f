package ledger

import (
	"sort"
	"sync"
)

// walletLocks hands out one mutex per wallet id so that every
// read-modify-write on a balance is serialized per wallet. Locks are
// created lazily and never removed; the set of wallets a process touches
// is small enough that this does not matter.
type walletLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newWalletLocks() *walletLocks {
	return &walletLocks{locks: make(map[string]*sync.Mutex)}
}

func (wl *walletLocks) get(id string) *sync.Mutex {
	wl.mu.Lock()
	defer wl.mu.Unlock()
	m, ok := wl.locks[id]
	if !ok {
		m = &sync.Mutex{}
		wl.locks[id] = m
	}
	return m
}

// lock acquires the mutexes for the given wallet ids in sorted order, so
// two transfers touching the same pair of wallets can never deadlock.
// Duplicate ids are collapsed. The returned function releases every lock.
func (wl *walletLocks) lock(ids ...string) func() {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	sort.Strings(uniq)

	held := make([]*sync.Mutex, 0, len(uniq))
	for _, id := range uniq {
		m := wl.get(id)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
