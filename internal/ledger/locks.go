package ledger

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// keyLocks serializes read-modify-write cycles per (seller, product)
// pair within this process. The conditional UPDATE in the repository
// guards against writers in other processes.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyLocks) Lock(sellerID uuid.UUID, productID string) func() {
	key := fmt.Sprintf("%s/%s", sellerID, productID)

	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
