package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iho/emiledger/internal/domain"
)

// keyedLocker is a set of mutexes keyed by account number. Each slot is a
// one-element channel so waits can be bounded.
type keyedLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{slots: make(map[string]chan struct{})}
}

func (k *keyedLocker) slot(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	ch, ok := k.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		k.slots[key] = ch
	}
	return ch
}

func (k *keyedLocker) lock(ctx context.Context, key string, timeout time.Duration) error {
	ch := k.slot(key)

	// fast path
	select {
	case ch <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: account %s", domain.ErrLockTimeout, key)
	case <-ctx.Done():
		return fmt.Errorf("%w: account %s: %w", domain.ErrLockTimeout, key, ctx.Err())
	}
}

func (k *keyedLocker) unlock(key string) {
	select {
	case <-k.slot(key):
	default:
	}
}
