package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyLockSerializesSameKey(t *testing.T) {
	kl := New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kl.Lock("trip-1")
			counter++
			kl.Unlock("trip-1")
		}()
	}
	wg.Wait()

	require.Equal(t, 100, counter)
}

func TestKeyLockIndependentKeys(t *testing.T) {
	kl := New()

	kl.Lock("trip-1")

	done := make(chan struct{})
	go func() {
		kl.Lock("trip-2")
		kl.Unlock("trip-2")
		close(done)
	}()

	// trip-2 must not block behind trip-1
	<-done
	kl.Unlock("trip-1")
}

func TestKeyLockDropsIdleEntries(t *testing.T) {
	kl := New()

	kl.Lock("order-1")
	kl.Unlock("order-1")

	kl.mu.Lock()
	defer kl.mu.Unlock()
	require.Empty(t, kl.locks)
}
