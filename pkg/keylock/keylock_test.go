package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithLock_SerializesSameKey(t *testing.T) {
	kl := New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = kl.WithLock("user-1:course-go", func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestLock_IndependentKeysDoNotBlock(t *testing.T) {
	kl := New()

	kl.Lock("a")
	done := make(chan struct{})
	go func() {
		kl.Lock("b")
		kl.Unlock("b")
		close(done)
	}()

	<-done // must complete while "a" is still held
	kl.Unlock("a")
}

func TestUnlock_ReleasesEntry(t *testing.T) {
	kl := New()

	kl.Lock("a")
	kl.Unlock("a")

	kl.mu.Lock()
	defer kl.mu.Unlock()
	assert.Empty(t, kl.locks, "entries are freed once unused")
}

func TestUnlock_UnheldPanics(t *testing.T) {
	kl := New()
	assert.Panics(t, func() { kl.Unlock("never-locked") })
}
