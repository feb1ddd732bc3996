package application

import (
	"sync"
	"testing"
)

func TestKeyedLockSerializesSameKey(t *testing.T) {
	t.Parallel()

	lock := NewKeyedLock()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := lock.Acquire("faculty:fac-1")
			counter++
			release()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}
}

func TestKeyedLockMultiKeyOrderingAvoidsDeadlock(t *testing.T) {
	t.Parallel()

	lock := NewKeyedLock()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Alternate acquisition order; sorted locking must not deadlock.
			var release func()
			if i%2 == 0 {
				release = lock.Acquire("faculty:fac-1", "room:room-1")
			} else {
				release = lock.Acquire("room:room-1", "faculty:fac-1")
			}
			release()
		}()
	}
	wg.Wait()
}

func TestKeyedLockIgnoresEmptyAndDuplicateKeys(t *testing.T) {
	t.Parallel()

	lock := NewKeyedLock()
	release := lock.Acquire("", "session:s1", "session:s1")
	release()

	// A second acquisition proves the release unlocked everything once.
	release = lock.Acquire("session:s1")
	release()
}
