package service

import (
	"sync"
	"testing"
)

func TestKeyedMutex(t *testing.T) {
	t.Run("serializes same key", func(t *testing.T) {
		km := newKeyedMutex()
		counter := 0

		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := km.Lock("a")
				counter++
				unlock()
			}()
		}
		wg.Wait()

		if counter != 100 {
			t.Errorf("counter = %d, want 100", counter)
		}
	})

	t.Run("releases entries when idle", func(t *testing.T) {
		km := newKeyedMutex()

		unlock := km.Lock("a")
		unlock()
		unlock2 := km.Lock("b")
		unlock2()

		km.mu.Lock()
		remaining := len(km.locks)
		km.mu.Unlock()

		if remaining != 0 {
			t.Errorf("lock table has %d entries, want 0", remaining)
		}
	})

	t.Run("different keys do not share entries", func(t *testing.T) {
		km := newKeyedMutex()

		unlockA := km.Lock("a")
		defer unlockA()

		done := make(chan struct{})
		go func() {
			unlockB := km.Lock("b")
			unlockB()
			close(done)
		}()
		<-done
	})
}
