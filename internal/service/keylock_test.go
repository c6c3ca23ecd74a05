package service_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/onpoint/ticket-bridge/internal/service"
)

func TestKeyedMutex(t *testing.T) {
	t.Run("serializes holders of the same key", func(t *testing.T) {
		locks := service.NewKeyedMutex()

		var mu sync.Mutex
		counter := 0
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				locks.Lock("t1")
				defer locks.Unlock("t1")
				mu.Lock()
				counter++
				mu.Unlock()
			}()
		}
		wg.Wait()
		assert.Equal(t, 50, counter)
	})

	t.Run("different keys do not block each other", func(t *testing.T) {
		locks := service.NewKeyedMutex()
		locks.Lock("t1")
		defer locks.Unlock("t1")

		done := make(chan struct{})
		go func() {
			locks.Lock("t2")
			locks.Unlock("t2")
			close(done)
		}()
		<-done
	})

	t.Run("unlock of an unknown key is a no-op", func(t *testing.T) {
		locks := service.NewKeyedMutex()
		locks.Unlock("never-locked")
	})
}
