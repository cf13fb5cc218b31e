package fulfillment

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLockTable(t *testing.T) {
	t.Run("serializes work on the same order", func(t *testing.T) {
		var table lockTable
		id := uuid.New()

		counter := 0
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := table.acquire(id)
				defer unlock()
				counter++
			}()
		}
		wg.Wait()

		assert.Equal(t, 50, counter)
	})

	t.Run("different orders do not block each other", func(t *testing.T) {
		var table lockTable

		unlockA := table.acquire(uuid.New())
		unlockB := table.acquire(uuid.New())
		assert.Equal(t, 2, table.size())
		unlockB()
		unlockA()
	})

	t.Run("drops an entry once the last holder unlocks", func(t *testing.T) {
		var table lockTable
		id := uuid.New()

		unlock := table.acquire(id)
		assert.Equal(t, 1, table.size())
		unlock()
		assert.Equal(t, 0, table.size())
	})

	t.Run("stays empty after many orders come and go", func(t *testing.T) {
		var table lockTable

		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := table.acquire(uuid.New())
				unlock()
			}()
		}
		wg.Wait()

		assert.Equal(t, 0, table.size())
	})
}
