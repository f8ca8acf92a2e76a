package txid

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocate(t *testing.T) {
	t.Run("ids are handed out in sequence", func(t *testing.T) {
		tm := NewManager()
		for want := FirstTxID; want < FirstTxID+5; want++ {
			got, err := tm.Allocate()
			assert.Nil(t, err)
			assert.Equal(t, want, got)
		}
	})
	t.Run("wraparound restarts at FirstTxID", func(t *testing.T) {
		tm := TestingNewManager(TxID(math.MaxUint32), false)
		got, err := tm.Allocate()
		assert.Nil(t, err)
		assert.Equal(t, TxID(math.MaxUint32), got)

		got, err = tm.Allocate()
		assert.Nil(t, err)
		assert.Equal(t, FirstTxID, got)
	})
	t.Run("concurrent callers receive distinct ids", func(t *testing.T) {
		tm := NewManager()
		const n = 100
		var mu sync.Mutex
		seen := make(map[TxID]struct{}, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id, err := tm.Allocate()
				assert.Nil(t, err)
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}()
		}
		wg.Wait()
		assert.Equal(t, n, len(seen))
	})
}

func TestAllocateReclaimHorizon(t *testing.T) {
	t.Run("horizon is ignored before the first wraparound", func(t *testing.T) {
		tm := NewManager()
		tm.SetReclaimHorizon(FirstTxID)
		_, err := tm.Allocate()
		assert.Nil(t, err)
	})
	t.Run("allocation fails when the next id hits the horizon", func(t *testing.T) {
		tm := TestingNewManager(TxID(100), true)
		tm.SetReclaimHorizon(TxID(100))
		_, err := tm.Allocate()
		assert.ErrorIs(t, err, ErrIDSpaceExhausted)
	})
	t.Run("allocation resumes once the horizon moves", func(t *testing.T) {
		tm := TestingNewManager(TxID(100), true)
		tm.SetReclaimHorizon(TxID(100))
		_, err := tm.Allocate()
		assert.ErrorIs(t, err, ErrIDSpaceExhausted)

		tm.SetReclaimHorizon(TxID(200))
		got, err := tm.Allocate()
		assert.Nil(t, err)
		assert.Equal(t, TxID(100), got)
	})
}
