package parallel_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/voicebot/pkg/parallel"
)

func TestEachVisitsEveryInput(t *testing.T) {
	var mu sync.Mutex
	seen := map[int]bool{}

	err := parallel.Each(context.Background(), []int{1, 2, 3, 4, 5}, 2, func(_ context.Context, n int) error {
		mu.Lock()
		defer mu.Unlock()
		seen[n] = true
		return nil
	})

	require.NoError(t, err)
	assert.Len(t, seen, 5)
}

func TestEachRespectsLimit(t *testing.T) {
	var running, peak atomic.Int32
	inputs := make([]int, 20)

	err := parallel.Each(context.Background(), inputs, 3, func(context.Context, int) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		running.Add(-1)
		return nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestEachStopsOnFirstError(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32

	err := parallel.Each(context.Background(), make([]int, 100), 1, func(context.Context, int) error {
		if calls.Add(1) == 2 {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Less(t, calls.Load(), int32(100))
}

func TestEachEmptyInput(t *testing.T) {
	assert.NoError(t, parallel.Each(context.Background(), []string(nil), 4, func(context.Context, string) error {
		t.Fatal("called")
		return nil
	}))
}
