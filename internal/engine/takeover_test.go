package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinatorFirstRequestWins(t *testing.T) {
	var cancels, wins atomic.Int32
	coord := NewCoordinator(
		func() { cancels.Add(1) },
		func() { wins.Add(1) },
	)

	require.True(t, coord.Request(3, 120, "first fix"))
	assert.False(t, coord.Request(1, 40, "second fix"))

	unit, offset, fix := coord.Winner()
	assert.Equal(t, 3, unit)
	assert.Equal(t, 120, offset)
	assert.Equal(t, "first fix", fix)
	assert.Equal(t, int32(1), cancels.Load())
	assert.Equal(t, int32(1), wins.Load())
}

func TestCoordinatorExactlyOneWinnerUnderContention(t *testing.T) {
	var cancels atomic.Int32
	coord := NewCoordinator(func() { cancels.Add(1) }, nil)

	const racers = 32
	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if coord.Request(i, i*10, fmt.Sprintf("fix-%d", i)) {
				winners.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.Equal(t, int32(1), cancels.Load())
	assert.True(t, coord.Triggered())

	unit, offset, fix := coord.Winner()
	assert.Equal(t, unit*10, offset)
	assert.Equal(t, fmt.Sprintf("fix-%d", unit), fix)
}

func TestCoordinatorUntriggeredByDefault(t *testing.T) {
	coord := NewCoordinator(nil, nil)
	assert.False(t, coord.Triggered())
}
