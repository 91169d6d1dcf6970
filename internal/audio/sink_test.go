package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingSink_PushAccumulatesOccupancy(t *testing.T) {
	t.Parallel()

	s := NewRingSink(100)
	s.Push(make([]int16, 20)) // 10 frames
	assert.Equal(t, 10, s.OccupancyFrames())
	s.Push(make([]int16, 20))
	assert.Equal(t, 20, s.OccupancyFrames())
}

func TestRingSink_PushBeyondCapacityDropsOldest(t *testing.T) {
	t.Parallel()

	s := NewRingSink(4)
	first := []int16{1, 1, 2, 2, 3, 3}  // 3 frames
	second := []int16{4, 4, 5, 5, 6, 6} // 3 more frames, total 6 > capacity 4

	s.Push(first)
	s.Push(second)

	require.Equal(t, 4, s.OccupancyFrames())
	drained := s.Drain(4)
	// The two oldest frames, (1,1) and (2,2), must have been evicted.
	assert.Equal(t, []int16{3, 3, 4, 4, 5, 5, 6, 6}, drained)
}

func TestRingSink_DrainRemovesFromFront(t *testing.T) {
	t.Parallel()

	s := NewRingSink(10)
	s.Push([]int16{1, 1, 2, 2, 3, 3})

	got := s.Drain(1)
	assert.Equal(t, []int16{1, 1}, got)
	assert.Equal(t, 2, s.OccupancyFrames())
}

func TestRingSink_DrainMoreThanAvailableReturnsWhatThereIs(t *testing.T) {
	t.Parallel()

	s := NewRingSink(10)
	s.Push([]int16{1, 1})

	got := s.Drain(5)
	assert.Equal(t, []int16{1, 1}, got)
	assert.Equal(t, 0, s.OccupancyFrames())
}
