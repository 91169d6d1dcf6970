package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNull_AlwaysReportsUnpressed(t *testing.T) {
	t.Parallel()

	var n Null
	n.Poll()
	assert.Equal(t, int16(0), n.State(0, 1, 0, 4))
}

func TestSnapshot_PollFreezesValuesForTheFrame(t *testing.T) {
	t.Parallel()

	s := NewSnapshot()
	s.Set(0, 1, 0, 4, 1)
	s.Poll()

	assert.Equal(t, int16(1), s.State(0, 1, 0, 4))

	// A Set after Poll must not affect the frozen frame's State calls.
	s.Set(0, 1, 0, 4, 0)
	assert.Equal(t, int16(1), s.State(0, 1, 0, 4))

	s.Poll()
	assert.Equal(t, int16(0), s.State(0, 1, 0, 4))
}

func TestSnapshot_UnknownQueryReturnsZero(t *testing.T) {
	t.Parallel()

	s := NewSnapshot()
	s.Poll()
	assert.Equal(t, int16(0), s.State(9, 9, 9, 9))
}
