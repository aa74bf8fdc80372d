package visited

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisitAndReset(t *testing.T) {
	s := New(128)

	assert.False(t, s.Visited(5))
	s.Visit(5)
	s.Visit(64)
	assert.True(t, s.Visited(5))
	assert.True(t, s.Visited(64))
	assert.False(t, s.Visited(6))

	s.Reset()
	assert.False(t, s.Visited(5))
	assert.False(t, s.Visited(64))
}

func TestGrowBeyondCapacity(t *testing.T) {
	s := New(8)
	s.Visit(1000)
	assert.True(t, s.Visited(1000))
	assert.False(t, s.Visited(2000))

	s.Reset()
	assert.False(t, s.Visited(1000))
}

func TestDoubleVisitSingleDirtyEntry(t *testing.T) {
	s := New(8)
	s.Visit(3)
	s.Visit(3)
	assert.Len(t, s.dirty, 1)
}
