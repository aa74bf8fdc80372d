package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrJDen31/tierann/model"
)

func TestLFU_EvictsLeastFrequentlyUsed(t *testing.T) {
	p := NewLFU(2)
	p.OnInsert(1)
	p.OnInsert(2)

	// count(1)=3, count(2)=1.
	p.RecordAccess(1)
	p.RecordAccess(1)

	victim, evicted := p.OnInsert(3)
	require.True(t, evicted)
	assert.Equal(t, model.VectorID(2), victim)
}

func TestLFU_TieBrokenByInsertionOrder(t *testing.T) {
	p := NewLFU(3)
	p.OnInsert(10)
	p.OnInsert(20)
	p.OnInsert(30)

	// All three sit at count 1; 10 is the oldest in the bucket.
	victim, evicted := p.OnInsert(40)
	require.True(t, evicted)
	assert.Equal(t, model.VectorID(10), victim)

	victim, evicted = p.OnInsert(50)
	require.True(t, evicted)
	assert.Equal(t, model.VectorID(20), victim)
}

func TestLFU_ResidentReinsertIsAccess(t *testing.T) {
	p := NewLFU(2)
	p.OnInsert(1)
	p.OnInsert(2)

	// count(2)=2, count(1)=1.
	_, evicted := p.OnInsert(2)
	assert.False(t, evicted)
	assert.Equal(t, 2, p.Size())

	victim, evicted := p.OnInsert(3)
	require.True(t, evicted)
	assert.Equal(t, model.VectorID(1), victim)
}

func TestLFU_MinFreqRecoversAfterPromotion(t *testing.T) {
	p := NewLFU(2)
	p.OnInsert(1)
	// Sole entry leaves the count-1 bucket.
	p.RecordAccess(1)
	p.OnInsert(2)

	// count(1)=2, count(2)=1.
	victim, evicted := p.OnInsert(3)
	require.True(t, evicted)
	assert.Equal(t, model.VectorID(2), victim)
}

func TestLFU_EraseFreesCapacity(t *testing.T) {
	p := NewLFU(2)
	p.OnInsert(1)
	p.OnInsert(2)

	p.Erase(1)
	assert.Equal(t, 1, p.Size())

	_, evicted := p.OnInsert(3)
	assert.False(t, evicted)
	assert.Equal(t, 2, p.Size())
}

func TestLFU_SizeNeverExceedsCapacity(t *testing.T) {
	const capacity = 8
	p := NewLFU(capacity)

	for id := model.VectorID(0); id < 100; id++ {
		p.OnInsert(id)
		if id%3 == 0 {
			p.RecordAccess(id)
		}
		assert.LessOrEqual(t, p.Size(), capacity)
	}
}

func TestNew_PolicyKinds(t *testing.T) {
	lru, err := New(KindLRU, 4)
	require.NoError(t, err)
	assert.IsType(t, &LRU{}, lru)

	lfu, err := New(KindLFU, 4)
	require.NoError(t, err)
	assert.IsType(t, &LFU{}, lfu)

	_, err = New("random", 4)
	assert.Error(t, err)
}
