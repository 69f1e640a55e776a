package util

import (
	"container/heap"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewMapHeap tests the creation of a new MapHeap
func TestNewMapHeap(t *testing.T) {
	mh := NewMapHeap[string]()
	require.NotNil(t, mh)
	assert.Equal(t, 0, mh.Len())
	assert.Empty(t, mh.itemsMap)
}

// TestAddItem tests adding items to the heap
func TestAddItem(t *testing.T) {
	mh := NewMapHeap[string]()

	mh.AddItem("a", 100)
	mh.AddItem("b", 200)
	mh.AddItem("c", 50)

	assert.Equal(t, 3, mh.Len())
	assert.True(t, mh.Contains("a"))
	assert.True(t, mh.Contains("b"))
	assert.True(t, mh.Contains("c"))

	it, exists := mh.Peek()
	require.True(t, exists)
	assert.Equal(t, "c", it.Key)
	assert.Equal(t, int64(50), it.Priority)
}

// TestUpdateItem tests updating existing items
func TestUpdateItem(t *testing.T) {
	mh := NewMapHeap[string]()

	mh.AddItem("a", 100)
	mh.AddItem("b", 200)
	mh.AddItem("a", 300)

	it, exists := mh.GetByKey("a")
	require.True(t, exists)
	assert.Equal(t, int64(300), it.Priority)
	assert.Equal(t, 2, mh.Len())

	min, _ := mh.Peek()
	assert.Equal(t, "b", min.Key)

	mh.AddItem("b", 50)
	min, _ = mh.Peek()
	assert.Equal(t, "b", min.Key)
	assert.Equal(t, int64(50), min.Priority)
}

// TestRemoveByKey tests removing items by key
func TestRemoveByKey(t *testing.T) {
	mh := NewMapHeap[string]()

	mh.AddItem("a", 100)
	mh.AddItem("b", 200)
	mh.AddItem("c", 300)

	priority, exists := mh.RemoveByKey("b")
	require.True(t, exists)
	assert.Equal(t, int64(200), priority)
	assert.Equal(t, 2, mh.Len())
	assert.False(t, mh.Contains("b"))

	_, exists = mh.RemoveByKey("missing")
	assert.False(t, exists)
}

// TestPopOrder tests if items are popped in correct order
func TestPopOrder(t *testing.T) {
	mh := NewMapHeap[int]()

	items := []struct {
		key      int
		priority int64
	}{
		{5, 50}, {3, 30}, {1, 10}, {4, 40}, {2, 20},
	}
	for _, it := range items {
		mh.AddItem(it.key, it.priority)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].priority < items[j].priority })

	for i, expected := range items {
		require.NotZero(t, mh.Len(), "heap empty after %d items", i)
		it := heap.Pop(mh).(*Item[int])
		assert.Equal(t, expected.key, it.Key)
		assert.Equal(t, expected.priority, it.Priority)
	}
	assert.Equal(t, 0, mh.Len())
	assert.Empty(t, mh.itemsMap)
}

// TestPeekEmptyHeap tests behavior when peeking an empty heap
func TestPeekEmptyHeap(t *testing.T) {
	mh := NewMapHeap[string]()
	_, exists := mh.Peek()
	assert.False(t, exists)
}

// TestReset tests clearing the heap
func TestReset(t *testing.T) {
	mh := NewMapHeap[string]()
	mh.AddItem("a", 1)
	mh.AddItem("b", 2)
	mh.Reset()

	assert.Equal(t, 0, mh.Len())
	assert.False(t, mh.Contains("a"))

	mh.AddItem("c", 3)
	it, ok := mh.Peek()
	require.True(t, ok)
	assert.Equal(t, "c", it.Key)
}

// TestLargeNumberOfItems drains many items in priority order
func TestLargeNumberOfItems(t *testing.T) {
	mh := NewMapHeap[int]()
	const n = 10000
	for i := n; i > 0; i-- {
		mh.AddItem(i, int64(i*7%n))
	}

	last := int64(-1)
	for mh.Len() > 0 {
		it := heap.Pop(mh).(*Item[int])
		assert.GreaterOrEqual(t, it.Priority, last)
		last = it.Priority
	}
}
