package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmxmxh/kernelcore/kernel/foundation"
)

func TestQueue_FIFO(t *testing.T) {
	q := New(3, Reject, false)
	ok, _, err := q.Enqueue("a", 0)
	require.NoError(t, err)
	assert.True(t, ok)
	q.Enqueue("b", 0)
	q.Enqueue("c", 0)

	v, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "a", v)
}

func TestQueue_DropOldest(t *testing.T) {
	q := New(2, DropOldest, false)
	q.Enqueue("a", 0)
	q.Enqueue("b", 0)
	accepted, dropped, err := q.Enqueue("c", 0)
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, "a", dropped)
	assert.Equal(t, 2, q.Len())

	v, _ := q.Dequeue()
	assert.Equal(t, "b", v)
}

func TestQueue_DropNewest(t *testing.T) {
	q := New(1, DropNewest, false)
	q.Enqueue("a", 0)
	accepted, dropped, err := q.Enqueue("b", 0)
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Nil(t, dropped)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_Reject(t *testing.T) {
	q := New(1, Reject, false)
	q.Enqueue("a", 0)
	accepted, _, err := q.Enqueue("b", 0)
	assert.False(t, accepted)
	assert.ErrorIs(t, err, foundation.ErrQueueFull)
}

func TestQueue_PriorityOrdering(t *testing.T) {
	q := New(10, Reject, true)
	q.Enqueue("low", 1)
	q.Enqueue("high", 10)
	q.Enqueue("mid", 5)
	q.Enqueue("high2", 10)

	var order []string
	for {
		v, ok := q.Dequeue()
		if !ok {
			break
		}
		order = append(order, v.(string))
	}
	assert.Equal(t, []string{"high", "high2", "mid", "low"}, order)
}

func TestQueue_Status(t *testing.T) {
	q := New(2, DropOldest, false)
	q.Enqueue("a", 0)
	q.Enqueue("b", 0)
	q.Enqueue("c", 0)
	q.Dequeue()

	st := q.Status()
	assert.Equal(t, 3, st.Enqueued)
	assert.Equal(t, 1, st.Dequeued)
	assert.Equal(t, 1, st.Dropped)
	assert.Equal(t, 1, st.Len)
	assert.Equal(t, 2, st.Capacity)
}
