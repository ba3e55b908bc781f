package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuyerQueue(t *testing.T) {
	q := NewBuyerQueue()

	q.insertOrder(&Order{UserID: 1, UserOrderID: 101, Side: Buy, Price: 10, Size: 1})
	q.insertOrder(&Order{UserID: 1, UserOrderID: 201, Side: Buy, Price: 20, Size: 10})
	q.insertOrder(&Order{UserID: 1, UserOrderID: 301, Side: Buy, Price: 30, Size: 10})
	q.insertOrder(&Order{UserID: 2, UserOrderID: 202, Side: Buy, Price: 20, Size: 100})

	assert.Equal(t, int64(4), q.orderCount())
	assert.Equal(t, int64(3), q.depthCount())

	price, ok := q.bestPrice()
	require.True(t, ok)
	assert.Equal(t, int64(30), price)

	ord := q.bestUnit().head
	assert.Equal(t, int64(301), ord.UserOrderID)
	q.removeOrder(ord)

	unit := q.bestUnit()
	require.NotNil(t, unit)
	assert.Equal(t, int64(20), unit.price)
	assert.Equal(t, int64(110), unit.totalSize)
	assert.Equal(t, int64(2), unit.count)

	// FIFO inside the level
	assert.Equal(t, int64(201), unit.head.UserOrderID)
	assert.Equal(t, int64(202), unit.tail.UserOrderID)

	depth := q.depth(5)
	require.Len(t, depth, 2)
	assert.Equal(t, int64(20), depth[0].Price)
	assert.Equal(t, int64(110), depth[0].Size)
	assert.Equal(t, int64(10), depth[1].Price)
}

func TestSellerQueue(t *testing.T) {
	q := NewSellerQueue()

	q.insertOrder(&Order{UserID: 1, UserOrderID: 101, Side: Sell, Price: 10, Size: 1})
	q.insertOrder(&Order{UserID: 1, UserOrderID: 201, Side: Sell, Price: 20, Size: 10})
	q.insertOrder(&Order{UserID: 1, UserOrderID: 301, Side: Sell, Price: 30, Size: 10})
	q.insertOrder(&Order{UserID: 2, UserOrderID: 102, Side: Sell, Price: 10, Size: 5})

	price, ok := q.bestPrice()
	require.True(t, ok)
	assert.Equal(t, int64(10), price)

	snap := q.toSnapshot()
	require.Len(t, snap, 4)
	ids := make([]int64, 0, len(snap))
	for _, o := range snap {
		ids = append(ids, o.UserOrderID)
	}
	assert.Equal(t, []int64{101, 102, 201, 301}, ids)
}

func TestQueueRemoveMiddleOrder(t *testing.T) {
	q := NewBuyerQueue()

	first := &Order{UserID: 1, UserOrderID: 1, Side: Buy, Price: 10, Size: 1}
	middle := &Order{UserID: 1, UserOrderID: 2, Side: Buy, Price: 10, Size: 2}
	last := &Order{UserID: 1, UserOrderID: 3, Side: Buy, Price: 10, Size: 3}
	q.insertOrder(first)
	q.insertOrder(middle)
	q.insertOrder(last)

	q.removeOrder(middle)

	unit := q.bestUnit()
	require.NotNil(t, unit)
	assert.Equal(t, int64(4), unit.totalSize)
	assert.Equal(t, int64(2), unit.count)
	assert.Same(t, first, unit.head)
	assert.Same(t, last, unit.tail)
	assert.Same(t, last, first.next)
	assert.Same(t, first, last.prev)
	assert.Empty(t, q.ordersByKey(middle.key()))
}

func TestQueuePrunesEmptyLevels(t *testing.T) {
	q := NewSellerQueue()

	a := &Order{UserID: 1, UserOrderID: 1, Side: Sell, Price: 10, Size: 1}
	b := &Order{UserID: 1, UserOrderID: 2, Side: Sell, Price: 11, Size: 1}
	q.insertOrder(a)
	q.insertOrder(b)

	q.removeOrder(a)
	assert.Equal(t, int64(1), q.depthCount())
	price, ok := q.bestPrice()
	require.True(t, ok)
	assert.Equal(t, int64(11), price)

	q.removeOrder(b)
	assert.Equal(t, int64(0), q.depthCount())
	assert.Equal(t, int64(0), q.orderCount())
	assert.Nil(t, q.bestUnit())
	_, ok = q.bestPrice()
	assert.False(t, ok)
	assert.Empty(t, q.depth(10))
}

func TestQueueDuplicateKey(t *testing.T) {
	q := NewBuyerQueue()
	key := orderKey{userID: 7, userOrderID: 1}

	older := &Order{UserID: 7, UserOrderID: 1, Side: Buy, Price: 10, Size: 1}
	newer := &Order{UserID: 7, UserOrderID: 1, Side: Buy, Price: 12, Size: 3}
	q.insertOrder(older)
	q.insertOrder(newer)

	assert.Equal(t, int64(2), q.orderCount())
	require.Len(t, q.ordersByKey(key), 2)
	assert.Same(t, older, q.ordersByKey(key)[0])
	assert.Same(t, newer, q.ordersByKey(key)[1])

	q.removeOrder(newer)
	require.Len(t, q.ordersByKey(key), 1)
	assert.Same(t, older, q.ordersByKey(key)[0])

	q.removeOrder(older)
	assert.Empty(t, q.ordersByKey(key))
	assert.Equal(t, int64(0), q.depthCount())
}
