package match

import (
	"github.com/huandu/skiplist"
)

type priceUnit struct {
	price     int64
	totalSize int64
	head      *Order
	tail      *Order
	count     int64
}

type queue struct {
	side        Side
	totalOrders int64
	depths      int64
	depthList   *skiplist.SkipList
	priceList   map[int64]*skiplist.Element
	orders      map[orderKey][]*Order
}

// NewBuyerQueue creates a new queue for buy orders (bids).
// The orders are sorted by price in descending order (highest price first).
func NewBuyerQueue() *queue {
	return &queue{
		side: Buy,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			p1, _ := lhs.(int64)
			p2, _ := rhs.(int64)

			if p1 < p2 {
				return 1
			} else if p1 > p2 {
				return -1
			}

			return 0
		})),
		priceList: make(map[int64]*skiplist.Element),
		orders:    make(map[orderKey][]*Order),
	}
}

// NewSellerQueue creates a new queue for sell orders (asks).
// The orders are sorted by price in ascending order (lowest price first).
func NewSellerQueue() *queue {
	return &queue{
		side: Sell,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			p1, _ := lhs.(int64)
			p2, _ := rhs.(int64)

			if p1 > p2 {
				return 1
			} else if p1 < p2 {
				return -1
			}

			return 0
		})),
		priceList: make(map[int64]*skiplist.Element),
		orders:    make(map[orderKey][]*Order),
	}
}

// ordersByKey returns the resting orders with the given (user, user order id) pair, oldest first.
func (q *queue) ordersByKey(key orderKey) []*Order {
	return q.orders[key]
}

// insertOrder appends an order to the tail of its price level, creating the level if needed.
func (q *queue) insertOrder(order *Order) {
	if prev := q.orders[order.key()]; len(prev) > 0 {
		logger.Warn("duplicate resting order id",
			"user_id", order.UserID,
			"user_order_id", order.UserOrderID,
			"resting", len(prev),
			"price", order.Price)
	}

	el, ok := q.priceList[order.Price]
	if ok {
		unit, _ := el.Value.(*priceUnit)

		order.prev = unit.tail
		order.next = nil
		if unit.tail != nil {
			unit.tail.next = order
		}
		unit.tail = order
		if unit.head == nil {
			unit.head = order
		}

		unit.totalSize += order.Size
		unit.count++
	} else {
		unit := &priceUnit{
			price:     order.Price,
			head:      order,
			tail:      order,
			totalSize: order.Size,
			count:     1,
		}
		order.next = nil
		order.prev = nil

		el := q.depthList.Set(order.Price, unit)
		q.priceList[order.Price] = el
		q.depths++
	}

	q.orders[order.key()] = append(q.orders[order.key()], order)
	q.totalOrders++
}

// removeOrder unlinks an order from its price level.
// The price level is pruned as soon as it becomes empty.
func (q *queue) removeOrder(order *Order) {
	skipElement, ok := q.priceList[order.Price]
	if !ok {
		return
	}
	unit, _ := skipElement.Value.(*priceUnit)

	if order.prev != nil {
		order.prev.next = order.next
	} else {
		unit.head = order.next
	}

	if order.next != nil {
		order.next.prev = order.prev
	} else {
		unit.tail = order.prev
	}

	order.next = nil
	order.prev = nil

	unit.totalSize -= order.Size
	unit.count--
	q.unindex(order)
	q.totalOrders--

	if unit.count == 0 {
		q.depthList.RemoveElement(skipElement)
		delete(q.priceList, order.Price)
		q.depths--
	}
}

func (q *queue) unindex(order *Order) {
	key := order.key()
	same := q.orders[key]
	for i, o := range same {
		if o != order {
			continue
		}
		if len(same) == 1 {
			delete(q.orders, key)
			return
		}
		q.orders[key] = append(same[:i:i], same[i+1:]...)
		return
	}
}

// bestUnit returns the best price level, or nil when the queue is empty.
func (q *queue) bestUnit() *priceUnit {
	el := q.depthList.Front()
	if el == nil {
		return nil
	}

	unit, _ := el.Value.(*priceUnit)
	return unit
}

// bestPrice returns the best populated price.
func (q *queue) bestPrice() (int64, bool) {
	unit := q.bestUnit()
	if unit == nil {
		return 0, false
	}
	return unit.price, true
}

// orderCount returns the total number of orders in the queue.
func (q *queue) orderCount() int64 {
	return q.totalOrders
}

// depthCount returns the number of price levels in the queue.
func (q *queue) depthCount() int64 {
	return q.depths
}

// toSnapshot serializes the queue into a slice of Order structs.
// It iterates through the skip list (price levels) and then the linked list (orders) to preserve priority.
func (q *queue) toSnapshot() []Order {
	snapshots := make([]Order, 0, q.totalOrders)

	elem := q.depthList.Front()
	for elem != nil {
		unit := elem.Value.(*priceUnit)

		order := unit.head
		for order != nil {
			snapshots = append(snapshots, Order{
				UserID:      order.UserID,
				UserOrderID: order.UserOrderID,
				Side:        order.Side,
				Price:       order.Price,
				Size:        order.Size,
			})
			order = order.next
		}

		elem = elem.Next()
	}

	return snapshots
}

// depth returns the order book depth up to the specified limit.
func (q *queue) depth(limit uint32) []*DepthItem {
	result := make([]*DepthItem, 0, limit)

	el := q.depthList.Front()

	var i uint32 = 0
	for i < limit && el != nil {
		unit, _ := el.Value.(*priceUnit)
		d := DepthItem{
			ID:    i,
			Price: unit.price,
			Size:  unit.totalSize,
			Count: unit.count,
		}

		result = append(result, &d)

		el = el.Next()
		i++
	}

	return result
}
