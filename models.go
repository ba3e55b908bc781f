package match

import (
	"github.com/0x5487/orderbook-replay/protocol"
)

type Side = protocol.Side

const (
	Buy  Side = protocol.SideBuy
	Sell Side = protocol.SideSell
)

type Instruction = protocol.Instruction

// orderKey identifies a resting order for cancellation.
type orderKey struct {
	userID      int64
	userOrderID int64
}

// Order represents the state of a resting order in the order book.
type Order struct {
	UserID      int64 `json:"user_id"`
	UserOrderID int64 `json:"user_order_id"`
	Side        Side  `json:"side"`
	Price       int64 `json:"price"`
	Size        int64 `json:"size"`

	// Intrusive linked list pointers (ignored by JSON)
	next *Order
	prev *Order
}

func (o *Order) key() orderKey {
	return orderKey{userID: o.UserID, userOrderID: o.UserOrderID}
}

// Depth is a view of the best price levels of both sides.
type Depth struct {
	UpdateID uint64       `json:"update_id"`
	Asks     []*DepthItem `json:"asks"`
	Bids     []*DepthItem `json:"bids"`
}

// DepthItem is one aggregated price level.
type DepthItem struct {
	ID    uint32 `json:"id"`
	Price int64  `json:"price"`
	Size  int64  `json:"size"`
	Count int64  `json:"count"`
}

// BookStats contains statistics about the order book queues
type BookStats struct {
	AskDepthCount int64 `json:"ask_depth_count"`
	AskOrderCount int64 `json:"ask_order_count"`
	BidDepthCount int64 `json:"bid_depth_count"`
	BidOrderCount int64 `json:"bid_order_count"`
}
