package match

import (
	"sync/atomic"

	"github.com/0x5487/orderbook-replay/protocol"
)

// sequencer hands out event and trade sequence IDs. Books created by the same
// MatchingEngine share one sequencer so that IDs are global across markets.
type sequencer struct {
	seqID   atomic.Uint64
	tradeID atomic.Uint64
}

// OrderBookOption configures an OrderBook.
type OrderBookOption func(*OrderBook)

// WithMatchMode makes crossing orders trade against the opposite best level instead of being rejected.
func WithMatchMode(enabled bool) OrderBookOption {
	return func(book *OrderBook) {
		book.matchMode = enabled
	}
}

func withSequencer(seq *sequencer) OrderBookOption {
	return func(book *OrderBook) {
		book.seq = seq
	}
}

// OrderBook is the limit order book of a single symbol.
// It is not safe for concurrent use: instructions must be applied one at a
// time, in arrival order.
type OrderBook struct {
	marketID      string
	matchMode     bool
	seq           *sequencer
	bidQueue      *queue
	askQueue      *queue
	bestBid       topOfBook
	bestAsk       topOfBook
	publishTrader PublishLog
}

// NewOrderBook creates a new, empty order book.
func NewOrderBook(marketID string, publishTrader PublishLog, opts ...OrderBookOption) *OrderBook {
	book := &OrderBook{
		marketID:      marketID,
		seq:           &sequencer{},
		bidQueue:      NewBuyerQueue(),
		askQueue:      NewSellerQueue(),
		bestBid:       topOfBook{side: Buy},
		bestAsk:       topOfBook{side: Sell},
		publishTrader: publishTrader,
	}

	for _, opt := range opts {
		opt(book)
	}

	return book
}

// MarketID returns the symbol this book was created for.
func (book *OrderBook) MarketID() string {
	return book.marketID
}

// MatchMode reports whether crossing orders are traded instead of rejected.
func (book *OrderBook) MatchMode() bool {
	return book.matchMode
}

// Apply processes one instruction synchronously and publishes the resulting events,
// in generation order, before returning.
func (book *OrderBook) Apply(ins *Instruction) {
	var logs []*BookLog

	switch ins.Kind {
	case protocol.KindNew:
		logs = book.handleNewOrder(ins)
	case protocol.KindCancel:
		logs = book.handleCancel(ins)
	case protocol.KindFlush:
		logs = book.handleFlush()
	case protocol.KindUnknown:
		logger.Warn("ignoring instruction of unknown kind", "market_id", book.marketID)
	}

	book.publish(logs)
}

func (book *OrderBook) publish(logs []*BookLog) {
	if len(logs) == 0 {
		return
	}

	book.publishTrader.Publish(logs...)
	for _, log := range logs {
		releaseBookLog(log)
	}
}

// sides returns the queue and top-of-book cache of the given side.
func (book *OrderBook) sides(side Side) (*queue, *topOfBook) {
	if side == Buy {
		return book.bidQueue, &book.bestBid
	}
	return book.askQueue, &book.bestAsk
}

// handleNewOrder accepts or rejects a new order, optionally trades it, and rests what was not traded.
func (book *OrderBook) handleNewOrder(ins *Instruction) []*BookLog {
	logs := make([]*BookLog, 0, 4)

	order := &Order{
		UserID:      ins.UserID,
		UserOrderID: ins.UserOrderID,
		Side:        ins.Side,
		Price:       ins.Price,
		Size:        ins.Size,
	}

	if !book.matchMode && book.crosses(order) {
		return append(logs, NewRejectLog(book.seq.seqID.Add(1), book.marketID, order.UserID, order.UserOrderID))
	}

	logs = append(logs, NewAcceptLog(book.seq.seqID.Add(1), book.marketID, order.UserID, order.UserOrderID))

	if book.matchMode {
		targetQueue, targetTop := book.sides(order.Side.Opposite())
		if maker := book.matchOne(order, targetQueue); maker != nil {
			logs = append(logs, NewTradeLog(book.seq.seqID.Add(1), book.seq.tradeID.Add(1), book.marketID, order, maker))
			return book.appendTopChange(logs, targetQueue, targetTop)
		}
	}

	myQueue, myTop := book.sides(order.Side)
	myQueue.insertOrder(order)

	return book.appendTopChange(logs, myQueue, myTop)
}

// crosses reports whether the order's price reaches the best price of the opposite side.
func (book *OrderBook) crosses(order *Order) bool {
	if order.Side == Buy {
		lowestAsk, ok := book.askQueue.bestPrice()
		return ok && order.Price >= lowestAsk
	}

	highestBid, ok := book.bidQueue.bestPrice()
	return ok && order.Price <= highestBid
}

// matchOne looks for a counter order in the best level of the target queue only.
// The first order (in arrival order) with exactly the same size and a marketable
// price is removed and returned. Sizes are never split.
func (book *OrderBook) matchOne(order *Order, targetQueue *queue) *Order {
	unit := targetQueue.bestUnit()
	if unit == nil {
		return nil
	}

	for tOrd := unit.head; tOrd != nil; tOrd = tOrd.next {
		if tOrd.Size != order.Size {
			continue
		}
		if order.Side == Buy && tOrd.Price > order.Price ||
			order.Side == Sell && tOrd.Price < order.Price {
			continue
		}

		targetQueue.removeOrder(tOrd)
		return tOrd
	}

	return nil
}

// handleCancel removes the order identified by (user, user order id) from whichever side holds it.
// The cancel is acknowledged even when no such order rests in the book.
func (book *OrderBook) handleCancel(ins *Instruction) []*BookLog {
	logs := make([]*BookLog, 0, 2)
	logs = append(logs, NewAcceptLog(book.seq.seqID.Add(1), book.marketID, ins.UserID, ins.UserOrderID))

	key := orderKey{userID: ins.UserID, userOrderID: ins.UserOrderID}

	for _, side := range [...]Side{Sell, Buy} {
		q, top := book.sides(side)
		// every resting order under the key goes, duplicates included
		for _, order := range append([]*Order(nil), q.ordersByKey(key)...) {
			q.removeOrder(order)
		}
		logs = book.appendTopChange(logs, q, top)
	}

	return logs
}

// handleFlush emits the separator and empties both sides.
func (book *OrderBook) handleFlush() []*BookLog {
	logs := []*BookLog{NewFlushLog(book.seq.seqID.Add(1))}
	book.reset()
	return logs
}

func (book *OrderBook) reset() {
	book.bidQueue = NewBuyerQueue()
	book.askQueue = NewSellerQueue()
	book.bestBid.reset()
	book.bestAsk.reset()
}

// appendTopChange recomputes the best level of one side and appends an update if it changed.
func (book *OrderBook) appendTopChange(logs []*BookLog, q *queue, top *topOfBook) []*BookLog {
	level, changed := top.refresh(q)
	if !changed {
		return logs
	}
	return append(logs, NewTopLog(book.seq.seqID.Add(1), book.marketID, top.side, level))
}

// hasOrder reports whether an order with the given identity rests on either side.
func (book *OrderBook) hasOrder(userID int64, userOrderID int64) bool {
	key := orderKey{userID: userID, userOrderID: userOrderID}
	return len(book.bidQueue.ordersByKey(key)) > 0 || len(book.askQueue.ordersByKey(key)) > 0
}

// TopOfBook returns the last published best level of a side.
func (book *OrderBook) TopOfBook(side Side) (price int64, volume int64, ok bool) {
	_, top := book.sides(side)
	level, ok := top.get()
	return level.price, level.volume, ok
}

// Depth returns the current depth of the order book up to the specified limit.
func (book *OrderBook) Depth(limit uint32) (*Depth, error) {
	if limit == 0 {
		return nil, ErrInvalidParam
	}

	return &Depth{
		UpdateID: book.seq.seqID.Load(),
		Asks:     book.askQueue.depth(limit),
		Bids:     book.bidQueue.depth(limit),
	}, nil
}

// Stats returns usage statistics for the order book.
func (book *OrderBook) Stats() *BookStats {
	return &BookStats{
		AskDepthCount: book.askQueue.depthCount(),
		AskOrderCount: book.askQueue.orderCount(),
		BidDepthCount: book.bidQueue.depthCount(),
		BidOrderCount: book.bidQueue.orderCount(),
	}
}

// Snapshot captures the resting orders of both sides, best price first.
func (book *OrderBook) Snapshot() *OrderBookSnapshot {
	snap := &OrderBookSnapshot{
		MarketID: book.marketID,
		SeqID:    book.seq.seqID.Load(),
		TradeID:  book.seq.tradeID.Load(),
		Bids:     make([]*Order, 0),
		Asks:     make([]*Order, 0),
	}

	bids := book.bidQueue.toSnapshot()
	for i := range bids {
		snap.Bids = append(snap.Bids, &bids[i])
	}

	asks := book.askQueue.toSnapshot()
	for i := range asks {
		snap.Asks = append(snap.Asks, &asks[i])
	}

	return snap
}
