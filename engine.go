package match

import (
	"github.com/igrmk/treemap/v2"

	"github.com/0x5487/orderbook-replay/protocol"
)

// MatchingEngine routes instructions to one OrderBook per symbol.
//
// New orders are routed by symbol and the book is created on first use.
// Cancels carry no symbol and go to the first book, in symbol order, that
// holds the order; an unknown order is acknowledged by the engine itself.
// A flush emits a single separator and drops every book.
//
// With a single symbol the emitted events are identical to those of a lone OrderBook.
type MatchingEngine struct {
	seq           sequencer
	orderbooks    *treemap.TreeMap[string, *OrderBook]
	publishTrader PublishLog
	opts          []OrderBookOption
}

// NewMatchingEngine creates a new matching engine; opts are applied to every order book it creates.
func NewMatchingEngine(publishTrader PublishLog, opts ...OrderBookOption) *MatchingEngine {
	return &MatchingEngine{
		orderbooks:    treemap.New[string, *OrderBook](),
		publishTrader: publishTrader,
		opts:          opts,
	}
}

// Apply routes one instruction. It must not be called concurrently.
func (engine *MatchingEngine) Apply(ins *Instruction) {
	switch ins.Kind {
	case protocol.KindNew:
		engine.orderBookFor(ins.Symbol).Apply(ins)
	case protocol.KindCancel:
		engine.cancelOrder(ins)
	case protocol.KindFlush:
		engine.flush()
	case protocol.KindUnknown:
		logger.Warn("ignoring instruction of unknown kind")
	}
}

func (engine *MatchingEngine) orderBookFor(marketID string) *OrderBook {
	if book, found := engine.orderbooks.Get(marketID); found {
		return book
	}

	opts := make([]OrderBookOption, 0, len(engine.opts)+1)
	opts = append(opts, engine.opts...)
	opts = append(opts, withSequencer(&engine.seq))

	book := NewOrderBook(marketID, engine.publishTrader, opts...)
	engine.orderbooks.Set(marketID, book)
	logger.Debug("order book created", "market_id", marketID, "match_mode", book.MatchMode())
	return book
}

func (engine *MatchingEngine) cancelOrder(ins *Instruction) {
	for it := engine.orderbooks.Iterator(); it.Valid(); it.Next() {
		book := it.Value()
		if book.hasOrder(ins.UserID, ins.UserOrderID) {
			book.Apply(ins)
			return
		}
	}

	log := NewAcceptLog(engine.seq.seqID.Add(1), "", ins.UserID, ins.UserOrderID)
	engine.publishTrader.Publish(log)
	releaseBookLog(log)
}

func (engine *MatchingEngine) flush() {
	log := NewFlushLog(engine.seq.seqID.Add(1))
	engine.publishTrader.Publish(log)
	releaseBookLog(log)

	engine.orderbooks = treemap.New[string, *OrderBook]()
}

// OrderBook retrieves the order book for a specific market ID.
// Returns nil if the market does not exist.
func (engine *MatchingEngine) OrderBook(marketID string) *OrderBook {
	book, found := engine.orderbooks.Get(marketID)
	if !found {
		return nil
	}
	return book
}

// MarketIDs returns the symbols that currently have a book, in order.
func (engine *MatchingEngine) MarketIDs() []string {
	ids := make([]string, 0, engine.orderbooks.Len())
	for it := engine.orderbooks.Iterator(); it.Valid(); it.Next() {
		ids = append(ids, it.Key())
	}
	return ids
}

// Snapshots captures every order book, in symbol order.
func (engine *MatchingEngine) Snapshots() []*OrderBookSnapshot {
	snaps := make([]*OrderBookSnapshot, 0, engine.orderbooks.Len())
	for it := engine.orderbooks.Iterator(); it.Valid(); it.Next() {
		snaps = append(snaps, it.Value().Snapshot())
	}
	return snaps
}

// SequenceID returns the last assigned event sequence ID.
func (engine *MatchingEngine) SequenceID() uint64 {
	return engine.seq.seqID.Load()
}
