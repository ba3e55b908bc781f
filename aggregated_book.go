package match

import (
	"fmt"
	"sync"

	"github.com/igrmk/treemap/v2"
	"github.com/shopspring/decimal"
)

// MarketView is the downstream view of one market rebuilt from BookLog events.
type MarketView struct {
	BestBid    *DepthItem      `json:"best_bid,omitempty"`
	BestAsk    *DepthItem      `json:"best_ask,omitempty"`
	TradeCount int64           `json:"trade_count"`
	Volume     int64           `json:"volume"`
	Notional   decimal.Decimal `json:"notional"`
	Accepted   int64           `json:"accepted"`
	Rejected   int64           `json:"rejected"`
}

// AggregatedBook maintains a simplified view of the order books, tracking only
// the top of book and trade totals of every market.
// It is designed for downstream services that rebuild state from the BookLog
// stream, and it implements PublishLog so it can be attached directly to an engine.
type AggregatedBook struct {
	mu      sync.RWMutex
	seqID   uint64 // Last processed SequenceID for gap detection and deduplication
	markets *treemap.TreeMap[string, *MarketView]
	flushes int64
}

// NewAggregatedBook creates a new, empty AggregatedBook.
func NewAggregatedBook() *AggregatedBook {
	return &AggregatedBook{
		markets: treemap.New[string, *MarketView](),
	}
}

// SequenceID returns the last processed sequence ID.
func (ab *AggregatedBook) SequenceID() uint64 {
	ab.mu.RLock()
	defer ab.mu.RUnlock()
	return ab.seqID
}

// Publish replays the logs, logging any error instead of returning it.
func (ab *AggregatedBook) Publish(logs ...*BookLog) {
	for _, log := range logs {
		if err := ab.Replay(log); err != nil {
			logger.Warn("aggregated book replay failed", "seq_id", log.SequenceID, "error", err)
		}
	}
}

// Replay applies a BookLog event to update the aggregated state.
// Events at or below the last processed sequence ID are ignored as duplicates.
// A gap in sequence IDs is reported with ErrSequenceGap but the event is still applied.
func (ab *AggregatedBook) Replay(log *BookLog) error {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	if log.SequenceID != 0 && log.SequenceID <= ab.seqID {
		return nil
	}

	var err error
	if ab.seqID != 0 && log.SequenceID != ab.seqID+1 {
		err = fmt.Errorf("%w: expected %d, got %d", ErrSequenceGap, ab.seqID+1, log.SequenceID)
	}
	ab.seqID = log.SequenceID

	switch log.Type {
	case LogTypeFlush:
		ab.markets = treemap.New[string, *MarketView]()
		ab.flushes++
		return err
	case LogTypeAccept:
		// cancels of unknown orders are acknowledged outside of any market
		if log.MarketID != "" {
			ab.market(log.MarketID).Accepted++
		}
	case LogTypeReject:
		ab.market(log.MarketID).Rejected++
	case LogTypeTop:
		view := ab.market(log.MarketID)
		var item *DepthItem
		if log.HasLevel {
			item = &DepthItem{Price: log.Price, Size: log.Size}
		}
		if log.Side == Buy {
			view.BestBid = item
		} else {
			view.BestAsk = item
		}
	case LogTypeTrade:
		view := ab.market(log.MarketID)
		view.TradeCount++
		view.Volume += log.Size
		view.Notional = view.Notional.Add(log.Amount)
	}

	return err
}

func (ab *AggregatedBook) market(marketID string) *MarketView {
	view, ok := ab.markets.Get(marketID)
	if !ok {
		view = &MarketView{}
		ab.markets.Set(marketID, view)
	}
	return view
}

// Market returns a copy of the view of one market.
func (ab *AggregatedBook) Market(marketID string) (MarketView, bool) {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	view, ok := ab.markets.Get(marketID)
	if !ok {
		return MarketView{}, false
	}
	return *view, true
}

// TopOfBook returns the best level of one side of a market.
func (ab *AggregatedBook) TopOfBook(marketID string, side Side) (*DepthItem, bool) {
	view, ok := ab.Market(marketID)
	if !ok {
		return nil, false
	}

	item := view.BestAsk
	if side == Buy {
		item = view.BestBid
	}
	return item, item != nil
}

// Markets returns a copy of all market views keyed by market ID.
func (ab *AggregatedBook) Markets() map[string]MarketView {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	result := make(map[string]MarketView, ab.markets.Len())
	for it := ab.markets.Iterator(); it.Valid(); it.Next() {
		result[it.Key()] = *it.Value()
	}
	return result
}

// MarketIDs returns the tracked markets in symbol order.
func (ab *AggregatedBook) MarketIDs() []string {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	ids := make([]string, 0, ab.markets.Len())
	for it := ab.markets.Iterator(); it.Valid(); it.Next() {
		ids = append(ids, it.Key())
	}
	return ids
}

// Flushes returns the number of flush separators seen.
func (ab *AggregatedBook) Flushes() int64 {
	ab.mu.RLock()
	defer ab.mu.RUnlock()
	return ab.flushes
}
