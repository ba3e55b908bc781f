package match

// OrderBookSnapshot contains the resting orders of a single OrderBook.
// It is a diagnostic view; the engine keeps no state across restarts.
type OrderBookSnapshot struct {
	MarketID string   `json:"market_id"`
	SeqID    uint64   `json:"seq_id"`   // Last BookLog sequence ID
	TradeID  uint64   `json:"trade_id"` // Last Trade sequence ID
	Bids     []*Order `json:"bids"`     // Ordered list of bids (best price first)
	Asks     []*Order `json:"asks"`     // Ordered list of asks (best price first)
}
