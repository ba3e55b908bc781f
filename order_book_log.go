package match

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type LogType string

const (
	LogTypeAccept LogType = "accept"
	LogTypeReject LogType = "reject"
	LogTypeTop    LogType = "top" // top-of-book update
	LogTypeTrade  LogType = "trade"
	LogTypeFlush  LogType = "flush"
)

// BookLog represents an event emitted by the order book.
// SequenceID is a globally increasing ID for every event, used for ordering
// and gap detection in downstream systems.
//
// For LogTypeTrade, UserID/OrderID/Side describe the incoming (taker) order
// and MakerUserID/MakerOrderID the resting one.
// For LogTypeTop, Side is the book side and HasLevel is false when the side
// became empty.
type BookLog struct {
	SequenceID   uint64          `json:"seq_id"`
	TradeID      uint64          `json:"trade_id,omitempty"` // Sequential trade ID, only set for Trade events
	Type         LogType         `json:"type"`
	MarketID     string          `json:"market_id,omitempty"`
	Side         Side            `json:"side,omitempty"`
	Price        int64           `json:"price,omitempty"`
	Size         int64           `json:"size,omitempty"`
	HasLevel     bool            `json:"has_level,omitempty"`
	Amount       decimal.Decimal `json:"amount,omitempty"` // Price * Size, only set for Trade events
	UserID       int64           `json:"user_id,omitempty"`
	OrderID      int64           `json:"order_id,omitempty"`
	MakerUserID  int64           `json:"maker_user_id,omitempty"`
	MakerOrderID int64           `json:"maker_order_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

var bookLogPool = sync.Pool{
	New: func() any {
		return new(BookLog)
	},
}

func acquireBookLog() *BookLog {
	return bookLogPool.Get().(*BookLog)
}

func releaseBookLog(log *BookLog) {
	// For decimal.Decimal, the zero value (nil internal pointer) represents 0, which is valid.
	*log = BookLog{}
	bookLogPool.Put(log)
}

func NewAcceptLog(seqID uint64, marketID string, userID int64, orderID int64) *BookLog {
	log := acquireBookLog()
	log.SequenceID = seqID
	log.Type = LogTypeAccept
	log.MarketID = marketID
	log.UserID = userID
	log.OrderID = orderID
	log.CreatedAt = time.Now().UTC()
	return log
}

func NewRejectLog(seqID uint64, marketID string, userID int64, orderID int64) *BookLog {
	log := acquireBookLog()
	log.SequenceID = seqID
	log.Type = LogTypeReject
	log.MarketID = marketID
	log.UserID = userID
	log.OrderID = orderID
	log.CreatedAt = time.Now().UTC()
	return log
}

// NewTopLog creates a top-of-book update. A nil level means the side is now empty.
func NewTopLog(seqID uint64, marketID string, side Side, level *priceLevel) *BookLog {
	log := acquireBookLog()
	log.SequenceID = seqID
	log.Type = LogTypeTop
	log.MarketID = marketID
	log.Side = side
	if level != nil {
		log.HasLevel = true
		log.Price = level.price
		log.Size = level.volume
	}
	log.CreatedAt = time.Now().UTC()
	return log
}

func NewTradeLog(seqID uint64, tradeID uint64, marketID string, takerOrder *Order, makerOrder *Order) *BookLog {
	log := acquireBookLog()
	log.SequenceID = seqID
	log.TradeID = tradeID
	log.Type = LogTypeTrade
	log.MarketID = marketID
	log.Side = takerOrder.Side
	log.Price = makerOrder.Price
	log.Size = makerOrder.Size
	log.Amount = decimal.NewFromInt(makerOrder.Price).Mul(decimal.NewFromInt(makerOrder.Size))
	log.UserID = takerOrder.UserID
	log.OrderID = takerOrder.UserOrderID
	log.MakerUserID = makerOrder.UserID
	log.MakerOrderID = makerOrder.UserOrderID
	log.CreatedAt = time.Now().UTC()
	return log
}

func NewFlushLog(seqID uint64) *BookLog {
	log := acquireBookLog()
	log.SequenceID = seqID
	log.Type = LogTypeFlush
	log.CreatedAt = time.Now().UTC()
	return log
}

// BuyerSeller returns (buy user, buy order id, sell user, sell order id) of a trade.
func (log *BookLog) BuyerSeller() (int64, int64, int64, int64) {
	if log.Side == Buy {
		return log.UserID, log.OrderID, log.MakerUserID, log.MakerOrderID
	}
	return log.MakerUserID, log.MakerOrderID, log.UserID, log.OrderID
}

// String renders the event as one output line (without the trailing newline).
func (log *BookLog) String() string {
	var sb strings.Builder
	log.appendTo(&sb)
	return sb.String()
}

func (log *BookLog) appendTo(sb *strings.Builder) {
	switch log.Type {
	case LogTypeAccept:
		writeFields(sb, "A", log.UserID, log.OrderID)
	case LogTypeReject:
		writeFields(sb, "R", log.UserID, log.OrderID)
	case LogTypeTop:
		if !log.HasLevel {
			sb.WriteString("B, ")
			sb.WriteString(log.Side.String())
			sb.WriteString(", -, -")
			return
		}
		sb.WriteString("B, ")
		sb.WriteString(log.Side.String())
		for _, v := range [...]int64{log.Price, log.Size} {
			sb.WriteString(", ")
			sb.WriteString(strconv.FormatInt(v, 10))
		}
	case LogTypeTrade:
		buyUser, buyOrder, sellUser, sellOrder := log.BuyerSeller()
		writeFields(sb, "T", buyUser, buyOrder, sellUser, sellOrder, log.Price, log.Size)
	case LogTypeFlush:
		// separator is an empty line
	}
}

func writeFields(sb *strings.Builder, tag string, values ...int64) {
	sb.WriteString(tag)
	for _, v := range values {
		sb.WriteString(", ")
		sb.WriteString(strconv.FormatInt(v, 10))
	}
}
