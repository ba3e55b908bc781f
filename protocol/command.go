package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord is returned when an input record cannot be turned into a valid Instruction.
	ErrMalformedRecord = errors.New("malformed record")
)

// Instruction is the standard carrier for one input event entering the engine.
// Price, Size and Side are only meaningful for KindNew.
type Instruction struct {
	Kind        Kind   `json:"kind"`
	UserID      int64  `json:"user_id"`
	UserOrderID int64  `json:"user_order_id"`
	Side        Side   `json:"side,omitempty"`
	Price       int64  `json:"price,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Symbol      string `json:"symbol,omitempty"` // routing header, never inspected by an order book
}

// NewOrder builds a KindNew instruction.
func NewOrder(userID int64, symbol string, price int64, size int64, side Side, userOrderID int64) *Instruction {
	return &Instruction{
		Kind:        KindNew,
		UserID:      userID,
		UserOrderID: userOrderID,
		Side:        side,
		Price:       price,
		Size:        size,
		Symbol:      symbol,
	}
}

// CancelOrder builds a KindCancel instruction.
func CancelOrder(userID int64, userOrderID int64) *Instruction {
	return &Instruction{
		Kind:        KindCancel,
		UserID:      userID,
		UserOrderID: userOrderID,
	}
}

// Flush builds a KindFlush instruction.
func Flush() *Instruction {
	return &Instruction{Kind: KindFlush}
}

// Validate reports whether the instruction is well formed.
func (ins *Instruction) Validate() error {
	switch ins.Kind {
	case KindNew:
		if ins.Side != SideBuy && ins.Side != SideSell {
			return fmt.Errorf("%w: invalid side %d", ErrMalformedRecord, ins.Side)
		}
		if ins.Size <= 0 {
			return fmt.Errorf("%w: quantity must be positive, got %d", ErrMalformedRecord, ins.Size)
		}
		return nil
	case KindCancel, KindFlush:
		return nil
	}
	return fmt.Errorf("%w: unknown instruction kind %d", ErrMalformedRecord, ins.Kind)
}
