package protocol

// Side represents the order side (Buy/Sell).
type Side int8

const (
	SideBuy  Side = 1
	SideSell Side = 2
)

// String returns the single letter used on the wire.
func (s Side) String() string {
	switch s {
	case SideBuy:
		return "B"
	case SideSell:
		return "S"
	}
	return "?"
}

// Opposite returns the side an order of this side trades against.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Kind identifies the instruction type (using uint8 for memory alignment).
type Kind uint8

const (
	KindUnknown Kind = 0
	KindNew     Kind = 1
	KindCancel  Kind = 2
	KindFlush   Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindNew:
		return "N"
	case KindCancel:
		return "C"
	case KindFlush:
		return "F"
	}
	return "unknown"
}
