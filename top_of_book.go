package match

// priceLevel is the best price of one side and the aggregate size resting there.
type priceLevel struct {
	price  int64
	volume int64
}

// topOfBook caches the last emitted best level of one side so that only changes are published.
type topOfBook struct {
	side  Side
	level *priceLevel
}

// current derives the best level from the queue. It holds no state of its own.
func current(q *queue) *priceLevel {
	unit := q.bestUnit()
	if unit == nil {
		return nil
	}
	return &priceLevel{price: unit.price, volume: unit.totalSize}
}

// refresh recomputes the best level and stores it when it differs from the cached one.
// It reports whether a change happened; the new level is nil when the side became empty.
func (t *topOfBook) refresh(q *queue) (*priceLevel, bool) {
	next := current(q)

	switch {
	case next == nil && t.level == nil:
		return nil, false
	case next != nil && t.level != nil && *next == *t.level:
		return nil, false
	}

	t.level = next
	return next, true
}

// get returns the cached level, if any.
func (t *topOfBook) get() (priceLevel, bool) {
	if t.level == nil {
		return priceLevel{}, false
	}
	return *t.level, true
}

func (t *topOfBook) reset() {
	t.level = nil
}
