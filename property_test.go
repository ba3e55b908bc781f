package match

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/0x5487/orderbook-replay/protocol"
)

// drawInstruction draws a random instruction over a small id and price space
// so that cancels and crossings happen often.
func drawInstruction(t *rapid.T) *Instruction {
	user := rapid.Int64Range(1, 3).Draw(t, "user")
	oid := rapid.Int64Range(1, 20).Draw(t, "oid")

	switch rapid.IntRange(0, 9).Draw(t, "kind") {
	case 0, 1:
		return protocol.CancelOrder(user, oid)
	case 2:
		return protocol.Flush()
	default:
		side := protocol.SideBuy
		if rapid.Bool().Draw(t, "sell") {
			side = protocol.SideSell
		}
		price := rapid.Int64Range(95, 105).Draw(t, "price")
		size := rapid.Int64Range(1, 3).Draw(t, "size")
		return protocol.NewOrder(user, testMarket, price, size, side, oid)
	}
}

func TestPropertyBookNeverCrossedWithoutMatching(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		book, _ := newTestOrderBook(false)

		steps := rapid.IntRange(1, 200).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			book.Apply(drawInstruction(t))

			bid, bidOK := book.bidQueue.bestPrice()
			ask, askOK := book.askQueue.bestPrice()
			if bidOK && askOK && bid >= ask {
				t.Fatalf("book crossed: bid %d >= ask %d", bid, ask)
			}
		}
	})
}

func TestPropertyTopOfBookMatchesQueues(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		matchMode := rapid.Bool().Draw(t, "match")
		book, publishTrader := newTestOrderBook(matchMode)
		aggregated := NewAggregatedBook()

		steps := rapid.IntRange(1, 200).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			ins := drawInstruction(t)
			publishTrader.Reset()
			book.Apply(ins)

			if n := publishTrader.Count(); n > 0 {
				first := publishTrader.Get(0)
				switch ins.Kind {
				case protocol.KindNew:
					if first.Type != LogTypeAccept && first.Type != LogTypeReject {
						t.Fatalf("new order must be answered first, got %s", first.Type)
					}
					if first.Type == LogTypeReject && n != 1 {
						t.Fatalf("a reject must be the only event, got %d", n)
					}
				case protocol.KindCancel:
					if first.Type != LogTypeAccept {
						t.Fatalf("cancel must be accepted, got %s", first.Type)
					}
				case protocol.KindFlush:
					if first.Type != LogTypeFlush || n != 1 {
						t.Fatalf("flush must emit only the separator")
					}
				}
			}
			aggregated.Publish(publishTrader.Logs...)

			for _, side := range []Side{Buy, Sell} {
				q, _ := book.sides(side)
				want := current(q)

				price, volume, ok := book.TopOfBook(side)
				if (want != nil) != ok {
					t.Fatalf("side %s: cached top presence %v, queue has level %v", side, ok, want != nil)
				}
				if want != nil && (want.price != price || want.volume != volume) {
					t.Fatalf("side %s: cached top %d/%d, queue %d/%d", side, price, volume, want.price, want.volume)
				}

				item, itemOK := aggregated.TopOfBook(testMarket, side)
				if itemOK != ok || ok && (item.Price != price || item.Size != volume) {
					t.Fatalf("side %s: published stream disagrees with the book", side)
				}

				var total int64
				for _, level := range q.depth(uint32(q.depthCount())) {
					if level.Count == 0 || level.Size <= 0 {
						t.Fatalf("side %s: empty level %d left in the book", side, level.Price)
					}
					total += level.Count
				}
				if total != q.orderCount() {
					t.Fatalf("side %s: %d orders in levels, %d counted", side, total, q.orderCount())
				}
			}
		}
	})
}

func TestPropertyEngineMatchesSingleBook(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		matchMode := rapid.Bool().Draw(t, "match")
		book, bookLogs := newTestOrderBook(matchMode)
		engineLogs := NewMemoryPublishLog()
		engine := NewMatchingEngine(engineLogs, WithMatchMode(matchMode))

		steps := rapid.IntRange(1, 100).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			ins := drawInstruction(t)
			book.Apply(ins)
			engine.Apply(ins)
		}

		got, want := engineLogs.Lines(), bookLogs.Lines()
		if len(got) != len(want) {
			t.Fatalf("engine emitted %d lines, book %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("line %d: engine %q, book %q", i, got[i], want[i])
			}
		}
	})
}
