package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x5487/orderbook-replay/protocol"
)

func TestAggregatedBook(t *testing.T) {
	t.Run("FollowsEngine", func(t *testing.T) {
		aggregated := NewAggregatedBook()
		engine := NewMatchingEngine(aggregated, WithMatchMode(true))

		engine.Apply(protocol.NewOrder(1, "IBM", 10, 100, protocol.SideBuy, 1))
		engine.Apply(protocol.NewOrder(1, "IBM", 12, 100, protocol.SideSell, 2))
		engine.Apply(protocol.NewOrder(2, "IBM", 9, 100, protocol.SideSell, 101))
		engine.Apply(protocol.NewOrder(1, "AAPL", 20, 5, protocol.SideBuy, 3))

		ibm, ok := aggregated.Market("IBM")
		require.True(t, ok)
		assert.Equal(t, int64(3), ibm.Accepted)
		assert.Equal(t, int64(1), ibm.TradeCount)
		assert.Equal(t, int64(100), ibm.Volume)
		assert.Equal(t, "1000", ibm.Notional.String())
		assert.Nil(t, ibm.BestBid)
		require.NotNil(t, ibm.BestAsk)
		assert.Equal(t, int64(12), ibm.BestAsk.Price)

		bid, ok := aggregated.TopOfBook("AAPL", Buy)
		require.True(t, ok)
		assert.Equal(t, int64(20), bid.Price)
		assert.Equal(t, int64(5), bid.Size)

		_, ok = aggregated.TopOfBook("AAPL", Sell)
		assert.False(t, ok)

		assert.Len(t, aggregated.Markets(), 2)
		assert.Equal(t, []string{"AAPL", "IBM"}, aggregated.MarketIDs())
		assert.Equal(t, engine.SequenceID(), aggregated.SequenceID())
	})

	t.Run("CountsRejects", func(t *testing.T) {
		aggregated := NewAggregatedBook()
		engine := NewMatchingEngine(aggregated)

		engine.Apply(protocol.NewOrder(1, "IBM", 10, 100, protocol.SideBuy, 1))
		engine.Apply(protocol.NewOrder(2, "IBM", 10, 100, protocol.SideSell, 2))

		ibm, ok := aggregated.Market("IBM")
		require.True(t, ok)
		assert.Equal(t, int64(1), ibm.Accepted)
		assert.Equal(t, int64(1), ibm.Rejected)
	})

	t.Run("FlushClearsMarkets", func(t *testing.T) {
		aggregated := NewAggregatedBook()
		engine := NewMatchingEngine(aggregated)

		engine.Apply(protocol.NewOrder(1, "IBM", 10, 100, protocol.SideBuy, 1))
		engine.Apply(protocol.CancelOrder(7, 7))
		engine.Apply(protocol.Flush())

		assert.Empty(t, aggregated.Markets())
		assert.Equal(t, int64(1), aggregated.Flushes())
		_, ok := aggregated.Market("")
		assert.False(t, ok)
	})

	t.Run("IgnoresDuplicates", func(t *testing.T) {
		aggregated := NewAggregatedBook()

		accept := &BookLog{SequenceID: 1, Type: LogTypeAccept, MarketID: "IBM"}
		require.NoError(t, aggregated.Replay(accept))
		require.NoError(t, aggregated.Replay(accept))

		ibm, ok := aggregated.Market("IBM")
		require.True(t, ok)
		assert.Equal(t, int64(1), ibm.Accepted)
	})

	t.Run("DetectsGap", func(t *testing.T) {
		aggregated := NewAggregatedBook()

		require.NoError(t, aggregated.Replay(&BookLog{SequenceID: 1, Type: LogTypeAccept, MarketID: "IBM"}))

		err := aggregated.Replay(&BookLog{SequenceID: 3, Type: LogTypeReject, MarketID: "IBM"})
		assert.ErrorIs(t, err, ErrSequenceGap)

		// the event is applied anyway
		ibm, _ := aggregated.Market("IBM")
		assert.Equal(t, int64(1), ibm.Rejected)
		assert.Equal(t, uint64(3), aggregated.SequenceID())
	})
}
