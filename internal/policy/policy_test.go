package policy

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbit/botsim/internal/types"
)

var testSnap = types.MarketSnapshot{
	ID:         1,
	Symbol:     "BBBB",
	LastPrice:  500,
	UpperLimit: 625,
	LowerLimit: 375,
}

var testQuote = types.Quote{BestBid: 500, BestAsk: 505}

func TestBullishOverrideRetailBuysAtAskMostly(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	buysAtAsk := 0
	for i := 0; i < 1000; i++ {
		intent := EventOverride(rng, types.Retail, 0, testSnap, testQuote, types.SentimentBullish)
		if intent != nil && intent.Side == types.Buy && intent.Price == 505 {
			buysAtAsk++
			assert.GreaterOrEqual(t, intent.Quantity, int64(eventRetailLotsMin))
			assert.LessOrEqual(t, intent.Quantity, int64(eventRetailLotsMax))
		}
	}
	// 80% branch probability, statistical lower bound.
	assert.GreaterOrEqual(t, buysAtAsk, 700, "retail must follow bullish news at the ask")
}

func TestARAOverrideLocksUpperLimit(t *testing.T) {
	rng := rand.New(rand.NewSource(8))

	atLimit, atAsk := 0, 0
	for i := 0; i < 1000; i++ {
		intent := EventOverride(rng, types.Bandar, 0, testSnap, testQuote, types.SentimentARA)
		require.NotNil(t, intent, "ARA always produces a buy")
		require.Equal(t, types.Buy, intent.Side)
		assert.GreaterOrEqual(t, intent.Quantity, int64(eventBandarLotsMin))
		assert.LessOrEqual(t, intent.Quantity, int64(eventBandarLotsMax))
		switch intent.Price {
		case testSnap.UpperLimit:
			atLimit++
		case testQuote.BestAsk:
			atAsk++
		}
	}
	assert.Equal(t, 1000, atLimit+atAsk)
	assert.Greater(t, atLimit, atAsk, "the limit-locking branch dominates")
}

func TestARBOverrideNeedsHolding(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 100; i++ {
		assert.Nil(t, EventOverride(rng, types.Retail, 0, testSnap, testQuote, types.SentimentARB))
	}

	sawLimit := false
	for i := 0; i < 100; i++ {
		intent := EventOverride(rng, types.Retail, 100, testSnap, testQuote, types.SentimentARB)
		require.NotNil(t, intent)
		require.Equal(t, types.Sell, intent.Side)
		if intent.Price == testSnap.LowerLimit {
			sawLimit = true
		} else {
			assert.Equal(t, testQuote.BestBid, intent.Price)
		}
	}
	assert.True(t, sawLimit)
}

func TestBearishOverrideWithoutHoldingBidsBelow(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	for i := 0; i < 100; i++ {
		intent := EventOverride(rng, types.Retail, 0, testSnap, testQuote, types.SentimentBearish)
		require.NotNil(t, intent)
		assert.Equal(t, types.Buy, intent.Side)
		assert.Equal(t, 495.0, intent.Price, "one tick below the bid")
	}
}

func TestBandarBranchDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	const trials = 10000

	var wall, lift, dump, idle int
	for i := 0; i < trials; i++ {
		intent := Bandar(rng, 100, testSnap, testQuote)
		switch {
		case intent == nil:
			idle++
		case intent.Side == types.Buy && intent.Price < testQuote.BestBid:
			assert.GreaterOrEqual(t, intent.Quantity, int64(bandarWallLotsMin))
			assert.LessOrEqual(t, intent.Quantity, int64(bandarWallLotsMax))
			wall++
		case intent.Side == types.Buy:
			assert.Equal(t, testQuote.BestAsk, intent.Price)
			lift++
		default:
			assert.Equal(t, testQuote.BestBid, intent.Price)
			dump++
		}
	}

	assert.InDelta(t, 0.40, float64(wall)/trials, 0.03)
	assert.InDelta(t, 0.20, float64(lift)/trials, 0.03)
	assert.InDelta(t, 0.10, float64(dump)/trials, 0.03)
	assert.InDelta(t, 0.30, float64(idle)/trials, 0.03)
}

func TestBandarNeverDumpsWithoutShares(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	for i := 0; i < 2000; i++ {
		intent := Bandar(rng, 0, testSnap, testQuote)
		if intent != nil {
			assert.Equal(t, types.Buy, intent.Side)
		}
	}
}

func TestRetailFOMOBuysAtAsk(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	snap := testSnap
	snap.ChangePercent = 3.5

	buysAtAsk := 0
	for i := 0; i < 1000; i++ {
		intent := Retail(rng, 0, snap, testQuote)
		if intent != nil && intent.Side == types.Buy && intent.Price == testQuote.BestAsk {
			buysAtAsk++
			assert.LessOrEqual(t, intent.Quantity, int64(retailLotsMax))
		}
	}
	assert.GreaterOrEqual(t, buysAtAsk, 700)
}

func TestRetailPanicSellsOnlyWithHolding(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	snap := testSnap
	snap.ChangePercent = -4.0

	for i := 0; i < 2000; i++ {
		intent := Retail(rng, 0, snap, testQuote)
		if intent != nil {
			assert.Equal(t, types.Buy, intent.Side, "no shares, no panic sell")
		}
	}

	sold := 0
	for i := 0; i < 1000; i++ {
		intent := Retail(rng, 100, snap, testQuote)
		if intent != nil && intent.Side == types.Sell && intent.Price == testQuote.BestBid {
			sold++
		}
	}
	assert.GreaterOrEqual(t, sold, 700)
}

func TestRetailNoisePricesStayLegal(t *testing.T) {
	rng := rand.New(rand.NewSource(15))
	// A penny-stock quote stresses the low price clamp.
	snap := types.MarketSnapshot{Symbol: "CCCC", LastPrice: 2}
	quote := types.Quote{BestBid: 1, BestAsk: 2}

	for i := 0; i < 5000; i++ {
		intent := Retail(rng, 50, snap, quote)
		if intent == nil {
			continue
		}
		assert.Greater(t, intent.Price, 0.0, "limit prices must stay positive")
	}
}

func TestDecideDispatch(t *testing.T) {
	rng := rand.New(rand.NewSource(16))

	// Active sentiment overrides the archetype policy: ARA forces buys
	// even for retail without holdings.
	intent := Decide(rng, types.Retail, 0, testSnap, testQuote, types.SentimentARA, true)
	require.NotNil(t, intent)
	assert.Equal(t, types.Buy, intent.Side)

	// Without an event the draw may land anywhere; just exercise both
	// archetype paths.
	for i := 0; i < 100; i++ {
		Decide(rng, types.Bandar, 10, testSnap, testQuote, "", false)
		Decide(rng, types.Retail, 10, testSnap, testQuote, "", false)
	}
}
