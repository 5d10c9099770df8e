// Package policy holds the per-archetype decision rules. Each policy is
// a pure function of (cached holding, snapshot, quote, RNG) returning
// zero or one order intent; submission and state belong to the agent.
//
// Branch probabilities are kept as named cumulative thresholds so the
// distributions stay auditable: one uniform draw decides each point.
package policy

import (
	"math/rand"

	"github.com/mbit/botsim/internal/tick"
	"github.com/mbit/botsim/internal/types"
)

const (
	// eventFollowChance is how often an agent obeys an active
	// sentiment's primary action instead of its fallback.
	eventFollowChance = 0.8

	// Bandar decision bands: [0,0.4) support wall, [0.4,0.6) lift the
	// offer, [0.6,0.7) dump, rest observe.
	bandarSupportCum = 0.4
	bandarLiftCum    = 0.6
	bandarDumpCum    = 0.7

	// Retail mood thresholds on change% and herd chance once triggered.
	retailFOMOAbove  = 2.0
	retailPanicBelow = -2.0
	retailHerdChance = 0.8

	// Retail noise bands: [0,0.3) buy, [0.3,0.6) sell, rest idle.
	retailBuyCum  = 0.3
	retailSellCum = 0.6
)

// Quantity ranges in lots per archetype and situation.
const (
	eventRetailLotsMin = 10
	eventRetailLotsMax = 50
	eventBandarLotsMin = 500
	eventBandarLotsMax = 2000

	bandarWallLotsMin = 1000
	bandarWallLotsMax = 5000
	bandarTakeLotsMin = 100
	bandarTakeLotsMax = 500

	retailLotsMin = 1
	retailLotsMax = 20
)

// Decide dispatches to the event override when the symbol carries an
// active sentiment, otherwise to the archetype's own policy.
func Decide(rng *rand.Rand, role types.Archetype, held int64, snap types.MarketSnapshot, quote types.Quote, sentiment types.Sentiment, active bool) *types.OrderIntent {
	if active {
		return EventOverride(rng, role, held, snap, quote, sentiment)
	}
	if role == types.Bandar {
		return Bandar(rng, held, snap, quote)
	}
	return Retail(rng, held, snap, quote)
}

// EventOverride reacts to an active sentiment regardless of archetype;
// only the lot size differs between retail and bandar.
func EventOverride(rng *rand.Rand, role types.Archetype, held int64, snap types.MarketSnapshot, quote types.Quote, sentiment types.Sentiment) *types.OrderIntent {
	qty := lots(rng, eventRetailLotsMin, eventRetailLotsMax)
	if role == types.Bandar {
		qty = lots(rng, eventBandarLotsMin, eventBandarLotsMax)
	}

	switch sentiment {
	case types.SentimentARA:
		// Chase the upper limit, locking the price there.
		if rng.Float64() < eventFollowChance {
			return buy(snap.Symbol, snap.UpperLimit, qty)
		}
		return buy(snap.Symbol, quote.BestAsk, qty)

	case types.SentimentBullish:
		if rng.Float64() < eventFollowChance {
			return buy(snap.Symbol, quote.BestAsk, qty)
		}
		if held > 0 {
			return sell(snap.Symbol, quote.BestAsk+tick.Size(quote.BestAsk), qty)
		}
		return nil

	case types.SentimentBearish:
		if held > 0 && rng.Float64() < eventFollowChance {
			return sell(snap.Symbol, quote.BestBid, qty)
		}
		t := tick.Size(quote.BestBid)
		return buy(snap.Symbol, clampToTick(quote.BestBid-t, t), qty)

	case types.SentimentARB:
		if held == 0 {
			return nil
		}
		if rng.Float64() < eventFollowChance {
			return sell(snap.Symbol, snap.LowerLimit, qty)
		}
		return sell(snap.Symbol, quote.BestBid, qty)
	}
	return nil
}

// Bandar moves the market: thick support walls below the bid, lifting
// the offer to push up, or dumping into the bid to push down.
func Bandar(rng *rand.Rand, held int64, snap types.MarketSnapshot, quote types.Quote) *types.OrderIntent {
	d := rng.Float64()
	switch {
	case d < bandarSupportCum:
		t := tick.Size(quote.BestBid)
		price := clampToTick(quote.BestBid-float64(lots(rng, 1, 3))*t, t)
		return buy(snap.Symbol, price, lots(rng, bandarWallLotsMin, bandarWallLotsMax))

	case d < bandarLiftCum:
		return buy(snap.Symbol, quote.BestAsk, lots(rng, bandarTakeLotsMin, bandarTakeLotsMax))

	case d < bandarDumpCum:
		if held > 0 {
			return sell(snap.Symbol, quote.BestBid, lots(rng, bandarTakeLotsMin, bandarTakeLotsMax))
		}
	}
	return nil
}

// Retail follows the trend when change% runs hot, otherwise trades noise
// in small lots.
func Retail(rng *rand.Rand, held int64, snap types.MarketSnapshot, quote types.Quote) *types.OrderIntent {
	qty := lots(rng, retailLotsMin, retailLotsMax)

	if snap.ChangePercent > retailFOMOAbove && rng.Float64() < retailHerdChance {
		return buy(snap.Symbol, quote.BestAsk, qty)
	}
	if snap.ChangePercent < retailPanicBelow && held > 0 && rng.Float64() < retailHerdChance {
		return sell(snap.Symbol, quote.BestBid, qty)
	}

	d := rng.Float64()
	switch {
	case d < retailBuyCum:
		if rng.Float64() < 0.5 {
			return buy(snap.Symbol, quote.BestAsk, qty)
		}
		t := tick.Size(quote.BestBid)
		price := clampToTick(quote.BestBid-float64(rng.Int63n(3))*t, t)
		return buy(snap.Symbol, price, qty)

	case d < retailSellCum:
		if held == 0 {
			return nil
		}
		if rng.Float64() < 0.5 {
			return sell(snap.Symbol, quote.BestBid, qty)
		}
		t := tick.Size(quote.BestAsk)
		return sell(snap.Symbol, quote.BestAsk+float64(rng.Int63n(3))*t, qty)
	}
	return nil
}

func buy(symbol string, price float64, qty int64) *types.OrderIntent {
	return &types.OrderIntent{Symbol: symbol, Side: types.Buy, Price: price, Quantity: qty}
}

func sell(symbol string, price float64, qty int64) *types.OrderIntent {
	return &types.OrderIntent{Symbol: symbol, Side: types.Sell, Price: price, Quantity: qty}
}

func lots(rng *rand.Rand, min, max int64) int64 {
	return min + rng.Int63n(max-min+1)
}

// clampToTick keeps generated limit prices above zero: anything at or
// below zero becomes one tick of the reference price.
func clampToTick(price, t float64) float64 {
	if price <= 0 {
		return t
	}
	return price
}
