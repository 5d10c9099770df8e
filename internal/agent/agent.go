// Package agent holds per-bot session and portfolio state. The local
// cash/holdings cache is a best-effort belief about server state, never
// a source of truth: it is trusted between orders to gate decisions and
// replaced wholesale on resync.
package agent

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/mbit/botsim/internal/exchange"
	"github.com/mbit/botsim/internal/types"
)

// ResyncEvery is the trade cadence at which the full portfolio is
// re-fetched to correct optimistic-update drift (partial fills,
// slippage, fees, external funding).
const ResyncEvery = 20

// Transport is the slice of the exchange client an agent needs.
type Transport interface {
	Login(ctx context.Context, username, password string) (*exchange.LoginResponse, error)
	Portfolio(ctx context.Context, token string) (*exchange.Portfolio, error)
	PlaceOrder(ctx context.Context, token string, req exchange.OrderRequest) error
}

// Agent is one autonomous trading account. Owned by a single goroutine;
// no internal locking.
type Agent struct {
	creds  types.Credential
	client Transport
	dryRun bool

	token    string
	cash     decimal.Decimal
	holdings map[string]types.Holding
	trades   int
}

// New creates an agent for a roster credential. dryRun agents decide
// like live ones but never submit or mutate state.
func New(creds types.Credential, client Transport, dryRun bool) *Agent {
	return &Agent{
		creds:    creds,
		client:   client,
		dryRun:   dryRun,
		cash:     decimal.Zero,
		holdings: make(map[string]types.Holding),
	}
}

// Username returns the agent's account name.
func (a *Agent) Username() string { return a.creds.Username }

// Archetype returns the agent's behaviour class.
func (a *Agent) Archetype() types.Archetype { return a.creds.Role }

// Cash returns the cached cash balance.
func (a *Agent) Cash() decimal.Decimal { return a.cash }

// HoldingQty returns the cached quantity owned for a symbol, zero if none.
func (a *Agent) HoldingQty(symbol string) int64 {
	return a.holdings[symbol].Quantity
}

// Authenticate logs in and stores the session token for the agent's
// lifetime. Failure excludes the agent from the roster, nothing more.
func (a *Agent) Authenticate(ctx context.Context) error {
	res, err := a.client.Login(ctx, a.creds.Username, a.creds.Password)
	if err != nil {
		return err
	}
	a.token = res.Token
	return nil
}

// Resync replaces the local cash and holdings cache with the server's
// authoritative portfolio.
func (a *Agent) Resync(ctx context.Context) error {
	pf, err := a.client.Portfolio(ctx, a.token)
	if err != nil {
		return err
	}
	a.cash = pf.BalanceRDN
	holdings := make(map[string]types.Holding, len(pf.Stocks))
	for _, st := range pf.Stocks {
		if st.QuantityOwned <= 0 {
			continue
		}
		holdings[st.Symbol] = types.Holding{
			Quantity: st.QuantityOwned,
			AvgPrice: st.AvgBuyPrice,
		}
	}
	a.holdings = holdings
	return nil
}

// SubmitOrder places one order if the cached state allows it. The
// return value only reports whether the exchange accepted the order;
// rejections and transport failures are logged and swallowed so the
// simulation keeps running.
//
// A failed precondition is a silent no-op with no network call: the
// server would reject the order anyway.
func (a *Agent) SubmitOrder(ctx context.Context, intent types.OrderIntent) bool {
	notional := notionalOf(intent.Price, intent.Quantity)

	switch intent.Side {
	case types.Buy:
		if notional.GreaterThan(a.cash) {
			return false
		}
	case types.Sell:
		if a.holdings[intent.Symbol].Quantity < intent.Quantity {
			return false
		}
	default:
		return false
	}

	if a.dryRun {
		log.Info().
			Str("bot", a.creds.Username).
			Str("side", string(intent.Side)).
			Str("symbol", intent.Symbol).
			Float64("price", intent.Price).
			Int64("quantity", intent.Quantity).
			Msg("Dry run, order not submitted")
		return false
	}

	req := exchange.OrderRequest{
		Symbol:   intent.Symbol,
		Type:     string(intent.Side),
		Price:    int64(math.Round(intent.Price)),
		Quantity: intent.Quantity,
	}
	if err := a.client.PlaceOrder(ctx, a.token, req); err != nil {
		if exchange.IsRejection(err) {
			log.Debug().Err(err).Str("bot", a.creds.Username).Msg("Order rejected")
		} else {
			log.Warn().Err(err).Str("bot", a.creds.Username).Msg("Order submission failed")
		}
		return false
	}

	a.applyFill(intent, notional)

	log.Info().
		Str("bot", a.creds.Username).
		Str("side", string(intent.Side)).
		Str("symbol", intent.Symbol).
		Float64("price", intent.Price).
		Int64("quantity", intent.Quantity).
		Msg("Order accepted")

	a.trades++
	if a.trades%ResyncEvery == 0 {
		if err := a.Resync(ctx); err != nil {
			log.Warn().Err(err).Str("bot", a.creds.Username).Msg("Periodic resync failed")
		}
	}
	return true
}

// applyFill optimistically mutates the cache as if the order filled in
// full at the limit price. The average cost on BUY deliberately ignores
// the prior basis; resync corrects it.
func (a *Agent) applyFill(intent types.OrderIntent, notional decimal.Decimal) {
	switch intent.Side {
	case types.Buy:
		a.cash = a.cash.Sub(notional)
		h := a.holdings[intent.Symbol]
		h.Quantity += intent.Quantity
		h.AvgPrice = decimal.NewFromFloat(intent.Price)
		a.holdings[intent.Symbol] = h
	case types.Sell:
		a.cash = a.cash.Add(notional)
		h := a.holdings[intent.Symbol]
		h.Quantity -= intent.Quantity
		if h.Quantity <= 0 {
			delete(a.holdings, intent.Symbol)
		} else {
			a.holdings[intent.Symbol] = h
		}
	}
}

func notionalOf(price float64, quantity int64) decimal.Decimal {
	return decimal.NewFromFloat(price).
		Mul(decimal.NewFromInt(quantity)).
		Mul(decimal.NewFromInt(types.LotMultiplier))
}
