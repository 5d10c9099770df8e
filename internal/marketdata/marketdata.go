// Package marketdata layers short-lived caches over the exchange's
// public market endpoints. Stale data is a throughput tradeoff, not a
// correctness problem: the server validates every order independently.
package marketdata

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mbit/botsim/internal/exchange"
	"github.com/mbit/botsim/internal/types"
)

// Fetcher is the slice of the exchange client this package reads from.
type Fetcher interface {
	Stocks(ctx context.Context) ([]exchange.Stock, error)
	Orderbook(ctx context.Context, symbol string) (*exchange.Orderbook, error)
}

type bookEntry struct {
	quote     types.Quote
	fetchedAt time.Time
}

// Service serves market snapshots and top-of-book quotes. Cached values
// are immutable after publish and replaced wholesale. The simulation
// loop is single-threaded, so no locking is done here.
type Service struct {
	fetcher      Fetcher
	snapshotTTL  time.Duration
	orderbookTTL time.Duration
	now          func() time.Time

	snapshots   []types.MarketSnapshot
	snapshotsAt time.Time
	books       map[string]bookEntry
}

// New creates a Service with the given cache windows.
func New(fetcher Fetcher, snapshotTTL, orderbookTTL time.Duration) *Service {
	return &Service{
		fetcher:      fetcher,
		snapshotTTL:  snapshotTTL,
		orderbookTTL: orderbookTTL,
		now:          time.Now,
		books:        make(map[string]bookEntry),
	}
}

// ActiveStocks returns snapshots of all active stocks, refreshing the
// cached list once its window has passed. On a failed refresh the
// previous list is served so the round can proceed.
func (s *Service) ActiveStocks(ctx context.Context) ([]types.MarketSnapshot, error) {
	now := s.now()
	if s.snapshots != nil && now.Sub(s.snapshotsAt) < s.snapshotTTL {
		return s.snapshots, nil
	}

	stocks, err := s.fetcher.Stocks(ctx)
	if err != nil {
		if s.snapshots != nil {
			log.Warn().Err(err).Msg("Stock refresh failed, serving stale snapshots")
			return s.snapshots, nil
		}
		return nil, err
	}

	snapshots := make([]types.MarketSnapshot, 0, len(stocks))
	for _, st := range stocks {
		if !st.IsActive {
			continue
		}
		snapshots = append(snapshots, types.MarketSnapshot{
			ID:            st.ID,
			Symbol:        st.Symbol,
			LastPrice:     st.LastPrice.InexactFloat64(),
			ChangePercent: st.ChangePercent.InexactFloat64(),
			UpperLimit:    st.ARA.InexactFloat64(),
			LowerLimit:    st.ARB.InexactFloat64(),
		})
	}
	s.snapshots = snapshots
	s.snapshotsAt = now
	return s.snapshots, nil
}

// Quote returns the best bid and ask for a symbol, caching per-symbol
// books for a short window. Empty or zero sides fall back to lastPrice.
func (s *Service) Quote(ctx context.Context, symbol string, lastPrice float64) (types.Quote, error) {
	now := s.now()
	if entry, ok := s.books[symbol]; ok && now.Sub(entry.fetchedAt) < s.orderbookTTL {
		return entry.quote, nil
	}

	book, err := s.fetcher.Orderbook(ctx, symbol)
	if err != nil {
		return types.Quote{}, err
	}

	quote := types.Quote{BestBid: lastPrice, BestAsk: lastPrice}
	if len(book.Bids) > 0 {
		if bid := book.Bids[0].Price.InexactFloat64(); bid > 0 {
			quote.BestBid = bid
		}
	}
	if len(book.Asks) > 0 {
		if ask := book.Asks[0].Price.InexactFloat64(); ask > 0 {
			quote.BestAsk = ask
		}
	}
	s.books[symbol] = bookEntry{quote: quote, fetchedAt: now}
	return quote, nil
}
