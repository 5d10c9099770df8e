// Package sim drives the continuous trading simulation: one logical
// thread polls market data, advances the news engine, and walks the
// agent roster in a fresh random order each round.
package sim

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mbit/botsim/internal/agent"
	"github.com/mbit/botsim/internal/eventbus"
	"github.com/mbit/botsim/internal/events"
	"github.com/mbit/botsim/internal/marketdata"
	"github.com/mbit/botsim/internal/policy"
	"github.com/mbit/botsim/internal/storage"
	"github.com/mbit/botsim/internal/types"
)

const (
	// noStocksBackoff is how long to wait when the exchange reports no
	// active stocks before polling again.
	noStocksBackoff = 5 * time.Second

	// Per-agent pacing: a uniform draw from [delayMin,delayMax] is
	// divided by the roster size, then clamped to [pauseFloor,pauseCeil]
	// so the request rate stays bounded whatever the pool size.
	delayMin   = 500 * time.Millisecond
	delayMax   = 2 * time.Second
	pauseFloor = 10 * time.Millisecond
	pauseCeil  = 100 * time.Millisecond
)

// Simulator owns the agent roster, the event engine, and the market
// data caches. Agents own their internal state exclusively.
type Simulator struct {
	market *marketdata.Service
	agents []*agent.Agent
	rng    *rand.Rand

	events *events.Manager

	bus   *eventbus.RedisEventBus  // optional, nil when disabled
	store *storage.PostgresStorage // optional, nil when disabled
}

// New assembles a simulator. bus and store may be nil.
func New(market *marketdata.Service, agents []*agent.Agent, rng *rand.Rand, bus *eventbus.RedisEventBus, store *storage.PostgresStorage) *Simulator {
	s := &Simulator{
		market: market,
		agents: agents,
		rng:    rng,
		bus:    bus,
		store:  store,
	}
	s.events = events.NewManager(rng, s)
	return s
}

// Run loops until the context is cancelled. Cancellation is honoured
// between agent actions, never mid-action.
func (s *Simulator) Run(ctx context.Context) error {
	log.Info().Int("agents", len(s.agents)).Msg("Starting trading simulation")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		stocks, err := s.market.ActiveStocks(ctx)
		if err != nil || len(stocks) == 0 {
			if err != nil {
				log.Warn().Err(err).Msg("No market data this round")
			} else {
				log.Warn().Msg("No active stocks, waiting")
			}
			if !sleepCtx(ctx, noStocksBackoff) {
				return ctx.Err()
			}
			continue
		}

		symbols := make([]string, len(stocks))
		for i, st := range stocks {
			symbols[i] = st.Symbol
		}
		s.events.Update(symbols)

		// Fresh order each round: fairness across agents over time.
		s.rng.Shuffle(len(s.agents), func(i, j int) {
			s.agents[i], s.agents[j] = s.agents[j], s.agents[i]
		})

		for _, a := range s.agents {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.step(ctx, a, stocks)
			if !sleepCtx(ctx, s.pause()) {
				return ctx.Err()
			}
		}
	}
}

// step runs one agent's decision against a randomly chosen symbol.
// Every failure mode here means "skip this agent this round".
func (s *Simulator) step(ctx context.Context, a *agent.Agent, stocks []types.MarketSnapshot) {
	snap := stocks[s.rng.Intn(len(stocks))]

	quote, err := s.market.Quote(ctx, snap.Symbol, snap.LastPrice)
	if err != nil {
		log.Warn().Err(err).Str("symbol", snap.Symbol).Msg("No orderbook this round")
		return
	}

	sentiment, active := s.events.Sentiment(snap.Symbol)
	intent := policy.Decide(s.rng, a.Archetype(), a.HoldingQty(snap.Symbol), snap, quote, sentiment, active)
	if intent == nil {
		return
	}

	if a.SubmitOrder(ctx, *intent) {
		s.recordOrder(ctx, a, *intent, sentiment)
	}
}

func (s *Simulator) pause() time.Duration {
	spread := delayMin + time.Duration(s.rng.Int63n(int64(delayMax-delayMin)+1))
	d := spread / time.Duration(len(s.agents))
	if d < pauseFloor {
		return pauseFloor
	}
	if d > pauseCeil {
		return pauseCeil
	}
	return d
}

// EventStarted implements events.Notifier.
func (s *Simulator) EventStarted(symbol string, kind types.Sentiment, duration time.Duration) {
	log.Info().
		Str("symbol", symbol).
		Str("sentiment", string(kind)).
		Dur("duration", duration).
		Msg("Breaking news")
	s.publish(types.BusEvent{
		ID:        uuid.New().String(),
		Type:      "news_started",
		Symbol:    symbol,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"sentiment":        string(kind),
			"duration_seconds": duration.Seconds(),
		},
	})
}

// EventEnded implements events.Notifier.
func (s *Simulator) EventEnded(symbol string, kind types.Sentiment) {
	log.Info().
		Str("symbol", symbol).
		Str("sentiment", string(kind)).
		Msg("News ended")
	s.publish(types.BusEvent{
		ID:        uuid.New().String(),
		Type:      "news_ended",
		Symbol:    symbol,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"sentiment": string(kind)},
	})
}

func (s *Simulator) recordOrder(ctx context.Context, a *agent.Agent, intent types.OrderIntent, sentiment types.Sentiment) {
	now := time.Now()
	s.publish(types.BusEvent{
		ID:        uuid.New().String(),
		Type:      "order_placed",
		Symbol:    intent.Symbol,
		Timestamp: now,
		Data: map[string]interface{}{
			"bot":      a.Username(),
			"role":     string(a.Archetype()),
			"side":     string(intent.Side),
			"price":    intent.Price,
			"quantity": intent.Quantity,
		},
	})

	if s.store == nil {
		return
	}
	rec := storage.OrderRecord{
		Username:  a.Username(),
		Role:      string(a.Archetype()),
		Symbol:    intent.Symbol,
		Side:      string(intent.Side),
		Price:     int64(intent.Price),
		Quantity:  intent.Quantity,
		Sentiment: string(sentiment),
		PlacedAt:  now,
	}
	if err := s.store.LogOrder(ctx, rec); err != nil {
		log.Warn().Err(err).Msg("Order audit insert failed")
	}
}

func (s *Simulator) publish(event types.BusEvent) {
	if s.bus == nil {
		return
	}
	// Publishing is fire and forget; a slow or dead bus must not stall
	// the trading loop.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.bus.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("type", event.Type).Msg("Telemetry publish failed")
	}
}

// sleepCtx sleeps for d unless the context ends first; it reports
// whether the full sleep completed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
