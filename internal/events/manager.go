// Package events drives per-symbol market news sentiment.
package events

import (
	"math/rand"
	"time"

	"github.com/mbit/botsim/internal/types"
)

const (
	// TriggerChance is the probability that a symbol with no active
	// event gets one on a roll. Combined with the four equal kind
	// weights below, each kind lands at 2.5% per check.
	TriggerChance = 0.10

	// CheckInterval gates how often rolls happen, decoupling event
	// arrival from agent-action cadence.
	CheckInterval = 10 * time.Second

	DurationMin = 30 * time.Second
	DurationMax = 60 * time.Second
)

// kindWeights is the conditional distribution drawn once TriggerChance
// hits. Kept as an explicit cumulative table so the probabilities stay
// auditable.
var kindWeights = []struct {
	kind   types.Sentiment
	weight float64
}{
	{types.SentimentARA, 0.25},
	{types.SentimentBullish, 0.25},
	{types.SentimentBearish, 0.25},
	{types.SentimentARB, 0.25},
}

// Notifier receives event lifecycle notifications.
type Notifier interface {
	EventStarted(symbol string, kind types.Sentiment, duration time.Duration)
	EventEnded(symbol string, kind types.Sentiment)
}

type activeEvent struct {
	kind   types.Sentiment
	expiry time.Time
}

// Manager is the per-symbol sentiment state machine. At most one event
// is active per symbol; expiry is detected lazily on Update, never by a
// separate timer. Not safe for concurrent use; the simulation loop is
// single-threaded.
type Manager struct {
	rng      *rand.Rand
	now      func() time.Time
	notifier Notifier

	active   map[string]activeEvent
	lastRoll time.Time
}

// NewManager creates a Manager. notifier may be nil.
func NewManager(rng *rand.Rand, notifier Notifier) *Manager {
	return &Manager{
		rng:      rng,
		now:      time.Now,
		notifier: notifier,
		active:   make(map[string]activeEvent),
	}
}

// Update expires finished events and, at most once per CheckInterval,
// rolls for new ones across the symbols that have none.
func (m *Manager) Update(activeSymbols []string) {
	now := m.now()

	for symbol, ev := range m.active {
		if now.After(ev.expiry) {
			delete(m.active, symbol)
			if m.notifier != nil {
				m.notifier.EventEnded(symbol, ev.kind)
			}
		}
	}

	if now.Sub(m.lastRoll) < CheckInterval {
		return
	}
	m.lastRoll = now

	for _, symbol := range activeSymbols {
		if _, busy := m.active[symbol]; busy {
			continue
		}
		if m.rng.Float64() >= TriggerChance {
			continue
		}
		kind := m.pickKind()
		duration := DurationMin + time.Duration(m.rng.Int63n(int64(DurationMax-DurationMin)+1))
		m.active[symbol] = activeEvent{kind: kind, expiry: now.Add(duration)}
		if m.notifier != nil {
			m.notifier.EventStarted(symbol, kind, duration)
		}
	}
}

// Sentiment returns the active event kind for a symbol, if any.
func (m *Manager) Sentiment(symbol string) (types.Sentiment, bool) {
	ev, ok := m.active[symbol]
	return ev.kind, ok
}

// ActiveCount returns how many symbols currently carry an event.
func (m *Manager) ActiveCount() int {
	return len(m.active)
}

func (m *Manager) pickKind() types.Sentiment {
	r := m.rng.Float64()
	cumulative := 0.0
	for _, kw := range kindWeights {
		cumulative += kw.weight
		if r < cumulative {
			return kw.kind
		}
	}
	return types.SentimentBullish
}
