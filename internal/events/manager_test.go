package events

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbit/botsim/internal/types"
)

type recordingNotifier struct {
	started []string
	ended   []string
}

func (n *recordingNotifier) EventStarted(symbol string, kind types.Sentiment, duration time.Duration) {
	n.started = append(n.started, symbol)
}

func (n *recordingNotifier) EventEnded(symbol string, kind types.Sentiment) {
	n.ended = append(n.ended, symbol)
}

// testManager returns a manager on a movable fake clock.
func testManager(seed int64, notifier Notifier) (*Manager, *time.Time) {
	m := NewManager(rand.New(rand.NewSource(seed)), notifier)
	clock := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return clock }
	return m, &clock
}

// advanceUntilEvent rolls the clock forward one check interval at a
// time until the symbol carries an event.
func advanceUntilEvent(t *testing.T, m *Manager, clock *time.Time, symbol string) types.Sentiment {
	t.Helper()
	for i := 0; i < 1000; i++ {
		*clock = clock.Add(CheckInterval + time.Second)
		m.Update([]string{symbol})
		if kind, ok := m.Sentiment(symbol); ok {
			return kind
		}
	}
	t.Fatal("no event triggered in 1000 check cycles")
	return ""
}

func TestAtMostOneEventPerSymbol(t *testing.T) {
	m, clock := testManager(1, nil)
	advanceUntilEvent(t, m, clock, "AAAA")

	// Hammer updates while the event is live; it must stay singular
	// and keep its kind.
	kind, _ := m.Sentiment("AAAA")
	for i := 0; i < 50; i++ {
		*clock = clock.Add(100 * time.Millisecond)
		m.Update([]string{"AAAA"})
		got, ok := m.Sentiment("AAAA")
		require.True(t, ok, "event vanished before expiry")
		assert.Equal(t, kind, got, "event kind changed before expiry")
		assert.Equal(t, 1, m.ActiveCount())
	}
}

func TestEventExpiresLazily(t *testing.T) {
	notifier := &recordingNotifier{}
	m, clock := testManager(2, notifier)
	advanceUntilEvent(t, m, clock, "AAAA")
	require.Len(t, notifier.started, 1)

	// Present strictly before expiry, even at the maximum duration.
	*clock = clock.Add(DurationMax - time.Second)
	m.Update([]string{"AAAA"})
	_, ok := m.Sentiment("AAAA")
	if !ok {
		// Event had a shorter duration and already ended; fine, but
		// then the end notification must have fired.
		require.Len(t, notifier.ended, 1)
		return
	}

	// Strictly after the maximum expiry it must be gone.
	*clock = clock.Add(2 * time.Second)
	m.Update([]string{"AAAA"})
	_, ok = m.Sentiment("AAAA")
	assert.False(t, ok)
	assert.Len(t, notifier.ended, 1)
}

func TestRollsGatedByCheckInterval(t *testing.T) {
	m, clock := testManager(3, nil)

	// Consume the initial roll window without offering any symbols.
	m.Update(nil)

	// Updates inside the interval never start events, whatever the RNG says.
	for i := 0; i < 20; i++ {
		*clock = clock.Add(400 * time.Millisecond)
		m.Update([]string{"AAAA"})
		assert.Equal(t, 0, m.ActiveCount())
	}
}

func TestPerKindTriggerRate(t *testing.T) {
	m, clock := testManager(42, nil)
	const cycles = 20000

	counts := map[types.Sentiment]int{}
	for i := 0; i < cycles; i++ {
		*clock = clock.Add(CheckInterval + time.Second)
		m.Update([]string{"AAAA"})
		if kind, ok := m.Sentiment("AAAA"); ok {
			counts[kind]++
			// Force expiry so every cycle is an independent roll.
			*clock = clock.Add(DurationMax + time.Second)
			m.Update(nil)
		}
	}

	for _, kind := range []types.Sentiment{
		types.SentimentARA, types.SentimentBullish, types.SentimentBearish, types.SentimentARB,
	} {
		rate := float64(counts[kind]) / cycles
		assert.InDelta(t, 0.025, rate, 0.005, "kind %s rate %v", kind, rate)
	}
}
