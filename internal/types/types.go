package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is an order direction as the exchange expects it on the wire.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Archetype classifies a bot's trading behaviour.
type Archetype string

const (
	Retail Archetype = "RETAIL"
	Bandar Archetype = "BANDAR"
)

// Sentiment is the kind of an active market news event.
type Sentiment string

const (
	SentimentARA     Sentiment = "ARA"     // force buying toward the upper limit
	SentimentBullish Sentiment = "BULLISH" // trend up
	SentimentBearish Sentiment = "BEARISH" // trend down
	SentimentARB     Sentiment = "ARB"     // force selling toward the lower limit
)

// LotMultiplier is the number of shares per lot. Order notional is
// price * quantity * LotMultiplier.
const LotMultiplier = 100

// Credential is one roster entry produced by provisioning and consumed
// at simulation start.
type Credential struct {
	Username string    `yaml:"username"`
	Password string    `yaml:"password"`
	Role     Archetype `yaml:"role"`
	ID       int       `yaml:"id"`
}

// MarketSnapshot is one stock's state from the stock list endpoint.
// Snapshots are immutable once fetched; the whole set is replaced on refresh.
type MarketSnapshot struct {
	ID            int
	Symbol        string
	LastPrice     float64
	ChangePercent float64
	UpperLimit    float64 // ARA, daily upper price limit
	LowerLimit    float64 // ARB, daily lower price limit
}

// Quote is the top of book for one symbol. Empty or zero sides fall back
// to the last traded price.
type Quote struct {
	BestBid float64
	BestAsk float64
}

// Holding is an agent's cached view of one position. AvgPrice is
// approximate between resyncs.
type Holding struct {
	Quantity int64
	AvgPrice decimal.Decimal
}

// OrderIntent is the single output of a decision policy.
type OrderIntent struct {
	Symbol   string
	Side     Side
	Price    float64
	Quantity int64
}

// BusEvent is a telemetry record published to the event stream.
type BusEvent struct {
	ID        string
	Type      string // order_placed, news_started, news_ended
	Symbol    string
	Timestamp time.Time
	Data      map[string]interface{}
}
