package core

import "encoding/json"

// Quote is a point-in-time observation for one ticker, built from an
// upstream snapshot. Produced fresh per request; never persisted beyond
// the cache TTL.
type Quote struct {
	Symbol                string   `json:"symbol"`
	Name                  string   `json:"name"`
	Last                  float64  `json:"last"`
	Change                float64  `json:"change"`
	ChangePercent         float64  `json:"changePercent"`
	ChangeFromOpen        float64  `json:"changeFromOpen"`
	ChangeFromOpenPercent float64  `json:"changeFromOpenPercent"`
	Open                  float64  `json:"open"`
	PreviousClose         float64  `json:"previousClose"`
	High                  float64  `json:"high"`
	Low                   float64  `json:"low"`
	Volume                float64  `json:"volume"`
	Change5Day            *float64 `json:"change5Day,omitempty"`
	Updated               int64    `json:"timestamp"`
}

// IsValid checks if the quote has a usable price.
func (q Quote) IsValid() bool {
	return q.Symbol != "" && q.Last > 0
}

// Bar is one trading day's OHLCV for a symbol.
type Bar struct {
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
	Time   int64   `json:"t"` // unix millis
}

// Sector maps a sector name to its fixed member symbols. Immutable
// configuration data.
type Sector struct {
	Name      string   `json:"name"`
	ShortName string   `json:"shortName"`
	Stocks    []string `json:"stocks"`
}

// PrimaryBreadth holds the headline breadth counts and ratios.
type PrimaryBreadth struct {
	Up4PlusToday      int      `json:"up4PlusToday"`
	Down4PlusToday    int      `json:"down4PlusToday"`
	Ratio5Day         *float64 `json:"ratio5Day"`
	Ratio10Day        *float64 `json:"ratio10Day"`
	Up25PlusQuarter   int      `json:"up25PlusQuarter"`
	Down25PlusQuarter int      `json:"down25PlusQuarter"`
}

// SecondaryBreadth holds the longer-window mover counts.
type SecondaryBreadth struct {
	Up25PlusMonth   int `json:"up25PlusMonth"`
	Down25PlusMonth int `json:"down25PlusMonth"`
	Up50PlusMonth   int `json:"up50PlusMonth"`
	Down50PlusMonth int `json:"down50PlusMonth"`
	Up13Plus34Days  int `json:"up13Plus34Days"`
	Down13Plus34Days int `json:"down13Plus34Days"`
}

// MarketGauge carries the SPY reference values shipped with a snapshot.
type MarketGauge struct {
	SpyValue         float64 `json:"spyValue"`
	SpyChange        float64 `json:"spyChange"`
	SpyChangePercent float64 `json:"spyChangePercent"`
}

// BreadthSnapshot is the computed output of one breadth aggregation.
type BreadthSnapshot struct {
	Date          string           `json:"date"`
	Timestamp     int64            `json:"timestamp"`
	UniverseCount int              `json:"universeCount"`
	Cached        bool             `json:"cached"`
	Primary       PrimaryBreadth   `json:"primary"`
	Secondary     SecondaryBreadth `json:"secondary"`
	Market        MarketGauge      `json:"market"`
	T2108         *float64         `json:"t2108"`
}

// IsZero reports whether every mover count is zero, the signature of a
// computation that saw no usable upstream data.
func (b *BreadthSnapshot) IsZero() bool {
	p, s := b.Primary, b.Secondary
	return p.Up4PlusToday == 0 && p.Down4PlusToday == 0 &&
		p.Up25PlusQuarter == 0 && p.Down25PlusQuarter == 0 &&
		s.Up25PlusMonth == 0 && s.Down25PlusMonth == 0 &&
		s.Up50PlusMonth == 0 && s.Down50PlusMonth == 0 &&
		s.Up13Plus34Days == 0 && s.Down13Plus34Days == 0
}

// HighLowCounts holds screener 52-week high/low counts.
type HighLowCounts struct {
	New52WeekHigh int      `json:"new52WeekHigh"`
	New52WeekLow  int      `json:"new52WeekLow"`
	HighLowRatio  *float64 `json:"highLowRatio"`
}

// RSICounts holds screener RSI extreme counts.
type RSICounts struct {
	Above70  int      `json:"above70"`
	Below30  int      `json:"below30"`
	RSIRatio *float64 `json:"rsiRatio"`
}

// SMACounts holds screener moving-average position counts.
type SMACounts struct {
	AboveSMA20  int `json:"aboveSMA20"`
	BelowSMA20  int `json:"belowSMA20"`
	AboveSMA50  int `json:"aboveSMA50"`
	BelowSMA50  int `json:"belowSMA50"`
	AboveSMA200 int `json:"aboveSMA200"`
	BelowSMA200 int `json:"belowSMA200"`
}

// TrendCounts holds screener SMA crossover counts.
type TrendCounts struct {
	GoldenCross int `json:"goldenCross"`
	DeathCross  int `json:"deathCross"`
}

// ScreenerBreadth is the daily screener-derived breadth snapshot.
type ScreenerBreadth struct {
	Date          string        `json:"date"`
	Timestamp     int64         `json:"timestamp"`
	UniverseCount int           `json:"universeCount"`
	Cached        bool          `json:"cached"`
	Highs         HighLowCounts `json:"highs"`
	RSI           RSICounts     `json:"rsi"`
	SMA           SMACounts     `json:"sma"`
	Trend         TrendCounts   `json:"trend"`
}

// IsZero reports whether every screener count came back zero.
func (s *ScreenerBreadth) IsZero() bool {
	return s.Highs.New52WeekHigh == 0 && s.Highs.New52WeekLow == 0 &&
		s.RSI.Above70 == 0 && s.RSI.Below30 == 0 &&
		s.SMA.AboveSMA20 == 0 && s.SMA.BelowSMA20 == 0 &&
		s.SMA.AboveSMA50 == 0 && s.SMA.BelowSMA50 == 0 &&
		s.SMA.AboveSMA200 == 0 && s.SMA.BelowSMA200 == 0 &&
		s.Trend.GoldenCross == 0 && s.Trend.DeathCross == 0
}

// SectorStock is one member's quote inside a sector rotation view.
type SectorStock struct {
	Symbol        string  `json:"symbol"`
	ChangePercent float64 `json:"changePercent"`
	Price         float64 `json:"price"`
	Volume        float64 `json:"volume"`
}

// SectorRotation is one sector's aggregated rotation view.
type SectorRotation struct {
	Name      string        `json:"name"`
	ShortName string        `json:"shortName"`
	AvgChange float64       `json:"avgChange"`
	Stocks    []SectorStock `json:"stocks"`
}

// RotationSnapshot is the full sector rotation response.
type RotationSnapshot struct {
	Timestamp int64            `json:"timestamp"`
	Sectors   []SectorRotation `json:"sectors"`
	Cached    bool             `json:"cached"`
}

// NHNL is one sector's new-high / new-low count pair.
type NHNL struct {
	NewHighs int `json:"nh"`
	NewLows  int `json:"nl"`
}

// NHNLDay is one trading day's per-sector NH/NL counts.
type NHNLDay struct {
	Date    string          `json:"date"`
	Sectors map[string]NHNL `json:"sectors"`
}

// IsZero reports whether no sector recorded a high or low that day.
func (d NHNLDay) IsZero() bool {
	for _, c := range d.Sectors {
		if c.NewHighs != 0 || c.NewLows != 0 {
			return false
		}
	}
	return true
}

// NHNLHistory is the bounded rolling window of NH/NL days, newest first.
type NHNLHistory struct {
	Days []NHNLDay `json:"days"`
}

// HistoryEntry pairs a stored daily snapshot with its date.
type HistoryEntry struct {
	Date string          `json:"date"`
	Data json.RawMessage `json:"data"`
}

// MarketSummary is a persisted AI-generated daily market summary.
type MarketSummary struct {
	ID          int64  `json:"id"`
	SummaryDate string `json:"summary_date"`
	Text        string `json:"summary_text"`
	GeneratedAt string `json:"generated_at"`
}
