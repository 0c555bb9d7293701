package marketdata

// Upstream response shapes for the polygon-style market data API.
// Only the fields we read are declared.

type snapshotAgg struct {
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
}

type snapshotTicker struct {
	Ticker           string      `json:"ticker"`
	TodaysChange     float64     `json:"todaysChange"`
	TodaysChangePerc float64     `json:"todaysChangePerc"`
	Day              snapshotAgg `json:"day"`
	Min              snapshotAgg `json:"min"`
	PrevDay          snapshotAgg `json:"prevDay"`
	Updated          int64       `json:"updated"` // nanos
}

type snapshotResponse struct {
	Status  string           `json:"status"`
	Tickers []snapshotTicker `json:"tickers"`
}

type aggBar struct {
	Ticker string  `json:"T"`
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
	Time   int64   `json:"t"` // millis
}

type aggsResponse struct {
	Status       string   `json:"status"`
	ResultsCount int      `json:"resultsCount"`
	Results      []aggBar `json:"results"`
}
