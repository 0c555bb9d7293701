// Package universe holds the fixed trading universe: eleven sectors of
// fifteen representative large-cap stocks each, plus the index ETFs.
// Static configuration data, reviewed periodically by hand.
package universe

import "github.com/industryrunners/pulse/internal/core"

// MarketETF is the index ETF split out of breadth counts and used as
// the market gauge.
const MarketETF = "SPY"

// IndexETFs are the symbols that get a 5-day change on the quotes
// endpoint.
var IndexETFs = []string{"SPY", "QQQ", "DIA", "IWM", "IJR"}

// Sectors is the canonical sector table. Order is presentation order.
var Sectors = []core.Sector{
	{Name: "Technology", ShortName: "Tech", Stocks: []string{
		"NVDA", "INTC", "AAPL", "AMD", "AVGO", "MSFT", "GOOG", "MU", "CSCO", "MRVL",
		"LRCX", "TSM", "QCOM", "TXN", "AMAT"}},
	{Name: "Financials", ShortName: "Financials", Stocks: []string{
		"BAC", "JPM", "C", "WFC", "GS", "MS", "SCHW", "BLK", "USB", "PNC",
		"AXP", "V", "MA", "HOOD", "SOFI"}},
	{Name: "Health Care", ShortName: "Health Care", Stocks: []string{
		"PFE", "LLY", "JNJ", "UNH", "MRK", "ABBV", "AMGN", "GILD", "BMY", "CVS",
		"ISRG", "BSX", "MDT", "ZTS", "VRTX"}},
	{Name: "Discretionary", ShortName: "Discretionary", Stocks: []string{
		"TSLA", "AMZN", "F", "HD", "GM", "NKE", "MCD", "SBUX", "LOW", "BKNG",
		"TJX", "ROST", "DHI", "LEN", "MAR"}},
	{Name: "Communication Services", ShortName: "Comm Services", Stocks: []string{
		"T", "CMCSA", "VZ", "META", "NFLX", "DIS", "TMUS", "WBD", "CHTR", "EA",
		"TTWO", "SPOT", "PARA", "FOX", "OMC"}},
	{Name: "Industrials", ShortName: "Industrials", Stocks: []string{
		"BA", "CAT", "HON", "UNP", "UPS", "RTX", "LMT", "GE", "GEV", "ETN",
		"DE", "FDX", "NOC", "WM", "CSX"}},
	{Name: "Staples", ShortName: "Staples", Stocks: []string{
		"WMT", "PG", "KO", "PEP", "COST", "PM", "MO", "CL", "MDLZ", "GIS",
		"KHC", "K", "SYY", "KR", "TGT"}},
	{Name: "Energy", ShortName: "Energy", Stocks: []string{
		"XOM", "CVX", "OXY", "COP", "SLB", "EOG", "MPC", "VLO", "PSX", "HAL",
		"DVN", "FANG", "BKR", "KMI", "WMB"}},
	{Name: "Utilities", ShortName: "Utilities", Stocks: []string{
		"NEE", "DUK", "SO", "D", "AEP", "XEL", "SRE", "EXC", "WEC", "ED",
		"PCG", "EIX", "CEG", "AWK", "AES"}},
	{Name: "Materials", ShortName: "Materials", Stocks: []string{
		"FCX", "LIN", "NUE", "NEM", "APD", "SHW", "DD", "DOW", "PPG", "ECL",
		"CTVA", "CF", "MOS", "CLF", "X"}},
	{Name: "Real Estate", ShortName: "Real Estate", Stocks: []string{
		"PLD", "AMT", "EQIX", "SPG", "O", "WELL", "PSA", "DLR", "CCI", "AVB",
		"EQR", "VTR", "SBAC", "ARE", "MAA"}},
}

// Symbols returns the deduplicated union of all sector members, in
// first-seen order.
func Symbols() []string {
	seen := make(map[string]bool, 11*15)
	out := make([]string, 0, 11*15)
	for _, s := range Sectors {
		for _, sym := range s.Stocks {
			if seen[sym] {
				continue
			}
			seen[sym] = true
			out = append(out, sym)
		}
	}
	return out
}

// SymbolsWithMarket returns the universe plus the market ETF, which is
// fetched alongside but excluded from breadth counts.
func SymbolsWithMarket() []string {
	return append(Symbols(), MarketETF)
}
