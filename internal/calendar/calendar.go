// Package calendar answers whether the US stock market (NYSE/NASDAQ) is
// open on a given date. Pure date arithmetic, no I/O.
//
// Holiday rules current through 2027. Update the special closures table
// from https://www.nyse.com/markets/hours-calendars as needed.
package calendar

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// ExchangeTZ is the exchange's local timezone. "Today" means today in
// New York everywhere a date is derived from a clock.
var ExchangeTZ = mustLoadTZ("America/New_York")

func mustLoadTZ(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("calendar: load timezone %q: %v", name, err))
	}
	return loc
}

// Special one-off closures not covered by the standard holiday rules.
var specialClosures = map[string]string{
	"2025-01-09": "National Day of Mourning for President Carter",
}

// mustDate parses a YYYY-MM-DD string. Malformed input is a programming
// error upstream validation should have caught, so it panics.
func mustDate(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(fmt.Sprintf("calendar: malformed date %q: %v", s, err))
	}
	return t
}

// nthWeekday returns the nth occurrence (1-based) of a weekday in a month.
func nthWeekday(year int, month time.Month, day time.Weekday, n int) time.Time {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for t.Weekday() != day {
		t = t.AddDate(0, 0, 1)
	}
	return t.AddDate(0, 0, 7*(n-1))
}

// lastWeekday returns the last occurrence of a weekday in a month.
func lastWeekday(year int, month time.Month, day time.Weekday) time.Time {
	t := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	for t.Weekday() != day {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

// easter computes Easter Sunday via the anonymous Gregorian algorithm.
func easter(year int) time.Time {
	a := year % 19
	b, c := year/100, year%100
	d, e := b/4, b%4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i, k := c/4, c%4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// observed shifts a fixed-date holiday off the weekend: Saturday is
// observed Friday, Sunday is observed Monday.
func observed(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, -1)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	}
	return t
}

// Holidays returns the market holidays for a year, keyed by YYYY-MM-DD.
func Holidays(year int) map[string]string {
	h := map[string]string{}
	add := func(t time.Time, name string) {
		h[t.Format(dateLayout)] = name
	}

	add(observed(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)), "New Year's Day")
	add(nthWeekday(year, time.January, time.Monday, 3), "Martin Luther King Jr. Day")
	add(nthWeekday(year, time.February, time.Monday, 3), "Presidents' Day")
	add(easter(year).AddDate(0, 0, -2), "Good Friday")
	add(lastWeekday(year, time.May, time.Monday), "Memorial Day")
	add(observed(time.Date(year, time.June, 19, 0, 0, 0, 0, time.UTC)), "Juneteenth")
	add(observed(time.Date(year, time.July, 4, 0, 0, 0, 0, time.UTC)), "Independence Day")
	add(nthWeekday(year, time.September, time.Monday, 1), "Labor Day")
	add(nthWeekday(year, time.November, time.Thursday, 4), "Thanksgiving Day")
	add(observed(time.Date(year, time.December, 25, 0, 0, 0, 0, time.UTC)), "Christmas Day")

	return h
}

// IsMarketOpen reports whether the market was (or will be) open on the
// given YYYY-MM-DD date. False for weekends, holidays, and special
// closures. Panics on malformed input.
func IsMarketOpen(dateStr string) bool {
	return ClosureReason(dateStr) == ""
}

// ClosureReason returns why the market was closed on the given date, or
// the empty string if it was open. Panics on malformed input.
func ClosureReason(dateStr string) string {
	d := mustDate(dateStr)

	switch d.Weekday() {
	case time.Saturday:
		return "Saturday"
	case time.Sunday:
		return "Sunday"
	}

	if reason, ok := specialClosures[dateStr]; ok {
		return reason
	}
	if name, ok := Holidays(d.Year())[dateStr]; ok {
		return name
	}
	return ""
}

// LastTradingDay walks back from the given date (inclusive) to the most
// recent date the market was open, returned as YYYY-MM-DD.
func LastTradingDay(from time.Time) string {
	d := from
	for {
		s := d.Format(dateLayout)
		if IsMarketOpen(s) {
			return s
		}
		d = d.AddDate(0, 0, -1)
	}
}

// TradingDaysBack returns the last n dates the market was open, walking
// back from (and excluding) the given date, most recent first.
func TradingDaysBack(from time.Time, n int) []string {
	dates := make([]string, 0, n)
	d := from
	for len(dates) < n {
		d = d.AddDate(0, 0, -1)
		s := d.Format(dateLayout)
		if IsMarketOpen(s) {
			dates = append(dates, s)
		}
	}
	return dates
}
