package screener

import (
	"regexp"
	"strconv"
	"strings"
)

// ExtractionKind says how a screener page resolved to a count. The
// three ways a count can be zero (confirmed empty result, unparseable
// page, fetch failure) must stay distinguishable downstream.
type ExtractionKind int

const (
	// Matched means one of the count patterns produced a number.
	Matched ExtractionKind = iota
	// NoResultsConfirmed means the page itself says no stocks match.
	NoResultsConfirmed
	// NoPatternMatched means the page had neither a count nor a
	// no-results marker, usually a layout change.
	NoPatternMatched
)

// Extraction is the tagged result of parsing one screener page.
type Extraction struct {
	Kind    ExtractionKind
	Count   int
	Pattern string // pattern1..pattern4 when Kind is Matched
}

// The screener's result count has appeared in several page layouts over
// the years. Patterns are tried in order, newest layout first.
var countPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"pattern1", regexp.MustCompile(`screener-total[^>]*>[^#]*#\d+\s*/\s*(\d+)\s*Total`)},
	{"pattern2", regexp.MustCompile(`#\d+\s*/\s*(\d+)\s*Total`)},
	{"pattern3", regexp.MustCompile(`Total[^<]*</td>[^<]*<td[^>]*><b>(\d+)</b>`)},
	{"pattern4", regexp.MustCompile(`#\d+\s*/\s*(\d+)`)},
}

// ExtractCount parses a screener results page for the total match
// count.
func ExtractCount(html string) Extraction {
	for _, p := range countPatterns {
		if m := p.re.FindStringSubmatch(html); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			return Extraction{Kind: Matched, Count: n, Pattern: p.name}
		}
	}

	lower := strings.ToLower(html)
	if strings.Contains(html, "No results") ||
		strings.Contains(lower, "found 0") ||
		strings.Contains(lower, "no matches") {
		return Extraction{Kind: NoResultsConfirmed}
	}
	return Extraction{Kind: NoPatternMatched}
}
