package screener

import "testing"

func TestExtractCountPatterns(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		count   int
		pattern string
	}{
		{
			name:    "current layout",
			html:    `<div class="screener-total">#1 / 2580 Total</div>`,
			count:   2580,
			pattern: "pattern1",
		},
		{
			name:    "total without wrapper div",
			html:    `<td>#1 / 123 Total</td>`,
			count:   123,
			pattern: "pattern2",
		},
		{
			name:    "legacy table layout",
			html:    `<td>Total: </td><td class="count"><b>456</b></td>`,
			count:   456,
			pattern: "pattern3",
		},
		{
			name:    "bare pager fraction",
			html:    `<span>#1 / 77</span>`,
			count:   77,
			pattern: "pattern4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := ExtractCount(tt.html)
			if ext.Kind != Matched {
				t.Fatalf("expected Matched, got %v", ext.Kind)
			}
			if ext.Count != tt.count {
				t.Errorf("expected count %d, got %d", tt.count, ext.Count)
			}
			if ext.Pattern != tt.pattern {
				t.Errorf("expected %s, got %s", tt.pattern, ext.Pattern)
			}
		})
	}
}

func TestExtractCountOrderPrefersNewestLayout(t *testing.T) {
	// A page with both the new wrapper and a bare fraction must resolve
	// through the wrapper.
	html := `<div class="screener-total">#1 / 999 Total</div><span>#1 / 5</span>`
	ext := ExtractCount(html)
	if ext.Pattern != "pattern1" || ext.Count != 999 {
		t.Errorf("expected pattern1/999, got %s/%d", ext.Pattern, ext.Count)
	}
}

func TestExtractCountNoResults(t *testing.T) {
	for _, html := range []string{
		`<div>No results matched your criteria</div>`,
		`<div>Search found 0 stocks</div>`,
		`<div>Sorry, no matches.</div>`,
	} {
		ext := ExtractCount(html)
		if ext.Kind != NoResultsConfirmed {
			t.Errorf("expected NoResultsConfirmed for %q, got %v", html, ext.Kind)
		}
		if ext.Count != 0 {
			t.Errorf("expected zero count, got %d", ext.Count)
		}
	}
}

func TestExtractCountUnparseablePage(t *testing.T) {
	ext := ExtractCount(`<html><body>maintenance page</body></html>`)
	if ext.Kind != NoPatternMatched {
		t.Errorf("expected NoPatternMatched, got %v", ext.Kind)
	}
}
