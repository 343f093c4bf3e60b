// Package score ranks quotes by keyword presence.
package score

import (
	"sort"
	"strings"

	"github.com/TobiSchelling/quotefeed/internal/quotes"
)

// Scored pairs a quote with the number of distinct keywords it contains.
type Scored struct {
	Quote quotes.RawQuote
	Score int
}

// Score counts, for each quote, how many keywords occur in its lower-cased
// text. Each keyword counts at most once. Quotes scoring zero are dropped and
// the rest are sorted by descending score, keeping input order for ties.
func Score(qs []quotes.RawQuote, keywords []string) []Scored {
	lowered := lowerAll(keywords)
	out := make([]Scored, 0, len(qs))
	for _, q := range qs {
		text := strings.ToLower(q.Text)
		n := 0
		for _, kw := range lowered {
			if strings.Contains(text, kw) {
				n++
			}
		}
		if n > 0 {
			out = append(out, Scored{Quote: q, Score: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Matches reports whether any keyword occurs in the quote text.
// An empty keyword list matches everything.
func Matches(q quotes.RawQuote, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	text := strings.ToLower(q.Text)
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Filter returns the quotes that match any keyword, preserving order.
func Filter(qs []quotes.RawQuote, keywords []string) []quotes.RawQuote {
	var out []quotes.RawQuote
	for _, q := range qs {
		if Matches(q, keywords) {
			out = append(out, q)
		}
	}
	return out
}

func lowerAll(keywords []string) []string {
	out := make([]string, len(keywords))
	for i, kw := range keywords {
		out[i] = strings.ToLower(kw)
	}
	return out
}
