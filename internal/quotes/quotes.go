package quotes

import (
	"math/rand/v2"

	"github.com/google/uuid"
)

// DefaultCategory is the category every converted quote carries.
const DefaultCategory = "inspiration"

// GeneratedIDPrefix prefixes ids synthesized for upstream quotes without one.
const GeneratedIDPrefix = "zen-"

// RawQuote is a quote record as received from the upstream source.
type RawQuote struct {
	ID         string   `json:"_id"`
	Text       string   `json:"content"`
	Author     string   `json:"author"`
	Tags       []string `json:"tags"`
	AuthorSlug string   `json:"authorSlug"`
	Length     int      `json:"length"`
}

// Key identifies a quote within one retrieval pass. Upstream ids may be
// empty, so the text stands in for them.
func (q RawQuote) Key() string {
	if q.ID != "" {
		return q.ID
	}
	return "text:" + q.Text
}

// DisplayQuote is the application-facing quote shape.
type DisplayQuote struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Author   string `json:"author"`
	Category string `json:"category"`
}

// Convert maps an upstream record to a DisplayQuote, synthesizing an id when
// the upstream left it empty.
func Convert(q RawQuote) DisplayQuote {
	id := q.ID
	if id == "" {
		id = GeneratedIDPrefix + uuid.New().String()
	}
	return DisplayQuote{
		ID:       id,
		Text:     q.Text,
		Author:   q.Author,
		Category: DefaultCategory,
	}
}

// ConvertAll converts a batch of upstream records.
func ConvertAll(qs []RawQuote) []DisplayQuote {
	out := make([]DisplayQuote, 0, len(qs))
	for _, q := range qs {
		out = append(out, Convert(q))
	}
	return out
}

// FromLocal builds a RawQuote for a locally held quote (favorite or
// user-authored). Local quotes carry no tags or author slug.
func FromLocal(id, text, author string) RawQuote {
	return RawQuote{
		ID:     id,
		Text:   text,
		Author: author,
		Tags:   []string{},
		Length: len([]rune(text)),
	}
}

// Shuffle returns a uniformly permuted copy of qs (Fisher-Yates).
// A nil rng uses the global source.
func Shuffle(rng *rand.Rand, qs []RawQuote) []RawQuote {
	out := make([]RawQuote, len(qs))
	copy(out, qs)
	swap := func(i, j int) { out[i], out[j] = out[j], out[i] }
	if rng == nil {
		rand.Shuffle(len(out), swap)
	} else {
		rng.Shuffle(len(out), swap)
	}
	return out
}
