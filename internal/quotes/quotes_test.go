package quotes

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertKeepsFields(t *testing.T) {
	got := Convert(RawQuote{
		ID:         "test-123",
		Text:       "Test quote text",
		Author:     "Test Author",
		AuthorSlug: "test-author",
		Length:     15,
	})

	assert.Equal(t, "test-123", got.ID)
	assert.Equal(t, "Test quote text", got.Text)
	assert.Equal(t, "Test Author", got.Author)
	assert.Equal(t, DefaultCategory, got.Category)
}

func TestConvertGeneratesID(t *testing.T) {
	a := Convert(RawQuote{Text: "Quote", Author: "Author"})
	b := Convert(RawQuote{Text: "Quote", Author: "Author"})

	assert.True(t, strings.HasPrefix(a.ID, GeneratedIDPrefix))
	assert.Greater(t, len(a.ID), len(GeneratedIDPrefix))
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "Quote", a.Text)
	assert.Equal(t, "Author", a.Author)
}

func TestConvertToleratesGarbledText(t *testing.T) {
	raw := RawQuote{Text: "Grow, learn, evolve â€” become who you are meant to be.", Author: "Coach"}
	got := Convert(raw)
	assert.Equal(t, raw.Text, got.Text)
	assert.NotEmpty(t, got.ID)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "q1", RawQuote{ID: "q1", Text: "x"}.Key())
	assert.Equal(t, "text:x", RawQuote{Text: "x"}.Key())
}

func TestFromLocal(t *testing.T) {
	q := FromLocal("fav-1", "héllo", "Me")
	assert.Equal(t, "fav-1", q.ID)
	assert.Equal(t, 5, q.Length)
	assert.Empty(t, q.Tags)
	assert.Empty(t, q.AuthorSlug)
}

func TestShufflePreservesElements(t *testing.T) {
	in := []RawQuote{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	out := Shuffle(rand.New(rand.NewPCG(1, 2)), in)

	assert.Len(t, out, len(in))
	assert.ElementsMatch(t, in, out)
	assert.Equal(t, "a", in[0].ID, "input must not be modified")
}
