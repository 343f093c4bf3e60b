package mix

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/quotefeed/internal/quotes"
	"github.com/TobiSchelling/quotefeed/internal/taxonomy"
)

type fakeRetriever struct {
	mu         sync.Mutex
	byCategory map[string][]quotes.RawQuote
	random     []quotes.RawQuote
	categories []string
	randomReqs []int
}

func (f *fakeRetriever) FetchByCategory(_ context.Context, id string) []quotes.RawQuote {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categories = append(f.categories, id)
	return f.byCategory[id]
}

func (f *fakeRetriever) FetchRandom(_ context.Context, count int) []quotes.RawQuote {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.randomReqs = append(f.randomReqs, count)
	if count > len(f.random) {
		count = len(f.random)
	}
	return f.random[:count]
}

type fakeCollections struct {
	favs []Favorite
	mine []UserQuote
}

func (f fakeCollections) Favorites() []Favorite   { return f.favs }
func (f fakeCollections) UserQuotes() []UserQuote { return f.mine }

func q(id string) quotes.RawQuote {
	return quotes.RawQuote{ID: id, Text: "text " + id, Author: "A"}
}

func idsOf(qs []quotes.RawQuote) []string {
	out := make([]string, len(qs))
	for i, r := range qs {
		out[i] = r.ID
	}
	return out
}

func randomPool(n int) []quotes.RawQuote {
	out := make([]quotes.RawQuote, n)
	for i := range out {
		out[i] = q(fmt.Sprintf("r%d", i))
	}
	return out
}

func TestInterleave(t *testing.T) {
	a := []quotes.RawQuote{q("a1"), q("a2"), q("a3")}
	b := []quotes.RawQuote{q("b1")}

	assert.Equal(t, []string{"a1", "b1", "a2", "a3"}, idsOf(Interleave([][]quotes.RawQuote{a, b})))
	assert.Equal(t, []string{"b1", "a1", "a2", "a3"}, idsOf(Interleave([][]quotes.RawQuote{b, a})))
	assert.Empty(t, Interleave(nil))
	assert.Empty(t, Interleave([][]quotes.RawQuote{nil, {}}))
}

func TestComposeEmptySelectionFallsBackToRandom(t *testing.T) {
	ret := &fakeRetriever{random: randomPool(30)}
	c := New(ret, nil, rand.New(rand.NewPCG(1, 2)))

	got := c.Compose(context.Background(), nil)
	assert.Len(t, got, DefaultSize)
	assert.Equal(t, []int{DefaultSize}, ret.randomReqs)
	assert.Empty(t, ret.categories)
}

func TestComposeInterleavesCategories(t *testing.T) {
	ret := &fakeRetriever{byCategory: map[string][]quotes.RawQuote{
		"love": {q("a1"), q("a2"), q("a3")},
		"hope": {q("b1")},
	}}
	c := New(ret, nil, rand.New(rand.NewPCG(1, 2)))

	got := c.Compose(context.Background(), []string{"love", "hope"})
	ids := idsOf(got)
	sort.Strings(ids)
	assert.Equal(t, []string{"a1", "a2", "a3", "b1"}, ids)
	assert.ElementsMatch(t, []string{"love", "hope"}, ret.categories)
	assert.Empty(t, ret.randomReqs)
}

func TestComposeAppendsLocalCollections(t *testing.T) {
	ret := &fakeRetriever{byCategory: map[string][]quotes.RawQuote{"love": {q("a1")}}}
	local := fakeCollections{
		favs: []Favorite{{ID: "fav-1", Text: "Saved words", Author: "Someone", Category: "love"}},
		mine: []UserQuote{{ID: "user-1", Text: "My own words", Author: "Me"}},
	}
	c := New(ret, local, rand.New(rand.NewPCG(3, 4)))

	got := c.Compose(context.Background(), []string{"love", taxonomy.FavoritesID, taxonomy.MyQuotesID, "_unknown"})
	require.Len(t, got, 3)
	assert.ElementsMatch(t, []string{"a1", "fav-1", "user-1"}, idsOf(got))
	assert.Equal(t, []string{"love"}, ret.categories)

	for _, r := range got {
		if r.ID == "user-1" {
			assert.Equal(t, len("My own words"), r.Length)
			assert.Empty(t, r.AuthorSlug)
			assert.NotNil(t, r.Tags)
		}
	}
}

func TestComposeLocalOnlyNeedsNoFetch(t *testing.T) {
	ret := &fakeRetriever{}
	local := fakeCollections{favs: []Favorite{{ID: "fav-1", Text: "Saved"}}}
	c := New(ret, local, nil)

	got := c.Compose(context.Background(), []string{taxonomy.FavoritesID})
	assert.Equal(t, []string{"fav-1"}, idsOf(got))
	assert.Empty(t, ret.categories)
	assert.Empty(t, ret.randomReqs)
}

func TestComposeCancelledReturnsNothing(t *testing.T) {
	ret := &fakeRetriever{
		byCategory: map[string][]quotes.RawQuote{"love": {q("l1")}, "hope": {q("h1")}},
		random:     randomPool(25),
	}
	c := New(ret, fakeCollections{favs: []Favorite{{ID: "fav-1", Text: "Saved"}}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := c.Compose(ctx, []string{"love", "hope", taxonomy.FavoritesID})
	assert.Nil(t, got)
	assert.Empty(t, ret.categories)
	assert.Empty(t, ret.randomReqs)
}

func TestComposeEmptyResultFallsBackToRandom(t *testing.T) {
	ret := &fakeRetriever{random: randomPool(25)}
	c := New(ret, fakeCollections{}, nil)

	got := c.Compose(context.Background(), []string{"nonexistent", taxonomy.FavoritesID})
	assert.Len(t, got, DefaultSize)
	assert.Equal(t, []int{DefaultSize}, ret.randomReqs)
}

func TestComposeShuffles(t *testing.T) {
	var many []quotes.RawQuote
	for i := 0; i < 30; i++ {
		many = append(many, q(fmt.Sprintf("a%02d", i)))
	}
	ret := &fakeRetriever{byCategory: map[string][]quotes.RawQuote{"love": many}}
	c := New(ret, nil, rand.New(rand.NewPCG(5, 6)))

	got := c.Compose(context.Background(), []string{"love"})
	require.Len(t, got, 30)
	assert.NotEqual(t, idsOf(many), idsOf(got))
	assert.ElementsMatch(t, idsOf(many), idsOf(got))
}
