// Package mix composes one feed from several selected categories and the
// user's local collections.
package mix

import (
	"context"
	"log"
	"math/rand/v2"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/quotefeed/internal/quotes"
	"github.com/TobiSchelling/quotefeed/internal/taxonomy"
)

// DefaultSize is the random batch size used when a mix yields nothing.
const DefaultSize = 20

// Retriever is the subset of the retrieval service a Composer needs.
type Retriever interface {
	FetchByCategory(ctx context.Context, id string) []quotes.RawQuote
	FetchRandom(ctx context.Context, count int) []quotes.RawQuote
}

// Favorite is a saved quote as held by the favorites store.
type Favorite struct {
	ID       string
	Text     string
	Author   string
	Category string
}

// UserQuote is a quote written by the user.
type UserQuote struct {
	ID     string
	Text   string
	Author string
}

// Collections exposes the locally held quote collections.
type Collections interface {
	Favorites() []Favorite
	UserQuotes() []UserQuote
}

// Composer builds mixed feeds.
type Composer struct {
	ret   Retriever
	local Collections

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a Composer. local may be nil when no collections exist;
// a nil rng uses the global random source.
func New(ret Retriever, local Collections, rng *rand.Rand) *Composer {
	return &Composer{ret: ret, local: local, rng: rng}
}

// Compose returns the shuffled mix for selection. Real categories are
// fetched concurrently and interleaved round-robin; the favorites and
// user-quote pseudo-categories are appended after them. Empty selections
// and empty results fall back to a random batch. A cancelled ctx yields nil.
func (c *Composer) Compose(ctx context.Context, selection []string) []quotes.RawQuote {
	if len(selection) == 0 {
		return c.ret.FetchRandom(ctx, DefaultSize)
	}

	var (
		categories []string
		local      []quotes.RawQuote
	)
	for _, id := range selection {
		switch {
		case id == taxonomy.FavoritesID:
			local = append(local, c.favorites()...)
		case id == taxonomy.MyQuotesID:
			local = append(local, c.userQuotes()...)
		case taxonomy.IsReserved(id):
			// unknown pseudo-category
		default:
			categories = append(categories, id)
		}
	}

	lists := make([][]quotes.RawQuote, len(categories))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range categories {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lists[i] = c.ret.FetchByCategory(gctx, id)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("Mix of %d categories abandoned: %v", len(categories), err)
		return nil
	}

	combined := append(Interleave(lists), local...)
	if len(combined) == 0 {
		return c.ret.FetchRandom(ctx, DefaultSize)
	}
	return c.shuffle(combined)
}

// Interleave merges lists round-robin: the first item of every list in
// order, then the second, and so on. Exhausted lists are skipped.
func Interleave(lists [][]quotes.RawQuote) []quotes.RawQuote {
	total, longest := 0, 0
	for _, l := range lists {
		total += len(l)
		longest = max(longest, len(l))
	}
	out := make([]quotes.RawQuote, 0, total)
	for i := 0; i < longest; i++ {
		for _, l := range lists {
			if i < len(l) {
				out = append(out, l[i])
			}
		}
	}
	return out
}

func (c *Composer) favorites() []quotes.RawQuote {
	if c.local == nil {
		return nil
	}
	favs := c.local.Favorites()
	out := make([]quotes.RawQuote, 0, len(favs))
	for _, f := range favs {
		out = append(out, quotes.FromLocal(f.ID, f.Text, f.Author))
	}
	return out
}

func (c *Composer) userQuotes() []quotes.RawQuote {
	if c.local == nil {
		return nil
	}
	mine := c.local.UserQuotes()
	out := make([]quotes.RawQuote, 0, len(mine))
	for _, u := range mine {
		out = append(out, quotes.FromLocal(u.ID, u.Text, u.Author))
	}
	return out
}

func (c *Composer) shuffle(qs []quotes.RawQuote) []quotes.RawQuote {
	if c.rng == nil {
		return quotes.Shuffle(nil, qs)
	}
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return quotes.Shuffle(c.rng, qs)
}
