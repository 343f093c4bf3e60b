// Package retrieval serves quotes from the cache in random, keyword-ranked,
// author, and tag modes.
package retrieval

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/TobiSchelling/quotefeed/internal/cache"
	"github.com/TobiSchelling/quotefeed/internal/quotes"
	"github.com/TobiSchelling/quotefeed/internal/score"
	"github.com/TobiSchelling/quotefeed/internal/taxonomy"
)

// Options tunes the refill and collection loops.
type Options struct {
	// SafetyMargin is added to random requests so a take does not empty the cache.
	SafetyMargin int
	// PoolSize is the cache level ensured before keyword, mood and author passes.
	PoolSize int
	// TagPoolSize is the cache level ensured before tag filtering.
	TagPoolSize int
	// CollectTarget is how many ranked quotes a keyword pass aims for.
	CollectTarget int
	// MaxAttempts bounds the keyword collection loop.
	MaxAttempts int
	// TagMinimum is the match count below which tag mode falls back to random.
	TagMinimum int
	// TagLimit truncates tag results.
	TagLimit int
}

// DefaultOptions returns the standard tunables.
func DefaultOptions() Options {
	return Options{
		SafetyMargin:  10,
		PoolSize:      50,
		TagPoolSize:   100,
		CollectTarget: 15,
		MaxAttempts:   6,
		TagMinimum:    10,
		TagLimit:      15,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SafetyMargin <= 0 {
		o.SafetyMargin = d.SafetyMargin
	}
	if o.PoolSize <= 0 {
		o.PoolSize = d.PoolSize
	}
	if o.TagPoolSize <= 0 {
		o.TagPoolSize = d.TagPoolSize
	}
	if o.CollectTarget <= 0 {
		o.CollectTarget = d.CollectTarget
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.TagMinimum <= 0 {
		o.TagMinimum = d.TagMinimum
	}
	if o.TagLimit <= 0 {
		o.TagLimit = d.TagLimit
	}
	return o
}

// Service is the public retrieval API over one Cache. None of its methods
// return errors: upstream trouble shows up as short or empty results.
type Service struct {
	cache  *cache.Cache
	tables *taxonomy.Tables
	opts   Options

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a Service. A nil rng uses the global random source.
func New(c *cache.Cache, tables *taxonomy.Tables, opts Options, rng *rand.Rand) *Service {
	return &Service{
		cache:  c,
		tables: tables,
		opts:   opts.withDefaults(),
		rng:    rng,
	}
}

// Tables returns the taxonomy the service ranks against.
func (s *Service) Tables() *taxonomy.Tables {
	return s.tables
}

// Cache returns the underlying quote cache.
func (s *Service) Cache() *cache.Cache {
	return s.cache
}

// FetchOne returns the quote at the front of the cache, or nil.
func (s *Service) FetchOne(ctx context.Context) *quotes.RawQuote {
	s.cache.EnsureAvailable(ctx, s.opts.SafetyMargin)
	got := s.cache.Take(1)
	if len(got) == 0 {
		return nil
	}
	return &got[0]
}

// FetchRandom returns up to count quotes in random order.
func (s *Service) FetchRandom(ctx context.Context, count int) []quotes.RawQuote {
	if count <= 0 {
		return nil
	}
	s.cache.EnsureAvailable(ctx, count+s.opts.SafetyMargin)
	return s.shuffle(s.cache.Take(count))
}

// FetchByCategory returns quotes ranked against a category's keywords.
// Unknown categories yield an empty result.
func (s *Service) FetchByCategory(ctx context.Context, id string) []quotes.RawQuote {
	return s.collect(ctx, s.tables.Category(id), false)
}

// FetchByMood returns quotes ranked against a mood's keywords.
func (s *Service) FetchByMood(ctx context.Context, id string) []quotes.RawQuote {
	return s.collect(ctx, s.tables.Mood(id), false)
}

// FetchByTopic resolves id against the category table first and behaves
// exactly like FetchByCategory on a hit. Topic-only ids force a fresh
// upstream fetch on every attempt.
func (s *Service) FetchByTopic(ctx context.Context, id string) []quotes.RawQuote {
	keywords, aliased := s.tables.TopicKeywords(id)
	if aliased {
		return s.FetchByCategory(ctx, id)
	}
	return s.collect(ctx, keywords, true)
}

// FetchByAuthor returns cached quotes whose author contains the name
// spelled by slug. Matches stay in the cache.
func (s *Service) FetchByAuthor(ctx context.Context, slug string) []quotes.RawQuote {
	s.cache.EnsureAvailable(ctx, s.opts.PoolSize)
	name := authorName(slug)

	var matched []quotes.RawQuote
	for _, q := range s.cache.Snapshot() {
		if strings.Contains(strings.ToLower(q.Author), name) {
			matched = append(matched, q)
		}
	}
	return s.shuffle(matched)
}

// FetchByTags filters the cache by the expanded keywords of tags. With
// too few matches the filtered set is discarded in favour of a random batch.
func (s *Service) FetchByTags(ctx context.Context, tags []string) []quotes.RawQuote {
	keywords := s.tables.TagKeywords(tags)
	s.cache.EnsureAvailable(ctx, s.opts.TagPoolSize)

	filtered := score.Filter(s.cache.Snapshot(), keywords)
	if len(filtered) >= s.opts.TagMinimum {
		if len(filtered) > s.opts.TagLimit {
			filtered = filtered[:s.opts.TagLimit]
		}
		return s.shuffle(filtered)
	}
	return s.FetchRandom(ctx, s.opts.TagLimit)
}

// collect drains the best-scoring cached quotes for keywords, refilling
// between attempts. With forceFetch every attempt starts with one upstream
// fetch; otherwise a fetch is forced only after an unproductive attempt.
func (s *Service) collect(ctx context.Context, keywords []string, forceFetch bool) []quotes.RawQuote {
	if len(keywords) == 0 {
		return []quotes.RawQuote{}
	}

	target := s.opts.CollectTarget
	collected := make([]quotes.RawQuote, 0, target)
	taken := make(map[string]struct{})

	for attempt := 0; attempt < s.opts.MaxAttempts && len(collected) < target; attempt++ {
		if ctx.Err() != nil {
			break
		}
		if forceFetch {
			s.cache.FetchOnce(ctx)
		} else {
			s.cache.EnsureAvailable(ctx, s.opts.PoolSize)
		}

		scored := score.Score(s.cache.Uncollected(taken), keywords)
		for _, sq := range scored {
			if len(collected) >= target {
				break
			}
			key := sq.Quote.Key()
			if _, dup := taken[key]; dup {
				continue
			}
			if !s.cache.Remove(sq.Quote) {
				continue
			}
			collected = append(collected, sq.Quote)
			taken[key] = struct{}{}
		}

		if !forceFetch && len(scored) == 0 {
			if s.cache.FetchOnce(ctx) == 0 {
				break
			}
		}
	}

	return s.shuffle(collected)
}

func (s *Service) shuffle(qs []quotes.RawQuote) []quotes.RawQuote {
	if s.rng == nil {
		return quotes.Shuffle(nil, qs)
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return quotes.Shuffle(s.rng, qs)
}

func authorName(slug string) string {
	r := strings.NewReplacer("-", " ", "_", " ")
	return strings.ToLower(strings.TrimSpace(r.Replace(slug)))
}
