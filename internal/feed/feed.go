// Package feed drives one swipe session: it buffers quotes for the active
// filter, moves a cursor through them, and prefetches more in the
// background before the buffer runs dry.
package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/TobiSchelling/quotefeed/internal/quotes"
)

// Kind names a filter context.
type Kind string

const (
	Random   Kind = "random"
	Category Kind = "category"
	Mood     Kind = "mood"
	Topic    Kind = "topic"
	Mix      Kind = "mix"
)

// Mode is the active filter context. ID is the category, mood or topic
// id; Selection is the category list for Mix.
type Mode struct {
	Kind      Kind
	ID        string
	Selection []string
}

// ParseMode builds a Mode from a kind name and id. For mix the id is a
// comma-separated selection.
func ParseMode(kind, id string) (Mode, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(kind))); k {
	case "", Random:
		return Mode{Kind: Random}, nil
	case Category, Mood, Topic:
		return Mode{Kind: k, ID: id}, nil
	case Mix:
		var sel []string
		for _, s := range strings.Split(id, ",") {
			if s = strings.TrimSpace(s); s != "" {
				sel = append(sel, s)
			}
		}
		return Mode{Kind: Mix, Selection: sel}, nil
	default:
		return Mode{}, fmt.Errorf("unknown feed mode %q", kind)
	}
}

func (m Mode) String() string {
	switch {
	case m.Kind == Mix:
		return "mix:" + strings.Join(m.Selection, ",")
	case m.ID != "":
		return string(m.Kind) + ":" + m.ID
	default:
		return string(m.Kind)
	}
}

// State is the controller's load state.
type State int

const (
	Idle State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "idle"
	}
}

// Retriever is the subset of the retrieval service the controller uses.
type Retriever interface {
	FetchRandom(ctx context.Context, count int) []quotes.RawQuote
	FetchByCategory(ctx context.Context, id string) []quotes.RawQuote
	FetchByMood(ctx context.Context, id string) []quotes.RawQuote
	FetchByTopic(ctx context.Context, id string) []quotes.RawQuote
}

// Mixer composes mixed feeds.
type Mixer interface {
	Compose(ctx context.Context, selection []string) []quotes.RawQuote
}

// History receives every quote the controller surfaces going forward.
type History interface {
	Record(q quotes.DisplayQuote)
}

// Options tunes buffering.
type Options struct {
	// PrefetchThreshold is the number of quotes left ahead of the cursor at
	// which a background prefetch starts.
	PrefetchThreshold int
	// PrefetchSize is how many random quotes a prefetch appends.
	PrefetchSize int
	// InitialSize is the random batch size for random mode and fallbacks.
	InitialSize int
}

// DefaultOptions returns the standard buffering parameters.
func DefaultOptions() Options {
	return Options{PrefetchThreshold: 3, PrefetchSize: 10, InitialSize: 20}
}

// Controller is a per-session feed buffer. Load and Advance are
// serialized; prefetches run in their own goroutine and only ever append
// to the buffer of the context that issued them.
//
// The buffer cursor only moves forward. Quotes already shown are kept on a
// separate replay stack that Retreat walks, so stepping back and forward
// again never resurfaces a buffered quote.
type Controller struct {
	ret     Retriever
	mixer   Mixer
	history History
	opts    Options

	opMu sync.Mutex // serializes Load and Advance

	mu          sync.Mutex
	mode        Mode
	state       State
	buffer      []quotes.DisplayQuote
	cursor      int
	replay      []quotes.DisplayQuote
	replayIdx   int
	generation  uint64
	prefetching bool
	prefetches  int

	wg sync.WaitGroup
}

// New creates an idle controller. mixer and history may be nil.
func New(ret Retriever, mixer Mixer, history History, opts Options) *Controller {
	d := DefaultOptions()
	if opts.PrefetchThreshold <= 0 {
		opts.PrefetchThreshold = d.PrefetchThreshold
	}
	if opts.PrefetchSize <= 0 {
		opts.PrefetchSize = d.PrefetchSize
	}
	if opts.InitialSize <= 0 {
		opts.InitialSize = d.InitialSize
	}
	return &Controller{ret: ret, mixer: mixer, history: history, opts: opts}
}

// Load switches to mode: the buffer is discarded, an initial batch is
// fetched and the cursor reset. The first quote is recorded to history.
// It reports false when nothing could be loaded.
func (c *Controller) Load(ctx context.Context, mode Mode) (quotes.DisplayQuote, bool) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.mode = mode
	c.state = Loading
	c.buffer = nil
	c.cursor = 0
	c.replay = nil
	c.replayIdx = 0
	c.prefetching = false
	c.mu.Unlock()

	batch := quotes.ConvertAll(c.initial(ctx, mode))

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return quotes.DisplayQuote{}, false
	}
	c.buffer = batch
	c.state = Ready
	if len(batch) == 0 {
		c.mu.Unlock()
		return quotes.DisplayQuote{}, false
	}
	first := batch[0]
	c.replay = []quotes.DisplayQuote{first}
	c.mu.Unlock()

	c.record(first)
	return first, true
}

// Advance moves to the next quote. When the buffer length minus the
// cursor is at or below the threshold a background prefetch starts;
// running out reloads from the active mode. It reports false
// when no further quote could be obtained, leaving the cursor in place.
func (c *Controller) Advance(ctx context.Context) (quotes.DisplayQuote, bool) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.state == Idle {
		c.mu.Unlock()
		return quotes.DisplayQuote{}, false
	}
	next := c.cursor + 1
	if len(c.buffer) == 0 {
		next = 0
	}
	if next >= len(c.buffer) {
		gen, mode := c.generation, c.mode
		c.state = Loading
		c.mu.Unlock()

		batch := quotes.ConvertAll(c.initial(ctx, mode))

		c.mu.Lock()
		c.state = Ready
		if gen == c.generation {
			c.buffer = append(c.buffer, batch...)
		}
		if next >= len(c.buffer) {
			c.mu.Unlock()
			return quotes.DisplayQuote{}, false
		}
	}

	low := len(c.buffer)-c.cursor <= c.opts.PrefetchThreshold
	c.cursor = next
	q := c.buffer[next]
	c.push(q)
	if low && !c.prefetching {
		c.prefetching = true
		c.prefetches++
		c.wg.Add(1)
		go c.prefetch(context.WithoutCancel(ctx), c.generation)
	}
	c.mu.Unlock()

	c.record(q)
	return q, true
}

// Retreat steps back along the replay stack. It never fetches, never
// records history and leaves the buffer cursor alone.
func (c *Controller) Retreat() (quotes.DisplayQuote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.replayIdx == 0 || len(c.replay) == 0 {
		return quotes.DisplayQuote{}, false
	}
	c.replayIdx--
	return c.replay[c.replayIdx], true
}

// Current returns the quote on display: the replay stack entry at the
// replay index.
func (c *Controller) Current() (quotes.DisplayQuote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.replay) == 0 {
		return quotes.DisplayQuote{}, false
	}
	return c.replay[c.replayIdx], true
}

// Remaining returns how many buffered quotes lie ahead of the cursor.
func (c *Controller) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buffer) == 0 {
		return 0
	}
	return len(c.buffer) - c.cursor - 1
}

// Position returns the buffer cursor and the buffer length.
func (c *Controller) Position() (cursor, length int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor, len(c.buffer)
}

// Mode returns the active filter context.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// State returns the current load state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Prefetches returns how many background prefetches have been started.
func (c *Controller) Prefetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prefetches
}

// Wait blocks until every started prefetch has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) prefetch(ctx context.Context, gen uint64) {
	defer c.wg.Done()
	batch := quotes.ConvertAll(c.ret.FetchRandom(ctx, c.opts.PrefetchSize))

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		// issued for a context that has since been replaced
		return
	}
	c.prefetching = false
	c.buffer = append(c.buffer, batch...)
}

// initial fetches the first batch for mode. Unknown or empty ids, and
// filters that match nothing, fall back to a random batch.
func (c *Controller) initial(ctx context.Context, mode Mode) []quotes.RawQuote {
	var got []quotes.RawQuote
	switch mode.Kind {
	case Category:
		if mode.ID != "" {
			got = c.ret.FetchByCategory(ctx, mode.ID)
		}
	case Mood:
		if mode.ID != "" {
			got = c.ret.FetchByMood(ctx, mode.ID)
		}
	case Topic:
		if mode.ID != "" {
			got = c.ret.FetchByTopic(ctx, mode.ID)
		}
	case Mix:
		if c.mixer != nil {
			return c.mixer.Compose(ctx, mode.Selection)
		}
	}
	if len(got) > 0 {
		return got
	}
	return c.ret.FetchRandom(ctx, c.opts.InitialSize)
}

// push drops any replay entries after the replay index and appends q.
// Callers hold mu.
func (c *Controller) push(q quotes.DisplayQuote) {
	if len(c.replay) > 0 {
		c.replay = c.replay[:c.replayIdx+1]
	}
	c.replay = append(c.replay, q)
	c.replayIdx = len(c.replay) - 1
}

func (c *Controller) record(q quotes.DisplayQuote) {
	if c.history != nil {
		c.history.Record(q)
	}
}
