package upstream

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"

	"github.com/TobiSchelling/quotefeed/internal/quotes"
)

const (
	maxPerFeed = 50
	// maxPageQuote bounds text extracted from a linked page; anything
	// longer is an article, not a quote.
	maxPageQuote = 600
	pageTimeout  = 15 * time.Second
)

// FeedConfig represents a single quote feed.
type FeedConfig struct {
	URL  string
	Name string
}

// FeedSource reads "quote of the day" style RSS/Atom feeds. Each item
// becomes one quote: the description is the quote text, the author comes
// from the item author or, failing that, the item title. Items that carry
// only a link have the quote extracted from the linked page.
type FeedSource struct {
	feeds  []FeedConfig
	parser *gofeed.Parser
	client *http.Client
}

// NewFeedSource creates a FeedSource over the given feeds.
func NewFeedSource(feeds []FeedConfig) *FeedSource {
	return &FeedSource{
		feeds:  feeds,
		parser: gofeed.NewParser(),
		client: &http.Client{Timeout: pageTimeout},
	}
}

// Fetch parses every configured feed. Feeds that fail are logged and
// skipped; an error is returned only when all of them failed.
func (fs *FeedSource) Fetch(ctx context.Context) ([]quotes.RawQuote, error) {
	var (
		all    []quotes.RawQuote
		failed int
	)
	for _, fc := range fs.feeds {
		feed, err := fs.parser.ParseURLWithContext(fc.URL, ctx)
		if err != nil {
			log.Printf("Failed to parse quote feed %s: %v", fc.URL, err)
			failed++
			continue
		}
		entries, linkOnly := parseItems(feed.Items)
		for _, item := range linkOnly {
			if len(entries) >= maxPerFeed {
				break
			}
			if q, ok := fs.fromPage(ctx, item); ok {
				entries = append(entries, q)
			}
		}
		log.Printf("Parsed %d quotes from %s", len(entries), feedName(fc))
		all = append(all, entries...)
	}
	if failed > 0 && failed == len(fs.feeds) {
		return nil, fmt.Errorf("all %d quote feeds failed", failed)
	}
	return all, nil
}

// ParseFeedString parses feed XML held in memory. Used by tests and by
// callers that already fetched the document.
func ParseFeedString(data string) ([]quotes.RawQuote, error) {
	feed, err := gofeed.NewParser().ParseString(data)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}
	out, _ := parseItems(feed.Items)
	return out, nil
}

// parseItems converts items that carry their quote inline. Items with no
// text but a link are returned separately for page extraction.
func parseItems(items []*gofeed.Item) (out []quotes.RawQuote, linkOnly []*gofeed.Item) {
	for _, item := range items {
		if len(out) >= maxPerFeed {
			break
		}
		text := item.Description
		if text == "" {
			text = item.Content
		}
		text = trimQuoteMarks(stripHTML(text))
		switch {
		case text != "":
			out = append(out, buildQuote(item, text, ""))
		case item.Link != "":
			linkOnly = append(linkOnly, item)
		}
	}
	return out, linkOnly
}

// fromPage fetches item.Link and extracts the quote with readability.
// Failures are logged and drop the item.
func (fs *FeedSource) fromPage(ctx context.Context, item *gofeed.Item) (quotes.RawQuote, bool) {
	pageURL, err := url.Parse(item.Link)
	if err != nil {
		log.Printf("Skipping quote link %q: %v", item.Link, err)
		return quotes.RawQuote{}, false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.Link, nil)
	if err != nil {
		return quotes.RawQuote{}, false
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := fs.client.Do(req)
	if err != nil {
		log.Printf("Fetching quote page %s failed: %v", item.Link, err)
		return quotes.RawQuote{}, false
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		log.Printf("Fetching quote page %s failed: %s", item.Link, resp.Status)
		return quotes.RawQuote{}, false
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, 1<<20), pageURL)
	if err != nil {
		log.Printf("No extractable quote at %s: %v", item.Link, err)
		return quotes.RawQuote{}, false
	}
	text := trimQuoteMarks(strings.Join(strings.Fields(article.TextContent), " "))
	if text == "" || utf8.RuneCountInString(text) > maxPageQuote {
		log.Printf("No extractable quote at %s", item.Link)
		return quotes.RawQuote{}, false
	}
	return buildQuote(item, text, article.Byline), true
}

// buildQuote assembles a RawQuote for item. byline, when set, is used if
// the item names no author.
func buildQuote(item *gofeed.Item, text, byline string) quotes.RawQuote {
	author := ""
	if item.Author != nil {
		author = strings.TrimSpace(item.Author.Name)
	}
	if author == "" && len(item.Authors) > 0 && item.Authors[0] != nil {
		author = strings.TrimSpace(item.Authors[0].Name)
	}
	if author == "" {
		author = strings.TrimSpace(byline)
	}
	if author == "" {
		author = strings.TrimSpace(item.Title)
	}
	if author == "" {
		author = "Unknown"
	}

	id := item.GUID
	if id == "" {
		id = item.Link
	}
	if id == "" {
		h := sha256.Sum256([]byte(text))
		id = fmt.Sprintf("feed-%x", h[:8])
	}

	return quotes.RawQuote{
		ID:         id,
		Text:       text,
		Author:     author,
		Tags:       append([]string{}, item.Categories...),
		AuthorSlug: Slugify(author),
		Length:     utf8.RuneCountInString(text),
	}
}

// Slugify lower-cases a name and joins its words with hyphens.
func Slugify(name string) string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(name)) {
		w = strings.Trim(w, ".,;:!?'\"()")
		if w != "" {
			words = append(words, w)
		}
	}
	return strings.Join(words, "-")
}

func feedName(fc FeedConfig) string {
	if fc.Name != "" {
		return fc.Name
	}
	return fc.URL
}

func trimQuoteMarks(s string) string {
	return strings.TrimSpace(strings.Trim(s, "\"“”'‘’ "))
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	return strings.Join(strings.Fields(s), " ")
}
