package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/TobiSchelling/quotefeed/internal/cache"
	"github.com/TobiSchelling/quotefeed/internal/database"
	"github.com/TobiSchelling/quotefeed/internal/feed"
	"github.com/TobiSchelling/quotefeed/internal/mix"
	"github.com/TobiSchelling/quotefeed/internal/quotes"
	"github.com/TobiSchelling/quotefeed/internal/retrieval"
	"github.com/TobiSchelling/quotefeed/internal/taxonomy"
	"github.com/TobiSchelling/quotefeed/internal/upstream"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// batchSource returns a fresh batch of n quotes per fetch, so the cache
// never runs dry.
func batchSource(n int) upstream.Source {
	var calls atomic.Int64
	return upstream.SourceFunc(func(context.Context) ([]quotes.RawQuote, error) {
		call := calls.Add(1)
		out := make([]quotes.RawQuote, n)
		for i := range out {
			out[i] = quotes.RawQuote{
				ID:         fmt.Sprintf("q%d-%d", call, i),
				Text:       fmt.Sprintf("Love and hope carry us forward %d-%d", call, i),
				Author:     "Test Author",
				AuthorSlug: "test-author",
			}
		}
		return out, nil
	})
}

func newTestServer(t *testing.T, src upstream.Source) (*Server, *database.DB) {
	t.Helper()
	db := openTestDB(t)
	svc := retrieval.New(cache.New(src), taxonomy.Default(), retrieval.DefaultOptions(), rand.New(rand.NewPCG(1, 2)))
	srv, err := New(db, svc, mix.New(svc, db, rand.New(rand.NewPCG(3, 4))), feed.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	t.Cleanup(srv.Feed().Wait)
	return srv, db
}

func do(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeQuotes(t *testing.T, rec *httptest.ResponseRecorder) []quotes.DisplayQuote {
	t.Helper()
	var out []quotes.DisplayQuote
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response: %v (body %q)", err, rec.Body.String())
	}
	return out
}

func TestRandomEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, batchSource(40))

	rec := do(srv, "GET", "/api/quotes/random?count=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decodeQuotes(t, rec)
	if len(got) != 5 {
		t.Fatalf("expected 5 quotes, got %d", len(got))
	}
	for _, q := range got {
		if q.Category != quotes.DefaultCategory {
			t.Errorf("expected category %q, got %q", quotes.DefaultCategory, q.Category)
		}
	}
}

func TestRandomEndpointRejectsBadCount(t *testing.T) {
	srv, _ := newTestServer(t, batchSource(10))

	for _, count := range []string{"abc", "0", "-3", "1000"} {
		rec := do(srv, "GET", "/api/quotes/random?count="+count, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("count=%s: expected 400, got %d", count, rec.Code)
		}
	}
}

func TestCategoryEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, batchSource(40))

	rec := do(srv, "GET", "/api/quotes/category/love", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeQuotes(t, rec); len(got) != 15 {
		t.Errorf("expected 15 quotes, got %d", len(got))
	}

	rec = do(srv, "GET", "/api/quotes/category/nonexistent", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty array, got %q", rec.Body.String())
	}
}

func TestAuthorAndTagsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, batchSource(20))

	got := decodeQuotes(t, do(srv, "GET", "/api/quotes/author/test-author", ""))
	if len(got) == 0 {
		t.Error("expected quotes by author")
	}

	got = decodeQuotes(t, do(srv, "GET", "/api/quotes/tags?tag=hope", ""))
	if len(got) == 0 {
		t.Error("expected tag matches")
	}

	rec := do(srv, "GET", "/api/quotes/tags", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without tags, got %d", rec.Code)
	}
}

func TestMixEndpointUsesStoredSelection(t *testing.T) {
	srv, db := newTestServer(t, batchSource(40))
	if _, err := db.AddUserQuote("My very own line", ""); err != nil {
		t.Fatalf("add user quote: %v", err)
	}
	if err := db.SetMixCategories([]string{taxonomy.MyQuotesID}); err != nil {
		t.Fatalf("set mix: %v", err)
	}

	got := decodeQuotes(t, do(srv, "GET", "/api/mix", ""))
	if len(got) != 1 || got[0].Text != "My very own line" {
		t.Errorf("expected only the user quote, got %+v", got)
	}
}

func TestFavoritesAPI(t *testing.T) {
	srv, _ := newTestServer(t, batchSource(10))

	rec := do(srv, "POST", "/api/favorites", `{"id":"f1","text":"Saved words","author":"Someone"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	got := decodeQuotes(t, do(srv, "GET", "/api/favorites", ""))
	if len(got) != 1 || got[0].ID != "f1" || got[0].Category != quotes.DefaultCategory {
		t.Fatalf("unexpected favorites %+v", got)
	}

	if rec := do(srv, "POST", "/api/favorites", `{"text":"no id"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing id, got %d", rec.Code)
	}
	if rec := do(srv, "POST", "/api/favorites", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad JSON, got %d", rec.Code)
	}

	if rec := do(srv, "DELETE", "/api/favorites/f1", ""); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if rec := do(srv, "DELETE", "/api/favorites/f1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestIndexRecordsHistory(t *testing.T) {
	srv, db := newTestServer(t, batchSource(40))

	rec := do(srv, "GET", "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Love and hope") {
		t.Error("expected quote text in response body")
	}

	if rec := do(srv, "POST", "/next", ""); rec.Code != http.StatusFound {
		t.Errorf("expected 302, got %d", rec.Code)
	}
	hist := decodeQuotes(t, do(srv, "GET", "/api/history", ""))
	if len(hist) != 2 {
		t.Errorf("expected 2 history entries, got %d", len(hist))
	}

	// Going back replays without recording.
	do(srv, "POST", "/prev", "")
	hist2, err := db.GetHistory()
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(hist2) != 2 {
		t.Errorf("expected history unchanged after prev, got %d", len(hist2))
	}
}

func TestIndexSwitchesMode(t *testing.T) {
	srv, _ := newTestServer(t, batchSource(40))

	rec := do(srv, "GET", "/?mode=category&id=love", "")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if got := srv.Feed().Mode().String(); got != "category:love" {
		t.Errorf("expected category:love, got %s", got)
	}

	if rec := do(srv, "GET", "/?mode=shuffle", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown mode, got %d", rec.Code)
	}
}

func TestFavoriteToggleRoute(t *testing.T) {
	srv, db := newTestServer(t, batchSource(40))
	do(srv, "GET", "/", "")
	cur, ok := srv.Feed().Current()
	if !ok {
		t.Fatal("expected a current quote")
	}

	do(srv, "POST", "/favorite", "")
	if fav, _ := db.IsFavorite(cur.ID); !fav {
		t.Error("expected current quote to be a favorite")
	}

	page := do(srv, "GET", "/favorites", "")
	if !strings.Contains(page.Body.String(), "My Favorites") {
		t.Error("expected favorites heading")
	}

	do(srv, "POST", "/favorite", "")
	if fav, _ := db.IsFavorite(cur.ID); fav {
		t.Error("expected favorite to be toggled off")
	}
}

func TestStaticRoute(t *testing.T) {
	srv, _ := newTestServer(t, batchSource(10))

	rec := do(srv, "GET", "/static/style.css", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "font-sans") {
		t.Error("expected CSS content")
	}
}
