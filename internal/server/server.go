package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/quotefeed/internal/database"
	"github.com/TobiSchelling/quotefeed/internal/feed"
	"github.com/TobiSchelling/quotefeed/internal/mix"
	"github.com/TobiSchelling/quotefeed/internal/quotes"
	"github.com/TobiSchelling/quotefeed/internal/retrieval"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// maxCount bounds the count parameter of the random endpoint.
const maxCount = 100

// Server is the local HTTP server: a JSON retrieval API plus an HTML swipe
// page backed by one feed controller.
type Server struct {
	db       *database.DB
	svc      *retrieval.Service
	composer *mix.Composer
	feed     *feed.Controller
	pages    map[string]*template.Template
	mux      *http.ServeMux
}

// New creates a new Server. The swipe page records every quote it surfaces
// to the history in db.
func New(db *database.DB, svc *retrieval.Service, composer *mix.Composer, opts feed.Options) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone so {{define "content"}} does not collide.
	pageNames := []string{"index.html", "favorites.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		db:       db,
		svc:      svc,
		composer: composer,
		feed:     feed.New(svc, composer, db, opts),
		pages:    pages,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Feed returns the controller behind the swipe page.
func (s *Server) Feed() *feed.Controller {
	return s.feed
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// JSON API
	s.mux.HandleFunc("GET /api/quotes/random", s.handleRandom)
	s.mux.HandleFunc("GET /api/quotes/category/{id}", s.handleFiltered(s.svc.FetchByCategory))
	s.mux.HandleFunc("GET /api/quotes/mood/{id}", s.handleFiltered(s.svc.FetchByMood))
	s.mux.HandleFunc("GET /api/quotes/topic/{id}", s.handleFiltered(s.svc.FetchByTopic))
	s.mux.HandleFunc("GET /api/quotes/author/{id}", s.handleFiltered(s.svc.FetchByAuthor))
	s.mux.HandleFunc("GET /api/quotes/tags", s.handleTags)
	s.mux.HandleFunc("GET /api/mix", s.handleMix)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.HandleFunc("GET /api/favorites", s.handleListFavorites)
	s.mux.HandleFunc("POST /api/favorites", s.handleAddFavorite)
	s.mux.HandleFunc("DELETE /api/favorites/{id}", s.handleRemoveFavorite)

	// Pages
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("POST /next", s.handleNext)
	s.mux.HandleFunc("POST /prev", s.handlePrev)
	s.mux.HandleFunc("POST /favorite", s.handleToggleFavorite)
	s.mux.HandleFunc("GET /favorites", s.handleFavoritesPage)
	s.mux.HandleFunc("POST /favorites/{id}/remove", s.handleFavoritesPageRemove)
}

func (s *Server) handleRandom(w http.ResponseWriter, r *http.Request) {
	count := 20
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxCount {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("count must be between 1 and %d", maxCount))
			return
		}
		count = n
	}
	writeQuotes(w, s.svc.FetchRandom(r.Context(), count))
}

func (s *Server) handleFiltered(fetch func(ctx context.Context, id string) []quotes.RawQuote) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.PathValue("id"))
		if id == "" {
			writeError(w, http.StatusBadRequest, "missing id")
			return
		}
		writeQuotes(w, fetch(r.Context(), id))
	}
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	var tags []string
	for _, t := range r.URL.Query()["tag"] {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		writeError(w, http.StatusBadRequest, "missing query parameter 'tag'")
		return
	}
	writeQuotes(w, s.svc.FetchByTags(r.Context(), tags))
}

func (s *Server) handleMix(w http.ResponseWriter, r *http.Request) {
	sel, err := s.db.GetMixSelection()
	if err != nil {
		log.Printf("Loading mix selection failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeQuotes(w, s.composer.Compose(r.Context(), sel.Categories))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	hist, err := s.db.GetHistory()
	if err != nil {
		log.Printf("Loading history failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	out := make([]quotes.DisplayQuote, 0, len(hist))
	for _, h := range hist {
		out = append(out, quotes.DisplayQuote{ID: h.ID, Text: h.Text, Author: h.Author, Category: h.Category})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := s.db.GetFavorites()
	if err != nil {
		log.Printf("Loading favorites failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	out := make([]quotes.DisplayQuote, 0, len(favs))
	for _, f := range favs {
		out = append(out, quotes.DisplayQuote{ID: f.ID, Text: f.Text, Author: f.Author, Category: f.Category})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	var q quotes.DisplayQuote
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if q.ID == "" || strings.TrimSpace(q.Text) == "" {
		writeError(w, http.StatusBadRequest, "id and text are required")
		return
	}
	if q.Category == "" {
		q.Category = quotes.DefaultCategory
	}
	err := s.db.AddFavorite(database.FavoriteQuote{ID: q.ID, Text: q.Text, Author: q.Author, Category: q.Category})
	if err != nil {
		log.Printf("Saving favorite failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	err := s.db.RemoveFavorite(r.PathValue("id"))
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "favorite not found")
	case err != nil:
		log.Printf("Removing favorite failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	if q.Has("mode") {
		mode, err := feed.ParseMode(q.Get("mode"), q.Get("id"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if mode.Kind == feed.Mix && len(mode.Selection) == 0 {
			if sel, err := s.db.GetMixSelection(); err == nil {
				mode.Selection = sel.Categories
			}
		}
		s.feed.Load(r.Context(), mode)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if s.feed.State() == feed.Idle {
		s.feed.Load(r.Context(), s.startMode())
	}

	data := map[string]any{
		"Mode":       s.feed.Mode().String(),
		"Categories": s.options(s.svc.Tables().CategoryIDs()),
		"Moods":      s.options(s.svc.Tables().MoodIDs()),
	}
	if cur, ok := s.feed.Current(); ok {
		fav, err := s.db.IsFavorite(cur.ID)
		if err != nil {
			log.Printf("Checking favorite failed: %v", err)
		}
		cursor, length := s.feed.Position()
		data["Quote"] = cur
		data["Favorite"] = fav
		data["Position"] = cursor + 1
		data["Buffered"] = length
	}
	s.render(w, "index.html", data)
}

// startMode resumes the stored mix when it is active, random otherwise.
func (s *Server) startMode() feed.Mode {
	sel, err := s.db.GetMixSelection()
	if err != nil || !sel.Active {
		return feed.Mode{Kind: feed.Random}
	}
	return feed.Mode{Kind: feed.Mix, Selection: sel.Categories}
}

type option struct {
	ID   string
	Name string
}

func (s *Server) options(ids []string) []option {
	out := make([]option, 0, len(ids))
	for _, id := range ids {
		out = append(out, option{ID: id, Name: s.svc.Tables().DisplayName(id)})
	}
	return out
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	if s.feed.State() == feed.Idle {
		s.feed.Load(r.Context(), s.startMode())
	} else {
		s.feed.Advance(r.Context())
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handlePrev(w http.ResponseWriter, r *http.Request) {
	s.feed.Retreat()
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	cur, ok := s.feed.Current()
	if ok {
		_, err := s.db.ToggleFavorite(database.FavoriteQuote{
			ID: cur.ID, Text: cur.Text, Author: cur.Author, Category: cur.Category,
		})
		if err != nil {
			log.Printf("Toggling favorite failed: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleFavoritesPage(w http.ResponseWriter, r *http.Request) {
	favs, err := s.db.GetFavorites()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	mine, err := s.db.GetUserQuotes()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.render(w, "favorites.html", map[string]any{
		"Favorites":  favs,
		"UserQuotes": mine,
	})
}

func (s *Server) handleFavoritesPageRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.db.RemoveFavorite(r.PathValue("id")); err != nil && !errors.Is(err, database.ErrNotFound) {
		log.Printf("Removing favorite failed: %v", err)
	}
	http.Redirect(w, r, "/favorites", http.StatusFound)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func writeQuotes(w http.ResponseWriter, raw []quotes.RawQuote) {
	writeJSON(w, http.StatusOK, quotes.ConvertAll(raw))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Encoding response failed: %v", err)
	}
}

// Serve starts srv on the given port of the loopback interface.
func Serve(srv *Server, port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
