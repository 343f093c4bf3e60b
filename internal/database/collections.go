package database

import (
	"log"

	"github.com/TobiSchelling/quotefeed/internal/mix"
	"github.com/TobiSchelling/quotefeed/internal/quotes"
)

// Favorites lists saved quotes for the mix composer. Read errors are logged
// and yield an empty collection.
func (db *DB) Favorites() []mix.Favorite {
	favs, err := db.GetFavorites()
	if err != nil {
		log.Printf("Loading favorites failed: %v", err)
		return nil
	}
	out := make([]mix.Favorite, 0, len(favs))
	for _, f := range favs {
		out = append(out, mix.Favorite{ID: f.ID, Text: f.Text, Author: f.Author, Category: f.Category})
	}
	return out
}

// UserQuotes lists the user's own quotes for the mix composer.
func (db *DB) UserQuotes() []mix.UserQuote {
	mine, err := db.GetUserQuotes()
	if err != nil {
		log.Printf("Loading user quotes failed: %v", err)
		return nil
	}
	out := make([]mix.UserQuote, 0, len(mine))
	for _, u := range mine {
		out = append(out, mix.UserQuote{ID: u.ID, Text: u.Text, Author: u.Author})
	}
	return out
}

// Record adds a surfaced quote to the view history.
func (db *DB) Record(q quotes.DisplayQuote) {
	err := db.AddToHistory(HistoryQuote{ID: q.ID, Text: q.Text, Author: q.Author, Category: q.Category})
	if err != nil {
		log.Printf("Recording history failed: %v", err)
	}
}
