package database

import "errors"

// ErrNotFound is returned when an update or delete matches no row.
var ErrNotFound = errors.New("not found")

// HistoryLimit is the number of most recently viewed quotes kept.
const HistoryLimit = 100

// DefaultUserAuthor is the author recorded for user quotes without one.
const DefaultUserAuthor = "Me"

// FavoriteQuote is a quote the user saved.
type FavoriteQuote struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Author   string `json:"author"`
	Category string `json:"category"`
	SavedAt  string `json:"savedAt"`
}

// UserQuote is a quote the user wrote.
type UserQuote struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Author    string `json:"author"`
	CreatedAt string `json:"createdAt"`
}

// HistoryQuote is a quote the user has viewed.
type HistoryQuote struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Author   string `json:"author"`
	Category string `json:"category"`
	ViewedAt string `json:"viewedAt"`
}

// MixSelection is the persisted set of categories for mix mode.
type MixSelection struct {
	Categories []string `json:"categories"`
	Active     bool     `json:"active"`
}

// Stats contains aggregate store statistics.
type Stats struct {
	Favorites     int
	UserQuotes    int
	History       int
	MixCategories int
	MixActive     bool
}
