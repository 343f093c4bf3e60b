package database

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// AddUserQuote stores a quote written by the user and returns it.
// An empty author is recorded as DefaultUserAuthor.
func (db *DB) AddUserQuote(text, author string) (*UserQuote, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("quote text is empty")
	}
	author = strings.TrimSpace(author)
	if author == "" {
		author = DefaultUserAuthor
	}

	id := newUserQuoteID()
	if _, err := db.conn.Exec(
		`INSERT INTO user_quotes (id, text, author) VALUES (?, ?, ?)`,
		id, text, author,
	); err != nil {
		return nil, err
	}

	var q UserQuote
	err := db.conn.QueryRow(
		`SELECT id, text, author, created_at FROM user_quotes WHERE id = ?`, id,
	).Scan(&q.ID, &q.Text, &q.Author, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// RemoveUserQuote deletes a user quote by id.
func (db *DB) RemoveUserQuote(id string) error {
	res, err := db.conn.Exec(`DELETE FROM user_quotes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// EditUserQuote replaces the text and author of a user quote.
func (db *DB) EditUserQuote(id, text, author string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("quote text is empty")
	}
	author = strings.TrimSpace(author)
	if author == "" {
		author = DefaultUserAuthor
	}

	res, err := db.conn.Exec(
		`UPDATE user_quotes SET text = ?, author = ? WHERE id = ?`, text, author, id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUserQuotes returns all user quotes, newest first.
func (db *DB) GetUserQuotes() ([]UserQuote, error) {
	rows, err := db.conn.Query(
		`SELECT id, text, author, created_at FROM user_quotes ORDER BY rowid DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserQuote
	for rows.Next() {
		var q UserQuote
		if err := rows.Scan(&q.ID, &q.Text, &q.Author, &q.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func newUserQuoteID() string {
	return fmt.Sprintf("user-%d-%s", time.Now().UnixMilli(), strconv.FormatUint(rand.Uint64N(1<<36), 36))
}
