package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// GetMixSelection returns the stored mix selection.
func (db *DB) GetMixSelection() (*MixSelection, error) {
	return getMix(db.conn)
}

// SetMixCategories replaces the selection. Blank and repeated ids are
// dropped; the mix is active exactly when what remains is non-empty.
func (db *DB) SetMixCategories(ids []string) error {
	ids = dedupe(ids)
	return putMix(db.conn, ids, len(ids) > 0)
}

// ToggleMixCategory adds id to the selection or removes it if present and
// returns the resulting selection.
func (db *DB) ToggleMixCategory(id string) (*MixSelection, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	cur, err := getMix(tx)
	if err != nil {
		return nil, err
	}
	next := make([]string, 0, len(cur.Categories)+1)
	found := false
	for _, c := range cur.Categories {
		if c == id {
			found = true
			continue
		}
		next = append(next, c)
	}
	if !found {
		next = append(next, id)
	}
	if err := putMix(tx, next, len(next) > 0); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &MixSelection{Categories: next, Active: len(next) > 0}, nil
}

// ClearMix empties and deactivates the selection.
func (db *DB) ClearMix() error {
	return putMix(db.conn, nil, false)
}

// SetMixActive switches mix mode on or off without touching the selection.
func (db *DB) SetMixActive(active bool) error {
	_, err := db.conn.Exec(
		`UPDATE mix_selection SET active = ?, updated_at = datetime('now') WHERE id = 1`, active,
	)
	return err
}

type querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

func getMix(q querier) (*MixSelection, error) {
	var (
		raw    string
		active bool
	)
	err := q.QueryRow(`SELECT categories, active FROM mix_selection WHERE id = 1`).Scan(&raw, &active)
	if err == sql.ErrNoRows {
		return &MixSelection{Categories: []string{}}, nil
	}
	if err != nil {
		return nil, err
	}
	sel := &MixSelection{Active: active}
	if err := json.Unmarshal([]byte(raw), &sel.Categories); err != nil {
		return nil, fmt.Errorf("decoding mix categories: %w", err)
	}
	if sel.Categories == nil {
		sel.Categories = []string{}
	}
	return sel, nil
}

func putMix(q querier, ids []string, active bool) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	_, err = q.Exec(
		`INSERT INTO mix_selection (id, categories, active) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET categories = excluded.categories, active = excluded.active, updated_at = datetime('now')`,
		string(data), active,
	)
	return err
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
