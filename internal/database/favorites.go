package database

// AddFavorite saves a quote. Saving an id that is already a favorite is a
// no-op.
func (db *DB) AddFavorite(q FavoriteQuote) error {
	_, err := db.conn.Exec(
		`INSERT OR IGNORE INTO favorites (id, text, author, category) VALUES (?, ?, ?, ?)`,
		q.ID, q.Text, q.Author, q.Category,
	)
	return err
}

// RemoveFavorite deletes a favorite by id.
func (db *DB) RemoveFavorite(id string) error {
	res, err := db.conn.Exec(`DELETE FROM favorites WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// IsFavorite reports whether id is saved.
func (db *DB) IsFavorite(id string) (bool, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM favorites WHERE id = ?`, id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ToggleFavorite saves q if it is not a favorite and removes it otherwise.
// It returns the new state.
func (db *DB) ToggleFavorite(q FavoriteQuote) (bool, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM favorites WHERE id = ?`, q.ID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		if _, err := tx.Exec(
			`INSERT INTO favorites (id, text, author, category) VALUES (?, ?, ?, ?)`,
			q.ID, q.Text, q.Author, q.Category,
		); err != nil {
			return false, err
		}
	}
	return n == 0, tx.Commit()
}

// GetFavorites returns all favorites, most recently saved first.
func (db *DB) GetFavorites() ([]FavoriteQuote, error) {
	rows, err := db.conn.Query(
		`SELECT id, text, author, category, saved_at FROM favorites ORDER BY rowid DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var favs []FavoriteQuote
	for rows.Next() {
		var f FavoriteQuote
		if err := rows.Scan(&f.ID, &f.Text, &f.Author, &f.Category, &f.SavedAt); err != nil {
			return nil, err
		}
		favs = append(favs, f)
	}
	return favs, rows.Err()
}

// ClearFavorites deletes every favorite.
func (db *DB) ClearFavorites() error {
	_, err := db.conn.Exec(`DELETE FROM favorites`)
	return err
}
