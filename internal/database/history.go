package database

// AddToHistory records a viewed quote. Viewing a quote again moves it to
// the front; only the HistoryLimit most recent entries are kept.
func (db *DB) AddToHistory(q HistoryQuote) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM history WHERE id = ?`, q.ID); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO history (id, text, author, category) VALUES (?, ?, ?, ?)`,
		q.ID, q.Text, q.Author, q.Category,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`DELETE FROM history WHERE rowid NOT IN (SELECT rowid FROM history ORDER BY rowid DESC LIMIT ?)`,
		HistoryLimit,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// GetHistory returns viewed quotes, most recent first.
func (db *DB) GetHistory() ([]HistoryQuote, error) {
	rows, err := db.conn.Query(
		`SELECT id, text, author, category, viewed_at FROM history ORDER BY rowid DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryQuote
	for rows.Next() {
		var h HistoryQuote
		if err := rows.Scan(&h.ID, &h.Text, &h.Author, &h.Category, &h.ViewedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ClearHistory deletes all history.
func (db *DB) ClearHistory() error {
	_, err := db.conn.Exec(`DELETE FROM history`)
	return err
}
