package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// DispatchRecord is one persisted accepted gesture.
type DispatchRecord struct {
	ID           string
	Gesture      string
	Action       string
	Error        string
	DispatchedAt time.Time
}

// HistoryRepository stores the dispatch history.
type HistoryRepository struct {
	db *sql.DB
}

// History returns the history repository for this store.
func (s *Store) History() *HistoryRepository {
	return &HistoryRepository{db: s.db}
}

// Record inserts rec, assigning an ID when it has none.
func (r *HistoryRepository) Record(rec *DispatchRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.DispatchedAt.IsZero() {
		rec.DispatchedAt = time.Now()
	}
	rec.DispatchedAt = rec.DispatchedAt.UTC()

	_, err := r.db.Exec(
		`INSERT INTO dispatch_log (id, gesture, action, error, dispatched_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Gesture, rec.Action, rec.Error, rec.DispatchedAt,
	)
	return err
}

// Recent returns up to limit records, newest first.
func (r *HistoryRepository) Recent(limit int) ([]*DispatchRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, gesture, action, error, dispatched_at FROM dispatch_log
		 ORDER BY dispatched_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*DispatchRecord
	for rows.Next() {
		rec := &DispatchRecord{}
		if err := rows.Scan(&rec.ID, &rec.Gesture, &rec.Action, &rec.Error, &rec.DispatchedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// Count returns the number of stored records.
func (r *HistoryRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM dispatch_log`).Scan(&n)
	return n, err
}

// Prune keeps the newest keep records and deletes the rest.
func (r *HistoryRepository) Prune(keep int) (int64, error) {
	result, err := r.db.Exec(
		`DELETE FROM dispatch_log WHERE rowid NOT IN (
			SELECT rowid FROM dispatch_log ORDER BY dispatched_at DESC, rowid DESC LIMIT ?
		)`,
		keep,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
