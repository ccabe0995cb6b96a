package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Binding is a stored key chord override for one action.
type Binding struct {
	Action    string
	Key       string
	Modifiers []string
	UpdatedAt time.Time
}

// KeymapRepository provides CRUD operations for key bindings.
type KeymapRepository struct {
	db *sql.DB
}

// Keymap returns the keymap repository for this store.
func (s *Store) Keymap() *KeymapRepository {
	return &KeymapRepository{db: s.db}
}

// Upsert inserts or replaces the binding for b.Action.
func (r *KeymapRepository) Upsert(b *Binding) error {
	b.UpdatedAt = time.Now().UTC()

	mods := b.Modifiers
	if mods == nil {
		mods = []string{}
	}
	modsJSON, err := json.Marshal(mods)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(
		`INSERT INTO keymap (action, key, modifiers, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(action) DO UPDATE SET key = excluded.key, modifiers = excluded.modifiers, updated_at = excluded.updated_at`,
		b.Action, b.Key, string(modsJSON), b.UpdatedAt,
	)
	return err
}

// Get retrieves the binding for action.
func (r *KeymapRepository) Get(action string) (*Binding, error) {
	b := &Binding{}
	var mods string

	err := r.db.QueryRow(
		`SELECT action, key, modifiers, updated_at FROM keymap WHERE action = ?`,
		action,
	).Scan(&b.Action, &b.Key, &mods, &b.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := decodeModifiers(mods, b); err != nil {
		return nil, err
	}
	return b, nil
}

// List retrieves all bindings ordered by action.
func (r *KeymapRepository) List() ([]*Binding, error) {
	rows, err := r.db.Query(
		`SELECT action, key, modifiers, updated_at FROM keymap ORDER BY action`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bindings []*Binding
	for rows.Next() {
		b := &Binding{}
		var mods string

		if err := rows.Scan(&b.Action, &b.Key, &mods, &b.UpdatedAt); err != nil {
			return nil, err
		}
		if err := decodeModifiers(mods, b); err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bindings, nil
}

// Delete removes the binding for action.
func (r *KeymapRepository) Delete(action string) error {
	result, err := r.db.Exec(`DELETE FROM keymap WHERE action = ?`, action)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func decodeModifiers(raw string, b *Binding) error {
	if err := json.Unmarshal([]byte(raw), &b.Modifiers); err != nil {
		return err
	}
	if len(b.Modifiers) == 0 {
		b.Modifiers = nil
	}
	return nil
}
