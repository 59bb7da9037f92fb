package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
)

// ErrKeyNotFound is returned when a metadata key has never been written.
var ErrKeyNotFound = errors.New("metadata key not found")

// GetMetadata retrieves a metadata value by key.
// Returns ErrKeyNotFound if the key doesn't exist.
func (d *Database) GetMetadata(ctx context.Context, key string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value string
	err := d.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read %q: %w", key, err)
	}
	return value, nil
}

// SetMetadataBatch writes all entries in a single transaction, so readers
// never observe a partially written state.
func (d *Database) SetMetadataBatch(ctx context.Context, entries map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, strftime('%s', 'now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`)
	if err != nil {
		return errors.Join(fmt.Errorf("prepare upsert: %w", err), tx.Rollback())
	}
	defer stmt.Close()

	// Deterministic write order keeps lock acquisition predictable
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := stmt.ExecContext(ctx, k, entries[k]); err != nil {
			return errors.Join(fmt.Errorf("write %q: %w", k, err), tx.Rollback())
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DeleteMetadata removes the given keys. Missing keys are ignored.
func (d *Database) DeleteMetadata(ctx context.Context, keys ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, "DELETE FROM metadata WHERE key = ?", k); err != nil {
			return errors.Join(fmt.Errorf("delete %q: %w", k, err), tx.Rollback())
		}
	}
	return tx.Commit()
}
