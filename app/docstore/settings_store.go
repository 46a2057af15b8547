package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mahesh-hegde/vizext/app/host"
)

// SQLiteSettingsStore persists the settings of every widget in one table.
type SQLiteSettingsStore struct {
	db *sql.DB
}

func NewSQLiteSettingsStore(db *sql.DB) *SQLiteSettingsStore {
	return &SQLiteSettingsStore{db: db}
}

func (s *SQLiteSettingsStore) Init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS vizext_settings (
			widget TEXT,
			key TEXT,
			value TEXT,
			PRIMARY KEY (widget, key)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create vizext_settings table: %w", err)
	}
	return nil
}

// For scopes the store to one widget.
func (s *SQLiteSettingsStore) For(widget string) host.SettingsStore {
	return &widgetSettings{db: s.db, widget: widget}
}

var _ host.BatchSettingsStore = &widgetSettings{}

type widgetSettings struct {
	db     *sql.DB
	widget string
}

func (w *widgetSettings) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := w.db.QueryRowContext(ctx,
		"SELECT value FROM vizext_settings WHERE widget = ? AND key = ?", w.widget, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (w *widgetSettings) Set(ctx context.Context, key string, value string) error {
	_, err := w.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO vizext_settings (widget, key, value) VALUES (?, ?, ?)", w.widget, key, value)
	return err
}

// SetMany writes values in one transaction.
func (w *widgetSettings) SetMany(ctx context.Context, values map[string]string) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO vizext_settings (widget, key, value) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for k, v := range values {
		if _, err := stmt.ExecContext(ctx, w.widget, k, v); err != nil {
			return fmt.Errorf("failed to write setting %s: %w", k, err)
		}
	}
	return tx.Commit()
}
