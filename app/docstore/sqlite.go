package docstore

import (
	"database/sql"
	"log/slog"
	"path/filepath"
)

const dbFileName = "vizext.db"

// NewSQLiteDB creates a new SQLite DB connection.
func NewSQLiteDB(dataDir string, readonly bool) (*sql.DB, error) {
	dbPath := filepath.Join(dataDir, dbFileName)
	if readonly {
		dbPath = dbPath + "?mode=ro&_journal_mode=OFF"
	}
	slog.Info("opening SQLite DB", "dbPath", dbPath)
	db, err := sql.Open(SQLiteDriverName, dbPath)
	if err != nil {
		return nil, err
	}
	return db, nil
}
