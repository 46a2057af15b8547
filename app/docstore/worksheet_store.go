package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mahesh-hegde/vizext/app/host"
)

var ErrNoSuchWorksheet = errors.New("no such worksheet")

const defaultPageRowCount = 1000

// WorksheetInfo is the catalog row of an imported worksheet.
type WorksheetInfo struct {
	Name         string        `json:"name"`
	ReadableName string        `json:"readable_name"`
	Description  string        `json:"description"`
	Columns      []host.Column `json:"columns"`
	RowCount     int           `json:"row_count"`
	ImportedAt   time.Time     `json:"imported_at"`
}

// SQLiteWorksheetStore keeps imported worksheets as JSON-encoded rows.
type SQLiteWorksheetStore struct {
	db *sql.DB
}

func NewSQLiteWorksheetStore(db *sql.DB) *SQLiteWorksheetStore {
	return &SQLiteWorksheetStore{db: db}
}

func (s *SQLiteWorksheetStore) Init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS vizext_worksheets (
			name TEXT PRIMARY KEY,
			readable_name TEXT,
			description TEXT,
			columns BLOB,
			row_count INTEGER,
			imported_at TEXT
		);
		CREATE TABLE IF NOT EXISTS vizext_rows (
			worksheet TEXT,
			row_index INTEGER,
			cells BLOB,
			PRIMARY KEY (worksheet, row_index)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create worksheet tables: %w", err)
	}
	return nil
}

// Replace stores table as the new content of the named worksheet, dropping
// whatever was imported before.
func (s *SQLiteWorksheetStore) Replace(ctx context.Context, info WorksheetInfo, table *host.DataTable) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM vizext_rows WHERE worksheet = ?", info.Name); err != nil {
		return err
	}
	colsJSON, err := json.Marshal(table.Columns)
	if err != nil {
		return fmt.Errorf("failed to json encode columns: %w", err)
	}
	if info.ImportedAt.IsZero() {
		info.ImportedAt = time.Now()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO vizext_worksheets (name, readable_name, description, columns, row_count, imported_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		info.Name, info.ReadableName, info.Description, colsJSON, len(table.Data), info.ImportedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO vizext_rows (worksheet, row_index, cells) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range table.Data {
		if len(row) != len(table.Columns) {
			return fmt.Errorf("row %d has %d cells, expected %d", i, len(row), len(table.Columns))
		}
		cellsJSON, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to json encode row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, info.Name, i, cellsJSON); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteWorksheetStore) List(ctx context.Context) ([]WorksheetInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, readable_name, description, columns, row_count, imported_at FROM vizext_worksheets ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []WorksheetInfo
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *SQLiteWorksheetStore) Get(ctx context.Context, name string) (WorksheetInfo, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT name, readable_name, description, columns, row_count, imported_at FROM vizext_worksheets WHERE name = ?", name)
	info, err := scanInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return WorksheetInfo{}, fmt.Errorf("%w: %s", ErrNoSuchWorksheet, name)
	}
	return info, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInfo(sc scanner) (WorksheetInfo, error) {
	var info WorksheetInfo
	var colsJSON []byte
	var importedAt string
	if err := sc.Scan(&info.Name, &info.ReadableName, &info.Description, &colsJSON, &info.RowCount, &importedAt); err != nil {
		return info, err
	}
	if err := json.Unmarshal(colsJSON, &info.Columns); err != nil {
		return info, fmt.Errorf("failed to decode columns of %s: %w", info.Name, err)
	}
	info.ImportedAt, _ = time.Parse(time.RFC3339, importedAt)
	return info, nil
}

// Source returns the named worksheet as a widget data source. pageRowCount
// of 0 uses the default page size.
func (s *SQLiteWorksheetStore) Source(name string, pageRowCount int) *WorksheetSource {
	if pageRowCount <= 0 {
		pageRowCount = defaultPageRowCount
	}
	return &WorksheetSource{store: s, name: name, pageRowCount: pageRowCount}
}

// WorksheetSource serves one worksheet through both the reader API and the
// legacy single-call API.
type WorksheetSource struct {
	store        *SQLiteWorksheetStore
	name         string
	pageRowCount int
}

var (
	_ host.DataSource       = &WorksheetSource{}
	_ host.LegacyDataSource = &WorksheetSource{}
)

// AcquireReader pins a connection for the lifetime of the reader so that
// all pages come from the same connection.
func (w *WorksheetSource) AcquireReader(ctx context.Context, opts host.ReaderOptions) (host.Reader, error) {
	info, err := w.store.Get(ctx, w.name)
	if err != nil {
		return nil, err
	}
	conn, err := w.store.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	pageSize := w.pageRowCount
	if opts.PageRowCount > 0 {
		pageSize = opts.PageRowCount
	}
	return &worksheetReader{conn: conn, info: info, pageSize: pageSize}, nil
}

func (w *WorksheetSource) SummaryData(ctx context.Context, opts host.ReaderOptions) (*host.DataTable, error) {
	info, err := w.store.Get(ctx, w.name)
	if err != nil {
		return nil, err
	}
	rows, err := w.store.db.QueryContext(ctx,
		"SELECT cells FROM vizext_rows WHERE worksheet = ? ORDER BY row_index", w.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	table := &host.DataTable{Name: info.Name, Columns: info.Columns}
	if _, err := appendRows(table, rows); err != nil {
		return nil, err
	}
	return table, nil
}

type worksheetReader struct {
	conn     *sql.Conn
	info     WorksheetInfo
	pageSize int
	released bool
}

func (r *worksheetReader) GetAllPages(ctx context.Context) (*host.DataTable, error) {
	if r.released {
		return nil, host.ErrReleased
	}
	table := &host.DataTable{Name: r.info.Name, Columns: r.info.Columns}
	for offset := 0; ; offset += r.pageSize {
		rows, err := r.conn.QueryContext(ctx,
			"SELECT cells FROM vizext_rows WHERE worksheet = ? ORDER BY row_index LIMIT ? OFFSET ?",
			r.info.Name, r.pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to read page at %d: %w", offset, err)
		}
		n, err := appendRows(table, rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		if n < r.pageSize {
			return table, nil
		}
	}
}

func (r *worksheetReader) Release(ctx context.Context) error {
	if r.released {
		return host.ErrReleased
	}
	r.released = true
	return r.conn.Close()
}

func appendRows(table *host.DataTable, rows *sql.Rows) (int, error) {
	n := 0
	for rows.Next() {
		var cellsJSON []byte
		if err := rows.Scan(&cellsJSON); err != nil {
			return n, err
		}
		var row host.Row
		if err := json.Unmarshal(cellsJSON, &row); err != nil {
			return n, fmt.Errorf("failed to decode row: %w", err)
		}
		table.Data = append(table.Data, row)
		n++
	}
	return n, rows.Err()
}
