package docstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mahesh-hegde/vizext/app/common"
	"github.com/mahesh-hegde/vizext/app/config"
	"github.com/mahesh-hegde/vizext/app/host"
	"github.com/xuri/excelize/v2"
)

// LoadXLSX reads one sheet of an Excel workbook. The first row holds the
// field names; column types are inferred from the remaining rows.
func LoadXLSX(path string, sheet string) (*host.DataTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheet)
	}

	header := rows[0]
	raw := make([][]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		padded := make([]string, len(header))
		copy(padded, r)
		if strings.Join(padded, "") == "" {
			continue
		}
		raw = append(raw, padded)
	}

	table := &host.DataTable{Columns: make([]host.Column, len(header))}
	for i, name := range header {
		values := make([]string, len(raw))
		for j, r := range raw {
			values[j] = r[i]
		}
		table.Columns[i] = host.Column{FieldName: strings.TrimSpace(name), DataType: inferType(values)}
	}
	for _, r := range raw {
		row := make(host.Row, len(header))
		for i, v := range r {
			row[i] = textCell(v, table.Columns[i].DataType)
		}
		table.Data = append(table.Data, row)
	}
	return table, nil
}

func inferType(values []string) common.DataType {
	isInt, isFloat, isBool, seen := true, true, true, false
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		seen = true
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			isInt = false
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			isFloat = false
		}
		if l := strings.ToLower(v); l != "true" && l != "false" {
			isBool = false
		}
	}
	switch {
	case !seen:
		return common.TypeUnknown
	case isInt:
		return common.TypeInt
	case isFloat:
		return common.TypeFloat
	case isBool:
		return common.TypeBool
	}
	return common.TypeString
}

func textCell(v string, dt common.DataType) host.Cell {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return host.Cell{FormattedValue: v}
	}
	switch dt {
	case common.TypeInt, common.TypeFloat:
		f, _ := strconv.ParseFloat(trimmed, 64)
		return host.Cell{FormattedValue: v, NativeValue: f}
	case common.TypeBool:
		return host.Cell{FormattedValue: v, NativeValue: strings.EqualFold(trimmed, "true")}
	}
	return host.Cell{FormattedValue: v, NativeValue: v}
}

type jsonWorksheet struct {
	Columns []host.Column `json:"columns"`
	Rows    [][]any       `json:"rows"`
}

// LoadJSON reads a worksheet stored as {"columns": [...], "rows": [[...]]}.
// Columns without a data_type get one inferred from their values.
func LoadJSON(path string) (*host.DataTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file %s: %w", path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var ws jsonWorksheet
	if err := dec.Decode(&ws); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if len(ws.Columns) == 0 {
		return nil, fmt.Errorf("%s declares no columns", path)
	}

	table := &host.DataTable{Columns: ws.Columns}
	for i, r := range ws.Rows {
		if len(r) != len(ws.Columns) {
			return nil, fmt.Errorf("%s: row %d has %d values, expected %d", path, i, len(r), len(ws.Columns))
		}
		row := make(host.Row, len(r))
		for j, v := range r {
			row[j] = jsonCell(v)
		}
		table.Data = append(table.Data, row)
	}
	for i := range table.Columns {
		if table.Columns[i].DataType != "" {
			continue
		}
		values := make([]string, len(table.Data))
		for j, row := range table.Data {
			values[j] = row[i].FormattedValue
		}
		table.Columns[i].DataType = inferType(values)
	}
	return table, nil
}

func jsonCell(v any) host.Cell {
	switch v := v.(type) {
	case nil:
		return host.Cell{}
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return host.Cell{FormattedValue: v.String(), NativeValue: v.String()}
		}
		return host.Cell{FormattedValue: v.String(), NativeValue: f}
	case bool:
		return host.Cell{FormattedValue: strconv.FormatBool(v), NativeValue: v}
	case string:
		return host.Cell{FormattedValue: v, NativeValue: v}
	}
	return host.Cell{FormattedValue: fmt.Sprint(v), NativeValue: fmt.Sprint(v)}
}

// LoadWorksheetFile picks the loader by file extension.
func LoadWorksheetFile(dataDir string, ws config.WorksheetDefn) (*host.DataTable, error) {
	path := filepath.Join(dataDir, ws.DataFile)
	var table *host.DataTable
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		table, err = LoadXLSX(path, ws.Sheet)
	case ".json":
		table, err = LoadJSON(path)
	default:
		return nil, fmt.Errorf("unsupported data file %s", ws.DataFile)
	}
	if err != nil {
		return nil, err
	}
	table.Name = ws.Name
	return table, nil
}

// ImportWorksheets loads every configured worksheet into the store.
func ImportWorksheets(ctx context.Context, store *SQLiteWorksheetStore, conf *config.VizextConfig) error {
	for _, ws := range conf.Worksheets {
		slog.Info("importing worksheet", "name", ws.Name, "file", ws.DataFile)
		table, err := LoadWorksheetFile(conf.DataDir, ws)
		if err != nil {
			return fmt.Errorf("failed to load worksheet %s: %w", ws.Name, err)
		}
		info := WorksheetInfo{Name: ws.Name, ReadableName: ws.ReadableName, Description: ws.Description}
		if err := store.Replace(ctx, info, table); err != nil {
			return fmt.Errorf("failed to store worksheet %s: %w", ws.Name, err)
		}
		slog.Info("imported worksheet", "name", ws.Name, "rows", len(table.Data), "columns", len(table.Columns))
	}
	return nil
}

// Stores bundles the SQLite-backed stores sharing one database.
type Stores struct {
	DB         *sql.DB
	Worksheets *SQLiteWorksheetStore
	Settings   *SQLiteSettingsStore
	// Imported is set when InitDB created the database and imported the
	// worksheets into it.
	Imported bool
}

func (s *Stores) Close() error {
	return s.DB.Close()
}

// InitDB opens vizext.db in the data directory. A database that does not
// exist yet is created and the configured worksheets are imported into it.
func InitDB(ctx context.Context, conf *config.VizextConfig) (*Stores, error) {
	dbPath := filepath.Join(conf.DataDir, dbFileName)
	_, statErr := os.Stat(dbPath)
	if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
		return nil, fmt.Errorf("error checking sqlite db: %w", statErr)
	}
	fresh := statErr != nil

	db, err := NewSQLiteDB(conf.DataDir, false)
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite db: %w", err)
	}
	stores := &Stores{
		DB:         db,
		Worksheets: NewSQLiteWorksheetStore(db),
		Settings:   NewSQLiteSettingsStore(db),
	}
	if err := stores.Worksheets.Init(); err != nil {
		db.Close()
		return nil, err
	}
	if err := stores.Settings.Init(); err != nil {
		db.Close()
		return nil, err
	}
	if fresh {
		if err := ImportWorksheets(ctx, stores.Worksheets, conf); err != nil {
			db.Close()
			os.Remove(dbPath)
			return nil, fmt.Errorf("error loading initial data into sqlite: %w", err)
		}
		stores.Imported = true
	}
	return stores, nil
}
