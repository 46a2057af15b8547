// Package host describes the boundary between the widgets and the
// application that owns the data. Widgets never reach for ambient state:
// data, field bindings and persisted settings all come in through the
// interfaces declared here.
package host

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/mahesh-hegde/vizext/app/common"
)

type Column struct {
	FieldName string          `json:"field_name"`
	DataType  common.DataType `json:"data_type"`
}

type Cell struct {
	FormattedValue string `json:"formatted_value"`
	NativeValue    any    `json:"native_value"`
}

type Row []Cell

// DataTable is a fully paged-in, already aggregated query result.
type DataTable struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
	Data    []Row    `json:"data"`
}

type ReaderOptions struct {
	IgnoreSelection bool
	// PageRowCount is the page size used while paging rows in. Zero means
	// the source default.
	PageRowCount int
}

// Reader is a scoped handle on a host query. Release must be called on
// every exit path once the reader has been acquired.
type Reader interface {
	GetAllPages(ctx context.Context) (*DataTable, error)
	Release(ctx context.Context) error
}

type DataSource interface {
	AcquireReader(ctx context.Context, opts ReaderOptions) (Reader, error)
}

// LegacyDataSource is the older single-call API. Some sources provide it
// next to the reader API.
type LegacyDataSource interface {
	SummaryData(ctx context.Context, opts ReaderOptions) (*DataTable, error)
}

// EncodingSource exposes the active visual encodings as role -> field name.
type EncodingSource interface {
	Encodings(ctx context.Context) (map[common.FieldRole]string, error)
}

// SettingsStore is the persisted key/value settings of one widget.
type SettingsStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string) error
}

// BatchSettingsStore is implemented by stores that can write several keys
// atomically. Either every key is written or none is.
type BatchSettingsStore interface {
	SettingsStore
	SetMany(ctx context.Context, values map[string]string) error
}

// SetAll writes values in one batch when store supports it, and key by key
// otherwise. The fallback can leave a partial update behind on error.
func SetAll(ctx context.Context, store SettingsStore, values map[string]string) error {
	if batch, ok := store.(BatchSettingsStore); ok {
		return batch.SetMany(ctx, values)
	}
	keys := slices.Sorted(maps.Keys(values))
	for _, k := range keys {
		if err := store.Set(ctx, k, values[k]); err != nil {
			return fmt.Errorf("failed to write setting %s: %w", k, err)
		}
	}
	return nil
}

// StaticEncodings is an EncodingSource backed by a fixed map, typically
// read from the widget configuration.
type StaticEncodings map[common.FieldRole]string

func (s StaticEncodings) Encodings(ctx context.Context) (map[common.FieldRole]string, error) {
	out := make(map[common.FieldRole]string, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out, nil
}

// ReadAll acquires a reader, pages everything in and releases the reader
// whatever happens in between.
func ReadAll(ctx context.Context, src DataSource, opts ReaderOptions) (table *DataTable, err error) {
	reader, err := src.AcquireReader(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		if relErr := reader.Release(ctx); relErr != nil && err == nil {
			err = relErr
		}
	}()
	return reader.GetAllPages(ctx)
}
