// Package donut turns a two-column aggregate (label, amount) into the
// slices of a donut chart.
package donut

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/mahesh-hegde/vizext/app/common"
	"github.com/mahesh-hegde/vizext/app/fields"
	"github.com/mahesh-hegde/vizext/app/host"
)

type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Dataset is the normalized, sorted input of one chart.
type Dataset struct {
	Points []Point  `json:"points"`
	Total  float64  `json:"total"`
	Fields []string `json:"fields"`
	// Legacy is set when the data came through the legacy API.
	Legacy bool `json:"legacy"`
}

// Resolver binds slice and value by encoding (exact, then substring), then
// falls back to the first text and first numeric column.
func Resolver(mode fields.MatchMode) fields.Resolver {
	return fields.Resolver{
		Roles:    []common.FieldRole{common.RoleSlice, common.RoleValue},
		Mode:     mode,
		Fallback: &fields.TypeFallback{Category: common.RoleSlice, Value: common.RoleValue},
	}
}

// typeOnlyResolver is used on the legacy path where encodings are ignored.
var typeOnlyResolver = fields.Resolver{
	Roles:    []common.FieldRole{common.RoleSlice, common.RoleValue},
	Mode:     fields.MatchExact,
	Fallback: &fields.TypeFallback{Category: common.RoleSlice, Value: common.RoleValue},
}

// Normalize reads the formatted label and the magnitude of the native value
// of every row. Rows with an empty label or a value that is not a finite,
// strictly positive magnitude are dropped. The result is sorted by value,
// largest first, keeping input order among equal values.
func Normalize(table *host.DataTable, m fields.Mapping) []Point {
	if table == nil {
		return nil
	}
	li, vi := m[common.RoleSlice], m[common.RoleValue]
	points := make([]Point, 0, len(table.Data))
	for _, row := range table.Data {
		if li >= len(row) || vi >= len(row) {
			continue
		}
		label := row[li].FormattedValue
		value := math.Abs(row[vi].Float())
		if label == "" || !host.IsFinite(value) || value <= 0 {
			continue
		}
		points = append(points, Point{Label: label, Value: value})
	}
	slices.SortStableFunc(points, func(a, b Point) int {
		return cmp.Compare(b.Value, a.Value)
	})
	return points
}

func Total(points []Point) float64 {
	var total float64
	for _, p := range points {
		total += p.Value
	}
	return total
}

// Build resolves fields and normalizes table into a Dataset.
func Build(table *host.DataTable, bindings map[common.FieldRole]string, r fields.Resolver) (Dataset, error) {
	if table == nil || len(table.Columns) == 0 || len(table.Data) == 0 {
		return Dataset{}, fmt.Errorf("%w: empty result set", common.ErrNoData)
	}
	m, err := r.Resolve(table.Columns, bindings)
	if err != nil {
		return Dataset{}, err
	}
	points := Normalize(table, m)
	if len(points) == 0 {
		return Dataset{}, fmt.Errorf("%w: all %d rows were filtered out", common.ErrNoData, len(table.Data))
	}
	total := Total(points)
	if !host.IsFinite(total) {
		return Dataset{}, fmt.Errorf("%w: total of %d values overflows", common.ErrNoData, len(points))
	}
	return Dataset{
		Points: points,
		Total:  total,
		Fields: []string{table.Columns[m[common.RoleSlice]].FieldName, table.Columns[m[common.RoleValue]].FieldName},
	}, nil
}

// Acquire reads the current summary data through the reader API and builds
// the dataset. When the reader API fails and src also implements
// host.LegacyDataSource, the legacy API is tried once, resolving fields by
// type only.
func Acquire(ctx context.Context, src host.DataSource, enc host.EncodingSource, mode fields.MatchMode) (Dataset, error) {
	opts := host.ReaderOptions{IgnoreSelection: true}
	table, err := host.ReadAll(ctx, src, opts)
	if err == nil {
		var bindings map[common.FieldRole]string
		if enc != nil {
			bindings, err = enc.Encodings(ctx)
			if err != nil {
				slog.Warn("could not read encodings, using type fallback", "err", err)
				bindings = nil
			}
		}
		return Build(table, bindings, Resolver(mode))
	}

	slog.Error("summary data reader failed", "err", err)
	legacy, ok := src.(host.LegacyDataSource)
	if !ok || ctx.Err() != nil {
		return Dataset{}, fmt.Errorf("%w: %w", common.ErrAcquisition, err)
	}
	table, legacyErr := legacy.SummaryData(ctx, opts)
	if legacyErr != nil {
		slog.Error("legacy summary data failed", "err", legacyErr)
		return Dataset{}, fmt.Errorf("%w: %w", common.ErrAcquisition, legacyErr)
	}
	ds, err := Build(table, nil, typeOnlyResolver)
	ds.Legacy = true
	return ds, err
}
