// Package bump ranks series within each period and selects the series
// that are consistently near the top, for drawing as a bump chart.
package bump

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/aclements/go-moremath/stats"
	"github.com/mahesh-hegde/vizext/app/common"
	"github.com/mahesh-hegde/vizext/app/fields"
	"github.com/mahesh-hegde/vizext/app/host"
)

type Point struct {
	Series string  `json:"series"`
	Period string  `json:"period"`
	Value  float64 `json:"value"`
	// Rank is 1-based within the period, 1 being the largest value. Zero
	// until the point has been ranked.
	Rank int `json:"rank"`
}

// Ranking is every normalized point with its rank, in input order, plus
// the distinct periods in first-seen order.
type Ranking struct {
	Points  []Point  `json:"points"`
	Periods []string `json:"periods"`
}

// Chart is what gets drawn: the points of the selected series only.
type Chart struct {
	Filtered  []Point  `json:"filtered"`
	TopSeries []string `json:"top_series"`
	Periods   []string `json:"periods"`
}

type SeriesRank struct {
	Series   string  `json:"series"`
	MeanRank float64 `json:"mean_rank"`
}

// Resolver binds series, period and value by exact field name.
var Resolver = fields.Resolver{
	Roles: []common.FieldRole{common.RoleSeries, common.RolePeriod, common.RoleValue},
	Mode:  fields.MatchExact,
}

// Normalize reads series and period from formatted values and the value
// from the native value. Rows missing series or period, or whose value is
// not a finite number, are dropped. Input order is kept.
func Normalize(table *host.DataTable, m fields.Mapping) []Point {
	if table == nil {
		return nil
	}
	si, pi, vi := m[common.RoleSeries], m[common.RolePeriod], m[common.RoleValue]
	points := make([]Point, 0, len(table.Data))
	for _, row := range table.Data {
		if si >= len(row) || pi >= len(row) || vi >= len(row) {
			continue
		}
		p := Point{
			Series: row[si].FormattedValue,
			Period: row[pi].FormattedValue,
			Value:  row[vi].Float(),
		}
		if p.Series == "" || p.Period == "" || !host.IsFinite(p.Value) {
			continue
		}
		points = append(points, p)
	}
	return points
}

// Rank groups points by period and assigns ranks 1..n within each period
// by descending value. Equal values keep input order. The returned points
// stay in input order, so first-seen order of series is preserved.
func Rank(points []Point) Ranking {
	ranked := slices.Clone(points)
	var periods []string
	groups := make(map[string][]int)
	for i, p := range ranked {
		if _, seen := groups[p.Period]; !seen {
			periods = append(periods, p.Period)
		}
		groups[p.Period] = append(groups[p.Period], i)
	}

	for _, period := range periods {
		idx := groups[period]
		slices.SortStableFunc(idx, func(a, b int) int {
			return cmp.Compare(ranked[b].Value, ranked[a].Value)
		})
		for r, i := range idx {
			ranked[i].Rank = r + 1
		}
	}
	return Ranking{Points: ranked, Periods: periods}
}

// MeanRanks averages each series' ranks over the periods it appears in,
// ordered by ascending mean rank. Ties keep first-seen order.
func MeanRanks(ranked []Point) []SeriesRank {
	var order []string
	ranks := make(map[string][]float64)
	for _, p := range ranked {
		if _, seen := ranks[p.Series]; !seen {
			order = append(order, p.Series)
		}
		ranks[p.Series] = append(ranks[p.Series], float64(p.Rank))
	}

	out := make([]SeriesRank, len(order))
	for i, s := range order {
		out[i] = SeriesRank{Series: s, MeanRank: stats.Mean(ranks[s])}
	}
	slices.SortStableFunc(out, func(a, b SeriesRank) int {
		return cmp.Compare(a.MeanRank, b.MeanRank)
	})
	return out
}

// SelectTop returns at most maxLines series with the lowest mean rank.
func SelectTop(ranked []Point, maxLines int) []string {
	means := MeanRanks(ranked)
	n := min(max(maxLines, 0), len(means))
	top := make([]string, n)
	for i := range top {
		top[i] = means[i].Series
	}
	return top
}

// Select keeps only the points of the top maxLines series.
func (r Ranking) Select(maxLines int) Chart {
	top := SelectTop(r.Points, maxLines)
	keep := make(map[string]struct{}, len(top))
	for _, s := range top {
		keep[s] = struct{}{}
	}
	filtered := make([]Point, 0, len(r.Points))
	for _, p := range r.Points {
		if _, ok := keep[p.Series]; ok {
			filtered = append(filtered, p)
		}
	}
	return Chart{Filtered: filtered, TopSeries: top, Periods: r.Periods}
}

// Build resolves fields, normalizes and ranks table. Selection is left to
// the caller so that it can be redone when settings change.
func Build(table *host.DataTable, bindings map[common.FieldRole]string) (Ranking, error) {
	if table == nil || len(table.Columns) == 0 || len(table.Data) == 0 {
		return Ranking{}, fmt.Errorf("%w: empty result set", common.ErrNoData)
	}
	m, err := Resolver.Resolve(table.Columns, bindings)
	if err != nil {
		return Ranking{}, err
	}
	points := Normalize(table, m)
	if len(points) == 0 {
		return Ranking{}, fmt.Errorf("%w: all %d rows were filtered out", common.ErrNoData, len(table.Data))
	}
	return Rank(points), nil
}

// Series returns the points of one series in period order, skipping
// periods where it has no point.
func (c Chart) Series(name string) []Point {
	byPeriod := make(map[string]Point)
	for _, p := range c.Filtered {
		if p.Series == name {
			if _, dup := byPeriod[p.Period]; !dup {
				byPeriod[p.Period] = p
			}
		}
	}
	out := make([]Point, 0, len(byPeriod))
	for _, period := range c.Periods {
		if p, ok := byPeriod[period]; ok {
			out = append(out, p)
		}
	}
	return out
}

// MaxRank is the deepest rank among the selected points, at least 1. A
// selected series keeps its rank within the full period, so this can exceed
// the number of selected series.
func (c Chart) MaxRank() int {
	deepest := 1
	for _, p := range c.Filtered {
		deepest = max(deepest, p.Rank)
	}
	return deepest
}
