package bump

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/mahesh-hegde/vizext/app/common"
	"github.com/mahesh-hegde/vizext/app/fields"
	"github.com/mahesh-hegde/vizext/app/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(series, period string, v float64) Point {
	return Point{Series: series, Period: period, Value: v}
}

func TestRank_TwoPeriods(t *testing.T) {
	r := Rank([]Point{
		pt("X", "2021", 10),
		pt("Y", "2021", 20),
		pt("X", "2022", 30),
		pt("Y", "2022", 5),
	})
	assert.Equal(t, []string{"2021", "2022"}, r.Periods)
	assert.Equal(t, []Point{
		{"X", "2021", 10, 2},
		{"Y", "2021", 20, 1},
		{"X", "2022", 30, 1},
		{"Y", "2022", 5, 2},
	}, r.Points)

	means := MeanRanks(r.Points)
	assert.Equal(t, []SeriesRank{{"X", 1.5}, {"Y", 1.5}}, means)
	assert.Equal(t, []string{"X"}, SelectTop(r.Points, 1))

	// Same data, Y seen first: Y wins the tie.
	r = Rank([]Point{
		pt("Y", "2021", 20),
		pt("X", "2021", 10),
		pt("X", "2022", 30),
		pt("Y", "2022", 5),
	})
	assert.Equal(t, []string{"Y", "X"}, SelectTop(r.Points, 6))
}

func TestRank_TiesKeepInputOrder(t *testing.T) {
	r := Rank([]Point{pt("a", "p", 5), pt("b", "p", 5), pt("c", "p", 9)})
	ranks := map[string]int{}
	for _, p := range r.Points {
		ranks[p.Series] = p.Rank
	}
	assert.Equal(t, map[string]int{"c": 1, "a": 2, "b": 3}, ranks)
}

func TestRank_SingleSeriesPeriod(t *testing.T) {
	r := Rank([]Point{pt("solo", "Q1", -4)})
	require.Len(t, r.Points, 1)
	assert.Equal(t, 1, r.Points[0].Rank)
}

func TestRank_DoesNotModifyInput(t *testing.T) {
	in := []Point{pt("a", "p", 1), pt("b", "p", 2)}
	Rank(in)
	assert.Zero(t, in[0].Rank)
	assert.Zero(t, in[1].Rank)
}

func TestMeanRanks_AbsentPeriodsDoNotCount(t *testing.T) {
	// "late" only shows up in the last period, where it is first.
	r := Rank([]Point{
		pt("steady", "1", 10), pt("other", "1", 5),
		pt("steady", "2", 10), pt("other", "2", 5),
		pt("steady", "3", 10), pt("other", "3", 5), pt("late", "3", 100),
	})
	means := MeanRanks(r.Points)
	assert.Equal(t, "late", means[0].Series)
	assert.Equal(t, 1.0, means[0].MeanRank)
	assert.InDelta(t, 4.0/3, means[1].MeanRank, 1e-9)
	assert.InDelta(t, 7.0/3, means[2].MeanRank, 1e-9)
}

func randomPoints(rng *rand.Rand) []Point {
	nSeries := 1 + rng.Intn(12)
	nPeriods := 1 + rng.Intn(8)
	var points []Point
	for p := 0; p < nPeriods; p++ {
		for s := 0; s < nSeries; s++ {
			if rng.Intn(4) == 0 {
				continue // series absent from this period
			}
			// small value range so ties are common
			points = append(points, pt(fmt.Sprintf("s%d", s), fmt.Sprintf("p%d", p), float64(rng.Intn(5))))
		}
	}
	rng.Shuffle(len(points), func(i, j int) { points[i], points[j] = points[j], points[i] })
	return points
}

func TestRank_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 300; iter++ {
		points := randomPoints(rng)
		r := Rank(points)

		// ranks within a period are exactly 1..k
		byPeriod := map[string][]int{}
		series := map[string]struct{}{}
		for _, p := range r.Points {
			byPeriod[p.Period] = append(byPeriod[p.Period], p.Rank)
			series[p.Series] = struct{}{}
		}
		for period, ranks := range byPeriod {
			slices.Sort(ranks)
			for i, rank := range ranks {
				require.Equal(t, i+1, rank, "period %s", period)
			}
		}

		// rank 1 holds the largest value
		for _, p := range r.Points {
			if p.Rank != 1 {
				continue
			}
			for _, q := range r.Points {
				if q.Period == p.Period {
					require.LessOrEqual(t, q.Value, p.Value)
				}
			}
		}

		maxLines := 1 + rng.Intn(8)
		top := SelectTop(r.Points, maxLines)
		assert.Len(t, top, min(maxLines, len(series)))
		assert.Equal(t, top, SelectTop(r.Points, maxLines), "selection must be deterministic")

		chart := r.Select(maxLines)
		assert.Equal(t, top, chart.TopSeries)
		for _, p := range chart.Filtered {
			assert.Contains(t, top, p.Series)
		}
	}
}

func TestSelect_FewerSeriesThanMax(t *testing.T) {
	r := Rank([]Point{pt("a", "1", 3), pt("b", "1", 2)})
	c := r.Select(6)
	assert.Equal(t, []string{"a", "b"}, c.TopSeries)
	assert.Len(t, c.Filtered, 2)
	assert.Equal(t, []string{"1"}, c.Periods)
}

func TestSelect_DropsOtherSeries(t *testing.T) {
	r := Rank([]Point{
		pt("a", "1", 30), pt("b", "1", 20), pt("c", "1", 10),
		pt("a", "2", 10), pt("b", "2", 30), pt("c", "2", 20),
	})
	// mean ranks: a=2, b=1.5, c=2.5
	c := r.Select(2)
	assert.Equal(t, []string{"b", "a"}, c.TopSeries)
	for _, p := range c.Filtered {
		assert.NotEqual(t, "c", p.Series)
	}
	assert.Len(t, c.Filtered, 4)
	// ranks are the full-set ranks, not re-ranked after filtering
	assert.Equal(t, []Point{{"b", "1", 20, 2}, {"b", "2", 30, 1}}, c.Series("b"))
}

func TestChartSeries_PeriodOrder(t *testing.T) {
	c := Chart{
		Filtered: []Point{{"a", "2", 1, 1}, {"a", "1", 1, 1}, {"a", "3", 1, 1}},
		Periods:  []string{"1", "2", "3"},
	}
	got := c.Series("a")
	require.Len(t, got, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{got[0].Period, got[1].Period, got[2].Period})
	assert.Empty(t, c.Series("missing"))
}

func bumpTable(rows ...host.Row) *host.DataTable {
	return &host.DataTable{
		Columns: []host.Column{
			{FieldName: "Team", DataType: common.TypeString},
			{FieldName: "Season", DataType: common.TypeString},
			{FieldName: "Points", DataType: common.TypeInt},
		},
		Data: rows,
	}
}

func brow(series, period string, v any) host.Row {
	return host.Row{{FormattedValue: series}, {FormattedValue: period}, {NativeValue: v}}
}

var bumpEncodings = host.StaticEncodings{
	common.RoleSeries: "Team",
	common.RolePeriod: "Season",
	common.RoleValue:  "Points",
}

func TestNormalize(t *testing.T) {
	m := fields.Mapping{common.RoleSeries: 0, common.RolePeriod: 1, common.RoleValue: 2}
	points := Normalize(bumpTable(
		brow("A", "2020", 3),
		brow("", "2020", 1),
		brow("B", "", 1),
		brow("C", "2020", math.NaN()),
		brow("D", "2020", "n/a"),
		brow("E", "2020", -2.5),
		brow("F", "2020", 0),
	), m)
	assert.Equal(t, []Point{pt("A", "2020", 3), pt("E", "2020", -2.5), pt("F", "2020", 0)}, points)
	for _, p := range points {
		assert.NotEmpty(t, p.Series)
		assert.NotEmpty(t, p.Period)
		assert.True(t, host.IsFinite(p.Value))
	}
}

func TestAcquire(t *testing.T) {
	ctx := context.Background()
	src := &host.MemorySource{Table: bumpTable(
		brow("X", "2021", 10), brow("Y", "2021", 20),
		brow("X", "2022", 30), brow("Y", "2022", 5),
	)}
	r, err := Acquire(ctx, src, bumpEncodings)
	require.NoError(t, err)
	assert.Equal(t, []string{"2021", "2022"}, r.Periods)
	assert.Equal(t, []string{"X", "Y"}, r.Select(6).TopSeries)
	assert.Equal(t, 0, src.Outstanding())
}

func TestAcquire_MissingEncodingSkipsQuery(t *testing.T) {
	src := &host.MemorySource{Table: bumpTable(brow("X", "2021", 10))}
	_, err := Acquire(context.Background(), src, host.StaticEncodings{common.RoleSeries: "Team"})
	assert.ErrorIs(t, err, common.ErrUnresolved)
	assert.Equal(t, 0, src.Acquired())

	_, err = Acquire(context.Background(), src, nil)
	assert.ErrorIs(t, err, common.ErrUnresolved)
}

func TestAcquire_Failures(t *testing.T) {
	ctx := context.Background()

	src := &host.MemorySource{ReadErr: errors.New("page 2 failed")}
	_, err := Acquire(ctx, src, bumpEncodings)
	assert.ErrorIs(t, err, common.ErrAcquisition)
	assert.Equal(t, 0, src.Outstanding())

	empty := &host.MemorySource{Table: bumpTable()}
	_, err = Acquire(ctx, empty, bumpEncodings)
	assert.ErrorIs(t, err, common.ErrNoData)

	renamed := &host.MemorySource{Table: bumpTable(brow("X", "2021", 1))}
	_, err = Acquire(ctx, renamed, host.StaticEncodings{
		common.RoleSeries: "Team", common.RolePeriod: "Season", common.RoleValue: "Pts",
	})
	assert.ErrorIs(t, err, common.ErrUnresolved)

	filtered := &host.MemorySource{Table: bumpTable(brow("", "2021", 1))}
	_, err = Acquire(ctx, filtered, bumpEncodings)
	assert.ErrorIs(t, err, common.ErrNoData)
}
