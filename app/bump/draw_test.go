package bump

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/mahesh-hegde/vizext/app/draw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraw(t *testing.T) {
	r := Rank([]Point{
		pt("Rockets", "2021", 10), pt("A very long team name indeed", "2021", 20),
		pt("Rockets", "2022", 30), pt("A very long team name indeed", "2022", 5),
	})
	c := r.Select(6)
	var buf bytes.Buffer
	require.NoError(t, Draw(&buf, c, draw.Size{Width: 640, Height: 400}, DefaultSettings()))
	out := buf.String()

	assert.Equal(t, 2, strings.Count(out, `class="bump-line"`))
	assert.Equal(t, 4, strings.Count(out, `class="bump-dot"`))
	assert.Contains(t, out, ">#1<")
	assert.Contains(t, out, ">#2<")
	assert.Contains(t, out, ">2021<")
	assert.Contains(t, out, "A very long t…")
	assert.Contains(t, out, "2022 · Rank #1")
	assert.Contains(t, out, "Value: 30")
	assert.Contains(t, out, DefaultSettings().Colors[0])
	assert.Contains(t, out, "translate(50,40)")
}

func TestDraw_SinglePeriod(t *testing.T) {
	c := Rank([]Point{pt("only", "2024", 1)}).Select(6)
	var buf bytes.Buffer
	require.NoError(t, Draw(&buf, c, draw.Size{Width: 300, Height: 200}, DefaultSettings()))
	assert.NotContains(t, buf.String(), "NaN")
	assert.Equal(t, 0, strings.Count(buf.String(), `class="bump-line"`))
	assert.Equal(t, 1, strings.Count(buf.String(), `class="bump-dot"`))
}

var circleY = regexp.MustCompile(`<circle cx="-?\d+" cy="(-?\d+)"`)

func TestDraw_SelectedSeriesKeepFullRanks(t *testing.T) {
	// Mean ranks: a 1.5, c 2, b 3, d 3.5, e 5. With two lines, c is drawn
	// at rank 3 in 2021 even though only two series are selected.
	r := Rank([]Point{
		pt("a", "2021", 50), pt("b", "2021", 40), pt("c", "2021", 30), pt("d", "2021", 20), pt("e", "2021", 10),
		pt("c", "2022", 50), pt("a", "2022", 40), pt("d", "2022", 30), pt("b", "2022", 20), pt("e", "2022", 10),
	})
	c := r.Select(2)
	require.Equal(t, []string{"a", "c"}, c.TopSeries)
	assert.Equal(t, 3, c.MaxRank())

	size := draw.Size{Width: 640, Height: 500}
	var buf bytes.Buffer
	require.NoError(t, Draw(&buf, c, size, DefaultSettings()))
	out := buf.String()
	assert.Contains(t, out, ">#3<")
	assert.NotContains(t, out, ">#4<")

	plotHeight := size.Height - margin.top - margin.bottom
	matches := circleY.FindAllStringSubmatch(out, -1)
	require.Len(t, matches, 4)
	deepest := 0
	for _, m := range matches {
		cy, err := strconv.Atoi(m[1])
		require.NoError(t, err)
		assert.GreaterOrEqual(t, cy, 0)
		assert.LessOrEqual(t, cy, plotHeight)
		deepest = max(deepest, cy)
	}
	assert.Equal(t, plotHeight, deepest)
}

func TestChartMaxRank_Empty(t *testing.T) {
	assert.Equal(t, 1, Chart{}.MaxRank())
}
