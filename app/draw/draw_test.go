package draw

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompact(t *testing.T) {
	testCases := []struct {
		in       float64
		expected string
	}{
		{0, "0"},
		{999.4, "999"},
		{1000, "1.0K"},
		{12345, "12.3K"},
		{1_000_000, "1.0M"},
		{2_450_000, "2.5M"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, Compact(tc.in), "input %v", tc.in)
	}
}

func TestThousands(t *testing.T) {
	assert.Equal(t, "1,234,567", Thousands(1234567.4))
	assert.Equal(t, "12", Thousands(12))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "50.0%", Percent(50, 100))
	assert.Equal(t, "33.3%", Percent(1, 3))
	assert.Equal(t, "0.0%", Percent(5, 0))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 14, 13))
	assert.Equal(t, "Exactly14Chars", Truncate("Exactly14Chars", 14, 13))
	assert.Equal(t, "A very long s…", Truncate("A very long series name", 14, 13))
	// runes, not bytes
	assert.Equal(t, "संस्…", Truncate("संस्कृतम्", 4, 4))
}

func TestIsDark(t *testing.T) {
	assert.True(t, IsDark("#0f172a"))
	assert.False(t, IsDark("#ffffff"))
	assert.False(t, IsDark("#f1f5f9"))
	assert.True(t, IsDark("not a colour"))
	assert.Equal(t, "#f1f5f9", ThemeFor("#000000").Text)
	assert.Equal(t, "#1e293b", ThemeFor("#ffffff").Text)
}

func TestIsHexColor(t *testing.T) {
	assert.True(t, IsHexColor("#4e79a7"))
	assert.True(t, IsHexColor("#ABCDEF"))
	assert.False(t, IsHexColor("#abc"))
	assert.False(t, IsHexColor("4e79a7"))
	assert.False(t, IsHexColor("#4e79ag"))
}

func TestOrdinal(t *testing.T) {
	palette := []string{"#111111", "#222222"}
	assert.Equal(t, "#111111", Ordinal(palette, 0))
	assert.Equal(t, "#222222", Ordinal(palette, 1))
	assert.Equal(t, "#111111", Ordinal(palette, 2))
	assert.NotEmpty(t, Ordinal(nil, 3))
}

func TestPointScale(t *testing.T) {
	ps := NewPointScale([]string{"a", "b", "c"}, 100, 0.5)
	// step = 100 / (2 + 1) ; start = (100 - 2*step) / 2
	a, ok := ps.At("a")
	require.True(t, ok)
	c, _ := ps.At("c")
	b, _ := ps.At("b")
	assert.InDelta(t, 100.0/6, a, 1e-9)
	assert.InDelta(t, 50, b, 1e-9)
	assert.InDelta(t, 100-100.0/6, c, 1e-9)

	_, ok = ps.At("z")
	assert.False(t, ok)

	single := NewPointScale([]string{"only"}, 80, 0.3)
	x, _ := single.At("only")
	assert.InDelta(t, 40, x, 1e-9)
}

func TestSizeClamp(t *testing.T) {
	assert.Equal(t, DefaultSize, Size{}.Clamp())
	assert.Equal(t, Size{Width: 8000, Height: 300}, Size{Width: 100000, Height: 300}.Clamp())
}

func TestCatmullRom(t *testing.T) {
	assert.Equal(t, "", CatmullRom(nil, 0.5))
	assert.Equal(t, "", CatmullRom([]Point{{1, 1}}, 0.5))
	assert.Equal(t, "M0,0L10,5", CatmullRom([]Point{{0, 0}, {10, 5}}, 0.5))

	// Collinear points stay on the line.
	d := CatmullRom([]Point{{0, 0}, {10, 0}, {20, 0}}, 0.5)
	assert.True(t, strings.HasPrefix(d, "M0,0C"))
	assert.Equal(t, 2, strings.Count(d, "C"))
	assert.NotContains(t, d, "NaN")
	assert.True(t, strings.HasSuffix(d, " 20,0"))

	// Repeated points must not produce NaN.
	d = CatmullRom([]Point{{0, 0}, {0, 0}, {5, 5}, {5, 5}}, 0.5)
	assert.NotContains(t, d, "NaN")
}

func TestAnnularSector(t *testing.T) {
	d := AnnularSector(50, 100, 0, math.Pi/2, 0)
	assert.Equal(t, "M0,-100A100,100 0 0 1 100,0L50,0A50,50 0 0 0 0,-50Z", d)

	large := AnnularSector(50, 100, 0, 1.5*math.Pi, 0)
	assert.Contains(t, large, " 0 1 1 ")

	full := AnnularSector(50, 100, 0, 2*math.Pi, 0)
	assert.NotContains(t, full, "NaN")
	assert.Contains(t, full, " 0 1 1 ")

	// Slices thinner than the pad collapse instead of inverting.
	thin := AnnularSector(50, 100, 1, 1.01, 0.025)
	assert.NotContains(t, thin, "NaN")
}

func TestNum(t *testing.T) {
	assert.Equal(t, "0", Num(0.001))
	assert.Equal(t, "0", Num(-0.001))
	assert.Equal(t, "1.5", Num(1.5))
	assert.Equal(t, "-3", Num(-3))
	assert.Equal(t, "2.35", Num(2.349))
}

func TestEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := Empty(&buf, Size{Width: 300, Height: 200}, ThemeFor("#0f172a"), "No data", "Drop <fields> here")
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, `<svg`)
	assert.Contains(t, out, `width="300"`)
	assert.Contains(t, out, "No data")
	assert.Contains(t, out, "Drop &lt;fields&gt; here")
	assert.Contains(t, out, "</svg>")
}
