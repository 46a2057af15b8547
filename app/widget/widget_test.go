package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mahesh-hegde/vizext/app/bump"
	"github.com/mahesh-hegde/vizext/app/common"
	"github.com/mahesh-hegde/vizext/app/draw"
	"github.com/mahesh-hegde/vizext/app/fields"
	"github.com/mahesh-hegde/vizext/app/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func salesTable() *host.DataTable {
	return &host.DataTable{
		Columns: []host.Column{
			{FieldName: "Region", DataType: common.TypeString},
			{FieldName: "SUM(Sales)", DataType: common.TypeFloat},
		},
		Data: []host.Row{
			{{FormattedValue: "North", NativeValue: "North"}, {FormattedValue: "30", NativeValue: 30.0}},
			{{FormattedValue: "South", NativeValue: "South"}, {FormattedValue: "70", NativeValue: 70.0}},
		},
	}
}

func brandTable() *host.DataTable {
	t := &host.DataTable{
		Columns: []host.Column{
			{FieldName: "Brand", DataType: common.TypeString},
			{FieldName: "Year", DataType: common.TypeString},
			{FieldName: "Sales", DataType: common.TypeFloat},
		},
	}
	add := func(brand, year string, v float64) {
		t.Data = append(t.Data, host.Row{
			{FormattedValue: brand, NativeValue: brand},
			{FormattedValue: year, NativeValue: year},
			{NativeValue: v},
		})
	}
	add("a", "2021", 30)
	add("b", "2021", 20)
	add("c", "2021", 10)
	add("a", "2022", 10)
	add("b", "2022", 30)
	add("c", "2022", 20)
	return t
}

var brandEncodings = host.StaticEncodings{
	common.RoleSeries: "Brand",
	common.RolePeriod: "Year",
	common.RoleValue:  "Sales",
}

func newDonut(t *testing.T, src host.DataSource) *Widget {
	t.Helper()
	w, err := New(Options{
		Name:      "sales",
		Kind:      KindDonut,
		Source:    src,
		Encodings: host.StaticEncodings{common.RoleSlice: "Region", common.RoleValue: "Sales"},
		MatchMode: fields.MatchContains,
	})
	require.NoError(t, err)
	return w
}

func TestNew_Validates(t *testing.T) {
	src := &host.MemorySource{}
	_, err := New(Options{Kind: KindDonut, Source: src})
	assert.Error(t, err)
	_, err = New(Options{Name: "x", Kind: "pie", Source: src})
	assert.Error(t, err)
	_, err = New(Options{Name: "x", Kind: KindBump})
	assert.Error(t, err)

	w, err := New(Options{Name: "x", Kind: KindBump, Source: src})
	require.NoError(t, err)
	snap := w.Snapshot()
	require.NotNil(t, snap)
	assert.False(t, snap.HasData())
	assert.Equal(t, "not_loaded", snap.Reason)
	require.NotNil(t, snap.Settings)
	assert.Equal(t, bump.DefaultSettings(), *snap.Settings)
	assert.Equal(t, "x", w.Title())
}

func TestDonut_DataChanged(t *testing.T) {
	src := &host.MemorySource{Table: salesTable()}
	w := newDonut(t, src)

	snap := w.Init(context.Background())
	require.True(t, snap.HasData())
	assert.Equal(t, uint64(1), snap.Generation)
	assert.Equal(t, 100.0, snap.Donut.Total)
	assert.Equal(t, "South", snap.Donut.Points[0].Label)
	assert.Same(t, snap, w.Snapshot())
	assert.Zero(t, src.Outstanding())

	// Settings changes leave donut snapshots alone.
	assert.Same(t, snap, w.SettingsChanged(context.Background()))
}

func TestDataChanged_EmptyInputDiscardsChart(t *testing.T) {
	src := &host.MemorySource{Table: salesTable()}
	w := newDonut(t, src)
	require.True(t, w.Init(context.Background()).HasData())

	src.Table = &host.DataTable{Columns: salesTable().Columns}
	snap := w.DataChanged(context.Background())
	assert.False(t, snap.HasData())
	assert.Nil(t, snap.Donut)
	assert.True(t, errors.Is(snap.Err, common.ErrNoData))
	assert.Equal(t, "no_data", snap.Reason)
	assert.Zero(t, src.Outstanding())
}

func TestDataChanged_OverflowingTotalIsEmpty(t *testing.T) {
	tbl := salesTable()
	tbl.Data[0][1] = host.Cell{NativeValue: 1e308}
	tbl.Data[1][1] = host.Cell{NativeValue: 1e308}
	w := newDonut(t, &host.MemorySource{Table: tbl})

	snap := w.Init(context.Background())
	assert.False(t, snap.HasData())
	assert.Equal(t, "no_data", snap.Reason)
	_, err := json.Marshal(snap)
	assert.NoError(t, err)
}

func TestDataChanged_AcquisitionFailure(t *testing.T) {
	src := &host.MemorySource{ReadErr: errors.New("connection reset")}
	w, err := New(Options{Name: "brands", Kind: KindBump, Source: src, Encodings: brandEncodings})
	require.NoError(t, err)

	snap := w.DataChanged(context.Background())
	assert.False(t, snap.HasData())
	assert.Equal(t, "acquisition", snap.Reason)
	assert.Zero(t, src.Outstanding())

	var buf bytes.Buffer
	require.NoError(t, snap.Render(&buf, draw.DefaultSize))
	assert.Contains(t, buf.String(), "No data to display")
}

func TestBump_SettingsChangedReusesRanking(t *testing.T) {
	src := &host.MemorySource{Table: brandTable()}
	store := host.NewMemorySettings(nil)
	w, err := New(Options{Name: "brands", Kind: KindBump, Source: src, Encodings: brandEncodings, Settings: store})
	require.NoError(t, err)

	first := w.Init(context.Background())
	require.True(t, first.HasData())
	assert.Len(t, first.Chart.TopSeries, 3)
	assert.Equal(t, 1, src.Acquired())

	require.NoError(t, store.Set(context.Background(), bump.KeyMaxLines, "2"))
	require.NoError(t, store.Set(context.Background(), bump.KeyBgColor, "#ffffff"))
	second := w.SettingsChanged(context.Background())

	assert.Equal(t, 1, src.Acquired(), "settings change must not query the data source")
	assert.Equal(t, first.Generation, second.Generation)
	assert.Greater(t, second.Revision, first.Revision)
	// a: ranks 1,3; b: 2,1; c: 3,2. Mean ranks a=2, b=1.5, c=2.5.
	assert.Equal(t, []string{"b", "a"}, second.Chart.TopSeries)
	assert.Equal(t, "#ffffff", second.Settings.BgColor)
	assert.Same(t, first.Ranking, second.Ranking)
	// The first snapshot is untouched.
	assert.Len(t, first.Chart.TopSeries, 3)
}

func TestBump_MissingEncodings(t *testing.T) {
	src := &host.MemorySource{Table: brandTable()}
	w, err := New(Options{Name: "brands", Kind: KindBump, Source: src, Encodings: host.StaticEncodings{common.RoleSeries: "Brand"}})
	require.NoError(t, err)

	snap := w.Init(context.Background())
	assert.False(t, snap.HasData())
	assert.Equal(t, "resolution", snap.Reason)
	assert.Zero(t, src.Acquired())
}

// gatedSource blocks the first acquisition until its context is cancelled.
type gatedSource struct {
	host.MemorySource
	calls   atomic.Int32
	started chan struct{}
}

func (g *gatedSource) AcquireReader(ctx context.Context, opts host.ReaderOptions) (host.Reader, error) {
	if g.calls.Add(1) == 1 {
		close(g.started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return g.MemorySource.AcquireReader(ctx, opts)
}

func TestDataChanged_SupersededRefreshIsDiscarded(t *testing.T) {
	src := &gatedSource{MemorySource: host.MemorySource{Table: salesTable()}, started: make(chan struct{})}
	w := newDonut(t, src)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.DataChanged(context.Background())
	}()

	select {
	case <-src.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first refresh never started")
	}

	latest := w.DataChanged(context.Background())
	wg.Wait()

	require.True(t, latest.HasData())
	assert.Equal(t, uint64(2), latest.Generation)
	assert.Same(t, latest, w.Snapshot(), "the cancelled refresh must not overwrite the newer one")
}

type panicSource struct{}

func (panicSource) AcquireReader(ctx context.Context, opts host.ReaderOptions) (host.Reader, error) {
	panic("boom")
}

func TestDataChanged_PanicBecomesEmpty(t *testing.T) {
	w := newDonut(t, panicSource{})
	snap := w.DataChanged(context.Background())
	assert.False(t, snap.HasData())
	require.Error(t, snap.Err)
	assert.Contains(t, snap.Err.Error(), "boom")

	var buf bytes.Buffer
	require.NoError(t, snap.Render(&buf, draw.DefaultSize))
	assert.True(t, strings.HasPrefix(buf.String(), "<?xml"))
}

func TestSnapshot_RenderWithData(t *testing.T) {
	w := newDonut(t, &host.MemorySource{Table: salesTable()})
	snap := w.Init(context.Background())

	var buf bytes.Buffer
	require.NoError(t, snap.Render(&buf, draw.Size{Width: 400, Height: 400}))
	assert.Contains(t, buf.String(), `class="slice"`)
	assert.Contains(t, buf.String(), "South")
}

func TestRegistry(t *testing.T) {
	a := newDonut(t, &host.MemorySource{Table: salesTable()})
	b, err := New(Options{Name: "brands", Kind: KindBump, Source: &host.MemorySource{Table: brandTable()}, Encodings: brandEncodings})
	require.NoError(t, err)

	reg, err := NewRegistry(a, b)
	require.NoError(t, err)
	_, err = NewRegistry(a, a)
	assert.Error(t, err)

	got, ok := reg.Get("brands")
	assert.True(t, ok)
	assert.Same(t, b, got)
	_, ok = reg.Get("nope")
	assert.False(t, ok)
	assert.Equal(t, []*Widget{a, b}, reg.All())

	reg.InitAll(context.Background())
	assert.True(t, a.Snapshot().HasData())
	assert.True(t, b.Snapshot().HasData())
}
