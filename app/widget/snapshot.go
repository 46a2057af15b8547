package widget

import (
	"io"
	"time"

	"github.com/mahesh-hegde/vizext/app/bump"
	"github.com/mahesh-hegde/vizext/app/common"
	"github.com/mahesh-hegde/vizext/app/donut"
	"github.com/mahesh-hegde/vizext/app/draw"
)

type Kind string

const (
	KindDonut Kind = "donut"
	KindBump  Kind = "bump"
)

type Mode string

const (
	ModeEmpty   Mode = "empty"
	ModeHasData Mode = "has_data"
)

const donutBackground = "#ffffff"

// Snapshot is the immutable result of one refresh. Handlers that only
// redraw (resize, settings changes) work from the current snapshot and
// never touch the data source.
type Snapshot struct {
	Widget string `json:"widget"`
	Kind   Kind   `json:"kind"`
	Mode   Mode   `json:"mode"`
	// Generation identifies the data refresh that produced the data.
	Generation uint64 `json:"generation"`
	// Revision changes on every publish, including settings-only changes.
	Revision uint64 `json:"revision"`

	Err    error  `json:"-"`
	Reason string `json:"reason,omitempty"`

	Donut    *donut.Dataset `json:"donut,omitempty"`
	Ranking  *bump.Ranking  `json:"-"`
	Chart    *bump.Chart    `json:"bump,omitempty"`
	Settings *bump.Settings `json:"settings,omitempty"`

	RefreshedAt time.Time `json:"refreshed_at"`
}

func (s *Snapshot) HasData() bool {
	return s != nil && s.Mode == ModeHasData
}

func (s *Snapshot) Theme() draw.Theme {
	if s != nil && s.Settings != nil {
		return s.Settings.Theme()
	}
	return draw.ThemeFor(donutBackground)
}

func (s *Snapshot) EmptyMessage() (title, message string) {
	title = "No data to display"
	switch s.Kind {
	case KindBump:
		message = "Add fields to Series, Period and Value."
	default:
		message = "Add a dimension to Slice and a measure to Value."
	}
	return title, message
}

// Render draws the snapshot at the given size, or the placeholder when
// the widget is empty.
func (s *Snapshot) Render(w io.Writer, size draw.Size) error {
	if !s.HasData() {
		title, message := s.EmptyMessage()
		return draw.Empty(w, size, s.Theme(), title, message)
	}
	switch s.Kind {
	case KindDonut:
		return donut.Draw(w, *s.Donut, size, s.Theme())
	case KindBump:
		return bump.Draw(w, *s.Chart, size, *s.Settings)
	}
	return common.ErrNoData
}
