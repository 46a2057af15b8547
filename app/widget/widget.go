// Package widget runs the refresh pipeline of each chart in response to
// host events and publishes the outcome as immutable snapshots.
package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mahesh-hegde/vizext/app/bump"
	"github.com/mahesh-hegde/vizext/app/common"
	"github.com/mahesh-hegde/vizext/app/donut"
	"github.com/mahesh-hegde/vizext/app/fields"
	"github.com/mahesh-hegde/vizext/app/host"
)

var errNotLoaded = errors.New("not loaded yet")

type Options struct {
	Name        string
	Title       string
	Description string
	Kind        Kind
	Source      host.DataSource
	Encodings   host.EncodingSource
	MatchMode   fields.MatchMode
	Now         func() time.Time

	// Settings is only read by bump widgets.
	Settings host.SettingsStore
}

type Widget struct {
	opts Options

	mu      sync.Mutex
	gen     uint64
	rev     uint64
	cancel  context.CancelFunc
	current atomic.Pointer[Snapshot]
}

func New(opts Options) (*Widget, error) {
	if opts.Name == "" {
		return nil, errors.New("widget needs a name")
	}
	if opts.Kind != KindDonut && opts.Kind != KindBump {
		return nil, fmt.Errorf("widget %s: unknown kind %q", opts.Name, opts.Kind)
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("widget %s: no data source", opts.Name)
	}
	if opts.MatchMode == "" {
		opts.MatchMode = fields.MatchExact
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Title == "" {
		opts.Title = opts.Name
	}
	w := &Widget{opts: opts}
	snap := w.empty(0, errNotLoaded)
	if opts.Kind == KindBump {
		snap = w.applySettings(context.Background(), snap)
	}
	w.current.Store(snap)
	return w, nil
}

func (w *Widget) Name() string        { return w.opts.Name }
func (w *Widget) Title() string       { return w.opts.Title }
func (w *Widget) Description() string { return w.opts.Description }
func (w *Widget) Kind() Kind          { return w.opts.Kind }

// Snapshot returns the latest published snapshot. It is never nil.
func (w *Widget) Snapshot() *Snapshot {
	return w.current.Load()
}

// Init handles initialization-complete.
func (w *Widget) Init(ctx context.Context) *Snapshot {
	return w.DataChanged(ctx)
}

// DataChanged reruns the whole pipeline. A refresh still in flight is
// cancelled and its result discarded, so only the newest event publishes.
// The returned snapshot is the one current when this call finished.
func (w *Widget) DataChanged(ctx context.Context) *Snapshot {
	w.mu.Lock()
	w.gen++
	gen := w.gen
	if w.cancel != nil {
		w.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()
	defer cancel()

	snap := w.run(runCtx, gen)

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.gen {
		slog.Info("discarding superseded refresh", "widget", w.opts.Name, "generation", gen, "latest", w.gen)
		return w.current.Load()
	}
	w.cancel = nil
	// Settings may have changed while data was being acquired.
	if snap.Kind == KindBump {
		snap = w.applySettings(ctx, snap)
	}
	return w.publish(snap)
}

// SettingsChanged reloads settings and redraws from the current snapshot
// without acquiring data again. For bump charts the top series are
// reselected with the new line limit.
func (w *Widget) SettingsChanged(ctx context.Context) *Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	cur := w.current.Load()
	if w.opts.Kind != KindBump {
		return cur
	}
	return w.publish(w.applySettings(ctx, cur))
}

// publish must be called with w.mu held.
func (w *Widget) publish(snap *Snapshot) *Snapshot {
	w.rev++
	snap.Revision = w.rev
	w.current.Store(snap)
	return snap
}

// applySettings returns a copy of snap with freshly loaded settings and,
// when there is ranked data, a new selection.
func (w *Widget) applySettings(ctx context.Context, snap *Snapshot) *Snapshot {
	next := *snap
	settings := bump.Load(ctx, w.opts.Settings)
	next.Settings = &settings
	if next.Ranking != nil {
		chart := next.Ranking.Select(settings.MaxLines)
		next.Chart = &chart
	}
	return &next
}

func (w *Widget) run(ctx context.Context, gen uint64) (snap *Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("refresh panicked: %v", r)
			slog.Error("widget refresh failed", "widget", w.opts.Name, "reason", "panic", "err", err)
			snap = w.empty(gen, err)
		}
	}()

	switch w.opts.Kind {
	case KindDonut:
		ds, err := donut.Acquire(ctx, w.opts.Source, w.opts.Encodings, w.opts.MatchMode)
		if err != nil {
			return w.fail(ctx, gen, err)
		}
		snap = w.base(gen, ModeHasData)
		snap.Donut = &ds
	case KindBump:
		ranking, err := bump.Acquire(ctx, w.opts.Source, w.opts.Encodings)
		if err != nil {
			return w.fail(ctx, gen, err)
		}
		snap = w.base(gen, ModeHasData)
		snap.Ranking = &ranking
	}
	return snap
}

func (w *Widget) fail(ctx context.Context, gen uint64, err error) *Snapshot {
	if ctx.Err() != nil {
		slog.Debug("widget refresh cancelled", "widget", w.opts.Name, "generation", gen)
	} else {
		slog.Error("widget refresh failed", "widget", w.opts.Name, "reason", common.EmptyReason(err), "err", err)
	}
	return w.empty(gen, err)
}

func (w *Widget) base(gen uint64, mode Mode) *Snapshot {
	return &Snapshot{
		Widget:      w.opts.Name,
		Kind:        w.opts.Kind,
		Mode:        mode,
		Generation:  gen,
		RefreshedAt: w.opts.Now(),
	}
}

func (w *Widget) empty(gen uint64, err error) *Snapshot {
	snap := w.base(gen, ModeEmpty)
	snap.Err = err
	snap.Reason = common.EmptyReason(err)
	if errors.Is(err, errNotLoaded) {
		snap.Reason = "not_loaded"
	}
	return snap
}
