package widget

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Registry holds the configured widgets in configuration order.
type Registry struct {
	byName map[string]*Widget
	order  []*Widget
}

func NewRegistry(widgets ...*Widget) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Widget, len(widgets))}
	for _, w := range widgets {
		if _, dup := r.byName[w.Name()]; dup {
			return nil, fmt.Errorf("duplicate widget name %q", w.Name())
		}
		r.byName[w.Name()] = w
		r.order = append(r.order, w)
	}
	return r, nil
}

func (r *Registry) Get(name string) (*Widget, bool) {
	w, ok := r.byName[name]
	return w, ok
}

func (r *Registry) All() []*Widget {
	return r.order
}

// InitAll fires initialization-complete on every widget, a few at a time.
func (r *Registry) InitAll(ctx context.Context) {
	var g errgroup.Group
	g.SetLimit(4)
	for _, w := range r.order {
		g.Go(func() error {
			w.Init(ctx)
			return nil
		})
	}
	_ = g.Wait()
}
