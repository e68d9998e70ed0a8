package reconciler

import "context"

// Registry holds the named views of the process.
type Registry struct {
	views map[string]*View
	order []string
}

// NewRegistry indexes views by name. A later view with a taken name is
// ignored.
func NewRegistry(views ...*View) *Registry {
	r := &Registry{views: make(map[string]*View, len(views))}
	for _, v := range views {
		if _, dup := r.views[v.Name()]; dup {
			continue
		}
		r.views[v.Name()] = v
		r.order = append(r.order, v.Name())
	}
	return r
}

// Names lists view names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Get returns the named view.
func (r *Registry) Get(name string) (*View, bool) {
	v, ok := r.views[name]
	return v, ok
}

// Views returns every view in registration order.
func (r *Registry) Views() []*View {
	out := make([]*View, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.views[name])
	}
	return out
}

// MountAll mounts every view. On failure the views mounted so far are
// unmounted again.
func (r *Registry) MountAll(ctx context.Context) error {
	mounted := make([]*View, 0, len(r.order))
	for _, v := range r.Views() {
		if err := v.Mount(ctx); err != nil {
			for _, m := range mounted {
				m.Unmount()
			}
			return err
		}
		mounted = append(mounted, v)
	}
	return nil
}

// UnmountAll unmounts every view.
func (r *Registry) UnmountAll() {
	for _, v := range r.Views() {
		v.Unmount()
	}
}
