// Package hooks maps host lifecycle event names to handlers and filter names to value filters.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Hook names fired by the host.
const (
	Install         = "install"
	Uninstall       = "uninstall"
	AfterSaveItem   = "after_save_item"
	AfterDeleteFile = "after_delete_file"
)

// HookFunc handles one event. The payload type depends on the hook name.
type HookFunc func(ctx context.Context, payload any) error

// FilterArgs carries the rendering context passed to filters.
type FilterArgs struct {
	InputNameStem string
	Admin         bool
}

// FilterFunc rewrites a rendered value.
type FilterFunc func(value string, args FilterArgs) string

// FilterName joins filter path parts, e.g. FilterName("Form", "Item", "PDF Search", "Text").
func FilterName(parts ...string) string {
	return strings.Join(parts, "/")
}

// Registry is safe for concurrent use. Handlers run in registration order.
type Registry struct {
	mu      sync.RWMutex
	hooks   map[string][]HookFunc
	filters map[string][]FilterFunc
}

func NewRegistry() *Registry {
	return &Registry{
		hooks:   make(map[string][]HookFunc),
		filters: make(map[string][]FilterFunc),
	}
}

// On registers fn for the named hook.
func (r *Registry) On(name string, fn HookFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[name] = append(r.hooks[name], fn)
}

// Fire runs every handler for name and joins their errors. A failing handler does not stop the rest.
func (r *Registry) Fire(ctx context.Context, name string, payload any) error {
	r.mu.RLock()
	handlers := append([]HookFunc(nil), r.hooks[name]...)
	r.mu.RUnlock()

	var errs []error
	for _, fn := range handlers {
		if err := fn(ctx, payload); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Handlers returns the number of handlers registered for name.
func (r *Registry) Handlers(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks[name])
}

// AddFilter registers fn for the named filter.
func (r *Registry) AddFilter(name string, fn FilterFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[name] = append(r.filters[name], fn)
}

// ApplyFilter threads value through each filter for name. Unknown names return value unchanged.
func (r *Registry) ApplyFilter(name, value string, args FilterArgs) string {
	r.mu.RLock()
	filters := append([]FilterFunc(nil), r.filters[name]...)
	r.mu.RUnlock()

	for _, fn := range filters {
		value = fn(value, args)
	}
	return value
}
