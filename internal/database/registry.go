package database

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/pixil98/go-horses/internal/horses"
)

// Migrator bulk migrates legacy owner documents to canonical ids.
type Migrator interface {
	MigrateToUUID(ctx context.Context, resolver IdentityResolver) (MigrationReport, error)
}

type registryKey struct {
	owner string
	group string
}

func (k registryKey) String() string {
	return k.owner + "\x00" + k.group
}

// Registry holds the loaded stables for the lifetime of the process. Stables
// are loaded on first access and flushed back to the database on shutdown.
type Registry struct {
	db Database

	mu      sync.RWMutex
	stables map[registryKey]*horses.Stable
	loads   singleflight.Group

	preload  bool
	migrator Migrator
	resolver IdentityResolver
	after    <-chan struct{}
}

type RegistryOpt func(*Registry)

// WithPreload loads every stable when the registry starts.
func WithPreload(preload bool) RegistryOpt {
	return func(r *Registry) {
		r.preload = preload
	}
}

// WithMigration runs a bulk identity migration when the registry starts.
func WithMigration(m Migrator, resolver IdentityResolver) RegistryOpt {
	return func(r *Registry) {
		r.migrator = m
		r.resolver = resolver
	}
}

// WithStartAfter holds back migration and preload until ready is closed.
func WithStartAfter(ready <-chan struct{}) RegistryOpt {
	return func(r *Registry) {
		r.after = ready
	}
}

func NewRegistry(db Database, opts ...RegistryOpt) *Registry {
	r := &Registry{
		db:      db,
		stables: map[registryKey]*horses.Stable{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func keyFor(owner horses.Owner, group string) registryKey {
	return registryKey{owner: owner.Key(), group: group}
}

// GetStable returns the stable for owner in group, loading it on first use.
// Concurrent callers for the same key share a single load.
func (r *Registry) GetStable(ctx context.Context, owner horses.Owner, group string) *horses.Stable {
	key := keyFor(owner, group)
	if st := r.lookup(key); st != nil {
		return st
	}

	v, _, _ := r.loads.Do(key.String(), func() (any, error) {
		if st := r.lookup(key); st != nil {
			return st, nil
		}
		st := r.db.LoadStable(ctx, owner, group)

		r.mu.Lock()
		defer r.mu.Unlock()
		r.stables[key] = st
		return st, nil
	})
	return v.(*horses.Stable)
}

func (r *Registry) lookup(key registryKey) *horses.Stable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stables[key]
}

// Put registers st, keeping any stable already loaded under the same key.
// It returns the stable held by the registry.
func (r *Registry) Put(st *horses.Stable) *horses.Stable {
	key := keyFor(st.Owner(), st.Group())

	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.stables[key]; ok {
		return cur
	}
	r.stables[key] = st
	return st
}

// Save persists st if it has unsaved changes.
func (r *Registry) Save(ctx context.Context, st *horses.Stable) {
	if st.Dirty() {
		r.db.SaveStable(ctx, st)
	}
}

// Evict drops the stable for owner in group, saving it first if needed.
func (r *Registry) Evict(ctx context.Context, owner horses.Owner, group string) {
	key := keyFor(owner, group)

	r.mu.Lock()
	st, ok := r.stables[key]
	delete(r.stables, key)
	r.mu.Unlock()

	if ok {
		r.Save(ctx, st)
	}
}

// All returns every loaded stable ordered by owner then group.
func (r *Registry) All() []*horses.Stable {
	r.mu.RLock()
	keys := make([]registryKey, 0, len(r.stables))
	for k := range r.stables {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	slices.SortFunc(keys, func(a, b registryKey) int {
		return strings.Compare(a.String(), b.String())
	})

	out := make([]*horses.Stable, 0, len(keys))
	for _, k := range keys {
		if st := r.lookup(k); st != nil {
			out = append(out, st)
		}
	}
	return out
}

// Flush saves every dirty stable.
func (r *Registry) Flush(ctx context.Context) {
	for _, st := range r.All() {
		r.Save(ctx, st)
	}
}

// Startup runs the configured identity migration and preload. It runs on the
// driver goroutine before the first tick so nothing else touches stables or
// documents meanwhile.
func (r *Registry) Startup(ctx context.Context) error {
	if r.after != nil {
		select {
		case <-r.after:
		case <-ctx.Done():
			return nil
		}
	}

	if r.migrator != nil && r.resolver != nil {
		report, err := r.migrator.MigrateToUUID(ctx, r.resolver)
		slog.InfoContext(ctx, "identity migration finished",
			"migrated", len(report.Migrated),
			"failed", len(report.Failed),
			"collisions", len(report.Collisions))
		if err != nil {
			slog.WarnContext(ctx, "identity migration incomplete", "error", err)
		}
	}

	if r.preload {
		stables := r.db.LoadEverything(ctx)
		for _, st := range stables {
			r.Put(st)
		}
		slog.InfoContext(ctx, "stables loaded", "count", len(stables))
	}

	return nil
}

// Shutdown flushes every stable once the driver has stopped ticking.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.Flush(ctx)
	return nil
}
