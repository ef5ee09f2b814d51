package session

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/aibridge-dev/aibridge/internal/engine"
	"github.com/aibridge-dev/aibridge/internal/storage"
	"github.com/aibridge-dev/aibridge/pkg/types"
)

// EngineFactory builds a fresh engine for a session record.
type EngineFactory func(info *types.Session) (engine.Engine, error)

// Registry maps composite session keys (tool name + caller session id) to
// controller instances. It is owned by the dispatch layer and handed to
// handlers as a capability.
//
// Lookup-then-insert is deliberately not atomic across the construction of a
// new controller: two concurrent first uses of the same key may each build a
// controller, and the second insert wins. This mirrors the check-then-insert
// discipline of the original design and is an accepted race on first use.
type Registry struct {
	mu          sync.RWMutex
	controllers map[string]*Controller

	factory EngineFactory
	cfg     *types.Config
	store   *storage.Store
}

// NewRegistry creates a registry backed by the given engine factory and
// metadata store.
func NewRegistry(factory EngineFactory, cfg *types.Config, store *storage.Store) *Registry {
	return &Registry{
		controllers: make(map[string]*Controller),
		factory:     factory,
		cfg:         cfg,
		store:       store,
	}
}

// Key builds the composite registry key for a tool and caller session id.
func Key(tool, callerID string) string {
	return tool + ":" + callerID
}

// Get returns the controller registered under key, if any.
func (r *Registry) Get(key string) (*Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.controllers[key]
	return c, ok
}

// GetOrCreate returns the controller for key, constructing and registering
// one if none exists. A persisted metadata record for the key is resumed
// when present; otherwise a fresh record is created.
func (r *Registry) GetOrCreate(ctx context.Context, key, tool, projectRoot, model string) (*Controller, error) {
	r.mu.RLock()
	existing, ok := r.controllers[key]
	r.mu.RUnlock()
	if ok {
		return existing, nil
	}

	info := r.resumeOrCreate(ctx, key, tool, projectRoot, model)

	eng, err := r.factory(info)
	if err != nil {
		return nil, err
	}
	ctrl := NewController(key, info, eng, r.cfg, r.store)

	r.mu.Lock()
	r.controllers[key] = ctrl
	r.mu.Unlock()

	return ctrl, nil
}

// Remove stops the controller registered under key, drops it from the
// registry and deletes its persisted record. Removing an unknown key is not
// an error.
func (r *Registry) Remove(ctx context.Context, key string) error {
	r.mu.Lock()
	ctrl, ok := r.controllers[key]
	delete(r.controllers, key)
	r.mu.Unlock()

	var err error
	if ok {
		err = ctrl.Stop()
	}
	if r.store != nil {
		if derr := r.store.DeleteSession(ctx, key); derr != nil && err == nil {
			err = derr
		}
	}
	return err
}

// List returns the metadata records of all live controllers plus any
// persisted records without a live controller.
func (r *Registry) List(ctx context.Context) ([]types.Session, error) {
	r.mu.RLock()
	live := make([]types.Session, 0, len(r.controllers))
	seen := make(map[string]bool, len(r.controllers))
	for _, ctrl := range r.controllers {
		live = append(live, ctrl.Info())
		seen[ctrl.Info().ID] = true
	}
	r.mu.RUnlock()

	if r.store == nil {
		return live, nil
	}

	stored, err := r.store.ListSessions(ctx)
	if err != nil {
		return live, err
	}
	for _, s := range stored {
		if !seen[s.ID] {
			live = append(live, *s)
		}
	}
	return live, nil
}

// CloseAll stops every live controller. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	ctrls := make([]*Controller, 0, len(r.controllers))
	for _, c := range r.controllers {
		ctrls = append(ctrls, c)
	}
	r.controllers = make(map[string]*Controller)
	r.mu.Unlock()

	for _, c := range ctrls {
		_ = c.Stop()
	}
}

// resumeOrCreate loads the persisted record for key or builds a fresh one.
func (r *Registry) resumeOrCreate(ctx context.Context, key, tool, projectRoot, model string) *types.Session {
	if model == "" {
		model = r.cfg.Model
	}

	if r.store != nil {
		stored, err := r.store.GetSession(ctx, key)
		if err == nil {
			stored.Active = false
			if model != "" {
				stored.Model = model
			}
			if projectRoot != "" {
				stored.ProjectRoot = projectRoot
			}
			return stored
		}
		// ErrNotFound and unreadable records both fall through to a
		// fresh record.
	}

	return &types.Session{
		ID:          ulid.Make().String(),
		Tool:        tool,
		Model:       model,
		ProjectRoot: projectRoot,
	}
}
