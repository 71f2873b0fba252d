// Package registry manages module lifecycle: registration, dependency
// resolution, initialization, event wiring, and shutdown of FleetSight modules.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/fleetsight/fleetsight/pkg/module"
	"go.uber.org/zap"
)

// Registry manages the lifecycle of all registered modules.
type Registry struct {
	mu       sync.RWMutex
	modules  map[string]module.Module
	infos    map[string]module.Info
	order    []string // topological order after Validate
	disabled map[string]bool
	logger   *zap.Logger
}

// New creates a new module registry.
func New(logger *zap.Logger) *Registry {
	return &Registry{
		modules:  make(map[string]module.Module),
		infos:    make(map[string]module.Info),
		disabled: make(map[string]bool),
		logger:   logger,
	}
}

// Register adds a module to the registry. Must be called before Validate.
func (r *Registry) Register(m module.Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := m.Info()
	name := info.Name

	if name == "" {
		return fmt.Errorf("module has empty name")
	}
	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("module %q already registered", name)
	}

	r.modules[name] = m
	r.infos[name] = info
	r.logger.Info("module registered",
		zap.String("name", name),
		zap.String("version", info.Version),
		zap.Int("api_version", info.APIVersion),
	)
	return nil
}

// Validate checks API version compatibility, resolves dependencies via
// topological sort, and verifies there are no cycles or missing dependencies.
func (r *Registry) Validate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check API version compatibility for each module.
	for name, info := range r.infos {
		if err := r.checkAPIVersion(name, info.APIVersion); err != nil {
			if info.Required {
				return err
			}
			r.logger.Warn("disabling module due to API version incompatibility",
				zap.String("name", name),
				zap.Error(err),
			)
			r.disabled[name] = true
		}
	}

	// Check that all dependencies exist and are not disabled.
	for name, info := range r.infos {
		if r.disabled[name] {
			continue
		}
		for _, dep := range info.Dependencies {
			if _, ok := r.modules[dep]; !ok {
				if info.Required {
					return fmt.Errorf("module %q depends on %q which is not registered", name, dep)
				}
				r.logger.Warn("disabling module due to missing dependency",
					zap.String("name", name),
					zap.String("missing_dep", dep),
				)
				r.disabled[name] = true
				break
			}
			if r.disabled[dep] {
				if info.Required {
					return fmt.Errorf("module %q depends on %q which is disabled", name, dep)
				}
				r.logger.Warn("disabling module: dependency is disabled",
					zap.String("name", name),
					zap.String("disabled_dep", dep),
				)
				r.disabled[name] = true
				break
			}
		}
	}

	// Cascade disable: if a module is disabled, disable all its dependents.
	changed := true
	for changed {
		changed = false
		for name, info := range r.infos {
			if r.disabled[name] {
				continue
			}
			for _, dep := range info.Dependencies {
				if !r.disabled[dep] {
					continue
				}
				if info.Required {
					return fmt.Errorf("required module %q cannot start: dependency %q is disabled", name, dep)
				}
				r.logger.Warn("cascade disabling module",
					zap.String("name", name),
					zap.String("disabled_dep", dep),
				)
				r.disabled[name] = true
				changed = true
				break
			}
		}
	}

	// Topological sort of active modules.
	order, err := r.topologicalSort()
	if err != nil {
		return err
	}
	r.order = order

	r.logger.Info("module dependency resolution complete",
		zap.Strings("start_order", r.order),
		zap.Int("active", len(r.order)),
		zap.Int("disabled", len(r.disabled)),
	)
	return nil
}

// InitAll initializes all active modules in dependency order. Modules that
// implement EventSubscriber have their subscriptions wired onto the bus after
// a successful Init, before any module starts, so no startup event is missed.
func (r *Registry) InitAll(ctx context.Context, depsFn func(name string) module.Dependencies) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		if r.disabled[name] {
			continue
		}
		m := r.modules[name]

		r.logger.Info("initializing module", zap.String("name", name))
		deps := depsFn(name)
		if err := safeInit(ctx, m, deps); err != nil {
			info := r.infos[name]
			if info.Required {
				return fmt.Errorf("required module %q failed to initialize: %w", name, err)
			}
			r.logger.Error("optional module failed to initialize, disabling",
				zap.String("name", name),
				zap.Error(err),
			)
			r.disabled[name] = true
			continue
		}

		// Post-init config validation for Validator modules.
		if v, ok := m.(module.Validator); ok {
			if err := v.ValidateConfig(); err != nil {
				info := r.infos[name]
				if info.Required {
					return fmt.Errorf("required module %q config validation failed: %w", name, err)
				}
				r.logger.Error("optional module config validation failed, disabling",
					zap.String("name", name),
					zap.Error(err),
				)
				r.disabled[name] = true
				continue
			}
		}

		// Wire event subscriptions.
		if es, ok := m.(module.EventSubscriber); ok && deps.Bus != nil {
			for _, sub := range es.Subscriptions() {
				deps.Bus.Subscribe(sub.Topic, sub.Handler)
				r.logger.Debug("module subscription wired",
					zap.String("name", name),
					zap.String("topic", sub.Topic),
				)
			}
		}
	}
	return nil
}

// StartAll starts all initialized modules in dependency order.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		if r.disabled[name] {
			continue
		}
		m := r.modules[name]
		r.logger.Info("starting module", zap.String("name", name))
		if err := safeStart(ctx, m); err != nil {
			info := r.infos[name]
			if info.Required {
				return fmt.Errorf("required module %q failed to start: %w", name, err)
			}
			r.logger.Error("optional module failed to start, disabling",
				zap.String("name", name),
				zap.Error(err),
			)
			r.disabled[name] = true
		}
	}
	return nil
}

// StopAll stops all active modules in reverse dependency order.
// A module that fails or panics during Stop does not prevent the rest
// from stopping.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.order) - 1; i >= 0; i-- {
		name := r.order[i]
		if r.disabled[name] {
			continue
		}
		m := r.modules[name]
		r.logger.Info("stopping module", zap.String("name", name))
		if err := safeStop(ctx, m); err != nil {
			r.logger.Error("failed to stop module", zap.String("name", name), zap.Error(err))
		}
	}
}

// safeInit calls Init with panic recovery.
func safeInit(ctx context.Context, m module.Module, deps module.Dependencies) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("module panicked during Init: %v", r)
		}
	}()
	return m.Init(ctx, deps)
}

// safeStart calls Start with panic recovery.
func safeStart(ctx context.Context, m module.Module) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("module panicked during Start: %v", r)
		}
	}()
	return m.Start(ctx)
}

// safeStop calls Stop with panic recovery.
func safeStop(ctx context.Context, m module.Module) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("module panicked during Stop: %v", r)
		}
	}()
	return m.Stop(ctx)
}

// Get returns a module by name.
func (r *Registry) Get(name string) (module.Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	if ok && r.disabled[name] {
		return nil, false
	}
	return m, ok
}

// All returns all active (non-disabled) modules in dependency order.
func (r *Registry) All() []module.Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]module.Module, 0, len(r.order))
	for _, name := range r.order {
		if !r.disabled[name] {
			result = append(result, r.modules[name])
		}
	}
	return result
}

// AllRoutes returns HTTP routes from all active modules implementing HTTPProvider.
func (r *Registry) AllRoutes() map[string][]module.Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make(map[string][]module.Route)
	for _, name := range r.order {
		if r.disabled[name] {
			continue
		}
		m := r.modules[name]
		if hp, ok := m.(module.HTTPProvider); ok {
			if mr := hp.Routes(); len(mr) > 0 {
				routes[name] = mr
			}
		}
	}
	return routes
}

// Resolve returns a module by name (implements module.Resolver).
func (r *Registry) Resolve(name string) (module.Module, bool) {
	return r.Get(name)
}

// IsDisabled returns whether a module has been disabled.
func (r *Registry) IsDisabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.disabled[name]
}

// checkAPIVersion validates a module's API version against the server's range.
func (r *Registry) checkAPIVersion(name string, apiVersion int) error {
	if apiVersion < module.APIVersionMin {
		return fmt.Errorf(
			"module %q targets Module API v%d, but this server requires v%d or newer (current: v%d). Upgrade the module or use an older server",
			name, apiVersion, module.APIVersionMin, module.APIVersionCurrent,
		)
	}
	if apiVersion > module.APIVersionCurrent {
		return fmt.Errorf(
			"module %q targets Module API v%d, but this server only supports up to v%d. Upgrade the server to use this module",
			name, apiVersion, module.APIVersionCurrent,
		)
	}
	if apiVersion < module.APIVersionCurrent {
		r.logger.Warn(
			fmt.Sprintf("module %q targets Module API v%d (server current: v%d). The module will work but may not support newer features",
				name, apiVersion, module.APIVersionCurrent),
		)
	}
	return nil
}

// topologicalSort returns module names in dependency order using Kahn's algorithm.
func (r *Registry) topologicalSort() ([]string, error) {
	// Build adjacency list and in-degree count for active modules only.
	active := make(map[string]bool)
	for name := range r.modules {
		if !r.disabled[name] {
			active[name] = true
		}
	}

	inDegree := make(map[string]int)
	dependents := make(map[string][]string) // dep -> list of modules that depend on it

	for name := range active {
		inDegree[name] = 0
	}

	for name := range active {
		info := r.infos[name]
		for _, dep := range info.Dependencies {
			if active[dep] {
				inDegree[name]++
				dependents[dep] = append(dependents[dep], name)
			}
		}
	}

	// Start with modules that have no dependencies.
	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}

	var order []string
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		order = append(order, name)

		for _, dependent := range dependents[name] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(order) != len(active) {
		// Find the cycle for a useful error message.
		var cycled []string
		for name := range active {
			if inDegree[name] > 0 {
				cycled = append(cycled, name)
			}
		}
		return nil, fmt.Errorf("dependency cycle detected among modules: %v", cycled)
	}

	return order, nil
}
