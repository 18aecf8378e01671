package routes

import (
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
)

// ModuleFactory builds a route module's router. It runs at most once, on the
// first request that reaches the module's prefix.
type ModuleFactory func() chi.Router

type module struct {
	prefix  string
	factory ModuleFactory

	once   sync.Once
	router chi.Router
}

func (m *module) handler(logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.once.Do(func() {
			m.router = m.factory()
			logger.Info("route module initialized", slog.String("prefix", m.prefix))
		})
		m.router.ServeHTTP(w, r)
	})
}

// Registry defers route module construction until a module's prefix first
// receives traffic. Modules that are never hit never pay their wiring cost,
// and a panic inside one factory cannot take down startup of the others.
type Registry struct {
	mu      sync.Mutex
	modules map[string]*module
	logger  *slog.Logger
}

// NewRegistry creates an empty route module registry
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		modules: make(map[string]*module),
		logger:  logger,
	}
}

// Register adds a module under prefix. Registering the same prefix twice
// replaces the earlier factory; nothing is built yet either way.
func (reg *Registry) Register(prefix string, factory ModuleFactory) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.modules[prefix] = &module{
		prefix:  prefix,
		factory: factory,
	}
}

// Mount attaches every registered module to the router. The modules mount in
// sorted prefix order so route setup is deterministic.
func (reg *Registry) Mount(router chi.Router) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	prefixes := make([]string, 0, len(reg.modules))
	for prefix := range reg.modules {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	for _, prefix := range prefixes {
		router.Mount(prefix, reg.modules[prefix].handler(reg.logger))
	}
}
