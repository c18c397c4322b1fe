package incident

import (
	"sync"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/warden/internal/store"
)

// Manager maps incident IDs to their actors. Actors are created lazily on
// first access and live for the process lifetime; whether an incident
// exists is decided by durable state, not by the presence of an actor.
type Manager struct {
	store    store.Store
	provider Provider
	logger   log.Logger
	metrics  *Metrics

	mu     sync.Mutex
	actors map[string]*Actor
}

// NewManager creates a new actor manager.
func NewManager(st store.Store, provider Provider, logger log.Logger, metrics *Metrics) *Manager {
	if logger == nil {
		logger = log.Nop()
	}
	return &Manager{
		store:    st,
		provider: provider,
		logger:   logger,
		metrics:  metrics,
		actors:   make(map[string]*Actor),
	}
}

// Actor returns the singleton actor for the given incident ID, creating it
// if needed. The same *Actor is always returned for the same ID, which is
// what serializes operations per incident.
func (m *Manager) Actor(id string) *Actor {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actors[id]
	if !ok {
		a = &Actor{
			id:       id,
			store:    m.store,
			provider: m.provider,
			logger:   m.logger,
			metrics:  m.metrics,
		}
		m.actors[id] = a
	}
	return a
}
