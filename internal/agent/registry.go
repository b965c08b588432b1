package agent

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/haasonsaas/agentcore/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrProgrammerError wraps conditions the registry treats as fail-fast bugs:
// duplicate ids on register, illegal status transitions. These are never
// expected in production and are distinct from AgentResult failures.
var ErrProgrammerError = errors.New("agentcore: programmer error")

// RegistryConfig configures eviction behavior.
type RegistryConfig struct {
	// IdleTTL is how long a terminal-or-suspended entry survives before
	// the sweep removes it. Default 30 minutes.
	IdleTTL time.Duration
	// SweepInterval is how often the background eviction pass runs.
	// Zero uses the 5-minute default; negative disables the background
	// goroutine entirely. Sweep can still be invoked manually (used by
	// tests).
	SweepInterval time.Duration
}

func (c RegistryConfig) withDefaults() RegistryConfig {
	if c.IdleTTL <= 0 {
		c.IdleTTL = 30 * time.Minute
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = 5 * time.Minute
	}
	return c
}

// Registry is the authoritative, in-memory store of agent identity and
// state for the process lifetime. All mutations are serialized under a
// single mutex; list operations return copy-on-read snapshots so readers
// never block writers beyond the duration of the copy.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*models.AgentInstance
	cfg     RegistryConfig

	stopOnce  sync.Once
	stopCh    chan struct{}
	evictions prometheus.Counter
}

// WithEvictionCounter attaches an optional Prometheus counter incremented
// once per sweep by the number of entries removed. Safe to call before or
// after the background sweep goroutine has started.
func (r *Registry) WithEvictionCounter(c prometheus.Counter) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictions = c
	return r
}

// NewRegistry constructs a Registry and starts its background eviction
// sweep unless cfg.SweepInterval is negative.
func NewRegistry(cfg RegistryConfig) *Registry {
	cfg = cfg.withDefaults()
	r := &Registry{
		entries: make(map[string]*models.AgentInstance),
		cfg:     cfg,
		stopCh:  make(chan struct{}),
	}
	if cfg.SweepInterval > 0 {
		go r.sweepLoop()
	}
	return r
}

// Close stops the background eviction goroutine. Safe to call more than
// once.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

func (r *Registry) sweepLoop() {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Sweep(time.Now())
		case <-r.stopCh:
			return
		}
	}
}

// Register adds a new entry under the given id. Duplicate ids are a
// programmer error.
func (r *Registry) Register(id string, info models.AgentInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; exists {
		slog.Error("duplicate agent id registered", "agent_id", id)
		return fmt.Errorf("%w: duplicate agent id %q", ErrProgrammerError, id)
	}
	info.ID = id
	now := time.Now()
	if info.CreatedAt.IsZero() {
		info.CreatedAt = now
	}
	info.LastActivityAt = now
	cp := info
	cp.History = append([]models.Message(nil), info.History...)
	r.entries[id] = &cp
	return nil
}

// TryGet returns a snapshot of the entry and touches its LastActivityAt on
// hit. Returns ok=false on miss without error.
func (r *Registry) TryGet(id string) (models.AgentInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return models.AgentInstance{}, false
	}
	e.LastActivityAt = time.Now()
	return e.Clone(), true
}

// UpdateStatus performs a legal state transition and touches
// LastActivityAt. A missing id is silently ignored (late callbacks from a
// cancelled or evicted agent are harmless). An illegal transition on a
// known id is a programmer error.
func (r *Registry) UpdateStatus(id string, status models.AgentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	if !models.CanTransition(e.Status, status) {
		slog.Error("illegal agent status transition", "agent_id", id, "from", e.Status, "to", status)
		return fmt.Errorf("%w: illegal transition %s -> %s for agent %q", ErrProgrammerError, e.Status, status, id)
	}
	e.Status = status
	e.LastActivityAt = time.Now()
	return nil
}

// AppendHistory appends messages to the instance's history and touches
// LastActivityAt. No-op on a missing id.
func (r *Registry) AppendHistory(id string, messages ...models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return
	}
	e.History = append(e.History, messages...)
	e.LastActivityAt = time.Now()
}

// SetBinding stores the agent binding returned by the ModelPortal.
func (r *Registry) SetBinding(id string, binding models.AgentBinding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.Binding = binding
		e.LastActivityAt = time.Now()
	}
}

// IncrementToolCalls atomically increments the tool-call counter and
// touches LastActivityAt. No-op on a missing id, matching UpdateStatus.
func (r *Registry) IncrementToolCalls(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return
	}
	e.ToolCallCount++
	e.LastActivityAt = time.Now()
}

// ListRunning returns a snapshot of every Running entry.
func (r *Registry) ListRunning() []models.AgentInstance {
	return r.listWhere(func(i *models.AgentInstance) bool { return i.Status == models.StatusRunning })
}

// ListAll returns a snapshot of every entry.
func (r *Registry) ListAll() []models.AgentInstance {
	return r.listWhere(func(*models.AgentInstance) bool { return true })
}

func (r *Registry) listWhere(pred func(*models.AgentInstance) bool) []models.AgentInstance {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AgentInstance, 0, len(r.entries))
	for _, e := range r.entries {
		if pred(e) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Remove explicitly evicts an entry. Idempotent.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Sweep removes every entry whose status is eviction-eligible (Suspended,
// Failed or Cancelled) and whose LastActivityAt is older than the
// configured idle TTL as of `now`. Running entries are never touched.
// Eviction is silent: no observer event is emitted.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, e := range r.entries {
		if !e.Status.EvictionEligible() {
			continue
		}
		if now.Sub(e.LastActivityAt) >= r.cfg.IdleTTL {
			delete(r.entries, id)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("registry sweep evicted idle agents", "count", removed)
		if r.evictions != nil {
			r.evictions.Add(float64(removed))
		}
	}
	return removed
}
