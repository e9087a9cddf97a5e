package region

import (
	"sync"
	"time"

	"github.com/xiaonanln/regioncache/event"
	"github.com/xiaonanln/regioncache/locking"
	"github.com/xiaonanln/regioncache/util/logger"
)

// Config holds the settings for a single cache region.
type Config struct {
	// Name identifies the region in logs, metrics and replication
	// commands.
	Name string
	// MaxLife bounds how long an element stays valid. Zero means
	// elements never expire. Expiry is checked passively on access;
	// there is no background eviction.
	MaxLife time.Duration
	// Locking configures the region's per-key lock manager.
	Locking locking.Config
}

// element is a stored value with its placement time for max-life checks.
type element struct {
	value  []byte
	placed time.Time
}

// Region is an in-memory cache region. Mutations on a key are serialized
// through the region's per-key lock manager, and every lifecycle
// transition is published to the region's listener through an ordered
// event queue, asynchronously and outside the locked section.
type Region struct {
	name     string
	maxLife  time.Duration
	locks    *locking.Manager
	queue    *event.Queue
	listener event.Listener

	mu       sync.Mutex
	elements map[string]element

	shutdownOnce sync.Once
	logger       *logger.Logger
}

// New creates a region and starts its lock reaper and event delivery
// loop. listener receives the region's lifecycle events; it may be nil
// for a region nobody observes.
func New(cfg Config, listener event.Listener) *Region {
	if cfg.Locking.Name == "" {
		cfg.Locking.Name = cfg.Name
	}
	r := &Region{
		name:     cfg.Name,
		maxLife:  cfg.MaxLife,
		locks:    locking.NewManager(cfg.Locking),
		queue:    event.NewQueue(cfg.Name),
		listener: listener,
		elements: make(map[string]element),
		logger:   logger.NewLogger("Region"),
	}
	r.locks.Start()
	r.queue.Start()
	r.logger.Infof("Region %q created (max life %v)", r.name, r.maxLife)
	return r
}

// Name returns the region name.
func (r *Region) Name() string {
	return r.name
}

// Put stores value under key and publishes an element-placed event.
func (r *Region) Put(key string, value []byte) {
	r.locks.Acquire(key, locking.Write)
	r.putLocal(key, value)
	r.locks.Release(key, locking.Write)

	r.submit(event.ElementPlaced, key, value)
}

// Get returns the value stored under key. An element past its max life
// is removed on access and publishes an element-expired event.
func (r *Region) Get(key string) ([]byte, bool) {
	r.locks.Acquire(key, locking.Read)
	r.mu.Lock()
	el, ok := r.elements[key]
	r.mu.Unlock()
	r.locks.Release(key, locking.Read)

	if !ok {
		return nil, false
	}
	if !r.expired(el) {
		return el.value, true
	}

	// Re-check under the write lock; another caller may have replaced
	// or removed the element since the read.
	r.locks.Acquire(key, locking.Write)
	r.mu.Lock()
	el, ok = r.elements[key]
	stillExpired := ok && r.expired(el)
	if stillExpired {
		delete(r.elements, key)
	}
	r.mu.Unlock()
	r.locks.Release(key, locking.Write)

	if stillExpired {
		r.submit(event.ElementExpired, key, el.value)
	}
	return nil, false
}

// Remove deletes the element under key, if any, and publishes an
// element-removed event when something was actually removed.
func (r *Region) Remove(key string) bool {
	r.locks.Acquire(key, locking.Write)
	el, existed := r.removeLocal(key)
	r.locks.Release(key, locking.Write)

	if existed {
		r.submit(event.ElementRemoved, key, el.value)
	}
	return existed
}

// RemoveAll clears the region. No per-element events are published.
func (r *Region) RemoveAll() {
	r.mu.Lock()
	n := len(r.elements)
	r.elements = make(map[string]element)
	r.mu.Unlock()
	r.logger.Infof("Removed all %d elements from region %q", n, r.name)
}

// PutLocal stores value under key without publishing an event. Used when
// applying a replicated command, so the write is not propagated again.
func (r *Region) PutLocal(key string, value []byte) {
	r.locks.Acquire(key, locking.Write)
	r.putLocal(key, value)
	r.locks.Release(key, locking.Write)
}

// RemoveLocal deletes the element under key without publishing an event.
func (r *Region) RemoveLocal(key string) {
	r.locks.Acquire(key, locking.Write)
	r.removeLocal(key)
	r.locks.Release(key, locking.Write)
}

// Len returns the number of elements in the region, counting elements
// past their max life that have not been touched yet.
func (r *Region) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.elements)
}

// Queue exposes the region's event queue.
func (r *Region) Queue() *event.Queue {
	return r.queue
}

// LockManager exposes the region's per-key lock manager.
func (r *Region) LockManager() *locking.Manager {
	return r.locks
}

// Shutdown stops the lock reaper and destroys the event queue, dropping
// anything still undelivered. Idempotent.
func (r *Region) Shutdown() {
	r.shutdownOnce.Do(func() {
		r.logger.Infof("Shutting down region %q", r.name)
		r.locks.Stop()
		r.queue.Destroy()
	})
}

func (r *Region) putLocal(key string, value []byte) {
	r.mu.Lock()
	r.elements[key] = element{value: value, placed: time.Now()}
	r.mu.Unlock()
}

func (r *Region) removeLocal(key string) (element, bool) {
	r.mu.Lock()
	el, existed := r.elements[key]
	if existed {
		delete(r.elements, key)
	}
	r.mu.Unlock()
	return el, existed
}

func (r *Region) expired(el element) bool {
	return r.maxLife > 0 && time.Since(el.placed) > r.maxLife
}

func (r *Region) submit(kind event.Kind, key string, value []byte) {
	if r.listener == nil {
		return
	}
	r.queue.Submit(r.listener, event.ElementEvent{Kind: kind, Key: key, Value: value})
}
