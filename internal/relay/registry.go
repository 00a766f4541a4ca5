// Package relay routes out-of-band provider callbacks to the browser stream
// waiting for them.
package relay

import (
	"sync"
	"time"

	"github.com/directorchair/directorchair/internal/logger"
	"github.com/directorchair/directorchair/internal/metrics"
)

const (
	DefaultTTL  = 10 * time.Minute
	frameBuffer = 16
)

// Conn is one open subscriber stream. Frames is closed when the entry leaves
// the registry for any reason.
type Conn struct {
	id     string
	opened time.Time
	frames chan []byte
	once   sync.Once
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Frames() <-chan []byte { return c.frames }

func (c *Conn) close() {
	c.once.Do(func() { close(c.frames) })
}

// Registry maps generation ids to their open stream. Entries leave on a
// terminal frame, on subscriber cancel or when older than the TTL.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*Conn
	ttl   time.Duration
	now   func() time.Time
	log   logger.Scoped
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		conns: make(map[string]*Conn),
		ttl:   ttl,
		now:   time.Now,
		log:   logger.Tag("callback"),
	}
}

// Open registers a stream for id. An older stream for the same id is closed.
func (r *Registry) Open(id string) *Conn {
	c := &Conn{id: id, opened: r.now(), frames: make(chan []byte, frameBuffer)}

	r.mu.Lock()
	old := r.conns[id]
	r.conns[id] = c
	n := len(r.conns)
	r.mu.Unlock()

	if old != nil {
		old.close()
		r.log.Warn("replaced open stream for %s", id)
	}
	metrics.SSEConnections.Set(float64(n))
	return c
}

// Deliver enqueues frame on the stream for id. It returns false when no
// stream is open. A terminal frame closes and removes the stream after it is
// enqueued.
func (r *Registry) Deliver(id string, frame []byte, terminal bool) bool {
	r.mu.Lock()
	c, ok := r.conns[id]
	if !ok {
		r.mu.Unlock()
		metrics.SSEFrames.WithLabelValues("orphaned").Inc()
		return false
	}
	select {
	case c.frames <- frame:
		metrics.SSEFrames.WithLabelValues("delivered").Inc()
	default:
		metrics.SSEFrames.WithLabelValues("dropped").Inc()
		r.log.Warn("stream for %s is not draining, dropped frame", id)
	}
	if terminal {
		delete(r.conns, id)
		c.close()
	}
	n := len(r.conns)
	r.mu.Unlock()

	metrics.SSEConnections.Set(float64(n))
	return true
}

// Cancel removes c if it is still the registered stream for its id.
func (r *Registry) Cancel(c *Conn) {
	r.mu.Lock()
	if cur, ok := r.conns[c.id]; ok && cur == c {
		delete(r.conns, c.id)
	}
	n := len(r.conns)
	r.mu.Unlock()

	c.close()
	metrics.SSEConnections.Set(float64(n))
}

// Sweep closes streams opened more than the TTL before now and returns how
// many it removed.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.ttl)

	r.mu.Lock()
	var expired []*Conn
	for id, c := range r.conns {
		if c.opened.Before(cutoff) {
			delete(r.conns, id)
			expired = append(expired, c)
		}
	}
	n := len(r.conns)
	r.mu.Unlock()

	for _, c := range expired {
		c.close()
		r.log.Info("evicted idle stream %s", c.id)
	}
	metrics.SSEConnections.Set(float64(n))
	return len(expired)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[id]
	return ok
}

// IsTerminal reports whether a callback state ends the stream. FAL webhooks
// use OK and ERROR; app callbacks use completed and failed.
func IsTerminal(state string) bool {
	switch state {
	case "completed", "failed", "OK", "ERROR":
		return true
	}
	return false
}
