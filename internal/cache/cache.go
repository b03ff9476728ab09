// Package cache holds the rendered global timeline for a fixed window.
//
// SINGLE SLOT:
// There is exactly one snapshot. It is not keyed by page number, query
// string or viewer: while it is fresh every GET of the wrapped route gets
// the same bytes, whatever was written to the store in the meantime. The
// snapshot goes stale when the TTL elapses on the injected clock or when
// Flush is called; there is no invalidation on write.
//
// Readers never wait for a recomposition. When the slot is stale, every
// request that arrives before the first one stores a new snapshot renders
// the page itself.
package cache

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/sakif/yatube/internal/clock"
	"github.com/sakif/yatube/internal/metrics"
)

// Snapshot is a rendered response.
type Snapshot struct {
	Header    http.Header
	Body      []byte
	StoredAt  time.Time
	expiresAt time.Time
}

// PageCache is safe for concurrent use.
type PageCache struct {
	ttl   time.Duration
	clock clock.Clock

	mu   sync.RWMutex
	snap *Snapshot
}

// New returns an empty cache. A ttl of zero disables caching: Get always
// misses and Set stores nothing.
func New(ttl time.Duration, clk clock.Clock) *PageCache {
	if ttl < 0 {
		ttl = 0
	}
	return &PageCache{ttl: ttl, clock: clk}
}

// TTL reports the freshness window.
func (c *PageCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the snapshot if it is still fresh.
func (c *PageCache) Get() (*Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snap == nil || !c.clock.Now().Before(c.snap.expiresAt) {
		return nil, false
	}
	return c.snap, true
}

// Set replaces the snapshot. The window starts now.
func (c *PageCache) Set(header http.Header, body []byte) {
	if c.ttl == 0 {
		return
	}
	now := c.clock.Now()
	snap := &Snapshot{
		Header:    header.Clone(),
		Body:      bytes.Clone(body),
		StoredAt:  now,
		expiresAt: now.Add(c.ttl),
	}

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
}

// Flush drops the snapshot so the next request recomposes the page.
func (c *PageCache) Flush() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
	metrics.RecordCacheEvent(metrics.CacheFlush)
}

// Middleware serves GET requests from the snapshot while it is fresh and
// otherwise runs next, storing its output when it answers 200.
func (c *PageCache) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		if snap, ok := c.Get(); ok {
			metrics.RecordCacheEvent(metrics.CacheHit)
			for k, v := range snap.Header {
				w.Header()[k] = v
			}
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(http.StatusOK)
			w.Write(snap.Body)
			return
		}

		metrics.RecordCacheEvent(metrics.CacheMiss)
		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		w.Header().Set("X-Cache", "MISS")
		next.ServeHTTP(rec, r)

		if rec.status == http.StatusOK && c.ttl > 0 {
			header := w.Header().Clone()
			header.Del("X-Cache")
			header.Del("Set-Cookie")
			c.Set(header, rec.body.Bytes())
			metrics.RecordCacheEvent(metrics.CacheStore)
		}
	})
}

// recorder passes the response through while keeping a copy of the body.
type recorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
