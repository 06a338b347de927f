// Package health serves Kubernetes-style liveness and readiness probes.
//
// Checks run periodically in the background; probe handlers only read the
// last recorded state. A check flips to unhealthy after FailureThreshold
// consecutive failures and back after one success.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
)

// FailureThreshold is the number of consecutive failures that mark a check
// unhealthy.
const FailureThreshold = 3

// CheckFunc reports nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	// fails is touched only by the goroutine running the check.
	fails int
}

func newCheck(name string, timeout time.Duration, fn CheckFunc) *check {
	c := &check{name: name, timeout: timeout, fn: fn}
	c.healthy.Store(true)
	return c
}

func (c *check) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(ctx)
	c.lastErr.Store(&err)
	if err == nil {
		c.fails = 0
		c.healthy.Store(true)
		return
	}
	c.fails++
	if c.fails >= FailureThreshold {
		c.healthy.Store(false)
	}
}

// failure returns the reason c is unhealthy, or "" if it is healthy.
func (c *check) failure() string {
	if c.healthy.Load() {
		return ""
	}
	if p := c.lastErr.Load(); p != nil && *p != nil {
		return (*p).Error()
	}
	return "check is unhealthy"
}

// Health tracks liveness and readiness of the process.
type Health struct {
	ready atomic.Bool

	mu        sync.Mutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New returns a Health that reports not ready until SetReady(true).
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check failing /livez. Register before Start.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newCheck(name, timeout, fn))
}

// AddReadinessCheck registers a check failing /readyz. Register before Start.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newCheck(name, timeout, fn))
}

// Start runs every registered check now and then every interval until Stop
// or ctx cancellation.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx, h.cancel = context.WithCancel(ctx)
	for _, c := range append(append([]*check(nil), h.liveness...), h.readiness...) {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				c.run(ctx)
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}()
	}
}

// Stop halts background checks and waits for them to exit. It is safe to
// call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.mu.Unlock()
	h.wg.Wait()
}

// SetReady toggles the manual readiness flag, e.g. false while draining.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the flag is set and every readiness check passes.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(h.failures(h.snapshot(false))) == 0
}

func (h *Health) snapshot(live bool) []*check {
	h.mu.Lock()
	defer h.mu.Unlock()
	if live {
		return append([]*check(nil), h.liveness...)
	}
	return append([]*check(nil), h.readiness...)
}

func (h *Health) failures(checks []*check) map[string]string {
	out := make(map[string]string)
	for _, c := range checks {
		if msg := c.failure(); msg != "" {
			out[c.name] = msg
		}
	}
	return out
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, h.failures(h.snapshot(true)))
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := h.failures(h.snapshot(false))
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeStatus(w, failures)
}

// writeStatus answers 200 {"status":"ok"} or 503 with the failing checks.
func writeStatus(w http.ResponseWriter, failures map[string]string) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	status := http.StatusOK
	e.ObjStart()
	e.FieldStart("status")
	if len(failures) == 0 {
		e.Str("ok")
	} else {
		status = http.StatusServiceUnavailable
		e.Str("unhealthy")

		names := make([]string, 0, len(failures))
		for name := range failures {
			names = append(names, name)
		}
		sort.Strings(names)

		e.FieldStart("checks")
		e.ObjStart()
		for _, name := range names {
			e.FieldStart(name)
			e.Str(failures[name])
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
