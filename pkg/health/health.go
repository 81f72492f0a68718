// Package health implements the /livez and /readyz probes of the storefront
// server.
//
// Checks run periodically in the background. A check turns unhealthy after
// FailureThreshold consecutive failures and healthy again after
// SuccessThreshold consecutive successes.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"
)

// Kind selects the probe a check contributes to.
type Kind int

const (
	// Liveness checks report whether the process should be restarted.
	Liveness Kind = iota
	// Readiness checks report whether the process should receive traffic.
	Readiness
)

// Func checks a single dependency.
type Func func(ctx context.Context) error

// Check describes a registered check. Zero thresholds default to 3 failures
// and 1 success. A zero Timeout defaults to one second.
type Check struct {
	Name             string
	Kind             Kind
	Timeout          time.Duration
	FailureThreshold int
	SuccessThreshold int
	Func             Func
}

type state struct {
	Check

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	// Owned by the goroutine running the check.
	fails int
	oks   int
}

func (s *state) err() error {
	if p := s.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *state) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	err := s.Func(ctx)
	s.lastErr.Store(&err)
	if err != nil {
		s.oks = 0
		s.fails++
		if s.fails >= s.FailureThreshold {
			s.healthy.Store(false)
		}
		return
	}
	s.fails = 0
	s.oks++
	if s.oks >= s.SuccessThreshold {
		s.healthy.Store(true)
	}
}

// Registry holds the registered checks and the manual readiness flag.
type Registry struct {
	ready atomic.Bool

	mu     sync.RWMutex
	checks []*state
}

// New creates an empty Registry. It starts not ready.
func New() *Registry {
	return &Registry{}
}

// Add registers c. Checks start healthy.
func (r *Registry) Add(c Check) {
	if c.Timeout <= 0 {
		c.Timeout = time.Second
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	s := &state{Check: c}
	s.healthy.Store(true)

	r.mu.Lock()
	r.checks = append(r.checks, s)
	r.mu.Unlock()
}

// SetReady sets the manual readiness flag. The server marks itself ready once
// it listens and not ready when shutdown begins.
func (r *Registry) SetReady(ready bool) {
	r.ready.Store(ready)
}

// Ready reports whether the readiness probe passes.
func (r *Registry) Ready() bool {
	return r.ready.Load() && len(r.failures(Readiness)) == 0
}

func (r *Registry) snapshot(kind Kind) []*state {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*state
	for _, s := range r.checks {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// Run probes every check once and then every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.Errorf("invalid interval %s", interval)
	}

	r.mu.RLock()
	checks := slices.Clone(r.checks)
	r.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, s := range checks {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			s.probe(ctx)
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					s.probe(ctx)
				}
			}
		})
	}
	return g.Wait()
}

type failure struct {
	name string
	msg  string
}

func (r *Registry) failures(kind Kind) []failure {
	var out []failure
	for _, s := range r.snapshot(kind) {
		if s.healthy.Load() {
			continue
		}
		msg := "check is unhealthy"
		if err := s.err(); err != nil {
			msg = err.Error()
		}
		out = append(out, failure{name: s.Name, msg: msg})
	}
	return out
}

// Livez serves the liveness probe.
func (r *Registry) Livez(w http.ResponseWriter, _ *http.Request) {
	write(w, r.failures(Liveness))
}

// Readyz serves the readiness probe.
func (r *Registry) Readyz(w http.ResponseWriter, _ *http.Request) {
	failures := r.failures(Readiness)
	if !r.ready.Load() {
		failures = append(failures, failure{name: "_readiness", msg: "service is not ready"})
	}
	write(w, failures)
}

// write responds with {"status":"ok"} or 503 and the failing checks.
func write(w http.ResponseWriter, failures []failure) {
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
		e.FieldStart("checks")
		e.ObjStart()
		for _, f := range failures {
			e.FieldStart(f.name)
			e.Str(f.msg)
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
