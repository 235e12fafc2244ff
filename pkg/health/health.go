// Package health implements liveness and readiness probes. Checks run
// periodically in the background and use consecutive failure/success
// thresholds so a single hiccup does not flip the reported state.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// CheckFunc probes one component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

// Kind distinguishes liveness checks from readiness checks.
type Kind int

const (
	// Liveness checks tell whether the process itself is functional.
	Liveness Kind = iota
	// Readiness checks tell whether the service should receive traffic.
	Readiness
)

const (
	failureThreshold = 3
	successThreshold = 1
)

type check struct {
	name    string
	kind    Kind
	timeout time.Duration
	fn      CheckFunc

	mu      sync.Mutex
	healthy bool
	lastErr error
	fails   int
	oks     int
}

func (c *check) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	err := c.fn(ctx)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
	if err != nil {
		c.oks = 0
		if c.fails++; c.fails >= failureThreshold {
			c.healthy = false
		}
		return
	}
	c.fails = 0
	if c.oks++; c.oks >= successThreshold {
		c.healthy = true
	}
}

func (c *check) state() (healthy bool, lastErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.healthy, c.lastErr
}

// Service owns the registered checks and the manual readiness gate.
type Service struct {
	mu     sync.Mutex
	checks []*check
	ready  bool
	cancel context.CancelFunc
}

// New creates a Service. It reports not-ready until SetReady(true).
func New() *Service {
	return &Service{}
}

// Add registers a check. Must be called before Start.
func (s *Service) Add(name string, kind Kind, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = append(s.checks, &check{
		name:    name,
		kind:    kind,
		timeout: timeout,
		fn:      fn,
		healthy: true,
	})
}

// Start launches the background probe loop. All checks run once immediately
// and then on every tick until Stop or context cancellation.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	checks := make([]*check, len(s.checks))
	copy(checks, s.checks)
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for _, c := range checks {
			c.run(ctx)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, c := range checks {
					c.run(ctx)
				}
			}
		}
	}()
}

// Stop cancels the probe loop. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Set false during shutdown so load
// balancers drain traffic before connections close.
func (s *Service) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

func (s *Service) snapshot(kind Kind) (ready bool, checks []*check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ready = s.ready
	for _, c := range s.checks {
		if c.kind == kind {
			checks = append(checks, c)
		}
	}
	return ready, checks
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves the liveness probe: 200 while all liveness checks pass,
// 503 with per-check failures otherwise.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	_, checks := s.snapshot(Liveness)
	writeStatus(w, failures(checks))
}

// ReadyEndpoint serves the readiness probe: 200 only when the manual gate is
// open and every readiness check passes.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	ready, checks := s.snapshot(Readiness)
	f := failures(checks)
	if !ready {
		f["service"] = "not ready"
	}
	writeStatus(w, f)
}

func failures(checks []*check) map[string]string {
	f := make(map[string]string)
	for _, c := range checks {
		healthy, lastErr := c.state()
		if healthy {
			continue
		}
		if lastErr != nil {
			f[c.name] = lastErr.Error()
		} else {
			f[c.name] = "unhealthy"
		}
	}
	return f
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp = statusResponse{Status: "unhealthy", Checks: failures}
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
