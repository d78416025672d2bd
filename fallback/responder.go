// Package fallback keeps the client usable when the live service is
// unreachable by answering requests from a locally synthesized dataset.
//
// Fallback mode is entered only after an observed failure against the live
// service and exited only through an explicit successful health probe, so a
// single lucky response cannot flap the client back and forth.
package fallback

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// Responder owns the fallback-mode flag and the synthetic dataset.
type Responder struct {
	probeURL     string
	probeTimeout time.Duration
	httpClient   *http.Client
	clock        clock.Clock
	log          zerolog.Logger

	mu        sync.RWMutex
	active    bool
	listeners []func(active bool)
}

// ResponderOption defines a function type to modify the Responder instance.
type ResponderOption func(*Responder)

// WithHTTPClient sets the HTTP client used for health probes.
func WithHTTPClient(c *http.Client) ResponderOption {
	return func(r *Responder) {
		r.httpClient = c
	}
}

// WithClock sets the clock used by the re-probe loop (primarily for testing).
func WithClock(c clock.Clock) ResponderOption {
	return func(r *Responder) {
		r.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) ResponderOption {
	return func(r *Responder) {
		r.log = log
	}
}

// NewResponder creates a Responder probing the service's health endpoint.
// apiBaseURL is the versioned API base (e.g. "http://host/api/v1"); the
// health endpoint lives at the service root.
func NewResponder(apiBaseURL string, probeTimeout time.Duration, options ...ResponderOption) *Responder {
	r := &Responder{
		probeURL:     healthURL(apiBaseURL),
		probeTimeout: probeTimeout,
		httpClient:   http.DefaultClient,
		clock:        clock.New(),
		log:          zerolog.Nop(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func healthURL(apiBaseURL string) string {
	root := strings.TrimSuffix(strings.TrimRight(apiBaseURL, "/"), "/api/v1")
	return root + "/health"
}

// Active reports whether fallback mode is engaged.
func (r *Responder) Active() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Activate engages fallback mode. Called by the request pipeline after an
// observed live-call failure; never called proactively.
func (r *Responder) Activate() {
	r.setActive(true)
}

// OnModeChange registers a listener invoked whenever fallback mode flips.
func (r *Responder) OnModeChange(fn func(active bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *Responder) setActive(active bool) {
	r.mu.Lock()
	if r.active == active {
		r.mu.Unlock()
		return
	}
	r.active = active
	listeners := make([]func(bool), len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	r.log.Info().Bool("fallback", active).Msg("Fallback mode changed")
	for _, fn := range listeners {
		fn(active)
	}
}

// Probe performs a lightweight reachability check against the live service.
// A successful probe is the only path out of fallback mode.
func (r *Responder) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.log.Debug().Err(err).Msg("Health probe failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	r.setActive(false)
	return true
}

// StartProbing re-probes the live service on a fixed cadence while fallback
// mode is active, until ctx is cancelled. Opt-in: the caller decides whether
// automatic promotion back to live mode is wanted.
func (r *Responder) StartProbing(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := r.clock.Ticker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if r.Active() {
					r.Probe(ctx)
				}
			}
		}
	}()
}
