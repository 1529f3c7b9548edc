// Package workers contains background workers for the launcher.
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/starpoint/launchpad/internal/shell/store"
)

// =============================================================================
// Readiness Prober
// =============================================================================

// ReadinessProberConfig configures the readiness prober.
type ReadinessProberConfig struct {
	// Interval is the time between probes.
	// Default: 2 seconds.
	Interval time.Duration

	// ProbeTimeout is the timeout for a single probe.
	// Default: 5 seconds.
	ProbeTimeout time.Duration
}

// DefaultReadinessProberConfig returns the default configuration.
func DefaultReadinessProberConfig() ReadinessProberConfig {
	return ReadinessProberConfig{
		Interval:     2 * time.Second,
		ProbeTimeout: 5 * time.Second,
	}
}

// ReadinessProber polls the launched application's HTTP endpoint until it
// answers, then records the run as running. It observes only; the
// application process is never touched. Probing always targets loopback
// regardless of the bind address.
type ReadinessProber struct {
	url    string
	runID  string
	store  store.RunStore // may be nil when history is disabled
	config ReadinessProberConfig
	client *http.Client
	logger *slog.Logger

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReadinessProber creates a readiness prober for the app listening on
// the given port. runStore may be nil.
func NewReadinessProber(port int, runID string, runStore store.RunStore, config ReadinessProberConfig, logger *slog.Logger) *ReadinessProber {
	if config.Interval == 0 {
		config.Interval = 2 * time.Second
	}
	if config.ProbeTimeout == 0 {
		config.ProbeTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ReadinessProber{
		url:    fmt.Sprintf("http://127.0.0.1:%d/", port),
		runID:  runID,
		store:  runStore,
		config: config,
		client: &http.Client{Timeout: config.ProbeTimeout},
		logger: logger.With("component", "readiness_prober"),
	}
}

// Start begins probing in the background. Probing stops on the first
// successful answer or when Stop is called.
func (p *ReadinessProber) Start() {
	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.wg.Add(1)
	go p.run()

	p.logger.Debug("readiness prober started", "url", p.url, "interval", p.config.Interval)
}

// Stop stops the prober and waits for the probe loop to finish.
func (p *ReadinessProber) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// run is the probe loop.
func (p *ReadinessProber) run() {
	defer p.wg.Done()

	start := time.Now()
	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if p.probe() {
				p.onReady(time.Since(start))
				return
			}
		}
	}
}

// probe issues one HTTP GET. Any HTTP response at all counts as ready; a
// web framework that answers, even with an error page, is up.
func (p *ReadinessProber) probe() bool {
	req, err := http.NewRequestWithContext(p.ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// onReady records readiness in the run history and logs it.
func (p *ReadinessProber) onReady(after time.Duration) {
	p.logger.Info("application is answering", "url", p.url, "after", after.Round(time.Millisecond))

	if p.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.config.ProbeTimeout)
	defer cancel()

	if err := p.store.MarkRunRunning(ctx, p.runID, time.Now()); err != nil {
		p.logger.Warn("failed to record readiness", "run_id", p.runID, "error", err)
	}
}
