package assistant

import (
	"fmt"
	"sync"
	"time"

	"knowledgebot/pkg/logx"
)

// State is the outcome of the most recent build attempt.
type State string

const (
	StateNotAttempted State = "not_attempted"
	StateReady        State = "ready"
	StateFailed       State = "failed"
)

// ConfigBuilder is what Provider needs from a Builder.
type ConfigBuilder interface {
	BuildWithSource() (Config, Source, error)
	Purge() error
}

// BuildRecorder observes build attempts.
type BuildRecorder interface {
	ObserveBuild(source Source, err error)
}

// Status is a snapshot of the provider for health checks.
type Status struct {
	AttemptedAt time.Time
	LastError   error
	State       State
	Source      Source
	Attempts    int
}

// Ready reports whether a Config is available.
func (s Status) Ready() bool {
	return s.State == StateReady
}

// Provider owns the single process-wide Config. The first Get builds it; later calls
// return the cached value. A failed build is remembered and returned until
// retryInterval has elapsed or Rebuild is called, so a broken environment does not
// trigger a build on every request.
type Provider struct {
	now           func() time.Time
	builder       ConfigBuilder
	recorder      BuildRecorder
	logger        *logx.Logger
	attemptedAt   time.Time
	lastErr       error
	cfg           Config
	state         State
	source        Source
	retryInterval time.Duration
	attempts      int
	mu            sync.Mutex
}

// NewProvider creates a provider. retryInterval == 0 disables automatic retry after failure.
func NewProvider(builder ConfigBuilder, retryInterval time.Duration) *Provider {
	return &Provider{
		builder:       builder,
		retryInterval: retryInterval,
		state:         StateNotAttempted,
		now:           time.Now,
		logger:        logx.NewLogger("assistant"),
	}
}

// SetRecorder installs a build observer.
func (p *Provider) SetRecorder(r BuildRecorder) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recorder = r
}

// Get returns the Config, building it if no attempt has been made yet.
func (p *Provider) Get() (Config, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateReady:
		return p.cfg, nil
	case StateFailed:
		if p.retryInterval == 0 || p.now().Sub(p.attemptedAt) < p.retryInterval {
			return Config{}, fmt.Errorf("assistant config unavailable since %s: %w",
				p.attemptedAt.UTC().Format(time.RFC3339), p.lastErr)
		}
		p.logger.Info("Retrying assistant config build after %s", p.retryInterval)
	}
	return p.buildLocked()
}

// Rebuild forces a new build, optionally deleting the cache file first. If the build
// fails while an earlier Config is held, that Config stays in service.
func (p *Provider) Rebuild(purge bool) (Config, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if purge {
		if err := p.builder.Purge(); err != nil {
			return Config{}, err
		}
	}
	return p.buildLocked()
}

// Status returns a snapshot without triggering a build.
func (p *Provider) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		State:       p.state,
		Source:      p.source,
		LastError:   p.lastErr,
		AttemptedAt: p.attemptedAt,
		Attempts:    p.attempts,
	}
}

func (p *Provider) buildLocked() (Config, error) {
	cfg, source, err := p.builder.BuildWithSource()
	p.attempts++
	p.attemptedAt = p.now()
	if p.recorder != nil {
		p.recorder.ObserveBuild(source, err)
	}

	if err != nil {
		p.lastErr = err
		if p.state != StateReady {
			p.state = StateFailed
		}
		p.logger.Error("Failed to build assistant config: %v", err)
		return Config{}, err
	}

	p.cfg = cfg
	p.source = source
	p.state = StateReady
	p.lastErr = nil
	return cfg, nil
}
