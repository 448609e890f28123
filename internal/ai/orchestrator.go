package ai

import (
	"context"
	"time"
)

// Orchestrator runs moderation, category suggestion and idea fusion against a model
// backend. It holds no mutable state and is safe for concurrent use.
type Orchestrator struct {
	cfg     Config
	backend Backend
	sleep   sleepFunc
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

// NewOrchestrator builds an orchestrator. A nil backend leaves generation unavailable,
// which every operation treats like a disabled feature flag.
func NewOrchestrator(cfg Config, backend Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:     cfg.withDefaults(),
		backend: backend,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Enabled reports whether model calls can be made.
func (o *Orchestrator) Enabled() bool {
	return o != nil && o.cfg.Enabled && o.backend != nil
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config {
	if o == nil {
		return Config{}.withDefaults()
	}
	return o.cfg
}
