package ai

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type reply struct {
	text string
	err  error
}

type fakeModel struct {
	name    string
	mu      sync.Mutex
	replies []reply
	calls   int
	prompts []string
}

func (m *fakeModel) Name() string { return m.name }

func (m *fakeModel) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if len(m.replies) == 0 {
		return "", fmt.Errorf("no scripted reply for %s", m.name)
	}
	r := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return r.text, r.err
}

func (m *fakeModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type fakeBackend struct {
	models  map[string]*fakeModel
	initErr map[string]error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{models: map[string]*fakeModel{}, initErr: map[string]error{}}
}

func (b *fakeBackend) script(name string, replies ...reply) *fakeModel {
	m := &fakeModel{name: name, replies: replies}
	b.models[name] = m
	return m
}

func (b *fakeBackend) Model(name string) (Model, error) {
	if err := b.initErr[name]; err != nil {
		return nil, err
	}
	m, ok := b.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, name)
	}
	return m, nil
}

type recordingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return nil
}

const (
	testPrimary  = "lite"
	testFallback = "full"
)

func testConfig() Config {
	return Config{
		Enabled:       true,
		PrimaryModel:  testPrimary,
		FallbackModel: testFallback,
	}
}

func newTestOrchestrator(cfg Config, backend Backend) (*Orchestrator, *recordingSleep) {
	rec := &recordingSleep{}
	return NewOrchestrator(cfg, backend, WithSleep(rec.sleep)), rec
}

func answer(text string) reply { return reply{text: text} }

func rateLimited() reply {
	return reply{err: fmt.Errorf("%w: status 429", ErrRateLimited)}
}
