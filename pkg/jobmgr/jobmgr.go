// Package jobmgr runs named background jobs, at most one per name, and
// cancels them together on shutdown.
package jobmgr

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
)

type Manager struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	jobs   map[string]context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager() *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{ctx: ctx, cancel: cancel, jobs: make(map[string]context.CancelFunc)}
}

// StartAsync runs runner in its own goroutine. It fails when a job with the
// same name is still running or the manager was shut down.
func (m *Manager) StartAsync(name string, runner func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx.Err() != nil {
		return fmt.Errorf("job %q: manager is shut down", name)
	}
	if _, exists := m.jobs[name]; exists {
		return fmt.Errorf("job %q is already running", name)
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.jobs[name] = cancel
	m.wg.Add(1)

	go func() {
		defer m.wg.Done()
		defer cancel()

		log.Debug().Str("job", name).Msg("[Jobs] running")
		if err := runner(ctx); err != nil {
			log.Error().Err(err).Str("job", name).Msg("[Jobs] failed")
		} else {
			log.Debug().Str("job", name).Msg("[Jobs] done")
		}

		m.mu.Lock()
		delete(m.jobs, name)
		m.mu.Unlock()
	}()
	return nil
}

// Stop cancels a running job by name.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cancel, ok := m.jobs[name]
	if !ok {
		return fmt.Errorf("job %q not running", name)
	}
	cancel()
	return nil
}

// List returns the names of running jobs, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Shutdown cancels every job and waits for them to return.
func (m *Manager) Shutdown() {
	m.cancel()
	m.wg.Wait()
}
