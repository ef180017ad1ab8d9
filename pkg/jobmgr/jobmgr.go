// Package jobmgr runs named background jobs with cancellation and in-memory
// tracking. A name is held by at most one running job.
//
//	jm := jobmgr.NewManager(log)
//	err := jm.StartAsync("voice:123", func(ctx context.Context) error {
//	    // work until ctx is cancelled
//	    return nil
//	})
//	_ = jm.Stop("voice:123")
//
// Jobs are removed automatically when they return.
package jobmgr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrJobRunning is returned by StartAsync when the name is taken.
	ErrJobRunning = errors.New("job already running")
	// ErrJobNotRunning is returned by Stop for unknown names.
	ErrJobNotRunning = errors.New("job not running")
)

type job struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager starts, stops and tracks jobs. It is safe for concurrent use.
type Manager struct {
	mu   sync.Mutex
	jobs map[string]*job
	log  zerolog.Logger
}

// NewManager creates a Manager that logs job lifecycle events to log.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		jobs: make(map[string]*job),
		log:  log.With().Str("component", "jobmgr").Logger(),
	}
}

// StartAsync runs runner in its own goroutine under a context derived from
// parent. The job's context is cancelled by Stop, StopAll or parent.
func (m *Manager) StartAsync(parent context.Context, name string, runner func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[name]; exists {
		return fmt.Errorf("%s: %w", name, ErrJobRunning)
	}

	ctx, cancel := context.WithCancel(parent)
	j := &job{cancel: cancel, done: make(chan struct{})}
	m.jobs[name] = j

	go func() {
		defer close(j.done)
		defer cancel()

		m.log.Debug().Str("job", name).Msg("Job running")
		if err := runner(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.log.Warn().Err(err).Str("job", name).Msg("Job failed")
		} else {
			m.log.Debug().Str("job", name).Msg("Job done")
		}

		m.mu.Lock()
		// The name may already belong to a newer job started after Stop.
		if m.jobs[name] == j {
			delete(m.jobs, name)
		}
		m.mu.Unlock()
	}()
	return nil
}

// Stop cancels the named job and returns once it has exited.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	j, ok := m.jobs[name]
	if ok {
		delete(m.jobs, name)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrJobNotRunning)
	}

	j.cancel()
	<-j.done
	return nil
}

// StopAll cancels every job and waits for all of them.
func (m *Manager) StopAll() {
	for _, name := range m.List() {
		_ = m.Stop(name)
	}
}

// List returns the names of running jobs, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Running reports whether the named job is running.
func (m *Manager) Running(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.jobs[name]
	return ok
}

// Status returns a human-readable summary of running jobs.
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return fmt.Sprintf("Running jobs: %s", strings.Join(active, ", "))
}
