// Package queue runs background jobs outside the request path.
//
// Jobs are JSON encoded into an envelope naming their type, pushed to a
// Driver (in-memory channel or Redis list) and decoded again by a worker
// through the factory registered for that name:
//
//	type RefreshDashboardJob struct{ OwnerID uint }
//	func (RefreshDashboardJob) JobName() string { return "refresh_dashboard" }
//	func (j *RefreshDashboardJob) Handle(ctx context.Context) error { ... }
//
//	queue.Register("refresh_dashboard", func() queue.Job { return &RefreshDashboardJob{} })
//	queue.Dispatch(&RefreshDashboardJob{OwnerID: 7})
//	queue.StartWorkers(ctx, 4)
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shashiranjanraj/billbook/pkg/logger"
	"github.com/shashiranjanraj/billbook/pkg/metrics"
)

// Job is the interface every queued job must satisfy.
type Job interface {
	Handle(ctx context.Context) error
}

// Named lets a job choose the name it is registered under. Jobs without it
// use their Go type name.
type Named interface {
	JobName() string
}

// FailedJob holds a job that exhausted its retries.
type FailedJob struct {
	Type     string
	Err      error
	FailedAt time.Time
	Attempts int
}

// Driver is the queue storage backend.
type Driver interface {
	Push(payload []byte) error
	// Pop blocks until a payload is available. A nil payload with a nil
	// error means "nothing yet, poll again".
	Pop(ctx context.Context) ([]byte, error)
}

// DelayedDriver is implemented by drivers that can hold a job back.
type DelayedDriver interface {
	PushDelayed(payload []byte, delay time.Duration) error
}

// ErrUnknownJob is returned when a popped envelope names a job type that
// was never registered.
var ErrUnknownJob = errors.New("queue: unknown job type")

// ------------------- Manager -------------------

// Manager owns a driver, the job registry and the retry policy.
type Manager struct {
	mu       sync.RWMutex
	driver   Driver
	registry map[string]func() Job
	failed   []FailedJob
	maxRetry int
	backoff  func(attempt int) time.Duration
	onFail   func(ctx context.Context, f FailedJob, payload []byte)
}

// NewManager creates a manager backed by d with three attempts per job and
// a linear one second backoff.
func NewManager(d Driver) *Manager {
	return &Manager{
		driver:   d,
		registry: map[string]func() Job{},
		maxRetry: 3,
		backoff:  func(attempt int) time.Duration { return time.Duration(attempt) * time.Second },
	}
}

var defaultManager = NewManager(NewMemoryDriver(1000))

// Default returns the process-wide manager used by the package functions.
func Default() *Manager { return defaultManager }

// SetDriver swaps the driver of the default manager.
func SetDriver(d Driver) { defaultManager.SetDriver(d) }

// SetMaxRetry sets how many times the default manager runs a failing job.
func SetMaxRetry(n int) { defaultManager.SetMaxRetry(n) }

// SetBackoff sets the delay between attempts of the default manager.
func SetBackoff(fn func(attempt int) time.Duration) { defaultManager.SetBackoff(fn) }

// Register makes a job type available to the default manager.
func Register(name string, factory func() Job) { defaultManager.Register(name, factory) }

// Dispatch pushes job onto the default queue.
func Dispatch(job Job) error { return defaultManager.Dispatch(job) }

// DispatchAfter pushes job onto the default queue after delay.
func DispatchAfter(job Job, delay time.Duration) error {
	return defaultManager.DispatchAfter(job, delay)
}

// StartWorkers launches n workers on the default manager.
func StartWorkers(ctx context.Context, n int) *sync.WaitGroup {
	return defaultManager.StartWorkers(ctx, n)
}

// FailedJobs returns the default manager's failed jobs.
func FailedJobs() []FailedJob { return defaultManager.FailedJobs() }

func (m *Manager) SetDriver(d Driver) {
	m.mu.Lock()
	m.driver = d
	m.mu.Unlock()
}

func (m *Manager) SetMaxRetry(n int) {
	if n < 1 {
		n = 1
	}
	m.mu.Lock()
	m.maxRetry = n
	m.mu.Unlock()
}

func (m *Manager) SetBackoff(fn func(attempt int) time.Duration) {
	m.mu.Lock()
	m.backoff = fn
	m.mu.Unlock()
}

// OnFailure installs a hook called after a job exhausts its retries, used
// to persist failures.
func (m *Manager) OnFailure(fn func(ctx context.Context, f FailedJob, payload []byte)) {
	m.mu.Lock()
	m.onFail = fn
	m.mu.Unlock()
}

func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	m.registry[name] = factory
	m.mu.Unlock()
}

// ------------------- Dispatch -------------------

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func nameOf(job Job) string {
	if n, ok := job.(Named); ok {
		return n.JobName()
	}
	return fmt.Sprintf("%T", job)
}

func encode(job Job) ([]byte, error) {
	name := nameOf(job)
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("queue: marshal job %s: %w", name, err)
	}
	env, err := json.Marshal(envelope{Type: name, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("queue: marshal envelope: %w", err)
	}
	return env, nil
}

func (m *Manager) currentDriver() Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.driver
}

func (m *Manager) Dispatch(job Job) error {
	env, err := encode(job)
	if err != nil {
		return err
	}
	return m.currentDriver().Push(env)
}

// DispatchAfter holds the job back for delay. Drivers without native
// delay support get a timer in this process.
func (m *Manager) DispatchAfter(job Job, delay time.Duration) error {
	env, err := encode(job)
	if err != nil {
		return err
	}
	d := m.currentDriver()
	if dd, ok := d.(DelayedDriver); ok {
		return dd.PushDelayed(env, delay)
	}
	time.AfterFunc(delay, func() {
		if err := d.Push(env); err != nil {
			logger.Error("queue: delayed dispatch failed", "type", nameOf(job), "error", err)
		}
	})
	return nil
}

// ------------------- Worker -------------------

// StartWorkers launches n workers that run until ctx is cancelled. Wait on
// the returned group to drain them on shutdown.
func (m *Manager) StartWorkers(ctx context.Context, n int) *sync.WaitGroup {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.work(ctx)
		}()
	}
	logger.Info("queue: workers started", "count", n)
	return &wg
}

func (m *Manager) work(ctx context.Context) {
	for ctx.Err() == nil {
		raw, err := m.currentDriver().Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			sleep(ctx, 500*time.Millisecond)
			continue
		}
		if raw == nil {
			continue
		}
		if err := m.Process(ctx, raw); err != nil {
			logger.Error("queue: job dropped", "error", err)
		}
	}
}

// Process decodes one envelope and runs its job with retries. It returns
// an error only when the envelope cannot be turned into a job.
func (m *Manager) Process(ctx context.Context, raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("queue: bad envelope: %w", err)
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, env.Type)
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		return fmt.Errorf("queue: unmarshal %s: %w", env.Type, err)
	}

	m.run(ctx, job, env.Type, env.Payload)
	return nil
}

func (m *Manager) run(ctx context.Context, job Job, typeName string, payload []byte) {
	m.mu.RLock()
	maxRetry, backoff := m.maxRetry, m.backoff
	m.mu.RUnlock()

	var lastErr error
	for attempt := 1; attempt <= maxRetry; attempt++ {
		start := time.Now()
		err := safeHandle(ctx, job)
		if err == nil {
			metrics.RecordQueueJob(typeName, "success", start)
			logger.Debug("queue: job processed", "type", typeName, "attempt", attempt)
			return
		}
		lastErr = err
		metrics.RecordQueueJob(typeName, "retry", start)
		logger.Warn("queue: job failed", "type", typeName, "attempt", attempt, "error", err)

		if attempt < maxRetry && backoff != nil {
			if !sleep(ctx, backoff(attempt)) {
				break
			}
		}
	}

	f := FailedJob{Type: typeName, Err: lastErr, FailedAt: time.Now(), Attempts: maxRetry}
	m.mu.Lock()
	m.failed = append(m.failed, f)
	onFail := m.onFail
	m.mu.Unlock()

	metrics.QueueJobsProcessed.WithLabelValues("failed").Inc()
	logger.Error("queue: job exhausted retries", "type", typeName, "error", lastErr)
	if onFail != nil {
		onFail(ctx, f, payload)
	}
}

func safeHandle(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("queue: job panicked: %v", r)
		}
	}()
	return job.Handle(ctx)
}

// sleep waits for d or until ctx is done, reporting whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// FailedJobs returns a snapshot of the jobs that exhausted their retries.
func (m *Manager) FailedJobs() []FailedJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FailedJob, len(m.failed))
	copy(out, m.failed)
	return out
}
