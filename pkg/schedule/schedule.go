// Package schedule runs recurring maintenance tasks inside the server
// process.
//
//	s := schedule.New()
//	s.Every(time.Hour).Name("prune_failed_jobs").WithoutOverlapping().Run(prune)
//	s.Cron("30 2 * * *").Name("nightly").Run(nightly)
//	go s.Run(ctx)
package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/billbook/pkg/logger"
)

// Task is one run of a scheduled job.
type Task func(ctx context.Context) error

type entry struct {
	id        string
	interval  time.Duration
	cronExpr  string
	task      Task
	noOverlap bool

	mu      sync.Mutex
	lastRun time.Time
	running bool
}

// Scheduler dispatches registered tasks when they fall due.
type Scheduler struct {
	mu      sync.Mutex
	entries []*entry
	tick    time.Duration
	now     func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTick sets how often due tasks are checked. The default is one second.
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) { s.tick = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{tick: time.Second, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Schedule is a fluent builder for one entry. Nothing is registered until
// Run is called.
type Schedule struct {
	s *Scheduler
	e *entry
}

// Every runs the task every d, starting on the first tick.
func (s *Scheduler) Every(d time.Duration) *Schedule {
	return &Schedule{s: s, e: &entry{interval: d}}
}

// Hourly runs the task every hour.
func (s *Scheduler) Hourly() *Schedule { return s.Every(time.Hour) }

// Daily runs the task every 24 hours.
func (s *Scheduler) Daily() *Schedule { return s.Every(24 * time.Hour) }

// Cron runs the task at most once per minute matching a five-field
// expression (minute hour day-of-month month day-of-week). Fields accept
// "*", "*/step", "a-b", "n" and comma separated lists of those.
func (s *Scheduler) Cron(expr string) *Schedule {
	return &Schedule{s: s, e: &entry{cronExpr: expr}}
}

// Name sets the identifier used in logs.
func (sc *Schedule) Name(id string) *Schedule {
	sc.e.id = id
	return sc
}

// WithoutOverlapping skips a run while the previous one is still going.
func (sc *Schedule) WithoutOverlapping() *Schedule {
	sc.e.noOverlap = true
	return sc
}

// Run registers fn. Expressions that cannot be parsed are rejected.
func (sc *Schedule) Run(fn Task) error {
	if sc.e.cronExpr != "" {
		if _, err := parseCron(sc.e.cronExpr); err != nil {
			return err
		}
	} else if sc.e.interval <= 0 {
		return fmt.Errorf("schedule: interval must be positive")
	}
	sc.e.task = fn

	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()
	if sc.e.id == "" {
		sc.e.id = fmt.Sprintf("task-%d", len(sc.s.entries)+1)
	}
	sc.s.entries = append(sc.s.entries, sc.e)
	return nil
}

// List describes the registered entries.
func (s *Scheduler) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		freq := e.cronExpr
		if freq == "" {
			freq = e.interval.String()
		}
		out = append(out, fmt.Sprintf("%s [%s]", e.id, freq))
	}
	return out
}

// Run dispatches due tasks until ctx is done, then waits for the ones still
// running. Tasks receive ctx.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	logger.Info("schedule: started", "tasks", len(s.List()))
	for {
		select {
		case <-ctx.Done():
			logger.Info("schedule: stopped")
			return
		case <-ticker.C:
			now := s.now()
			s.mu.Lock()
			current := append([]*entry(nil), s.entries...)
			s.mu.Unlock()

			for _, e := range current {
				if e.due(now) {
					s.dispatch(ctx, &wg, e, now)
				}
			}
		}
	}
}

func (e *entry) due(now time.Time) bool {
	e.mu.Lock()
	last := e.lastRun
	e.mu.Unlock()

	if e.cronExpr != "" {
		if !last.IsZero() && last.Truncate(time.Minute).Equal(now.Truncate(time.Minute)) {
			return false
		}
		return matchCron(e.cronExpr, now)
	}
	return last.IsZero() || now.Sub(last) >= e.interval
}

func (s *Scheduler) dispatch(ctx context.Context, wg *sync.WaitGroup, e *entry, now time.Time) {
	e.mu.Lock()
	if e.noOverlap && e.running {
		e.mu.Unlock()
		logger.Warn("schedule: previous run still going, skipped", "id", e.id)
		return
	}
	e.running = true
	e.lastRun = now
	e.mu.Unlock()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("schedule: task panicked", "id", e.id, "panic", r)
			}
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
		}()

		start := time.Now()
		if err := e.task(ctx); err != nil {
			logger.Error("schedule: task failed", "id", e.id, "error", err)
			return
		}
		logger.Debug("schedule: task done", "id", e.id, "took", time.Since(start))
	}()
}

// ------------------- cron -------------------

type cronSpec [5]string

func parseCron(expr string) (cronSpec, error) {
	var spec cronSpec
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return spec, fmt.Errorf("schedule: cron %q needs 5 fields", expr)
	}
	for i, f := range fields {
		for _, part := range strings.Split(f, ",") {
			if _, err := matchPart(part, 0); err != nil {
				return spec, fmt.Errorf("schedule: cron %q: %w", expr, err)
			}
		}
		spec[i] = f
	}
	return spec, nil
}

func matchCron(expr string, t time.Time) bool {
	spec, err := parseCron(expr)
	if err != nil {
		return false
	}
	values := [5]int{t.Minute(), t.Hour(), t.Day(), int(t.Month()), int(t.Weekday())}
	for i, field := range spec {
		if !matchField(field, values[i]) {
			return false
		}
	}
	return true
}

func matchField(field string, val int) bool {
	for _, part := range strings.Split(field, ",") {
		if ok, err := matchPart(part, val); err == nil && ok {
			return true
		}
	}
	return false
}

func matchPart(part string, val int) (bool, error) {
	switch {
	case part == "*":
		return true, nil
	case strings.HasPrefix(part, "*/"):
		step, err := strconv.Atoi(part[2:])
		if err != nil || step <= 0 {
			return false, fmt.Errorf("bad step %q", part)
		}
		return val%step == 0, nil
	case strings.Contains(part, "-"):
		lo, hi, _ := strings.Cut(part, "-")
		a, err1 := strconv.Atoi(lo)
		b, err2 := strconv.Atoi(hi)
		if err1 != nil || err2 != nil || a > b {
			return false, fmt.Errorf("bad range %q", part)
		}
		return val >= a && val <= b, nil
	default:
		n, err := strconv.Atoi(part)
		if err != nil {
			return false, fmt.Errorf("bad value %q", part)
		}
		return n == val, nil
	}
}
