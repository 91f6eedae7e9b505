// Package schedule runs recurring tasks inside the server process or from the
// schedule:run command.
//
//	s := schedule.New()
//	s.Every(time.Hour).Name("low-stock-sweep").WithoutOverlapping().Run(sweep)
//	s.Cron("0 3 * * *").Name("prune").Run(prune)
//	go s.Run(ctx)
package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/storefront/pkg/logger"
)

// Task is a scheduled function.
type Task func(ctx context.Context)

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

// Scheduler holds registered entries.
type Scheduler struct {
	mu      sync.Mutex
	entries []*entry
	wg      sync.WaitGroup
}

// New returns an empty scheduler.
func New() *Scheduler { return &Scheduler{} }

// Schedule is a builder for one entry; Run registers it.
type Schedule struct {
	s *Scheduler
	e *entry
}

// Every runs the task each interval, starting on the first tick.
func (s *Scheduler) Every(interval time.Duration) *Schedule {
	return &Schedule{s: s, e: &entry{interval: interval}}
}

// Cron runs the task on minutes matching a five field expression
// (minute hour day-of-month month day-of-week). Fields accept *, n, */n,
// a-b and comma lists.
func (s *Scheduler) Cron(expr string) *Schedule {
	return &Schedule{s: s, e: &entry{cronExpr: expr}}
}

// Name labels the entry in logs and listings.
func (b *Schedule) Name(id string) *Schedule {
	b.e.id = id
	return b
}

// WithoutOverlapping skips a tick while the previous run is still going.
func (b *Schedule) WithoutOverlapping() *Schedule {
	b.e.noOverlap = true
	return b
}

// Run registers the entry.
func (b *Schedule) Run(task Task) {
	b.e.task = task
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.e.id == "" {
		b.e.id = fmt.Sprintf("task-%d", len(b.s.entries)+1)
	}
	b.s.entries = append(b.s.entries, b.e)
}

// Run ticks every second until ctx is done, then waits for running tasks.
func (s *Scheduler) Run(ctx context.Context) {
	logger.Info("schedule: started", "entries", len(s.List()))
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Wait()
			logger.Info("schedule: stopped")
			return
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}

// Tick starts every entry due at now and returns the number started.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	current := append([]*entry(nil), s.entries...)
	s.mu.Unlock()

	started := 0
	for _, e := range current {
		if s.dispatch(ctx, e, now) {
			started++
		}
	}
	return started
}

// Wait blocks until every started task has returned.
func (s *Scheduler) Wait() { s.wg.Wait() }

// List describes the registered entries.
func (s *Scheduler) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		freq := e.cronExpr
		if freq == "" {
			freq = "every " + e.interval.String()
		}
		out = append(out, fmt.Sprintf("%s  [%s]", e.id, freq))
	}
	return out
}

func (s *Scheduler) dispatch(ctx context.Context, e *entry, now time.Time) bool {
	e.mu.Lock()
	if !e.due(now) {
		e.mu.Unlock()
		return false
	}
	if e.noOverlap && e.running {
		e.mu.Unlock()
		logger.Warn("schedule: previous run still active, skipping", "id", e.id)
		return false
	}
	e.running = true
	e.lastRun = now
	e.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
			if r := recover(); r != nil {
				logger.Error("schedule: task panicked", "id", e.id, "panic", r)
			}
		}()
		logger.Debug("schedule: running task", "id", e.id)
		e.task(ctx)
	}()
	return true
}

// due is called with e.mu held.
func (e *entry) due(now time.Time) bool {
	if e.cronExpr != "" {
		if !e.lastRun.IsZero() && e.lastRun.Truncate(time.Minute).Equal(now.Truncate(time.Minute)) {
			return false
		}
		return matchCron(e.cronExpr, now)
	}
	return e.lastRun.IsZero() || now.Sub(e.lastRun) >= e.interval
}

func matchCron(expr string, t time.Time) bool {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return false
	}
	values := []int{t.Minute(), t.Hour(), t.Day(), int(t.Month()), int(t.Weekday())}
	for i, f := range fields {
		if !matchField(f, values[i]) {
			return false
		}
	}
	return true
}

func matchField(field string, val int) bool {
	for _, part := range strings.Split(field, ",") {
		if matchPart(part, val) {
			return true
		}
	}
	return false
}

func matchPart(part string, val int) bool {
	switch {
	case part == "*":
		return true
	case strings.HasPrefix(part, "*/"):
		step, err := strconv.Atoi(part[2:])
		return err == nil && step > 0 && val%step == 0
	case strings.Contains(part, "-"):
		lo, hi, _ := strings.Cut(part, "-")
		a, err1 := strconv.Atoi(lo)
		b, err2 := strconv.Atoi(hi)
		return err1 == nil && err2 == nil && val >= a && val <= b
	default:
		n, err := strconv.Atoi(part)
		return err == nil && n == val
	}
}
