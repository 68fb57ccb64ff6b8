// Package scheduler runs a background job on a cron schedule behind a handle
// the caller owns.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"bible-quiz/pkg/logger"

	"github.com/robfig/cron"
)

var (
	ErrStopped = errors.New("scheduler stopped")
	ErrBusy    = errors.New("job already running")
)

// Job is one scheduled run. ctx is cancelled when the handle's parent context ends.
type Job func(ctx context.Context) error

type Handle struct {
	mu      sync.Mutex
	ctx     context.Context
	cron    *cron.Cron
	spec    string
	job     Job
	stopped bool
	running int32
	log     *logger.Logger
}

// Start validates spec (standard five-field cron or a descriptor such as
// @every 30m) and begins running job on it. The handle stops by itself when
// ctx is done.
func Start(ctx context.Context, spec string, job Job, log *logger.Logger) (*Handle, error) {
	if job == nil {
		return nil, errors.New("scheduler: job is required")
	}
	sched, err := parse(spec)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		ctx:  ctx,
		spec: spec,
		job:  job,
		log:  log.With("component", "Scheduler"),
	}
	h.cron = h.startCron(sched)
	h.log.Info("Scheduler started", "schedule", spec)

	go func() {
		<-ctx.Done()
		h.Stop()
	}()
	return h, nil
}

func parse(spec string) (cron.Schedule, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, errors.New("scheduler: empty schedule")
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("scheduler: invalid schedule %q: %w", spec, err)
	}
	return sched, nil
}

func (h *Handle) startCron(sched cron.Schedule) *cron.Cron {
	c := cron.New()
	c.Schedule(sched, cron.FuncJob(func() {
		if err := h.RunNow(); err != nil && !errors.Is(err, ErrBusy) {
			h.log.Error("Scheduled job failed", "schedule", h.Spec(), "error", err)
		}
	}))
	c.Start()
	return c
}

// RunNow runs the job synchronously. Runs never overlap; a call made while
// another run is in progress returns ErrBusy.
func (h *Handle) RunNow() error {
	if err := h.ctx.Err(); err != nil {
		return err
	}
	if !atomic.CompareAndSwapInt32(&h.running, 0, 1) {
		h.log.Debug("Skipping job, previous run still in progress")
		return ErrBusy
	}
	defer atomic.StoreInt32(&h.running, 0)
	return h.job(h.ctx)
}

// Replace swaps the schedule. An invalid spec leaves the current one running.
func (h *Handle) Replace(spec string) error {
	sched, err := parse(spec)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return ErrStopped
	}
	old := h.cron
	h.cron = h.startCron(sched)
	old.Stop()
	h.log.Info("Scheduler rescheduled", "from", h.spec, "to", spec)
	h.spec = spec
	return nil
}

// Stop halts future runs. It reports whether this call did the stopping.
func (h *Handle) Stop() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	h.stopped = true
	h.cron.Stop()
	h.log.Info("Scheduler stopped", "schedule", h.spec)
	return true
}

func (h *Handle) Spec() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.spec
}
