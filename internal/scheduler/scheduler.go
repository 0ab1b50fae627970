// Package scheduler bounds how many executions run at once.
package scheduler

import (
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

var (
	metricActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "e2erunner",
		Name:      "scheduler_active_runs",
		Help:      "Executions currently holding a worker slot.",
	})
	metricQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "e2erunner",
		Name:      "scheduler_queued_runs",
		Help:      "Executions waiting for a worker slot.",
	})
)

// Scheduler admits at most Workers executions at a time. Waiters are served
// in arrival order.
type Scheduler struct {
	sem     *semaphore.Weighted
	workers int
	active  atomic.Int64
	queued  atomic.Int64
	log     logrus.FieldLogger
}

// New creates a scheduler with the given number of worker slots; values
// below 1 mean 1.
func New(workers int, log logrus.FieldLogger) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{
		sem:     semaphore.NewWeighted(int64(workers)),
		workers: workers,
		log:     log,
	}
}

// Workers returns the pool size.
func (s *Scheduler) Workers() int { return s.workers }

// Active returns the number of running executions.
func (s *Scheduler) Active() int { return int(s.active.Load()) }

// Queued returns the number of executions waiting for a slot.
func (s *Scheduler) Queued() int { return int(s.queued.Load()) }

// Do waits for a slot and runs fn in it. If ctx ends while waiting, fn is
// not run and the context's error is returned.
func (s *Scheduler) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	s.queued.Add(1)
	metricQueued.Inc()
	err := s.sem.Acquire(ctx, 1)
	s.queued.Add(-1)
	metricQueued.Dec()
	if err != nil {
		s.log.WithError(err).Debug("Left the run queue before starting")
		return err
	}

	s.active.Add(1)
	metricActive.Inc()
	defer func() {
		s.active.Add(-1)
		metricActive.Dec()
		s.sem.Release(1)
	}()

	s.log.Debugf("Run admitted (%d/%d active, %d queued)", s.Active(), s.workers, s.Queued())
	return fn(ctx)
}

// Run is Do for functions that return a value.
func Run[T any](ctx context.Context, s *Scheduler, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := s.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}
