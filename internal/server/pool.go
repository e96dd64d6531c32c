package server

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrQueueFull is returned by Submit when no queue slot is free.
var ErrQueueFull = errors.New("job queue full")

// Job is a unit of background work.
type Job interface {
	Execute(ctx context.Context) error
	ID() string
}

// Dispatcher runs queued jobs on a fixed number of workers.
type Dispatcher struct {
	maxWorkers int
	queue      chan Job
	quit       chan struct{}
	wg         sync.WaitGroup
	stopOnce   sync.Once
	log        logrus.FieldLogger
}

// NewDispatcher creates a dispatcher with maxWorkers workers and room for
// queueSize waiting jobs.
func NewDispatcher(maxWorkers, queueSize int, log logrus.FieldLogger) *Dispatcher {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		maxWorkers: maxWorkers,
		queue:      make(chan Job, queueSize),
		quit:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the workers. Jobs see ctx, so cancelling it aborts running
// work.
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.WithField("workers", d.maxWorkers).Info("dispatcher starting")
	for i := 1; i <= d.maxWorkers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	log := d.log.WithField("worker", id)
	for {
		select {
		case job := <-d.queue:
			jl := log.WithField("job_id", job.ID())
			jl.Info("job started")
			if err := job.Execute(ctx); err != nil {
				jl.WithError(err).Error("job failed")
			} else {
				jl.Info("job finished")
			}
		case <-d.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Submit queues job without blocking.
func (d *Dispatcher) Submit(job Job) error {
	select {
	case d.queue <- job:
		d.log.WithField("job_id", job.ID()).Debug("job queued")
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop signals the workers and waits for running jobs to return. Jobs
// still queued are dropped.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.quit) })
	d.wg.Wait()
	d.log.Info("dispatcher stopped")
}
