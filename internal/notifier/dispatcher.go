package notifier

import (
	"context"
	"sync"

	"github.com/cleanguard/qc-api/internal/model"
	"github.com/cleanguard/qc-api/pkg/logger"
	"github.com/cleanguard/qc-api/pkg/metrics"
)

// Dispatcher is the fire-and-forget hand-off between request handlers and
// the notification service. Handlers enqueue and return immediately; worker
// goroutines drain the queue and log each failed dispatch exactly once.
// There is no retry and no persistence: a dispatch lost to a full queue or
// a process exit is lost, which matches the delivery guarantees of the rest
// of the system.
type Dispatcher struct {
	svc     *Service
	queue   chan dispatchJob
	workers int
	metrics *metrics.Metrics
	logger  *logger.Logger
	wg      sync.WaitGroup
	once    sync.Once
}

type dispatchJob struct {
	key     model.EventKey
	payload model.NotificationPayload
}

func NewDispatcher(svc *Service, queueSize, workers int, m *metrics.Metrics, log *logger.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 4
	}
	return &Dispatcher{
		svc:     svc,
		queue:   make(chan dispatchJob, queueSize),
		workers: workers,
		metrics: m,
		logger:  log,
	}
}

// Start launches the worker goroutines. The context is threaded into each
// delivery; workers themselves run until the queue is closed so that jobs
// already accepted are never silently abandoned.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(ctx)
	}
}

// Dispatch enqueues a notification without blocking the caller. Returns
// false when the queue is full; the drop is logged here so the caller does
// not have to care.
func (d *Dispatcher) Dispatch(key model.EventKey, payload model.NotificationPayload) bool {
	select {
	case d.queue <- dispatchJob{key: key, payload: payload}:
		if d.metrics != nil {
			d.metrics.DispatchQueueLen.Set(float64(len(d.queue)))
		}
		return true
	default:
		d.logger.ZL.Error().
			Str("event", string(key)).
			Int("recipients", len(payload.Recipients)).
			Msg("dispatch queue full, notification dropped")
		return false
	}
}

// Close stops accepting work, drains every job still in the queue, and
// waits for the workers to finish. Callers must stop producers first; a
// Dispatch after Close panics.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.queue) })
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for job := range d.queue {
		if d.metrics != nil {
			d.metrics.DispatchQueueLen.Set(float64(len(d.queue)))
		}
		d.deliver(ctx, job)
	}
}

// deliver is the supervising error sink: any failure surfaced by Notify is
// logged here, once, and goes nowhere else.
func (d *Dispatcher) deliver(ctx context.Context, job dispatchJob) {
	result := d.svc.Notify(ctx, job.key, job.payload)

	switch {
	case result.Err != "":
		d.logger.ZL.Error().
			Str("event", string(job.key)).
			Str("error", result.Err).
			Msg("notification dispatch failed")
	case result.Skipped:
		d.logger.ZL.Debug().
			Str("event", string(job.key)).
			Str("reason", result.Reason).
			Msg("notification dispatch skipped")
	default:
		for name, outcome := range result.Channels {
			if outcome.Error != "" {
				d.logger.ZL.Error().
					Str("event", string(job.key)).
					Str("channel", string(name)).
					Str("error", outcome.Error).
					Msg("channel delivery failed")
			}
		}
	}
}
