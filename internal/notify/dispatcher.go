package notify

import (
	"context"
	"log/slog"
	"time"
)

const (
	queueDepth  = 64
	maxAttempts = 3
)

type job struct {
	event    Event
	attempts int
}

// Dispatcher decouples event producers from webhook delivery. Events
// are queued in memory; failed deliveries retry with exponential
// backoff and are dropped after maxAttempts.
type Dispatcher struct {
	service   *Service
	logger    *slog.Logger
	jobs      chan job
	stopCh    chan struct{}
	retryBase time.Duration
}

func NewDispatcher(service *Service, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		service:   service,
		logger:    logger,
		jobs:      make(chan job, queueDepth),
		stopCh:    make(chan struct{}),
		retryBase: time.Second,
	}
}

// Enqueue hands an event to the dispatcher without blocking. When the
// queue is full or no endpoint is configured the event is dropped.
func (d *Dispatcher) Enqueue(event Event) {
	if !d.service.Enabled() {
		return
	}

	select {
	case d.jobs <- job{event: event}:
	default:
		d.logger.Warn("notification queue full, dropping event",
			slog.String("type", event.Type),
			slog.String("id", event.ID.String()),
		)
	}
}

func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("notification dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("notification dispatcher stopped")
			return
		case <-d.stopCh:
			d.logger.Info("notification dispatcher stopped")
			return
		case j := <-d.jobs:
			d.deliver(ctx, j)
		}
	}
}

func (d *Dispatcher) Stop() {
	close(d.stopCh)
}

func (d *Dispatcher) deliver(ctx context.Context, j job) {
	for {
		err := d.service.Send(ctx, j.event)
		if err == nil {
			d.logger.Info("event delivered",
				slog.String("type", j.event.Type),
				slog.String("id", j.event.ID.String()),
			)
			return
		}

		j.attempts++
		if j.attempts >= maxAttempts {
			d.logger.Warn("event delivery failed, giving up",
				slog.String("type", j.event.Type),
				slog.String("id", j.event.ID.String()),
				slog.Int("attempts", j.attempts),
				slog.Any("error", err),
			)
			return
		}

		delay := time.Duration(1<<j.attempts) * d.retryBase
		d.logger.Info("event delivery failed, retrying",
			slog.String("type", j.event.Type),
			slog.Int("attempts", j.attempts),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)

		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		case <-time.After(delay):
		}
	}
}
