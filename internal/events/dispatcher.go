// Package events delivers notifications and domain events produced by
// committed lifecycle operations. Delivery is best effort: failures are
// retried by the queue, then logged and dropped.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jondumad/EcoPulse-Backend/internal/models"
	"github.com/jondumad/EcoPulse-Backend/pkg/jobs"
)

const (
	jobNotification = "notification"
	jobBroadcast    = "broadcast"
)

// NotificationSink delivers a message to a single user.
type NotificationSink interface {
	Name() string
	Notify(ctx context.Context, n models.Notification) error
}

// BroadcastSink pushes a domain event to real-time observers.
type BroadcastSink interface {
	Name() string
	Broadcast(ctx context.Context, e models.DomainEvent) error
}

// Emitter accepts the side effects of a committed operation. Emit never
// fails the caller.
type Emitter interface {
	Emit(ctx context.Context, out *models.Outbox)
}

// FailureRecorder observes deliveries that were given up on.
type FailureRecorder interface {
	RecordDeliveryFailure(sink string)
}

// Dispatcher fans each queued item out to every sink concurrently. A retry
// only targets the sinks that have not yet accepted the item.
type Dispatcher struct {
	notifiers    []NotificationSink
	broadcasters []BroadcastSink
	queue        *jobs.Queue
	failures     FailureRecorder
	logger       *zap.Logger
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithNotificationSinks registers notification sinks.
func WithNotificationSinks(sinks ...NotificationSink) Option {
	return func(d *Dispatcher) { d.notifiers = append(d.notifiers, sinks...) }
}

// WithBroadcastSinks registers broadcast sinks.
func WithBroadcastSinks(sinks ...BroadcastSink) Option {
	return func(d *Dispatcher) { d.broadcasters = append(d.broadcasters, sinks...) }
}

// WithFailureRecorder reports dropped deliveries.
func WithFailureRecorder(r FailureRecorder) Option {
	return func(d *Dispatcher) { d.failures = r }
}

// NewDispatcher builds a dispatcher backed by a worker queue configured by
// cfg. A zero cfg.Workers delivers synchronously inside Emit.
func NewDispatcher(cfg jobs.QueueConfig, logger *zap.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	if cfg.Workers > 0 {
		cfg.Logger = logger
		cfg.OnDrop = d.onDrop
		d.queue = jobs.NewQueue("events", d.handle, cfg)
	}
	return d
}

// Start launches the delivery workers. The workers outlive cancellation of
// ctx so deliveries emitted while the server drains still go out; only Stop
// ends them.
func (d *Dispatcher) Start(ctx context.Context) {
	if d.queue != nil {
		d.queue.Start(context.WithoutCancel(ctx))
	}
}

// Stop rejects further items, flushes pending deliveries until ctx is done,
// then stops the workers. Items rejected or still buffered at that point are
// logged as dropped.
func (d *Dispatcher) Stop(ctx context.Context) {
	if d.queue == nil {
		return
	}
	d.queue.Close()
	if err := d.queue.Flush(ctx); err != nil {
		d.logger.Warn("event queue not drained before shutdown", zap.Error(err))
	}
	d.queue.Stop()
}

type delivery struct {
	notification *models.Notification
	event        *models.DomainEvent

	mu      sync.Mutex
	pending map[string]struct{}
}

func (d *delivery) remaining(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[name]
	return ok
}

func (d *delivery) done(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, name)
}

func (d *delivery) names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.pending))
	for name := range d.pending {
		out = append(out, name)
	}
	return out
}

// Emit implements Emitter.
func (d *Dispatcher) Emit(ctx context.Context, out *models.Outbox) {
	if out.Empty() {
		return
	}
	for i := range out.Notifications {
		n := out.Notifications[i]
		d.submit(ctx, jobs.Job{ID: uuid.NewString(), Type: jobNotification, Payload: d.newDelivery(&n, nil)})
	}
	for i := range out.Events {
		e := out.Events[i]
		d.submit(ctx, jobs.Job{ID: uuid.NewString(), Type: jobBroadcast, Payload: d.newDelivery(nil, &e)})
	}
}

func (d *Dispatcher) newDelivery(n *models.Notification, e *models.DomainEvent) *delivery {
	del := &delivery{notification: n, event: e, pending: make(map[string]struct{})}
	if n != nil {
		for _, s := range d.notifiers {
			del.pending[s.Name()] = struct{}{}
		}
	}
	if e != nil {
		for _, s := range d.broadcasters {
			del.pending[s.Name()] = struct{}{}
		}
	}
	return del
}

func (d *Dispatcher) submit(ctx context.Context, job jobs.Job) {
	if d.queue == nil {
		if err := d.handle(ctx, job); err != nil {
			d.onDrop(job, err)
		}
		return
	}
	if err := d.queue.TryEnqueue(job); err != nil {
		d.onDrop(job, err)
	}
}

func (d *Dispatcher) handle(ctx context.Context, job jobs.Job) error {
	del, ok := job.Payload.(*delivery)
	if !ok {
		return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	record := func(name string, err error) {
		if err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			mu.Unlock()
			return
		}
		del.done(name)
	}

	if del.notification != nil {
		for _, sink := range d.notifiers {
			sink := sink
			if !del.remaining(sink.Name()) {
				continue
			}
			g.Go(func() error {
				record(sink.Name(), sink.Notify(ctx, *del.notification))
				return nil
			})
		}
	}
	if del.event != nil {
		for _, sink := range d.broadcasters {
			sink := sink
			if !del.remaining(sink.Name()) {
				continue
			}
			g.Go(func() error {
				record(sink.Name(), sink.Broadcast(ctx, *del.event))
				return nil
			})
		}
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (d *Dispatcher) onDrop(job jobs.Job, err error) {
	sinks := []string{"queue"}
	if del, ok := job.Payload.(*delivery); ok {
		if names := del.names(); len(names) > 0 {
			sinks = names
		}
	}
	d.logger.Error("event delivery dropped",
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Strings("sinks", sinks),
		zap.Error(err),
	)
	if d.failures != nil {
		for _, s := range sinks {
			d.failures.RecordDeliveryFailure(s)
		}
	}
}
