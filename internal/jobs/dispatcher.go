// Package jobs moves emitted ledger notifications into the persisted event
// log without blocking the emitting operation.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odvcencio/refledger/internal/models"
)

const (
	defaultQueueDepth   = 1024
	defaultFlushTimeout = 5 * time.Second
)

// NotificationStore is the slice of the database layer the dispatcher needs.
type NotificationStore interface {
	AppendNotification(ctx context.Context, n *models.Notification) error
}

type DispatcherOptions struct {
	QueueDepth   int
	FlushTimeout time.Duration
	Logger       *slog.Logger
}

// Dispatcher buffers notifications and appends them to the store in emission
// order. One writer goroutine preserves log ordering.
type Dispatcher struct {
	store        NotificationStore
	queue        chan models.Notification
	flushTimeout time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	group   *errgroup.Group
	started bool
}

func NewDispatcher(store NotificationStore, opts DispatcherOptions) *Dispatcher {
	depth := opts.QueueDepth
	if depth <= 0 {
		depth = defaultQueueDepth
	}
	flushTimeout := opts.FlushTimeout
	if flushTimeout <= 0 {
		flushTimeout = defaultFlushTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:        store,
		queue:        make(chan models.Notification, depth),
		flushTimeout: flushTimeout,
		logger:       logger,
	}
}

// Emit implements core.Sink. The emitting ledger operation must not stall on
// persistence, so a full queue drops the event with a warning.
func (d *Dispatcher) Emit(n models.Notification) {
	select {
	case d.queue <- n:
	default:
		d.logger.Warn("notification queue full, dropping event",
			"ledger", n.Ledger, "kind", string(n.Kind), "branch", n.Branch)
	}
}

func (d *Dispatcher) Start(parent context.Context) error {
	if d == nil || d.store == nil {
		return fmt.Errorf("dispatcher is not configured")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return nil
	}

	ctx, cancel := context.WithCancel(parent)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.run(ctx)
		return nil
	})
	d.cancel = cancel
	d.group = g
	d.started = true
	return nil
}

// Stop drains the queue and waits for the writer to finish.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return nil
	}
	cancel := d.cancel
	group := d.group
	d.started = false
	d.cancel = nil
	d.group = nil
	d.mu.Unlock()

	cancel()

	done := make(chan error, 1)
	go func() { done <- group.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	for {
		select {
		case n := <-d.queue:
			d.flush(n)
		case <-ctx.Done():
			// Drain whatever is already queued before exiting.
			for {
				select {
				case n := <-d.queue:
					d.flush(n)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) flush(n models.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.flushTimeout)
	defer cancel()
	if err := d.store.AppendNotification(ctx, &n); err != nil {
		d.logger.Error("persist notification failed",
			"ledger", n.Ledger, "kind", string(n.Kind), "error", err)
	}
}
