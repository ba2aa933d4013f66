package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"

	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/clock"
	"auction-engine/internal/models"
	"auction-engine/internal/users"
	"auction-engine/utils"
)

// Envelope is what a Sink receives: the event plus its resolved recipient
type Envelope struct {
	Kind       Kind        `json:"kind"`
	Recipient  models.User `json:"recipient"`
	Event      Event       `json:"event"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Sink delivers a single envelope (email gateway, message broker, log)
type Sink interface {
	Deliver(ctx context.Context, env Envelope) error
}

// Dispatcher emits events fire-and-forget on a bounded worker pool.
// Delivery errors are logged and never reach the caller. When the queue is full
// the event is dropped instead of blocking the caller.
type Dispatcher struct {
	pool      pond.Pool
	directory users.Directory
	sink      Sink
	clock     clock.Clock
}

// NewDispatcher creates a Dispatcher with workers goroutines and a queue of queueSize pending events
func NewDispatcher(directory users.Directory, sink Sink, clk clock.Clock, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	opts := []pond.Option{pond.WithNonBlocking(true)}
	if queueSize > 0 {
		opts = append(opts, pond.WithQueueSize(queueSize))
	}
	return &Dispatcher{
		pool:      pond.NewPool(workers, opts...),
		directory: directory,
		sink:      sink,
		clock:     clk,
	}
}

// Notify schedules delivery of events and returns without waiting for them
func (d *Dispatcher) Notify(ctx context.Context, events ...Event) {
	// deliveries outlive the request that caused them
	ctx = context.WithoutCancel(ctx)
	for _, ev := range events {
		if _, ok := d.pool.TrySubmit(func() {
			d.deliver(ctx, ev)
		}); !ok {
			utils.Error("notify: event dropped", map[string]any{
				"kind":       string(ev.Kind()),
				"auction_id": string(ev.AuctionID()),
				"user_id":    string(ev.Recipient()),
				"error":      fmt.Errorf("%w: %w", biddingerrors.ErrNotificationFailed, pond.ErrQueueFull).Error(),
			})
		}
	}
}

// Dropped returns how many events were rejected because the queue was full
func (d *Dispatcher) Dropped() uint64 {
	return d.pool.DroppedTasks()
}

// Close waits for queued deliveries and stops the workers
func (d *Dispatcher) Close() {
	d.pool.StopAndWait()
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	fields := map[string]any{
		"kind":       string(ev.Kind()),
		"auction_id": string(ev.AuctionID()),
		"user_id":    string(ev.Recipient()),
	}

	recipient, err := d.directory.GetUser(ctx, ev.Recipient())
	if err != nil {
		fields["error"] = fmt.Errorf("%w: %w", biddingerrors.ErrNotificationFailed, err).Error()
		utils.Warn("notify: recipient lookup failed", fields)
		return
	}

	env := Envelope{
		Kind:       ev.Kind(),
		Recipient:  recipient,
		Event:      ev,
		OccurredAt: d.clock.Now(),
	}
	if err := d.sink.Deliver(ctx, env); err != nil {
		fields["error"] = fmt.Errorf("%w: %w", biddingerrors.ErrNotificationFailed, err).Error()
		utils.Error("notify: delivery failed", fields)
		return
	}

	utils.Debug("notify: delivered", fields)
}
