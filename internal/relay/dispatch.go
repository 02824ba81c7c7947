package relay

import (
	"context"

	"go.uber.org/zap"

	"github.com/ayato/linegpt-go/internal/line"
)

// Processor runs one event to a terminal outcome.
type Processor interface {
	Process(ctx context.Context, ev line.Event) Outcome
}

// Dispatcher is the fire-and-forget seam between the webhook endpoint and
// event processing. The endpoint enqueues events after its response is
// written; the run loop spawns one goroutine per event, so events in a batch
// run concurrently and independently. Concurrency is deliberately uncapped
// at expected chat volumes; this loop is the single place a cap would go.
type Dispatcher struct {
	events    chan line.Event
	processor Processor
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher with a buffered event queue.
func NewDispatcher(processor Processor, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		events:    make(chan line.Event, 256),
		processor: processor,
		logger:    logger,
	}
}

// Enqueue schedules one event for processing.
func (d *Dispatcher) Enqueue(ev line.Event) {
	d.events <- ev
}

// EnqueueBatch schedules every event of a webhook delivery.
func (d *Dispatcher) EnqueueBatch(batch line.WebhookBatch) {
	for _, ev := range batch.Events {
		d.Enqueue(ev)
	}
}

// Run drains the queue until ctx is cancelled. Each event owns its error
// handling inside Process; nothing is reported back to the webhook response,
// which is long gone by the time processing starts.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.events:
			go func(ev line.Event) {
				outcome := d.processor.Process(ctx, ev)
				d.logger.Info("event done",
					zap.String("event_id", ev.WebhookEventID),
					zap.String("outcome", string(outcome)))
			}(ev)
		}
	}
}

// Pending returns the number of queued, not-yet-started events.
func (d *Dispatcher) Pending() int {
	return len(d.events)
}
