package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event types emitted by the exam engine after successful mutations.
const (
	EventScheduleCreated  = "SCHEDULE_CREATED"
	EventSeatingGenerated = "SEATING_GENERATED"
	EventResultsPublished = "RESULTS_PUBLISHED"
)

// Event represents a queued notification.
type Event struct {
	ID       string
	Type     string
	Payload  map[string]interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler delivers an event to the outside world (push/SMS/email gateway).
type Handler func(context.Context, Event) error

// Config configures dispatcher worker behaviour.
type Config struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Dispatcher is a fire-and-forget in-memory event fan-out backed by goroutines.
// Delivery failures are retried then logged, never surfaced to the producer.
type Dispatcher struct {
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	events  chan Event
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewDispatcher builds a dispatcher with the provided delivery handler.
func NewDispatcher(handler Handler, cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 8
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Dispatcher{
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		events:     make(chan Event, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call once.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.started = true
	d.logger.Sugar().Infow("notification dispatcher started", "workers", d.workers)
}

// Stop cancels workers and waits for them to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.cancel()
	d.mu.Unlock()
	d.wg.Wait()
	d.logger.Sugar().Infow("notification dispatcher stopped")
}

// Publish enqueues an event without blocking the producer. A full buffer or a
// stopped dispatcher drops the event with a log line; callers never see an error.
func (d *Dispatcher) Publish(event Event) {
	d.mu.Lock()
	started := d.started
	d.mu.Unlock()

	if !started {
		d.logger.Sugar().Warnw("notification dropped, dispatcher not started", "type", event.Type)
		return
	}
	if event.Enqueued.IsZero() {
		event.Enqueued = time.Now().UTC()
	}

	select {
	case d.events <- event:
	default:
		d.logger.Sugar().Warnw("notification dropped, buffer full", "type", event.Type, "event_id", event.ID)
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case event := <-d.events:
			if err := d.handler(d.ctx, event); err != nil {
				d.handleFailure(event, err)
			}
		}
	}
}

func (d *Dispatcher) handleFailure(event Event, err error) {
	event.Attempt++
	if event.Attempt > d.maxRetries {
		d.logger.Sugar().Errorw("notification exceeded retries", "event_id", event.ID, "type", event.Type, "error", err)
		return
	}
	d.logger.Sugar().Warnw("notification failed, retrying", "event_id", event.ID, "type", event.Type, "attempt", event.Attempt, "error", err)

	go func(e Event) {
		timer := time.NewTimer(d.retryDelay)
		defer timer.Stop()
		select {
		case <-d.ctx.Done():
			return
		case <-timer.C:
			d.Publish(e)
		}
	}(event)
}

// NopHandler discards events; used when no gateway is configured.
func NopHandler(logger *zap.Logger) Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(_ context.Context, event Event) error {
		logger.Sugar().Debugw("notification delivered (nop)", "type", event.Type, "event_id", event.ID)
		return nil
	}
}

// String implements fmt.Stringer for log friendliness.
func (e Event) String() string {
	return fmt.Sprintf("%s(%s)", e.Type, e.ID)
}
