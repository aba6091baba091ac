// Package ingest provides the interaction event pipeline with buffered
// COPY-based writes.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/telemetry"
)

// maxBufferCapacity is the hard upper limit on buffered events to
// prevent OOM. When this limit is reached, Append applies backpressure
// by returning an error.
const maxBufferCapacity = 100_000

// ErrBufferFull is returned by Append when the buffer is at capacity.
var ErrBufferFull = errors.New("ingest: buffer at capacity, try again later")

// EventSink receives flushed event batches. *storage.DB implements it.
type EventSink interface {
	InsertInteractionBatch(ctx context.Context, events []model.InteractionEvent) (int64, error)
}

// Invalidator drops cached per-user state after new events land.
// *cache.Cache implements it; a nil cache is a valid no-op.
type Invalidator interface {
	InvalidateUser(ctx context.Context, userID int64) error
}

// Buffer accumulates interaction events in memory and flushes them
// with COPY when either the buffer size or flush timeout is reached.
// Profiles and recommendations cached for the affected users are
// invalidated after each successful flush.
type Buffer struct {
	sink         EventSink
	invalidator  Invalidator
	logger       *slog.Logger
	maxSize      int
	flushTimeout time.Duration

	mu     sync.Mutex
	events []model.InteractionEvent

	droppedEvents atomic.Int64 // total events dropped due to capacity after flush failure

	started    atomic.Bool
	flushCh    chan struct{}
	done       chan struct{}
	cancelLoop context.CancelFunc // cancels the flushLoop goroutine
	drainCtx   context.Context    // set by Drain so the final flush respects the caller's deadline
}

// NewBuffer creates an event buffer. invalidator may be nil.
func NewBuffer(sink EventSink, invalidator Invalidator, logger *slog.Logger, maxSize int, flushTimeout time.Duration) *Buffer {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if flushTimeout <= 0 {
		flushTimeout = 100 * time.Millisecond
	}
	return &Buffer{
		sink:         sink,
		invalidator:  invalidator,
		logger:       logger,
		maxSize:      maxSize,
		flushTimeout: flushTimeout,
		flushCh:      make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
}

// Start begins the background flush loop and registers OTEL metrics.
// Call Drain to stop. Safe to call only once; repeat calls are no-ops.
func (b *Buffer) Start(ctx context.Context) {
	if !b.started.CompareAndSwap(false, true) {
		b.logger.Warn("ingest: Start called more than once, ignoring")
		return
	}
	b.registerMetrics()
	loopCtx, cancel := context.WithCancel(ctx)
	b.cancelLoop = cancel
	go b.flushLoop(loopCtx)
}

// Append adds events to the buffer, assigning ids and timestamps where
// absent. Returns the accepted events, or an error if the buffer is at
// capacity (backpressure) or an event fails validation.
func (b *Buffer) Append(_ context.Context, inputs []model.InteractionEvent) ([]model.InteractionEvent, error) {
	for _, in := range inputs {
		if !in.Type.Valid() {
			return nil, fmt.Errorf("ingest: unknown interaction type %q", in.Type)
		}
		if in.UserID <= 0 || in.ProductID <= 0 {
			return nil, fmt.Errorf("ingest: event requires user_id and product_id")
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Backpressure: reject writes when the buffer is full.
	if len(b.events)+len(inputs) > maxBufferCapacity {
		return nil, ErrBufferFull
	}

	now := time.Now().UTC()
	events := make([]model.InteractionEvent, len(inputs))
	for i, in := range inputs {
		if in.ID == uuid.Nil {
			in.ID = uuid.New()
		}
		if in.Timestamp.IsZero() {
			in.Timestamp = now
		}
		events[i] = in
	}

	b.events = append(b.events, events...)

	if len(b.events) >= b.maxSize {
		select {
		case b.flushCh <- struct{}{}:
		default:
		}
	}

	return events, nil
}

func (b *Buffer) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(b.flushTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final flush. ctx is already done, so use the drain
			// context (which carries the caller's deadline) when set.
			if b.drainCtx != nil {
				b.flush(b.drainCtx)
			} else {
				fallbackCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				b.flush(fallbackCtx)
				cancel()
			}
			close(b.done)
			return
		case <-ticker.C:
			b.flush(ctx)
		case <-b.flushCh:
			b.flush(ctx)
		}
	}
}

func (b *Buffer) flush(ctx context.Context) {
	b.mu.Lock()
	if len(b.events) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.events
	b.events = nil
	b.mu.Unlock()

	start := time.Now()
	count, err := b.sink.InsertInteractionBatch(ctx, batch)
	duration := time.Since(start)

	if err != nil {
		b.logger.Error("ingest: flush failed", "error", err, "batch_size", len(batch))
		// Put events back for retry, but respect the capacity limit.
		b.mu.Lock()
		if len(b.events)+len(batch) <= maxBufferCapacity {
			b.events = append(batch, b.events...)
		} else {
			b.droppedEvents.Add(int64(len(batch)))
			b.logger.Error("ingest: dropping events, buffer at capacity after flush failure", "dropped", len(batch))
		}
		b.mu.Unlock()
		return
	}

	b.invalidateUsers(ctx, batch)

	b.logger.Info("ingest: batch flushed",
		"batch_size", count,
		"flush_duration_ms", duration.Milliseconds(),
	)
}

// invalidateUsers drops cached state for each distinct user in the
// batch. Invalidation failures are logged, never propagated: the cache
// TTLs bound the staleness.
func (b *Buffer) invalidateUsers(ctx context.Context, batch []model.InteractionEvent) {
	if b.invalidator == nil {
		return
	}
	seen := make(map[int64]struct{})
	for _, ev := range batch {
		if _, ok := seen[ev.UserID]; ok {
			continue
		}
		seen[ev.UserID] = struct{}{}
		if err := b.invalidator.InvalidateUser(ctx, ev.UserID); err != nil {
			b.logger.Warn("ingest: cache invalidation failed", "user_id", ev.UserID, "error", err)
		}
	}
}

// Drain signals the background flush loop to stop, waits for its final
// flush, and returns. ctx bounds the wait and is passed to the final
// flush.
func (b *Buffer) Drain(ctx context.Context) {
	b.drainCtx = ctx
	if b.cancelLoop != nil {
		b.cancelLoop()
	}
	select {
	case <-b.done:
	case <-ctx.Done():
		b.logger.Warn("ingest: drain timed out waiting for flush loop")
	}
}

// registerMetrics registers observable OTEL gauges for buffer health.
func (b *Buffer) registerMetrics() {
	meter := telemetry.Meter("recsvc/ingest")

	_, _ = meter.Int64ObservableGauge("recsvc.ingest.buffer_depth",
		metric.WithDescription("Current number of events in the write buffer"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(b.Len()))
			return nil
		}),
	)

	_, _ = meter.Int64ObservableGauge("recsvc.ingest.dropped_total",
		metric.WithDescription("Total events dropped due to buffer capacity exhaustion"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(b.DroppedEvents())
			return nil
		}),
	)
}

// Len returns the current number of buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Capacity returns the hard buffer capacity used for backpressure.
func (b *Buffer) Capacity() int {
	return maxBufferCapacity
}

// DroppedEvents returns the total number of events dropped after flush
// failures. A non-zero value indicates data loss.
func (b *Buffer) DroppedEvents() int64 {
	return b.droppedEvents.Load()
}
