// Package driver ticks behavior trees on behalf of a host simulation.
//
// A Driver holds any number of Instances, each pairing a compiled tree with a
// host context and its own scratch state. Every Step ticks each non-frozen
// instance exactly once. Instances are independent, so a Driver may tick
// them concurrently, bounded by WithWorkers.
package driver

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	bt "github.com/joeycumines/go-behaviortree"
	"github.com/joeycumines/go-tickbt/behavior"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/joeycumines/go-tickbt/behavior/driver"

// Observer receives the result of each instance tick. It may be called
// concurrently, if the driver has more than one worker.
type Observer[C any] func(x *Instance[C], status behavior.Status)

// Option configures New.
type Option[C any] func(*Driver[C])

// WithWorkers sets the maximum number of instances ticked concurrently.
// Values less than 2 tick instances sequentially, in attach order.
func WithWorkers[C any](n int) Option[C] {
	return func(d *Driver[C]) { d.workers = n }
}

// WithLogger sets the logger.
func WithLogger[C any](logger *slog.Logger) Option[C] {
	return func(d *Driver[C]) { d.logger = logger }
}

// WithTracerProvider sets the provider of the tracer used to record a span
// per Step. Defaults to the global provider.
func WithTracerProvider[C any](tp trace.TracerProvider) Option[C] {
	return func(d *Driver[C]) { d.tp = tp }
}

// WithObserver sets a callback invoked after each instance tick.
func WithObserver[C any](fn Observer[C]) Option[C] {
	return func(d *Driver[C]) { d.observer = fn }
}

// Driver ticks a set of instances.
type Driver[C any] struct {
	workers  int
	logger   *slog.Logger
	tp       trace.TracerProvider
	tracer   trace.Tracer
	observer Observer[C]
	steps    atomic.Uint64

	mu        sync.RWMutex
	instances []*Instance[C]
	byID      map[uuid.UUID]*Instance[C]
}

// New returns an empty driver.
func New[C any](opts ...Option[C]) *Driver[C] {
	d := &Driver[C]{
		workers: 1,
		byID:    make(map[uuid.UUID]*Instance[C]),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.tp == nil {
		d.tp = otel.GetTracerProvider()
	}
	d.tracer = d.tp.Tracer(tracerName)
	return d
}

// Attach creates an instance of tree for host. It will be ticked from the
// next Step.
func (d *Driver[C]) Attach(tree *behavior.Tree[C], host C) *Instance[C] {
	x := newInstance(tree, host)
	d.mu.Lock()
	d.instances = append(d.instances, x)
	d.byID[x.id] = x
	d.mu.Unlock()
	d.logger.Debug("driver: attached instance",
		"instance", x.id,
		"nodes", tree.Len())
	return x
}

// Detach removes an instance, returning false if not found. Running nodes
// are abandoned, as with Instance.Reset.
func (d *Driver[C]) Detach(id uuid.UUID) bool {
	d.mu.Lock()
	x, ok := d.byID[id]
	if ok {
		delete(d.byID, id)
		d.instances = slices.DeleteFunc(d.instances, func(v *Instance[C]) bool { return v == x })
	}
	d.mu.Unlock()
	if !ok {
		return false
	}
	x.Reset()
	d.logger.Debug("driver: detached instance", "instance", id)
	return true
}

// Instance returns the instance with the given id.
func (d *Driver[C]) Instance(id uuid.UUID) (*Instance[C], bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	x, ok := d.byID[id]
	return x, ok
}

// Instances returns every attached instance, in attach order.
func (d *Driver[C]) Instances() []*Instance[C] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.instances)
}

// Len returns the number of attached instances.
func (d *Driver[C]) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.instances)
}

// Reset resets the instance with the given id, returning false if not found.
func (d *Driver[C]) Reset(id uuid.UUID) bool {
	x, ok := d.Instance(id)
	if ok {
		x.Reset()
	}
	return ok
}

// Steps returns the number of completed calls to Step.
func (d *Driver[C]) Steps() uint64 { return d.steps.Load() }

// Step ticks every non-frozen instance once. It returns early with the
// context's error if ctx is cancelled, in which case some instances may not
// have been ticked.
func (d *Driver[C]) Step(ctx context.Context) error {
	instances := d.Instances()
	step := d.steps.Load() + 1

	ctx, span := d.tracer.Start(ctx, "driver.Step", trace.WithAttributes(
		attribute.Int64("tickbt.step", int64(step)),
		attribute.Int("tickbt.instances", len(instances)),
	))
	defer span.End()

	var counts [4]atomic.Int64
	tick := func(x *Instance[C]) {
		if x.Frozen() {
			counts[0].Add(1)
			return
		}
		status := x.Tick()
		counts[status].Add(1)
		if d.observer != nil {
			d.observer(x, status)
		}
	}

	var err error
	if d.workers < 2 {
		for _, x := range instances {
			if err = ctx.Err(); err != nil {
				break
			}
			tick(x)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(d.workers)
		for _, x := range instances {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				tick(x)
				return nil
			})
		}
		err = g.Wait()
	}

	span.SetAttributes(
		attribute.Int64("tickbt.frozen", counts[0].Load()),
		attribute.Int64("tickbt.running", counts[behavior.Running].Load()),
		attribute.Int64("tickbt.success", counts[behavior.Success].Load()),
		attribute.Int64("tickbt.failure", counts[behavior.Failure].Load()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	d.steps.Add(1)
	return nil
}

// Run calls Step every interval, until ctx is cancelled, Step fails, or the
// returned ticker is stopped.
func (d *Driver[C]) Run(ctx context.Context, interval time.Duration) bt.Ticker {
	return bt.NewTicker(ctx, interval, d.Node(ctx))
}

// Node returns a go-behaviortree node that calls Step on each tick,
// returning bt.Running, or an error if Step fails.
func (d *Driver[C]) Node(ctx context.Context) bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		if err := d.Step(ctx); err != nil {
			return bt.Failure, err
		}
		return bt.Running, nil
	})
}
