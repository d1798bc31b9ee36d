package driver

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	bt "github.com/joeycumines/go-behaviortree"
	"github.com/joeycumines/go-tickbt/behavior"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type agent struct {
	name    string
	steps   atomic.Int32
	aborted atomic.Int32
}

type walk struct{ n int }

func (w walk) Tick(a *agent, slot *behavior.Slot) behavior.Status {
	a.steps.Add(1)
	if slot.Ticks() < w.n {
		return behavior.Running
	}
	return behavior.Success
}

func (walk) Abort(a *agent, _ *behavior.Slot) { a.aborted.Add(1) }

func walkTree(t *testing.T, n int) *behavior.Tree[*agent] {
	t.Helper()
	tree, err := behavior.Compile(behavior.Leaf[*agent](walk{n: n}))
	require.NoError(t, err)
	return tree
}

func TestDriver_attachDetach(t *testing.T) {
	t.Parallel()

	d := New[*agent]()
	tree := walkTree(t, 3)
	a := d.Attach(tree, &agent{name: "a"})
	b := d.Attach(tree, &agent{name: "b"})
	require.Equal(t, 2, d.Len())
	require.NotEqual(t, a.ID(), b.ID())
	require.Same(t, tree, a.Tree())
	require.Equal(t, "a", a.Host().name)

	got, ok := d.Instance(b.ID())
	require.True(t, ok)
	require.Same(t, b, got)
	require.Equal(t, []*Instance[*agent]{a, b}, d.Instances())

	require.NoError(t, d.Step(context.Background()))
	require.True(t, d.Detach(a.ID()))
	require.Equal(t, int32(1), a.Host().aborted.Load())
	require.False(t, d.Detach(a.ID()))
	require.False(t, d.Reset(a.ID()))
	_, ok = d.Instance(a.ID())
	require.False(t, ok)
	require.Equal(t, []*Instance[*agent]{b}, d.Instances())

	_, ok = d.Instance(uuid.New())
	require.False(t, ok)
}

func TestDriver_stepTicksEachInstanceOnce(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{0, 1, 4} {
		d := New(WithWorkers[*agent](workers))
		tree := walkTree(t, 2)
		var agents []*agent
		for range 10 {
			a := new(agent)
			agents = append(agents, a)
			d.Attach(tree, a)
		}

		require.NoError(t, d.Step(context.Background()))
		for _, x := range d.Instances() {
			assert.Equal(t, behavior.Running, x.Status())
		}
		require.NoError(t, d.Step(context.Background()))
		for _, x := range d.Instances() {
			assert.Equal(t, behavior.Success, x.Status())
		}
		for _, a := range agents {
			assert.Equal(t, int32(2), a.steps.Load(), "workers=%d", workers)
		}
		assert.Equal(t, uint64(2), d.Steps())
	}
}

func TestDriver_freeze(t *testing.T) {
	t.Parallel()

	d := New[*agent]()
	a := new(agent)
	x := d.Attach(walkTree(t, 2), a)

	require.NoError(t, d.Step(context.Background()))
	require.Equal(t, behavior.Running, x.Status())

	x.Freeze()
	require.True(t, x.Frozen())
	for range 3 {
		require.NoError(t, d.Step(context.Background()))
	}
	require.Equal(t, int32(1), a.steps.Load())
	require.Equal(t, behavior.Running, x.Tick())

	// resumes where it left off
	x.Unfreeze()
	require.NoError(t, d.Step(context.Background()))
	require.Equal(t, behavior.Success, x.Status())
	require.Equal(t, int32(2), a.steps.Load())
}

func TestDriver_reset(t *testing.T) {
	t.Parallel()

	d := New[*agent]()
	a := new(agent)
	x := d.Attach(walkTree(t, 5), a)

	require.NoError(t, d.Step(context.Background()))
	require.NoError(t, d.Step(context.Background()))
	require.Equal(t, uint64(2), x.Ticks())
	require.Contains(t, x.Describe(), "*")

	require.True(t, d.Reset(x.ID()))
	require.Equal(t, int32(1), a.aborted.Load())
	require.Zero(t, x.Status())
	require.Zero(t, x.Ticks())
	require.Empty(t, x.Path())
	require.NotContains(t, x.Describe(), "*")
}

func TestDriver_observer(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		seen = map[uuid.UUID]behavior.Status{}
	)
	d := New(WithWorkers[*agent](3), WithObserver(func(x *Instance[*agent], status behavior.Status) {
		mu.Lock()
		defer mu.Unlock()
		seen[x.ID()] = status
	}))
	tree := walkTree(t, 1)
	for range 5 {
		d.Attach(tree, new(agent))
	}
	frozen := d.Attach(tree, new(agent))
	frozen.Freeze()

	require.NoError(t, d.Step(context.Background()))
	require.Len(t, seen, 5)
	for _, status := range seen {
		require.Equal(t, behavior.Success, status)
	}
}

func TestDriver_stepCancelled(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 2} {
		d := New(WithWorkers[*agent](workers))
		a := new(agent)
		d.Attach(walkTree(t, 1), a)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.ErrorIs(t, d.Step(ctx), context.Canceled)
		require.Zero(t, a.steps.Load())
		require.Zero(t, d.Steps())
	}
}

func TestDriver_spans(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	d := New(WithTracerProvider[*agent](tp))
	tree := walkTree(t, 2)
	d.Attach(tree, new(agent))
	d.Attach(tree, new(agent)).Freeze()

	require.NoError(t, d.Step(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, d.Step(ctx))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "driver.Step", spans[0].Name())
	attrs := attribute.NewSet(spans[0].Attributes()...)
	v, ok := attrs.Value("tickbt.instances")
	require.True(t, ok)
	assert.Equal(t, int64(2), v.AsInt64())
	v, _ = attrs.Value("tickbt.running")
	assert.Equal(t, int64(1), v.AsInt64())
	v, _ = attrs.Value("tickbt.frozen")
	assert.Equal(t, int64(1), v.AsInt64())
	v, _ = attrs.Value("tickbt.step")
	assert.Equal(t, int64(1), v.AsInt64())

	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestDriver_run(t *testing.T) {
	t.Parallel()

	d := New[*agent]()
	a := new(agent)
	d.Attach(walkTree(t, 1000), a)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := bt.NewManager()
	require.NoError(t, manager.Add(d.Run(ctx, time.Millisecond)))

	require.Eventually(t, func() bool { return d.Steps() >= 3 }, 5*time.Second, time.Millisecond)
	manager.Stop()
	<-manager.Done()
	assert.GreaterOrEqual(t, a.steps.Load(), int32(3))
}

func TestInstance_node(t *testing.T) {
	t.Parallel()

	d := New[*agent]()
	x := d.Attach(walkTree(t, 2), new(agent))
	node := x.Node()

	status, err := node.Tick()
	require.NoError(t, err)
	assert.Equal(t, bt.Running, status)
	status, err = node.Tick()
	require.NoError(t, err)
	assert.Equal(t, bt.Success, status)
	assert.Equal(t, []behavior.NodeID{0}, x.Path())
}
