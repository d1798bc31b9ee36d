package driver

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	bt "github.com/joeycumines/go-behaviortree"
	"github.com/joeycumines/go-tickbt/behavior"
	"github.com/joeycumines/go-tickbt/behavior/btadapter"
)

// Instance is a tree attached to a host context (an agent), with its own
// scratch state. It is safe for concurrent use, though ticks are serialized.
type Instance[C any] struct {
	id     uuid.UUID
	tree   *behavior.Tree[C]
	host   C
	frozen atomic.Bool

	mu    sync.Mutex
	state *behavior.State
	last  behavior.Status
}

func newInstance[C any](tree *behavior.Tree[C], host C) *Instance[C] {
	return &Instance[C]{
		id:    uuid.New(),
		tree:  tree,
		host:  host,
		state: tree.NewState(),
	}
}

// ID returns the unique identifier of the instance.
func (x *Instance[C]) ID() uuid.UUID { return x.id }

// Host returns the host context the tree is ticked with.
func (x *Instance[C]) Host() C { return x.host }

// Tree returns the tree backing the instance.
func (x *Instance[C]) Tree() *behavior.Tree[C] { return x.tree }

// Tick ticks the tree once, unless the instance is frozen, in which case
// the status of the last tick is returned (zero if never ticked).
func (x *Instance[C]) Tick() behavior.Status {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.frozen.Load() {
		return x.last
	}
	x.last = x.tree.Tick(x.state, x.host)
	return x.last
}

// Reset abandons any Running nodes, then clears the scratch state. The next
// tick starts from the root.
func (x *Instance[C]) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.tree.Reset(x.state, x.host)
	x.last = 0
}

// Freeze suspends ticking, preserving all scratch state.
func (x *Instance[C]) Freeze() { x.frozen.Store(true) }

// Unfreeze resumes ticking where the instance left off.
func (x *Instance[C]) Unfreeze() { x.frozen.Store(false) }

// Frozen returns true if the instance is frozen.
func (x *Instance[C]) Frozen() bool { return x.frozen.Load() }

// Status returns the status of the last tick, or zero if never ticked.
func (x *Instance[C]) Status() behavior.Status {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.last
}

// Path returns the activation path of the last tick.
func (x *Instance[C]) Path() []behavior.NodeID {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.state.Path()
}

// Ticks returns the number of ticks since the state was last cleared.
func (x *Instance[C]) Ticks() uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.state.Ticks()
}

// Describe renders the tree, marking Running nodes.
func (x *Instance[C]) Describe() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.tree.Describe(x.state)
}

// Node returns a go-behaviortree node ticking the instance.
func (x *Instance[C]) Node() bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		return btadapter.ToBT(x.Tick()), nil
	})
}
