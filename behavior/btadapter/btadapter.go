// Package btadapter bridges behavior trees and
// github.com/joeycumines/go-behaviortree, in both directions.
package btadapter

import (
	"log/slog"

	bt "github.com/joeycumines/go-behaviortree"
	"github.com/joeycumines/go-tickbt/behavior"
)

// ToBT converts a behavior.Status to the equivalent bt.Status. Invalid
// statuses map to bt.Failure.
func ToBT(s behavior.Status) bt.Status {
	switch s {
	case behavior.Running:
		return bt.Running
	case behavior.Success:
		return bt.Success
	default:
		return bt.Failure
	}
}

// FromBT converts a bt.Status to the equivalent behavior.Status. Unknown
// statuses map to behavior.Failure.
func FromBT(s bt.Status) behavior.Status {
	switch s {
	case bt.Running:
		return behavior.Running
	case bt.Success:
		return behavior.Success
	default:
		return behavior.Failure
	}
}

// Task is a behavior.Task ticking a go-behaviortree node. The node receives
// no host context, it is expected to close over whatever it needs. An error
// returned by the node is logged, and reported as Failure.
//
// Stateful go-behaviortree ticks (e.g. bt.Memorize) keep their own state,
// which is not reset when the leaf is abandoned.
type Task[C any] struct {
	node   bt.Node
	name   string
	logger *slog.Logger
}

var _ behavior.Task[any] = (*Task[any])(nil)

// NewTask wraps node. A nil logger selects slog.Default().
func NewTask[C any](name string, node bt.Node, logger *slog.Logger) *Task[C] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Task[C]{node: node, name: name, logger: logger}
}

// Leaf returns a named leaf node ticking node.
func Leaf[C any](name string, node bt.Node) *behavior.Spec[C] {
	if node == nil {
		return behavior.Leaf[C](nil).Named(name)
	}
	return behavior.Leaf[C](NewTask[C](name, node, nil)).Named(name)
}

// Tick implements behavior.Task.
func (t *Task[C]) Tick(C, *behavior.Slot) behavior.Status {
	status, err := t.node.Tick()
	if err != nil {
		t.logger.Error("btadapter: node failed",
			"name", t.name,
			"error", err)
		return behavior.Failure
	}
	return FromBT(status)
}

// Tick returns a bt.Tick that ticks tree once, using state and host. It
// ignores its children, and never returns an error.
func Tick[C any](tree *behavior.Tree[C], state *behavior.State, host C) bt.Tick {
	return func([]bt.Node) (bt.Status, error) {
		return ToBT(tree.Tick(state, host)), nil
	}
}

// Node returns a bt.Node ticking tree once per tick, using state and host.
// The result may be composed with other go-behaviortree nodes, or driven by
// bt.NewTicker. It must not be ticked concurrently.
func Node[C any](tree *behavior.Tree[C], state *behavior.State, host C) bt.Node {
	return bt.New(Tick(tree, state, host))
}
