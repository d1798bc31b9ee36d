package behavior

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

var (
	// ErrNilSpec indicates a nil node, e.g. a nil child.
	ErrNilSpec = errors.New("nil node")
	// ErrTooFewChildren indicates a composite with fewer than two children.
	ErrTooFewChildren = errors.New("composite requires at least two children")
	// ErrCycle indicates a node that is its own ancestor.
	ErrCycle = errors.New("cycle in tree")
	// ErrInvalidPolicy indicates invalid parallel thresholds.
	ErrInvalidPolicy = errors.New("invalid parallel policy")
	// ErrInvalidArgument indicates a missing task, condition or scorer, or
	// an out of range parameter.
	ErrInvalidArgument = errors.New("invalid argument")
)

// RestartPolicy controls what happens after the root of a tree completes.
type RestartPolicy uint8

const (
	// RestartOnTerminal clears all scratch state when the root completes,
	// so the next tick begins again from the top. This models a looping
	// agent policy, and is the default.
	RestartOnTerminal RestartPolicy = iota
	// HoldOnTerminal latches the root's terminal status. Subsequent ticks
	// return it without ticking any node, until Tree.Reset or State.Clear.
	HoldOnTerminal
)

func (p RestartPolicy) String() string {
	switch p {
	case RestartOnTerminal:
		return "restart"
	case HoldOnTerminal:
		return "hold"
	default:
		return "unknown"
	}
}

// ParseRestartPolicy parses the String form of a RestartPolicy.
func ParseRestartPolicy(s string) (RestartPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "restart":
		return RestartOnTerminal, nil
	case "hold":
		return HoldOnTerminal, nil
	default:
		return 0, fmt.Errorf("%w: unknown restart policy %q", ErrInvalidArgument, s)
	}
}

// Option configures Compile.
type Option func(*treeOptions)

type treeOptions struct {
	restart RestartPolicy
	logger  *slog.Logger
}

// WithRestartPolicy sets the RestartPolicy of the tree.
func WithRestartPolicy(policy RestartPolicy) Option {
	return func(o *treeOptions) { o.restart = policy }
}

// WithLogger sets the logger used to report invalid leaf results and root
// completions. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *treeOptions) { o.logger = logger }
}

// Tree is an immutable, compiled behavior tree. A single Tree may back any
// number of independent instances, each with its own State.
type Tree[C any] struct {
	nodes   []node[C]
	restart RestartPolicy
	logger  *slog.Logger
}

type node[C any] struct {
	kind     Kind
	name     string
	parent   NodeID
	children []NodeID
	scorers  []Scorer[C]
	task     Task[C]
	starter  Starter[C]
	aborter  Aborter[C]
	cond     Condition[C]
	hooks    *Hooks[C]
	result   Status
	count    int
	success  int
	failure  int
}

// NodeInfo describes a compiled node.
type NodeInfo struct {
	ID       NodeID
	Kind     Kind
	Name     string
	Parent   NodeID // -1 for the root
	Children []NodeID
}

// Compile validates root and flattens it into a Tree. Any configuration
// error is reported here, and never during ticking.
func Compile[C any](root *Spec[C], opts ...Option) (*Tree[C], error) {
	o := treeOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.restart != RestartOnTerminal && o.restart != HoldOnTerminal {
		return nil, fmt.Errorf("behavior: restart policy %d: %w", o.restart, ErrInvalidArgument)
	}
	c := compiler[C]{onPath: make(map[*Spec[C]]struct{})}
	if _, err := c.add(root, -1, "root"); err != nil {
		return nil, err
	}
	return &Tree[C]{
		nodes:   c.nodes,
		restart: o.restart,
		logger:  o.logger,
	}, nil
}

type compiler[C any] struct {
	nodes  []node[C]
	onPath map[*Spec[C]]struct{}
}

func (c *compiler[C]) add(s *Spec[C], parent NodeID, path string) (NodeID, error) {
	if s == nil {
		return 0, fmt.Errorf("behavior: %s: %w", path, ErrNilSpec)
	}
	if s.name != "" {
		path += "(" + s.name + ")"
	}
	if _, ok := c.onPath[s]; ok {
		return 0, fmt.Errorf("behavior: %s: %w", path, ErrCycle)
	}
	if err := validate(s); err != nil {
		return 0, fmt.Errorf("behavior: %s %s: %w", path, s.kind, err)
	}

	c.onPath[s] = struct{}{}
	defer delete(c.onPath, s)

	id := NodeID(len(c.nodes))
	c.nodes = append(c.nodes, node[C]{
		kind:    s.kind,
		name:    s.name,
		parent:  parent,
		scorers: s.scorers,
		task:    s.task,
		cond:    s.cond,
		result:  s.result,
		count:   s.count,
	})
	if s.task != nil {
		c.nodes[id].starter, _ = s.task.(Starter[C])
		c.nodes[id].aborter, _ = s.task.(Aborter[C])
	}
	if !s.hooks.empty() {
		c.nodes[id].hooks = s.hooks
	}

	var children []NodeID
	if len(s.children) != 0 {
		children = make([]NodeID, len(s.children))
	}
	for i, child := range s.children {
		childID, err := c.add(child, id, path+"/"+strconv.Itoa(i))
		if err != nil {
			return 0, err
		}
		children[i] = childID
	}
	// the slice may have been reallocated by the recursive calls
	n := &c.nodes[id]
	n.children = children
	if s.kind == KindParallel {
		n.success, n.failure = s.policy.SuccessThreshold, s.policy.FailureThreshold
		if n.success == 0 {
			n.success = len(children)
		}
		if n.failure == 0 {
			n.failure = len(children)
		}
	}
	return id, nil
}

func validate[C any](s *Spec[C]) error {
	switch {
	case s.kind.IsLeaf():
		if len(s.children) != 0 {
			return fmt.Errorf("%w: leaf with children", ErrInvalidArgument)
		}
		if s.kind == KindLeaf && s.task == nil {
			return fmt.Errorf("%w: nil task", ErrInvalidArgument)
		}
		if s.kind == KindCheck && s.cond == nil {
			return fmt.Errorf("%w: nil condition", ErrInvalidArgument)
		}

	case s.kind.IsComposite():
		if len(s.children) < 2 {
			return fmt.Errorf("%w: got %d", ErrTooFewChildren, len(s.children))
		}
		if s.kind.scored() {
			if len(s.scorers) != len(s.children) {
				return fmt.Errorf("%w: %d scorers for %d children", ErrInvalidArgument, len(s.scorers), len(s.children))
			}
			for i, scorer := range s.scorers {
				if scorer == nil {
					return fmt.Errorf("%w: nil scorer for child %d", ErrInvalidArgument, i)
				}
			}
		}
		if s.kind == KindParallel {
			n := len(s.children)
			p := s.policy
			if p.SuccessThreshold < 0 || p.SuccessThreshold > n || p.FailureThreshold < 0 || p.FailureThreshold > n {
				return fmt.Errorf("%w: thresholds success=%d failure=%d for %d children", ErrInvalidPolicy, p.SuccessThreshold, p.FailureThreshold, n)
			}
		}

	case s.kind.IsDecorator():
		if len(s.children) != 1 {
			return fmt.Errorf("%w: decorator requires exactly one child", ErrInvalidArgument)
		}
		switch s.kind {
		case KindGate, KindGuard, KindWhile:
			if s.cond == nil {
				return fmt.Errorf("%w: nil condition", ErrInvalidArgument)
			}
		case KindForceResult, KindRepeatUntil:
			if !s.result.IsTerminal() {
				return fmt.Errorf("%w: result must be success or failure, got %s", ErrInvalidArgument, s.result)
			}
		case KindRepeat, KindRetry, KindTimeLimit:
			if s.count < 1 {
				return fmt.Errorf("%w: count must be positive, got %d", ErrInvalidArgument, s.count)
			}
		}

	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidArgument, s.kind)
	}
	return nil
}

// Len returns the number of nodes in the tree.
func (t *Tree[C]) Len() int { return len(t.nodes) }

// Root returns the ID of the root node, which is always 0.
func (t *Tree[C]) Root() NodeID { return 0 }

// RestartPolicy returns the policy the tree was compiled with.
func (t *Tree[C]) RestartPolicy() RestartPolicy { return t.restart }

// Node returns information about the node with the given id.
func (t *Tree[C]) Node(id NodeID) (NodeInfo, bool) {
	if id < 0 || int(id) >= len(t.nodes) {
		return NodeInfo{}, false
	}
	n := &t.nodes[id]
	return NodeInfo{
		ID:       id,
		Kind:     n.kind,
		Name:     n.name,
		Parent:   n.parent,
		Children: append([]NodeID(nil), n.children...),
	}, true
}

// NewState returns a zeroed scratch state block for the tree.
func (t *Tree[C]) NewState() *State {
	return &State{slots: make([]Slot, len(t.nodes))}
}

// String renders the tree, one node per line, indented by depth.
func (t *Tree[C]) String() string {
	var b strings.Builder
	t.render(&b, 0, 0, nil)
	return b.String()
}

// Describe renders the tree like String, marking active nodes of state.
func (t *Tree[C]) Describe(state *State) string {
	t.checkState(state)
	var b strings.Builder
	t.render(&b, 0, 0, state)
	return b.String()
}

func (t *Tree[C]) render(b *strings.Builder, id NodeID, depth int, state *State) {
	n := &t.nodes[id]
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(n.kind.String())
	b.WriteByte('#')
	b.WriteString(strconv.Itoa(int(id)))
	if n.name != "" {
		b.WriteString(" ")
		b.WriteString(strconv.Quote(n.name))
	}
	if state != nil && state.slots[id].active {
		b.WriteString(" *")
	}
	b.WriteByte('\n')
	for _, child := range n.children {
		t.render(b, child, depth+1, state)
	}
}

func (t *Tree[C]) checkState(state *State) {
	if state == nil || len(state.slots) != len(t.nodes) {
		panic("behavior: state was not created by this tree")
	}
}
