package behavior

// Spec describes a node, and (transitively) its children. Specs are built
// using the constructor functions in this package, then compiled into an
// immutable Tree using Compile. Validation is deferred until Compile.
//
// A Spec may be referenced more than once within a graph, in which case each
// occurrence is compiled into a distinct node, with its own scratch state.
// Cycles are rejected.
type Spec[C any] struct {
	kind     Kind
	name     string
	children []*Spec[C]
	scorers  []Scorer[C]
	task     Task[C]
	cond     Condition[C]
	hooks    *Hooks[C]
	policy   ParallelPolicy
	result   Status
	count    int
}

// Kind returns the kind of node this spec describes.
func (s *Spec[C]) Kind() Kind { return s.kind }

// Named sets a diagnostic name, returning s.
func (s *Spec[C]) Named(name string) *Spec[C] {
	s.name = name
	return s
}

// WithHooks attaches lifecycle callbacks to the node, returning s.
func (s *Spec[C]) WithHooks(hooks Hooks[C]) *Spec[C] {
	s.hooks = &hooks
	return s
}

// ScoredChild pairs a child with the Scorer used to rank it.
type ScoredChild[C any] struct {
	Scorer Scorer[C]
	Child  *Spec[C]
}

// Scored pairs child with scorer, for use with ForcedSelector,
// ScoredSequence and ScoredSelector.
func Scored[C any](scorer Scorer[C], child *Spec[C]) ScoredChild[C] {
	return ScoredChild[C]{Scorer: scorer, Child: child}
}

// ParallelPolicy configures the completion thresholds of a Parallel node.
// A zero threshold means "all children".
type ParallelPolicy struct {
	// SuccessThreshold is the number of children that must succeed for the
	// parallel node to succeed.
	SuccessThreshold int
	// FailureThreshold is the number of children that must fail for the
	// parallel node to fail.
	FailureThreshold int
}

// Leaf returns a node that ticks task.
func Leaf[C any](task Task[C]) *Spec[C] {
	return &Spec[C]{kind: KindLeaf, task: task}
}

// LeafFunc returns a node that ticks fn.
func LeafFunc[C any](fn func(host C, slot *Slot) Status) *Spec[C] {
	if fn == nil {
		return Leaf[C](nil)
	}
	return Leaf[C](TaskFunc[C](fn))
}

// Check returns a leaf that succeeds if cond holds, and fails otherwise.
func Check[C any](cond Condition[C]) *Spec[C] {
	return &Spec[C]{kind: KindCheck, cond: cond}
}

// Sequence returns a node that ticks children left to right, resuming from
// the last Running child, while they succeed.
func Sequence[C any](children ...*Spec[C]) *Spec[C] {
	return &Spec[C]{kind: KindSequence, children: children}
}

// Selector returns a node that ticks children left to right, resuming from
// the last Running child, until one does not fail.
func Selector[C any](children ...*Spec[C]) *Spec[C] {
	return &Spec[C]{kind: KindSelector, children: children}
}

// ForcedSequence returns a node that ticks every child in order, regardless
// of their results, returning the result of the last child.
func ForcedSequence[C any](children ...*Spec[C]) *Spec[C] {
	return &Spec[C]{kind: KindForcedSequence, children: children}
}

// ForcedSelector returns a node that scores every child on every tick, and
// ticks only the highest scoring one (ties broken by declaration order). A
// previously Running child that is no longer selected is abandoned.
func ForcedSelector[C any](children ...ScoredChild[C]) *Spec[C] {
	return scored(KindForcedSelector, children)
}

// ScoredSequence returns a sequence whose children are ordered by score,
// descending, once per activation.
func ScoredSequence[C any](children ...ScoredChild[C]) *Spec[C] {
	return scored(KindScoredSequence, children)
}

// ScoredSelector returns a selector whose children are ordered by score,
// descending, once per activation.
func ScoredSelector[C any](children ...ScoredChild[C]) *Spec[C] {
	return scored(KindScoredSelector, children)
}

// ScoredForcedSequence returns a forced sequence whose children are ordered
// by score, descending, once per activation.
func ScoredForcedSequence[C any](children ...ScoredChild[C]) *Spec[C] {
	return scored(KindScoredForcedSequence, children)
}

func scored[C any](kind Kind, children []ScoredChild[C]) *Spec[C] {
	s := &Spec[C]{
		kind:     kind,
		children: make([]*Spec[C], len(children)),
		scorers:  make([]Scorer[C], len(children)),
	}
	for i, c := range children {
		s.children[i] = c.Child
		s.scorers[i] = c.Scorer
	}
	return s
}

// Parallel returns a node that ticks every unfinished child on every tick,
// completing once either threshold of policy is met.
func Parallel[C any](policy ParallelPolicy, children ...*Spec[C]) *Spec[C] {
	return &Spec[C]{kind: KindParallel, children: children, policy: policy}
}

// ParallelAll is a Parallel node that succeeds when every child succeeds,
// and fails as soon as any child fails.
func ParallelAll[C any](children ...*Spec[C]) *Spec[C] {
	return Parallel(ParallelPolicy{FailureThreshold: 1}, children...)
}

// ParallelAny is a Parallel node that succeeds as soon as any child
// succeeds, and fails when every child fails.
func ParallelAny[C any](children ...*Spec[C]) *Spec[C] {
	return Parallel(ParallelPolicy{SuccessThreshold: 1}, children...)
}

func decorate[C any](kind Kind, child *Spec[C]) *Spec[C] {
	return &Spec[C]{kind: kind, children: []*Spec[C]{child}}
}

// Inverter swaps Success and Failure results of child.
func Inverter[C any](child *Spec[C]) *Spec[C] {
	return decorate(KindInverter, child)
}

// ForceResult replaces any terminal result of child with result.
func ForceResult[C any](result Status, child *Spec[C]) *Spec[C] {
	s := decorate(KindForceResult, child)
	s.result = result
	return s
}

// Succeeder always succeeds once child completes.
func Succeeder[C any](child *Spec[C]) *Spec[C] { return ForceResult(Success, child) }

// Failer always fails once child completes.
func Failer[C any](child *Spec[C]) *Spec[C] { return ForceResult(Failure, child) }

// Gate checks cond when activated. If it does not hold, Gate fails without
// ticking child, otherwise child runs to completion.
func Gate[C any](cond Condition[C], child *Spec[C]) *Spec[C] {
	s := decorate(KindGate, child)
	s.cond = cond
	return s
}

// Guard checks cond on every tick, before ticking child. If it does not
// hold, any Running child is abandoned and Guard fails.
func Guard[C any](cond Condition[C], child *Spec[C]) *Spec[C] {
	s := decorate(KindGuard, child)
	s.cond = cond
	return s
}

// RepeatUntil re-activates child, from scratch, on the tick after it
// completes with any result other than result. The first completion with
// result is returned.
func RepeatUntil[C any](result Status, child *Spec[C]) *Spec[C] {
	s := decorate(KindRepeatUntil, child)
	s.result = result
	return s
}

// RepeatUntilFailure is RepeatUntil(Failure, child).
func RepeatUntilFailure[C any](child *Spec[C]) *Spec[C] { return RepeatUntil(Failure, child) }

// RepeatUntilSuccess is RepeatUntil(Success, child).
func RepeatUntilSuccess[C any](child *Spec[C]) *Spec[C] { return RepeatUntil(Success, child) }

// Repeat runs child to completion n times, one completion per tick at most,
// returning the last result.
func Repeat[C any](n int, child *Spec[C]) *Spec[C] {
	s := decorate(KindRepeat, child)
	s.count = n
	return s
}

// Retry runs child until it succeeds, failing after n failed attempts.
func Retry[C any](n int, child *Spec[C]) *Spec[C] {
	s := decorate(KindRetry, child)
	s.count = n
	return s
}

// While runs child repeatedly, checking cond before each iteration. It
// returns the result of the last iteration once cond no longer holds, or
// Failure if cond did not hold for the first iteration.
func While[C any](cond Condition[C], child *Spec[C]) *Spec[C] {
	s := decorate(KindWhile, child)
	s.cond = cond
	return s
}

// TimeLimit fails, abandoning child, if child is still Running after ticks
// ticks of the same activation.
func TimeLimit[C any](ticks int, child *Spec[C]) *Spec[C] {
	s := decorate(KindTimeLimit, child)
	s.count = ticks
	return s
}
