package behavior

// Task is the capability a host implements to provide leaf behavior.
//
// Tick is called at most once per tree tick, and only while the leaf is on
// the activation path. Multi-tick work must be tracked using the slot (see
// Slot.Data), returning Running until complete. Host side faults must be
// translated to Failure, there is no other error channel.
type Task[C any] interface {
	Tick(host C, slot *Slot) Status
}

// TaskFunc implements Task using a function.
type TaskFunc[C any] func(host C, slot *Slot) Status

// Tick implements Task.
func (f TaskFunc[C]) Tick(host C, slot *Slot) Status { return f(host, slot) }

// Starter may be implemented by a Task to receive a callback once per
// activation, before the first Tick of that activation.
type Starter[C any] interface {
	Start(host C, slot *Slot)
}

// Aborter may be implemented by a Task to be notified when it is abandoned
// while Running, e.g. by a parallel node completing, or a forced selector
// switching child. The slot is cleared after Abort returns.
type Aborter[C any] interface {
	Abort(host C, slot *Slot)
}

// Condition is a predicate over the host context. Implementations must not
// have side effects.
type Condition[C any] interface {
	Check(host C) bool
}

// ConditionFunc implements Condition using a function.
type ConditionFunc[C any] func(host C) bool

// Check implements Condition.
func (f ConditionFunc[C]) Check(host C) bool { return f(host) }

// Scorer computes the utility of a child, for score driven composites.
// Implementations must be pure functions of the host context: calling Score
// twice with the same context must yield the same value. NaN is treated as
// negative infinity.
type Scorer[C any] interface {
	Score(host C) float64
}

// ScorerFunc implements Scorer using a function.
type ScorerFunc[C any] func(host C) float64

// Score implements Scorer.
func (f ScorerFunc[C]) Score(host C) float64 { return f(host) }

// Constant returns a Scorer that always returns v.
func Constant[C any](v float64) Scorer[C] {
	return ScorerFunc[C](func(C) float64 { return v })
}

// Hooks are optional callbacks fired on node lifecycle events. Any field may
// be nil.
type Hooks[C any] struct {
	// OnEnter fires when the node is activated, before it is first ticked.
	OnEnter func(host C)
	// OnSuccess fires when the node completes with Success.
	OnSuccess func(host C)
	// OnFailure fires when the node completes with Failure.
	OnFailure func(host C)
	// OnExit fires whenever an activation ends, whether the node completed or
	// was abandoned by an ancestor.
	OnExit func(host C)
}

func (h *Hooks[C]) empty() bool {
	return h == nil || (h.OnEnter == nil && h.OnSuccess == nil && h.OnFailure == nil && h.OnExit == nil)
}
