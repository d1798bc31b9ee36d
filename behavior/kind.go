package behavior

// Kind identifies the behavior of a compiled node.
type Kind uint8

const (
	// KindLeaf wraps a host supplied Task.
	KindLeaf Kind = iota + 1
	// KindCheck is a leaf that evaluates a Condition.
	KindCheck

	// KindSequence ticks children left to right while they succeed.
	KindSequence
	// KindSelector ticks children left to right until one does not fail.
	KindSelector
	// KindForcedSequence ticks every child in order, returning the last result.
	KindForcedSequence
	// KindForcedSelector ticks the single highest scoring child, every tick.
	KindForcedSelector
	// KindScoredSequence is a sequence ordered by score on activation.
	KindScoredSequence
	// KindScoredSelector is a selector ordered by score on activation.
	KindScoredSelector
	// KindScoredForcedSequence is a forced sequence ordered by score on
	// activation.
	KindScoredForcedSequence
	// KindParallel ticks every unfinished child, every tick.
	KindParallel

	// KindInverter swaps Success and Failure.
	KindInverter
	// KindForceResult replaces terminal results.
	KindForceResult
	// KindGate checks a condition on activation only.
	KindGate
	// KindGuard checks a condition on every tick.
	KindGuard
	// KindRepeatUntil restarts the child until it returns a given result.
	KindRepeatUntil
	// KindRepeat runs the child a fixed number of times.
	KindRepeat
	// KindRetry re-runs a failing child a bounded number of times.
	KindRetry
	// KindWhile re-runs the child while a condition holds.
	KindWhile
	// KindTimeLimit fails the child after a number of ticks.
	KindTimeLimit
)

var kindNames = [...]string{
	KindLeaf:                 "leaf",
	KindCheck:                "check",
	KindSequence:             "sequence",
	KindSelector:             "selector",
	KindForcedSequence:       "forced-sequence",
	KindForcedSelector:       "forced-selector",
	KindScoredSequence:       "scored-sequence",
	KindScoredSelector:       "scored-selector",
	KindScoredForcedSequence: "scored-forced-sequence",
	KindParallel:             "parallel",
	KindInverter:             "inverter",
	KindForceResult:          "force-result",
	KindGate:                 "gate",
	KindGuard:                "guard",
	KindRepeatUntil:          "repeat-until",
	KindRepeat:               "repeat",
	KindRetry:                "retry",
	KindWhile:                "while",
	KindTimeLimit:            "time-limit",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// IsLeaf returns true for kinds without children.
func (k Kind) IsLeaf() bool {
	return k == KindLeaf || k == KindCheck
}

// IsComposite returns true for kinds with two or more children.
func (k Kind) IsComposite() bool {
	return k >= KindSequence && k <= KindParallel
}

// IsDecorator returns true for kinds with exactly one child.
func (k Kind) IsDecorator() bool {
	return k >= KindInverter && k <= KindTimeLimit
}

// scored returns true for composites that require a Scorer per child.
func (k Kind) scored() bool {
	switch k {
	case KindForcedSelector, KindScoredSequence, KindScoredSelector, KindScoredForcedSequence:
		return true
	default:
		return false
	}
}
