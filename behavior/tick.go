package behavior

import (
	"math"
	"slices"
)

// Tick evaluates the tree once, for the instance represented by state and
// host, returning the status of the root.
//
// Each node on the activation path is ticked exactly once. Nodes that were
// Running resume from their scratch state. When the root completes, the
// tree's RestartPolicy applies.
//
// Tick panics if state was not created by this tree.
func (t *Tree[C]) Tick(state *State, host C) Status {
	t.checkState(state)
	state.path = state.path[:0]
	state.tick++

	if state.latched != 0 {
		return state.latched
	}

	status := t.tick(0, state, host)
	if status.IsTerminal() {
		t.logger.Debug("behavior: tree completed",
			"status", status,
			"tick", state.tick)
		switch t.restart {
		case HoldOnTerminal:
			state.latched = status
		default:
			state.clearSlots()
		}
	}
	return status
}

// Reset abandons any Running nodes, invoking Aborter and Hooks.OnExit
// callbacks deepest first, then clears state. It models an external
// interruption of the agent: the next Tick starts from scratch.
func (t *Tree[C]) Reset(state *State, host C) {
	t.checkState(state)
	if state.slots[0].active {
		t.abort(0, state, host)
	}
	state.Clear()
}

func (t *Tree[C]) tick(id NodeID, state *State, host C) Status {
	n := &t.nodes[id]
	slot := &state.slots[id]
	state.path = append(state.path, id)

	if !slot.active {
		if n.hooks != nil && n.hooks.OnEnter != nil {
			n.hooks.OnEnter(host)
		}
		if n.starter != nil {
			n.starter.Start(host, slot)
		}
	}
	slot.ticks++

	var status Status
	switch n.kind {
	case KindLeaf:
		status = n.task.Tick(host, slot)
		if !status.Valid() {
			t.logger.Warn("behavior: leaf returned invalid status",
				"node", int(id),
				"name", n.name,
				"status", status)
			status = Failure
		}

	case KindCheck:
		status = checkStatus(n.cond.Check(host))

	case KindSequence, KindScoredSequence:
		status = t.tickOrdered(n, slot, state, host, Success)

	case KindSelector, KindScoredSelector:
		status = t.tickOrdered(n, slot, state, host, Failure)

	case KindForcedSequence, KindScoredForcedSequence:
		status = t.tickForcedSequence(n, slot, state, host)

	case KindForcedSelector:
		status = t.tickForcedSelector(n, slot, state, host)

	case KindParallel:
		status = t.tickParallel(n, slot, state, host)

	default:
		status = t.tickDecorator(n, slot, state, host)
	}

	if status == Running {
		slot.active = true
		return Running
	}
	t.finish(id, status, state, host)
	return status
}

// finish ends the activation of a node that returned a terminal status.
func (t *Tree[C]) finish(id NodeID, status Status, state *State, host C) {
	n := &t.nodes[id]
	for _, child := range n.children {
		if state.slots[child].active {
			t.abort(child, state, host)
		}
	}
	if h := n.hooks; h != nil {
		if status == Success && h.OnSuccess != nil {
			h.OnSuccess(host)
		}
		if status == Failure && h.OnFailure != nil {
			h.OnFailure(host)
		}
		if h.OnExit != nil {
			h.OnExit(host)
		}
	}
	state.slots[id].reset()
}

// abort abandons a Running node and its active descendants.
func (t *Tree[C]) abort(id NodeID, state *State, host C) {
	n := &t.nodes[id]
	for _, child := range n.children {
		if state.slots[child].active {
			t.abort(child, state, host)
		}
	}
	slot := &state.slots[id]
	if n.aborter != nil {
		n.aborter.Abort(host, slot)
	}
	if n.hooks != nil && n.hooks.OnExit != nil {
		n.hooks.OnExit(host)
	}
	slot.reset()
}

// tickOrdered implements sequence (cont=Success) and selector (cont=Failure)
// semantics, including the score ordered variants.
func (t *Tree[C]) tickOrdered(n *node[C], slot *Slot, state *State, host C, cont Status) Status {
	if n.scorers != nil && len(slot.order) == 0 {
		slot.order = scoreOrder(n.scorers, host, slot.order)
	}
	for slot.index < len(n.children) {
		k := slot.index
		if n.scorers != nil {
			k = slot.order[k]
		}
		status := t.tick(n.children[k], state, host)
		if status != cont {
			return status
		}
		slot.index++
	}
	return cont
}

func (t *Tree[C]) tickForcedSequence(n *node[C], slot *Slot, state *State, host C) Status {
	if n.scorers != nil && len(slot.order) == 0 {
		slot.order = scoreOrder(n.scorers, host, slot.order)
	}
	for slot.index < len(n.children) {
		k := slot.index
		if n.scorers != nil {
			k = slot.order[k]
		}
		status := t.tick(n.children[k], state, host)
		if status == Running {
			return Running
		}
		slot.last = status
		slot.index++
	}
	return slot.last
}

func (t *Tree[C]) tickForcedSelector(n *node[C], slot *Slot, state *State, host C) Status {
	best := maxScore(n.scorers, host)
	if prev := n.children[slot.index]; slot.index != best && state.slots[prev].active {
		t.abort(prev, state, host)
	}
	slot.index = best
	return t.tick(n.children[best], state, host)
}

func (t *Tree[C]) tickParallel(n *node[C], slot *Slot, state *State, host C) Status {
	if len(slot.results) != len(n.children) {
		slot.results = resized(slot.results, len(n.children))
	}
	var succeeded, failed int
	for k, child := range n.children {
		if slot.results[k] == 0 {
			if status := t.tick(child, state, host); status.IsTerminal() {
				slot.results[k] = status
			}
		}
		switch slot.results[k] {
		case Success:
			succeeded++
		case Failure:
			failed++
		}
	}
	switch {
	case succeeded >= n.success:
		return Success
	case failed >= n.failure:
		return Failure
	case succeeded+failed == len(n.children):
		// every child finished without meeting either threshold
		return Failure
	default:
		return Running
	}
}

func (t *Tree[C]) tickDecorator(n *node[C], slot *Slot, state *State, host C) Status {
	child := n.children[0]

	switch n.kind {
	case KindInverter:
		return t.tick(child, state, host).invert()

	case KindForceResult:
		if t.tick(child, state, host) == Running {
			return Running
		}
		return n.result

	case KindGate:
		if !slot.active && !n.cond.Check(host) {
			return Failure
		}
		return t.tick(child, state, host)

	case KindGuard:
		if !n.cond.Check(host) {
			return Failure
		}
		return t.tick(child, state, host)

	case KindRepeatUntil:
		status := t.tick(child, state, host)
		if status == n.result {
			return status
		}
		return Running

	case KindRepeat:
		status := t.tick(child, state, host)
		if status == Running {
			return Running
		}
		slot.count++
		if slot.count >= n.count {
			return status
		}
		return Running

	case KindRetry:
		status := t.tick(child, state, host)
		if status != Failure {
			return status
		}
		slot.count++
		if slot.count >= n.count {
			return Failure
		}
		return Running

	case KindWhile:
		if !state.slots[child].active && !n.cond.Check(host) {
			if slot.last == 0 {
				return Failure
			}
			return slot.last
		}
		status := t.tick(child, state, host)
		if status == Running {
			return Running
		}
		slot.last = status
		return Running

	case KindTimeLimit:
		status := t.tick(child, state, host)
		if status == Running && slot.ticks >= n.count {
			return Failure
		}
		return status

	default:
		panic("behavior: unexpected node kind " + n.kind.String())
	}
}

func checkStatus(ok bool) Status {
	if ok {
		return Success
	}
	return Failure
}

func score[C any](scorer Scorer[C], host C) float64 {
	v := scorer.Score(host)
	if math.IsNaN(v) {
		return math.Inf(-1)
	}
	return v
}

// maxScore returns the index of the highest scoring child, preferring the
// lowest index on ties.
func maxScore[C any](scorers []Scorer[C], host C) int {
	best, bestScore := 0, math.Inf(-1)
	for i, scorer := range scorers {
		if v := score(scorer, host); v > bestScore {
			best, bestScore = i, v
		}
	}
	return best
}

// scoreOrder returns child indices sorted by score descending, preferring
// the lowest index on ties.
func scoreOrder[C any](scorers []Scorer[C], host C, buf []int) []int {
	scores := make([]float64, len(scorers))
	buf = resized(buf, len(scorers))
	for i, scorer := range scorers {
		scores[i] = score(scorer, host)
		buf[i] = i
	}
	slices.SortStableFunc(buf, func(a, b int) int {
		switch {
		case scores[a] > scores[b]:
			return -1
		case scores[a] < scores[b]:
			return 1
		default:
			return 0
		}
	})
	return buf
}
