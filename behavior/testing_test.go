package behavior

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// host is the context type used by most tests in this package.
type host struct {
	calls  []string
	events []string
	values map[string]float64
	flags  map[string]bool
}

func newHost() *host {
	return &host{values: make(map[string]float64), flags: make(map[string]bool)}
}

func (h *host) flag(name string) Condition[*host] {
	return ConditionFunc[*host](func(h *host) bool { return h.flags[name] })
}

func (h *host) value(name string) Scorer[*host] {
	return ScorerFunc[*host](func(h *host) float64 { return h.values[name] })
}

// scripted is a leaf that returns each status of script in turn, one per
// activation tick, repeating the final status once exhausted. The position
// in the script is tracked across activations.
type scripted struct {
	name   string
	script []Status
	pos    int
}

func (s *scripted) Tick(h *host, _ *Slot) Status {
	h.calls = append(h.calls, s.name)
	status := s.script[min(s.pos, len(s.script)-1)]
	s.pos++
	return status
}

func leaf(name string, script ...Status) *Spec[*host] {
	return Leaf[*host](&scripted{name: name, script: script}).Named(name)
}

// runner is a leaf that returns Running for n ticks of each activation, then
// result. It tracks its progress in the slot.
type runner struct {
	name    string
	n       int
	result  Status
	starts  int
	aborts  int
	lastRun int
}

func (r *runner) Start(*host, *Slot) { r.starts++ }

func (r *runner) Abort(h *host, slot *Slot) {
	r.aborts++
	h.events = append(h.events, "abort:"+r.name)
}

func (r *runner) Tick(h *host, slot *Slot) Status {
	h.calls = append(h.calls, r.name)
	done, _ := slot.Data().(int)
	r.lastRun = done
	if done < r.n {
		slot.SetData(done + 1)
		return Running
	}
	return r.result
}

func recordHooks(name string) Hooks[*host] {
	return Hooks[*host]{
		OnEnter:   func(h *host) { h.events = append(h.events, "enter:"+name) },
		OnSuccess: func(h *host) { h.events = append(h.events, "success:"+name) },
		OnFailure: func(h *host) { h.events = append(h.events, "failure:"+name) },
		OnExit:    func(h *host) { h.events = append(h.events, "exit:"+name) },
	}
}

func mustCompile(t *testing.T, root *Spec[*host], opts ...Option) *Tree[*host] {
	t.Helper()
	tree, err := Compile(root, opts...)
	require.NoError(t, err)
	return tree
}

// tickCalls ticks once, returning the status and the leaves that were called.
func tickCalls(tree *Tree[*host], state *State, h *host) (Status, string) {
	h.calls = h.calls[:0]
	status := tree.Tick(state, h)
	return status, strings.Join(h.calls, ",")
}
