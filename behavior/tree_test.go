package behavior

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_errors(t *testing.T) {
	t.Parallel()

	a, b := leaf("a", Success), leaf("b", Success)
	one := Constant[*host](1)

	cyclic := Sequence(leaf("x", Success), leaf("y", Success))
	cyclic.children[1] = cyclic

	selfDecorated := Inverter(leaf("z", Success))
	selfDecorated.children[0] = selfDecorated

	for _, tc := range []struct {
		name     string
		root     *Spec[*host]
		opts     []Option
		err      error
		contains string
	}{
		{name: "nil root", root: nil, err: ErrNilSpec},
		{name: "nil child", root: Sequence(a, nil), err: ErrNilSpec, contains: "root/1"},
		{name: "named path", root: Sequence(a, Inverter[*host](nil)).Named("top"), err: ErrNilSpec, contains: "root(top)/1/0"},
		{name: "empty sequence", root: Sequence[*host](), err: ErrTooFewChildren},
		{name: "one child selector", root: Selector(a), err: ErrTooFewChildren},
		{name: "one child parallel", root: ParallelAll(a), err: ErrTooFewChildren},
		{name: "nil task", root: Leaf[*host](nil), err: ErrInvalidArgument},
		{name: "nil task func", root: LeafFunc[*host](nil), err: ErrInvalidArgument},
		{name: "nil condition", root: Check[*host](nil), err: ErrInvalidArgument},
		{name: "nil scorer", root: ForcedSelector(Scored(nil, a), Scored(one, b)), err: ErrInvalidArgument},
		{name: "success threshold too high", root: Parallel(ParallelPolicy{SuccessThreshold: 3}, a, b), err: ErrInvalidPolicy},
		{name: "negative failure threshold", root: Parallel(ParallelPolicy{FailureThreshold: -1}, a, b), err: ErrInvalidPolicy},
		{name: "nil gate condition", root: Gate(nil, a), err: ErrInvalidArgument},
		{name: "nil guard condition", root: Guard(nil, a), err: ErrInvalidArgument},
		{name: "nil while condition", root: While(nil, a), err: ErrInvalidArgument},
		{name: "running forced result", root: ForceResult(Running, a), err: ErrInvalidArgument},
		{name: "zero repeat until", root: RepeatUntil(0, a), err: ErrInvalidArgument},
		{name: "zero repeat", root: Repeat(0, a), err: ErrInvalidArgument},
		{name: "negative retry", root: Retry(-1, a), err: ErrInvalidArgument},
		{name: "zero time limit", root: TimeLimit(0, a), err: ErrInvalidArgument},
		{name: "nil decorated", root: Inverter[*host](nil), err: ErrNilSpec},
		{name: "cycle", root: cyclic, err: ErrCycle},
		{name: "self decorated", root: selfDecorated, err: ErrCycle},
		{name: "unknown restart policy", root: a, opts: []Option{WithRestartPolicy(9)}, err: ErrInvalidArgument},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tree, err := Compile(tc.root, tc.opts...)
			require.ErrorIs(t, err, tc.err)
			require.Nil(t, tree)
			if tc.contains != "" {
				require.ErrorContains(t, err, tc.contains)
			}
		})
	}
}

func TestCompile_sharedSubtree(t *testing.T) {
	t.Parallel()

	r := &runner{name: "r", n: 1, result: Success}
	shared := Leaf[*host](r)
	tree := mustCompile(t, Sequence(shared, shared))
	require.Equal(t, 3, tree.Len())

	h := newHost()
	state := tree.NewState()

	status, calls := tickCalls(tree, state, h)
	require.Equal(t, Running, status)
	require.Equal(t, "r", calls)

	// the second occurrence has its own slot, so starts from scratch
	status, calls = tickCalls(tree, state, h)
	require.Equal(t, Running, status)
	require.Equal(t, "r,r", calls)
	require.True(t, state.Active(2))
	require.False(t, state.Active(1))

	status, _ = tickCalls(tree, state, h)
	require.Equal(t, Success, status)
}

func TestTree_nodeInfo(t *testing.T) {
	t.Parallel()

	tree := mustCompile(t, Sequence(leaf("a", Success), Inverter(leaf("b", Running))).Named("seq"))
	require.Equal(t, 4, tree.Len())
	require.Equal(t, RestartOnTerminal, tree.RestartPolicy())

	root, ok := tree.Node(0)
	require.True(t, ok)
	assert.Equal(t, NodeInfo{ID: 0, Kind: KindSequence, Name: "seq", Parent: -1, Children: []NodeID{1, 2}}, root)

	b, ok := tree.Node(3)
	require.True(t, ok)
	assert.Equal(t, NodeInfo{ID: 3, Kind: KindLeaf, Name: "b", Parent: 2}, b)

	_, ok = tree.Node(4)
	assert.False(t, ok)
	_, ok = tree.Node(-1)
	assert.False(t, ok)
}

func TestTree_String(t *testing.T) {
	t.Parallel()

	tree := mustCompile(t, Sequence(leaf("a", Success), Inverter(leaf("b", Running))).Named("seq"))
	assert.Equal(t, "sequence#0 \"seq\"\n  leaf#1 \"a\"\n  inverter#2\n    leaf#3 \"b\"\n", tree.String())

	state := tree.NewState()
	require.Equal(t, Running, tree.Tick(state, newHost()))
	assert.Equal(t, "sequence#0 \"seq\" *\n  leaf#1 \"a\"\n  inverter#2 *\n    leaf#3 \"b\" *\n", tree.Describe(state))
}

func TestTree_foreignStatePanics(t *testing.T) {
	t.Parallel()

	tree := mustCompile(t, leaf("a", Success))
	other := mustCompile(t, Sequence(leaf("a", Success), leaf("b", Success)))
	assert.Panics(t, func() { tree.Tick(other.NewState(), newHost()) })
	assert.Panics(t, func() { tree.Tick(nil, newHost()) })
	assert.Panics(t, func() { tree.Reset(other.NewState(), newHost()) })
}

func TestParseRestartPolicy(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]RestartPolicy{
		"":         RestartOnTerminal,
		"restart":  RestartOnTerminal,
		" Hold ":   HoldOnTerminal,
		"HOLD":     HoldOnTerminal,
		"RESTART ": RestartOnTerminal,
	} {
		got, err := ParseRestartPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		if in == "HOLD" {
			assert.Equal(t, "hold", got.String())
		}
	}

	_, err := ParseRestartPolicy("loop")
	require.ErrorIs(t, err, ErrInvalidArgument)
}
