package exprcond

import (
	"bytes"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/joeycumines/go-tickbt/behavior"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type agent struct {
	Health float64
	Ammo   int
	Seen   bool
}

func agentEnv(a *agent) any {
	return map[string]any{
		"health": a.Health,
		"ammo":   a.Ammo,
		"seen":   a.Seen,
	}
}

func quietLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestCondition_Check(t *testing.T) {
	t.Parallel()

	cond, err := NewCondition("seen && health > 0.5", agentEnv, WithCache(NewCache(4)))
	require.NoError(t, err)
	assert.Equal(t, "seen && health > 0.5", cond.String())

	assert.False(t, cond.Check(&agent{Health: 1}))
	assert.True(t, cond.Check(&agent{Health: 1, Seen: true}))
	assert.False(t, cond.Check(&agent{Health: 0.2, Seen: true}))
	assert.NoError(t, cond.LastError())
}

func TestCondition_structEnv(t *testing.T) {
	t.Parallel()

	cond := MustCondition("Ammo >= 3", func(a *agent) any { return a }, WithCache(NewCache(4)))
	assert.True(t, cond.Check(&agent{Ammo: 3}))
	assert.False(t, cond.Check(&agent{Ammo: 2}))
}

func TestCondition_compileErrors(t *testing.T) {
	t.Parallel()

	_, err := NewCondition[*agent]("", agentEnv)
	require.ErrorIs(t, err, ErrEmptyExpression)

	_, err = NewCondition("health >", agentEnv, WithCache(NewCache(4)))
	require.ErrorContains(t, err, `compile "health >"`)

	// a string literal is never a bool
	_, err = NewCondition(`"yes"`, agentEnv, WithCache(NewCache(4)))
	require.Error(t, err)

	assert.Panics(t, func() { MustCondition("(", agentEnv, WithCache(NewCache(4))) })
}

func TestCondition_runtimeErrorIsFalse(t *testing.T) {
	t.Parallel()

	logger, buf := quietLogger()
	cond, err := NewCondition("missing > 1", agentEnv, WithCache(NewCache(4)), WithLogger(logger))
	require.NoError(t, err)

	assert.False(t, cond.Check(&agent{}))
	require.Error(t, cond.LastError())
	assert.Contains(t, buf.String(), "condition evaluation failed")
}

func TestScorer_Score(t *testing.T) {
	t.Parallel()

	cache := NewCache(4)
	scorer, err := NewScorer("health * 10 + ammo", agentEnv, WithCache(cache))
	require.NoError(t, err)
	assert.InDelta(t, 7.0, scorer.Score(&agent{Health: 0.5, Ammo: 2}), 1e-9)

	ints := MustScorer("ammo * 2", agentEnv, WithCache(cache))
	assert.InDelta(t, 8.0, ints.Score(&agent{Ammo: 4}), 1e-9)
	assert.NoError(t, ints.LastError())
}

func TestScorer_errorIsNegativeInfinity(t *testing.T) {
	t.Parallel()

	logger, buf := quietLogger()
	scorer, err := NewScorer("missing * 2", agentEnv, WithCache(NewCache(4)), WithLogger(logger))
	require.NoError(t, err)
	assert.True(t, math.IsInf(scorer.Score(&agent{}), -1))
	assert.Error(t, scorer.LastError())
	assert.Contains(t, buf.String(), "scorer evaluation failed")
}

func TestScorer_drivesForcedSelector(t *testing.T) {
	t.Parallel()

	cache := NewCache(8)
	var ran []string
	task := func(name string) *behavior.Spec[*agent] {
		return behavior.LeafFunc(func(*agent, *behavior.Slot) behavior.Status {
			ran = append(ran, name)
			return behavior.Success
		})
	}
	tree, err := behavior.Compile(behavior.ForcedSelector(
		behavior.Scored[*agent](MustScorer("seen ? 10 : 0", agentEnv, WithCache(cache)), task("attack")),
		behavior.Scored[*agent](MustScorer("1 - health", agentEnv, WithCache(cache)), task("heal")),
	))
	require.NoError(t, err)

	state := tree.NewState()
	tree.Tick(state, &agent{Health: 0.25})
	tree.Tick(state, &agent{Health: 0.25, Seen: true})
	assert.Equal(t, []string{"heal", "attack"}, ran)
}

func TestCache_sharesPrograms(t *testing.T) {
	t.Parallel()

	cache := NewCache(4)
	_, err := NewCondition("ammo > 0", agentEnv, WithCache(cache))
	require.NoError(t, err)
	_, err = NewCondition("ammo > 0", agentEnv, WithCache(cache))
	require.NoError(t, err)
	// same source, different result type
	_, err = NewScorer("ammo", agentEnv, WithCache(cache))
	require.NoError(t, err)
	_, err = NewCondition("ammo", agentEnv, WithCache(cache))
	require.NoError(t, err)

	size, hits, misses, ratio := cache.Stats()
	assert.Equal(t, 3, size)
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(3), misses)
	assert.InDelta(t, 0.25, ratio, 1e-9)
	assert.Contains(t, cache.String(), "size=3")
}

func TestCache_evictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	cache := NewCache(2)
	key := func(s string) cacheKey { return cacheKey{kind: kindBool, expression: s} }
	compile := func(s string) {
		_, err := NewCondition(s, agentEnv, WithCache(cache))
		require.NoError(t, err)
	}

	compile("ammo > 1")
	compile("ammo > 2")
	_, ok := cache.get(key("ammo > 1"))
	require.True(t, ok)
	compile("ammo > 3")

	require.Equal(t, 2, cache.Len())
	_, ok = cache.get(key("ammo > 2"))
	assert.False(t, ok)
	_, ok = cache.get(key("ammo > 1"))
	assert.True(t, ok)

	cache.Resize(1)
	assert.Equal(t, 1, cache.Len())
	_, ok = cache.get(key("ammo > 1"))
	assert.True(t, ok)

	cache.Clear()
	assert.Zero(t, cache.Len())
}

func TestCondition_concurrentUse(t *testing.T) {
	t.Parallel()

	cond := MustCondition("ammo % 2 == 0", agentEnv, WithCache(NewCache(4)))
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, i%2 == 0, cond.Check(&agent{Ammo: i}))
		}()
	}
	wg.Wait()
}

func TestSharedCache(t *testing.T) {
	// not parallel, mutates the package level cache
	ClearCache()
	_, err := NewCondition("health > 0", agentEnv)
	require.NoError(t, err)
	require.Equal(t, 1, programs.Len())
	SetCacheSize(DefaultCacheSize)
	ClearCache()
	require.Zero(t, programs.Len())
}
