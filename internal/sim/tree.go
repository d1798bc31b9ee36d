package sim

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/joeycumines/go-tickbt/behavior"
	"github.com/joeycumines/go-tickbt/behavior/exprcond"
	"github.com/joeycumines/go-tickbt/behavior/jsleaf"
)

// Strategies accepted by BuildTree.
const (
	// StrategyClassic waits for the player to come near, then follows it
	// until it escapes, forever.
	StrategyClassic = "classic"
	// StrategyScored picks between resting, chasing and wandering by score,
	// every tick.
	StrategyScored = "scored"
)

// Strategies lists every strategy, the first being the default.
var Strategies = []string{StrategyScored, StrategyClassic}

// Script is the JavaScript defining the attack leaf, its abort handler, and
// the canAttack condition.
const Script = `
function canAttack(agent) {
	return agent.get("distance") <= agent.get("catchRadius") && agent.get("energy") >= 10;
}

function attack(agent, slot) {
	if (slot.ticks < 2) {
		slot.set("windup");
		return bt.running;
	}
	agent.set("mode", "attack");
	agent.set("catches", agent.get("catches") + 1);
	agent.set("energy", agent.get("energy") - 10);
	return bt.success;
}

function abortAttack(agent, slot) {
	agent.set("mode", "recover");
}
`

// Tuning holds the parameters shared by every agent's tree.
type Tuning struct {
	Range       float64
	CatchRadius float64
	ChaseTicks  int
	FollowSpeed float64
	WanderSpeed float64
	RestRate    float64
}

// DefaultTuning returns the tuning for the given noticing range.
func DefaultTuning(rangeDist float64) Tuning {
	return Tuning{
		Range:       rangeDist,
		CatchRadius: 1,
		ChaseTicks:  40,
		FollowSpeed: 1,
		WanderSpeed: 0.5,
		RestRate:    5,
	}
}

// BuildTree compiles the named strategy. Scripts are loaded into rt, which
// must be non-nil for StrategyScored.
func BuildTree(strategy string, tuning Tuning, rt *jsleaf.Runtime, restart behavior.RestartPolicy, logger *slog.Logger) (*behavior.Tree[*Agent], error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		root *behavior.Spec[*Agent]
		err  error
	)
	switch strings.ToLower(strategy) {
	case "", StrategyScored:
		root, err = scoredTree(tuning, rt, logger)
	case StrategyClassic:
		root = classicTree(tuning, logger)
	default:
		return nil, fmt.Errorf("sim: unknown strategy %q, expected one of %s", strategy, strings.Join(Strategies, ", "))
	}
	if err != nil {
		return nil, err
	}
	return behavior.Compile(root,
		behavior.WithRestartPolicy(restart),
		behavior.WithLogger(logger))
}

func follow(tuning Tuning, logger *slog.Logger) *behavior.Spec[*Agent] {
	return behavior.Leaf[*Agent](Follow{
		Range:       tuning.Range,
		CatchRadius: tuning.CatchRadius,
		Speed:       tuning.FollowSpeed,
		Cost:        2,
		Logger:      logger,
	}).Named("follow").WithHooks(behavior.Hooks[*Agent]{
		OnEnter: func(a *Agent) {
			logger.Info("sim: beginning to follow", "agent", a.Name, "distance", a.Distance())
		},
	})
}

func classicTree(tuning Tuning, logger *slog.Logger) *behavior.Spec[*Agent] {
	return behavior.While(
		behavior.ConditionFunc[*Agent](func(*Agent) bool { return true }),
		behavior.Sequence(
			behavior.Leaf[*Agent](Near{Range: tuning.Range}).Named("near"),
			follow(tuning, logger),
		),
	).Named("loop")
}

func scoredTree(tuning Tuning, rt *jsleaf.Runtime, logger *slog.Logger) (*behavior.Spec[*Agent], error) {
	if rt == nil {
		return nil, fmt.Errorf("sim: %s strategy requires a script runtime", StrategyScored)
	}
	if err := rt.LoadScript("chase.js", Script); err != nil {
		return nil, err
	}
	attack, err := jsleaf.NewLeaf[*Agent](rt, "attack", nil)
	if err != nil {
		return nil, err
	}
	if attack, err = attack.WithAbort("abortAttack"); err != nil {
		return nil, err
	}
	canAttack, err := jsleaf.NewCondition[*Agent](rt, "canAttack", nil)
	if err != nil {
		return nil, err
	}

	opts := []exprcond.Option{exprcond.WithLogger(logger)}
	env := exprcond.Env[*Agent](func(a *Agent) any { return a.Board.Env() })
	restScore, err := exprcond.NewScorer(`energy < 20 ? 100.0 : (mode == "rest" && energy < 90 ? 60.0 : 0.0)`, env, opts...)
	if err != nil {
		return nil, err
	}
	chaseScore, err := exprcond.NewScorer(`distance <= sight ? 50.0 + (sight - distance) : 0.0`, env, opts...)
	if err != nil {
		return nil, err
	}
	hasEnergy, err := exprcond.NewCondition(`energy > 5`, env, opts...)
	if err != nil {
		return nil, err
	}

	return behavior.ForcedSelector(
		behavior.Scored[*Agent](restScore, behavior.Leaf[*Agent](Rest{Rate: tuning.RestRate}).Named("rest")),
		behavior.Scored[*Agent](chaseScore, behavior.Sequence(
			behavior.Guard[*Agent](hasEnergy, behavior.TimeLimit(tuning.ChaseTicks, follow(tuning, logger))),
			behavior.Gate[*Agent](canAttack, attack.Spec()),
		).Named("chase")),
		behavior.Scored(behavior.Constant[*Agent](1), behavior.Leaf[*Agent](Wander{
			Speed:    tuning.WanderSpeed,
			MinTicks: 3,
			MaxTicks: 8,
			Cost:     0.5,
		}).Named("wander")),
	).Named("agent"), nil
}

// validStrategy reports whether s names a strategy.
func validStrategy(s string) bool {
	return s == "" || slices.Contains(Strategies, strings.ToLower(s))
}
