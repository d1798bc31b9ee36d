package sim

import (
	"math"
	"math/rand/v2"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-tickbt/behavior/blackboard"
)

// Blackboard keys maintained for each agent.
const (
	KeyDistance    = "distance"
	KeyRange       = "sight"
	KeyCatchRadius = "catchRadius"
	KeyEnergy      = "energy"
	KeyCatches     = "catches"
	KeyMode        = "mode"
)

// MaxEnergy is the energy of a fully rested agent.
const MaxEnergy = 100.0

// World is a square field holding a wandering player and the agents chasing
// it. The player only moves between steps, so agents may be ticked
// concurrently.
type World struct {
	Size   float64
	Player Vec
	Agents []*Agent

	speed   float64
	heading float64
	rand    *rand.Rand
}

func newWorld(size, playerSpeed float64, seed int64) *World {
	r := rand.New(rand.NewPCG(uint64(seed), 0))
	return &World{
		Size:    size,
		Player:  Vec{size / 2, size / 2},
		speed:   playerSpeed,
		heading: r.Float64() * 2 * math.Pi,
		rand:    r,
	}
}

// advance moves the player along a drifting heading, bouncing off the edges.
func (w *World) advance() {
	w.heading += (w.rand.Float64() - 0.5) * math.Pi / 4
	next := w.Player.Add(Heading(w.heading).Scale(w.speed))
	if next.X < 0 || next.X > w.Size || next.Y < 0 || next.Y > w.Size {
		w.heading += math.Pi
		next = next.Clamp(w.Size)
	}
	w.Player = next
}

// Agent is the host context of the chase trees. Each agent owns its
// position, random source and blackboard, and only reads the player.
type Agent struct {
	Name  string
	Pos   Vec
	Board *blackboard.Blackboard

	// Completions counts terminal results of the root.
	Completions int

	world *World
	rand  *rand.Rand
}

func newAgent(w *World, name string, pos Vec, seed int64, id int, rangeDist, catchRadius float64) *Agent {
	a := &Agent{
		Name:  name,
		Pos:   pos,
		world: w,
		rand:  rand.New(rand.NewPCG(uint64(seed), uint64(id)+1)),
		Board: blackboard.New(map[string]any{
			KeyRange:       rangeDist,
			KeyCatchRadius: catchRadius,
			KeyEnergy:      MaxEnergy,
			KeyCatches:     0,
			KeyMode:        "idle",
		}),
	}
	a.Sense()
	return a
}

// Distance returns the distance to the player.
func (a *Agent) Distance() float64 { return a.Pos.Dist(a.world.Player) }

// Sense refreshes the perceived distance to the player.
func (a *Agent) Sense() { a.Board.Set(KeyDistance, a.Distance()) }

// Energy returns the current energy.
func (a *Agent) Energy() float64 {
	v, _ := a.Board.Float64(KeyEnergy)
	return v
}

// Catches returns the number of times the agent caught the player.
func (a *Agent) Catches() int {
	v, _ := a.Board.Int(KeyCatches)
	return v
}

// Mode returns the activity the agent last performed.
func (a *Agent) Mode() string {
	v, _ := a.Board.String(KeyMode)
	return v
}

func (a *Agent) setMode(mode string) { a.Board.Set(KeyMode, mode) }

// spend adjusts energy by -cost, clamped to [0, MaxEnergy].
func (a *Agent) spend(cost float64) {
	a.Board.Set(KeyEnergy, min(max(a.Energy()-cost, 0), MaxEnergy))
}

// move displaces the agent, staying within the world, then senses.
func (a *Agent) move(delta Vec) {
	a.Pos = a.Pos.Add(delta).Clamp(a.world.Size)
	a.Sense()
}

// ExposeToJS exposes the blackboard to scripts.
func (a *Agent) ExposeToJS(vm *goja.Runtime) goja.Value { return a.Board.ExposeToJS(vm) }
