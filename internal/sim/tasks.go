package sim

import (
	"log/slog"
	"math"

	"github.com/joeycumines/go-tickbt/behavior"
)

// Wander walks along a random heading for a random number of ticks, then
// succeeds.
type Wander struct {
	Speed    float64
	MinTicks int
	MaxTicks int
	Cost     float64
}

type wandering struct {
	heading Vec
	ticks   int
}

func (w Wander) Start(a *Agent, slot *behavior.Slot) {
	slot.SetData(&wandering{
		heading: Heading(a.rand.Float64() * 2 * math.Pi),
		ticks:   w.MinTicks + a.rand.IntN(max(w.MaxTicks-w.MinTicks, 0)+1),
	})
}

func (w Wander) Tick(a *Agent, slot *behavior.Slot) behavior.Status {
	st := slot.Data().(*wandering)
	a.setMode("wander")
	a.move(st.heading.Scale(w.Speed))
	a.spend(w.Cost)
	if slot.Ticks() >= st.ticks {
		return behavior.Success
	}
	return behavior.Running
}

// Near waits until the player is within Range.
type Near struct {
	Range float64
}

func (n Near) Tick(a *Agent, _ *behavior.Slot) behavior.Status {
	if a.Distance() <= n.Range {
		return behavior.Success
	}
	a.setMode("watch")
	return behavior.Running
}

// Follow moves towards the player. It succeeds once within CatchRadius, and
// fails if the player escapes beyond Range.
type Follow struct {
	Range       float64
	CatchRadius float64
	Speed       float64
	Cost        float64
	Logger      *slog.Logger
}

func (f Follow) Tick(a *Agent, _ *behavior.Slot) behavior.Status {
	d := a.Distance()
	if d > f.Range {
		return behavior.Failure
	}
	a.setMode("follow")
	if d > f.CatchRadius {
		a.move(a.world.Player.Sub(a.Pos).Norm().Scale(min(f.Speed, d)))
		a.spend(f.Cost)
	}
	if a.Distance() <= f.CatchRadius {
		return behavior.Success
	}
	return behavior.Running
}

func (f Follow) Abort(a *Agent, slot *behavior.Slot) {
	if f.Logger != nil {
		f.Logger.Debug("sim: gave up following",
			"agent", a.Name,
			"ticks", slot.Ticks(),
			"distance", a.Distance())
	}
}

// Rest recovers Rate energy per tick, succeeding once fully rested.
type Rest struct {
	Rate float64
}

func (r Rest) Tick(a *Agent, _ *behavior.Slot) behavior.Status {
	a.setMode("rest")
	a.spend(-r.Rate)
	if a.Energy() >= MaxEnergy {
		return behavior.Success
	}
	return behavior.Running
}

var (
	_ behavior.Starter[*Agent] = Wander{}
	_ behavior.Aborter[*Agent] = Follow{}
)
