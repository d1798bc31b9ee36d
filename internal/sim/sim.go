// Package sim is a small chase simulation hosting behavior trees: agents
// notice a wandering player, follow it, and tag it, resting when tired.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	bt "github.com/joeycumines/go-behaviortree"
	"github.com/joeycumines/go-tickbt/behavior"
	"github.com/joeycumines/go-tickbt/behavior/driver"
	"github.com/joeycumines/go-tickbt/behavior/jsleaf"
	"go.opentelemetry.io/otel/trace"
)

// ErrInvalidOptions is returned by New for unusable options.
var ErrInvalidOptions = errors.New("sim: invalid options")

// Options configure New.
type Options struct {
	Agents    int
	Ticks     int // 0 runs until cancelled
	Seed      int64
	Range     float64
	WorldSize float64
	Strategy  string
	Workers   int
	Restart   behavior.RestartPolicy
	Logger    *slog.Logger
	// TracerProvider is passed to the driver, see driver.WithTracerProvider.
	TracerProvider trace.TracerProvider
}

// DefaultOptions returns options for a small, deterministic run.
func DefaultOptions() Options {
	return Options{
		Agents:    8,
		Ticks:     200,
		Seed:      1,
		Range:     6,
		WorldSize: 40,
		Strategy:  StrategyScored,
		Workers:   1,
	}
}

// Sim owns the world, a single compiled tree, and one driver instance per
// agent.
type Sim struct {
	opts   Options
	world  *World
	tree   *behavior.Tree[*Agent]
	driver *driver.Driver[*Agent]
	logger *slog.Logger
}

// New builds a world of opts.Agents agents, scattered by opts.Seed.
func New(opts Options) (*Sim, error) {
	switch {
	case opts.Agents < 1:
		return nil, fmt.Errorf("%w: agents must be at least 1, got %d", ErrInvalidOptions, opts.Agents)
	case opts.Ticks < 0:
		return nil, fmt.Errorf("%w: ticks cannot be negative, got %d", ErrInvalidOptions, opts.Ticks)
	case opts.Range <= 0:
		return nil, fmt.Errorf("%w: range must be positive, got %v", ErrInvalidOptions, opts.Range)
	case !validStrategy(opts.Strategy):
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidOptions, opts.Strategy)
	}
	if opts.WorldSize <= 0 {
		opts.WorldSize = DefaultOptions().WorldSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rt, err := jsleaf.New(jsleaf.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	tree, err := BuildTree(opts.Strategy, DefaultTuning(opts.Range), rt, opts.Restart, logger)
	if err != nil {
		return nil, err
	}

	s := &Sim{
		opts:   opts,
		world:  newWorld(opts.WorldSize, 0.8, opts.Seed),
		tree:   tree,
		logger: logger,
	}
	driverOpts := []driver.Option[*Agent]{
		driver.WithWorkers[*Agent](opts.Workers),
		driver.WithLogger[*Agent](logger),
		driver.WithObserver(s.observe),
	}
	if opts.TracerProvider != nil {
		driverOpts = append(driverOpts, driver.WithTracerProvider[*Agent](opts.TracerProvider))
	}
	s.driver = driver.New(driverOpts...)

	for i := range opts.Agents {
		pos := Vec{
			X: s.world.rand.Float64() * opts.WorldSize,
			Y: s.world.rand.Float64() * opts.WorldSize,
		}
		a := newAgent(s.world, fmt.Sprintf("agent-%02d", i+1), pos, opts.Seed, i, opts.Range, DefaultTuning(opts.Range).CatchRadius)
		s.world.Agents = append(s.world.Agents, a)
		s.driver.Attach(tree, a)
	}

	logger.Debug("sim: created",
		"agents", opts.Agents,
		"strategy", opts.Strategy,
		"nodes", tree.Len(),
		"restart", opts.Restart)
	return s, nil
}

// observe runs on the goroutine ticking x, and only touches its agent.
func (s *Sim) observe(x *driver.Instance[*Agent], status behavior.Status) {
	if status.IsTerminal() {
		x.Host().Completions++
	}
}

// World returns the simulated world.
func (s *Sim) World() *World { return s.world }

// Tree returns the tree shared by every agent.
func (s *Sim) Tree() *behavior.Tree[*Agent] { return s.tree }

// Driver returns the driver ticking the agents.
func (s *Sim) Driver() *driver.Driver[*Agent] { return s.driver }

// Steps returns the number of completed steps.
func (s *Sim) Steps() int { return int(s.driver.Steps()) }

// Done returns true once the configured number of ticks has been reached.
func (s *Sim) Done() bool { return s.opts.Ticks > 0 && s.Steps() >= s.opts.Ticks }

// Step moves the player, refreshes every agent's senses, then ticks every
// agent once.
func (s *Sim) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.advance()
	return s.driver.Step(ctx)
}

func (s *Sim) advance() {
	s.world.advance()
	for _, a := range s.world.Agents {
		a.Sense()
	}
}

// Node returns a go-behaviortree node performing one step per tick. It
// returns bt.Running, or bt.Failure once Done.
func (s *Sim) Node(ctx context.Context) bt.Node {
	return bt.New(bt.Sequence,
		bt.New(func([]bt.Node) (bt.Status, error) {
			if s.Done() {
				return bt.Failure, nil
			}
			s.advance()
			return bt.Success, nil
		}),
		s.driver.Node(ctx),
	)
}

// Run steps as fast as possible until Done, or ctx is cancelled.
func (s *Sim) Run(ctx context.Context) (Report, error) {
	for !s.Done() {
		if err := s.Step(ctx); err != nil {
			return s.Report(), err
		}
	}
	return s.Report(), nil
}

// Start returns a ticker stepping every interval, which stops once Done,
// with a nil error.
func (s *Sim) Start(ctx context.Context, interval time.Duration) bt.Ticker {
	return bt.NewTickerStopOnFailure(ctx, interval, s.Node(ctx))
}

// RunRealtime steps every interval until Done, or ctx is cancelled.
func (s *Sim) RunRealtime(ctx context.Context, interval time.Duration) (Report, error) {
	ticker := s.Start(ctx, interval)
	<-ticker.Done()
	if err := ticker.Err(); err != nil {
		return s.Report(), err
	}
	if !s.Done() {
		return s.Report(), ctx.Err()
	}
	return s.Report(), nil
}
