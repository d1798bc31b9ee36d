// Command tickbt runs the chase simulation, printing a report of every agent
// once done.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"charm.land/lipgloss/v2"
	bt "github.com/joeycumines/go-behaviortree"
	"github.com/joeycumines/go-tickbt/internal/config"
	"github.com/joeycumines/go-tickbt/internal/logging"
	"github.com/joeycumines/go-tickbt/internal/sim"
)

// version is set at build time.
var version = "dev"

const usage = `tickbt - behavior tree chase simulation

Usage: tickbt [command] [options]

Commands:
  run       Run the simulation (default)
  tree      Print the behavior tree of a strategy
  config    Show or change configuration
  version   Print version information
  help      Show this help

Run 'tickbt <command> -h' for command options.
`

// progressInterval is how often a real-time run logs its progress.
const progressInterval = time.Second

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	name := "run"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name, args = args[0], args[1:]
	}
	var err error
	switch name {
	case "run":
		err = runSim(args, stdout, stderr)
	case "tree":
		err = runTree(args, stdout, stderr)
	case "config":
		err = runConfig(args, stdout, stderr)
	case "version":
		_, err = fmt.Fprintf(stdout, "tickbt version %s\n", version)
	case "help":
		_, err = fmt.Fprint(stdout, usage)
	default:
		_, _ = fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command: %s", name)
	}
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

// configFlags are shared by every command reading configuration.
type configFlags struct {
	path    string
	profile string
}

func (f *configFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.path, "config", "", "config file path (default $"+config.EnvConfigPath+" or ~/.tickbt/config)")
	fs.StringVar(&f.profile, "profile", "", "config profile to apply")
}

func (f *configFlags) load() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.path != "" {
		cfg, err = config.LoadFromPath(f.path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if f.profile != "" {
		return cfg.WithProfile(f.profile)
	}
	return cfg, nil
}

func newFlagSet(name, synopsis string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: tickbt %s\n\n", synopsis)
		_, _ = fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}
	return fs
}

func runSim(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("run", "run [options]", stderr)
	var cf configFlags
	cf.register(fs)

	// flags override the config file, and are validated with it
	overrides := make(map[string]string)
	option := func(name, key, help string) {
		fs.Func(name, help+" ("+key+")", func(v string) error {
			overrides[key] = v
			return nil
		})
	}
	option("agents", config.KeySimAgents, "number of agents")
	option("ticks", config.KeySimTicks, "steps to simulate, 0 runs until interrupted")
	option("seed", config.KeySimSeed, "random seed")
	option("range", config.KeySimRange, "distance at which agents notice the player")
	option("strategy", config.KeySimStrategy, "agent behavior tree, scored or classic")
	option("workers", config.KeyTickWorkers, "max agents ticked concurrently")
	option("interval", config.KeyTickInterval, "real-time step interval, 0 steps as fast as possible")
	option("restart", config.KeyTickRestart, "what the root does once complete, restart or hold")
	option("log-level", config.KeyLogLevel, "log level")
	option("log-file", config.KeyLogFile, "JSON log file")
	option("log-per-run", config.KeyLogPerRun, "start with a fresh log file, true or false")
	events := fs.Int("events", 10, "recent events to print, 0 for none")
	describe := fs.String("describe", "", "print the active nodes of the named agent")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	cfg, err := cf.load()
	if err != nil {
		return err
	}
	for key, v := range overrides {
		cfg.SetGlobalOption(key, v)
	}
	settings, err := config.Resolve(cfg)
	if err != nil {
		return err
	}
	// the environment beats the config file, but not the command line
	if v, ok := overrides[config.KeyLogLevel]; ok {
		settings.LogLevel = v
	}
	if v, ok := overrides[config.KeyLogFile]; ok {
		settings.LogFile = v
	}

	recorder := logging.NewRecorder(0)
	logger, closer, err := logging.New(logging.Options{
		Level:     settings.LogLevel,
		File:      settings.LogFile,
		MaxSizeMB: settings.LogMaxSizeMB,
		MaxFiles:  settings.LogMaxFiles,
		PerRun:    settings.LogPerRun,
		Console:   stderr,
		Record:    recorder,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	opts := sim.DefaultOptions()
	opts.Agents = settings.Agents
	opts.Ticks = settings.Ticks
	opts.Seed = settings.Seed
	opts.Range = settings.Range
	opts.Strategy = settings.Strategy
	opts.Workers = settings.Workers
	opts.Restart = settings.Restart
	opts.Logger = logger
	s, err := sim.New(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("tickbt: starting",
		"strategy", opts.Strategy,
		"agents", opts.Agents,
		"ticks", opts.Ticks,
		"interval", settings.TickInterval)

	var report sim.Report
	if settings.TickInterval > 0 {
		report, err = realtime(ctx, s, settings.TickInterval, logger)
	} else {
		report, err = s.Run(ctx)
	}
	// an interrupted run still reports
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("tickbt: finished", "steps", report.Steps, "catches", report.Catches())

	if _, err := lipgloss.Fprintln(stdout, sim.Render(report)); err != nil {
		return err
	}
	if *events > 0 {
		if out := sim.RenderEvents(recorder.Recent(slog.LevelInfo, *events)); out != "" {
			if _, err := lipgloss.Fprintln(stdout, out); err != nil {
				return err
			}
		}
	}
	if *describe != "" {
		return describeAgent(stdout, s, *describe)
	}
	return nil
}

// realtime steps s every interval, alongside a ticker logging progress.
func realtime(ctx context.Context, s *sim.Sim, interval time.Duration, logger *slog.Logger) (sim.Report, error) {
	manager := bt.NewManager()
	defer func() {
		manager.Stop()
		<-manager.Done()
	}()

	ticker := s.Start(ctx, interval)
	if err := manager.Add(ticker); err != nil {
		ticker.Stop()
		return s.Report(), err
	}
	if err := manager.Add(bt.NewTicker(ctx, progressInterval, bt.New(func([]bt.Node) (bt.Status, error) {
		logger.Debug("tickbt: progress", "steps", s.Steps())
		return bt.Success, nil
	}))); err != nil {
		return s.Report(), err
	}

	<-ticker.Done()
	if err := ticker.Err(); err != nil {
		return s.Report(), err
	}
	if !s.Done() {
		return s.Report(), ctx.Err()
	}
	return s.Report(), nil
}

func describeAgent(w io.Writer, s *sim.Sim, name string) error {
	for _, x := range s.Driver().Instances() {
		if x.Host().Name == name {
			_, err := fmt.Fprintf(w, "%s\n%s", name, x.Describe())
			return err
		}
	}
	return fmt.Errorf("unknown agent: %s", name)
}

func runTree(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("tree", "tree [options]", stderr)
	strategy := fs.String("strategy", sim.StrategyScored, "strategy to print, one of "+strings.Join(sim.Strategies, ", "))
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := sim.DefaultOptions()
	opts.Agents = 1
	opts.Strategy = *strategy
	opts.Logger = slog.New(slog.DiscardHandler)
	s, err := sim.New(opts)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(stdout, s.Tree().String())
	return err
}

func runConfig(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("config", "config [options] [show|help|get <key>|set <key> <value>]", stderr)
	var cf configFlags
	cf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	schema := config.DefaultSchema()
	action, rest := "show", fs.Args()
	if len(rest) > 0 {
		action, rest = rest[0], rest[1:]
	}
	switch action {
	case "help":
		_, err := fmt.Fprint(stdout, schema.FormatHelp())
		return err

	case "show", "get":
		if action == "get" && len(rest) != 1 {
			return errors.New("usage: tickbt config get <key>")
		}
		cfg, err := cf.load()
		if err != nil {
			return err
		}
		if action == "get" {
			if schema.Lookup(rest[0]) == nil {
				return fmt.Errorf("unknown option: %s", rest[0])
			}
			_, err = fmt.Fprintln(stdout, schema.Resolve(cfg, rest[0]))
			return err
		}
		for _, opt := range schema.Options() {
			if _, err := fmt.Fprintf(stdout, "%s %s\n", opt.Key, schema.Resolve(cfg, opt.Key)); err != nil {
				return err
			}
		}
		for _, w := range cfg.GetWarnings() {
			_, _ = fmt.Fprintf(stderr, "warning: %s\n", w)
		}
		return nil

	case "set":
		if len(rest) != 2 {
			return errors.New("usage: tickbt config set <key> <value>")
		}
		key, value := rest[0], rest[1]
		opt := schema.Lookup(key)
		if opt == nil {
			return fmt.Errorf("unknown option: %s", key)
		}
		if err := opt.Validate(value); err != nil {
			return fmt.Errorf("option %s: %w", key, err)
		}
		path := cf.path
		if path == "" {
			var err error
			if path, err = config.GetConfigPath(); err != nil {
				return err
			}
			if err := config.EnsureConfigDir(); err != nil {
				return err
			}
		}
		if err := config.SetKeyInFile(path, key, value); err != nil {
			return err
		}
		_, err := fmt.Fprintf(stdout, "%s set to %s in %s\n", key, value, path)
		return err

	default:
		return fmt.Errorf("unknown config action: %s", action)
	}
}
