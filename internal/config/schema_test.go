package config

import (
	"strings"
	"testing"
	"time"

	"github.com/joeycumines/go-tickbt/behavior"
)

func TestDefaultSchemaDefaultsAreValid(t *testing.T) {
	t.Parallel()

	for _, opt := range DefaultSchema().Options() {
		if opt.Default == "" {
			continue
		}
		if err := opt.Validate(opt.Default); err != nil {
			t.Errorf("default for %q is invalid: %v", opt.Key, err)
		}
	}
}

func TestSchemaRegisterOverwrites(t *testing.T) {
	t.Parallel()

	s := NewSchema()
	s.Register(ConfigOption{Key: "a", Default: "1"})
	s.Register(ConfigOption{Key: "b"})
	s.Register(ConfigOption{Key: "a", Default: "2"})

	opts := s.Options()
	if len(opts) != 2 {
		t.Fatalf("expected 2 options, got %d", len(opts))
	}
	if opts[1].Key != "a" || opts[1].Default != "2" {
		t.Errorf("expected last registration to win, got %+v", opts[1])
	}
	if s.Lookup("missing") != nil {
		t.Error("expected nil for unregistered key")
	}
}

func TestSchemaResolvePrecedence(t *testing.T) {
	s := DefaultSchema()
	c := NewConfig()

	t.Setenv("TICKBT_LOG_LEVEL", "")
	if got := s.Resolve(c, KeyLogLevel); got != "" {
		t.Errorf("expected env var set to empty to win, got %q", got)
	}

	t.Setenv("TICKBT_LOG_LEVEL", "debug")
	c.SetGlobalOption(KeyLogLevel, "warn")
	if got := s.Resolve(c, KeyLogLevel); got != "debug" {
		t.Errorf("expected env override, got %q", got)
	}

	if got := s.Resolve(c, KeySimAgents); got != "8" {
		t.Errorf("expected schema default, got %q", got)
	}
	c.SetGlobalOption(KeySimAgents, "2")
	if got := s.Resolve(c, KeySimAgents); got != "2" {
		t.Errorf("expected config value, got %q", got)
	}
	if got := s.Resolve(c, "unknown"); got != "" {
		t.Errorf("expected empty for unknown key, got %q", got)
	}
}

func TestValidateType(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		typ   OptionType
		value string
		ok    bool
	}{
		{TypeString, "anything", true},
		{"", "anything", true},
		{TypeBool, "on", true},
		{TypeBool, "maybe", false},
		{TypeInt, "-3", true},
		{TypeInt, "3.5", false},
		{TypeFloat, "3.5", true},
		{TypeFloat, "x", false},
		{TypeDuration, "1m30s", true},
		{TypeDuration, "90", false},
		{OptionType("complex"), "1", false},
	} {
		err := validateType(tc.typ, tc.value)
		if (err == nil) != tc.ok {
			t.Errorf("validateType(%q, %q) = %v, want ok=%v", tc.typ, tc.value, err, tc.ok)
		}
	}
}

func TestFormatHelp(t *testing.T) {
	t.Parallel()

	help := DefaultSchema().FormatHelp()
	for _, want := range []string{
		"Options:",
		"tick.interval",
		"type: duration",
		"values: restart|hold",
		"env: TICKBT_LOG_LEVEL",
		"default: 200",
	} {
		if !strings.Contains(help, want) {
			t.Errorf("expected help to contain %q:\n%s", want, help)
		}
	}
}

func TestResolveDefaults(t *testing.T) {
	t.Setenv("TICKBT_LOG_LEVEL", "warn")
	t.Setenv("TICKBT_LOG_FILE", "/tmp/tickbt.log")

	s, err := Resolve(NewConfig())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := Settings{
		TickInterval: 0,
		Workers:      1,
		Restart:      behavior.RestartOnTerminal,
		Agents:       8,
		Ticks:        200,
		Seed:         1,
		Range:        6,
		Strategy:     "scored",
		LogLevel:     "warn",
		LogFile:      "/tmp/tickbt.log",
		LogMaxSizeMB: 10,
		LogMaxFiles:  5,
	}
	if s != want {
		t.Errorf("expected %+v, got %+v", want, s)
	}
}

func TestResolveValues(t *testing.T) {
	c, err := LoadFromReader(strings.NewReader(`tick.interval 20ms
tick.workers 4
tick.restart HOLD
sim.agents 2
sim.seed -9
sim.range 2.5
sim.strategy Classic
log.per-run yes`))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	s, err := Resolve(c)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if s.TickInterval != 20*time.Millisecond || s.Workers != 4 || s.Restart != behavior.HoldOnTerminal {
		t.Errorf("unexpected tick settings: %+v", s)
	}
	if s.Agents != 2 || s.Seed != -9 || s.Range != 2.5 || s.Strategy != "classic" {
		t.Errorf("unexpected sim settings: %+v", s)
	}
	if !s.LogPerRun {
		t.Errorf("expected log.per-run to be set: %+v", s)
	}
}

func TestResolveErrors(t *testing.T) {
	c := NewConfig()
	c.SetGlobalOption(KeyTickWorkers, "lots")
	c.SetGlobalOption(KeySimAgents, "0")
	c.SetGlobalOption(KeySimRange, "-1")
	c.SetGlobalOption(KeyTickInterval, "-1s")
	c.SetGlobalOption(KeyTickRestart, "never")
	c.SetGlobalOption(KeySimStrategy, "flee")

	_, err := Resolve(c)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{
		KeyTickWorkers,
		"sim.agents: must be at least 1",
		"sim.range: must be positive",
		"tick.interval: cannot be negative",
		KeyTickRestart,
		`sim.strategy: expected one of scored, classic, got "flee"`,
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to contain %q, got %v", want, err)
		}
	}
}
