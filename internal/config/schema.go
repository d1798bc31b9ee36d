package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// OptionType represents the expected type of a configuration option value.
type OptionType string

const (
	// TypeString is a plain string value (the default for all config values).
	TypeString OptionType = "string"
	// TypeBool is a boolean value (true/false/yes/no/1/0/on/off).
	TypeBool OptionType = "bool"
	// TypeInt is an integer value.
	TypeInt OptionType = "int"
	// TypeFloat is a floating point value.
	TypeFloat OptionType = "float"
	// TypeDuration is a Go time.Duration value (e.g. "30s", "5m", "1h").
	TypeDuration OptionType = "duration"
)

// ConfigOption declares a single configuration option with its type, default,
// documentation, and environment variable override.
type ConfigOption struct {
	// Key is the option name as it appears in the config file (kebab-case).
	Key string
	// Type is the expected value type for validation.
	Type OptionType
	// Default is the default value as a string, or "" for no default.
	Default string
	// Description is a human-readable description of the option.
	Description string
	// Values, if set, restricts the value to one of the listed (lowercase)
	// strings.
	Values []string
	// EnvVar is the environment variable that overrides this option, or "".
	EnvVar string
}

// ConfigSchema declares the expected configuration options for the application.
// It is used for validation, documentation, and env var mapping.
type ConfigSchema struct {
	options []*ConfigOption
	byKey   map[string]*ConfigOption
}

// NewSchema creates a new empty ConfigSchema.
func NewSchema() *ConfigSchema {
	return &ConfigSchema{
		byKey: make(map[string]*ConfigOption),
	}
}

// Register adds a ConfigOption to the schema. Duplicate keys are silently
// overwritten (last registration wins).
func (s *ConfigSchema) Register(opt ConfigOption) {
	ref := new(ConfigOption)
	*ref = opt
	if prev, ok := s.byKey[opt.Key]; ok {
		s.options = slices.DeleteFunc(s.options, func(o *ConfigOption) bool { return o == prev })
	}
	s.options = append(s.options, ref)
	s.byKey[opt.Key] = ref
}

// RegisterAll adds multiple ConfigOptions to the schema.
func (s *ConfigSchema) RegisterAll(opts []ConfigOption) {
	for _, opt := range opts {
		s.Register(opt)
	}
}

// Lookup returns the ConfigOption for a key, or nil if the key is not
// registered.
func (s *ConfigSchema) Lookup(key string) *ConfigOption {
	return s.byKey[key]
}

// Options returns all registered options, in registration order.
func (s *ConfigSchema) Options() []ConfigOption {
	out := make([]ConfigOption, 0, len(s.options))
	for _, o := range s.options {
		out = append(out, *o)
	}
	return out
}

// Resolve returns the effective value for a global config key by checking,
// in order: (1) the environment variable declared in the schema for this key,
// (2) the config value, (3) the schema default. Returns "" if the key is not
// found anywhere.
func (s *ConfigSchema) Resolve(c *Config, key string) string {
	opt := s.Lookup(key)
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	if v, ok := c.GetGlobalOption(key); ok {
		return v
	}
	if opt != nil {
		return opt.Default
	}
	return ""
}

// ValidateConfig checks a loaded Config against the schema and returns a list
// of human-readable issues (empty if the config is valid). Validation includes:
//   - Unknown options, global or within a profile
//   - Type mismatches for options with declared types
//   - Values outside an option's declared set
func ValidateConfig(c *Config, s *ConfigSchema) []string {
	var issues []string

	for key, value := range c.Global {
		opt := s.Lookup(key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
			continue
		}
		if err := opt.Validate(value); err != nil {
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
		}
	}

	for profile, opts := range c.Profiles {
		for key, value := range opts {
			opt := s.Lookup(key)
			if opt == nil {
				issues = append(issues, fmt.Sprintf("unknown option for profile %q: %q (value: %q)", profile, key, value))
				continue
			}
			if err := opt.Validate(value); err != nil {
				issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, profile, err))
			}
		}
	}

	slices.Sort(issues)
	return issues
}

// Validate checks value against the option type and allowed values.
func (o *ConfigOption) Validate(value string) error {
	if err := validateType(o.Type, value); err != nil {
		return err
	}
	if len(o.Values) != 0 && !slices.Contains(o.Values, strings.ToLower(value)) {
		return fmt.Errorf("expected one of %s, got %q", strings.Join(o.Values, ", "), value)
	}
	return nil
}

// validateType checks that a string value matches the expected OptionType.
func validateType(t OptionType, value string) error {
	switch t {
	case TypeString, "":
		return nil
	case TypeBool:
		if _, err := parseBool(value); err != nil {
			return fmt.Errorf("expected bool, got %q", value)
		}
	case TypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("expected int, got %q", value)
		}
	case TypeFloat:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("expected float, got %q", value)
		}
	case TypeDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("expected duration, got %q", value)
		}
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	return nil
}

// FormatHelp returns a formatted, human-readable reference of all registered
// options in the schema.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder
	b.WriteString("Options:\n")
	for _, o := range s.Options() {
		writeOptionHelp(&b, o)
	}
	return b.String()
}

func writeOptionHelp(b *strings.Builder, o ConfigOption) {
	fmt.Fprintf(b, "  %-20s %s", o.Key, o.Description)
	parts := make([]string, 0, 4)
	if o.Type != "" && o.Type != TypeString {
		parts = append(parts, fmt.Sprintf("type: %s", o.Type))
	}
	if len(o.Values) != 0 {
		parts = append(parts, fmt.Sprintf("values: %s", strings.Join(o.Values, "|")))
	}
	if o.Default != "" {
		parts = append(parts, fmt.Sprintf("default: %s", o.Default))
	}
	if o.EnvVar != "" {
		parts = append(parts, fmt.Sprintf("env: %s", o.EnvVar))
	}
	if len(parts) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString("\n")
}

// Option keys.
const (
	KeyTickInterval = "tick.interval"
	KeyTickWorkers  = "tick.workers"
	KeyTickRestart  = "tick.restart"
	KeySimAgents    = "sim.agents"
	KeySimTicks     = "sim.ticks"
	KeySimSeed      = "sim.seed"
	KeySimRange     = "sim.range"
	KeySimStrategy  = "sim.strategy"
	KeyLogLevel     = "log.level"
	KeyLogFile      = "log.file"
	KeyLogMaxSizeMB = "log.max-size-mb"
	KeyLogMaxFiles  = "log.max-files"
	KeyLogPerRun    = "log.per-run"
)

// DefaultSchema returns the canonical schema declaring all known tickbt
// configuration options. This is the single source of truth for option names,
// types, defaults, descriptions, and environment variable overrides.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.RegisterAll([]ConfigOption{
		{Key: KeyTickInterval, Type: TypeDuration, Default: "0s", Description: "Real-time tick interval, 0 steps as fast as possible"},
		{Key: KeyTickWorkers, Type: TypeInt, Default: "1", Description: "Max instances ticked concurrently"},
		{Key: KeyTickRestart, Type: TypeString, Default: "restart", Values: []string{"restart", "hold"}, Description: "What the root does once complete"},

		{Key: KeySimAgents, Type: TypeInt, Default: "8", Description: "Number of agents"},
		{Key: KeySimTicks, Type: TypeInt, Default: "200", Description: "Number of steps to simulate"},
		{Key: KeySimSeed, Type: TypeInt, Default: "1", Description: "Random seed"},
		{Key: KeySimRange, Type: TypeFloat, Default: "6", Description: "Distance at which agents notice each other"},
		{Key: KeySimStrategy, Type: TypeString, Default: "scored", Values: []string{"scored", "classic"}, Description: "Agent behavior tree"},

		{Key: KeyLogFile, Type: TypeString, Default: "", Description: "Log file path (JSON output)", EnvVar: "TICKBT_LOG_FILE"},
		{Key: KeyLogLevel, Type: TypeString, Default: "info", Values: []string{"debug", "info", "warn", "error"}, Description: "Log level", EnvVar: "TICKBT_LOG_LEVEL"},
		{Key: KeyLogMaxSizeMB, Type: TypeInt, Default: "10", Description: "Max log file size in MB before rotation"},
		{Key: KeyLogMaxFiles, Type: TypeInt, Default: "5", Description: "Max number of rotated log backup files"},
		{Key: KeyLogPerRun, Type: TypeBool, Default: "false", Description: "Start each run with a fresh log file, keeping the previous one as a backup"},
	})
	return s
}
