package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joeycumines/go-tickbt/behavior"
)

// Settings are the typed, resolved options.
type Settings struct {
	TickInterval time.Duration
	Workers      int
	Restart      behavior.RestartPolicy

	Agents   int
	Ticks    int
	Seed     int64
	Range    float64
	Strategy string

	LogLevel     string
	LogFile      string
	LogMaxSizeMB int
	LogMaxFiles  int
	LogPerRun    bool
}

// Resolve resolves every option of the default schema against c, applying
// environment overrides and defaults. Unlike loading, malformed values are
// errors here.
func Resolve(c *Config) (Settings, error) {
	s := DefaultSchema()
	var (
		out  Settings
		errs []error
	)
	value := func(key string) string {
		v := s.Resolve(c, key)
		if opt := s.Lookup(key); opt != nil {
			if err := opt.Validate(v); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
		return v
	}
	atoi := func(key string, min int) int {
		v, err := strconv.Atoi(value(key))
		if err == nil && v < min {
			errs = append(errs, fmt.Errorf("%s: must be at least %d, got %d", key, min, v))
		}
		return v
	}

	out.TickInterval, _ = time.ParseDuration(value(KeyTickInterval))
	if out.TickInterval < 0 {
		errs = append(errs, fmt.Errorf("%s: cannot be negative", KeyTickInterval))
	}
	out.Workers = atoi(KeyTickWorkers, 0)
	if restart, err := behavior.ParseRestartPolicy(value(KeyTickRestart)); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", KeyTickRestart, err))
	} else {
		out.Restart = restart
	}

	out.Agents = atoi(KeySimAgents, 1)
	out.Ticks = atoi(KeySimTicks, 0)
	out.Seed, _ = strconv.ParseInt(value(KeySimSeed), 10, 64)
	out.Range, _ = strconv.ParseFloat(value(KeySimRange), 64)
	if out.Range <= 0 {
		errs = append(errs, fmt.Errorf("%s: must be positive", KeySimRange))
	}
	out.Strategy = strings.ToLower(value(KeySimStrategy))

	out.LogLevel = value(KeyLogLevel)
	out.LogFile = value(KeyLogFile)
	out.LogMaxSizeMB = atoi(KeyLogMaxSizeMB, 0)
	out.LogMaxFiles = atoi(KeyLogMaxFiles, 0)
	out.LogPerRun, _ = parseBool(value(KeyLogPerRun))

	if err := errors.Join(errs...); err != nil {
		return Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return out, nil
}
