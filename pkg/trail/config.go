package trail

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// RetriggerPolicy decides what happens when a new Motion arrives for a
// window that already has a live trail.
type RetriggerPolicy int

const (
	// RetriggerFinish lets the in-flight trail play out; the new motion is
	// dropped. This matches the default suppress-don't-truncate behavior.
	RetriggerFinish RetriggerPolicy = iota

	// RetriggerTruncate marks the in-flight trail for early retirement; it
	// releases its surfaces on its next tick and the new motion animates.
	RetriggerTruncate
)

func (p RetriggerPolicy) String() string {
	switch p {
	case RetriggerFinish:
		return "finish"
	case RetriggerTruncate:
		return "truncate"
	default:
		return fmt.Sprintf("RetriggerPolicy(%d)", int(p))
	}
}

// Options is the raw, host-supplied configuration, validated by TryNew.
// Callers start from DefaultOptions and overlay what the host set (see
// nvimhost.mergeOptions); TryNew itself only defaults a zero
// time_interval_ms, and rejects a missing max_kept_windows.
type Options struct {
	TimeIntervalMs            int    `toml:"time_interval_ms" msgpack:"time_interval_ms"`
	DelayEventToSmearMs       int    `toml:"delay_event_to_smear_ms" msgpack:"delay_event_to_smear_ms"`
	DelayAfterKeyMs           int    `toml:"delay_after_key_ms" msgpack:"delay_after_key_ms"`
	MaxKeptWindows            int    `toml:"max_kept_windows" msgpack:"max_kept_windows"`
	SmearBetweenBuffers       bool   `toml:"smear_between_buffers" msgpack:"smear_between_buffers"`
	SmearBetweenNeighborLines bool   `toml:"smear_between_neighbor_lines" msgpack:"smear_between_neighbor_lines"`
	ParticlesEnabled          bool   `toml:"particles_enabled" msgpack:"particles_enabled"`
	LogLevel                  string `toml:"log_level" msgpack:"log_level"`
	Retrigger                 string `toml:"retrigger" msgpack:"retrigger"`
}

// DefaultOptions returns the settings used when the host supplies nothing.
func DefaultOptions() Options {
	return Options{
		TimeIntervalMs:            25,
		DelayEventToSmearMs:       10,
		DelayAfterKeyMs:           25,
		MaxKeptWindows:            8,
		SmearBetweenBuffers:       false,
		SmearBetweenNeighborLines: true,
		ParticlesEnabled:          false,
		LogLevel:                  "info",
		Retrigger:                 "finish",
	}
}

// Config is the validated, immutable engine configuration. No component
// mutates it after construction; reconfiguration means building a new engine
// and swapping it in via Setup.
type Config struct {
	TimeInterval              time.Duration
	DelayEventToSmear         time.Duration
	DelayAfterKey             time.Duration
	MaxKeptWindows            int
	SmearBetweenBuffers       bool
	SmearBetweenNeighborLines bool
	ParticlesEnabled          bool
	LogLevel                  slog.Level
	Retrigger                 RetriggerPolicy
}

// ConfigError reports an invalid Options field. It is fatal to the Setup
// call that produced it and nothing else.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// TryNew validates raw options into a Config. Durations must be
// non-negative and max_kept_windows must be at least 1.
func TryNew(opts Options) (Config, error) {
	if opts.TimeIntervalMs < 0 {
		return Config{}, &ConfigError{Field: "time_interval_ms", Reason: "must not be negative"}
	}
	if opts.DelayEventToSmearMs < 0 {
		return Config{}, &ConfigError{Field: "delay_event_to_smear_ms", Reason: "must not be negative"}
	}
	if opts.DelayAfterKeyMs < 0 {
		return Config{}, &ConfigError{Field: "delay_after_key_ms", Reason: "must not be negative"}
	}
	if opts.MaxKeptWindows < 1 {
		return Config{}, &ConfigError{Field: "max_kept_windows", Reason: "must be at least 1"}
	}

	level, err := parseLogLevel(opts.LogLevel)
	if err != nil {
		return Config{}, &ConfigError{Field: "log_level", Reason: err.Error()}
	}

	policy, err := parseRetrigger(opts.Retrigger)
	if err != nil {
		return Config{}, &ConfigError{Field: "retrigger", Reason: err.Error()}
	}

	interval := time.Duration(opts.TimeIntervalMs) * time.Millisecond
	if interval == 0 {
		interval = time.Duration(DefaultOptions().TimeIntervalMs) * time.Millisecond
	}

	return Config{
		TimeInterval:              interval,
		DelayEventToSmear:         time.Duration(opts.DelayEventToSmearMs) * time.Millisecond,
		DelayAfterKey:             time.Duration(opts.DelayAfterKeyMs) * time.Millisecond,
		MaxKeptWindows:            opts.MaxKeptWindows,
		SmearBetweenBuffers:       opts.SmearBetweenBuffers,
		SmearBetweenNeighborLines: opts.SmearBetweenNeighborLines,
		ParticlesEnabled:          opts.ParticlesEnabled,
		LogLevel:                  level,
		Retrigger:                 policy,
	}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown level %q", s)
	}
}

func parseRetrigger(s string) (RetriggerPolicy, error) {
	switch strings.ToLower(s) {
	case "", "finish":
		return RetriggerFinish, nil
	case "truncate":
		return RetriggerTruncate, nil
	default:
		return 0, fmt.Errorf("unknown policy %q", s)
	}
}
