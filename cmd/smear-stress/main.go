// Command smear-stress is an environment-driven stress test for the trail
// engine. It hammers the engine with rapid cross-window cursor jumps against
// an in-memory host, then checks that tick cost and floating-window count
// recover to baseline after a settle wait.
//
// Usage:
//
//	go run ./cmd/smear-stress
//	SMEAR_STRESS_TICKS=50000 SMEAR_STRESS_ROUNDS=8 go run ./cmd/smear-stress
//
// Exits non-zero when any threshold is exceeded.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/lmittmann/tint"

	"github.com/vito/smear/pkg/memhost"
	"github.com/vito/smear/pkg/trail"
)

// harnessConfig mirrors the SMEAR_STRESS_* environment variables.
type harnessConfig struct {
	Windows  int
	Warmup   int
	Baseline int
	Rounds   int
	Ticks    int
	Recovery int

	SettleWait time.Duration

	MaxRecoveryRatio   float64
	MaxStressRatio     float64
	MaxFloatingWindows int
}

func configFromEnv() harnessConfig {
	return harnessConfig{
		Windows:            envInt("SMEAR_STRESS_WINDOWS", 8),
		Warmup:             envInt("SMEAR_STRESS_WARMUP", 500),
		Baseline:           envInt("SMEAR_STRESS_BASELINE", 3000),
		Rounds:             envInt("SMEAR_STRESS_ROUNDS", 4),
		Ticks:              envInt("SMEAR_STRESS_TICKS", 20000),
		Recovery:           envInt("SMEAR_STRESS_RECOVERY", 3000),
		SettleWait:         time.Duration(envInt("SMEAR_STRESS_SETTLE_MS", 1200)) * time.Millisecond,
		MaxRecoveryRatio:   envFloat("SMEAR_STRESS_MAX_RECOVERY_RATIO", 1.4),
		MaxStressRatio:     envFloat("SMEAR_STRESS_MAX_STRESS_RATIO", 2.0),
		MaxFloatingWindows: envInt("SMEAR_STRESS_MAX_FLOATING_WINDOWS", 0),
	}
}

func main() {
	statsPath := flag.String("stats", "", "write per-tick JSONL stats to this file")
	flag.Parse()

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, nil)))

	if err := run(configFromEnv(), *statsPath); err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("PASS")
}

func run(cfg harnessConfig, statsPath string) error {
	host := memhost.New()

	opts := trail.DefaultOptions()
	opts.MaxKeptWindows = cfg.Windows
	opts.SmearBetweenBuffers = true
	opts.Retrigger = "truncate"
	// Zero delays so every jump animates immediately. The harness wants
	// maximum churn, not realistic typing rhythm.
	opts.DelayAfterKeyMs = 0
	opts.DelayEventToSmearMs = 0

	engCfg, err := trail.TryNew(opts)
	if err != nil {
		return err
	}
	eng, err := trail.New(engCfg, host)
	if err != nil {
		return err
	}
	defer eng.Close()

	if statsPath != "" {
		f, err := os.OpenFile(statsPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("open stats file: %w", err)
		}
		defer f.Close() //nolint:errcheck
		eng.SetDebugWriter(f)
	}

	// Fixed seed: identical jump sequences across runs.
	rng := rand.New(rand.NewSource(1))
	jump := func() {
		win := 1 + rng.Intn(cfg.Windows)
		host.SetCursor(trail.Position{
			Win: win,
			Buf: win,
			Row: rng.Intn(50),
			Col: rng.Intn(200),
		})
		eng.OnKey()
	}

	measure := func(ticks int) time.Duration {
		var total time.Duration
		for i := 0; i < ticks; i++ {
			jump()
			start := time.Now()
			eng.Step(1)
			total += time.Since(start)
		}
		return total / time.Duration(ticks)
	}

	drain := func() {
		// Enough ticks for the longest trail plus its decay to play out.
		eng.Step(256)
	}

	slog.Info("warmup", "ticks", cfg.Warmup)
	measure(cfg.Warmup)
	drain()

	slog.Info("baseline", "ticks", cfg.Baseline)
	baseline := measure(cfg.Baseline)
	drain()
	baselineFloating := host.FloatingWindows()
	slog.Info("baseline done", "avg_cost", baseline, "floating", baselineFloating)

	var worstStress time.Duration
	for round := 1; round <= cfg.Rounds; round++ {
		avg := measure(cfg.Ticks)
		if avg > worstStress {
			worstStress = avg
		}
		slog.Info("stress round", "round", round, "avg_cost", avg,
			"outstanding", eng.Snapshot().Outstanding,
			"floating", host.FloatingWindows())
	}

	slog.Info("settling", "wait", cfg.SettleWait)
	time.Sleep(cfg.SettleWait)
	drain()

	floating := host.FloatingWindows()
	slog.Info("settled", "floating", floating)

	slog.Info("recovery", "ticks", cfg.Recovery)
	recovery := measure(cfg.Recovery)
	drain()

	snap := eng.Snapshot()
	recoveryRatio := ratio(recovery, baseline)
	stressRatio := ratio(worstStress, baseline)

	fmt.Printf("baseline avg tick cost:  %v\n", baseline)
	fmt.Printf("worst stress tick cost:  %v (ratio %.2f, max %.2f)\n", worstStress, stressRatio, cfg.MaxStressRatio)
	fmt.Printf("recovery avg tick cost:  %v (ratio %.2f, max %.2f)\n", recovery, recoveryRatio, cfg.MaxRecoveryRatio)
	fmt.Printf("post-settle floating:    %d (max %d)\n", floating, cfg.MaxFloatingWindows)
	fmt.Printf("surfaces created/destroyed: %d/%d  outstanding: %d\n",
		host.Created(), host.Destroyed(), snap.Outstanding)

	if floating > cfg.MaxFloatingWindows {
		return fmt.Errorf("floating windows did not converge: %d > %d", floating, cfg.MaxFloatingWindows)
	}
	if recoveryRatio > cfg.MaxRecoveryRatio {
		return fmt.Errorf("tick cost did not recover: ratio %.2f > %.2f", recoveryRatio, cfg.MaxRecoveryRatio)
	}
	if stressRatio > cfg.MaxStressRatio {
		return fmt.Errorf("tick cost degraded under load: ratio %.2f > %.2f", stressRatio, cfg.MaxStressRatio)
	}
	if snap.Outstanding > cfg.Windows {
		return fmt.Errorf("outstanding surfaces exceed pool bound: %d > %d", snap.Outstanding, cfg.Windows)
	}
	return nil
}

func ratio(a, b time.Duration) float64 {
	if b <= 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func envInt(name string, fallback int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		slog.Warn("ignoring bad env value", "name", name, "value", s)
	}
	return fallback
}

func envFloat(name string, fallback float64) float64 {
	if s := os.Getenv(name); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		slog.Warn("ignoring bad env value", "name", name, "value", s)
	}
	return fallback
}
