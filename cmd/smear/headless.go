package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"

	"github.com/vito/smear/pkg/memhost"
	"github.com/vito/smear/pkg/trail"
)

type echoParams struct {
	Value any `json:"value"`
}

type stepParams struct {
	N int `json:"n"`
}

type moveParams struct {
	Win int `json:"win"`
	Buf int `json:"buf"`
	Row int `json:"row"`
	Col int `json:"col"`
}

// runHeadless serves the diagnostics API (ping/echo/step/stats, plus move
// for injecting cursor positions) as line-delimited JSON-RPC on stdio,
// against an engine wired to an in-memory host. Timers never fire here:
// callers advance the clock exclusively through step, which is what makes
// externally driven runs deterministic.
func runHeadless(ctx context.Context, cfg cliConfig) error {
	level := setupLogging(cfg.Debug)

	opts, err := loadOptions(cfg.ConfigFile)
	if err != nil {
		return err
	}

	host := memhost.New()
	eng, err := trail.Setup(opts, host)
	if err != nil {
		return err
	}
	defer trail.Teardown()

	if !cfg.Debug {
		level.Set(eng.Config().LogLevel)
	}

	logger := slog.Default()

	methods := handler.Map{
		"ping": handler.New(func(context.Context) (uint64, error) {
			return eng.Ping(), nil
		}),
		"echo": handler.New(func(_ context.Context, p echoParams) (any, error) {
			return p.Value, nil
		}),
		"step": handler.New(func(_ context.Context, p stepParams) (trail.StepResult, error) {
			return eng.Step(p.N), nil
		}),
		"stats": handler.New(func(context.Context) (trail.StepResult, error) {
			return eng.Snapshot(), nil
		}),
		"move": handler.New(func(_ context.Context, p moveParams) (trail.StepResult, error) {
			host.SetCursor(trail.Position{Win: p.Win, Buf: p.Buf, Row: p.Row, Col: p.Col})
			eng.OnKey()
			return eng.Snapshot(), nil
		}),
	}

	srv := jrpc2.NewServer(methods, &jrpc2.ServerOptions{
		Logger: func(text string) { logger.Debug(text) },
	})

	srv.Start(channel.Line(os.Stdin, os.Stdout))

	logger.InfoContext(ctx, "diagnostics server closed", "error", srv.Wait())
	return nil
}
