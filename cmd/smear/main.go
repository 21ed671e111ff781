// Command smear is a cursor-trail animation engine for Neovim, shipped as a
// remote plugin. In its default mode it speaks msgpack-RPC over stdio and
// registers the Smear* functions; --headless runs the engine against an
// in-memory host and serves the diagnostics API as JSON-RPC over stdio,
// which is what external perf-validation scripts drive.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/fang"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/neovim/go-client/nvim"
	"github.com/neovim/go-client/nvim/plugin"
	"github.com/spf13/cobra"

	"github.com/vito/smear/pkg/nvimhost"
	"github.com/vito/smear/pkg/trail"
)

// cliConfig holds the command-line configuration.
type cliConfig struct {
	Debug      bool
	ConfigFile string
	Manifest   string
	Headless   bool
}

func main() {
	var cfg cliConfig

	rootCmd := &cobra.Command{
		Use:   "smear",
		Short: "Cursor-trail animation engine for Neovim",
		Long: `Smear renders a smooth, decaying trail of floating windows behind the
cursor as it moves within and across windows. It runs as a Neovim remote
plugin: register it with your plugin manager and call SmearSetup from your
config.`,
		Example: `  # Print the remote plugin manifest for your init
  smear --manifest smear

  # Run headless with the diagnostics API on stdio (JSON-RPC, one
  # request per line); used by the perf harness
  smear --headless

  # Pre-load option defaults from a TOML file
  smear --config ~/.config/smear/smear.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Headless {
				return runHeadless(cmd.Context(), cfg)
			}
			return runPlugin(cfg)
		},
	}

	rootCmd.Flags().BoolVarP(&cfg.Debug, "debug", "d", false, "Enable debug logging")
	rootCmd.Flags().StringVar(&cfg.ConfigFile, "config", "", "Path to a TOML file with option defaults")
	rootCmd.Flags().StringVar(&cfg.Manifest, "manifest", "", "Print the remote plugin manifest for the given host name and exit")
	rootCmd.Flags().BoolVar(&cfg.Headless, "headless", false, "Serve the diagnostics API over stdio instead of attaching to Neovim")

	if err := fang.Execute(context.Background(), rootCmd,
		fang.WithVersion("v0.1.0"),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			_, _ = fmt.Fprintln(w, err.Error())
		}),
	); err != nil {
		os.Exit(1)
	}
}

// setupLogging installs the default slog logger on stderr: tint when stderr
// is a terminal, plain text otherwise. The returned LevelVar lets SmearSetup
// re-level logging from the engine config.
func setupLogging(debug bool) *slog.LevelVar {
	level := new(slog.LevelVar)
	if debug {
		level.Set(slog.LevelDebug)
	}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) {
		handler = tint.NewHandler(os.Stderr, &tint.Options{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
	return level
}

// loadOptions returns the engine defaults, overlaid with the TOML file at
// path when one is given. A missing explicit path is an error; no path
// means plain defaults.
func loadOptions(path string) (trail.Options, error) {
	opts := trail.DefaultOptions()
	if path == "" {
		return opts, nil
	}
	if _, err := toml.DecodeFile(path, &opts); err != nil {
		return trail.Options{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return opts, nil
}

func runPlugin(cfg cliConfig) error {
	level := setupLogging(cfg.Debug)

	opts, err := loadOptions(cfg.ConfigFile)
	if err != nil {
		return err
	}

	// Stdout carries the msgpack channel; anything else printed must go to
	// stderr or it corrupts the RPC stream.
	stdout := os.Stdout
	os.Stdout = os.Stderr

	v, err := nvim.New(os.Stdin, stdout, stdout, func(format string, a ...interface{}) {
		slog.Debug(fmt.Sprintf(format, a...))
	})
	if err != nil {
		return fmt.Errorf("attach to host: %w", err)
	}

	p := plugin.New(v)
	nvimhost.Register(p, opts, level)

	if cfg.Manifest != "" {
		os.Stdout = stdout
		fmt.Printf("%s", p.Manifest(cfg.Manifest))
		return nil
	}

	defer trail.Teardown()
	if err := v.Serve(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
