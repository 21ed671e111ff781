package nvimhost

import (
	"log/slog"

	"github.com/neovim/go-client/nvim/plugin"

	"github.com/vito/smear/pkg/trail"
)

// highlightSetup declares the trail's default highlight group; users can
// redefine SmearTrail to restyle it.
const highlightSetup = `
vim.api.nvim_set_hl(0, "SmearTrail", { link = "Cursor", default = true })
return 0
`

// Register wires the engine's host-callable surface onto a remote plugin:
//
//	SmearSetup({opts})  validate config and (re)build the engine
//	SmearOnKey()        feed a raw key event to the debouncer
//	SmearToggle(on)     enable/disable without losing configuration
//	SmearPing()         liveness tick counter
//	SmearEcho(v)        round-trip identity
//	SmearStep(n)        advance n deterministic ticks (diagnostics)
//	SmearTeardown()     close and forget the engine
//
// level, when non-nil, is adjusted to each Setup's configured log level.
func Register(p *plugin.Plugin, defaults trail.Options, level *slog.LevelVar) {
	p.HandleFunction(&plugin.FunctionOptions{Name: "SmearSetup"},
		func(args []trail.Options) error {
			opts := defaults
			if len(args) > 0 {
				opts = mergeOptions(defaults, args[0])
			}

			host := New(p.Nvim, opts.ParticlesEnabled)

			var ignore int
			if err := p.Nvim.ExecLua(highlightSetup, &ignore); err != nil {
				slog.Debug("highlight setup failed", "error", err)
			}

			eng, err := trail.Setup(opts, host)
			if err != nil {
				return err
			}
			if level != nil {
				level.Set(eng.Config().LogLevel)
			}
			return nil
		})

	p.HandleFunction(&plugin.FunctionOptions{Name: "SmearOnKey"},
		func() error {
			if e := trail.Active(); e != nil {
				e.OnKey()
			}
			return nil
		})

	p.HandleFunction(&plugin.FunctionOptions{Name: "SmearToggle"},
		func(args []bool) error {
			e := trail.Active()
			if e == nil {
				return nil
			}
			enabled := !e.Enabled()
			if len(args) > 0 {
				enabled = args[0]
			}
			e.Toggle(enabled)
			return nil
		})

	p.HandleFunction(&plugin.FunctionOptions{Name: "SmearPing"},
		func() (uint64, error) {
			if e := trail.Active(); e != nil {
				return e.Ping(), nil
			}
			return 0, nil
		})

	p.HandleFunction(&plugin.FunctionOptions{Name: "SmearEcho"},
		func(args []interface{}) (interface{}, error) {
			if len(args) == 0 {
				return nil, nil
			}
			return args[0], nil
		})

	p.HandleFunction(&plugin.FunctionOptions{Name: "SmearStep"},
		func(args []int) (trail.StepResult, error) {
			e := trail.Active()
			if e == nil {
				return trail.StepResult{}, nil
			}
			n := 1
			if len(args) > 0 {
				n = args[0]
			}
			return e.Step(n), nil
		})

	p.HandleFunction(&plugin.FunctionOptions{Name: "SmearTeardown"},
		func() error {
			trail.Teardown()
			return nil
		})
}

// mergeOptions overlays the host-supplied options onto the defaults. Only
// fields the host actually set (non-zero) override; booleans always come
// from the host dict since msgpack decodes absent keys to false anyway, so
// hosts should pass the full set when customizing behavior flags.
func mergeOptions(base, over trail.Options) trail.Options {
	out := over
	if out.TimeIntervalMs == 0 {
		out.TimeIntervalMs = base.TimeIntervalMs
	}
	if out.DelayEventToSmearMs == 0 {
		out.DelayEventToSmearMs = base.DelayEventToSmearMs
	}
	if out.DelayAfterKeyMs == 0 {
		out.DelayAfterKeyMs = base.DelayAfterKeyMs
	}
	if out.MaxKeptWindows == 0 {
		out.MaxKeptWindows = base.MaxKeptWindows
	}
	if out.LogLevel == "" {
		out.LogLevel = base.LogLevel
	}
	if out.Retrigger == "" {
		out.Retrigger = base.Retrigger
	}
	return out
}
