// Package nvimhost binds the trail engine to a Neovim host over
// msgpack-RPC. Surfaces are real floating windows sharing one scratch
// buffer; the repeating timer lives on Neovim's own event loop and pokes
// the plugin channel with rpcnotify, so all repositioning is driven from
// the host side.
package nvimhost

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/neovim/go-client/nvim"
	"github.com/pkg/errors"

	"github.com/vito/smear/pkg/trail"
)

// cursorQuery resolves the cursor to editor-grid cells in one round trip.
// screenpos is 1-based and reports 0 for an off-screen cursor.
const cursorQuery = `
local w = vim.api.nvim_get_current_win()
local b = vim.api.nvim_get_current_buf()
local pos = vim.api.nvim_win_get_cursor(w)
local sp = vim.fn.screenpos(w, pos[1], pos[2] + 1)
return { w, b, sp.row, sp.col }
`

const startTimerLua = `
local interval, chan, method = ...
_G.__smear_timers = _G.__smear_timers or {}
local timer = vim.loop.new_timer()
timer:start(interval, interval, vim.schedule_wrap(function()
  vim.rpcnotify(chan, method)
end))
table.insert(_G.__smear_timers, timer)
return #_G.__smear_timers
`

const stopTimerLua = `
local id = ...
local t = _G.__smear_timers and _G.__smear_timers[id]
if t then
  t:stop()
  t:close()
  _G.__smear_timers[id] = nil
end
return 0
`

// Host implements trail.Host against a live Neovim instance. Positions are
// editor-grid cells; window and buffer ids are only used for motion
// classification.
type Host struct {
	nv    *nvim.Nvim
	buf   nvim.Buffer
	glyph string

	timerSeq atomic.Uint64
}

// New creates a Host. When particles is set the trail paints a smaller
// glyph per cell instead of a full block.
func New(nv *nvim.Nvim, particles bool) *Host {
	glyph := "█"
	if particles {
		glyph = "▪"
	}
	return &Host{nv: nv, glyph: glyph}
}

func (h *Host) CursorPosition() (trail.Position, error) {
	var out [4]int
	if err := h.nv.ExecLua(cursorQuery, &out); err != nil {
		return trail.Position{}, errors.Wrap(err, "query cursor")
	}
	if out[2] == 0 {
		return trail.Position{}, errors.New("cursor off screen")
	}
	return trail.Position{
		Win: out[0],
		Buf: out[1],
		Row: out[2] - 1,
		Col: out[3] - 1,
	}, nil
}

func (h *Host) CreateOverlay() (trail.SurfaceHandle, error) {
	if err := h.ensureBuffer(); err != nil {
		return 0, err
	}

	win, err := h.nv.OpenWindow(h.buf, false, &nvim.WindowConfig{
		Relative:  "editor",
		Row:       0,
		Col:       0,
		Width:     1,
		Height:    1,
		Style:     "minimal",
		Focusable: false,
		ZIndex:    40,
	})
	if err != nil {
		return 0, errors.Wrap(err, "open float")
	}

	b := h.nv.NewBatch()
	b.SetWindowOption(win, "winhl", "Normal:SmearTrail")
	b.SetWindowOption(win, "winblend", 100)
	if err := b.Execute(); err != nil {
		// Window exists but could not be styled; close it rather than leak.
		_ = h.nv.CloseWindow(win, true)
		return 0, errors.Wrap(err, "style float")
	}

	return trail.SurfaceHandle(win), nil
}

func (h *Host) MoveOverlay(handle trail.SurfaceHandle, pos trail.Position) error {
	win := nvim.Window(handle)
	b := h.nv.NewBatch()
	b.SetWindowConfig(win, &nvim.WindowConfig{
		Relative: "editor",
		Row:      float64(pos.Row),
		Col:      float64(pos.Col),
		Width:    1,
		Height:   1,
	})
	b.SetWindowOption(win, "winblend", 0)
	if err := b.Execute(); err != nil {
		return errors.Wrapf(err, "move float %d", win)
	}
	return nil
}

// HideOverlay makes the float fully transparent instead of closing it, so
// the window can be reused without another nvim_open_win on the hot path.
func (h *Host) HideOverlay(handle trail.SurfaceHandle) error {
	win := nvim.Window(handle)
	if err := h.nv.SetWindowOption(win, "winblend", 100); err != nil {
		return errors.Wrapf(err, "hide float %d", win)
	}
	return nil
}

func (h *Host) DestroyOverlay(handle trail.SurfaceHandle) error {
	win := nvim.Window(handle)
	if err := h.nv.CloseWindow(win, true); err != nil {
		return errors.Wrapf(err, "close float %d", win)
	}
	return nil
}

// ScheduleRepeating installs a vim.loop timer that rpcnotifies this plugin
// channel every interval; the notification handler runs fn. The engine is
// therefore ticked by the host's own loop, never by a Go timer.
func (h *Host) ScheduleRepeating(interval time.Duration, fn func()) (func(), error) {
	method := fmt.Sprintf("smear_tick_%d", h.timerSeq.Add(1))
	if err := h.nv.RegisterHandler(method, func() { fn() }); err != nil {
		return nil, errors.Wrap(err, "register tick handler")
	}

	ms := int(interval / time.Millisecond)
	if ms < 1 {
		ms = 1
	}

	var id int
	if err := h.nv.ExecLua(startTimerLua, &id, ms, h.nv.ChannelID(), method); err != nil {
		return nil, errors.Wrap(err, "start timer")
	}

	stop := func() {
		var ignore int
		_ = h.nv.ExecLua(stopTimerLua, &ignore, id)
	}
	return stop, nil
}

func (h *Host) ensureBuffer() error {
	if h.buf != 0 {
		return nil
	}
	buf, err := h.nv.CreateBuffer(false, true)
	if err != nil {
		return errors.Wrap(err, "create scratch buffer")
	}
	if err := h.nv.SetBufferLines(buf, 0, -1, true, [][]byte{[]byte(h.glyph)}); err != nil {
		return errors.Wrap(err, "fill scratch buffer")
	}
	h.buf = buf
	return nil
}
