// Package tui is the terminal front end: a clickable board, a status bar
// and the promotion dialog.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/park285/cheese-board-client/internal/board"
	"github.com/park285/cheese-board-client/internal/client"
	"github.com/park285/cheese-board-client/internal/msgcat"
	"github.com/park285/cheese-board-client/internal/render"
	"github.com/park285/cheese-board-client/internal/selection"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

// Controller is what the UI drives; *client.Client implements it.
type Controller interface {
	Click(sq board.Square)
	ResolvePromotion(token uint64, answer string, ok bool)
	Refresh()
	Reset()
	OnFrame(cb func(client.Frame))
	SetPrompter(p selection.Prompter)
	Frame() client.Frame
}

type Options struct {
	Server string
	PNGDir string
	Logger *zap.Logger
	// Screen replaces the terminal, for tests.
	Screen tcell.Screen
}

type App struct {
	app    *tview.Application
	pages  *tview.Pages
	board  *BoardView
	turn   *tview.TextView
	status *tview.TextView
	help   *tview.TextView
	prompt *Prompt

	ctrl   Controller
	cat    *msgcat.Catalog
	opts   Options
	logger *zap.Logger

	// queued work for the UI goroutine; wake holds at most one signal
	qM      sync.Mutex
	queue   []func()
	pending *client.Frame
	wake    chan struct{}
	stopped chan struct{}
	stopM   sync.Once

	// UI goroutine only
	entry  string
	notice string
	frame  client.Frame
}

func New(ctrl Controller, cat *msgcat.Catalog, opts Options) *App {
	if cat == nil {
		cat = msgcat.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PNGDir == "" {
		opts.PNGDir = "."
	}

	a := &App{
		app:     tview.NewApplication(),
		pages:   tview.NewPages(),
		turn:    tview.NewTextView().SetTextAlign(tview.AlignCenter),
		status:  tview.NewTextView(),
		help:    tview.NewTextView(),
		ctrl:    ctrl,
		cat:     cat,
		opts:    opts,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	if opts.Screen != nil {
		a.app.SetScreen(opts.Screen)
	}
	a.board = NewBoardView(ctrl.Click)
	a.help.SetText(cat.Text("help", nil))

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.turn, 1, 0, false).
		AddItem(a.board, render.GridSize, 0, true).
		AddItem(a.status, 2, 0, false).
		AddItem(a.help, 1, 0, false)
	a.pages.AddPage("board", layout, true, true)

	a.prompt = newPrompt(a.app, a.pages, a.board, cat, a.enqueue, ctrl.ResolvePromotion)
	ctrl.SetPrompter(a.prompt)
	ctrl.OnFrame(a.offerFrame)

	a.app.SetRoot(a.pages, true).EnableMouse(true).SetFocus(a.board)
	a.app.SetInputCapture(a.handleKey)
	a.apply(ctrl.Frame())
	return a
}

// enqueue hands f to the UI goroutine in call order. It never blocks.
func (a *App) enqueue(f func()) {
	a.qM.Lock()
	a.queue = append(a.queue, f)
	a.qM.Unlock()
	a.signal()
}

// offerFrame replaces any frame the UI has not drawn yet. It never blocks,
// so the client loop cannot stall behind a busy screen.
func (a *App) offerFrame(f client.Frame) {
	a.qM.Lock()
	a.pending = &f
	a.qM.Unlock()
	a.signal()
}

func (a *App) signal() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// drain takes the queued closures and the newest pending frame.
func (a *App) drain() ([]func(), *client.Frame) {
	a.qM.Lock()
	defer a.qM.Unlock()
	tasks, frame := a.queue, a.pending
	a.queue, a.pending = nil, nil
	return tasks, frame
}

// Run shows the UI until q is pressed or ctx ends.
func (a *App) Run(ctx context.Context) error {
	defer a.stopM.Do(func() { close(a.stopped) })
	go a.pump(ctx)
	return a.app.Run()
}

func (a *App) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			a.app.Stop()
			return
		case <-a.stopped:
			return
		case <-a.wake:
			tasks, frame := a.drain()
			if len(tasks) == 0 && frame == nil {
				continue
			}
			a.app.QueueUpdateDraw(func() {
				for _, f := range tasks {
					f()
				}
				if frame != nil {
					a.apply(*frame)
				}
			})
		}
	}
}

func (a *App) apply(f client.Frame) {
	a.frame = f
	a.board.SetView(f.View)
	if f.View.Loaded {
		a.turn.SetText(a.cat.Text("status.turn", map[string]any{"Turn": f.View.Turn}))
	} else {
		a.turn.SetText(a.cat.Text("status.waiting", map[string]any{"Server": a.opts.Server}))
	}
	a.refreshStatus()
}

func (a *App) refreshStatus() {
	f := a.frame
	var sel string
	switch f.Selection.Phase {
	case selection.Selected:
		sel = a.cat.Text("selection.selected", map[string]any{"Origin": f.Selection.Origin, "Count": len(f.Selection.Candidates)})
	case selection.Promoting:
		sel = a.cat.Text("selection.promoting", nil)
	default:
		sel = a.cat.Text("selection.idle", nil)
	}
	parts := []string{sel, a.cat.Text("status.push", map[string]any{"State": f.Push})}
	if a.entry != "" {
		parts = append(parts, a.cat.Text("status.entry", map[string]any{"Buffer": a.entry}))
	}
	line2 := a.cat.Text("status.sync", f.Sync)
	if f.Err != nil {
		line2 = a.cat.Text("status.error", map[string]any{"Error": f.Err})
	}
	if a.notice != "" {
		line2 = a.notice
	}
	a.status.SetText(strings.Join(parts, " | ") + "\n" + line2)
}

func (a *App) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	if a.prompt.isOpen() {
		return ev
	}
	switch ev.Key() {
	case tcell.KeyEscape:
		a.entry = ""
		a.refreshStatus()
		return nil
	case tcell.KeyRune:
	default:
		return ev
	}

	r := ev.Rune()
	switch {
	case r == 'q':
		a.app.Stop()
	case r == 'u':
		a.notice = ""
		a.ctrl.Refresh()
	case r == 'r':
		a.ctrl.Reset()
	case r == 's':
		a.savePNG()
	case r >= 'a' && r <= 'h':
		a.entry = string(r)
	case r >= '1' && r <= '8' && a.entry != "":
		if sq, err := board.ParseSquare(a.entry + string(r)); err == nil {
			a.ctrl.Click(sq)
		}
		a.entry = ""
	default:
		return ev
	}
	a.refreshStatus()
	return nil
}

func (a *App) savePNG() {
	view := a.frame.View
	dir := a.opts.PNGDir
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		path, err := writePNG(ctx, dir, view, time.Now())
		var msg string
		if err != nil {
			a.logger.Warn("png_save_failed", zap.Error(err))
			msg = a.cat.Text("status.save_failed", map[string]any{"Error": err})
		} else {
			a.logger.Info("png_saved", zap.String("path", path))
			msg = a.cat.Text("status.saved", map[string]any{"Path": path})
		}
		a.enqueue(func() {
			a.notice = msg
			a.refreshStatus()
		})
	}()
}

func writePNG(ctx context.Context, dir string, v render.View, now time.Time) (string, error) {
	data, err := render.PNG(ctx, v)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create png dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("board-%s.png", now.Format("20060102-150405")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write png: %w", err)
	}
	return path, nil
}
