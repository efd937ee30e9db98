package tui

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/park285/cheese-board-client/internal/board"
	"github.com/park285/cheese-board-client/internal/client"
	"github.com/park285/cheese-board-client/internal/msgcat"
	"github.com/park285/cheese-board-client/internal/render"
	"github.com/park285/cheese-board-client/internal/selection"
	"github.com/park285/cheese-board-client/internal/store"
	"github.com/rivo/tview"
)

type fakeController struct {
	clicks    []board.Square
	refreshes int
	resets    int
	answers   []string
	prompter  selection.Prompter
	frame     client.Frame
}

func (f *fakeController) Click(sq board.Square) { f.clicks = append(f.clicks, sq) }
func (f *fakeController) ResolvePromotion(token uint64, answer string, ok bool) {
	if ok {
		f.answers = append(f.answers, answer)
	} else {
		f.answers = append(f.answers, "<cancel>")
	}
}
func (f *fakeController) Refresh()                         { f.refreshes++ }
func (f *fakeController) Reset()                           { f.resets++ }
func (f *fakeController) OnFrame(func(client.Frame))       {}
func (f *fakeController) SetPrompter(p selection.Prompter) { f.prompter = p }
func (f *fakeController) Frame() client.Frame              { return f.frame }

func openingView() render.View {
	snap := store.Snapshot{
		StatusSnapshot: board.StatusSnapshot{State: board.GameState{Turn: board.White, Board: board.StandardGrid()}},
		Version:        1,
	}
	return render.Project(snap, true, selection.Selection{})
}

func newSimScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("")
	if err := s.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	s.SetSize(40, 20)
	t.Cleanup(s.Fini)
	return s
}

func TestBoardViewDrawsAndMapsClicks(t *testing.T) {
	screen := newSimScreen(t)
	var clicked []board.Square
	bv := NewBoardView(func(sq board.Square) { clicked = append(clicked, sq) })
	bv.SetRect(0, 0, 40, 20)
	bv.SetView(openingView())
	bv.Draw(screen)

	// Row 1 is rank 8; column 1 is file a. The glyph sits in the middle char.
	if r, _, _, _ := screen.GetContent(1*cellWidth+1, 1); r != '♜' {
		t.Fatalf("a8 glyph = %q", r)
	}
	if r, _, _, _ := screen.GetContent(1*cellWidth+1, 0); r != 'a' {
		t.Fatalf("file label = %q", r)
	}
	if r, _, _, _ := screen.GetContent(1, 8); r != '1' {
		t.Fatalf("rank label = %q", r)
	}

	handler := bv.MouseHandler()
	noFocus := func(tview.Primitive) {}
	// e2: rank 6 -> row 7, file 4 -> col 5
	handler(tview.MouseLeftClick, tcell.NewEventMouse(5*cellWidth, 7, tcell.Button1, 0), noFocus)
	// label cell: not clickable
	handler(tview.MouseLeftClick, tcell.NewEventMouse(0, 7, tcell.Button1, 0), noFocus)
	// every cell owns its square, the last one drawn included
	handler(tview.MouseLeftClick, tcell.NewEventMouse(8*cellWidth+2, 8, tcell.Button1, 0), noFocus)

	want := []board.Square{{Rank: 6, File: 4}, {Rank: 7, File: 7}}
	if len(clicked) != len(want) || clicked[0] != want[0] || clicked[1] != want[1] {
		t.Fatalf("clicked = %v, want %v", clicked, want)
	}
}

func newTestApp(t *testing.T) (*App, *fakeController) {
	t.Helper()
	ctrl := &fakeController{frame: client.Frame{View: openingView()}}
	// SetScreen initialises the screen itself.
	screen := tcell.NewSimulationScreen("")
	t.Cleanup(screen.Fini)
	a := New(ctrl, msgcat.Default(), Options{Server: "http://test", Screen: screen, PNGDir: t.TempDir()})
	return a, ctrl
}

func key(r rune) *tcell.EventKey { return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone) }

func TestKeyboardSquareEntry(t *testing.T) {
	a, ctrl := newTestApp(t)
	for _, r := range "e2e4" {
		if a.handleKey(key(r)) != nil {
			t.Fatalf("key %q not consumed", r)
		}
	}
	want := []board.Square{{Rank: 6, File: 4}, {Rank: 4, File: 4}}
	if len(ctrl.clicks) != 2 || ctrl.clicks[0] != want[0] || ctrl.clicks[1] != want[1] {
		t.Fatalf("clicks = %v", ctrl.clicks)
	}

	a.handleKey(key('e'))
	a.handleKey(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone))
	a.handleKey(key('4'))
	if len(ctrl.clicks) != 2 {
		t.Fatalf("escape did not clear entry: %v", ctrl.clicks)
	}
}

func TestCommandKeys(t *testing.T) {
	a, ctrl := newTestApp(t)
	a.handleKey(key('u'))
	a.handleKey(key('r'))
	if ctrl.refreshes != 1 || ctrl.resets != 1 {
		t.Fatalf("refreshes=%d resets=%d", ctrl.refreshes, ctrl.resets)
	}
	if ev := a.handleKey(key('z')); ev == nil {
		t.Fatalf("unbound key consumed")
	}
}

func TestPromptAnswerAndDismiss(t *testing.T) {
	a, ctrl := newTestApp(t)
	if ctrl.prompter != a.prompt {
		t.Fatalf("prompter not installed")
	}

	a.prompt.open(5)
	if !a.prompt.isOpen() {
		t.Fatalf("prompt not shown")
	}
	// board keys go to the dialog while it is open
	if ev := a.handleKey(key('e')); ev == nil {
		t.Fatalf("key swallowed while prompt open")
	}
	a.prompt.input.SetText("knight")
	a.prompt.finish(a.prompt.input.GetText(), true)
	if a.prompt.isOpen() {
		t.Fatalf("prompt still open")
	}

	a.prompt.open(6)
	a.prompt.close()
	if a.prompt.isOpen() {
		t.Fatalf("dismiss left prompt open")
	}

	a.prompt.open(7)
	a.prompt.finish("", false)

	if len(ctrl.answers) != 2 || ctrl.answers[0] != "knight" || ctrl.answers[1] != "<cancel>" {
		t.Fatalf("answers = %v", ctrl.answers)
	}
}

func TestStatusShowsSelection(t *testing.T) {
	a, _ := newTestApp(t)
	a.apply(client.Frame{
		View:      openingView(),
		Selection: selection.Selection{Phase: selection.Selected, Origin: board.Square{Rank: 6, File: 4}, Candidates: []int{2, 3}},
	})
	text := a.status.GetText(true)
	if want := "e2 selected, 2 move(s)"; !strings.Contains(text, want) {
		t.Fatalf("status = %q, want %q", text, want)
	}
	if got := a.turn.GetText(true); got != "White's turn" {
		t.Fatalf("turn = %q", got)
	}
}

func TestWritePNG(t *testing.T) {
	dir := t.TempDir()
	path, err := writePNG(context.Background(), dir, openingView(), time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Fatalf("png not written: %v", err)
	}
}

func TestFrameHandOffNeverBlocks(t *testing.T) {
	a, _ := newTestApp(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// nothing drains the queue while the UI is not running
		for i := 1; i <= 500; i++ {
			a.offerFrame(client.Frame{View: openingView(), Selection: selection.Selection{Version: uint64(i)}})
			a.enqueue(func() {})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("frame hand-off blocked without a running UI")
	}

	tasks, frame := a.drain()
	if len(tasks) != 500 {
		t.Fatalf("tasks = %d, want 500", len(tasks))
	}
	if frame == nil || frame.Selection.Version != 500 {
		t.Fatalf("pending frame = %+v, want the latest", frame)
	}
	if tasks, frame := a.drain(); len(tasks) != 0 || frame != nil {
		t.Fatalf("drain left work behind")
	}
}
