package tui

import (
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/park285/cheese-board-client/internal/board"
	"github.com/park285/cheese-board-client/internal/render"
	"github.com/rivo/tview"
)

// cellWidth is 3 characters per grid cell for a roughly square look.
const cellWidth = 3

var (
	lightBg     = tcell.NewRGBColor(233, 207, 163)
	darkBg      = tcell.NewRGBColor(187, 136, 96)
	highlightBg = tcell.NewRGBColor(255, 228, 120)
	whitePiece  = tcell.NewRGBColor(255, 255, 255)
	blackPiece  = tcell.NewRGBColor(0, 0, 0)
	labelFg     = tcell.NewRGBColor(8, 214, 120)
)

// hit is one clickable screen cell. Its click closure holds its own copy of
// the square it was built for.
type hit struct {
	x, y  int
	click func()
}

// BoardView draws a render.View and turns mouse clicks into squares.
type BoardView struct {
	*tview.Box

	mu      sync.Mutex
	view    render.View
	hits    []hit
	onClick func(board.Square)
}

func NewBoardView(onClick func(board.Square)) *BoardView {
	return &BoardView{Box: tview.NewBox(), onClick: onClick}
}

func (b *BoardView) SetView(v render.View) {
	b.mu.Lock()
	b.view = v
	b.mu.Unlock()
}

func (b *BoardView) Draw(screen tcell.Screen) {
	b.Box.DrawForSubclass(screen, b)
	x, y, width, height := b.GetInnerRect()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.hits = b.hits[:0]
	for row := 0; row < render.GridSize && row < height; row++ {
		for col := 0; col < render.GridSize; col++ {
			cx := x + col*cellWidth
			if cx+cellWidth > x+width {
				break
			}
			c := b.view.Cells[row][col]
			style, mark := cellLook(c)
			screen.SetContent(cx, y+row, ' ', nil, style)
			screen.SetContent(cx+1, y+row, mark, nil, style)
			screen.SetContent(cx+2, y+row, ' ', nil, style)
			if !c.Playable {
				continue
			}
			sq := c.Square
			onClick := b.onClick
			for dx := 0; dx < cellWidth; dx++ {
				b.hits = append(b.hits, hit{x: cx + dx, y: y + row, click: func() {
					if onClick != nil {
						onClick(sq)
					}
				}})
			}
		}
	}
}

func cellLook(c render.Cell) (tcell.Style, rune) {
	style := tcell.StyleDefault
	if !c.Playable {
		mark := ' '
		if c.Text != "" {
			mark = []rune(c.Text)[0]
		}
		return style.Foreground(labelFg), mark
	}
	switch c.Shade {
	case render.Dark:
		style = style.Background(darkBg)
	case render.Highlight:
		style = style.Background(highlightBg)
	default:
		style = style.Background(lightBg)
	}
	if !c.Occupied {
		return style, ' '
	}
	fg := whitePiece
	if c.Piece.Color == board.Black {
		fg = blackPiece
	}
	return style.Foreground(fg).Bold(true), []rune(c.Glyph)[0]
}

// clickAt finds the click handler drawn at a screen position.
func (b *BoardView) clickAt(x, y int) (func(), bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, h := range b.hits {
		if h.x == x && h.y == y {
			return h.click, true
		}
	}
	return nil, false
}

func (b *BoardView) MouseHandler() func(action tview.MouseAction, event *tcell.EventMouse, setFocus func(p tview.Primitive)) (consumed bool, capture tview.Primitive) {
	return b.WrapMouseHandler(func(action tview.MouseAction, event *tcell.EventMouse, setFocus func(p tview.Primitive)) (bool, tview.Primitive) {
		x, y := event.Position()
		if !b.InRect(x, y) {
			return false, nil
		}
		if action != tview.MouseLeftClick {
			return false, nil
		}
		setFocus(b)
		if click, ok := b.clickAt(x, y); ok {
			click()
		}
		return true, nil
	})
}
