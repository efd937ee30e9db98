// Package render projects the held status and the current selection onto a
// labelled 10x10 grid. The view is rebuilt from scratch on every change.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/park285/cheese-board-client/internal/board"
	"github.com/park285/cheese-board-client/internal/selection"
	"github.com/park285/cheese-board-client/internal/store"
)

// GridSize counts the label border on both sides.
const GridSize = board.Size + 2

type Shade int

const (
	Label Shade = iota
	Light
	Dark
	Highlight
)

func (s Shade) String() string {
	switch s {
	case Light:
		return "light"
	case Dark:
		return "dark"
	case Highlight:
		return "highlight"
	default:
		return "label"
	}
}

// Cell is one grid position. Border cells carry Text; playable cells carry
// the square they stand for and, when occupied, the piece on it.
type Cell struct {
	Playable bool
	Square   board.Square
	Text     string
	Shade    Shade
	Occupied bool
	Piece    board.Piece
	Glyph    string
}

type View struct {
	Cells  [GridSize][GridSize]Cell
	Loaded bool
	Turn   board.Color
}

var glyphs = map[board.PieceKind]string{
	board.King:   "♚",
	board.Queen:  "♛",
	board.Rook:   "♜",
	board.Bishop: "♝",
	board.Knight: "♞",
	board.Pawn:   "♟",
}

// Glyph returns the display glyph for kind; colour is carried separately.
func Glyph(kind board.PieceKind) string {
	if g, ok := glyphs[kind]; ok {
		return g
	}
	return "?"
}

// Project builds the view for snap (ok false before the first fetch) and sel.
// Highlights are drawn only when sel was computed against snap.
func Project(snap store.Snapshot, ok bool, sel selection.Selection) View {
	var v View
	v.Loaded = ok
	if ok {
		v.Turn = snap.State.Turn
	}

	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			v.Cells[row][col] = borderCell(row, col)
		}
	}

	for rank := 0; rank < board.Size; rank++ {
		for file := 0; file < board.Size; file++ {
			sq := board.Square{Rank: rank, File: file}
			c := Cell{Playable: true, Square: sq, Shade: Light}
			if (rank+file)%2 == 1 {
				c.Shade = Dark
			}
			if ok {
				if cell := snap.State.Board.At(sq); cell.Occupied {
					c.Occupied = true
					c.Piece = cell.Piece
					c.Glyph = Glyph(cell.Piece.Kind)
				}
			}
			v.Cells[rank+1][file+1] = c
		}
	}

	if ok && sel.Active() && sel.Version == snap.Version {
		for _, sq := range highlighted(snap, sel) {
			v.Cells[sq.Rank+1][sq.File+1].Shade = Highlight
		}
	}
	return v
}

func highlighted(snap store.Snapshot, sel selection.Selection) []board.Square {
	out := []board.Square{sel.Origin}
	for _, i := range sel.Candidates {
		if i < 0 || i >= len(snap.Moves) || snap.Moves[i] == nil {
			continue
		}
		out = append(out, board.Destination(snap.Moves[i], snap.State.Turn))
	}
	valid := out[:0]
	for _, sq := range out {
		if sq.Valid() {
			valid = append(valid, sq)
		}
	}
	return valid
}

func borderCell(row, col int) Cell {
	c := Cell{Shade: Label}
	edgeRow := row == 0 || row == GridSize-1
	edgeCol := col == 0 || col == GridSize-1
	switch {
	case edgeRow && edgeCol:
	case edgeRow:
		c.Text = string(rune('a' + col - 1))
	case edgeCol:
		c.Text = strconv.Itoa(board.Size - row + 1)
	}
	return c
}

// At returns the playable cell for sq.
func (v View) At(sq board.Square) (Cell, bool) {
	if !sq.Valid() {
		return Cell{}, false
	}
	return v.Cells[sq.Rank+1][sq.File+1], true
}

// TurnLine is the caption shown above the board.
func (v View) TurnLine() string {
	if !v.Loaded {
		return "waiting for server"
	}
	return fmt.Sprintf("%s's turn", v.Turn)
}

// Text dumps the view with FEN letters (upper case for White). Highlighted
// squares are bracketed.
func (v View) Text() string {
	var b strings.Builder
	b.WriteString(v.TurnLine())
	b.WriteByte('\n')
	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			b.WriteString(v.Cells[row][col].text())
		}
		b.WriteString("\n")
	}
	return b.String()
}

var fenLetters = map[board.PieceKind]string{
	board.King:   "k",
	board.Queen:  "q",
	board.Rook:   "r",
	board.Bishop: "b",
	board.Knight: "n",
	board.Pawn:   "p",
}

func (c Cell) text() string {
	if !c.Playable {
		if c.Text == "" {
			return "   "
		}
		return " " + c.Text + " "
	}
	mark := "."
	if c.Occupied {
		mark = fenLetters[c.Piece.Kind]
		if mark == "" {
			mark = "?"
		}
		if c.Piece.Color == board.White {
			mark = strings.ToUpper(mark)
		}
	}
	if c.Shade == Highlight {
		return "[" + mark + "]"
	}
	return " " + mark + " "
}
