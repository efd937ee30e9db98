// Package board holds the client-side game model: squares, pieces, the
// board grid, the server's move records and the status snapshot that
// carries them.
package board

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Size is the number of ranks and files.
const Size = 8

// Color identifies a side.
type Color string

const (
	White Color = "White"
	Black Color = "Black"
)

// ParseColor accepts the wire names case-insensitively.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white":
		return White, nil
	case "black":
		return Black, nil
	default:
		return "", fmt.Errorf("unknown color %q", s)
	}
}

// PieceKind is the piece type as named by the server.
type PieceKind string

const (
	King   PieceKind = "King"
	Queen  PieceKind = "Queen"
	Rook   PieceKind = "Rook"
	Bishop PieceKind = "Bishop"
	Knight PieceKind = "Knight"
	Pawn   PieceKind = "Pawn"
)

var pieceKinds = []PieceKind{King, Queen, Rook, Bishop, Knight, Pawn}

// ParsePieceKind matches a kind name case-insensitively.
func ParsePieceKind(s string) (PieceKind, bool) {
	s = strings.TrimSpace(s)
	for _, k := range pieceKinds {
		if strings.EqualFold(string(k), s) {
			return k, true
		}
	}
	return "", false
}

// Matches reports whether answer names this kind, ignoring case and surrounding blanks.
func (k PieceKind) Matches(answer string) bool {
	return strings.EqualFold(string(k), strings.TrimSpace(answer))
}

// Square addresses a board cell. Rank 0 is Black's back rank (the top row as
// drawn), rank 7 is White's.
type Square struct {
	Rank int `json:"rank"`
	File int `json:"file"`
}

func (s Square) Valid() bool {
	return s.Rank >= 0 && s.Rank < Size && s.File >= 0 && s.File < Size
}

type Piece struct {
	Kind  PieceKind
	Color Color
}

// Cell is either empty or holds a piece.
type Cell struct {
	Occupied bool
	Piece    Piece
}

// Empty is the unoccupied cell.
var Empty = Cell{}

// Occupy returns a cell holding p.
func Occupy(p Piece) Cell { return Cell{Occupied: true, Piece: p} }

// Grid is indexed [rank][file]. It is a value type so a GameState copy never
// aliases another.
type Grid [Size][Size]Cell

// At returns the cell at sq, or Empty for squares off the board.
func (g *Grid) At(sq Square) Cell {
	if !sq.Valid() {
		return Empty
	}
	return g[sq.Rank][sq.File]
}

// GameState is a server-authored position.
type GameState struct {
	Turn  Color
	Board Grid
}

// OwnedByMover reports whether sq holds a piece of the side to move.
func (s GameState) OwnedByMover(sq Square) bool {
	c := s.Board.At(sq)
	return c.Occupied && c.Piece.Color == s.Turn
}

// StatusSnapshot is one atomic read of the server: the position, the legal
// moves for its side to move, and any auxiliary fields the server sent.
type StatusSnapshot struct {
	State  GameState
	Moves  []MoveRecord
	Config map[string]json.RawMessage
}

// Clone returns a snapshot that shares no slices or maps with s.
func (s StatusSnapshot) Clone() StatusSnapshot {
	out := StatusSnapshot{State: s.State}
	if s.Moves != nil {
		out.Moves = append([]MoveRecord(nil), s.Moves...)
	}
	if s.Config != nil {
		out.Config = make(map[string]json.RawMessage, len(s.Config))
		for k, v := range s.Config {
			out.Config[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}
