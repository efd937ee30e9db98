package board

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

var chessPieces = map[Piece]nchess.Piece{
	{King, White}:   nchess.WhiteKing,
	{Queen, White}:  nchess.WhiteQueen,
	{Rook, White}:   nchess.WhiteRook,
	{Bishop, White}: nchess.WhiteBishop,
	{Knight, White}: nchess.WhiteKnight,
	{Pawn, White}:   nchess.WhitePawn,
	{King, Black}:   nchess.BlackKing,
	{Queen, Black}:  nchess.BlackQueen,
	{Rook, Black}:   nchess.BlackRook,
	{Bishop, Black}: nchess.BlackBishop,
	{Knight, Black}: nchess.BlackKnight,
	{Pawn, Black}:   nchess.BlackPawn,
}

// ChessSquare converts to the chess library's square. Rank 0 here is rank 8 there.
func (s Square) ChessSquare() nchess.Square {
	return nchess.NewSquare(nchess.File(s.File), nchess.Rank(Size-1-s.Rank))
}

// String returns the algebraic name ("e2"), or a coordinate pair when off the board.
func (s Square) String() string {
	if !s.Valid() {
		return fmt.Sprintf("(%d,%d)", s.Rank, s.File)
	}
	return s.ChessSquare().String()
}

// ParseSquare reads an algebraic square name such as "e2".
func ParseSquare(name string) (Square, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) != 2 {
		return Square{}, fmt.Errorf("invalid square %q", name)
	}
	file := int(name[0] - 'a')
	digit := int(name[1] - '0')
	sq := Square{Rank: Size - digit, File: file}
	if !sq.Valid() || digit < 1 || digit > Size {
		return Square{}, fmt.Errorf("invalid square %q", name)
	}
	return sq, nil
}

// ChessBoard builds the chess library's board for this grid.
func (g *Grid) ChessBoard() *nchess.Board {
	m := make(map[nchess.Square]nchess.Piece)
	for r := 0; r < Size; r++ {
		for f := 0; f < Size; f++ {
			c := g[r][f]
			if !c.Occupied {
				continue
			}
			if p, ok := chessPieces[c.Piece]; ok {
				m[Square{Rank: r, File: f}.ChessSquare()] = p
			}
		}
	}
	return nchess.NewBoard(m)
}

// FEN returns the placement and side-to-move fields of the position's FEN.
// Castling, en passant and clocks are not known to the client and are left as "-".
func (s GameState) FEN() string {
	side := "w"
	if s.Turn == Black {
		side = "b"
	}
	return fmt.Sprintf("%s %s - - 0 1", s.Board.ChessBoard().String(), side)
}
