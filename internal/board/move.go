package board

import "fmt"

// MoveKind tags a MoveRecord variant. The values are the server's tag names.
type MoveKind string

const (
	KindMove      MoveKind = "Move"
	KindEnPassant MoveKind = "EnPassant"
	KindPromote   MoveKind = "Promote"
	KindCastle    MoveKind = "Castle"
)

// MoveRecord is one entry of the server's legal-move list. The set of
// variants is closed: Move, EnPassant, Promote and Castle.
type MoveRecord interface {
	Tag() MoveKind
	Origin(turn Color) Square
	Destination(turn Color) Square
	isMoveRecord()
}

type Move struct {
	From Square
	To   Square
}

type EnPassant struct {
	From Square
	To   Square
}

type Promote struct {
	From Square
	To   Square
	Kind PieceKind
}

// Castle stores only the side; squares derive from the mover's color.
type Castle struct {
	KingSide bool
}

func (Move) Tag() MoveKind      { return KindMove }
func (EnPassant) Tag() MoveKind { return KindEnPassant }
func (Promote) Tag() MoveKind   { return KindPromote }
func (Castle) Tag() MoveKind    { return KindCastle }

func (m Move) Origin(Color) Square           { return m.From }
func (m Move) Destination(Color) Square      { return m.To }
func (m EnPassant) Origin(Color) Square      { return m.From }
func (m EnPassant) Destination(Color) Square { return m.To }
func (m Promote) Origin(Color) Square        { return m.From }
func (m Promote) Destination(Color) Square   { return m.To }

func (m Castle) Origin(turn Color) Square {
	return Square{Rank: backRank(turn), File: 4}
}

func (m Castle) Destination(turn Color) Square {
	file := 2
	if m.KingSide {
		file = 6
	}
	return Square{Rank: backRank(turn), File: file}
}

func (Move) isMoveRecord()      {}
func (EnPassant) isMoveRecord() {}
func (Promote) isMoveRecord()   {}
func (Castle) isMoveRecord()    {}

func backRank(turn Color) int {
	if turn == Black {
		return 0
	}
	return Size - 1
}

// Origin is the square the mover's piece leaves.
func Origin(m MoveRecord, turn Color) Square { return m.Origin(turn) }

// Destination is the square the mover's piece lands on.
func Destination(m MoveRecord, turn Color) Square { return m.Destination(turn) }

// Describe renders a move for logs, e.g. "Promote e7-e8=Knight".
func Describe(m MoveRecord, turn Color) string {
	if m == nil {
		return "<nil>"
	}
	from, to := m.Origin(turn), m.Destination(turn)
	switch v := m.(type) {
	case Promote:
		return fmt.Sprintf("%s %s-%s=%s", v.Tag(), from, to, v.Kind)
	case Castle:
		if v.KingSide {
			return "Castle O-O"
		}
		return "Castle O-O-O"
	default:
		return fmt.Sprintf("%s %s-%s", m.Tag(), from, to)
	}
}
