// Package snapshot converts the status wire format into board snapshots and back.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/park285/cheese-board-client/internal/board"
	"github.com/park285/cheese-board-client/pkg/boarddto"
)

// ErrMalformed wraps every reason a status body could not be turned into a snapshot.
var ErrMalformed = errors.New("malformed status snapshot")

func malformed(err error) error {
	return fmt.Errorf("%w: %w", ErrMalformed, err)
}

// FromDTO validates a decoded status body and builds a snapshot. Any defect,
// including an unknown move tag, rejects the whole body.
func FromDTO(s *boarddto.Status) (board.StatusSnapshot, error) {
	if s == nil || s.State == nil {
		return board.StatusSnapshot{}, malformed(boarddto.ProtocolError{Code: boarddto.CodeMissingField, Message: "status has no state"})
	}
	if s.Moves == nil {
		return board.StatusSnapshot{}, malformed(boarddto.ProtocolError{Code: boarddto.CodeMissingField, Message: "status has no moves"})
	}
	state, err := toState(s.State)
	if err != nil {
		return board.StatusSnapshot{}, malformed(err)
	}
	moves := make([]board.MoveRecord, 0, len(s.Moves))
	for i, m := range s.Moves {
		rec, err := ToMove(m)
		if err != nil {
			return board.StatusSnapshot{}, malformed(fmt.Errorf("moves[%d]: %w", i, err))
		}
		moves = append(moves, rec)
	}
	out := board.StatusSnapshot{State: state, Moves: moves, Config: s.Config}
	return out.Clone(), nil
}

func toState(s *boarddto.State) (board.GameState, error) {
	turn, err := board.ParseColor(s.Turn)
	if err != nil {
		return board.GameState{}, badValue("turn", err)
	}
	if len(s.Board) != board.Size {
		return board.GameState{}, badValue("board", fmt.Errorf("%d ranks", len(s.Board)))
	}
	out := board.GameState{Turn: turn}
	for r, row := range s.Board {
		if len(row) != board.Size {
			return board.GameState{}, badValue(fmt.Sprintf("board[%d]", r), fmt.Errorf("%d files", len(row)))
		}
		for f, cell := range row {
			if !cell.Occupied {
				continue
			}
			if cell.Piece == nil {
				return board.GameState{}, boarddto.ProtocolError{Code: boarddto.CodeMissingField, Message: fmt.Sprintf("board[%d][%d]: occupied without piece", r, f)}
			}
			p, err := toPiece(*cell.Piece)
			if err != nil {
				return board.GameState{}, badValue(fmt.Sprintf("board[%d][%d]", r, f), err)
			}
			out.Board[r][f] = board.Occupy(p)
		}
	}
	return out, nil
}

func toPiece(p boarddto.Piece) (board.Piece, error) {
	kind, ok := board.ParsePieceKind(p.Kind)
	if !ok {
		return board.Piece{}, fmt.Errorf("unknown piece kind %q", p.Kind)
	}
	color, err := board.ParseColor(p.Color)
	if err != nil {
		return board.Piece{}, err
	}
	return board.Piece{Kind: kind, Color: color}, nil
}

// normalizeTag drops an enum-style prefix, so "MoveRecord_Castle" reads as "Castle".
func normalizeTag(tag string) board.MoveKind {
	tag = strings.TrimSpace(tag)
	if i := strings.LastIndexByte(tag, '_'); i >= 0 {
		tag = tag[i+1:]
	}
	return board.MoveKind(tag)
}

// ToMove converts one tagged wire move.
func ToMove(m boarddto.Move) (board.MoveRecord, error) {
	tag := normalizeTag(m.Tag)
	c := m.Contents
	switch tag {
	case board.KindMove:
		if c.Move == nil {
			return nil, missing(tag)
		}
		from, to, err := toFromTo(c.Move.From, c.Move.To)
		if err != nil {
			return nil, err
		}
		return board.Move{From: from, To: to}, nil
	case board.KindEnPassant:
		if c.EnPassant == nil {
			return nil, missing(tag)
		}
		from, to, err := toFromTo(c.EnPassant.From, c.EnPassant.To)
		if err != nil {
			return nil, err
		}
		return board.EnPassant{From: from, To: to}, nil
	case board.KindPromote:
		if c.Promote == nil {
			return nil, missing(tag)
		}
		from, to, err := toFromTo(c.Promote.From, c.Promote.To)
		if err != nil {
			return nil, err
		}
		kind, ok := board.ParsePieceKind(c.Promote.Kind)
		if !ok {
			return nil, badValue("kind", fmt.Errorf("unknown piece kind %q", c.Promote.Kind))
		}
		return board.Promote{From: from, To: to, Kind: kind}, nil
	case board.KindCastle:
		if c.Castle == nil {
			return nil, missing(tag)
		}
		return board.Castle{KingSide: c.Castle.KingSide}, nil
	default:
		return nil, boarddto.ProtocolError{Code: boarddto.CodeUnknownMoveTag, Message: fmt.Sprintf("unknown move tag %q", m.Tag)}
	}
}

func toFromTo(from, to boarddto.Square) (board.Square, board.Square, error) {
	f := board.Square{Rank: from.Rank, File: from.File}
	t := board.Square{Rank: to.Rank, File: to.File}
	if !f.Valid() {
		return f, t, badValue("from", fmt.Errorf("square %v off board", f))
	}
	if !t.Valid() {
		return f, t, badValue("to", fmt.Errorf("square %v off board", t))
	}
	return f, t, nil
}

func missing(tag board.MoveKind) error {
	return boarddto.ProtocolError{Code: boarddto.CodeMissingField, Message: fmt.Sprintf("%s move without contents", tag)}
}

func badValue(field string, err error) error {
	return boarddto.ProtocolError{Code: boarddto.CodeBadValue, Message: fmt.Sprintf("%s: %v", field, err)}
}

// ToDTO encodes a snapshot in the server's wire shape.
func ToDTO(s board.StatusSnapshot) *boarddto.Status {
	state := &boarddto.State{Turn: string(s.State.Turn), Board: make([][]boarddto.Cell, board.Size)}
	for r := 0; r < board.Size; r++ {
		row := make([]boarddto.Cell, board.Size)
		for f := 0; f < board.Size; f++ {
			c := s.State.Board[r][f]
			if c.Occupied {
				row[f] = boarddto.Cell{Occupied: true, Piece: &boarddto.Piece{Kind: string(c.Piece.Kind), Color: string(c.Piece.Color)}}
			}
		}
		state.Board[r] = row
	}
	moves := make([]boarddto.Move, 0, len(s.Moves))
	for _, m := range s.Moves {
		moves = append(moves, FromMove(m))
	}
	return &boarddto.Status{State: state, Moves: moves, Config: s.Config}
}

// FromMove encodes one move record.
func FromMove(m board.MoveRecord) boarddto.Move {
	sq := func(s board.Square) boarddto.Square { return boarddto.Square{Rank: s.Rank, File: s.File} }
	switch v := m.(type) {
	case board.Move:
		return boarddto.Move{Tag: string(board.KindMove), Contents: boarddto.MoveContents{Move: &boarddto.FromTo{From: sq(v.From), To: sq(v.To)}}}
	case board.EnPassant:
		return boarddto.Move{Tag: string(board.KindEnPassant), Contents: boarddto.MoveContents{EnPassant: &boarddto.FromTo{From: sq(v.From), To: sq(v.To)}}}
	case board.Promote:
		return boarddto.Move{Tag: string(board.KindPromote), Contents: boarddto.MoveContents{Promote: &boarddto.PromoteMove{From: sq(v.From), To: sq(v.To), Kind: string(v.Kind)}}}
	case board.Castle:
		return boarddto.Move{Tag: string(board.KindCastle), Contents: boarddto.MoveContents{Castle: &boarddto.CastleMove{KingSide: v.KingSide}}}
	default:
		return boarddto.Move{}
	}
}

// StatusAPI is the part of the status client the fetcher needs.
type StatusAPI interface {
	Status(ctx context.Context) (*boarddto.Status, error)
}

// Fetcher reads and validates one status snapshot.
type Fetcher struct {
	API StatusAPI
}

func (f Fetcher) FetchStatus(ctx context.Context) (board.StatusSnapshot, error) {
	if f.API == nil {
		return board.StatusSnapshot{}, errors.New("status api not configured")
	}
	dto, err := f.API.Status(ctx)
	if err != nil {
		return board.StatusSnapshot{}, err
	}
	return FromDTO(dto)
}
