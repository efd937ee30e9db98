package board

import (
	"strings"
	"testing"
)

func TestSquareNames(t *testing.T) {
	cases := map[string]Square{
		"a8": {Rank: 0, File: 0},
		"h1": {Rank: 7, File: 7},
		"e2": {Rank: 6, File: 4},
		"e4": {Rank: 4, File: 4},
	}
	for name, sq := range cases {
		if got := sq.String(); got != name {
			t.Fatalf("String(%v) = %q, want %q", sq, got, name)
		}
		parsed, err := ParseSquare(strings.ToUpper(name))
		if err != nil {
			t.Fatalf("ParseSquare(%q): %v", name, err)
		}
		if parsed != sq {
			t.Fatalf("ParseSquare(%q) = %v, want %v", name, parsed, sq)
		}
	}
	for _, bad := range []string{"", "e", "e9", "i1", "e0", "e22"} {
		if _, err := ParseSquare(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestFENStartingPosition(t *testing.T) {
	s := GameState{Turn: White, Board: StandardGrid()}
	want := "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w"
	if got := s.FEN(); !strings.HasPrefix(got, want) {
		t.Fatalf("FEN = %q, want prefix %q", got, want)
	}
	s.Turn = Black
	if got := s.FEN(); !strings.Contains(got, " b ") {
		t.Fatalf("FEN side to move: %q", got)
	}
}

func TestOwnedByMover(t *testing.T) {
	s := GameState{Turn: White, Board: StandardGrid()}
	if !s.OwnedByMover(Square{Rank: 6, File: 4}) {
		t.Fatalf("white pawn should belong to mover")
	}
	if s.OwnedByMover(Square{Rank: 1, File: 4}) {
		t.Fatalf("black pawn should not belong to mover")
	}
	if s.OwnedByMover(Square{Rank: 4, File: 4}) {
		t.Fatalf("empty square should not belong to mover")
	}
	if s.OwnedByMover(Square{Rank: 9, File: 4}) {
		t.Fatalf("off-board square should not belong to mover")
	}
}
