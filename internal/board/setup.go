package board

var backRow = [Size]PieceKind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// StandardGrid returns the initial chess position.
func StandardGrid() Grid {
	var g Grid
	for f := 0; f < Size; f++ {
		g[0][f] = Occupy(Piece{Kind: backRow[f], Color: Black})
		g[1][f] = Occupy(Piece{Kind: Pawn, Color: Black})
		g[6][f] = Occupy(Piece{Kind: Pawn, Color: White})
		g[7][f] = Occupy(Piece{Kind: backRow[f], Color: White})
	}
	return g
}
