package boarddto

// Move is a tagged union as the server encodes it:
//
//	{"tag": "Promote", "contents": {"Promote": {"from": {...}, "to": {...}, "kind": "Queen"}}}
type Move struct {
	Tag      string       `json:"tag"`
	Contents MoveContents `json:"contents"`
}

type MoveContents struct {
	Move      *FromTo      `json:"Move,omitempty"`
	EnPassant *FromTo      `json:"EnPassant,omitempty"`
	Promote   *PromoteMove `json:"Promote,omitempty"`
	Castle    *CastleMove  `json:"Castle,omitempty"`
}

type Square struct {
	Rank int `json:"rank"`
	File int `json:"file"`
}

type FromTo struct {
	From Square `json:"from"`
	To   Square `json:"to"`
}

type PromoteMove struct {
	From Square `json:"from"`
	To   Square `json:"to"`
	Kind string `json:"kind"`
}

type CastleMove struct {
	KingSide bool `json:"kingSide"`
}
