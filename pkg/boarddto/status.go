package boarddto

import (
	"encoding/json"
	"fmt"
)

// Status is the body of GET status: {"state": ..., "moves": [...], ...config}.
// Fields other than state and moves are kept verbatim in Config. Moves is
// nil when the body had no move list, and empty for "moves": [].
type Status struct {
	State  *State
	Moves  []Move
	Config map[string]json.RawMessage
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = Status{}
	if v, ok := raw["state"]; ok && string(v) != "null" {
		s.State = &State{}
		if err := json.Unmarshal(v, s.State); err != nil {
			return fmt.Errorf("state: %w", err)
		}
	}
	if v, ok := raw["moves"]; ok && string(v) != "null" {
		s.Moves = []Move{}
		if err := json.Unmarshal(v, &s.Moves); err != nil {
			return fmt.Errorf("moves: %w", err)
		}
	}
	delete(raw, "state")
	delete(raw, "moves")
	if len(raw) > 0 {
		s.Config = raw
	}
	return nil
}

func (s Status) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Config)+2)
	for k, v := range s.Config {
		out[k] = v
	}
	out["state"] = s.State
	moves := s.Moves
	if moves == nil {
		moves = []Move{}
	}
	out["moves"] = moves
	return json.Marshal(out)
}

type State struct {
	Turn  string   `json:"turn"`
	Board [][]Cell `json:"board"`
}

type Cell struct {
	Occupied bool   `json:"occupied"`
	Piece    *Piece `json:"piece,omitempty"`
}

type Piece struct {
	Kind  string `json:"kind"`
	Color string `json:"color"`
}
