package tictactoe

import (
	"encoding/json"
	"fmt"

	"mcts/game"
)

// MarshalJSON encodes the board in its compact form, e.g. "XX.|OO.|...".
func (b Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Compact())
}

// UnmarshalJSON accepts any string Parse accepts.
func (b *Board) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: board must be a JSON string", ErrInvalidBoard)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// DecodeState reads a board sent over the wire as a game state.
func DecodeState(raw json.RawMessage) (game.State[int], error) {
	var b Board
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	return b, nil
}
