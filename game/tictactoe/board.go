package tictactoe

import (
	"errors"
	"fmt"
	"strings"

	"mcts/game"
)

const (
	X game.Player = "X"
	O game.Player = "O"
)

const Size = 9

// Mark is the content of a single cell.
type Mark byte

const (
	Empty Mark = 0
	MarkX Mark = 'X'
	MarkO Mark = 'O'
)

var ErrInvalidBoard = errors.New("invalid board")

// Three in a row, three in a column, then both diagonals
var winningCombos = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Board is an immutable tic-tac-toe position. Cells are indexed row by row,
// 0 is the top left corner and 8 the bottom right one.
type Board struct {
	cells    [Size]Mark
	turn     game.Player
	xScore   int // +1 if X won, -1 if O won, 0 otherwise
	terminal bool
}

var _ game.State[int] = Board{}

// NewBoard returns an empty board with X to move.
func NewBoard() Board {
	return Board{turn: X}
}

// FromCells builds a board from explicit cell contents and the player to move.
// The turn is ignored when the position is already decided.
func FromCells(cells [Size]Mark, turn game.Player) (Board, error) {
	for i, c := range cells {
		if c != Empty && c != MarkX && c != MarkO {
			return Board{}, fmt.Errorf("%w: unknown mark %q at cell %d", ErrInvalidBoard, c, i)
		}
	}
	if turn != X && turn != O {
		return Board{}, fmt.Errorf("%w: unknown player %q", ErrInvalidBoard, turn)
	}

	b := Board{cells: cells, turn: turn}
	b.xScore, b.terminal = evaluate(cells)
	if b.terminal {
		b.turn = game.NoPlayer
	}
	return b, nil
}

// Parse reads a board from nine characters, row by row. 'X' and 'O' are marks,
// '.', '-', '_' and ' ' are empty cells. Row separators ('/', '|', tabs and
// newlines) are skipped, so "XO.|...|..." works too. The player to move is
// inferred from the mark counts with X moving first.
func Parse(s string) (Board, error) {
	var cells [Size]Mark
	n := 0
	for _, r := range s {
		switch r {
		case '/', '\n', '\t', '|':
			continue
		}
		if n == Size {
			return Board{}, fmt.Errorf("%w: more than %d cells in %q", ErrInvalidBoard, Size, s)
		}
		switch r {
		case 'X', 'x':
			cells[n] = MarkX
		case 'O', 'o':
			cells[n] = MarkO
		case '.', '-', '_', ' ':
			cells[n] = Empty
		default:
			return Board{}, fmt.Errorf("%w: unexpected character %q", ErrInvalidBoard, r)
		}
		n++
	}
	if n != Size {
		return Board{}, fmt.Errorf("%w: expected %d cells, got %d", ErrInvalidBoard, Size, n)
	}

	xs, ox := 0, 0
	for _, c := range cells {
		switch c {
		case MarkX:
			xs++
		case MarkO:
			ox++
		}
	}
	switch xs - ox {
	case 0:
		return FromCells(cells, X)
	case 1:
		return FromCells(cells, O)
	default:
		return Board{}, fmt.Errorf("%w: %d X marks and %d O marks", ErrInvalidBoard, xs, ox)
	}
}

func (b Board) Player() game.Player {
	return b.turn
}

func (b Board) ValidActions() []int {
	if b.terminal {
		return []int{}
	}
	actions := make([]int, 0, Size)
	for i, c := range b.cells {
		if c == Empty {
			actions = append(actions, i)
		}
	}
	return actions
}

func (b Board) IsTerminal() bool {
	return b.terminal
}

// FinalResult returns +1 for a win, -1 for a loss and 0 for a draw.
// It panics when the board is not terminal or player is neither X nor O.
func (b Board) FinalResult(player game.Player) float64 {
	if !b.terminal {
		panic(fmt.Errorf("%w: non-terminal board %s", game.ErrContractViolation, b.Compact()))
	}
	switch player {
	case X:
		return float64(b.xScore)
	case O:
		return float64(-b.xScore)
	default:
		panic(fmt.Errorf("%w: invalid player %q", game.ErrContractViolation, player))
	}
}

// Play marks cell action for the player to move. It panics on an occupied or
// out of range cell, or when the game is over.
func (b Board) Play(action int) game.State[int] {
	return b.Place(action)
}

// Place is Play with the concrete board type as result.
func (b Board) Place(cell int) Board {
	if b.terminal {
		panic(fmt.Errorf("%w: move %d on finished board %s", game.ErrContractViolation, cell, b.Compact()))
	}
	if cell < 0 || cell >= Size || b.cells[cell] != Empty {
		panic(fmt.Errorf("%w: illegal move %d on board %s", game.ErrContractViolation, cell, b.Compact()))
	}

	next := b
	next.cells[cell] = Mark(b.turn[0])
	next.xScore, next.terminal = evaluate(next.cells)
	switch {
	case next.terminal:
		next.turn = game.NoPlayer
	case b.turn == X:
		next.turn = O
	default:
		next.turn = X
	}
	return next
}

// Cell returns the mark at index i.
func (b Board) Cell(i int) Mark {
	return b.cells[i]
}

// Winner returns the player with three in a row, NoPlayer on a draw or an
// unfinished game.
func (b Board) Winner() game.Player {
	switch b.xScore {
	case 1:
		return X
	case -1:
		return O
	default:
		return game.NoPlayer
	}
}

// Compact renders the cells on a single line, e.g. "XX.|OO.|...".
func (b Board) Compact() string {
	var sb strings.Builder
	for i, c := range b.cells {
		if i > 0 && i%3 == 0 {
			sb.WriteByte('|')
		}
		sb.WriteByte(c.char('.'))
	}
	return sb.String()
}

// String renders the board with 1-based row and column headers.
func (b Board) String() string {
	var sb strings.Builder
	sb.WriteString("\n  1 2 3\n")
	for row := 0; row < 3; row++ {
		fmt.Fprintf(&sb, "%d", row+1)
		for col := 0; col < 3; col++ {
			sb.WriteByte(' ')
			sb.WriteByte(b.cells[3*row+col].char(' '))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// CellIndex converts a 1-based row and column to a cell index.
func CellIndex(row, col int) (int, error) {
	if row < 1 || row > 3 || col < 1 || col > 3 {
		return 0, fmt.Errorf("%w: row %d col %d is off the board", ErrInvalidBoard, row, col)
	}
	return 3*(row-1) + (col - 1), nil
}

// RowCol is the inverse of CellIndex.
func RowCol(cell int) (row, col int) {
	return cell/3 + 1, cell%3 + 1
}

func (m Mark) char(empty byte) byte {
	if m == Empty {
		return empty
	}
	return byte(m)
}

// evaluate returns the score from X's perspective and whether the game is over
func evaluate(cells [Size]Mark) (int, bool) {
	for _, combo := range winningCombos {
		v := cells[combo[0]]
		if v != Empty && v == cells[combo[1]] && v == cells[combo[2]] {
			if v == MarkX {
				return 1, true
			}
			return -1, true
		}
	}
	for _, c := range cells {
		if c == Empty {
			return 0, false
		}
	}
	return 0, true
}
