package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"mcts/engine"
	"mcts/experiments/metrics"
	"mcts/game"
	"mcts/game/tictactoe"
	"mcts/searcher/agent"

	"github.com/spf13/cobra"
)

func newPlayCmd(a *app) *cobra.Command {
	var (
		budget   time.Duration
		opponent string
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a game of tic-tac-toe against the searcher",
		Long: `Play a game of tic-tac-toe against the searcher in the terminal.
Moves are entered as "row col", both 1-based, e.g. "2 2" for the centre.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("budget") {
				budget = a.cfg.Search.TimeBudget
			}
			computer := agent.NewEvaluationAgent(a.newSearcher("computer"), budget)
			if opponent != "" {
				computer = engine.NewRemoteAgent[int](opponent, budget+30*time.Second)
			}
			return play(cmd.InOrStdin(), cmd.OutOrStdout(), computer)
		},
	}
	cmd.Flags().DurationVarP(&budget, "budget", "b", 0, "thinking time per move (default from config)")
	cmd.Flags().StringVar(&opponent, "opponent", "", `move server to play against, e.g. "http://localhost:8080/move"`)
	return cmd
}

func play(r io.Reader, out io.Writer, opponent agent.Agent[int]) error {
	in := bufio.NewScanner(r)
	board := tictactoe.NewBoard()
	fmt.Fprintln(out, renderBoard(board))

	fmt.Fprint(out, "Do you want to start? (y or Y for 'Yes') ")
	human, computer := tictactoe.O, tictactoe.X
	if in.Scan() && strings.HasPrefix(strings.ToLower(strings.TrimSpace(in.Text())), "y") {
		human, computer = tictactoe.X, tictactoe.O
		fmt.Fprintln(out, "You play with X (starting piece)")
	} else {
		fmt.Fprintln(out, "You play with O")
	}

	agents := map[game.Player]agent.Agent[int]{
		human:    humanAgent{in: in, out: out},
		computer: opponent,
	}
	e := engine.LocalEngine[int](board, agents)
	e.OnMove = func(u engine.Update[int]) {
		if u.Player == computer {
			fmt.Fprintf(out, "MCTS plays %s\n", formatCell(u.Action))
		}
		fmt.Fprintln(out, renderBoard(u.State.(tictactoe.Board)))
	}
	if _, _, _, err := e.Run(); err != nil {
		return err
	}

	final := e.State
	humanScore, computerScore := final.FinalResult(human), final.FinalResult(computer)
	switch {
	case humanScore > computerScore:
		fmt.Fprintf(out, "You are the winner, playing with %s!\n", human)
	case humanScore < computerScore:
		fmt.Fprintf(out, "MCTS is the winner, playing with %s!\n", computer)
	default:
		fmt.Fprintln(out, "It's a draw!")
	}

	fmt.Fprintln(out, "Final score:")
	fmt.Fprintf(out, "-> X : %4.1f\n", final.FinalResult(tictactoe.X))
	fmt.Fprintf(out, "-> O : %4.1f\n", final.FinalResult(tictactoe.O))
	return nil
}

// humanAgent reads moves from the console until it gets a legal one.
type humanAgent struct {
	in  *bufio.Scanner
	out io.Writer
}

var _ agent.Agent[int] = humanAgent{}

func (h humanAgent) FindMove(state game.State[int]) (int, metrics.SearchMetric, error) {
	board, ok := state.(tictactoe.Board)
	if !ok {
		return 0, metrics.SearchMetric{}, fmt.Errorf("human player needs a tic-tac-toe board, got %T", state)
	}

	for {
		fmt.Fprint(h.out, "enter row col: ")
		if !h.in.Scan() {
			err := h.in.Err()
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return 0, metrics.SearchMetric{}, fmt.Errorf("failed to read move: %w", err)
		}

		cell, err := parseMove(h.in.Text())
		if err != nil || board.Cell(cell) != tictactoe.Empty {
			fmt.Fprintln(h.out, "Invalid move!")
			continue
		}
		return cell, metrics.SearchMetric{}, nil
	}
}

func parseMove(s string) (int, error) {
	var row, col int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d %d", &row, &col); err != nil {
		return 0, fmt.Errorf("%w: %q is not \"row col\"", tictactoe.ErrInvalidBoard, s)
	}
	return tictactoe.CellIndex(row, col)
}
