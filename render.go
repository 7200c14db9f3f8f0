package main

import (
	"fmt"
	"slices"
	"strings"

	"mcts/game/tictactoe"
	"mcts/searcher"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	xStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	oStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
	boardStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 1)
)

// renderBoard draws the board with 1-based row and column headers.
func renderBoard(b tictactoe.Board) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render("  1 2 3"))
	for row := 1; row <= 3; row++ {
		sb.WriteByte('\n')
		sb.WriteString(headerStyle.Render(fmt.Sprint(row)))
		for col := 1; col <= 3; col++ {
			cell, _ := tictactoe.CellIndex(row, col)
			sb.WriteByte(' ')
			sb.WriteString(renderMark(b.Cell(cell)))
		}
	}
	return boardStyle.Render(sb.String())
}

func renderMark(m tictactoe.Mark) string {
	switch m {
	case tictactoe.MarkX:
		return xStyle.Render("X")
	case tictactoe.MarkO:
		return oStyle.Render("O")
	default:
		return " "
	}
}

func formatCell(cell int) string {
	row, col := tictactoe.RowCol(cell)
	return fmt.Sprintf("%d %d", row, col)
}

// renderChildren lists the root children, most visited first.
func renderChildren(children []searcher.ChildStat[int]) string {
	sorted := slices.Clone(children)
	slices.SortStableFunc(sorted, func(a, b searcher.ChildStat[int]) int {
		return b.Visits - a.Visits
	})

	rows := make([][]string, 0, len(sorted))
	for _, c := range sorted {
		rows = append(rows, []string{
			formatCell(c.Action),
			fmt.Sprint(c.Visits),
			fmt.Sprintf("%.3f", c.Mean()),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(headerStyle).
		Headers("MOVE", "VISITS", "MEAN REWARD").
		Rows(rows...).
		String()
}
