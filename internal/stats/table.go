package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const cellGap = "  "

// column describes one table column. Untitled tables print no header row.
type column struct {
	title string
	right bool
}

func formatTable(cols []column, rows [][]string) []string {
	if len(cols) == 0 {
		return nil
	}
	widths := columnWidths(cols, rows)

	lines := make([]string, 0, len(rows)+1)
	if titled(cols) {
		header := make([]string, len(cols))
		for i, c := range cols {
			header[i] = c.title
		}
		lines = append(lines, joinCells(cols, header, widths))
	}
	for _, row := range rows {
		lines = append(lines, joinCells(cols, row, widths))
	}
	return lines
}

func titled(cols []column) bool {
	for _, c := range cols {
		if c.title != "" {
			return true
		}
	}
	return false
}

// columnWidths sizes each column to its widest cell. Cells beyond the last
// column are dropped.
func columnWidths(cols []column, rows [][]string) []int {
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = displayWidth(c.title)
	}
	for _, row := range rows {
		for i := 0; i < len(cols) && i < len(row); i++ {
			widths[i] = max(widths[i], displayWidth(row[i]))
		}
	}
	return widths
}

func joinCells(cols []column, row []string, widths []int) string {
	var b strings.Builder
	for i, c := range cols {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if i > 0 {
			b.WriteString(cellGap)
		}
		b.WriteString(padCell(cell, widths[i], c.right))
	}
	return strings.TrimRight(b.String(), " ")
}

func padCell(value string, width int, right bool) string {
	pad := strings.Repeat(" ", max(0, width-displayWidth(value)))
	if right {
		return pad + value
	}
	return value + pad
}

// SI prefixes such as µ are single-cell but multi-byte.
func displayWidth(value string) int {
	return runewidth.StringWidth(value)
}
