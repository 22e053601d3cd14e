package plot

import (
	"fmt"
	"math"
	"strings"
)

const (
	labelWidth = 9
	pointGlyph = "*"
	emptyChart = "(no data)"
)

// Chart draws values as a character grid of height rows with a labelled y
// axis and a bottom rule. Only the most recent width values are drawn.
func Chart(values []float64, width, height int) []string {
	if len(values) == 0 {
		return []string{emptyChart}
	}
	if width < 1 {
		width = 1
	}
	if height < 2 {
		height = 2
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	lo, hi := bounds(values)
	grid := make([][]string, height)
	for i := range grid {
		row := make([]string, len(values))
		for j := range row {
			row[j] = " "
		}
		grid[i] = row
	}
	prev := -1
	for x, v := range values {
		y := rowFor(v, lo, hi, height)
		grid[y][x] = pointGlyph
		// join consecutive points with a vertical stroke
		if prev >= 0 && abs(prev-y) > 1 {
			from, to := min(prev, y)+1, max(prev, y)
			for yy := from; yy < to; yy++ {
				if grid[yy][x] == " " {
					grid[yy][x] = "|"
				}
			}
		}
		prev = y
	}

	lines := make([]string, 0, height+1)
	for y, row := range grid {
		label := strings.Repeat(" ", labelWidth)
		axis := " │"
		switch y {
		case 0:
			label, axis = axisLabel(hi), " ┤"
		case height / 2:
			label, axis = axisLabel(hi-(hi-lo)*float64(y)/float64(height-1)), " ┤"
		case height - 1:
			label, axis = axisLabel(lo), " ┤"
		}
		lines = append(lines, label+axis+strings.Join(row, ""))
	}
	lines = append(lines, strings.Repeat(" ", labelWidth)+" └"+strings.Repeat("─", len(values)))
	return lines
}

func bounds(values []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo < 1e-9 {
		lo, hi = lo-1, hi+1
	}
	return lo, hi
}

func rowFor(v, lo, hi float64, height int) int {
	y := int(math.Round((hi - v) / (hi - lo) * float64(height-1)))
	return max(0, min(height-1, y))
}

func axisLabel(v float64) string {
	return fmt.Sprintf("%*.2f", labelWidth, v)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
