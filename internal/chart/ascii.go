package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"
)

// RenderASCII renders a spec for a terminal of the given size
func RenderASCII(s Spec, width, height int) string {
	if width < 10 {
		width = 10
	}
	if height < 3 {
		height = 3
	}

	if s.Kind == KindIndicator {
		return s.Text
	}
	if s.Empty {
		return NoData
	}

	switch s.Kind {
	case KindLine:
		return plotLine(s, width, height)
	case KindBar:
		return bars(s.Labels, s.Values, width, func(v float64) string { return fmt.Sprintf("%.1f", v) })
	case KindPie:
		return pie(s, width)
	case KindScatter:
		return scatterGrid(s, width, height)
	default:
		return NoData
	}
}

func plotLine(s Spec, width, height int) string {
	values := s.Values
	if len(values) == 1 {
		values = []float64{values[0], values[0]}
	}
	graph := asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(1),
	)
	if len(s.Labels) == 0 {
		return graph
	}
	axis := fmt.Sprintf("%s … %s", s.Labels[0], s.Labels[len(s.Labels)-1])
	return graph + "\n" + axis
}

func bars(labels []string, values []float64, width int, format func(float64) string) string {
	labelWidth := 0
	for _, l := range labels {
		if n := len([]rune(l)); n > labelWidth {
			labelWidth = n
		}
	}
	maxVal := 0.0
	for _, v := range values {
		maxVal = math.Max(maxVal, v)
	}

	barSpace := width - labelWidth - 10
	if barSpace < 5 {
		barSpace = 5
	}

	var sb strings.Builder
	for i, v := range values {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		n := 0
		if maxVal > 0 {
			n = int(math.Round(v / maxVal * float64(barSpace)))
		}
		fmt.Fprintf(&sb, "%-*s %s %s", labelWidth, label, strings.Repeat("█", n), format(v))
		if i < len(values)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func pie(s Spec, width int) string {
	total := 0.0
	for _, v := range s.Values {
		total += v
	}
	return bars(s.Labels, s.Values, width, func(v float64) string {
		if total == 0 {
			return "0"
		}
		return fmt.Sprintf("%.0f (%.0f%%)", v, v/total*100)
	})
}

// scatterGrid plots points on a character grid; asciigraph only draws series
func scatterGrid(s Spec, width, height int) string {
	minX, maxX := bounds(s.X)
	minY, maxY := bounds(s.Values)

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}
	for i, y := range s.Values {
		if i >= len(s.X) {
			break
		}
		col := scale(s.X[i], minX, maxX, width)
		row := height - 1 - scale(y, minY, maxY, height)
		grid[row][col] = '•'
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %.1f\n", s.YLabel, maxY)
	for _, line := range grid {
		sb.WriteString("│")
		sb.WriteString(string(line))
		sb.WriteByte('\n')
	}
	sb.WriteString("└" + strings.Repeat("─", width) + "\n")
	fmt.Fprintf(&sb, "%.1f %s … %.1f %s", minX, s.XLabel, maxX, s.XLabel)
	return sb.String()
}

func bounds(vs []float64) (float64, float64) {
	if len(vs) == 0 {
		return 0, 0
	}
	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func scale(v, lo, hi float64, n int) int {
	if hi <= lo {
		return 0
	}
	i := int((v - lo) / (hi - lo) * float64(n-1))
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}
