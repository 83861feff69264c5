package chart

import (
	"fmt"
	"math"
	"strings"
)

// maxMermaidPoints keeps xychart layouts from overlapping
const maxMermaidPoints = 60

// RenderMermaid renders a spec as a fenced Mermaid block.
// Indicators and empty charts render as plain Markdown.
func RenderMermaid(s Spec) string {
	if s.Kind == KindIndicator {
		return fmt.Sprintf("**%s:** %s", s.Title, s.Text)
	}
	if s.Empty {
		return fmt.Sprintf("**%s:** _%s_", s.Title, NoData)
	}

	switch s.Kind {
	case KindPie:
		return mermaidPie(s)
	case KindLine, KindBar, KindScatter:
		return mermaidXY(s)
	default:
		return ""
	}
}

func mermaidPie(s Spec) string {
	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString(fmt.Sprintf("pie title %s\n", quote(s.Title)))
	for i, v := range s.Values {
		sb.WriteString(fmt.Sprintf("    %s : %s\n", quote(s.Labels[i]), formatValue(v)))
	}
	sb.WriteString("```")
	return sb.String()
}

func mermaidXY(s Spec) string {
	labels, values := subsample(xLabels(s), s.Values)

	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = quote(l)
	}
	vals := make([]string, len(values))
	maxY := 0.0
	for i, v := range values {
		vals[i] = formatValue(v)
		maxY = math.Max(maxY, v)
	}

	series := "line"
	if s.Kind == KindBar {
		series = "bar"
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title %s\n", quote(s.Title)))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(quoted, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis %s 0 --> %d\n", quote(s.YLabel), int(math.Ceil(maxY*1.1))+1))
	sb.WriteString(fmt.Sprintf("    %s [%s]\n", series, strings.Join(vals, ", ")))
	sb.WriteString("```")
	return sb.String()
}

func xLabels(s Spec) []string {
	if s.Kind != KindScatter {
		return s.Labels
	}
	out := make([]string, len(s.X))
	for i, x := range s.X {
		out[i] = formatValue(x)
	}
	return out
}

// subsample keeps at most maxMermaidPoints, always including the last point
func subsample(labels []string, values []float64) ([]string, []float64) {
	if len(values) <= maxMermaidPoints {
		return labels, values
	}
	rate := int(math.Ceil(float64(len(values)) / maxMermaidPoints))
	var l []string
	var v []float64
	for i := range values {
		if i%rate == 0 || i == len(values)-1 {
			if i < len(labels) {
				l = append(l, labels[i])
			}
			v = append(v, values[i])
		}
	}
	return l, v
}

func formatValue(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `'`) + `"`
}
