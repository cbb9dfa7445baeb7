// Package markup lays text out as SVG tspan fragments.
package markup

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
)

const DefaultLineHeight = 1.1

// Style is the typography shared by every line of one text block.
type Style struct {
	Fill       string
	Weight     int
	Size       float64
	Family     string
	LineHeight float64
	// FirstLineOffset is the dy of line 0 in em. Nil means dy="0".
	FirstLineOffset *float64
	// MaxWidth enables width-estimated wrapping when positive.
	MaxWidth float64
}

// Em is a convenience for Style.FirstLineOffset.
func Em(v float64) *float64 { return &v }

type Fragment struct {
	Text string
	X    float64
	Dy   string
	Style
}

// Layout splits text into at most maxLines lines anchored at x.
func Layout(text string, x float64, maxLines int, st Style) []Fragment {
	if st.LineHeight == 0 {
		st.LineHeight = DefaultLineHeight
	}
	lines := Lines(text, maxLines, st.Size, st.MaxWidth)
	out := make([]Fragment, 0, len(lines))
	for i, line := range lines {
		dy := Num(st.LineHeight) + "em"
		if i == 0 {
			dy = "0"
			if st.FirstLineOffset != nil {
				dy = Num(*st.FirstLineOffset) + "em"
			}
		}
		out = append(out, Fragment{Text: line, X: x, Dy: dy, Style: st})
	}
	return out
}

// TSpans renders Layout's result as markup.
func TSpans(text string, x float64, maxLines int, st Style) string {
	var b strings.Builder
	for _, f := range Layout(text, x, maxLines, st) {
		fmt.Fprintf(&b, `<tspan x="%s" dy="%s" fill="%s" font-weight="%d" font-size="%s" font-family="%s">%s</tspan>`,
			Num(f.X), f.Dy, html.EscapeString(f.Fill), f.Weight, Num(f.Size), html.EscapeString(f.Family), html.EscapeString(f.Text))
		b.WriteByte('\n')
	}
	return b.String()
}

// Lines wraps by estimated width when maxWidth and size are set and the wrap
// fills all maxLines lines; otherwise words are divided evenly.
func Lines(text string, maxLines int, size, maxWidth float64) []string {
	if maxLines < 1 {
		maxLines = 1
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxWidth > 0 && size > 0 {
		if lines := wrap(words, maxLines, size, maxWidth); len(lines) >= maxLines {
			return lines
		}
	}
	return splitEven(words, maxLines)
}

func wrap(words []string, maxLines int, size, maxWidth float64) []string {
	var lines []string
	current := ""
	for _, w := range words {
		candidate := w
		if current != "" {
			candidate = current + " " + w
		}
		if current != "" && EstimateWidth(candidate, size) > maxWidth && len(lines) < maxLines-1 {
			lines = append(lines, current)
			current = w
			continue
		}
		current = candidate
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func splitEven(words []string, maxLines int) []string {
	base := len(words) / maxLines
	rem := len(words) % maxLines
	lines := make([]string, 0, maxLines)
	cursor := 0
	for i := 0; i < maxLines; i++ {
		n := base
		if i < rem {
			n++
		}
		if n == 0 {
			continue
		}
		lines = append(lines, strings.Join(words[cursor:cursor+n], " "))
		cursor += n
	}
	return lines
}

// EstimateWidth approximates the rendered width of s at the given font size.
func EstimateWidth(s string, size float64) float64 {
	w := 0.0
	for _, r := range s {
		w += size * glyphFactor(r)
	}
	return w
}

func glyphFactor(r rune) float64 {
	switch {
	case strings.ContainsRune(`iIlj1|!.,;:'"`, r):
		return 0.3
	case strings.ContainsRune("mwMW%", r):
		return 0.85
	case r >= 'A' && r <= 'Z', r >= 'À' && r <= 'Ý':
		return 0.72
	case r >= 'a' && r <= 'z', r >= 'à' && r <= 'ÿ':
		return 0.58
	default:
		return 0.6
	}
}

// Num formats a coordinate rounded to 1/1000 without trailing zeros.
func Num(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}
