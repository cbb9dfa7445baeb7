package templates

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"dco-creatives/internal/assets"
	"dco-creatives/internal/markup"
	"dco-creatives/internal/model"
)

type attr struct {
	name  string
	value string
}

func num(name string, v float64) attr { return attr{name, markup.Num(v)} }

func str(name, v string) attr { return attr{name, v} }

type svgDoc struct {
	b strings.Builder
}

func newSVG(s model.CanvasSize) *svgDoc {
	d := &svgDoc{}
	fmt.Fprintf(&d.b, `<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, s.W, s.H)
	d.b.WriteByte('\n')
	return d
}

func (d *svgDoc) attrs(as []attr) {
	for _, a := range as {
		d.b.WriteByte(' ')
		d.b.WriteString(a.name)
		d.b.WriteString(`="`)
		d.b.WriteString(html.EscapeString(a.value))
		d.b.WriteByte('"')
	}
}

// image draws r, or nothing when the asset did not load.
func (d *svgDoc) image(r *assets.Raster, as ...attr) {
	if r == nil {
		return
	}
	d.b.WriteString(`<image href="`)
	d.b.WriteString(r.DataURI)
	d.b.WriteByte('"')
	d.attrs(as)
	d.b.WriteString("/>\n")
}

// cover stretches r over the whole canvas.
func (d *svgDoc) cover(s model.CanvasSize, r *assets.Raster) {
	d.image(r, num("x", 0), num("y", 0), str("width", strconv.Itoa(s.W)), str("height", strconv.Itoa(s.H)))
}

// text wraps tspans in a text element hanging from its y coordinate.
func (d *svgDoc) text(spans string, as ...attr) {
	if strings.TrimSpace(spans) == "" {
		return
	}
	d.b.WriteString(`<text dominant-baseline="text-before-edge"`)
	d.attrs(as)
	d.b.WriteString(">\n")
	d.b.WriteString(spans)
	d.b.WriteString("</text>\n")
}

func (d *svgDoc) String() string {
	return d.b.String() + "</svg>\n"
}

// animatedBackground draws the static background unless a video sits
// underneath the frame.
func animatedBackground(d *svgDoc, s model.CanvasSize, in Inputs) {
	if in.BackgroundVideo == nil {
		d.cover(s, in.BackgroundStatic)
	}
}

func style(fill string, weight int, size float64, family string, lineHeight, first, maxWidth float64) markup.Style {
	return markup.Style{
		Fill:            fill,
		Weight:          weight,
		Size:            size,
		Family:          family,
		LineHeight:      lineHeight,
		FirstLineOffset: markup.Em(first),
		MaxWidth:        maxWidth,
	}
}

func spans(blocks ...string) string {
	return strings.Join(blocks, "")
}
