package templates

import (
	"fmt"

	"dco-creatives/internal/animate"
	"dco-creatives/internal/assets"
	"dco-creatives/internal/markup"
	"dco-creatives/internal/model"
)

// Animated ETAT PUR frames share one column of offsets; taller canvases
// shift the whole column down by Margin.
const (
	etatpurLogoY  = 50
	etatpurImageY = 270
	etatpurText1Y = 120
	etatpurText2Y = 600
	etatpurText3Y = 450
)

type etatpurMotion struct {
	Margin float64
	ImageH float64
}

var etatpurMotionLayouts = map[int]etatpurMotion{
	1080: {Margin: 0, ImageH: 1080 * 0.62},
	1350: {Margin: 20, ImageH: 1350 * 0.62},
	1920: {Margin: 350, ImageH: 1920 * 0.5},
}

type etatpurStill struct {
	Text1Y float64
	ImageX float64
	ImageY float64
	ImageW float64
	ImageH float64
	Text2X float64
	Text2Y float64
	Text3X float64
	Text3Y float64
	Shape  orientation
}

var etatpurStillLayouts = map[int]etatpurStill{
	250: {Text1Y: 27, ImageX: 0, ImageY: 65, ImageW: 300, ImageH: 250 * 0.63, Text2X: 65, Text2Y: 120, Text3X: 240, Text3Y: 120, Shape: boxed},
	600: {Text1Y: 85, ImageX: 0, ImageY: 150, ImageW: 160, ImageH: 600 * 0.4, Text2X: 80, Text2Y: 430, Text3X: 80, Text3Y: 530, Shape: vertical},
	90:  {Text1Y: 45, ImageX: 20, ImageY: 0, ImageW: 90, ImageH: 90, Text2X: 728 / 1.7, Text2Y: 20, Text3X: 728 / 1.2, Text3Y: 20, Shape: horizontal},
}

type etatpur struct{}

func (etatpur) Brand() model.Brand { return model.BrandEtatpur }

func (etatpur) validate() error {
	if err := requireHeights("animated", etatpurMotionLayouts, model.AnimatedSizes()); err != nil {
		return err
	}
	return requireHeights("static", etatpurStillLayouts, model.StaticSizes())
}

func (etatpur) Background(s model.CanvasSize) string {
	return fmt.Sprintf("/background/etatpur_%dx%d.png", s.W, s.H)
}

func (etatpur) Requests(c model.Creative) []assets.Request {
	return brandRequests(c, "/logo/etatpur.png")
}

func (etatpur) Animated(s model.CanvasSize, f Frame, in Inputs) string {
	l := etatpurMotionLayouts[s.H]
	w := float64(s.W)
	c := in.Creative
	fade := animate.Opacity(f.Index, 25, 0)
	at := func(y float64) float64 { return y + l.Margin }
	spaced := []attr{str("text-anchor", "middle"), num("opacity", fade), str("letter-spacing", "3px")}

	d := newSVG(s)
	animatedBackground(d, s, in)
	d.image(in.raster("logo"), num("x", 0), num("y", at(etatpurLogoY)), num("width", w), num("height", 64), num("opacity", fade))
	d.image(in.raster("image"),
		num("x", 0),
		num("y", animate.FromTop(f.Index, 50, at(etatpurImageY), 0)),
		num("width", w),
		num("height", l.ImageH),
	)
	d.text(markup.TSpans(c.Text1, w/2, 1, style("#000000", 700, 45, roboto, 1, 1, w/1.5)),
		append(spaced, num("y", at(etatpurText1Y)))...)
	d.text(markup.TSpans(c.Text2, w/4-40, 4, style("#000000", 400, 26, roboto, 1.2, 1, 250)),
		append(spaced, num("y", at(etatpurText2Y)))...)
	d.text(markup.TSpans(c.Text3, w/4*3+40, 4, style("#000000", 400, 26, roboto, 1.2, 1, 250)),
		append(spaced, num("y", at(etatpurText3Y)))...)
	d.text(markup.TSpans(c.Text4, w/2, 1, style("#000000", 700, 28, roboto, 1, 1, w/1.5)),
		append(spaced, num("y", at(etatpurImageY)+l.ImageH+30))...)
	return d.String()
}

func (etatpur) Thumbnail(model.CanvasSize, Inputs) (string, bool) { return "", false }

func (etatpur) Static(s model.CanvasSize, in Inputs) string {
	l := etatpurStillLayouts[s.H]
	w := float64(s.W)
	c := in.Creative

	text1Anchor, text1X := "middle", w/2
	if l.Shape == horizontal {
		text1Anchor, text1X = "start", 130
	}
	lines := 1
	if l.Shape == vertical {
		lines = 2
	}
	// the leaderboard has no room for text4, so it is pushed off canvas
	text4Y := l.ImageY + l.ImageH + 5
	if l.Shape == horizontal {
		text4Y = 1000
	}

	d := newSVG(s)
	d.cover(s, in.BackgroundStatic)
	d.image(in.raster("image"), num("x", l.ImageX), num("y", l.ImageY), num("width", l.ImageW), num("height", l.ImageH))
	d.text(markup.TSpans(c.Text1, text1X, lines, style("#000000", 700, 14, roboto, 1, 1, w/1.5)),
		str("text-anchor", text1Anchor), num("y", l.Text1Y), str("letter-spacing", "3px"))
	d.text(markup.TSpans(c.Text4, w/2, lines, style("#000000", 700, 6, roboto, 1.2, 1, w/1.5)),
		str("text-anchor", "middle"), num("y", text4Y), str("letter-spacing", "3px"))
	d.text(markup.TSpans(c.Text2, l.Text2X, 4, style("#000000", 400, 8, roboto, 1.2, 1, 80)),
		str("text-anchor", "middle"), num("y", l.Text2Y), str("letter-spacing", "3px"))
	d.text(markup.TSpans(c.Text3, l.Text3X, 4, style("#000000", 400, 8, roboto, 1.2, 1, 80)),
		str("text-anchor", "middle"), num("y", l.Text3Y), str("letter-spacing", "3px"))
	return d.String()
}
