package templates

import (
	"fmt"

	"dco-creatives/internal/animate"
	"dco-creatives/internal/assets"
	"dco-creatives/internal/markup"
	"dco-creatives/internal/model"
)

type esthedermMotion struct {
	LogoY  float64
	ImageY float64
	ImageH float64
	Text1Y float64
	Text2L float64
	Text2Y float64
	Text3L float64
}

var esthedermMotionLayouts = map[int]esthedermMotion{
	1080: {LogoY: 50, ImageY: 360, ImageH: 1080 * 0.5, Text1Y: 130, Text2L: 455, Text2Y: 600, Text3L: 625},
	1350: {LogoY: 130, ImageY: 425, ImageH: 1350 * 0.5, Text1Y: 210, Text2L: 430, Text2Y: 730, Text3L: 650},
	1920: {LogoY: 380, ImageY: 680, ImageH: 1920 * 0.43, Text1Y: 460, Text2L: 400, Text2Y: 1060, Text3L: 680},
}

type esthedermStill struct {
	ImageY float64
	ImageH float64
	Text1Y float64
	Text2Y float64
	Text2L float64
	Text3L float64
	Shape  orientation
}

var esthedermStillLayouts = map[int]esthedermStill{
	250: {ImageY: 85, ImageH: 250 * 0.55, Text1Y: 30, Text2Y: 130, Text2L: 120, Text3L: 180, Shape: boxed},
	600: {ImageY: 200, ImageH: 600 * 0.35, Text1Y: 110, Text2Y: 450, Text2L: 80, Text3L: 80, Shape: vertical},
	90:  {ImageY: 0, ImageH: 90, Text1Y: 15, Text2Y: 25, Text2L: 500, Text3L: 800, Shape: horizontal},
}

type esthederm struct{}

func (esthederm) Brand() model.Brand { return model.BrandEsthederm }

func (esthederm) validate() error {
	if err := requireHeights("animated", esthedermMotionLayouts, model.AnimatedSizes()); err != nil {
		return err
	}
	return requireHeights("static", esthedermStillLayouts, model.StaticSizes())
}

func (esthederm) Background(s model.CanvasSize) string {
	return fmt.Sprintf("/background/esthederm_%dx%d.png", s.W, s.H)
}

func (esthederm) Requests(c model.Creative) []assets.Request {
	return brandRequests(c, "/logo/esthederm.png")
}

func (esthederm) Animated(s model.CanvasSize, f Frame, in Inputs) string {
	l := esthedermMotionLayouts[s.H]
	w := float64(s.W)
	c := in.Creative
	fade := animate.Opacity(f.Index, 25, 0)

	d := newSVG(s)
	animatedBackground(d, s, in)
	d.image(in.raster("logo"), num("x", 0), num("y", l.LogoY), num("width", w), num("height", 80), num("opacity", fade))
	d.image(in.raster("image"),
		num("x", 0),
		num("y", animate.FromTop(f.Index, 50, l.ImageY, 0)),
		num("width", w),
		num("height", l.ImageH),
	)
	d.text(markup.TSpans(c.Text1, w/2, 2, style("#000000", 300, 45, sourceSerif, 1.1, 1, w/1.5)),
		str("text-anchor", "middle"), num("y", l.Text1Y), num("opacity", fade), str("font-style", "italic"))
	d.text(markup.TSpans(c.Text2, l.Text2L, 3, style("#000000", 300, 22, geistLight, 1.2, 1, 200)),
		str("text-anchor", "end"), num("y", l.Text2Y), num("opacity", fade), str("letter-spacing", "3px"))
	d.text(markup.TSpans(c.Text3, l.Text3L, 6, style("#000000", 700, 24, geistSemiBold, 1.2, 1, 180)),
		num("y", l.Text2Y-50), num("opacity", fade), str("letter-spacing", "3px"))
	d.text(markup.TSpans(c.Text4, w/2, 1, style("#000000", 700, 24, geistSemiBold, 1, 1, w/1.5)),
		str("text-anchor", "middle"), num("y", l.ImageY+l.ImageH+90), num("opacity", fade), str("letter-spacing", "3px"))
	return d.String()
}

func (esthederm) Thumbnail(model.CanvasSize, Inputs) (string, bool) { return "", false }

func (esthederm) Static(s model.CanvasSize, in Inputs) string {
	l := esthedermStillLayouts[s.H]
	w := float64(s.W)
	c := in.Creative

	text1X, text1Lines := w/2, 2
	if l.Shape == horizontal {
		text1X = 180
	}
	text2Anchor, text3Anchor, text3Y, text4Lines := "end", "start", l.Text2Y-10, 1
	if l.Shape == vertical {
		text1Lines, text4Lines = 4, 2
		text2Anchor, text3Anchor, text3Y = "middle", "middle", l.Text2Y+50
	}

	d := newSVG(s)
	d.cover(s, in.BackgroundStatic)
	d.image(in.raster("image"), num("x", 0), num("y", l.ImageY), num("width", w), num("height", l.ImageH))
	d.text(markup.TSpans(c.Text1, text1X, text1Lines, style("#000000", 300, 14, sourceSerif, 1.1, 1, w/1.5)),
		str("text-anchor", "middle"), num("y", l.Text1Y), str("font-style", "italic"))
	d.text(markup.TSpans(c.Text2, l.Text2L, 3, style("#000000", 300, 8, geistLight, 1.2, 1, w/1.5)),
		str("text-anchor", text2Anchor), num("y", l.Text2Y), str("letter-spacing", "3px"))
	d.text(markup.TSpans(c.Text3, l.Text3L, 6, style("#000000", 700, 7, geistSemiBold, 1.2, 1, 50)),
		str("text-anchor", text3Anchor), num("y", text3Y), str("letter-spacing", "3px"))
	d.text(markup.TSpans(c.Text4, w/2, text4Lines, style("#000000", 700, 6, geistSemiBold, 1.2, 1, w/1.2)),
		str("text-anchor", "middle"), num("y", l.ImageY+l.ImageH+5), str("letter-spacing", "3px"))
	return d.String()
}
