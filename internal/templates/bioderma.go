package templates

import (
	"fmt"

	"dco-creatives/internal/animate"
	"dco-creatives/internal/assets"
	"dco-creatives/internal/markup"
	"dco-creatives/internal/model"
)

const biodermaBlue = "#003B70"

type biodermaMotion struct {
	LogoY  float64
	TextL  float64
	TextY  float64
	ImageR float64
	ImageB float64
	ImageH float64
	// Story layouts anchor the product on the right half.
	Story bool
}

var biodermaMotionLayouts = map[int]biodermaMotion{
	1080: {LogoY: 40, TextL: 650, TextY: 120, ImageR: 450, ImageB: 20, ImageH: 650},
	1350: {LogoY: 65, TextL: 650, TextY: 220, ImageR: 450, ImageB: 20, ImageH: 780},
	1920: {LogoY: 80, TextL: 100, TextY: 1140, ImageR: 70, ImageB: 32, ImageH: 900, Story: true},
}

type biodermaStill struct {
	TextY  float64
	TextL  float64
	TextW  float64
	ImageR float64
	ImageB float64
	ImageH float64
	Shape  orientation
}

var biodermaStillLayouts = map[int]biodermaStill{
	250: {TextY: 50, TextL: 175, TextW: 100, ImageR: 140, ImageB: 10, ImageH: 180, Shape: boxed},
	600: {TextY: 340, TextL: 20, TextW: 100, ImageR: 160, ImageB: 275, ImageH: 180, Shape: vertical},
	90:  {TextY: 8, TextL: 210, TextW: 190, ImageR: 540, ImageB: -5, ImageH: 90, Shape: horizontal},
}

type bioderma struct{}

func (bioderma) Brand() model.Brand { return model.BrandBioderma }

func (bioderma) validate() error {
	if err := requireHeights("animated", biodermaMotionLayouts, model.AnimatedSizes()); err != nil {
		return err
	}
	return requireHeights("static", biodermaStillLayouts, model.StaticSizes())
}

func (bioderma) Background(s model.CanvasSize) string {
	return fmt.Sprintf("/background/bioderma_%dx%d.mp4", s.W, s.H)
}

func (bioderma) Requests(c model.Creative) []assets.Request {
	return brandRequests(c, "/logo/bioderma.png")
}

func (bioderma) imageAlign(l biodermaMotion) string {
	if l.Story {
		return "xMinYMid meet"
	}
	return "xMaxYMid meet"
}

func (bioderma) textBlock(c model.Creative, l biodermaMotion, headlineSize float64, bodyLines int) string {
	closing := 6.0
	if l.Story {
		closing = 3
	}
	return spans(
		markup.TSpans(c.Text1, l.TextL, 2, style(biodermaBlue, 700, headlineSize, gotham, 1.1, 1, 400)),
		markup.TSpans(c.Text2, l.TextL, bodyLines, style("#000000", 700, 28, gotham, 1.1, 2.5, 350)),
		markup.TSpans(c.Text3, l.TextL, 4, style("#000000", 300, 24, gotham, 1.1, 2.5, 300)),
		markup.TSpans(c.Text4, l.TextL, 3, style(biodermaBlue, 700, 32, gotham, 1.1, closing, 350)),
	)
}

func (b bioderma) Animated(s model.CanvasSize, f Frame, in Inputs) string {
	l := biodermaMotionLayouts[s.H]
	w, h := float64(s.W), float64(s.H)
	fade := animate.Opacity(f.Index, 25, 0)

	imageX := 0.0
	if l.Story {
		imageX = w / 2
	}

	d := newSVG(s)
	animatedBackground(d, s, in)
	d.image(in.raster("logo"),
		num("x", 0),
		num("y", animate.FromTop(f.Index, 25, l.LogoY, 0)),
		num("width", w),
		num("height", 80),
		num("opacity", fade),
	)
	d.image(in.raster("image"),
		num("x", animate.FromLeft(f.Index, 50, imageX, 0)),
		num("y", h-l.ImageH-l.ImageB),
		num("width", w-l.ImageR),
		num("height", l.ImageH),
		num("opacity", fade),
		str("preserveAspectRatio", b.imageAlign(l)),
	)
	d.text(b.textBlock(in.Creative, l, 40, 4),
		num("y", animate.FromTop(f.Index, 25, l.TextY, 0)),
		num("opacity", fade),
	)
	return d.String()
}

func (b bioderma) Thumbnail(s model.CanvasSize, in Inputs) (string, bool) {
	l := biodermaMotionLayouts[s.H]
	w, h := float64(s.W), float64(s.H)

	imageX := 0.0
	if l.Story {
		imageX = w / 1.8
	}

	d := newSVG(s)
	d.cover(s, in.BackgroundStatic)
	d.image(in.raster("logo"), num("x", 0), num("y", l.LogoY), num("width", w), num("height", 80))
	d.image(in.raster("image"),
		num("x", imageX),
		num("y", h-l.ImageH-l.ImageB),
		num("width", w-l.ImageR),
		num("height", l.ImageH),
		str("preserveAspectRatio", b.imageAlign(l)),
	)
	d.text(b.textBlock(in.Creative, l, 45, 3), num("y", l.TextY))
	return d.String(), true
}

func (bioderma) Static(s model.CanvasSize, in Inputs) string {
	l := biodermaStillLayouts[s.H]
	w, h := float64(s.W), float64(s.H)
	c := in.Creative

	width, align := w-l.ImageR, "xMaxYMid meet"
	if l.Shape == vertical {
		width, align = w, "xMidYMid meet"
	}

	d := newSVG(s)
	d.cover(s, in.BackgroundStatic)
	d.image(in.raster("image"),
		num("x", 0),
		num("y", h-l.ImageH-l.ImageB),
		num("width", width),
		num("height", l.ImageH),
		str("preserveAspectRatio", align),
	)

	if l.Shape == horizontal {
		right := l.TextL + l.TextW
		d.text(spans(
			markup.TSpans(c.Text1, l.TextL, 2, style(biodermaBlue, 700, 13, gotham, 1.1, 1, l.TextW)),
			markup.TSpans(c.Text2, l.TextL, 3, style("#000000", 700, 9, gotham, 1.1, 2, l.TextW)),
		), num("y", 0))
		d.text(spans(
			markup.TSpans(c.Text3, right, 4, style("#000000", 300, 7, gotham, 1.1, 1, l.TextW)),
			markup.TSpans(c.Text4, right, 2, style(biodermaBlue, 700, 11, gotham, 1.1, 1.5, l.TextW)),
		), num("y", l.TextY))
		return d.String()
	}

	d.text(spans(
		markup.TSpans(c.Text1, l.TextL, 2, style(biodermaBlue, 700, 13, gotham, 1.1, 1, l.TextW)),
		markup.TSpans(c.Text2, l.TextL, 4, style("#000000", 700, 9, gotham, 1.1, 2, l.TextW)),
		markup.TSpans(c.Text3, l.TextL, 5, style("#000000", 300, 7, gotham, 1.1, 2, l.TextW)),
		markup.TSpans(c.Text4, l.TextL, 3, style(biodermaBlue, 700, 11, gotham, 1.1, 2, l.TextW)),
	), num("y", l.TextY))
	return d.String()
}
