// Package templates holds the per-brand creative layouts. Every layout is a
// table keyed by canvas height and is checked against the size catalogue
// when the catalog loads.
package templates

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"dco-creatives/internal/assets"
	"dco-creatives/internal/model"
)

var ErrMissingLayout = errors.New("missing layout")

// Frame locates one animated frame inside a clip of Total frames.
type Frame struct {
	Index int
	Total int
}

// Inputs is everything a template draws from. Absent assets are skipped.
type Inputs struct {
	Creative         model.Creative
	Assets           assets.Set
	BackgroundVideo  *assets.Video
	BackgroundStatic *assets.Raster
}

func (in Inputs) raster(key string) *assets.Raster {
	r, _ := in.Assets.Raster(key)
	return r
}

type Template interface {
	Brand() model.Brand
	// Animated draws one frame. With a background video the frame is an
	// overlay and leaves the background transparent.
	Animated(size model.CanvasSize, f Frame, in Inputs) string
	// Thumbnail draws the poster used next to a video background. The
	// second result is false for brands without one.
	Thumbnail(size model.CanvasSize, in Inputs) (string, bool)
	Static(size model.CanvasSize, in Inputs) string
	Background(size model.CanvasSize) string
	Requests(c model.Creative) []assets.Request
}

type validator interface {
	validate() error
}

type Catalog map[model.Brand]Template

// Load builds the brand catalog and fails if any brand lacks a layout for
// one of the canvas sizes.
func Load() (Catalog, error) {
	c := Catalog{}
	for _, t := range []Template{bioderma{}, esthederm{}, etatpur{}} {
		if v, ok := t.(validator); ok {
			if err := v.validate(); err != nil {
				return nil, fmt.Errorf("%s: %w", t.Brand(), err)
			}
		}
		c[t.Brand()] = t
	}
	return c, nil
}

func (c Catalog) Lookup(b model.Brand) (Template, bool) {
	t, ok := c[model.Brand(model.Normalize(string(b)))]
	return t, ok
}

// requireHeights checks that table has an entry for every size in sizes.
func requireHeights[T any](name string, table map[int]T, sizes []model.CanvasSize) error {
	for _, s := range sizes {
		if _, ok := table[s.H]; !ok {
			return fmt.Errorf("%w: %s has no entry for %s", ErrMissingLayout, name, s.Label())
		}
	}
	return nil
}

func brandRequests(c model.Creative, logo string) []assets.Request {
	return []assets.Request{
		{Key: "image", File: c.Image, Kind: assets.KindImage},
		{Key: "logo", File: logo, Kind: assets.KindImage},
	}
}

type orientation int

const (
	boxed orientation = iota
	vertical
	horizontal
)

// Font is a typeface the templates reference by family name.
type Font struct {
	Family string
	File   string
	Weight int
}

const (
	geistLight    = "Geist Light"
	geistSemiBold = "Geist SemiBold"
	gotham        = "Gotham"
	roboto        = "Roboto"
	sourceSerif   = "Source Serif 4 18pt Light"
)

// Fonts lists the font files that must be installed before rendering.
var Fonts = []Font{
	{Family: geistLight, File: "Geist-Light.ttf", Weight: 300},
	{Family: geistSemiBold, File: "Geist-SemiBold.ttf", Weight: 600},
	{Family: gotham, File: "Gotham-Bold.ttf", Weight: 700},
	{Family: gotham, File: "Gotham-Book.ttf", Weight: 200},
	{Family: roboto, File: "Roboto-Bold.ttf", Weight: 700},
	{Family: roboto, File: "Roboto-Regular.ttf", Weight: 400},
	{Family: sourceSerif, File: "SourceSerif-Light.ttf", Weight: 300},
}

// FontFiles returns the file names of Fonts.
func FontFiles() []string {
	return lo.Uniq(lo.Map(Fonts, func(f Font, _ int) string { return f.File }))
}
