package model

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
)

type Brand string

const (
	BrandBioderma  Brand = "BIODERMA"
	BrandEsthederm Brand = "ESTHEDERM"
	BrandEtatpur   Brand = "ETATPUR"
)

// Identifier names one regeneration event. Timestamp versions the output folder.
type Identifier struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Brand     Brand  `json:"brand"`
}

type Creative struct {
	Text1 string `json:"text1"`
	Text2 string `json:"text2"`
	Text3 string `json:"text3"`
	Text4 string `json:"text4"`
	Image string `json:"image"`
}

// Normalize trims and upper-cases a value for change comparison.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Equal compares two creatives ignoring case and surrounding whitespace.
func (c Creative) Equal(o Creative) bool {
	return Normalize(c.Text1) == Normalize(o.Text1) &&
		Normalize(c.Text2) == Normalize(o.Text2) &&
		Normalize(c.Text3) == Normalize(o.Text3) &&
		Normalize(c.Text4) == Normalize(o.Text4) &&
		Normalize(c.Image) == Normalize(o.Image)
}

type CanvasSize struct {
	W      int
	H      int
	Static bool
}

func (s CanvasSize) Label() string {
	return fmt.Sprintf("%dx%d", s.W, s.H)
}

// Sizes is the fixed output catalogue, animated sizes first.
var Sizes = []CanvasSize{
	{W: 1080, H: 1080},
	{W: 1080, H: 1350},
	{W: 1080, H: 1920},
	{W: 300, H: 250, Static: true},
	{W: 160, H: 600, Static: true},
	{W: 728, H: 90, Static: true},
}

func AnimatedSizes() []CanvasSize {
	return lo.Filter(Sizes, func(s CanvasSize, _ int) bool { return !s.Static })
}

func StaticSizes() []CanvasSize {
	return lo.Filter(Sizes, func(s CanvasSize, _ int) bool { return s.Static })
}

// SizeLabels returns every label a MediaItem tag may carry.
func SizeLabels() []string {
	return lo.Map(Sizes, func(s CanvasSize, _ int) string { return s.Label() })
}

type MediaItem struct {
	URL string   `json:"url"`
	Tag []string `json:"tag"`
}

func (m MediaItem) HasAnyTag(tags []string) bool {
	return lo.SomeBy(m.Tag, func(t string) bool { return slices.Contains(tags, t) })
}

type MediaBundle struct {
	Images []MediaItem `json:"images"`
	Videos []MediaItem `json:"videos"`
}

// Filter keeps the items tagged with at least one of tags.
func (b MediaBundle) Filter(tags []string) MediaBundle {
	keep := func(m MediaItem, _ int) bool { return m.HasAnyTag(tags) }
	return MediaBundle{
		Images: lo.Filter(b.Images, keep),
		Videos: lo.Filter(b.Videos, keep),
	}
}

func (b MediaBundle) ImageURLs() []string {
	return lo.Map(b.Images, func(m MediaItem, _ int) string { return m.URL })
}

func (b MediaBundle) VideoURLs() []string {
	return lo.Map(b.Videos, func(m MediaItem, _ int) string { return m.URL })
}
