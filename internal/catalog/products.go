package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"dco-creatives/internal"
	"dco-creatives/internal/model"
)

const tiktokCategory = "Beauty > Ecommerce"

// Media tags each platform consumes.
var (
	MetaTags   = lo.Map(model.AnimatedSizes(), func(s model.CanvasSize, _ int) string { return s.Label() })
	GoogleTags = lo.Map(model.StaticSizes(), func(s model.CanvasSize, _ int) string { return s.Label() })
	TikTokTags = []string{"1080x1920"}
)

var tiktokAvailability = map[model.Availability]string{
	model.InStock:           "IN_STOCK",
	model.AvailableForOrder: "AVAILABLE",
	model.OutOfStock:        "OUT_OF_STOCK",
	model.Discontinued:      "DISCONTINUED",
}

var (
	priceJunk   = regexp.MustCompile(`[^\d.,]`)
	priceNumber = regexp.MustCompile(`^\d*\.?\d*`)
)

// ParsePrice reads a sheet price such as "R$ 49,90". Only the first comma
// becomes a decimal point and parsing stops at the first character that
// does not fit a decimal number. Unreadable prices are 0.
func ParsePrice(s string) float64 {
	clean := strings.Replace(priceJunk.ReplaceAllString(s, ""), ",", ".", 1)
	v, err := strconv.ParseFloat(priceNumber.FindString(clean), 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatBRL renders 12.5 as "R$ 12,50".
func FormatBRL(v float64) string {
	return "R$ " + strings.Replace(fmt.Sprintf("%.2f", v), ".", ",", 1)
}

// MetaAvailability lets the sheet force a product out of stock.
func MetaAvailability(row model.Row, rule model.Availability) model.Availability {
	if row.Availability == model.OutOfStock {
		return model.OutOfStock
	}
	return rule
}

// ProductMeta is the Meta listing for row. It depends only on the sheet
// and the goal rule, so it is also used to detect listing changes.
func ProductMeta(row model.Row, rule model.Availability, cfg internal.CatalogConfig) model.ProductMeta {
	return model.ProductMeta{
		ID:           row.ID,
		Title:        row.Name,
		Description:  row.Name,
		Price:        fmt.Sprintf("%.2f BRL", ParsePrice(row.Price)),
		Link:         lo.CoalesceOrEmpty(row.Link, cfg.URL),
		Availability: MetaAvailability(row, rule),
		Condition:    "new",
		Brand:        row.Brand,
		Gender:       row.Gender,
		AgeGroup:     row.AgeGroup,
	}
}

// BuildProducts derives the three platform listings from a row and the
// media generated for it.
func BuildProducts(row model.Row, rule model.Availability, bundle model.MediaBundle, cfg internal.CatalogConfig) model.Products {
	meta := ProductMeta(row, rule, cfg)
	price := ParsePrice(row.Price)
	formatted := FormatBRL(price)
	link := lo.CoalesceOrEmpty(row.Link, cfg.URL)

	google := bundle.Filter(GoogleTags).ImageURLs()
	tiktok := bundle.Filter(TikTokTags)

	availability, ok := tiktokAvailability[meta.Availability]
	if !ok {
		availability = "IN_STOCK"
	}

	return model.Products{
		Meta: meta,
		Google: model.ProductGoogle{
			ID:                 row.ID,
			ID2:                row.ID,
			ItemTitle:          row.Name,
			FinalURL:           link,
			ImageURL:           lo.FirstOrEmpty(google),
			AdditionalImageURL: strings.Join(lo.Drop(google, 1), ", "),
			ItemSubtitle:       row.Text1,
			ItemDescription:    row.Text2,
			ItemCategory:       row.Gender,
			Price:              formatted,
			SalePrice:          formatted,
			ContextualKeywords: fmt.Sprintf("%s, %s, %s", row.Gender, row.AgeGroup, row.Name),
			FormattedPrice:     formatted,
			FormattedSalePrice: formatted,
		},
		TikTok: model.ProductTikTok{
			SKUID:                 row.ID,
			Title:                 row.Name,
			Description:           row.Name,
			Availability:          availability,
			Condition:             "NEW",
			Price:                 price,
			Link:                  link,
			ImageLink:             lo.FirstOrEmpty(tiktok.ImageURLs()),
			VideoLink:             lo.FirstOrEmpty(tiktok.VideoURLs()),
			Brand:                 row.Brand,
			GoogleProductCategory: tiktokCategory,
			AgeGroup:              row.AgeGroup,
			Gender:                row.Gender,
		},
	}
}
