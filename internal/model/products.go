package model

type Availability string

const (
	InStock           Availability = "in stock"
	OutOfStock        Availability = "out of stock"
	Preorder          Availability = "preorder"
	AvailableForOrder Availability = "available for order"
	Discontinued      Availability = "discontinued"
	// OffMarket marks a product archived for the rest of the day.
	OffMarket Availability = "off_market"
)

type GoalType string

const (
	GoalDaily   GoalType = "daily"
	GoalMonthly GoalType = "monthly"
)

type ProductMeta struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Price        string       `json:"price"`
	Link         string       `json:"link"`
	Availability Availability `json:"availability"`
	Condition    string       `json:"condition"`
	SalePrice    string       `json:"sale_price,omitempty"`
	Brand        Brand        `json:"brand"`
	Gender       string       `json:"gender,omitempty"`
	AgeGroup     string       `json:"age_group,omitempty"`
	CustomLabels [5]string    `json:"custom_labels"`
}

type ProductGoogle struct {
	ID                 string `json:"ID"`
	ID2                string `json:"ID2"`
	ItemTitle          string `json:"Item title"`
	FinalURL           string `json:"Final URL"`
	ImageURL           string `json:"Image URL"`
	AdditionalImageURL string `json:"Additional Image URL"`
	ItemSubtitle       string `json:"Item subtitle"`
	ItemDescription    string `json:"Item description"`
	ItemCategory       string `json:"Item category"`
	Price              string `json:"Price"`
	SalePrice          string `json:"Sale price"`
	ContextualKeywords string `json:"Contextual keywords"`
	FormattedPrice     string `json:"Formatted price"`
	FormattedSalePrice string `json:"Formatted sale price"`
}

type ProductTikTok struct {
	SKUID                 string    `json:"sku_id"`
	Title                 string    `json:"title"`
	Description           string    `json:"description"`
	Availability          string    `json:"availability"`
	Condition             string    `json:"condition"`
	Price                 float64   `json:"price"`
	SalePrice             *float64  `json:"sale_price,omitempty"`
	Link                  string    `json:"link"`
	ImageLink             string    `json:"image_link"`
	VideoLink             string    `json:"video_link,omitempty"`
	Brand                 Brand     `json:"brand"`
	GoogleProductCategory string    `json:"google_product_category,omitempty"`
	AdditionalImageLink   string    `json:"additional_image_link,omitempty"`
	AgeGroup              string    `json:"age_group,omitempty"`
	Gender                string    `json:"gender,omitempty"`
	ItemGroupID           string    `json:"item_group_id,omitempty"`
	CustomLabels          [5]string `json:"custom_labels"`
}

// Products holds one entity's listing for every ad platform.
type Products struct {
	Meta   ProductMeta   `json:"meta"`
	Google ProductGoogle `json:"google"`
	TikTok ProductTikTok `json:"tiktok"`
}
