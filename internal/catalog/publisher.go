package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"dco-creatives/internal"
	"dco-creatives/internal/logging"
	"dco-creatives/internal/model"
	"dco-creatives/internal/s3"
	"dco-creatives/internal/store"
)

const (
	MetaFile   = "meta.xml"
	GoogleFile = "google.csv"
	TikTokFile = "tiktok.csv"
)

var googleColumns = []string{
	"ID", "ID2", "Item title", "Final URL", "Image URL", "Additional Image URL",
	"Item subtitle", "Item description", "Item category", "Price", "Sale price",
	"Contextual keywords", "Formatted price", "Formatted sale price",
}

var tiktokColumns = []string{
	"sku_id", "title", "description", "availability", "condition", "price", "sale_price",
	"link", "image_link", "video_link", "brand", "google_product_category",
	"additional_image_link", "age_group", "gender", "item_group_id",
	"custom_label_0", "custom_label_1", "custom_label_2", "custom_label_3", "custom_label_4",
}

type Storage interface {
	PutBytes(ctx context.Context, key string, b []byte, meta s3.Metadata) error
	PublicURL(key string) string
}

// Published lists the public URLs of the feeds of one publication.
type Published struct {
	Meta   string `json:"meta"`
	Google string `json:"google"`
	TikTok string `json:"tiktok"`
}

type Publisher struct {
	cfg   internal.CatalogConfig
	store store.Store
	s3    Storage
	log   *logging.Logger
}

func NewPublisher(cfg internal.CatalogConfig, st store.Store, storage Storage, log *logging.Logger) *Publisher {
	return &Publisher{cfg: cfg, store: st, s3: storage, log: log}
}

// Publish regenerates the three feeds from every product record that has
// listings. With no such record nothing is written and Published is empty.
func (p *Publisher) Publish(ctx context.Context) (Published, error) {
	res := p.store.Find(ctx, model.TableProducts, store.FindOptions{
		Filter:  sq.NotEq{"products": nil},
		OrderBy: []string{"updated DESC"},
	})
	if !res.Success {
		return Published{}, fmt.Errorf("load products: %s", res.Message)
	}
	records := lo.Filter(store.As[model.ProductRecord](res), func(r model.ProductRecord, _ int) bool {
		return r.Products != nil
	})
	if len(records) == 0 {
		p.log.Warnf("catalog: no products with listings, feeds not published")
		return Published{}, nil
	}

	meta, err := MetaXML(p.cfg, records)
	if err != nil {
		return Published{}, err
	}
	google, err := GoogleCSV(records)
	if err != nil {
		return Published{}, err
	}
	tiktok, err := TikTokCSV(records)
	if err != nil {
		return Published{}, err
	}

	files := []struct {
		name, contentType string
		body              []byte
	}{
		{MetaFile, "application/xml", meta},
		{GoogleFile, "text/csv", google},
		{TikTokFile, "text/csv", tiktok},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(func() error {
			return p.s3.PutBytes(gctx, p.key(f.name), f.body, s3.Metadata{
				ContentType:  f.contentType + "; charset=utf-8",
				CacheControl: "no-cache",
			})
		})
	}
	if err := g.Wait(); err != nil {
		return Published{}, fmt.Errorf("upload feeds: %w", err)
	}

	out := Published{
		Meta:   p.s3.PublicURL(p.key(MetaFile)),
		Google: p.s3.PublicURL(p.key(GoogleFile)),
		TikTok: p.s3.PublicURL(p.key(TikTokFile)),
	}
	p.log.Infof("catalog: published %d products: %s", len(records), out.Meta)
	return out, nil
}

func (p *Publisher) key(name string) string {
	return p.cfg.Folder + "/" + name
}

type metaFeed struct {
	XMLName     xml.Name      `xml:"listings"`
	Title       string        `xml:"title"`
	Link        string        `xml:"link"`
	Description string        `xml:"description"`
	Listings    []metaListing `xml:"listing"`
}

type metaListing struct {
	ID           string      `xml:"id"`
	Title        string      `xml:"title"`
	Description  string      `xml:"description"`
	Availability string      `xml:"availability"`
	Condition    string      `xml:"condition"`
	Price        string      `xml:"price"`
	Link         string      `xml:"link"`
	Brand        string      `xml:"brand"`
	SalePrice    string      `xml:"sale_price,omitempty"`
	Gender       string      `xml:"gender,omitempty"`
	AgeGroup     string      `xml:"age_group,omitempty"`
	Label0       string      `xml:"custom_label_0,omitempty"`
	Label1       string      `xml:"custom_label_1,omitempty"`
	Label2       string      `xml:"custom_label_2,omitempty"`
	Label3       string      `xml:"custom_label_3,omitempty"`
	Label4       string      `xml:"custom_label_4,omitempty"`
	Images       []metaMedia `xml:"image"`
	Videos       []metaMedia `xml:"video"`
}

type metaMedia struct {
	URL  string   `xml:"url"`
	Tags []string `xml:"tag"`
}

// MetaXML renders the Meta catalog feed. Only media tagged with a Meta
// size is listed.
func MetaXML(cfg internal.CatalogConfig, records []model.ProductRecord) ([]byte, error) {
	feed := metaFeed{
		Title:       cfg.Enterprise,
		Link:        fmt.Sprintf("%s/%s/%s", strings.TrimRight(cfg.URL, "/"), cfg.Folder, MetaFile),
		Description: cfg.Enterprise,
	}
	toMedia := func(m model.MediaItem, _ int) metaMedia { return metaMedia{URL: m.URL, Tags: m.Tag} }
	for _, r := range records {
		m := r.Products.Meta
		media := r.Medias.Filter(MetaTags)
		feed.Listings = append(feed.Listings, metaListing{
			ID:           m.ID,
			Title:        m.Title,
			Description:  m.Description,
			Availability: string(m.Availability),
			Condition:    m.Condition,
			Price:        m.Price,
			Link:         m.Link,
			Brand:        string(m.Brand),
			SalePrice:    m.SalePrice,
			Gender:       m.Gender,
			AgeGroup:     m.AgeGroup,
			Label0:       m.CustomLabels[0],
			Label1:       m.CustomLabels[1],
			Label2:       m.CustomLabels[2],
			Label3:       m.CustomLabels[3],
			Label4:       m.CustomLabels[4],
			Images:       lo.Map(media.Images, toMedia),
			Videos:       lo.Map(media.Videos, toMedia),
		})
	}
	body, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode meta feed: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func GoogleCSV(records []model.ProductRecord) ([]byte, error) {
	rows := lo.Map(records, func(r model.ProductRecord, _ int) []string {
		g := r.Products.Google
		return []string{
			g.ID, g.ID2, g.ItemTitle, g.FinalURL, g.ImageURL, g.AdditionalImageURL,
			g.ItemSubtitle, g.ItemDescription, g.ItemCategory, g.Price, g.SalePrice,
			g.ContextualKeywords, g.FormattedPrice, g.FormattedSalePrice,
		}
	})
	return writeCSV(googleColumns, rows)
}

func TikTokCSV(records []model.ProductRecord) ([]byte, error) {
	rows := lo.Map(records, func(r model.ProductRecord, _ int) []string {
		t := r.Products.TikTok
		sale := ""
		if t.SalePrice != nil {
			sale = brl(*t.SalePrice)
		}
		return append([]string{
			t.SKUID, t.Title, t.Description,
			strings.ReplaceAll(t.Availability, "_", " "),
			t.Condition, brl(t.Price), sale, t.Link, t.ImageLink, t.VideoLink,
			string(t.Brand), t.GoogleProductCategory, t.AdditionalImageLink,
			t.AgeGroup, t.Gender, t.ItemGroupID,
		}, t.CustomLabels[:]...)
	})
	return writeCSV(tiktokColumns, rows)
}

func brl(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + " BRL"
}

func writeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}
