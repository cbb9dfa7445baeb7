package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"sync"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dco-creatives/internal"
	"dco-creatives/internal/logging"
	"dco-creatives/internal/model"
	"dco-creatives/internal/s3"
	"dco-creatives/internal/store"
)

var settings = internal.CatalogConfig{Enterprise: "NAOS", URL: "https://naos.com/pt-BR", Folder: "NAOS"}

func sampleRow() model.Row {
	return model.Row{
		ID:           "4411",
		Name:         "Sensibio H2O",
		Brand:        model.BrandBioderma,
		Price:        "R$ 49,90",
		Gender:       "female",
		AgeGroup:     "adult",
		Text1:        "Limpa",
		Text2:        "Sem enxague",
		Availability: model.InStock,
	}
}

func sampleBundle() model.MediaBundle {
	return model.MediaBundle{
		Images: []model.MediaItem{
			{URL: "https://cdn/1080x1080.png", Tag: []string{"1080x1080"}},
			{URL: "https://cdn/1080x1920.png", Tag: []string{"1080x1920"}},
			{URL: "https://cdn/300x250.png", Tag: []string{"300x250"}},
			{URL: "https://cdn/160x600.png", Tag: []string{"160x600"}},
			{URL: "https://cdn/728x90.png", Tag: []string{"728x90"}},
		},
		Videos: []model.MediaItem{
			{URL: "https://cdn/1080x1080.mp4", Tag: []string{"1080x1080"}},
			{URL: "https://cdn/1080x1920.mp4", Tag: []string{"1080x1920"}},
		},
	}
}

func TestParsePrice(t *testing.T) {
	cases := map[string]float64{
		"R$ 49,90": 49.9,
		"12":       12,
		"12.5":     12.5,
		"1.234,56": 1.234,
		"":         0,
		"grátis":   0,
	}
	for in, want := range cases {
		assert.InDelta(t, want, ParsePrice(in), 1e-9, in)
	}
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 12,50", FormatBRL(12.5))
	assert.Equal(t, "R$ 0,00", FormatBRL(0))
}

func TestBuildProducts(t *testing.T) {
	p := BuildProducts(sampleRow(), model.InStock, sampleBundle(), settings)

	assert.Equal(t, "49.90 BRL", p.Meta.Price)
	assert.Equal(t, settings.URL, p.Meta.Link, "missing link falls back to the catalog url")
	assert.Equal(t, "new", p.Meta.Condition)
	assert.Equal(t, model.InStock, p.Meta.Availability)
	assert.Equal(t, "Sensibio H2O", p.Meta.Description)

	assert.Equal(t, "4411", p.Google.ID2)
	assert.Equal(t, "https://cdn/300x250.png", p.Google.ImageURL)
	assert.Equal(t, "https://cdn/160x600.png, https://cdn/728x90.png", p.Google.AdditionalImageURL)
	assert.Equal(t, "R$ 49,90", p.Google.FormattedSalePrice)
	assert.Equal(t, "female, adult, Sensibio H2O", p.Google.ContextualKeywords)
	assert.Equal(t, "female", p.Google.ItemCategory)

	assert.Equal(t, "IN_STOCK", p.TikTok.Availability)
	assert.Equal(t, "NEW", p.TikTok.Condition)
	assert.InDelta(t, 49.9, p.TikTok.Price, 1e-9)
	assert.Equal(t, "https://cdn/1080x1920.png", p.TikTok.ImageLink)
	assert.Equal(t, "https://cdn/1080x1920.mp4", p.TikTok.VideoLink)
	assert.Equal(t, "Beauty > Ecommerce", p.TikTok.GoogleProductCategory)
}

func TestBuildProductsAvailability(t *testing.T) {
	row := sampleRow()
	row.Link = "https://shop/4411"

	p := BuildProducts(row, model.OutOfStock, model.MediaBundle{}, settings)
	assert.Equal(t, model.OutOfStock, p.Meta.Availability)
	assert.Equal(t, "OUT_OF_STOCK", p.TikTok.Availability)
	assert.Equal(t, "https://shop/4411", p.Google.FinalURL)
	assert.Empty(t, p.Google.ImageURL)
	assert.Empty(t, p.Google.AdditionalImageURL)

	row.Availability = model.OutOfStock
	p = BuildProducts(row, model.InStock, model.MediaBundle{}, settings)
	assert.Equal(t, model.OutOfStock, p.Meta.Availability, "the sheet can force a product out of stock")

	row.Availability = ""
	p = BuildProducts(row, model.Preorder, model.MediaBundle{}, settings)
	assert.Equal(t, "IN_STOCK", p.TikTok.Availability)

	row.Price = ""
	p = BuildProducts(row, model.InStock, model.MediaBundle{}, settings)
	assert.Equal(t, "0.00 BRL", p.Meta.Price)
	assert.Equal(t, "R$ 0,00", p.Google.Price)
}

func record(crm string) model.ProductRecord {
	row := sampleRow()
	row.ID = crm
	p := BuildProducts(row, model.InStock, sampleBundle(), settings)
	return model.ProductRecord{CRM: crm, Name: row.Name, Products: &p, Medias: sampleBundle()}
}

func TestMetaXML(t *testing.T) {
	body, err := MetaXML(settings, []model.ProductRecord{record("1")})
	require.NoError(t, err)
	out := string(body)

	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, "<link>https://naos.com/pt-BR/NAOS/meta.xml</link>")
	assert.Contains(t, out, "<price>49.90 BRL</price>")
	assert.Contains(t, out, "<url>https://cdn/1080x1920.mp4</url>")
	assert.NotContains(t, out, "300x250", "static banners are not Meta media")
	assert.NotContains(t, out, "sale_price")
}

func TestFeedsCSV(t *testing.T) {
	rec := record("1")
	sale := 39.9
	rec.Products.TikTok.SalePrice = &sale
	rec.Products.TikTok.Availability = "AVAILABLE_FOR_ORDER"

	body, err := TikTokCSV([]model.ProductRecord{rec})
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(body))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, tiktokColumns, rows[0])
	assert.Equal(t, "AVAILABLE FOR ORDER", rows[1][3])
	assert.Equal(t, "49.9 BRL", rows[1][5])
	assert.Equal(t, "39.9 BRL", rows[1][6])

	body, err = GoogleCSV([]model.ProductRecord{rec})
	require.NoError(t, err)
	rows, err = csv.NewReader(strings.NewReader(string(body))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, googleColumns, rows[0])
	assert.Equal(t, "https://cdn/160x600.png, https://cdn/728x90.png", rows[1][5])
}

type fakeStore struct {
	store.Store
	records []model.Record
	fail    bool
	opts    store.FindOptions
}

func (f *fakeStore) Find(_ context.Context, _ model.Table, opts store.FindOptions) store.Result {
	f.opts = opts
	if f.fail {
		return store.Result{Err: errors.New("down"), Message: "find products: down"}
	}
	return store.Result{Success: true, Data: f.records, Count: int64(len(f.records))}
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string]s3.Metadata
	fail    error
}

func (f *fakeStorage) PutBytes(_ context.Context, key string, _ []byte, meta s3.Metadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	if f.objects == nil {
		f.objects = map[string]s3.Metadata{}
	}
	f.objects[key] = meta
	return nil
}

func (f *fakeStorage) PublicURL(key string) string { return "https://cdn/" + key }

func TestPublish(t *testing.T) {
	st := &fakeStore{records: []model.Record{record("1"), record("2")}}
	storage := &fakeStorage{}
	pub := NewPublisher(settings, st, storage, logging.Nop())

	out, err := pub.Publish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/NAOS/meta.xml", out.Meta)
	assert.Equal(t, sq.NotEq{"products": nil}, st.opts.Filter)
	assert.Equal(t, []string{"updated DESC"}, st.opts.OrderBy)

	require.Len(t, storage.objects, 3)
	for _, key := range []string{"NAOS/meta.xml", "NAOS/google.csv", "NAOS/tiktok.csv"} {
		assert.Equal(t, "no-cache", storage.objects[key].CacheControl, key)
	}
}

func TestPublishNothing(t *testing.T) {
	storage := &fakeStorage{}
	out, err := NewPublisher(settings, &fakeStore{}, storage, logging.Nop()).Publish(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out.Meta)
	assert.Empty(t, storage.objects)
}

func TestPublishFailures(t *testing.T) {
	_, err := NewPublisher(settings, &fakeStore{fail: true}, &fakeStorage{}, logging.Nop()).Publish(context.Background())
	assert.ErrorContains(t, err, "down")

	st := &fakeStore{records: []model.Record{record("1")}}
	_, err = NewPublisher(settings, st, &fakeStorage{fail: errors.New("denied")}, logging.Nop()).Publish(context.Background())
	assert.ErrorContains(t, err, "denied")
}
