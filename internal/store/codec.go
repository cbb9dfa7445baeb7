package store

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"dco-creatives/internal/model"
)

const (
	colID           = "id"
	colCRM          = "crm"
	colName         = "name"
	colAvailability = "availability"
	colProducts     = "products"
	colCreative     = "creative"
	colMedias       = "medias"
	colCreated      = "created"
	colUpdated      = "updated"
)

type scanner interface {
	Scan(dest ...any) error
}

// codec converts one table's records to and from column values.
// It is the only place where row shapes are interpreted.
type codec interface {
	table() model.Table
	columns() []string
	encode(rec model.Record) (map[string]any, error)
	encodeValue(column string, v any) (any, error)
	decode(cols []string, row scanner) (model.Record, error)
}

var codecs = map[model.Table]codec{
	model.TableProducts: productCodec{},
	model.TableLeads:    leadCodec{},
}

func codecFor(t model.Table) (codec, error) {
	c, ok := codecs[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, t)
	}
	return c, nil
}

func checkColumns(c codec, cols []string) error {
	for _, col := range cols {
		if !slices.Contains(c.columns(), col) {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, c.table(), col)
		}
	}
	return nil
}

type productCodec struct{}

func (productCodec) table() model.Table { return model.TableProducts }

func (productCodec) columns() []string {
	return []string{colID, colCRM, colName, colAvailability, colProducts, colCreative, colMedias, colCreated, colUpdated}
}

func asProduct(rec model.Record) (model.ProductRecord, error) {
	switch r := rec.(type) {
	case model.ProductRecord:
		return r, nil
	case *model.ProductRecord:
		return *r, nil
	default:
		return model.ProductRecord{}, fmt.Errorf("%w: %T is not a product record", ErrWrongTable, rec)
	}
}

func (c productCodec) encode(rec model.Record) (map[string]any, error) {
	p, err := asProduct(rec)
	if err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	products, err := jsonOrNull(p.Products)
	if err != nil {
		return nil, err
	}
	creative, err := json.Marshal(p.Creative)
	if err != nil {
		return nil, err
	}
	medias, err := json.Marshal(normalizeBundle(p.Medias))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		colID:           p.ID,
		colCRM:          p.CRM,
		colName:         p.Name,
		colAvailability: string(p.Availability),
		colProducts:     products,
		colCreative:     string(creative),
		colMedias:       string(medias),
	}, nil
}

func (c productCodec) encodeValue(column string, v any) (any, error) {
	if err := checkColumns(c, []string{column}); err != nil {
		return nil, err
	}
	switch column {
	case colProducts:
		if p, ok := v.(model.Products); ok {
			v = &p
		}
		return jsonOrNull(v)
	case colCreative, colMedias:
		if b, ok := v.(model.MediaBundle); ok {
			v = normalizeBundle(b)
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(raw), nil
	case colAvailability:
		return fmt.Sprint(v), nil
	default:
		return v, nil
	}
}

func (c productCodec) decode(cols []string, row scanner) (model.Record, error) {
	var (
		rec                        model.ProductRecord
		availability               string
		products, creative, medias []byte
	)
	dest := make([]any, 0, len(cols))
	for _, col := range cols {
		switch col {
		case colID:
			dest = append(dest, &rec.ID)
		case colCRM:
			dest = append(dest, &rec.CRM)
		case colName:
			dest = append(dest, &rec.Name)
		case colAvailability:
			dest = append(dest, &availability)
		case colProducts:
			dest = append(dest, &products)
		case colCreative:
			dest = append(dest, &creative)
		case colMedias:
			dest = append(dest, &medias)
		case colCreated:
			dest = append(dest, &rec.Created)
		case colUpdated:
			dest = append(dest, &rec.Updated)
		default:
			return nil, fmt.Errorf("%w: products.%s", ErrUnknownColumn, col)
		}
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	rec.Availability = model.Availability(availability)
	if len(products) > 0 && string(products) != "null" {
		rec.Products = &model.Products{}
		if err := json.Unmarshal(products, rec.Products); err != nil {
			return nil, fmt.Errorf("decode products.products: %w", err)
		}
	}
	if len(creative) > 0 {
		if err := json.Unmarshal(creative, &rec.Creative); err != nil {
			return nil, fmt.Errorf("decode products.creative: %w", err)
		}
	}
	if len(medias) > 0 {
		if err := json.Unmarshal(medias, &rec.Medias); err != nil {
			return nil, fmt.Errorf("decode products.medias: %w", err)
		}
	}
	rec.Medias = normalizeBundle(rec.Medias)
	return rec, nil
}

type leadCodec struct{}

func (leadCodec) table() model.Table { return model.TableLeads }

func (leadCodec) columns() []string { return []string{colID, colCRM, colCreated} }

func (leadCodec) encode(rec model.Record) (map[string]any, error) {
	var l model.LeadRecord
	switch r := rec.(type) {
	case model.LeadRecord:
		l = r
	case *model.LeadRecord:
		l = *r
	default:
		return nil, fmt.Errorf("%w: %T is not a lead record", ErrWrongTable, rec)
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Created.IsZero() {
		l.Created = time.Now()
	}
	return map[string]any{colID: l.ID, colCRM: l.CRM, colCreated: l.Created}, nil
}

func (c leadCodec) encodeValue(column string, v any) (any, error) {
	if err := checkColumns(c, []string{column}); err != nil {
		return nil, err
	}
	return v, nil
}

func (leadCodec) decode(cols []string, row scanner) (model.Record, error) {
	var rec model.LeadRecord
	dest := make([]any, 0, len(cols))
	for _, col := range cols {
		switch col {
		case colID:
			dest = append(dest, &rec.ID)
		case colCRM:
			dest = append(dest, &rec.CRM)
		case colCreated:
			dest = append(dest, &rec.Created)
		default:
			return nil, fmt.Errorf("%w: leads.%s", ErrUnknownColumn, col)
		}
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return rec, nil
}

// jsonOrNull marshals v, mapping nil pointers to SQL NULL.
func jsonOrNull(v any) (any, error) {
	if p, ok := v.(*model.Products); ok && p == nil {
		return nil, nil
	}
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// normalizeBundle keeps JSON arrays non-null so feeds never see "null".
func normalizeBundle(b model.MediaBundle) model.MediaBundle {
	if b.Images == nil {
		b.Images = []model.MediaItem{}
	}
	if b.Videos == nil {
		b.Videos = []model.MediaItem{}
	}
	return b
}
