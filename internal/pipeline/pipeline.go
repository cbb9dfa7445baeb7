package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/samber/lo"

	"dco-creatives/internal"
	"dco-creatives/internal/catalog"
	"dco-creatives/internal/goals"
	"dco-creatives/internal/logging"
	"dco-creatives/internal/model"
	"dco-creatives/internal/store"
	"dco-creatives/internal/templates"
)

var ErrBusy = errors.New("pipeline: a run is already in progress")

type Job string

const (
	JobProcess Job = "process"
	JobReset   Job = "reset"
	JobPublish Job = "publish"
)

func ParseJob(s string) (Job, error) {
	switch j := Job(s); j {
	case JobProcess, JobReset, JobPublish:
		return j, nil
	}
	return "", fmt.Errorf("unknown job %q", s)
}

type RowSource interface {
	Rows(ctx context.Context) []model.Row
}

type GoalEvaluator interface {
	Evaluate(ctx context.Context, crm string, monthlyGoal int64) (goals.Result, error)
}

type Templates interface {
	Lookup(b model.Brand) (templates.Template, bool)
}

type Generator interface {
	Generate(ctx context.Context, id model.Identifier, tpl templates.Template, c model.Creative) model.MediaBundle
}

type Publisher interface {
	Publish(ctx context.Context) (catalog.Published, error)
}

type Storage interface {
	DeleteFolder(ctx context.Context, prefix string) error
	WriteJSON(ctx context.Context, key string, v any) error
}

// Deps are the collaborators of a Pipeline. All of them are required.
type Deps struct {
	Rows      RowSource
	Store     store.Store
	Goals     GoalEvaluator
	Templates Templates
	Generator Generator
	Publisher Publisher
	Storage   Storage
}

type Pipeline struct {
	Deps
	catalog internal.CatalogConfig
	mode    string
	log     *logging.Logger
	now     func() time.Time

	runMux sync.Mutex
}

func New(cfg internal.Config, deps Deps, log *logging.Logger) *Pipeline {
	return &Pipeline{
		Deps:    deps,
		catalog: cfg.Catalog,
		mode:    cfg.Pipeline.ChangeDetection,
		log:     log,
		now:     time.Now,
	}
}

// Run executes job, waiting for any run in progress to finish first.
func (p *Pipeline) Run(ctx context.Context, job Job) error {
	p.runMux.Lock()
	defer p.runMux.Unlock()
	return p.run(ctx, job)
}

// Start executes job in the background. It returns ErrBusy instead of
// waiting when another run holds the pipeline.
func (p *Pipeline) Start(ctx context.Context, job Job) error {
	if !p.runMux.TryLock() {
		return ErrBusy
	}
	go func() {
		defer p.runMux.Unlock()
		if err := p.run(ctx, job); err != nil {
			p.log.Errorf("pipeline: %s: %v", job, err)
		}
	}()
	return nil
}

func (p *Pipeline) run(ctx context.Context, job Job) error {
	switch job {
	case JobProcess:
		_, err := p.process(ctx)
		return err
	case JobReset:
		return p.reset(ctx)
	case JobPublish:
		_, err := p.Publisher.Publish(ctx)
		return err
	}
	return fmt.Errorf("unknown job %q", job)
}

// Process runs one full cycle over the sheet and republishes the feeds.
func (p *Pipeline) Process(ctx context.Context) (Report, error) {
	p.runMux.Lock()
	defer p.runMux.Unlock()
	return p.process(ctx)
}

// Reset takes every product out of stock and republishes the feeds.
func (p *Pipeline) Reset(ctx context.Context) error {
	p.runMux.Lock()
	defer p.runMux.Unlock()
	return p.reset(ctx)
}

func (p *Pipeline) process(ctx context.Context) (Report, error) {
	rep := Report{Started: p.now()}
	rows := p.Rows.Rows(ctx)
	rep.Rows = len(rows)
	p.log.Infof("pipeline: processing %d rows", len(rows))

	if len(rows) == 0 {
		p.log.Warnf("pipeline: sheet returned no rows, skipping deletions")
	} else {
		rep.Deleted = p.prune(ctx, rows)
	}

	for _, row := range rows {
		if ctx.Err() != nil {
			p.log.Warnf("pipeline: cancelled after %d rows", rep.total())
			break
		}
		out, err := p.processRow(ctx, row)
		rep.add(row.ID, out, err)
		if err != nil {
			p.log.Errorf("pipeline: row %s: %v", row.ID, err)
		}
	}

	feeds, err := p.Publisher.Publish(ctx)
	if err != nil {
		err = fmt.Errorf("publish feeds: %w", err)
		rep.Errors = append(rep.Errors, err.Error())
	}
	rep.Feeds = feeds
	rep.Finished = p.now()
	p.writeReport(ctx, rep)
	p.log.Infof("pipeline: done in %s: %s", rep.Finished.Sub(rep.Started).Round(time.Second), rep.summary())
	return rep, err
}

// prune deletes stored products whose crm no longer appears in the sheet,
// together with their media folder.
func (p *Pipeline) prune(ctx context.Context, rows []model.Row) int {
	res := p.Store.Find(ctx, model.TableProducts, store.FindOptions{SelectFields: []string{"crm"}})
	if !res.Success {
		p.log.Errorf("pipeline: load stored products: %s", res.Message)
		return 0
	}
	inSheet := lo.SliceToMap(rows, func(r model.Row) (string, struct{}) { return model.Digits(r.ID), struct{}{} })
	stale := lo.FilterMap(store.As[model.ProductRecord](res), func(r model.ProductRecord, _ int) (string, bool) {
		_, ok := inSheet[model.Digits(r.CRM)]
		return r.CRM, !ok
	})
	if len(stale) == 0 {
		return 0
	}

	del := p.Store.DeleteMany(ctx, model.TableProducts, sq.Eq{"crm": stale})
	if !del.Success {
		p.log.Errorf("pipeline: delete %d stale products: %s", len(stale), del.Message)
		return 0
	}
	for _, crm := range stale {
		folder := path.Join(p.catalog.Folder, crm)
		if err := p.Storage.DeleteFolder(ctx, folder); err != nil {
			p.log.Warnf("pipeline: remove media of %s: %v", crm, err)
		}
	}
	p.log.Infof("pipeline: removed %d products missing from the sheet", len(stale))
	return len(stale)
}

// processRow handles one sheet row. Panics are turned into errors so the
// next row still runs.
func (p *Pipeline) processRow(ctx context.Context, row model.Row) (out outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = outcomeFailed, fmt.Errorf("panic: %v", r)
		}
	}()

	if row.ID == "" || row.LeadsPrevistos == "" {
		p.log.Debugf("pipeline: skipping row %q without id or goal", row.Name)
		return outcomeSkipped, nil
	}
	goal, err := goals.ParseGoal(row.LeadsPrevistos)
	if err != nil {
		return outcomeFailed, err
	}

	existing, found, err := p.find(ctx, row.ID)
	if err != nil {
		return outcomeFailed, err
	}

	rule, err := p.Goals.Evaluate(ctx, row.ID, goal)
	if err != nil {
		return outcomeFailed, fmt.Errorf("evaluate goal: %w", err)
	}
	if rule.Availability == model.OutOfStock {
		if err := p.markOutOfStock(ctx, existing, sq.Eq{"crm": row.ID}); err != nil {
			return outcomeFailed, err
		}
		p.log.Infof("pipeline: %s reached its %s goal of %d leads", row.ID, rule.Goal, goal)
		return outcomeOutOfStock, nil
	}

	if found && existing.Availability == model.OffMarket {
		p.log.Debugf("pipeline: %s is off market until the nightly reset", row.ID)
		return outcomeSkipped, nil
	}

	tpl, ok := p.Templates.Lookup(row.Brand)
	if !ok {
		p.log.Warnf("pipeline: %s has unknown brand %q", row.ID, row.Brand)
		return outcomeSkipped, nil
	}

	out = outcomeUnchanged
	bundle := existing.Medias
	if !found || p.changed(existing, row, rule.Availability) {
		id := model.Identifier{ID: row.ID, Timestamp: strconv.FormatInt(p.now().UnixMilli(), 10), Brand: tpl.Brand()}
		bundle = p.Generator.Generate(ctx, id, tpl, row.Creative())
		if len(bundle.Videos) == 0 {
			return outcomeFailed, errors.New("no video was generated")
		}
		out = outcomeGenerated
	}

	products := catalog.BuildProducts(row, rule.Availability, bundle, p.catalog)
	rec := model.ProductRecord{
		ID:           existing.ID,
		CRM:          row.ID,
		Name:         row.Name,
		Availability: rule.Availability,
		Products:     &products,
		Creative:     row.Creative(),
		Medias:       bundle,
	}
	if res := p.Store.Upsert(ctx, sq.Eq{"crm": row.ID}, rec, rec); !res.Success {
		return outcomeFailed, fmt.Errorf("save product: %s", res.Message)
	}
	return out, nil
}

func (p *Pipeline) find(ctx context.Context, crm string) (model.ProductRecord, bool, error) {
	res := p.Store.Find(ctx, model.TableProducts, store.FindOptions{
		Filter:      sq.Eq{"crm": crm},
		ExpectFirst: true,
	})
	if !res.Success {
		return model.ProductRecord{}, false, fmt.Errorf("load product: %s", res.Message)
	}
	recs := store.As[model.ProductRecord](res)
	if len(recs) == 0 {
		return model.ProductRecord{}, false, nil
	}
	return recs[0], true, nil
}

// changed reports whether the row needs new media. Records without listings
// always do. Availability never reaches the markup and is left out.
func (p *Pipeline) changed(rec model.ProductRecord, row model.Row, rule model.Availability) bool {
	if rec.Products == nil || !rec.Creative.Equal(row.Creative()) {
		return true
	}
	if p.mode == internal.ChangeDetectionCreative {
		return false
	}
	old, cur := rec.Products.Meta, catalog.ProductMeta(row, rule, p.catalog)
	same := func(a, b string) bool { return model.Normalize(a) == model.Normalize(b) }
	return !same(rec.CRM, row.ID) ||
		!same(old.Title, cur.Title) ||
		!same(string(old.Brand), string(cur.Brand)) ||
		!same(old.Price, cur.Price) ||
		!same(old.Link, cur.Link)
}

// markOutOfStock updates the availability column and, when rec has
// listings, the listings the feeds are built from.
func (p *Pipeline) markOutOfStock(ctx context.Context, rec model.ProductRecord, filter sq.Sqlizer) error {
	patch := store.Patch{"availability": model.OutOfStock}
	if rec.Products != nil {
		products := *rec.Products
		products.Meta.Availability = model.OutOfStock
		products.TikTok.Availability = "OUT_OF_STOCK"
		patch["products"] = products
	}
	if res := p.Store.Update(ctx, model.TableProducts, filter, patch); !res.Success {
		return fmt.Errorf("mark out of stock: %s", res.Message)
	}
	return nil
}

func (p *Pipeline) reset(ctx context.Context) error {
	res := p.Store.Find(ctx, model.TableProducts, store.FindOptions{SelectFields: []string{"id", "crm", "products"}})
	if !res.Success {
		return fmt.Errorf("load products: %s", res.Message)
	}
	records := store.As[model.ProductRecord](res)
	var failed int
	for _, rec := range records {
		if err := p.markOutOfStock(ctx, rec, sq.Eq{"id": rec.ID}); err != nil {
			p.log.Errorf("pipeline: reset %s: %v", rec.CRM, err)
			failed++
		}
	}
	p.log.Infof("pipeline: reset %d products out of stock", len(records)-failed)
	if _, err := p.Publisher.Publish(ctx); err != nil {
		return fmt.Errorf("publish feeds: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("reset: %d of %d products not updated", failed, len(records))
	}
	return nil
}

func (p *Pipeline) writeReport(ctx context.Context, rep Report) {
	key := path.Join(p.catalog.Folder, ReportFile)
	if err := p.Storage.WriteJSON(ctx, key, rep); err != nil {
		p.log.Warnf("pipeline: write report: %v", err)
	}
}
