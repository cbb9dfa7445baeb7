package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dco-creatives/internal"
	"dco-creatives/internal/catalog"
	"dco-creatives/internal/goals"
	"dco-creatives/internal/logging"
	"dco-creatives/internal/model"
	"dco-creatives/internal/store"
	"dco-creatives/internal/templates"
)

type fakeRows []model.Row

func (f fakeRows) Rows(context.Context) []model.Row { return f }

type update struct {
	filter sq.Sqlizer
	patch  store.Patch
}

type fakeStore struct {
	store.Store
	mu       sync.Mutex
	records  map[string]model.ProductRecord
	updates  []update
	upserts  []model.ProductRecord
	deleted  []sq.Sqlizer
	findFail bool
}

func newStore(recs ...model.ProductRecord) *fakeStore {
	s := &fakeStore{records: map[string]model.ProductRecord{}}
	for _, r := range recs {
		s.records[r.CRM] = r
	}
	return s
}

func (s *fakeStore) Find(_ context.Context, _ model.Table, opts store.FindOptions) store.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findFail {
		return store.Result{Err: errors.New("down"), Message: "find products: down"}
	}
	var data []model.Record
	if eq, ok := opts.Filter.(sq.Eq); ok {
		if r, found := s.records[eq["crm"].(string)]; found {
			data = append(data, r)
		}
	} else {
		for _, r := range s.records {
			data = append(data, r)
		}
	}
	return store.Result{Success: true, Data: data, Count: int64(len(data))}
}

func (s *fakeStore) Update(_ context.Context, _ model.Table, filter sq.Sqlizer, patch store.Patch) store.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, update{filter, patch})
	return store.Result{Success: true, Count: 1}
}

func (s *fakeStore) Upsert(_ context.Context, _ sq.Sqlizer, create, _ model.Record) store.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := create.(model.ProductRecord)
	s.upserts = append(s.upserts, rec)
	return store.Result{Success: true, Data: []model.Record{rec}, Count: 1}
}

func (s *fakeStore) DeleteMany(_ context.Context, _ model.Table, filter sq.Sqlizer) store.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, filter)
	return store.Result{Success: true, Count: 1}
}

type fakeGoals struct {
	results map[string]goals.Result
	err     error
}

func (f fakeGoals) Evaluate(_ context.Context, crm string, _ int64) (goals.Result, error) {
	if f.err != nil {
		return goals.Result{}, f.err
	}
	if r, ok := f.results[crm]; ok {
		return r, nil
	}
	return goals.Result{Availability: model.InStock, Goal: model.GoalMonthly}, nil
}

type fakeGenerator struct {
	mu     sync.Mutex
	calls  []model.Identifier
	bundle model.MediaBundle
	panics bool
}

func (f *fakeGenerator) Generate(_ context.Context, id model.Identifier, _ templates.Template, _ model.Creative) model.MediaBundle {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()
	if f.panics {
		panic("boom")
	}
	return f.bundle
}

type fakePublisher struct {
	calls int
	err   error
}

func (f *fakePublisher) Publish(context.Context) (catalog.Published, error) {
	f.calls++
	return catalog.Published{Meta: "https://cdn/NAOS/meta.xml"}, f.err
}

type fakeStorage struct {
	folders []string
	reports map[string]any
}

func (f *fakeStorage) DeleteFolder(_ context.Context, prefix string) error {
	f.folders = append(f.folders, prefix)
	return nil
}

func (f *fakeStorage) WriteJSON(_ context.Context, key string, v any) error {
	if f.reports == nil {
		f.reports = map[string]any{}
	}
	f.reports[key] = v
	return nil
}

type fixture struct {
	store     *fakeStore
	goals     fakeGoals
	generator *fakeGenerator
	publisher *fakePublisher
	storage   *fakeStorage
	pipeline  *Pipeline
}

var cfg = internal.Config{
	Catalog:  internal.CatalogConfig{Enterprise: "NAOS", URL: "https://naos.com/pt-BR", Folder: "NAOS"},
	Pipeline: internal.PipelineConfig{ChangeDetection: internal.ChangeDetectionBroad},
}

func generated() model.MediaBundle {
	return model.MediaBundle{
		Images: []model.MediaItem{{URL: "https://cdn/new/1080x1920.png", Tag: []string{"1080x1920"}}},
		Videos: []model.MediaItem{{URL: "https://cdn/new/1080x1920.mp4", Tag: []string{"1080x1920"}}},
	}
}

func newFixture(t *testing.T, c internal.Config, rows []model.Row, recs ...model.ProductRecord) *fixture {
	t.Helper()
	tpls, err := templates.Load()
	require.NoError(t, err)
	f := &fixture{
		store:     newStore(recs...),
		goals:     fakeGoals{results: map[string]goals.Result{}},
		generator: &fakeGenerator{bundle: generated()},
		publisher: &fakePublisher{},
		storage:   &fakeStorage{},
	}
	f.pipeline = New(c, Deps{
		Rows:      fakeRows(rows),
		Store:     f.store,
		Goals:     &f.goals,
		Templates: tpls,
		Generator: f.generator,
		Publisher: f.publisher,
		Storage:   f.storage,
	}, logging.Nop())
	f.pipeline.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return f
}

func (f fakeGoals) set(crm string, a model.Availability) {
	f.results[crm] = goals.Result{Availability: a, Goal: model.GoalMonthly}
}

func row(id string) model.Row {
	return model.Row{
		ID:             id,
		Name:           "Sensibio H2O",
		Brand:          model.BrandBioderma,
		Price:          "49,90",
		Text1:          "Limpa",
		Text2:          "Demaquila",
		Image:          "/product/sensibio.png",
		LeadsPrevistos: "10",
	}
}

// stored is the record a previous cycle would have saved for r.
func stored(r model.Row) model.ProductRecord {
	medias := model.MediaBundle{
		Images: []model.MediaItem{{URL: "https://cdn/old/1080x1920.png", Tag: []string{"1080x1920"}}},
		Videos: []model.MediaItem{{URL: "https://cdn/old/1080x1920.mp4", Tag: []string{"1080x1920"}}},
	}
	p := catalog.BuildProducts(r, model.InStock, medias, cfg.Catalog)
	return model.ProductRecord{
		ID:           uuid.New(),
		CRM:          r.ID,
		Name:         r.Name,
		Availability: model.InStock,
		Products:     &p,
		Creative:     r.Creative(),
		Medias:       medias,
	}
}

func TestGoalReachedMarksOutOfStock(t *testing.T) {
	r := row("10")
	r.Availability = ""
	f := newFixture(t, cfg, []model.Row{r})
	f.goals.set("10", model.OutOfStock)

	rep, err := f.pipeline.Process(context.Background())
	require.NoError(t, err)

	require.Len(t, f.store.updates, 1)
	assert.Equal(t, sq.Eq{"crm": "10"}, f.store.updates[0].filter)
	assert.Equal(t, model.OutOfStock, f.store.updates[0].patch["availability"])
	assert.Empty(t, f.generator.calls, "no media is generated once the goal is reached")
	assert.Empty(t, f.store.upserts)
	assert.Equal(t, 1, rep.OutOfStock)
}

func TestGoalReachedUpdatesListings(t *testing.T) {
	r := row("10")
	f := newFixture(t, cfg, []model.Row{r}, stored(r))
	f.goals.set("10", model.OutOfStock)

	_, err := f.pipeline.Process(context.Background())
	require.NoError(t, err)

	require.Len(t, f.store.updates, 1)
	products, ok := f.store.updates[0].patch["products"].(model.Products)
	require.True(t, ok)
	assert.Equal(t, model.OutOfStock, products.Meta.Availability)
	assert.Equal(t, "OUT_OF_STOCK", products.TikTok.Availability)
}

func TestUnchangedRowReusesMedia(t *testing.T) {
	r := row("20")
	old := stored(r)
	r.Text1 = "  limpa "
	f := newFixture(t, cfg, []model.Row{r}, old)

	rep, err := f.pipeline.Process(context.Background())
	require.NoError(t, err)

	assert.Empty(t, f.generator.calls)
	require.Len(t, f.store.upserts, 1)
	saved := f.store.upserts[0]
	assert.Equal(t, old.ID, saved.ID)
	assert.Equal(t, old.Medias, saved.Medias)
	assert.Equal(t, "https://cdn/old/1080x1920.mp4", saved.Products.TikTok.VideoLink)
	assert.Equal(t, 1, rep.Unchanged)
}

func TestRestockedRowReusesMedia(t *testing.T) {
	r := row("21")
	old := stored(r)
	old.Availability = model.OutOfStock
	old.Products.Meta.Availability = model.OutOfStock
	old.Products.TikTok.Availability = "OUT_OF_STOCK"
	f := newFixture(t, cfg, []model.Row{r}, old)

	rep, err := f.pipeline.Process(context.Background())
	require.NoError(t, err)

	assert.Empty(t, f.generator.calls, "availability alone does not trigger rendering")
	require.Len(t, f.store.upserts, 1)
	saved := f.store.upserts[0]
	assert.Equal(t, old.Medias, saved.Medias)
	assert.Equal(t, model.InStock, saved.Products.Meta.Availability)
	assert.Equal(t, "IN_STOCK", saved.Products.TikTok.Availability)
	assert.Equal(t, 1, rep.Unchanged)
	assert.Zero(t, rep.Generated)
}

func TestChangedRowIsRegenerated(t *testing.T) {
	r := row("30")
	old := stored(r)
	r.Text2 = "Nova chamada"
	f := newFixture(t, cfg, []model.Row{r}, old)

	rep, err := f.pipeline.Process(context.Background())
	require.NoError(t, err)

	require.Len(t, f.generator.calls, 1)
	id := f.generator.calls[0]
	assert.Equal(t, "30", id.ID)
	assert.Equal(t, "1700000000000", id.Timestamp)
	assert.Equal(t, model.BrandBioderma, id.Brand)

	require.Len(t, f.store.upserts, 1)
	assert.Equal(t, generated(), f.store.upserts[0].Medias)
	assert.Equal(t, "Nova chamada", f.store.upserts[0].Creative.Text2)
	assert.Equal(t, 1, rep.Generated)
}

func TestNewRowIsGenerated(t *testing.T) {
	f := newFixture(t, cfg, []model.Row{row("31")})
	_, err := f.pipeline.Process(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.generator.calls, 1)
	require.Len(t, f.store.upserts, 1)
	assert.Equal(t, uuid.Nil, f.store.upserts[0].ID, "new records get their id from the store")
}

func TestChangeDetectionModes(t *testing.T) {
	r := row("40")
	old := stored(r)
	r.Price = "59,90"

	f := newFixture(t, cfg, []model.Row{r}, old)
	_, err := f.pipeline.Process(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.generator.calls, 1, "broad mode regenerates on a price change")

	creative := cfg
	creative.Pipeline.ChangeDetection = internal.ChangeDetectionCreative
	f = newFixture(t, creative, []model.Row{r}, old)
	_, err = f.pipeline.Process(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.generator.calls)
	require.Len(t, f.store.upserts, 1)
	assert.Equal(t, "59.90 BRL", f.store.upserts[0].Products.Meta.Price, "listings follow the sheet even without new media")
}

func TestNoVideoIsAFailure(t *testing.T) {
	f := newFixture(t, cfg, []model.Row{row("50")})
	f.generator.bundle = model.MediaBundle{Images: generated().Images}

	rep, err := f.pipeline.Process(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.store.upserts)
	assert.Equal(t, 1, rep.Failed)
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0], "50")
}

func TestRowsAreIsolated(t *testing.T) {
	bad := row("60")
	bad.LeadsPrevistos = "muitos"
	noGoal := row("61")
	noGoal.LeadsPrevistos = ""
	unknown := row("62")
	unknown.Brand = "LA ROCHE"
	off := row("63")
	offRec := stored(off)
	offRec.Availability = model.OffMarket

	f := newFixture(t, cfg, []model.Row{bad, noGoal, unknown, off, row("64")}, offRec)
	rep, err := f.pipeline.Process(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 3, rep.Skipped)
	assert.Equal(t, 1, rep.Generated)
	require.Len(t, f.generator.calls, 1)
	assert.Equal(t, "64", f.generator.calls[0].ID)
}

func TestPanicIsContained(t *testing.T) {
	f := newFixture(t, cfg, []model.Row{row("70"), row("71")})
	f.generator.panics = true

	rep, err := f.pipeline.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Failed)
	assert.Len(t, f.generator.calls, 2)
	assert.Equal(t, 1, f.publisher.calls)
}

func TestGoneProductsAreDeleted(t *testing.T) {
	keep := row("80")
	gone := stored(row("99"))
	f := newFixture(t, cfg, []model.Row{keep}, stored(keep), gone)

	rep, err := f.pipeline.Process(context.Background())
	require.NoError(t, err)
	require.Len(t, f.store.deleted, 1)
	assert.Equal(t, sq.Eq{"crm": []string{"99"}}, f.store.deleted[0])
	assert.Equal(t, []string{"NAOS/99"}, f.storage.folders)
	assert.Equal(t, 1, rep.Deleted)
}

func TestEmptySheetDeletesNothing(t *testing.T) {
	f := newFixture(t, cfg, nil, stored(row("80")))
	_, err := f.pipeline.Process(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.store.deleted)
	assert.Empty(t, f.storage.folders)
	assert.Equal(t, 1, f.publisher.calls)
}

func TestReportIsWritten(t *testing.T) {
	f := newFixture(t, cfg, []model.Row{row("90")})
	f.publisher.err = errors.New("denied")

	rep, err := f.pipeline.Process(context.Background())
	assert.ErrorContains(t, err, "denied")
	saved, ok := f.storage.reports["NAOS/report.json"].(Report)
	require.True(t, ok)
	assert.Equal(t, rep.Generated, saved.Generated)
	assert.Contains(t, saved.Errors[len(saved.Errors)-1], "denied")
}

func TestReset(t *testing.T) {
	a, b := stored(row("1")), stored(row("2"))
	f := newFixture(t, cfg, nil, a, b)

	require.NoError(t, f.pipeline.Reset(context.Background()))
	require.Len(t, f.store.updates, 2)
	for _, u := range f.store.updates {
		assert.Equal(t, model.OutOfStock, u.patch["availability"])
		assert.Contains(t, []sq.Sqlizer{sq.Eq{"id": a.ID}, sq.Eq{"id": b.ID}}, u.filter)
	}
	assert.Equal(t, 1, f.publisher.calls)
}

func TestStartRefusesConcurrentRuns(t *testing.T) {
	f := newFixture(t, cfg, nil)
	f.pipeline.runMux.Lock()
	assert.ErrorIs(t, f.pipeline.Start(context.Background(), JobPublish), ErrBusy)
	f.pipeline.runMux.Unlock()

	require.NoError(t, f.pipeline.Start(context.Background(), JobPublish))
	require.Eventually(t, func() bool {
		if !f.pipeline.runMux.TryLock() {
			return false
		}
		f.pipeline.runMux.Unlock()
		return true
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, f.publisher.calls)
}

func TestParseJob(t *testing.T) {
	j, err := ParseJob("reset")
	require.NoError(t, err)
	assert.Equal(t, JobReset, j)
	_, err = ParseJob("deploy")
	assert.Error(t, err)
}
