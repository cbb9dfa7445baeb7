// Package render turns a brand template into uploaded creatives: one PNG
// per static size, one poster and one MP4 per animated size.
package render

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"dco-creatives/internal"
	"dco-creatives/internal/assets"
	"dco-creatives/internal/logging"
	"dco-creatives/internal/model"
	"dco-creatives/internal/s3"
	"dco-creatives/internal/templates"
)

type AssetLoader interface {
	Load(ctx context.Context, dir string, reqs []assets.Request) assets.Set
}

type Rasterizer interface {
	Rasterize(ctx context.Context, markup string, w, h int, opaque bool) ([]byte, error)
}

type Encoder interface {
	Encode(ctx context.Context, job EncodeJob) error
}

// Storage is the part of the object store the engine writes to.
type Storage interface {
	PutBytes(ctx context.Context, key string, b []byte, meta s3.Metadata) error
	PutFile(ctx context.Context, key, path string, meta s3.Metadata) error
	Delete(ctx context.Context, key string) error
	ListFolders(ctx context.Context, prefix string) ([]string, error)
	DeleteFolder(ctx context.Context, prefix string) error
	PublicURL(key string) string
}

const (
	keyBackground       = "background"
	keyBackgroundStatic = "backgroundStatic"
	cacheImmutable      = "public, max-age=31536000, immutable"
)

type Engine struct {
	cfg    internal.RenderConfig
	folder string
	loader AssetLoader
	raster Rasterizer
	enc    Encoder
	store  Storage
	log    *logging.Logger
}

func NewEngine(cfg internal.RenderConfig, folder string, loader AssetLoader, raster Rasterizer, enc Encoder, store Storage, log *logging.Logger) *Engine {
	return &Engine{cfg: cfg, folder: folder, loader: loader, raster: raster, enc: enc, store: store, log: log}
}

// Generate renders every canvas size for id. It never fails: a size that
// cannot be produced is logged and left out of the bundle.
func (e *Engine) Generate(ctx context.Context, id model.Identifier, tpl templates.Template, c model.Creative) (bundle model.MediaBundle) {
	bundle = model.MediaBundle{Images: []model.MediaItem{}, Videos: []model.MediaItem{}}
	e.log.Infof("render: %s (%s) started", id.ID, tpl.Brand())

	defer func() {
		if r := recover(); r != nil {
			e.log.Errorf("render: %s panicked: %v", id.ID, r)
		}
	}()

	root := filepath.Join(e.cfg.TempDir, id.ID+"-"+id.Timestamp)
	if err := os.MkdirAll(root, 0o755); err != nil {
		e.log.Errorf("render: %s: %v", id.ID, err)
		return bundle
	}
	defer func() {
		if err := os.RemoveAll(root); err != nil {
			e.log.Warnf("render: cleanup %s: %v", root, err)
		}
	}()

	prefix := path.Join(e.folder, id.ID)
	run := &run{
		Engine: e,
		id:     id,
		tpl:    tpl,
		root:   root,
		sub:    path.Join(prefix, id.Timestamp),
		in:     templates.Inputs{Creative: c, Assets: e.loader.Load(ctx, root, tpl.Requests(c))},
	}

	for _, size := range model.Sizes {
		if ctx.Err() != nil {
			e.log.Warnf("render: %s cancelled before %s", id.ID, size.Label())
			break
		}
		if size.Static {
			if item, ok := run.still(ctx, size); ok {
				bundle.Images = append(bundle.Images, item)
			}
			continue
		}
		if poster, video, ok := run.motion(ctx, size); ok {
			bundle.Images = append(bundle.Images, poster)
			bundle.Videos = append(bundle.Videos, video)
		}
	}

	if len(bundle.Videos) > 0 {
		e.Prune(ctx, prefix, id.Timestamp)
	}
	e.log.Infof("render: %s finished with %d images, %d videos", id.ID, len(bundle.Images), len(bundle.Videos))
	return bundle
}

// Prune deletes every generation folder under prefix except keep.
func (e *Engine) Prune(ctx context.Context, prefix, keep string) {
	folders, err := e.store.ListFolders(ctx, prefix)
	if err != nil {
		e.log.Errorf("render: list %s: %v", prefix, err)
		return
	}
	var result *multierror.Error
	for _, f := range folders {
		name := strings.TrimSuffix(f, "/")
		if path.Base(name) == keep {
			continue
		}
		e.log.Infof("render: removing stale generation %s", name)
		if err := e.store.DeleteFolder(ctx, name); err != nil {
			result = multierror.Append(result, fmt.Errorf("delete %s: %w", name, err))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		e.log.Errorf("render: prune %s: %v", prefix, err)
	}
}

// run is one Generate call's state.
type run struct {
	*Engine
	id   model.Identifier
	tpl  templates.Template
	root string
	sub  string
	in   templates.Inputs
}

// backgrounds resolves the size's background. Video backgrounds also try
// their same-named PNG as a still.
func (r *run) backgrounds(ctx context.Context, size model.CanvasSize) (*assets.Video, *assets.Raster) {
	file := strings.TrimSpace(r.tpl.Background(size))
	if file == "" {
		return nil, nil
	}
	reqs := []assets.Request{{Key: keyBackgroundStatic, File: file, Kind: assets.KindImage}}
	if assets.IsVideoSource(file) {
		reqs[0].File = assets.PosterPath(file)
		if !size.Static {
			reqs = append(reqs, assets.Request{Key: keyBackground, File: file, Kind: assets.KindVideo})
		}
	}
	set := r.loader.Load(ctx, r.root, reqs)
	video, _ := set.Video(keyBackground)
	still, _ := set.Raster(keyBackgroundStatic)
	return video, still
}

func meta(contentType, key string) s3.Metadata {
	return s3.Metadata{
		ContentType:        contentType,
		ContentDisposition: fmt.Sprintf("inline; filename=%q", path.Base(key)),
		CacheControl:       cacheImmutable,
	}
}

func (r *run) item(key string, size model.CanvasSize) model.MediaItem {
	return model.MediaItem{URL: r.store.PublicURL(key), Tag: []string{size.Label()}}
}

func (r *run) still(ctx context.Context, size model.CanvasSize) (model.MediaItem, bool) {
	label := size.Label()
	in := r.in
	_, in.BackgroundStatic = r.backgrounds(ctx, size)

	png, err := r.raster.Rasterize(ctx, r.tpl.Static(size, in), size.W, size.H, true)
	if err != nil {
		r.log.Errorf("render: %s %s: %v", r.id.ID, label, err)
		return model.MediaItem{}, false
	}
	key := path.Join(r.sub, label+".png")
	if err := r.store.PutBytes(ctx, key, png, meta("image/png", key)); err != nil {
		r.log.Errorf("render: upload %s: %v", key, err)
		return model.MediaItem{}, false
	}
	return r.item(key, size), true
}

func (r *run) motion(ctx context.Context, size model.CanvasSize) (poster, video model.MediaItem, ok bool) {
	label := size.Label()
	in := r.in
	in.BackgroundVideo, in.BackgroundStatic = r.backgrounds(ctx, size)

	frames := filepath.Join(r.root, "frames-"+label)
	if err := os.MkdirAll(frames, 0o755); err != nil {
		r.log.Errorf("render: %s %s: %v", r.id.ID, label, err)
		return poster, video, false
	}
	defer os.RemoveAll(frames)

	last, err := r.frames(ctx, frames, size, in)
	if err != nil {
		r.log.Errorf("render: %s %s: %v", r.id.ID, label, err)
		return poster, video, false
	}

	job := EncodeJob{
		FramePattern: filepath.Join(frames, "frame_%04d.png"),
		Output:       filepath.Join(r.root, label+".mp4"),
		FPS:          r.cfg.FPS,
		Duration:     r.cfg.Duration,
	}
	if in.BackgroundVideo != nil {
		job.BackgroundVideo = in.BackgroundVideo.Path
	} else if music := r.cfg.MusicPath(); fileExists(music) {
		job.Music = music
	} else {
		r.log.Warnf("render: soundtrack %s not found, encoding %s without audio", music, label)
	}
	if err := r.enc.Encode(ctx, job); err != nil {
		r.log.Errorf("render: encode %s %s: %v", r.id.ID, label, err)
		return poster, video, false
	}
	os.RemoveAll(frames)

	still := last
	if in.BackgroundVideo != nil {
		if doc, has := r.tpl.Thumbnail(size, in); has {
			if b, err := r.raster.Rasterize(ctx, doc, size.W, size.H, true); err == nil {
				still = b
			} else {
				r.log.Warnf("render: %s %s poster: %v, using last frame", r.id.ID, label, err)
			}
		}
	}

	imageKey := path.Join(r.sub, label+".png")
	videoKey := path.Join(r.sub, label+".mp4")
	var g errgroup.Group
	g.Go(func() error {
		return r.store.PutBytes(ctx, imageKey, still, meta("image/png", imageKey))
	})
	g.Go(func() error {
		return r.store.PutFile(ctx, videoKey, job.Output, meta("video/mp4", videoKey))
	})
	if err := g.Wait(); err != nil {
		r.log.Errorf("render: upload %s %s: %v", r.id.ID, label, err)
		// a lone poster or video must not outlive a failed pair
		for _, k := range []string{imageKey, videoKey} {
			if err := r.store.Delete(ctx, k); err != nil {
				r.log.Warnf("render: delete orphan %s: %v", k, err)
			}
		}
		return poster, video, false
	}
	return r.item(imageKey, size), r.item(videoKey, size), true
}

// frames writes every animated frame and returns the last one. Frames whose
// markup repeats the previous frame reuse its raster.
func (r *run) frames(ctx context.Context, dir string, size model.CanvasSize, in templates.Inputs) ([]byte, error) {
	total := r.cfg.TotalFrames()
	opaque := in.BackgroundVideo == nil

	var (
		prevDoc string
		prev    []byte
	)
	for i := 0; i < total; i++ {
		doc := r.tpl.Animated(size, templates.Frame{Index: i, Total: total}, in)
		if prev == nil || doc != prevDoc {
			b, err := r.raster.Rasterize(ctx, doc, size.W, size.H, opaque)
			if err != nil {
				return nil, fmt.Errorf("frame %d: %w", i, err)
			}
			prev, prevDoc = b, doc
		}
		name := filepath.Join(dir, fmt.Sprintf("frame_%04d.png", i))
		if err := os.WriteFile(name, prev, 0o644); err != nil {
			return nil, err
		}
	}
	return prev, nil
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
