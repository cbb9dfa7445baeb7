package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"google.golang.org/api/drive/v3"

	"dco-creatives/internal/logging"
)

const (
	maxSide      = 1200
	jpegQuality  = 70
	imageTimeout = 20 * time.Second
	videoTimeout = 60 * time.Second
	userAgent    = "Mozilla/5.0"
)

type Loader struct {
	root   string
	client *http.Client
	drive  *drive.Service
	log    *logging.Logger
	now    func() time.Time
}

type Option func(*Loader)

func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithDrive makes Drive links download through the Drive API, which also
// reaches files shared only with the service account.
func WithDrive(svc *drive.Service) Option {
	return func(l *Loader) { l.drive = svc }
}

func NewLoader(root string, log *logging.Logger, opts ...Option) *Loader {
	l := &Loader{
		root:   root,
		client: &http.Client{},
		log:    log,
		now:    time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load resolves every request. Failures are logged and the key is left out.
// Downloaded videos land in dir/videos.
func (l *Loader) Load(ctx context.Context, dir string, reqs []Request) Set {
	set := make(Set, len(reqs))
	for _, r := range reqs {
		a, err := l.LoadOne(ctx, dir, r)
		if err != nil {
			l.log.Warnf("assets: %s (%s): %v", r.Key, r.File, err)
			continue
		}
		if a != nil {
			set[r.Key] = a
		}
	}
	return set
}

func (l *Loader) LoadOne(ctx context.Context, dir string, r Request) (Asset, error) {
	if r.Kind == KindVideo {
		return l.loadVideo(ctx, dir, r)
	}
	if strings.TrimSpace(r.File) == "" {
		return nil, fmt.Errorf("empty file reference")
	}
	data, err := l.read(ctx, r.File)
	if err != nil {
		return nil, err
	}
	return encodeRaster(r.Key, data)
}

func (l *Loader) loadVideo(ctx context.Context, dir string, r Request) (Asset, error) {
	if r.File == "" {
		return nil, nil
	}
	if !IsRemote(r.File) {
		p := l.local(r.File)
		if _, err := os.Stat(p); err != nil {
			return nil, err
		}
		return &Video{Key: r.Key, Path: p}, nil
	}
	videos := filepath.Join(dir, "videos")
	if err := os.MkdirAll(videos, 0o755); err != nil {
		return nil, err
	}
	out := filepath.Join(videos, fmt.Sprintf("%s_%d.mp4", r.Key, l.now().UnixMilli()))
	if err := l.download(ctx, r.File, out); err != nil {
		os.Remove(out)
		return nil, err
	}
	return &Video{Key: r.Key, Path: out, SourceURL: r.File}, nil
}

func (l *Loader) local(file string) string {
	return filepath.Join(l.root, filepath.FromSlash(file))
}

func (l *Loader) read(ctx context.Context, file string) ([]byte, error) {
	if !IsRemote(file) {
		return os.ReadFile(l.local(file))
	}
	ctx, cancel := context.WithTimeout(ctx, imageTimeout)
	defer cancel()
	body, err := l.open(ctx, file)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

func (l *Loader) download(ctx context.Context, file, out string) error {
	ctx, cancel := context.WithTimeout(ctx, videoTimeout)
	defer cancel()
	body, err := l.open(ctx, file)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", out, err)
	}
	return f.Close()
}

// open streams a remote file, preferring the Drive API for Drive links when
// a service is configured.
func (l *Loader) open(ctx context.Context, file string) (io.ReadCloser, error) {
	if id, ok := DriveID(file); ok && l.drive != nil {
		resp, err := l.drive.Files.Get(id).SupportsAllDrives(true).Context(ctx).Download()
		if err == nil {
			return resp.Body, nil
		}
		l.log.Warnf("assets: drive api download %s failed, falling back to http: %v", id, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, NormalizeDriveURL(file), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("http %d for %s", resp.StatusCode, file)
	}
	return resp.Body, nil
}

// encodeRaster shrinks the image to fit maxSide and inlines it. PNG sources
// and images with transparency stay PNG, everything else becomes JPEG. The
// source format is sniffed from the bytes since Drive links carry no extension.
func encodeRaster(key string, data []byte) (*Raster, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	b := img.Bounds()
	if b.Dx() > maxSide || b.Dy() > maxSide {
		img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	}

	var (
		buf  bytes.Buffer
		mime string
	)
	if format == "png" || hasAlpha(img) {
		mime = "image/png"
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	} else {
		mime = "image/jpeg"
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	}
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	b = img.Bounds()
	return &Raster{
		Key:     key,
		DataURI: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:   b.Dx(),
		Height:  b.Dy(),
	}, nil
}

func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return true
}
