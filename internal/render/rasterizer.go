package render

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"dco-creatives/internal/logging"
)

const frameTimeout = 30 * time.Second

const canvasPage = `<!DOCTYPE html>
<html><head><style>
html, body { margin: 0; padding: 0; overflow: hidden; background: transparent; }
img { display: block; }
</style></head><body><img id="frame"></body></html>`

// drawScript swaps the frame image and resolves once it is fully decoded,
// nested data URIs included.
const drawScript = `(async () => {
  document.body.style.background = %s;
  const img = document.getElementById("frame");
  img.width = %d;
  img.height = %d;
  img.src = %s;
  await document.fonts.ready;
  await img.decode();
  return true;
})()`

// Chrome rasterizes SVG markup to PNG in one long-lived headless tab.
type Chrome struct {
	mu          sync.Mutex
	execPath    string
	log         *logging.Logger
	tab         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
}

func NewChrome(execPath string, log *logging.Logger) *Chrome {
	return &Chrome{execPath: execPath, log: log}
}

func (c *Chrome) start() error {
	if c.tab != nil {
		return nil
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}

	c.log.Infof("[CHROME] starting headless browser")
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tab, tabCancel := chromedp.NewContext(allocCtx)

	err := chromedp.Run(tab,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, canvasPage).Do(ctx)
		}),
		emulation.SetDefaultBackgroundColorOverride().WithColor(&cdp.RGBA{R: 0, G: 0, B: 0, A: 0}),
	)
	if err != nil {
		tabCancel()
		allocCancel()
		return fmt.Errorf("start chrome: %w", err)
	}
	c.tab, c.tabCancel, c.allocCancel = tab, tabCancel, allocCancel
	return nil
}

// Rasterize renders markup at w x h. Opaque frames get a white page under
// them, others keep the alpha channel.
func (c *Chrome) Rasterize(ctx context.Context, markup string, w, h int, opaque bool) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.start(); err != nil {
		return nil, err
	}

	background := `"transparent"`
	if opaque {
		background = `"#ffffff"`
	}
	src, _ := json.Marshal("data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(markup)))
	script := fmt.Sprintf(drawScript, background, w, h, src)

	runCtx, cancel := context.WithTimeout(c.tab, frameTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var shot []byte
	err := chromedp.Run(runCtx,
		chromedp.EmulateViewport(int64(w), int64(h)),
		chromedp.Evaluate(script, nil, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			shot, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithClip(&page.Viewport{X: 0, Y: 0, Width: float64(w), Height: float64(h), Scale: 1}).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("rasterize %dx%d: %w", w, h, err)
	}
	return shot, nil
}

func (c *Chrome) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tab == nil {
		return
	}
	c.tabCancel()
	c.allocCancel()
	c.tab = nil
}
