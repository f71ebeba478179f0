// internal/browser/snapshot/snapshot.go
package snapshot

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	cdpdom "github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-replay/internal/browser/dom"
	"github.com/xkilldash9x/scalpel-replay/internal/config"
)

// Capturer loads the rendered DOM of a live page through a headless Chrome
// and hands it over as a Document.
type Capturer struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
}

// New creates a Capturer using the browser settings in cfg.
func New(cfg config.BrowserConfig, logger *zap.Logger) *Capturer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Capturer{cfg: cfg, logger: logger.Named("snapshot")}
}

// Open returns the Document for source. URLs with an http, https or file
// scheme are rendered in the browser; anything else is read as an HTML file.
func (c *Capturer) Open(ctx context.Context, source string) (*dom.Document, error) {
	if !IsURL(source) {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open page: %w", err)
		}
		defer f.Close()
		doc, err := dom.Parse(f)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", source, err)
		}
		return doc, nil
	}
	return c.Capture(ctx, source)
}

// IsURL reports whether source names a page the browser should load.
func IsURL(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "file":
		return true
	}
	return false
}

// Capture navigates to pageURL, waits for the body and the configured settle
// time, and parses the serialized document.
func (c *Capturer) Capture(ctx context.Context, pageURL string) (*dom.Document, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(c.logger.Sugar().Debugf),
		chromedp.WithErrorf(c.logger.Sugar().Warnf))
	defer browserCancel()

	timeout := c.cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(browserCtx, timeout+c.cfg.SettleTime)
	defer cancel()

	start := time.Now()
	var markup, location string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(c.cfg.SettleTime),
		chromedp.Location(&location),
		chromedp.ActionFunc(func(ctx context.Context) error {
			root, err := cdpdom.GetDocument().WithDepth(-1).Do(ctx)
			if err != nil {
				return err
			}
			markup, err = cdpdom.GetOuterHTML().WithNodeID(root.NodeID).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to capture %s: %w", pageURL, err)
	}

	doc, err := dom.ParseString(markup)
	if err != nil {
		return nil, fmt.Errorf("failed to parse captured document: %w", err)
	}
	c.logger.Info("Captured page.",
		zap.String("url", location),
		zap.Int("bytes", len(markup)),
		zap.Duration("elapsed", time.Since(start)))
	return doc, nil
}

// allocatorOptions translates the browser config into chromedp allocator options.
func (c *Capturer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("headless", c.cfg.Headless),
	)
	for _, arg := range c.cfg.Args {
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}
	return opts
}
