// Package render provides the page-renderer capability backed by a
// headless Chrome instance. Rendering a url returns the page html
// after client-side scripts have executed, which plain http fetching
// cannot provide for this quiz family.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("quiz.lib.render")

type Options struct {
	// ControlUrl attaches to an already running devtools endpoint
	// instead of launching a browser.
	ControlUrl string
	Headless   bool
	// NavigationTimeout bounds a single Render call, defaults to 60s.
	NavigationTimeout time.Duration
}

// Browser renders pages with a shared Chrome process. Every Render
// call gets its own tab, so concurrent chains do not interfere.
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	timeout  time.Duration
}

func NewBrowser(opts Options) (*Browser, error) {
	timeout := opts.NavigationTimeout
	if timeout == 0 {
		timeout = time.Second * 60
	}

	controlUrl := opts.ControlUrl
	var l *launcher.Launcher
	if controlUrl == "" {
		l = launcher.New().Headless(opts.Headless)
		var err error
		controlUrl, err = l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
	}

	browser := rod.New().ControlURL(controlUrl)
	if err := browser.Connect(); err != nil {
		if l != nil {
			l.Cleanup()
		}
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	slog.Info("browser renderer ready", "headless", opts.Headless, "control_url", controlUrl)
	return &Browser{
		browser:  browser,
		launcher: l,
		timeout:  timeout,
	}, nil
}

// Render opens a fresh tab, navigates it to url, waits for the load
// event and returns the resulting html.
func (b *Browser) Render(ctx context.Context, url string) (string, error) {
	ctx, span := tracer.Start(ctx, "Render")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	page, err := b.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		span.SetStatus(codes.Error, "failed to open page")
		return "", fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(b.timeout)

	if err := page.Navigate(url); err != nil {
		span.SetStatus(codes.Error, "failed to navigate")
		return "", fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		span.SetStatus(codes.Error, "load event never fired")
		return "", fmt.Errorf("wait for %s to load: %w", url, err)
	}

	html, err := page.HTML()
	if err != nil {
		span.SetStatus(codes.Error, "failed to read html")
		return "", fmt.Errorf("read html of %s: %w", url, err)
	}
	span.SetAttributes(attribute.Int("html_bytes", len(html)))
	return html, nil
}

func (b *Browser) Close() error {
	err := b.browser.Close()
	if b.launcher != nil {
		b.launcher.Cleanup()
	}
	return err
}
