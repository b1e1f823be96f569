package browser

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"replay-agent/internal/entity"
	"replay-agent/internal/selector"
)

// Session owns a launched browser and the currently active tab. All
// element lookups go through locator candidates, never cached handles,
// so a reloaded page never serves stale elements.
type Session struct {
	browser *rod.Browser
	page    *rod.Page
	log     *slog.Logger
}

// NewSession launches a browser with an isolated profile directory per
// run and opens a stealth page configured from cfg.
func NewSession(ctx context.Context, cfg entity.BrowserConfig, headless bool, runID string, log *slog.Logger) (*Session, error) {
	if log == nil {
		log = slog.Default()
	}

	dataDir := cfg.UserDataDir
	if dataDir == "" {
		dataDir = filepath.Join("user_data", "run_"+runID)
	}

	launch := launcher.New().
		Leakless(true).
		Headless(headless).
		UserDataDir(dataDir)

	controlURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("failed to create stealth page: %w", err)
	}

	scale := 1.0
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  cfg.ViewportWidth,
		Height: cfg.ViewportHeight,
		Scale:  &scale,
		Mobile: false,
	}); err != nil {
		log.Warn("failed to set viewport", "error", err)
	}

	if cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: cfg.UserAgent}); err != nil {
			log.Warn("failed to set user agent", "error", err)
		}
	}
	if len(cfg.ExtraHTTPHeaders) > 0 {
		var pairs []string
		for k, v := range cfg.ExtraHTTPHeaders {
			pairs = append(pairs, k, v)
		}
		if _, err := page.SetExtraHeaders(pairs); err != nil {
			log.Warn("failed to set extra headers", "error", err)
		}
	}

	return &Session{browser: browser, page: page, log: log}, nil
}

// Count reports how many elements on the active page match the
// candidate. It implements the resolver's probe.
func (s *Session) Count(ctx context.Context, c selector.Candidate) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	page := s.page.Context(probeCtx)
	switch c.Kind {
	case selector.KindXPath:
		els, err := page.ElementsX(c.Expr)
		if err != nil {
			return 0, err
		}
		return len(els), nil
	default:
		els, err := page.Elements(c.Expr)
		if err != nil {
			return 0, err
		}
		return len(els), nil
	}
}

// element looks up the single page element for an already resolved
// candidate.
func (s *Session) element(ctx context.Context, c selector.Candidate) (*rod.Element, error) {
	findCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	page := s.page.Context(findCtx)
	if c.Kind == selector.KindXPath {
		return page.ElementX(c.Expr)
	}
	return page.Element(c.Expr)
}

// HTML returns the full serialized document of the active tab.
func (s *Session) HTML(ctx context.Context) (string, error) {
	htmlCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.page.Context(htmlCtx).HTML()
}

// CurrentURL returns the location of the active tab, empty when the
// tab cannot be inspected.
func (s *Session) CurrentURL() string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (s *Session) Close() {
	if s.browser == nil {
		return
	}
	if err := s.browser.Close(); err != nil {
		s.log.Warn("failed to close browser", "error", err)
	}
}
