package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"replay-agent/internal/selector"
)

// Click clicks the element behind a resolved candidate. If the native
// click fails it falls back to a JS-dispatched click, and if the click
// spawned a new tab the session switches to it.
func (s *Session) Click(ctx context.Context, c selector.Candidate) error {
	el, err := s.element(ctx, c)
	if err != nil {
		return fmt.Errorf("element not found for %s: %w", c, err)
	}

	pagesBefore, _ := s.browser.Pages()
	existingIDs := make(map[string]bool)
	for _, p := range pagesBefore {
		info, err := p.Info()
		if err == nil {
			existingIDs[string(info.TargetID)] = true
		}
	}

	highlightCtx, highlightCancel := context.WithTimeout(ctx, 2*time.Second)
	defer highlightCancel()
	_, _ = el.Context(highlightCtx).Eval(HighlightClickScript)

	clickCtx, clickCancel := context.WithTimeout(ctx, 5*time.Second)
	defer clickCancel()

	err = el.Context(clickCtx).Click(proto.InputMouseButtonLeft, 1)
	if err != nil {
		s.log.Warn("native click failed, trying JS click", "locator", c.Expr, "error", err)
		if jsErr := s.forceClickJS(ctx, el); jsErr != nil {
			return fmt.Errorf("all click methods failed: %w", jsErr)
		}
	}

	if newPage := s.waitForNewTab(existingIDs, 3*time.Second); newPage != nil {
		s.log.Info("click opened a new tab", "url", safeGetURL(newPage))
		s.activatePage(newPage)
	} else {
		s.safeWaitLoad(2 * time.Second)
	}

	return nil
}

func (s *Session) forceClickJS(ctx context.Context, el *rod.Element) error {
	jsCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := el.Context(jsCtx).Eval(`() => {
		this.click();
		this.dispatchEvent(new MouseEvent('click', {bubbles: true}));
	}`)
	return err
}

// Fill replaces the content of the element behind a resolved candidate
// with text. The text may contain substituted secrets, so it never
// appears in logs.
func (s *Session) Fill(ctx context.Context, c selector.Candidate, text string) error {
	el, err := s.element(ctx, c)
	if err != nil {
		return fmt.Errorf("element not found for %s: %w", c, err)
	}

	highlightCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, _ = el.Context(highlightCtx).Eval(HighlightTypeScript)

	if err := el.SelectAllText(); err != nil {
		s.log.Warn("failed to select existing text", "locator", c.Expr, "error", err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("text input failed: %w", err)
	}
	return nil
}

// Navigate loads url in the active tab. The error is returned as rod
// produced it so callers can recognize transient network failures.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := s.page.Context(navCtx).Navigate(url); err != nil {
		return err
	}
	s.safeWaitLoad(5 * time.Second)
	s.log.Info("navigation complete", "url", s.CurrentURL())
	return nil
}

// SwitchTab activates the open tab at index, in browser page order.
func (s *Session) SwitchTab(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pages, err := s.browser.Pages()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(pages) {
		return fmt.Errorf("tab index %d out of range, %d tabs open", index, len(pages))
	}
	s.activatePage(pages[index])
	return nil
}

// Scroll moves the viewport up or down. A zero amount scrolls by 70%
// of the window height, otherwise by amount pixels.
func (s *Session) Scroll(ctx context.Context, direction string, amount int) error {
	script := ScrollDownScript
	if direction == "up" {
		script = ScrollUpScript
	}
	if amount > 0 {
		px := amount
		if direction == "up" {
			px = -px
		}
		script = fmt.Sprintf(`() => { window.scrollBy(0, %d); return true; }`, px)
	}

	scrollCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := s.page.Context(scrollCtx).Eval(script)
	time.Sleep(300 * time.Millisecond)
	return err
}

func (s *Session) waitForNewTab(existingIDs map[string]bool, timeout time.Duration) *rod.Page {
	deadline := time.After(timeout)
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			return nil
		case <-ticker.C:
			pages, err := s.browser.Pages()
			if err != nil {
				continue
			}
			for _, p := range pages {
				info, err := p.Info()
				if err != nil {
					continue
				}
				if !existingIDs[string(info.TargetID)] {
					return p
				}
			}
		}
	}
}

// safeWaitLoad waits for page load but never blocks past its timeout:
// rod can panic on dead pages mid wait.
func (s *Session) safeWaitLoad(timeout time.Duration) {
	done := make(chan bool, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Warn("panic while waiting for page load", "panic", r)
			}
			done <- true
		}()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.page.Context(ctx).WaitLoad()
	}()

	select {
	case <-done:
	case <-time.After(timeout + 1*time.Second):
		s.log.Warn("page load timed out, continuing")
	}
}

func (s *Session) activatePage(page *rod.Page) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("failed to activate tab", "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	page.Context(ctx).Activate()
	s.page = page
	s.safeWaitLoad(3 * time.Second)
}

func safeGetURL(page *rod.Page) string {
	defer func() {
		if r := recover(); r != nil {
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	info, err := page.Context(ctx).Info()
	if err != nil {
		return "<url unavailable>"
	}
	return info.URL
}
