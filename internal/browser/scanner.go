package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"replay-agent/internal/entity"
)

// Observe snapshots the active tab for the healing oracle: location,
// the interactive elements with their absolute XPaths, and the raw
// HTML so replacement locators can be generated offline.
func (s *Session) Observe(ctx context.Context) (*entity.PageState, error) {
	if err := s.ensureLivePage(); err != nil {
		return nil, err
	}

	info, err := s.page.Info()
	if err != nil {
		return nil, err
	}

	tryWaitStable(s.page, 2*time.Second)

	evalCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	state := &entity.PageState{URL: info.URL, Title: info.Title}

	res, err := s.page.Context(evalCtx).Eval(ObserveElementsScript)
	if err != nil {
		s.log.Warn("page scan script failed", "error", err)
		return state, nil
	}

	jsonString := res.Value.String()
	if jsonString != "" && jsonString != "null" {
		if err := json.Unmarshal([]byte(jsonString), &state.Elements); err != nil {
			return nil, fmt.Errorf("decoding page scan: %w", err)
		}
	}

	html, err := s.HTML(ctx)
	if err != nil {
		s.log.Warn("failed to read page html", "error", err)
	}
	state.HTML = html

	return state, nil
}

// ensureLivePage recovers from a closed active tab by switching to any
// surviving tab or opening a fresh one.
func (s *Session) ensureLivePage() error {
	if s.page != nil {
		if _, err := s.page.Info(); err == nil {
			return nil
		}
		s.log.Warn("active tab is dead, looking for another")
		s.page = nil
	}

	pages, err := s.browser.Pages()
	if err == nil && len(pages) > 0 {
		s.page = pages[0]
		return nil
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("failed to reopen a tab: %w", err)
	}
	s.page = page
	return nil
}

func tryWaitStable(page *rod.Page, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		page.Timeout(timeout).WaitStable(500 * time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
	}
}
