package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"replay-agent/internal/entity"
	"replay-agent/internal/replay"
	"replay-agent/internal/selector"
)

// Session is the slice of browser behavior the executor drives. It
// includes the locator probe so resolution and interaction run against
// the same live page.
type Session interface {
	selector.Prober
	Click(ctx context.Context, c selector.Candidate) error
	Fill(ctx context.Context, c selector.Candidate, text string) error
	Navigate(ctx context.Context, url string) error
	SwitchTab(ctx context.Context, index int) error
	Scroll(ctx context.Context, direction string, amount int) error
}

// UnsupportedPolicy decides what happens to action kinds the executor
// cannot perform.
type UnsupportedPolicy int

const (
	// Fail turns an unsupported action into an ActionError. Replays use
	// this so healing can take over.
	Fail UnsupportedPolicy = iota
	// Skip logs and ignores unsupported actions. The healing oracle uses
	// this so one odd action does not abort recovery.
	Skip
)

const networkChangedMarker = "net::ERR_NETWORK_CHANGED"

// Options tune executor pacing and retry behavior. The zero value is
// not usable, start from DefaultOptions.
type Options struct {
	// SettleDelay is the pause after every completed action, giving the
	// page time to react before the next locator probe.
	SettleDelay time.Duration
	// NavRetries bounds navigation attempts when the network flaps
	// mid-load.
	NavRetries    int
	NavRetryDelay time.Duration
	OnUnsupported UnsupportedPolicy
}

func DefaultOptions() Options {
	return Options{
		SettleDelay:   time.Second,
		NavRetries:    3,
		NavRetryDelay: time.Second,
		OnUnsupported: Fail,
	}
}

// Executor performs recorded actions against a browser session. It
// never touches replay progress, callers advance their own cursor
// after a successful Execute.
type Executor struct {
	session Session
	secrets map[string]string
	opts    Options
	log     *slog.Logger
}

func New(session Session, secrets map[string]string, opts Options, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultOptions().SettleDelay
	}
	if opts.NavRetries <= 0 {
		opts.NavRetries = DefaultOptions().NavRetries
	}
	if opts.NavRetryDelay <= 0 {
		opts.NavRetryDelay = DefaultOptions().NavRetryDelay
	}
	return &Executor{session: session, secrets: secrets, opts: opts, log: log}
}

// Execute performs a single action. Selector failures surface as
// SelectorError, interaction failures as ActionError and navigation
// failures as NavigationError, so callers can route them to healing.
func (e *Executor) Execute(ctx context.Context, action *entity.Action) error {
	if err := ctx.Err(); err != nil {
		return &replay.UserInterruptionError{Cause: err}
	}

	kind := action.Payload.Kind
	var err error

	switch kind {
	case entity.KindNavigate:
		err = e.navigate(ctx, action.Payload.Navigate.URL)
	case entity.KindClick:
		err = e.click(ctx, action)
	case entity.KindFillText:
		err = e.fill(ctx, action)
	case entity.KindSwitchTab:
		err = e.switchTab(ctx, action.Payload.SwitchTab.TabIndex)
	case entity.KindScroll:
		err = e.scroll(ctx, action.Payload.Scroll)
	case entity.KindWait:
		err = sleep(ctx, time.Duration(action.Payload.Wait.Seconds)*time.Second)
	case entity.KindDone:
		// The done marker carries no browser work.
	default:
		if e.opts.OnUnsupported == Skip {
			e.log.Warn("skipping unsupported action", "kind", kind)
			return nil
		}
		return &replay.ActionError{Kind: kind, Err: fmt.Errorf("unsupported action kind")}
	}

	if err != nil {
		return err
	}
	if kind == entity.KindDone {
		return nil
	}
	return sleep(ctx, e.opts.SettleDelay)
}

// navigate retries loads interrupted by a network change, backing off
// exponentially, and gives up with a NavigationError.
func (e *Executor) navigate(ctx context.Context, url string) error {
	delay := e.opts.NavRetryDelay
	var last error

	for attempt := 1; attempt <= e.opts.NavRetries; attempt++ {
		last = e.session.Navigate(ctx, url)
		if last == nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return &replay.UserInterruptionError{Cause: err}
		}
		if !strings.Contains(last.Error(), networkChangedMarker) {
			return &replay.NavigationError{URL: url, Attempts: attempt, Err: last}
		}
		e.log.Warn("network changed during navigation, retrying",
			"url", url, "attempt", attempt, "delay", delay)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}
	return &replay.NavigationError{URL: url, Attempts: e.opts.NavRetries, Err: last}
}

func (e *Executor) click(ctx context.Context, action *entity.Action) error {
	cand, err := e.resolve(ctx, action)
	if err != nil {
		return err
	}
	if err := e.session.Click(ctx, cand); err != nil {
		return &replay.ActionError{Kind: entity.KindClick, Err: err}
	}
	return nil
}

func (e *Executor) fill(ctx context.Context, action *entity.Action) error {
	cand, err := e.resolve(ctx, action)
	if err != nil {
		return err
	}
	text := substituteSecrets(action.Payload.Fill.Text, e.secrets)
	if err := e.session.Fill(ctx, cand, text); err != nil {
		return &replay.ActionError{Kind: entity.KindFillText, Err: err}
	}
	return nil
}

func (e *Executor) resolve(ctx context.Context, action *entity.Action) (selector.Candidate, error) {
	cands, err := selector.Candidates(action.Element)
	if err != nil {
		return selector.Candidate{}, err
	}
	return selector.Resolve(ctx, e.session, cands, e.log)
}

func (e *Executor) switchTab(ctx context.Context, index int) error {
	if err := e.session.SwitchTab(ctx, index); err != nil {
		return &replay.ActionError{Kind: entity.KindSwitchTab, Err: err}
	}
	return nil
}

func (e *Executor) scroll(ctx context.Context, p *entity.ScrollPayload) error {
	if err := e.session.Scroll(ctx, p.Direction, p.Amount); err != nil {
		return &replay.ActionError{Kind: entity.KindScroll, Err: err}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return &replay.UserInterruptionError{Cause: ctx.Err()}
	case <-timer.C:
		return nil
	}
}
