package selector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"replay-agent/internal/entity"
	"replay-agent/internal/replay"
)

// Locator kinds a candidate can carry.
const (
	KindXPath = "xpath"
	KindCSS   = "css"
)

// Candidate is one locator the executor can try against the live page.
type Candidate struct {
	Kind string
	Expr string
}

func (c Candidate) String() string { return c.Kind + ": " + c.Expr }

// Candidates turns a recorded element descriptor into the ranked
// locator list: the primary absolute XPath first, then the alternative
// relative XPaths in generation order. A descriptor with no locators at
// all gets one synthesized from tag name and static attributes; a
// descriptor with nothing usable is a SelectorError.
func Candidates(el *entity.ElementDescriptor) ([]Candidate, error) {
	if el.Empty() {
		return nil, &replay.SelectorError{}
	}

	var out []Candidate
	if el.XPath != "" {
		out = append(out, Candidate{Kind: KindXPath, Expr: el.XPath})
	}
	for _, x := range el.AltXPaths {
		out = append(out, Candidate{Kind: KindXPath, Expr: x})
	}
	if len(out) == 0 {
		out = append(out, Candidate{Kind: KindCSS, Expr: synthesizeCSS(el)})
	}
	return out, nil
}

// synthesizeCSS builds a last-resort CSS selector from the recorded tag
// and attributes. Attribute order is sorted so the result is
// deterministic.
func synthesizeCSS(el *entity.ElementDescriptor) string {
	var b strings.Builder
	b.WriteString(el.TagName)
	keys := make([]string, 0, len(el.Attributes))
	for k := range el.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "[%s=%q]", k, el.Attributes[k])
	}
	return b.String()
}

// Prober counts live elements matching a candidate. Implemented by
// browser.Session; faked in tests.
type Prober interface {
	Count(ctx context.Context, c Candidate) (int, error)
}

// Resolve walks the candidates strictly in order and returns the first
// one matching exactly one live element. Zero matches, multiple matches
// (ambiguous, logged) and probe errors all skip to the next candidate;
// exhausting the list is a SelectorError. On an unchanged page the
// accepted candidate is therefore deterministic.
func Resolve(ctx context.Context, p Prober, cands []Candidate, log *slog.Logger) (Candidate, error) {
	if log == nil {
		log = slog.Default()
	}

	var tried []string
	var last error
	for _, c := range cands {
		tried = append(tried, c.String())

		n, err := p.Count(ctx, c)
		if err != nil {
			if ctx.Err() != nil {
				return Candidate{}, &replay.UserInterruptionError{Cause: ctx.Err()}
			}
			last = err
			log.Debug("candidate probe failed", "candidate", c.String(), "error", err)
			continue
		}
		switch {
		case n == 0:
			last = fmt.Errorf("no elements match %s", c)
		case n > 1:
			last = fmt.Errorf("%d elements match %s", n, c)
			log.Warn("ambiguous locator skipped", "candidate", c.String(), "matches", n)
		default:
			return c, nil
		}
	}
	return Candidate{}, &replay.SelectorError{Tried: tried, Last: last}
}
