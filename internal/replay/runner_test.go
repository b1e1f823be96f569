package replay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"replay-agent/internal/entity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedExec fails the actions at the listed zero-based positions.
type scriptedExec struct {
	failAt map[int]error
	calls  int
}

func (e *scriptedExec) Execute(ctx context.Context, a *entity.Action) error {
	err := e.failAt[e.calls]
	e.calls++
	return err
}

func passthroughCompiler(original *entity.Traversal, actions []entity.Action, decisions []entity.Decision) (*entity.Traversal, error) {
	out := &entity.Traversal{
		Task:      original.Task,
		Decisions: make(map[string]entity.Decision, len(decisions)),
		Actions:   make(entity.ActionMap, len(actions)),
	}
	for _, d := range decisions {
		out.Decisions[d.ID] = d
	}
	for i := range actions {
		a := actions[i]
		out.Actions[entity.ActionKey(i)] = &a
	}
	return out, nil
}

func TestRunStrictSuccess(t *testing.T) {
	exec := &scriptedExec{}
	r, err := NewRunner(twoDecisionTraversal(), exec, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusSuccess {
		t.Fatalf("status = %s, want success", res.Status)
	}
	if exec.calls != 3 {
		t.Fatalf("executed %d actions, want all 3", exec.calls)
	}
	if res.Corrected != nil {
		t.Fatal("strict success must not produce a corrected traversal")
	}
	if got := len(r.Machine().PassedActions()); got != 3 {
		t.Fatalf("passed actions = %d, want 3", got)
	}
}

func TestRunFailureWithoutHealing(t *testing.T) {
	exec := &scriptedExec{failAt: map[int]error{1: &SelectorError{Tried: []string{"xpath: //a"}}}}
	r, err := NewRunner(twoDecisionTraversal(), exec, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	res, err := r.Run(context.Background())
	if err == nil {
		t.Fatal("failed run must return an error")
	}
	if res.Status != StatusFailed {
		t.Fatalf("status = %s, want failure", res.Status)
	}
	if !strings.Contains(res.Reason, "healing is disabled") {
		t.Fatalf("reason = %q, want the healing-disabled explanation", res.Reason)
	}
	if exec.calls != 2 {
		t.Fatalf("executed %d actions, want 2 (stop at the failure)", exec.calls)
	}
}

func TestRunHealsAndCompiles(t *testing.T) {
	exec := &scriptedExec{failAt: map[int]error{1: &ActionError{Kind: entity.KindClick, Err: errors.New("detached")}}}
	oracle := &scriptedOracle{doneAfter: 2}
	coordinator := NewHealingCoordinator(factoryFor(oracle, nil), 5, nil)

	r, err := NewRunner(twoDecisionTraversal(), exec, testLogger(),
		WithHealing(coordinator), WithCompiler(passthroughCompiler))
	if err != nil {
		t.Fatal(err)
	}

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusHealed {
		t.Fatalf("status = %s, want success-with-healing", res.Status)
	}
	if res.Corrected == nil {
		t.Fatal("healed run must carry a corrected traversal")
	}
	// One strict action passed, then two healed actions.
	if got := len(res.Corrected.Actions); got != 3 {
		t.Fatalf("corrected actions = %d, want 3", got)
	}
	if exec.calls != 2 {
		t.Fatalf("strict executor ran %d times, want 2", exec.calls)
	}
}

func TestRunHealingExhaustedFails(t *testing.T) {
	exec := &scriptedExec{failAt: map[int]error{0: &NavigationError{URL: "https://example.com", Attempts: 3, Err: errors.New("net::ERR_NETWORK_CHANGED")}}}
	oracle := &scriptedOracle{doneAfter: 100}
	coordinator := NewHealingCoordinator(factoryFor(oracle, nil), 2, nil)

	r, err := NewRunner(twoDecisionTraversal(), exec, testLogger(), WithHealing(coordinator))
	if err != nil {
		t.Fatal(err)
	}

	res, _ := r.Run(context.Background())
	if res.Status != StatusFailed {
		t.Fatalf("status = %s, want failure", res.Status)
	}
	if !strings.Contains(res.Reason, "healing exhausted") {
		t.Fatalf("reason = %q, want healing exhaustion", res.Reason)
	}
}

func TestRunInterruptionSkipsHealing(t *testing.T) {
	// The interrupt arrives while the second action is in flight.
	exec := &scriptedExec{failAt: map[int]error{1: &UserInterruptionError{}}}
	oracle := &scriptedOracle{doneAfter: 1}
	coordinator := NewHealingCoordinator(factoryFor(oracle, nil), 5, nil)

	r, err := NewRunner(twoDecisionTraversal(), exec, testLogger(), WithHealing(coordinator))
	if err != nil {
		t.Fatal(err)
	}

	res, _ := r.Run(context.Background())
	if res.Status != StatusFailed {
		t.Fatalf("status = %s, want failure", res.Status)
	}
	if oracle.step != 0 {
		t.Fatal("interruption must never trigger healing")
	}
	if !strings.Contains(res.Reason, "user interrupted") {
		t.Fatalf("reason = %q, want user interruption", res.Reason)
	}
	if got := len(r.Machine().PassedActions()); got != 1 {
		t.Fatalf("passed actions = %d, want only the first", got)
	}
}

func TestRunPauseQuit(t *testing.T) {
	exec := &scriptedExec{}
	r, err := NewRunner(twoDecisionTraversal(), exec, testLogger(),
		WithPause(strings.NewReader("q\n")))
	if err != nil {
		t.Fatal(err)
	}

	res, _ := r.Run(context.Background())
	if res.Status != StatusFailed {
		t.Fatalf("status = %s, want failure", res.Status)
	}
	// The first action completed before the quit, so it passes.
	if got := len(r.Machine().PassedActions()); got != 1 {
		t.Fatalf("passed actions = %d, want 1", got)
	}
	if exec.calls != 1 {
		t.Fatalf("executed %d actions, want 1", exec.calls)
	}
}

func TestRunPauseContinue(t *testing.T) {
	exec := &scriptedExec{}
	r, err := NewRunner(twoDecisionTraversal(), exec, testLogger(),
		WithPause(strings.NewReader("\n\n\n")))
	if err != nil {
		t.Fatal(err)
	}

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusSuccess {
		t.Fatalf("status = %s, want success", res.Status)
	}
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &scriptedExec{}
	r, err := NewRunner(twoDecisionTraversal(), exec, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	res, _ := r.Run(ctx)
	if res.Status != StatusFailed {
		t.Fatalf("status = %s, want failure", res.Status)
	}
	if exec.calls != 0 {
		t.Fatal("no action may run after cancellation")
	}
}

func TestStatusStrings(t *testing.T) {
	cases := map[Status]string{
		StatusSuccess: "success",
		StatusHealed:  "success-with-healing",
		StatusFailed:  "failure",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}
}
