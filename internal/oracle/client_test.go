package oracle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"replay-agent/internal/entity"
	"replay-agent/internal/replay"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func statefulClient() (*Client, *entity.PageState) {
	state := samplePageState()
	state.HTML = `<html><body><form>
<input id="user" type="text" placeholder="Username">
<button id="signin" class="btn">Sign in</button>
</form></body></html>`
	return &Client{log: testLogger()}, state
}

func TestBuildActionClick(t *testing.T) {
	c, state := statefulClient()

	action, err := c.buildAction("click", `{"id": 2}`, state)
	if err != nil {
		t.Fatal(err)
	}
	if action.Payload.Kind != entity.KindClick {
		t.Fatalf("kind = %s, want click", action.Payload.Kind)
	}
	if action.Element == nil || action.Element.XPath != "/html/body/form/button" {
		t.Fatalf("element = %+v", action.Element)
	}
	// The descriptor gets durable alternatives generated from the
	// snapshot.
	found := false
	for _, alt := range action.Element.AltXPaths {
		if strings.Contains(alt, "@id='signin'") {
			found = true
		}
	}
	if !found {
		t.Fatalf("alternatives %v missing the id locator", action.Element.AltXPaths)
	}
}

func TestBuildActionFillText(t *testing.T) {
	c, state := statefulClient()

	action, err := c.buildAction("fill_text", `{"id": 1, "text": "<secret>USER</secret>"}`, state)
	if err != nil {
		t.Fatal(err)
	}
	if action.Payload.Kind != entity.KindFillText {
		t.Fatalf("kind = %s", action.Payload.Kind)
	}
	if action.Payload.Fill.Text != "<secret>USER</secret>" {
		t.Fatal("secret placeholder must stay masked in the recorded action")
	}
}

func TestBuildActionUnknownElement(t *testing.T) {
	c, state := statefulClient()
	if _, err := c.buildAction("click", `{"id": 99}`, state); err == nil {
		t.Fatal("unknown element id must error")
	}
}

func TestBuildActionNavigateRequiresURL(t *testing.T) {
	c, state := statefulClient()
	if _, err := c.buildAction("navigate", `{}`, state); err == nil {
		t.Fatal("navigate without a url must error")
	}
	action, err := c.buildAction("navigate", `{"url": "https://portal.test"}`, state)
	if err != nil {
		t.Fatal(err)
	}
	if action.Payload.Navigate.URL != "https://portal.test" {
		t.Fatalf("url = %q", action.Payload.Navigate.URL)
	}
}

func TestBuildActionWaitClamped(t *testing.T) {
	c, state := statefulClient()

	low, err := c.buildAction("wait", `{"seconds": 0.2}`, state)
	if err != nil {
		t.Fatal(err)
	}
	if low.Payload.Wait.Seconds != 1 {
		t.Fatalf("low wait = %d, want clamped to 1", low.Payload.Wait.Seconds)
	}

	high, err := c.buildAction("wait", `{"seconds": 600}`, state)
	if err != nil {
		t.Fatal(err)
	}
	if high.Payload.Wait.Seconds != 10 {
		t.Fatalf("high wait = %d, want clamped to 10", high.Payload.Wait.Seconds)
	}
}

func TestBuildActionDone(t *testing.T) {
	c, state := statefulClient()
	action, err := c.buildAction("submit_task_result", `{"message": "recovered", "success": true}`, state)
	if err != nil {
		t.Fatal(err)
	}
	if action.Payload.Kind != entity.KindDone || !action.Payload.Done.Success {
		t.Fatalf("payload = %+v", action.Payload)
	}
}

func TestBuildActionUnknownTool(t *testing.T) {
	c, state := statefulClient()
	if _, err := c.buildAction("teleport", `{}`, state); err == nil {
		t.Fatal("unknown tool must error")
	}
}

type fakeRunner struct {
	err   error
	calls int
}

func (f *fakeRunner) Execute(ctx context.Context, a *entity.Action) error {
	f.calls++
	return f.err
}

func TestPerformExecutorFailureEndsStep(t *testing.T) {
	c, state := statefulClient()
	runner := &fakeRunner{err: &replay.ActionError{Kind: entity.KindClick, Err: errors.New("detached")}}
	c.runner = runner
	decision := entity.Decision{ID: "heal-1", NextGoal: "press the button"}

	_, err := c.perform(context.Background(), decision, "click", `{"id": 2}`, 0, state)
	if err == nil {
		t.Fatal("executor failure during recovery must propagate")
	}
	var ae *replay.ActionError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want the wrapped action error", err)
	}
	if len(c.Actions()) != 0 {
		t.Fatalf("failed action must not join the replayable tail, got %d", len(c.Actions()))
	}
}

func TestPerformInterruptionPropagates(t *testing.T) {
	c, state := statefulClient()
	c.runner = &fakeRunner{err: &replay.UserInterruptionError{}}

	_, err := c.perform(context.Background(), entity.Decision{ID: "heal-1"}, "click", `{"id": 2}`, 0, state)
	if !replay.IsInterruption(err) {
		t.Fatalf("err = %v, want interruption", err)
	}
	if len(c.Actions()) != 0 {
		t.Fatal("interrupted action must not be recorded")
	}
}

func TestPerformInvalidCallSkips(t *testing.T) {
	c, state := statefulClient()
	runner := &fakeRunner{}
	c.runner = runner

	done, err := c.perform(context.Background(), entity.Decision{ID: "heal-1"}, "click", `{"id": 99}`, 0, state)
	if err != nil || done {
		t.Fatalf("malformed call must be skipped, got done=%v err=%v", done, err)
	}
	if runner.calls != 0 {
		t.Fatal("nothing to execute for a malformed call")
	}
	if len(c.history) != 1 || !strings.HasPrefix(c.history[0].Result, "invalid:") {
		t.Fatalf("history = %+v", c.history)
	}
}

func TestPerformSuccessAccumulates(t *testing.T) {
	c, state := statefulClient()
	c.runner = &fakeRunner{}
	decision := entity.Decision{ID: "heal-1"}

	done, err := c.perform(context.Background(), decision, "submit_task_result", `{"message": "recovered", "success": true}`, 0, state)
	if err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Fatal("done tool must end the step")
	}
	got := c.Actions()
	if len(got) != 1 || got[0].DecisionID != "heal-1" {
		t.Fatalf("actions = %+v", got)
	}
}

func TestDescribeWithoutSnapshot(t *testing.T) {
	c, state := statefulClient()
	state.HTML = ""

	desc, err := c.describe(state, 2)
	if err != nil {
		t.Fatal(err)
	}
	if desc.XPath != "/html/body/form/button" || desc.TagName != "button" {
		t.Fatalf("descriptor = %+v", desc)
	}
	if len(desc.AltXPaths) != 0 {
		t.Fatal("no snapshot means no generated alternatives")
	}
}
