package traversal

import (
	"testing"

	"replay-agent/internal/entity"
)

func TestCompileRekeysAndReindexes(t *testing.T) {
	original := &entity.Traversal{
		Task:          "task",
		BrowserConfig: entity.DefaultBrowserConfig(),
		Secrets:       map[string]string{"USER": "masked"},
	}

	// Simulates a healed run: one surviving action re-pointed to the
	// healed decision, then the oracle's tail.
	actions := []entity.Action{
		entity.NewNavigate("h1", "https://example.com"),
		entity.NewClick("h1", &entity.ElementDescriptor{XPath: "/html/body/a"}),
		entity.NewDone("h2", "recovered", true),
	}
	decisions := []entity.Decision{
		{ID: "h1", NextGoal: "recover the click"},
		{ID: "h2", NextGoal: "finish"},
	}

	out, err := Compile(original, actions, decisions)
	if err != nil {
		t.Fatal(err)
	}

	if out.Task != "task" || out.Secrets["USER"] != "masked" {
		t.Fatal("task and secrets must carry over")
	}
	if len(out.Actions) != 3 {
		t.Fatalf("actions = %d, want 3", len(out.Actions))
	}
	for i := 0; i < 3; i++ {
		if out.Actions[entity.ActionKey(i)] == nil {
			t.Fatalf("missing dense key %s", entity.ActionKey(i))
		}
	}

	// Per-decision indexes restart inside each decision.
	if got := out.Actions[entity.ActionKey(1)].IdxInDecision; got != 1 {
		t.Fatalf("second h1 action idx = %d, want 1", got)
	}
	if got := out.Actions[entity.ActionKey(2)].IdxInDecision; got != 0 {
		t.Fatalf("first h2 action idx = %d, want 0", got)
	}

	if err := out.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestCompileRejectsEmptyInput(t *testing.T) {
	original := &entity.Traversal{Task: "task"}
	if _, err := Compile(original, nil, nil); err == nil {
		t.Fatal("empty input must error")
	}
}

func TestCompileRejectsUnknownDecision(t *testing.T) {
	original := &entity.Traversal{Task: "task"}
	actions := []entity.Action{entity.NewDone("ghost", "x", true)}
	decisions := []entity.Decision{{ID: "h1"}}
	if _, err := Compile(original, actions, decisions); err == nil {
		t.Fatal("action referencing an unknown decision must error")
	}
}
