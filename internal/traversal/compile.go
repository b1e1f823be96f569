package traversal

import (
	"fmt"

	"replay-agent/internal/entity"
)

// Compile builds a corrected traversal from a finished replay: the
// actions actually performed, in execution order, densely re-keyed from
// action_0 with per-decision indexes recomputed. Task, browser config
// and secret names carry over from the original record.
func Compile(original *entity.Traversal, actions []entity.Action, decisions []entity.Decision) (*entity.Traversal, error) {
	if len(actions) == 0 {
		return nil, fmt.Errorf("cannot compile a traversal with no actions")
	}
	if len(decisions) == 0 {
		return nil, fmt.Errorf("cannot compile a traversal with no decisions")
	}

	known := make(map[string]entity.Decision, len(decisions))
	for _, d := range decisions {
		known[d.ID] = d
	}

	out := &entity.Traversal{
		Task:          original.Task,
		BrowserConfig: original.BrowserConfig,
		Secrets:       original.Secrets,
		Decisions:     make(map[string]entity.Decision, len(decisions)),
		Actions:       make(entity.ActionMap, len(actions)),
	}

	perDecision := make(map[string]int, len(decisions))
	for i := range actions {
		a := actions[i]
		d, ok := known[a.DecisionID]
		if !ok {
			return nil, fmt.Errorf("action %d references unknown decision %q", i, a.DecisionID)
		}
		out.Decisions[d.ID] = d

		a.IdxInDecision = perDecision[a.DecisionID]
		perDecision[a.DecisionID]++
		out.Actions[entity.ActionKey(i)] = &a
	}

	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("compiled traversal failed validation: %w", err)
	}
	return out, nil
}
