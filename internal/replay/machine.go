package replay

import (
	"fmt"

	"replay-agent/internal/entity"
)

// StateMachine owns the replay cursor: which action and decision are
// current, what has passed, and what remains. Actions and decisions
// live in index-addressed arenas; the cursor and the passed lists hold
// positions, never object identity. Mutation happens only through
// Advance and SpliceWithHealing.
//
// Invariant while a current action exists:
//
//	len(passed) + remaining + 1 == total
type StateMachine struct {
	actions   []entity.Action   // arena; healed actions are appended
	decisions []entity.Decision // arena; healed decisions are appended

	passedActions   []int
	passedDecisions []int

	currentAction   int // index into actions, -1 once drained
	currentDecision int // index into decisions, -1 once drained

	nextAction   int // next original action to pop
	nextDecision int // next original decision to pop
	origActions  int
	origDecision int

	spliced bool
}

// NewStateMachine builds the cursor from a validated traversal. The
// first action and its decision become current; everything after them
// is remaining.
func NewStateMachine(t *entity.Traversal) (*StateMachine, error) {
	actions := t.OrderedActions()
	decisions := t.OrderedDecisions()
	if len(actions) == 0 || len(decisions) == 0 {
		return nil, &ConfigurationError{Err: fmt.Errorf("traversal has no actions to replay")}
	}
	if actions[0].DecisionID != decisions[0].ID {
		return nil, &ConfigurationError{Err: fmt.Errorf("first action references decision %q, expected %q", actions[0].DecisionID, decisions[0].ID)}
	}
	return &StateMachine{
		actions:         actions,
		decisions:       decisions,
		currentAction:   0,
		currentDecision: 0,
		nextAction:      1,
		nextDecision:    1,
		origActions:     len(actions),
		origDecision:    len(decisions),
	}, nil
}

// CurrentAction returns the action the cursor points at, or nil after
// the cursor drained.
func (m *StateMachine) CurrentAction() *entity.Action {
	if m.currentAction < 0 {
		return nil
	}
	return &m.actions[m.currentAction]
}

// CurrentDecision returns the decision owning the current action, or
// nil after the cursor drained.
func (m *StateMachine) CurrentDecision() *entity.Decision {
	if m.currentDecision < 0 {
		return nil
	}
	return &m.decisions[m.currentDecision]
}

// RemainingActions counts scheduled actions beyond the current one.
func (m *StateMachine) RemainingActions() int {
	if m.spliced || m.currentAction < 0 {
		return 0
	}
	return m.origActions - m.nextAction
}

// RemainingDecisions counts scheduled decisions beyond the current one.
func (m *StateMachine) RemainingDecisions() int {
	if m.spliced || m.currentDecision < 0 {
		return 0
	}
	return m.origDecision - m.nextDecision
}

// TotalActions is the size of the original schedule.
func (m *StateMachine) TotalActions() int { return m.origActions }

// PassedActions returns the completed actions in replay order.
func (m *StateMachine) PassedActions() []entity.Action {
	out := make([]entity.Action, 0, len(m.passedActions))
	for _, i := range m.passedActions {
		out = append(out, m.actions[i])
	}
	return out
}

// PassedDecisions returns the completed decisions in replay order.
func (m *StateMachine) PassedDecisions() []entity.Decision {
	out := make([]entity.Decision, 0, len(m.passedDecisions))
	for _, i := range m.passedDecisions {
		out = append(out, m.decisions[i])
	}
	return out
}

// ShouldStop reports whether the outer loop should stop before
// attempting another action: either the healing oracle reached the
// task goal, or no decision is left to process. The current decision
// counts as unprocessed until its last action passed, so the final
// scheduled action is always attempted. When the oracle reaches the
// goal mid-decision the replay still stops, leaving any remaining
// original actions unexecuted; callers relying on full fidelity must
// check RemainingActions.
func (m *StateMachine) ShouldStop(oracleReachedGoal bool) bool {
	decisionsLeft := m.RemainingDecisions()
	if m.currentDecision >= 0 {
		decisionsLeft++
	}
	return oracleReachedGoal || decisionsLeft == 0
}

// Advance moves the current action into passed and pops the next
// remaining action into current. Crossing a decision boundary also
// retires the current decision. Advancing past the final action
// retires both cursors; advancing a drained machine is an invariant
// violation.
func (m *StateMachine) Advance() error {
	if m.currentAction < 0 {
		return fmt.Errorf("advance called with empty remaining queues")
	}
	m.passedActions = append(m.passedActions, m.currentAction)

	if m.nextAction >= m.origActions {
		// Final action retired; the current decision goes with it.
		m.passedDecisions = append(m.passedDecisions, m.currentDecision)
		m.currentAction = -1
		m.currentDecision = -1
		return nil
	}

	m.currentAction = m.nextAction
	m.nextAction++

	if m.actions[m.currentAction].DecisionID != m.decisions[m.currentDecision].ID {
		if m.nextDecision >= m.origDecision {
			return fmt.Errorf("action %d references a decision beyond the schedule", m.currentAction)
		}
		m.passedDecisions = append(m.passedDecisions, m.currentDecision)
		m.currentDecision = m.nextDecision
		m.nextDecision++
	}
	return nil
}

// SpliceWithHealing appends the oracle's accumulated output verbatim to
// the passed collections and clears the remaining schedule: healing
// fully replaces the tail, it never resumes strict replay. Already
// passed actions that reference the superseded current decision are
// re-pointed to the first healed decision so the corrected traversal
// keeps a single coherent lineage.
func (m *StateMachine) SpliceWithHealing(newActions []entity.Action, newDecisions []entity.Decision) error {
	if len(newActions) == 0 || len(newDecisions) == 0 {
		return fmt.Errorf("splice requires at least one healed action and decision")
	}
	if m.currentDecision < 0 {
		return fmt.Errorf("splice called on a drained machine")
	}

	superseded := m.decisions[m.currentDecision].ID
	firstHealed := newDecisions[0].ID
	for _, i := range m.passedActions {
		if m.actions[i].DecisionID == superseded {
			m.actions[i].DecisionID = firstHealed
		}
	}

	for _, d := range newDecisions {
		m.decisions = append(m.decisions, d)
		m.passedDecisions = append(m.passedDecisions, len(m.decisions)-1)
	}
	for _, a := range newActions {
		m.actions = append(m.actions, a)
		m.passedActions = append(m.passedActions, len(m.actions)-1)
	}

	m.currentAction = -1
	m.currentDecision = -1
	m.spliced = true
	return nil
}

// Spliced reports whether healing replaced the tail of this run.
func (m *StateMachine) Spliced() bool { return m.spliced }
