package replay

import (
	"context"
	"fmt"

	"replay-agent/internal/entity"
)

// Oracle is the external recovery agent. The coordinator only needs
// single-step drivability plus retrieval of everything the oracle has
// accumulated so far; its reasoning is opaque.
type Oracle interface {
	// Step advances the oracle by one decision/action cycle. The
	// oracle drives the live browser itself; an error here means its
	// own actions failed and healing ends; there is no nested healing.
	Step(ctx context.Context) error
	// Actions returns all actions taken since the oracle started.
	Actions() []entity.Action
	// Decisions returns all decisions made since the oracle started.
	Decisions() []entity.Decision
}

// OracleFactory builds a fresh oracle at the moment healing triggers,
// seeded with the original task and the decisions that already passed.
type OracleFactory func(ctx context.Context, task string, passed []entity.Decision) (Oracle, error)

// DefaultHealingBudget is the step budget for free healing.
const DefaultHealingBudget = 50

// HealingCoordinator drives the oracle after an executor failure. The
// oracle runs free: unconstrained by the recorded sequence, until it
// emits a terminal done action or the budget runs out.
type HealingCoordinator struct {
	factory OracleFactory
	budget  int
	healer  *Healer
}

func NewHealingCoordinator(factory OracleFactory, budget int, healer *Healer) *HealingCoordinator {
	if budget <= 0 {
		budget = DefaultHealingBudget
	}
	if healer == nil {
		healer = NewHealer(nil)
	}
	return &HealingCoordinator{factory: factory, budget: budget, healer: healer}
}

// Heal hands control to the oracle and, on success, splices its output
// into the state machine. A terminal failure at any point leaves the
// machine untouched: there are no partial splices.
func (c *HealingCoordinator) Heal(ctx context.Context, task string, m *StateMachine) error {
	oracle, err := c.factory(ctx, task, m.PassedDecisions())
	if err != nil {
		return fmt.Errorf("starting healing oracle: %w", err)
	}

	for step := 1; step <= c.budget; step++ {
		if err := ctx.Err(); err != nil {
			return &UserInterruptionError{Cause: err}
		}
		if err := oracle.Step(ctx); err != nil {
			if IsInterruption(err) {
				return &UserInterruptionError{Cause: err}
			}
			return fmt.Errorf("oracle step %d failed: %w", step, err)
		}

		taken := oracle.Actions()
		c.healer.healingStep(step, c.budget, len(taken))
		if len(taken) == 0 {
			return fmt.Errorf("oracle produced no actions after step %d", step)
		}
		if taken[len(taken)-1].Payload.Kind == entity.KindDone {
			return m.SpliceWithHealing(taken, oracle.Decisions())
		}
	}

	return &HealingExhaustedError{Steps: c.budget}
}
