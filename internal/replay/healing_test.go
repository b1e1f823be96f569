package replay

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"replay-agent/internal/entity"
)

// scriptedOracle emits a fixed batch of actions per step and finishes
// with done after doneAfter steps. stepErr, when set, fails that step.
type scriptedOracle struct {
	doneAfter int
	stepErr   map[int]error
	silent    bool // emit no actions at all

	step      int
	actions   []entity.Action
	decisions []entity.Decision
}

func (o *scriptedOracle) Step(ctx context.Context) error {
	o.step++
	if err := o.stepErr[o.step]; err != nil {
		return err
	}
	if o.silent {
		return nil
	}

	id := fmt.Sprintf("h%d", o.step)
	o.decisions = append(o.decisions, entity.Decision{ID: id, NextGoal: "heal step"})
	if o.step >= o.doneAfter {
		o.actions = append(o.actions, entity.NewDone(id, "recovered", true))
	} else {
		o.actions = append(o.actions, entity.NewClick(id, &entity.ElementDescriptor{XPath: "/html/body/button"}))
	}
	return nil
}

func (o *scriptedOracle) Actions() []entity.Action     { return o.actions }
func (o *scriptedOracle) Decisions() []entity.Decision { return o.decisions }

func factoryFor(o Oracle, err error) OracleFactory {
	return func(ctx context.Context, task string, passed []entity.Decision) (Oracle, error) {
		return o, err
	}
}

func freshMachine(t *testing.T) *StateMachine {
	t.Helper()
	m, err := NewStateMachine(twoDecisionTraversal())
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestHealReachesGoal(t *testing.T) {
	m := freshMachine(t)
	oracle := &scriptedOracle{doneAfter: 3}
	c := NewHealingCoordinator(factoryFor(oracle, nil), 10, nil)

	if err := c.Heal(context.Background(), "task", m); err != nil {
		t.Fatal(err)
	}
	if !m.Spliced() {
		t.Fatal("successful healing must splice the machine")
	}
	if got := len(m.PassedDecisions()); got != 3 {
		t.Fatalf("passed decisions = %d, want 3 healed", got)
	}
}

func TestHealExhaustsBudget(t *testing.T) {
	m := freshMachine(t)
	oracle := &scriptedOracle{doneAfter: 100}
	c := NewHealingCoordinator(factoryFor(oracle, nil), 5, nil)

	err := c.Heal(context.Background(), "task", m)
	var exhausted *HealingExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error = %v, want HealingExhaustedError", err)
	}
	if exhausted.Steps != 5 {
		t.Fatalf("exhausted after %d steps, want 5", exhausted.Steps)
	}
	if m.Spliced() {
		t.Fatal("exhausted healing must not splice")
	}
}

func TestHealStepFailure(t *testing.T) {
	m := freshMachine(t)
	oracle := &scriptedOracle{doneAfter: 5, stepErr: map[int]error{2: errors.New("llm down")}}
	c := NewHealingCoordinator(factoryFor(oracle, nil), 10, nil)

	err := c.Heal(context.Background(), "task", m)
	if err == nil || m.Spliced() {
		t.Fatalf("step failure must abort healing without splicing, got err=%v", err)
	}
}

func TestHealSilentOracle(t *testing.T) {
	m := freshMachine(t)
	oracle := &scriptedOracle{silent: true}
	c := NewHealingCoordinator(factoryFor(oracle, nil), 3, nil)

	if err := c.Heal(context.Background(), "task", m); err == nil {
		t.Fatal("an oracle that never acts must fail healing")
	}
}

func TestHealFactoryFailure(t *testing.T) {
	m := freshMachine(t)
	c := NewHealingCoordinator(factoryFor(nil, errors.New("no api key")), 3, nil)

	if err := c.Heal(context.Background(), "task", m); err == nil {
		t.Fatal("factory failure must abort healing")
	}
}

func TestHealCanceledContext(t *testing.T) {
	m := freshMachine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	oracle := &scriptedOracle{doneAfter: 1}
	c := NewHealingCoordinator(factoryFor(oracle, nil), 3, nil)

	err := c.Heal(ctx, "task", m)
	if !IsInterruption(err) {
		t.Fatalf("error = %v, want an interruption", err)
	}
}

func TestDefaultBudget(t *testing.T) {
	c := NewHealingCoordinator(factoryFor(nil, nil), 0, nil)
	if c.budget != DefaultHealingBudget {
		t.Fatalf("budget = %d, want %d", c.budget, DefaultHealingBudget)
	}
}
