package replay

import (
	"context"
	"log/slog"

	"replay-agent/internal/entity"
)

// Participant observes the lifecycle of a replay run. Roles are
// composed onto the runner instead of inherited from it; the closed
// set of implementations below covers replay progress (Navigator) and
// recovery (Healer).
type Participant interface {
	BeforeRun(ctx context.Context, t *entity.Traversal) error
	AfterRun(ctx context.Context, res Result)
	BeforeAction(ctx context.Context, idx int, a *entity.Action) error
	AfterAction(ctx context.Context, idx int, a *entity.Action, err error)
}

// Navigator logs replay progress. It is the default participant on
// every run.
type Navigator struct {
	Log *slog.Logger
}

func NewNavigator(log *slog.Logger) *Navigator {
	if log == nil {
		log = slog.Default()
	}
	return &Navigator{Log: log}
}

func (n *Navigator) BeforeRun(_ context.Context, t *entity.Traversal) error {
	n.Log.Info("replay started", "task", t.Task, "actions", len(t.Actions))
	return nil
}

func (n *Navigator) AfterRun(_ context.Context, res Result) {
	n.Log.Info("replay finished", "status", res.Status.String(), "reason", res.Reason)
}

func (n *Navigator) BeforeAction(_ context.Context, idx int, a *entity.Action) error {
	n.Log.Info("executing action", "index", idx, "kind", a.Payload.Kind, "decision", a.DecisionID)
	return nil
}

func (n *Navigator) AfterAction(_ context.Context, idx int, a *entity.Action, err error) {
	if err != nil {
		n.Log.Error("action failed", "index", idx, "kind", a.Payload.Kind, "error", err)
		return
	}
	n.Log.Info("action done", "index", idx, "kind", a.Payload.Kind)
}

// Healer logs the healing lifecycle. The coordinator drives its step
// hooks directly; the run-level hooks fire with the other
// participants.
type Healer struct {
	Log *slog.Logger
}

func NewHealer(log *slog.Logger) *Healer {
	if log == nil {
		log = slog.Default()
	}
	return &Healer{Log: log}
}

func (h *Healer) BeforeRun(context.Context, *entity.Traversal) error { return nil }

func (h *Healer) AfterRun(_ context.Context, res Result) {
	if res.Status == StatusHealed {
		h.Log.Info("run recovered by healing", "reason", res.Reason)
	}
}

func (h *Healer) BeforeAction(context.Context, int, *entity.Action) error { return nil }

func (h *Healer) AfterAction(context.Context, int, *entity.Action, error) {}

func (h *Healer) healingStarted(trigger error) {
	h.Log.Warn("replay broke, handing control to the oracle", "trigger", trigger)
}

func (h *Healer) healingStep(step, budget, actions int) {
	h.Log.Info("oracle step", "step", step, "budget", budget, "accumulated_actions", actions)
}

func (h *Healer) healingFinished(err error) {
	if err != nil {
		h.Log.Error("healing failed", "error", err)
		return
	}
	h.Log.Info("healing reached the goal")
}
