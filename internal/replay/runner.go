package replay

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"replay-agent/internal/entity"
)

// Status is the user-visible outcome of a run.
type Status int

const (
	StatusSuccess Status = iota
	StatusHealed         // replay broke, the oracle finished the task
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusHealed:
		return "success-with-healing"
	case StatusFailed:
		return "failure"
	}
	return "unknown"
}

// Result carries the outcome plus whatever the run produced. Corrected
// is set only for StatusHealed.
type Result struct {
	Status    Status
	Reason    string
	Corrected *entity.Traversal
}

// ActionRunner executes one action against the live page. Implemented
// by executor.Executor; faked in tests.
type ActionRunner interface {
	Execute(ctx context.Context, a *entity.Action) error
}

// TraversalCompiler flattens the final passed collections into a
// corrected traversal. Implemented by traversal.Compile.
type TraversalCompiler func(original *entity.Traversal, actions []entity.Action, decisions []entity.Decision) (*entity.Traversal, error)

// Runner owns the outer replay loop: pull the current action, execute,
// advance; on failure hand over to healing (when enabled) and splice;
// finally compile the corrected traversal if healing occurred.
type Runner struct {
	traversal    *entity.Traversal
	machine      *StateMachine
	exec         ActionRunner
	healing      *HealingCoordinator // nil disables healing
	healer       *Healer
	compile      TraversalCompiler
	participants []Participant
	pause        bool
	input        *bufio.Reader // interactive-pause source
	log          *slog.Logger
}

type RunnerOption func(*Runner)

// WithHealing enables free healing through the given coordinator.
func WithHealing(c *HealingCoordinator) RunnerOption {
	return func(r *Runner) { r.healing = c }
}

// WithPause pauses after each action and reads a line from in;
// entering "q" interrupts the run.
func WithPause(in io.Reader) RunnerOption {
	return func(r *Runner) { r.pause, r.input = true, bufio.NewReader(in) }
}

// WithParticipants appends observers to the default Navigator/Healer
// pair.
func WithParticipants(ps ...Participant) RunnerOption {
	return func(r *Runner) { r.participants = append(r.participants, ps...) }
}

// WithCompiler sets the corrected-traversal compiler. Without one the
// runner reports StatusHealed with a nil Corrected.
func WithCompiler(c TraversalCompiler) RunnerOption {
	return func(r *Runner) { r.compile = c }
}

func NewRunner(t *entity.Traversal, exec ActionRunner, log *slog.Logger, opts ...RunnerOption) (*Runner, error) {
	if log == nil {
		log = slog.Default()
	}
	m, err := NewStateMachine(t)
	if err != nil {
		return nil, err
	}
	r := &Runner{
		traversal: t,
		machine:   m,
		exec:      exec,
		healer:    NewHealer(log),
		log:       log,
	}
	r.participants = []Participant{NewNavigator(log), r.healer}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Machine exposes the cursor, mainly for tests and progress reporting.
func (r *Runner) Machine() *StateMachine { return r.machine }

// Run replays the traversal to completion. The returned Result is
// always meaningful; the error mirrors Result.Reason for failed runs so
// callers can propagate exit codes.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	for _, p := range r.participants {
		if err := p.BeforeRun(ctx, r.traversal); err != nil {
			return r.finish(ctx, Result{Status: StatusFailed, Reason: err.Error()})
		}
	}

	oracleReachedGoal := false
	idx := 0

	for !r.machine.ShouldStop(oracleReachedGoal) {
		if err := ctx.Err(); err != nil {
			return r.finish(ctx, Result{Status: StatusFailed, Reason: (&UserInterruptionError{Cause: err}).Error()})
		}

		action := r.machine.CurrentAction()
		for _, p := range r.participants {
			if err := p.BeforeAction(ctx, idx, action); err != nil {
				return r.finish(ctx, Result{Status: StatusFailed, Reason: err.Error()})
			}
		}

		err := r.exec.Execute(ctx, action)
		for _, p := range r.participants {
			p.AfterAction(ctx, idx, action, err)
		}

		if err != nil {
			if IsInterruption(err) {
				return r.finish(ctx, Result{Status: StatusFailed, Reason: (&UserInterruptionError{Cause: err}).Error()})
			}
			if r.healing == nil {
				return r.finish(ctx, Result{
					Status: StatusFailed,
					Reason: fmt.Sprintf("action %q failed and healing is disabled: %v", action.Payload.Kind, err),
				})
			}

			r.healer.healingStarted(err)
			healErr := r.healing.Heal(ctx, r.traversal.Task, r.machine)
			r.healer.healingFinished(healErr)
			if healErr != nil {
				return r.finish(ctx, Result{Status: StatusFailed, Reason: healErr.Error()})
			}
			oracleReachedGoal = true
			continue
		}

		if r.pause {
			if quit := r.waitForEnter(); quit {
				// The action itself completed, so it passes before the
				// interruption is reported.
				if aerr := r.machine.Advance(); aerr != nil {
					return r.finish(ctx, Result{Status: StatusFailed, Reason: aerr.Error()})
				}
				return r.finish(ctx, Result{Status: StatusFailed, Reason: (&UserInterruptionError{}).Error()})
			}
		}

		if err := r.machine.Advance(); err != nil {
			return r.finish(ctx, Result{Status: StatusFailed, Reason: err.Error()})
		}
		idx++
	}

	if !r.machine.Spliced() {
		return r.finish(ctx, Result{Status: StatusSuccess})
	}

	res := Result{Status: StatusHealed, Reason: "replay recovered by healing oracle"}
	if r.compile != nil {
		corrected, err := r.compile(r.traversal, r.machine.PassedActions(), r.machine.PassedDecisions())
		if err != nil {
			return r.finish(ctx, Result{Status: StatusFailed, Reason: fmt.Sprintf("compiling corrected traversal: %v", err)})
		}
		res.Corrected = corrected
	}
	return r.finish(ctx, res)
}

func (r *Runner) finish(ctx context.Context, res Result) (Result, error) {
	for _, p := range r.participants {
		p.AfterRun(ctx, res)
	}
	if res.Status == StatusFailed {
		return res, fmt.Errorf("%s", res.Reason)
	}
	return res, nil
}

// waitForEnter blocks until the user presses Enter; "q" requests an
// interruption. Read errors (EOF, closed stdin) never block the run.
func (r *Runner) waitForEnter() bool {
	if r.input == nil {
		return false
	}
	r.log.Info("paused, press Enter to continue or 'q' to quit")
	line, err := r.input.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.TrimSpace(line) == "q"
}
