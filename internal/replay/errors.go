package replay

import (
	"context"
	"errors"
	"fmt"

	"replay-agent/internal/entity"
)

// Error taxonomy for the replay engine. Executor failures
// (SelectorError, ActionError, NavigationError) are caught by the run
// loop and converted into a healing trigger or a terminal failure;
// UserInterruptionError always aborts; ConfigurationError surfaces at
// load time before any browser resource is acquired.

// SelectorError means no locator candidate resolved to exactly one
// live element.
type SelectorError struct {
	Tried []string // candidates attempted, in order
	Last  error
}

func (e *SelectorError) Error() string {
	if len(e.Tried) == 0 {
		return "selector: no locator information available"
	}
	return fmt.Sprintf("selector: exhausted %d candidates without a unique match (last: %v)", len(e.Tried), e.Last)
}

func (e *SelectorError) Unwrap() error { return e.Last }

// ActionError means the element resolved but the action call failed,
// or the action kind is unsupported under the strict policy.
type ActionError struct {
	Kind entity.ActionKind
	Err  error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %q failed: %v", e.Kind, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// NavigationError means navigation failed after the retry budget was
// spent.
type NavigationError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// UserInterruptionError is raised when the user cancels the run. It
// aborts immediately regardless of the healing setting.
type UserInterruptionError struct {
	Cause error
}

func (e *UserInterruptionError) Error() string { return "user interrupted the replay" }

func (e *UserInterruptionError) Unwrap() error { return e.Cause }

// HealingExhaustedError means the oracle spent its step budget without
// reaching the goal. No partial splice happens.
type HealingExhaustedError struct {
	Steps int
}

func (e *HealingExhaustedError) Error() string {
	return fmt.Sprintf("healing exhausted: oracle spent %d steps without reaching the goal", e.Steps)
}

// ConfigurationError means the traversal record (or run configuration)
// is malformed.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string { return fmt.Sprintf("configuration: %v", e.Err) }

func (e *ConfigurationError) Unwrap() error { return e.Err }

// IsInterruption reports whether err carries a user interruption,
// including plain context cancellation surfaced from a suspension
// point.
func IsInterruption(err error) bool {
	var ui *UserInterruptionError
	if errors.As(err, &ui) {
		return true
	}
	return errors.Is(err, context.Canceled)
}
