package phase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/thruflo/wreckit/internal/state"
	"github.com/thruflo/wreckit/internal/workflow"
)

// InvalidTransitionError is returned when a phase is requested from a
// state it cannot start from.
type InvalidTransitionError struct {
	ItemID   string
	Phase    workflow.Phase
	Expected []state.ItemState
	Actual   state.ItemState
}

func (e *InvalidTransitionError) Error() string {
	expected := make([]string, len(e.Expected))
	for i, s := range e.Expected {
		expected[i] = string(s)
	}
	return fmt.Sprintf("invalid transition: phase %s on item %s requires state %s, item is %s",
		e.Phase, e.ItemID, strings.Join(expected, " or "), e.Actual)
}

// ExecutionError is returned when a phase ran (or tried to) and failed.
type ExecutionError struct {
	ItemID   string
	Phase    workflow.Phase
	Message  string
	TimedOut bool
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("phase %s failed for item %s: %s", e.Phase, e.ItemID, e.Message)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}

// IsExecutionError reports whether err is an ExecutionError.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}
