package optimizer

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidPool   = errors.New("invalid player pool")
	ErrUnknownPlayer = errors.New("player not in pool")
	ErrLockConflict  = errors.New("player both locked and excluded")
	ErrInfeasible    = errors.New("no feasible lineup")
	ErrTimedOut      = errors.New("solver budget exhausted")
	ErrSlotMismatch  = errors.New("selected players do not fit roster slots")
)

// SchemaError reports a schema that is inconsistent on its own, or that cannot
// be satisfied by the pool it was paired with.
type SchemaError struct {
	Schema        string
	Reason        string
	Unsatisfiable bool
}

func (e *SchemaError) Error() string {
	if e.Schema == "" {
		return fmt.Sprintf("schema error: %s", e.Reason)
	}
	return fmt.Sprintf("schema %s: %s", e.Schema, e.Reason)
}

func schemaErrorf(schema, format string, args ...interface{}) *SchemaError {
	return &SchemaError{Schema: schema, Reason: fmt.Sprintf(format, args...)}
}

type FailureKind int

const (
	FailureInfeasible FailureKind = iota + 1
	FailureTimedOut
)

func (k FailureKind) String() string {
	switch k {
	case FailureInfeasible:
		return "infeasible"
	case FailureTimedOut:
		return "timed_out"
	}
	return "unknown"
}

// SolveFailure is returned when the solver did not produce an optimal lineup.
// Infeasible and TimedOut are never collapsed: a timed out search says nothing
// about whether a legal lineup exists.
type SolveFailure struct {
	Kind    FailureKind
	Reason  string
	Nodes   int
	Elapsed time.Duration
	// Best is the incumbent held when the search was aborted, if any. It is
	// not proven optimal.
	Best  *Solution
	Cause error
}

func (f *SolveFailure) Error() string {
	msg := fmt.Sprintf("solve failed (%s)", f.Kind)
	if f.Reason != "" {
		msg += ": " + f.Reason
	}
	return msg
}

func (f *SolveFailure) Is(target error) bool {
	switch target {
	case ErrInfeasible:
		return f.Kind == FailureInfeasible
	case ErrTimedOut:
		return f.Kind == FailureTimedOut
	}
	return false
}

func (f *SolveFailure) Unwrap() error {
	return f.Cause
}

// AssignmentError means a solved player set could not be mapped onto the
// schema's slots. It points at a model/schema defect, not at bad input data.
type AssignmentError struct {
	Schema            string
	UnfilledSlots     []string
	UnassignedPlayers []string
	Reason            string
}

func (e *AssignmentError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "slot mismatch for schema %s", e.Schema)
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if len(e.UnfilledSlots) > 0 {
		fmt.Fprintf(&b, "; unfilled slots %v", e.UnfilledSlots)
	}
	if len(e.UnassignedPlayers) > 0 {
		fmt.Fprintf(&b, "; unassigned players %v", e.UnassignedPlayers)
	}
	return b.String()
}

func (e *AssignmentError) Unwrap() error {
	return ErrSlotMismatch
}
