package models

// RunStatus is the lifecycle of one run while it is being processed.
// It exists only for the duration of the run; nothing is persisted.
type RunStatus string

const (
	RunStatusAwaitingStart RunStatus = "awaiting_start"
	RunStatusPolling       RunStatus = "polling"
	RunStatusConverting    RunStatus = "converting"
	RunStatusOptimizing    RunStatus = "optimizing"
	RunStatusDone          RunStatus = "done"
	RunStatusAbandoned     RunStatus = "abandoned"
)

// IsValidRunStatus checks if the status is recognized.
func IsValidRunStatus(s RunStatus) bool {
	switch s {
	case RunStatusAwaitingStart, RunStatusPolling, RunStatusConverting,
		RunStatusOptimizing, RunStatusDone, RunStatusAbandoned:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the run has finished, successfully or not.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusDone || s == RunStatusAbandoned
}

// CanTransitionTo checks if a lifecycle transition is valid.
// Valid transitions:
//
//	awaiting_start -> polling
//	polling -> converting | abandoned
//	converting -> optimizing
//	optimizing -> done
func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	switch s {
	case RunStatusAwaitingStart:
		return next == RunStatusPolling
	case RunStatusPolling:
		return next == RunStatusConverting || next == RunStatusAbandoned
	case RunStatusConverting:
		return next == RunStatusOptimizing
	case RunStatusOptimizing:
		return next == RunStatusDone
	default:
		return false
	}
}
