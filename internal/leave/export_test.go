package leave

// Handles for tests in the leave_test package.
var (
	ComputeTotalDays          = computeTotalDays
	IsAllowedStatusTransition = isAllowedStatusTransition
	IsTerminalStatus          = isTerminalStatus
	ActionForTarget           = actionForTarget
)
