package leave

// Transition kinds the guard distinguishes. Submit and Cancel are
// subject-only; ManagerDecide needs the direct manager; ReviewerDecide
// needs reviewer authority.
const (
	TransitionSubmit         = "SUBMIT"
	TransitionCancel         = "CANCEL"
	TransitionManagerDecide  = "MANAGER_DECIDE"
	TransitionReviewerDecide = "REVIEWER_DECIDE"
)

func isTerminalStatus(status string) bool {
	switch status {
	case StatusApproved, StatusRejectedByManager, StatusRejectedByReviewer, StatusCancelled:
		return true
	default:
		return false
	}
}

// isAllowedStatusTransition is the single source of truth for the
// lifecycle. Anything not listed here is rejected without mutation.
func isAllowedStatusTransition(currentStatus, targetStatus string) bool {
	switch currentStatus {
	case StatusPending:
		return targetStatus == StatusApprovedByManager ||
			targetStatus == StatusRejectedByManager ||
			targetStatus == StatusCancelled
	case StatusApprovedByManager:
		return targetStatus == StatusApproved ||
			targetStatus == StatusRejectedByReviewer
	default:
		return false
	}
}

// actionForTarget names the trail entry for a status write.
func actionForTarget(targetStatus string) string {
	switch targetStatus {
	case StatusApprovedByManager:
		return ActionManagerApprove
	case StatusRejectedByManager:
		return ActionManagerReject
	case StatusApproved:
		return ActionReviewerApprove
	case StatusRejectedByReviewer:
		return ActionReviewerReject
	case StatusCancelled:
		return ActionCancel
	default:
		return ""
	}
}
