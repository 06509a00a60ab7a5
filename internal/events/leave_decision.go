package events

import "time"

const LeaveDecisionTopic = "hr.leave.decision.v1"

type LeaveDecisionEvent struct {
	EventType  string    `json:"event_type"`
	RequestID  string    `json:"request_id"`
	SubjectID  string    `json:"subject_id"`
	Category   string    `json:"category"`
	TotalDays  string    `json:"total_days"`
	Status     string    `json:"status"`
	DecidedBy  string    `json:"decided_by"`
	OccurredAt time.Time `json:"occurred_at"`
}
