package leave

import "time"

type SubmitLeaveRequest struct {
	Category      string  `json:"category" binding:"required"`
	StartDate     string  `json:"start_date" binding:"required"`
	EndDate       string  `json:"end_date" binding:"required"`
	IsHalfDay     bool    `json:"is_half_day"`
	HalfDayPeriod *string `json:"half_day_period" binding:"omitempty,oneof=Morning Afternoon"`
	Reason        string  `json:"reason" binding:"required,max=500"`
	HandoverNotes string  `json:"handover_notes" binding:"max=1000"`
}

type DecisionRequest struct {
	Action  string `json:"action" binding:"required,oneof=approve reject"`
	Comment string `json:"comment" binding:"max=500"`
}

type DecisionEntryResponse struct {
	Seq     int    `json:"seq"`
	ActorID string `json:"actor_id"`
	Action  string `json:"action"`
	Comment string `json:"comment,omitempty"`
	At      string `json:"at"`
}

type LeaveResponse struct {
	ID            string                  `json:"id"`
	SubjectID     string                  `json:"subject_id"`
	Category      string                  `json:"category"`
	StartDate     string                  `json:"start_date"`
	EndDate       string                  `json:"end_date"`
	IsHalfDay     bool                    `json:"is_half_day"`
	HalfDayPeriod *string                 `json:"half_day_period,omitempty"`
	TotalDays     string                  `json:"total_days"`
	Reason        string                  `json:"reason"`
	HandoverNotes string                  `json:"handover_notes,omitempty"`
	Status        string                  `json:"status"`
	CreatedBy     string                  `json:"created_by"`
	CreatedAt     string                  `json:"created_at"`
	UpdatedAt     string                  `json:"updated_at"`
	Decisions     []DecisionEntryResponse `json:"decisions"`
}

type BalanceResponse struct {
	SubjectID  string                     `json:"subject_id"`
	Year       int                        `json:"year"`
	Categories map[string]CategoryBalance `json:"categories"`
}

func mapToResponse(l LeaveRequest) LeaveResponse {
	resp := LeaveResponse{
		ID:            l.ID.String(),
		SubjectID:     l.SubjectID.String(),
		Category:      l.Category,
		StartDate:     l.StartDate.Format("2006-01-02"),
		EndDate:       l.EndDate.Format("2006-01-02"),
		IsHalfDay:     l.IsHalfDay,
		HalfDayPeriod: l.HalfDayPeriod,
		TotalDays:     l.TotalDays.String(),
		Reason:        l.Reason,
		HandoverNotes: l.HandoverNotes,
		Status:        l.Status,
		CreatedBy:     l.CreatedBy.String(),
		CreatedAt:     l.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     l.UpdatedAt.UTC().Format(time.RFC3339),
		Decisions:     make([]DecisionEntryResponse, len(l.Decisions)),
	}
	for i, d := range l.Decisions {
		resp.Decisions[i] = DecisionEntryResponse{
			Seq:     d.Seq,
			ActorID: d.ActorID.String(),
			Action:  d.Action,
			Comment: d.Comment,
			At:      d.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	return resp
}

func mapToListResponse(leaves []LeaveRequest) []LeaveResponse {
	resp := make([]LeaveResponse, len(leaves))
	for i, l := range leaves {
		resp[i] = mapToResponse(l)
	}
	return resp
}
