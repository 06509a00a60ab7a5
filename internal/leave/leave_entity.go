package leave

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	StatusPending            = "PENDING"
	StatusApprovedByManager  = "APPROVED_BY_MANAGER"
	StatusApproved           = "APPROVED"
	StatusRejectedByManager  = "REJECTED_BY_MANAGER"
	StatusRejectedByReviewer = "REJECTED_BY_REVIEWER"
	StatusCancelled          = "CANCELLED"
)

const (
	CategoryCasual    = "Casual"
	CategorySick      = "Sick"
	CategoryEarned    = "Earned"
	CategoryMaternity = "Maternity"
	CategoryPaternity = "Paternity"
	CategoryEmergency = "Emergency"
	CategoryUnpaid    = "Unpaid"
)

const (
	PeriodMorning   = "Morning"
	PeriodAfternoon = "Afternoon"
)

// Decision trail actions, one per applied transition.
const (
	ActionSubmit          = "SUBMIT"
	ActionManagerApprove  = "MANAGER_APPROVE"
	ActionManagerReject   = "MANAGER_REJECT"
	ActionReviewerApprove = "REVIEWER_APPROVE"
	ActionReviewerReject  = "REVIEWER_REJECT"
	ActionCancel          = "CANCEL"
)

var validCategories = map[string]struct{}{
	CategoryCasual:    {},
	CategorySick:      {},
	CategoryEarned:    {},
	CategoryMaternity: {},
	CategoryPaternity: {},
	CategoryEmergency: {},
	CategoryUnpaid:    {},
}

func ValidCategory(c string) bool {
	_, ok := validCategories[c]
	return ok
}

type LeaveRequest struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SubjectID uuid.UUID `gorm:"type:uuid;not null;index:idx_leave_requests_subject_dates"`

	Category      string    `gorm:"type:varchar(20);not null"`
	StartDate     time.Time `gorm:"type:date;not null;index:idx_leave_requests_subject_dates"`
	EndDate       time.Time `gorm:"type:date;not null;index:idx_leave_requests_subject_dates"`
	IsHalfDay     bool      `gorm:"not null;default:false"`
	HalfDayPeriod *string   `gorm:"type:varchar(10)"`

	// Always derived from range + half-day flag, never caller-supplied.
	TotalDays decimal.Decimal `gorm:"type:numeric(5,1);not null"`

	Reason        string `gorm:"type:varchar(500);not null"`
	HandoverNotes string `gorm:"type:varchar(1000)"`

	Status    string    `gorm:"type:varchar(25);not null;default:'PENDING';index:idx_leave_requests_status"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Decisions []DecisionEntry `gorm:"foreignKey:RequestID;references:ID"`
}

// DecisionEntry is one row of the append-only trail. Seq is 1-based and
// unique per request; the DB constraint backs the exactly-once guarantee
// should the per-request lock ever be bypassed.
type DecisionEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RequestID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_decision_entries_request_seq"`
	Seq       int       `gorm:"not null;uniqueIndex:uq_decision_entries_request_seq"`
	ActorID   uuid.UUID `gorm:"type:uuid;not null"`
	Action    string    `gorm:"type:varchar(30);not null"`
	Comment   string    `gorm:"type:varchar(500)"`
	CreatedAt time.Time
}

var halfDay = decimal.NewFromFloat(0.5)

// computeTotalDays applies the day-count rule: inclusive span in whole
// days; a single day with the half-day flag counts 0.5. Dates must be
// midnight-normalized in the same location.
func computeTotalDays(start, end time.Time, isHalfDay bool) decimal.Decimal {
	d := int64(end.Sub(start).Hours()/24) + 1
	if isHalfDay && d == 1 {
		return halfDay
	}
	return decimal.NewFromInt(d)
}
