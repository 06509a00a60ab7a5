package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Employee struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FullName string    `gorm:"type:varchar(120);not null"`
	Email    string    `gorm:"type:varchar(255);not null;uniqueIndex:uq_employees_email"`

	Role               string     `gorm:"type:varchar(30);not null;default:'Employee'"`
	ReportingManagerID *uuid.UUID `gorm:"type:uuid;index:idx_employees_reporting_manager"`
	IsActive           bool       `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntitlementBalance stores the REMAINING pool per employee, category and
// year. The final-approval debit decrements it permanently; the original
// annual grant is reconstructed as remaining + consumed when reporting.
// Rows materialize lazily, so a missing row means the category default.
type EntitlementBalance struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EmployeeID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_entitlements_employee_category_year"`
	Category   string          `gorm:"type:varchar(20);not null;uniqueIndex:uq_entitlements_employee_category_year"`
	Year       int             `gorm:"not null;uniqueIndex:uq_entitlements_employee_category_year"`
	Allotment  decimal.Decimal `gorm:"type:numeric(6,1);not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Annual defaults for the tracked categories. Emergency and Unpaid are
// deliberately absent: they carry no allotment and impose no limit.
var defaultAllotments = map[string]decimal.Decimal{
	"Casual":    decimal.NewFromInt(12),
	"Sick":      decimal.NewFromInt(12),
	"Earned":    decimal.NewFromInt(21),
	"Maternity": decimal.Zero,
	"Paternity": decimal.Zero,
}

// TrackedCategories returns the categories with an annual allotment, in
// report order.
func TrackedCategories() []string {
	return []string{"Casual", "Sick", "Earned", "Maternity", "Paternity"}
}

// DefaultAllotment returns the annual default for a category and whether
// the category is tracked at all.
func DefaultAllotment(category string) (decimal.Decimal, bool) {
	d, ok := defaultAllotments[category]
	return d, ok
}
