package leave

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	leaveerrors "go-leave/internal/leave/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

//go:generate mockgen -source=leave_repo.go -destination=mock/leave_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, r *LeaveRequest) error
	FindByID(ctx context.Context, id string) (*LeaveRequest, error)
	FindBySubject(ctx context.Context, subjectID string) ([]LeaveRequest, error)
	FindByStatus(ctx context.Context, status string) ([]LeaveRequest, error)
	FindBySubjectsAndStatus(ctx context.Context, subjectIDs []string, status string) ([]LeaveRequest, error)
	Update(ctx context.Context, r *LeaveRequest) error
	AppendDecision(ctx context.Context, e *DecisionEntry) error
	HasOverlappingPeriod(ctx context.Context, subjectID string, startDate, endDate time.Time) (bool, error)
	SumApprovedDays(ctx context.Context, subjectID, category string, year int) (decimal.Decimal, error)
}

// activeStatuses are the states that occupy calendar days for conflict
// purposes. Rejected and cancelled requests never conflict.
var activeStatuses = []string{StatusPending, StatusApprovedByManager, StatusApproved}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx returns a view whose statements execute on tx, so the status
// write and trail append commit or roll back as one unit.
func (r *repository) WithTx(tx *sql.Tx) Repository {
	db := r.db.Session(&gorm.Session{NewDB: true, SkipDefaultTransaction: true})
	db.Statement.ConnPool = tx
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, l *LeaveRequest) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*LeaveRequest, error) {
	var l LeaveRequest
	err := r.db.WithContext(ctx).
		Preload("Decisions", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		First(&l, "id = ?", id).Error
	return &l, err
}

func (r *repository) FindBySubject(ctx context.Context, subjectID string) ([]LeaveRequest, error) {
	var leaves []LeaveRequest
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("start_date DESC").
		Find(&leaves).Error
	return leaves, err
}

func (r *repository) FindByStatus(ctx context.Context, status string) ([]LeaveRequest, error) {
	var leaves []LeaveRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&leaves).Error
	return leaves, err
}

func (r *repository) FindBySubjectsAndStatus(ctx context.Context, subjectIDs []string, status string) ([]LeaveRequest, error) {
	var leaves []LeaveRequest
	err := r.db.WithContext(ctx).
		Where("subject_id IN ?", subjectIDs).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&leaves).Error
	return leaves, err
}

func (r *repository) Update(ctx context.Context, l *LeaveRequest) error {
	return r.db.WithContext(ctx).Omit("Decisions").Save(l).Error
}

// AppendDecision inserts one trail row. The (request_id, seq) unique
// constraint turns a racing writer that slipped past the lock into a
// state error instead of a duplicated trail entry.
func (r *repository) AppendDecision(ctx context.Context, e *DecisionEntry) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		if isUniqueDecisionViolation(err) {
			return leaveerrors.ErrInvalidStatusTransition
		}
		return err
	}
	return nil
}

func (r *repository) HasOverlappingPeriod(ctx context.Context, subjectID string, startDate, endDate time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Where("subject_id = ?", subjectID).
		Where("status IN ?", activeStatuses).
		Where("NOT (end_date < ? OR start_date > ?)", startDate, endDate).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) SumApprovedDays(ctx context.Context, subjectID, category string, year int) (decimal.Decimal, error) {
	startOfYear := fmt.Sprintf("%04d-01-01", year)
	endOfYear := fmt.Sprintf("%04d-12-31", year)

	row := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Select("COALESCE(SUM(total_days), 0)").
		Where("subject_id = ?", subjectID).
		Where("category = ?", category).
		Where("status = ?", StatusApproved).
		Where("start_date BETWEEN ? AND ?", startOfYear, endOfYear).
		Row()

	var sum decimal.Decimal
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

func isUniqueDecisionViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "uq_decision_entries_request_seq"
	}
	return false
}
