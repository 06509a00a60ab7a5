package leave_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"go-leave/internal/identity"
	"go-leave/internal/leave"
	leaveerrors "go-leave/internal/leave/errors"
	"go-leave/internal/shared/locker"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeLeaveRepository struct {
	withTxFn               func(tx *sql.Tx) leave.Repository
	createFn               func(ctx context.Context, l *leave.LeaveRequest) error
	findByIDFn             func(ctx context.Context, id string) (*leave.LeaveRequest, error)
	findBySubjectFn        func(ctx context.Context, subjectID string) ([]leave.LeaveRequest, error)
	findByStatusFn         func(ctx context.Context, status string) ([]leave.LeaveRequest, error)
	findBySubjectsAndStatusFn func(ctx context.Context, subjectIDs []string, status string) ([]leave.LeaveRequest, error)
	updateFn               func(ctx context.Context, l *leave.LeaveRequest) error
	appendDecisionFn       func(ctx context.Context, e *leave.DecisionEntry) error
	hasOverlappingPeriodFn func(ctx context.Context, subjectID string, startDate, endDate time.Time) (bool, error)
	sumApprovedDaysFn      func(ctx context.Context, subjectID, category string, year int) (decimal.Decimal, error)
}

func (f *fakeLeaveRepository) WithTx(tx *sql.Tx) leave.Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeLeaveRepository) Create(ctx context.Context, l *leave.LeaveRequest) error {
	if f.createFn != nil {
		return f.createFn(ctx, l)
	}
	return nil
}

func (f *fakeLeaveRepository) FindByID(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLeaveRepository) FindBySubject(ctx context.Context, subjectID string) ([]leave.LeaveRequest, error) {
	if f.findBySubjectFn != nil {
		return f.findBySubjectFn(ctx, subjectID)
	}
	return nil, nil
}

func (f *fakeLeaveRepository) FindByStatus(ctx context.Context, status string) ([]leave.LeaveRequest, error) {
	if f.findByStatusFn != nil {
		return f.findByStatusFn(ctx, status)
	}
	return nil, nil
}

func (f *fakeLeaveRepository) FindBySubjectsAndStatus(ctx context.Context, subjectIDs []string, status string) ([]leave.LeaveRequest, error) {
	if f.findBySubjectsAndStatusFn != nil {
		return f.findBySubjectsAndStatusFn(ctx, subjectIDs, status)
	}
	return nil, nil
}

func (f *fakeLeaveRepository) Update(ctx context.Context, l *leave.LeaveRequest) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, l)
	}
	return nil
}

func (f *fakeLeaveRepository) AppendDecision(ctx context.Context, e *leave.DecisionEntry) error {
	if f.appendDecisionFn != nil {
		return f.appendDecisionFn(ctx, e)
	}
	return nil
}

func (f *fakeLeaveRepository) HasOverlappingPeriod(ctx context.Context, subjectID string, startDate, endDate time.Time) (bool, error) {
	if f.hasOverlappingPeriodFn != nil {
		return f.hasOverlappingPeriodFn(ctx, subjectID, startDate, endDate)
	}
	return false, nil
}

func (f *fakeLeaveRepository) SumApprovedDays(ctx context.Context, subjectID, category string, year int) (decimal.Decimal, error) {
	if f.sumApprovedDaysFn != nil {
		return f.sumApprovedDaysFn(ctx, subjectID, category, year)
	}
	return decimal.Zero, nil
}

type fakeDirectory struct {
	directManagerFn   func(ctx context.Context, employeeID string) (string, bool, error)
	roleOfFn          func(ctx context.Context, employeeID string) (identity.Role, error)
	allotmentFn       func(ctx context.Context, employeeID, category string, year int) (decimal.Decimal, bool, error)
	directReportsFn   func(ctx context.Context, managerID string) ([]string, error)
	adjustAllotmentFn func(ctx context.Context, tx *sql.Tx, employeeID, category string, delta decimal.Decimal, year int) (decimal.Decimal, error)
}

func (f *fakeDirectory) DirectManager(ctx context.Context, employeeID string) (string, bool, error) {
	if f.directManagerFn != nil {
		return f.directManagerFn(ctx, employeeID)
	}
	return "", false, nil
}

func (f *fakeDirectory) RoleOf(ctx context.Context, employeeID string) (identity.Role, error) {
	if f.roleOfFn != nil {
		return f.roleOfFn(ctx, employeeID)
	}
	return identity.RoleEmployee, nil
}

func (f *fakeDirectory) Allotment(ctx context.Context, employeeID, category string, year int) (decimal.Decimal, bool, error) {
	if f.allotmentFn != nil {
		return f.allotmentFn(ctx, employeeID, category, year)
	}
	return decimal.NewFromInt(12), true, nil
}

func (f *fakeDirectory) DirectReports(ctx context.Context, managerID string) ([]string, error) {
	if f.directReportsFn != nil {
		return f.directReportsFn(ctx, managerID)
	}
	return nil, nil
}

func (f *fakeDirectory) AdjustAllotment(ctx context.Context, tx *sql.Tx, employeeID, category string, delta decimal.Decimal, year int) (decimal.Decimal, error) {
	if f.adjustAllotmentFn != nil {
		return f.adjustAllotmentFn(ctx, tx, employeeID, category, delta, year)
	}
	return decimal.NewFromInt(12).Add(delta), nil
}

type leaveServiceDeps struct {
	db      *sql.DB
	sqlMock sqlmock.Sqlmock
	service leave.Service
	repo    *fakeLeaveRepository
	dir     *fakeDirectory
}

func setupLeaveServiceTest(t *testing.T) *leaveServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	repo := &fakeLeaveRepository{}
	dir := &fakeDirectory{}
	locks := locker.NewKeyed(time.Second)
	svc := leave.NewService(db, repo, dir, locks, nil, nil)

	return &leaveServiceDeps{
		db:      db,
		sqlMock: sqlMock,
		service: svc,
		repo:    repo,
		dir:     dir,
	}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func TestLeaveService_Submit(t *testing.T) {
	ctx := context.Background()
	subjectID := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		req := leave.SubmitLeaveRequest{
			Category:  "Casual",
			StartDate: "2024-03-04",
			EndDate:   "2024-03-06",
			Reason:    "Family event",
		}

		deps.repo.hasOverlappingPeriodFn = func(ctx context.Context, sid string, startDate, endDate time.Time) (bool, error) {
			assert.Equal(t, subjectID, sid)
			assert.Equal(t, "2024-03-04", startDate.Format("2006-01-02"))
			assert.Equal(t, "2024-03-06", endDate.Format("2006-01-02"))
			return false, nil
		}
		deps.repo.createFn = func(ctx context.Context, l *leave.LeaveRequest) error {
			assert.Equal(t, uuid.MustParse(subjectID), l.SubjectID)
			assert.Equal(t, "Casual", l.Category)
			assert.Equal(t, "3", l.TotalDays.String())
			assert.Equal(t, leave.StatusPending, l.Status)
			return nil
		}
		deps.repo.appendDecisionFn = func(ctx context.Context, e *leave.DecisionEntry) error {
			assert.Equal(t, 1, e.Seq)
			assert.Equal(t, leave.ActionSubmit, e.Action)
			assert.Equal(t, uuid.MustParse(subjectID), e.ActorID)
			return nil
		}

		resp, err := deps.service.Submit(ctx, subjectID, req)

		assert.NoError(t, err)
		assert.Equal(t, subjectID, resp.SubjectID)
		assert.Equal(t, "3", resp.TotalDays)
		assert.Equal(t, leave.StatusPending, resp.Status)
		assert.Len(t, resp.Decisions, 1)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("success half day", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		period := "Morning"
		req := leave.SubmitLeaveRequest{
			Category:      "Sick",
			StartDate:     "2024-05-10",
			EndDate:       "2024-05-10",
			IsHalfDay:     true,
			HalfDayPeriod: &period,
			Reason:        "Doctor visit",
		}

		deps.repo.createFn = func(ctx context.Context, l *leave.LeaveRequest) error {
			assert.Equal(t, "0.5", l.TotalDays.String())
			assert.True(t, l.IsHalfDay)
			assert.NotNil(t, l.HalfDayPeriod)
			return nil
		}

		resp, err := deps.service.Submit(ctx, subjectID, req)

		assert.NoError(t, err)
		assert.Equal(t, "0.5", resp.TotalDays)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative overlapping period", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		req := leave.SubmitLeaveRequest{
			Category:  "Casual",
			StartDate: "2024-03-06",
			EndDate:   "2024-03-08",
			Reason:    "Trip",
		}

		// a shared boundary day still counts as overlap
		deps.repo.hasOverlappingPeriodFn = func(ctx context.Context, sid string, startDate, endDate time.Time) (bool, error) {
			return true, nil
		}

		_, err := deps.service.Submit(ctx, subjectID, req)

		assert.ErrorIs(t, err, leaveerrors.ErrLeaveOverlap)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative insufficient balance", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		req := leave.SubmitLeaveRequest{
			Category:  "Casual",
			StartDate: "2024-03-04",
			EndDate:   "2024-03-08",
			Reason:    "Long trip",
		}

		deps.dir.allotmentFn = func(ctx context.Context, eid, category string, year int) (decimal.Decimal, bool, error) {
			return decimal.NewFromInt(2), true, nil
		}

		_, err := deps.service.Submit(ctx, subjectID, req)

		assert.ErrorIs(t, err, leaveerrors.ErrInsufficientBalance)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("untracked category skips balance check", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		req := leave.SubmitLeaveRequest{
			Category:  "Unpaid",
			StartDate: "2024-03-04",
			EndDate:   "2024-03-20",
			Reason:    "Sabbatical",
		}

		deps.dir.allotmentFn = func(ctx context.Context, eid, category string, year int) (decimal.Decimal, bool, error) {
			return decimal.Zero, false, nil
		}

		resp, err := deps.service.Submit(ctx, subjectID, req)

		assert.NoError(t, err)
		assert.Equal(t, "17", resp.TotalDays)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative end before start", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		req := leave.SubmitLeaveRequest{
			Category:  "Casual",
			StartDate: "2024-03-06",
			EndDate:   "2024-03-04",
			Reason:    "Trip",
		}

		_, err := deps.service.Submit(ctx, subjectID, req)

		assert.ErrorIs(t, err, leaveerrors.ErrInvalidDateRange)
	})

	t.Run("negative unknown category", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		req := leave.SubmitLeaveRequest{
			Category:  "Gardening",
			StartDate: "2024-03-04",
			EndDate:   "2024-03-05",
			Reason:    "Trip",
		}

		_, err := deps.service.Submit(ctx, subjectID, req)

		assert.ErrorIs(t, err, leaveerrors.ErrInvalidCategory)
	})

	t.Run("negative half day without period", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		req := leave.SubmitLeaveRequest{
			Category:  "Casual",
			StartDate: "2024-03-04",
			EndDate:   "2024-03-04",
			IsHalfDay: true,
			Reason:    "Errand",
		}

		_, err := deps.service.Submit(ctx, subjectID, req)

		assert.ErrorIs(t, err, leaveerrors.ErrHalfDayPeriodRequired)
	})

	t.Run("negative period on multi day range", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		period := "Afternoon"
		req := leave.SubmitLeaveRequest{
			Category:      "Casual",
			StartDate:     "2024-03-04",
			EndDate:       "2024-03-06",
			IsHalfDay:     true,
			HalfDayPeriod: &period,
			Reason:        "Errand",
		}

		_, err := deps.service.Submit(ctx, subjectID, req)

		assert.ErrorIs(t, err, leaveerrors.ErrHalfDayPeriodNotAllowed)
	})

	t.Run("negative unknown subject", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		req := leave.SubmitLeaveRequest{
			Category:  "Casual",
			StartDate: "2024-03-04",
			EndDate:   "2024-03-05",
			Reason:    "Trip",
		}

		deps.dir.roleOfFn = func(ctx context.Context, eid string) (identity.Role, error) {
			return "", errors.New("employee not found")
		}

		_, err := deps.service.Submit(ctx, subjectID, req)

		assert.Error(t, err)
	})
}

func pendingLeave(subjectID uuid.UUID, start, end time.Time) *leave.LeaveRequest {
	id := uuid.New()
	return &leave.LeaveRequest{
		ID:        id,
		SubjectID: subjectID,
		Category:  "Casual",
		StartDate: start,
		EndDate:   end,
		TotalDays: decimal.NewFromInt(int64(end.Sub(start).Hours()/24) + 1),
		Reason:    "Trip",
		Status:    leave.StatusPending,
		CreatedBy: subjectID,
		Decisions: []leave.DecisionEntry{
			{ID: uuid.New(), RequestID: id, Seq: 1, ActorID: subjectID, Action: leave.ActionSubmit},
		},
	}
}

func TestLeaveService_Cancel(t *testing.T) {
	ctx := context.Background()
	subjectUUID := uuid.New()
	subjectID := subjectUUID.String()

	futureStart := time.Now().UTC().AddDate(0, 0, 2)
	futureEnd := futureStart.AddDate(0, 0, 1)

	t.Run("success", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		l := pendingLeave(subjectUUID, futureStart, futureEnd)

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return l, nil
		}
		deps.repo.updateFn = func(ctx context.Context, got *leave.LeaveRequest) error {
			assert.Equal(t, leave.StatusCancelled, got.Status)
			return nil
		}
		deps.repo.appendDecisionFn = func(ctx context.Context, e *leave.DecisionEntry) error {
			assert.Equal(t, 2, e.Seq)
			assert.Equal(t, leave.ActionCancel, e.Action)
			return nil
		}

		resp, err := deps.service.Cancel(ctx, subjectID, l.ID.String())

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusCancelled, resp.Status)
		assert.Len(t, resp.Decisions, 2)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative already started", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		now := time.Now().UTC()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		l := pendingLeave(subjectUUID, today, today.AddDate(0, 0, 1))

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return l, nil
		}

		_, err := deps.service.Cancel(ctx, subjectID, l.ID.String())

		assert.ErrorIs(t, err, leaveerrors.ErrLeaveAlreadyStarted)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative not owner", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		l := pendingLeave(subjectUUID, futureStart, futureEnd)

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return l, nil
		}

		_, err := deps.service.Cancel(ctx, uuid.New().String(), l.ID.String())

		assert.ErrorIs(t, err, leaveerrors.ErrNotRequestOwner)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative already decided", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		l := pendingLeave(subjectUUID, futureStart, futureEnd)
		l.Status = leave.StatusApprovedByManager

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return l, nil
		}

		_, err := deps.service.Cancel(ctx, subjectID, l.ID.String())

		assert.ErrorIs(t, err, leaveerrors.ErrInvalidStatusTransition)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative not found", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Cancel(ctx, subjectID, uuid.New().String())

		assert.ErrorIs(t, err, leaveerrors.ErrLeaveNotFound)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestLeaveService_ManagerDecide(t *testing.T) {
	ctx := context.Background()
	subjectUUID := uuid.New()
	managerID := uuid.New().String()

	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)

	t.Run("success approve", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		l := pendingLeave(subjectUUID, start, end)

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return l, nil
		}
		deps.dir.directManagerFn = func(ctx context.Context, eid string) (string, bool, error) {
			assert.Equal(t, subjectUUID.String(), eid)
			return managerID, true, nil
		}
		deps.repo.appendDecisionFn = func(ctx context.Context, e *leave.DecisionEntry) error {
			assert.Equal(t, 2, e.Seq)
			assert.Equal(t, leave.ActionManagerApprove, e.Action)
			return nil
		}

		resp, err := deps.service.ManagerDecide(ctx, managerID, l.ID.String(), leave.DecisionRequest{Action: "approve"})

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusApprovedByManager, resp.Status)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("success reject with comment", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		l := pendingLeave(subjectUUID, start, end)

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return l, nil
		}
		deps.dir.directManagerFn = func(ctx context.Context, eid string) (string, bool, error) {
			return managerID, true, nil
		}
		deps.repo.appendDecisionFn = func(ctx context.Context, e *leave.DecisionEntry) error {
			assert.Equal(t, leave.ActionManagerReject, e.Action)
			assert.Equal(t, "Team is short-staffed that week", e.Comment)
			return nil
		}

		resp, err := deps.service.ManagerDecide(ctx, managerID, l.ID.String(), leave.DecisionRequest{
			Action:  "reject",
			Comment: "Team is short-staffed that week",
		})

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusRejectedByManager, resp.Status)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative reject without comment", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		l := pendingLeave(subjectUUID, start, end)

		_, err := deps.service.ManagerDecide(ctx, managerID, l.ID.String(), leave.DecisionRequest{Action: "reject"})

		assert.ErrorIs(t, err, leaveerrors.ErrCommentRequired)
	})

	t.Run("negative not the direct manager", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		l := pendingLeave(subjectUUID, start, end)

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return l, nil
		}
		deps.dir.directManagerFn = func(ctx context.Context, eid string) (string, bool, error) {
			return uuid.New().String(), true, nil
		}

		_, err := deps.service.ManagerDecide(ctx, managerID, l.ID.String(), leave.DecisionRequest{Action: "approve"})

		assert.ErrorIs(t, err, leaveerrors.ErrNotDirectManager)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative already past pending", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		l := pendingLeave(subjectUUID, start, end)
		l.Status = leave.StatusApproved

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return l, nil
		}
		deps.dir.directManagerFn = func(ctx context.Context, eid string) (string, bool, error) {
			return managerID, true, nil
		}

		_, err := deps.service.ManagerDecide(ctx, managerID, l.ID.String(), leave.DecisionRequest{Action: "approve"})

		assert.ErrorIs(t, err, leaveerrors.ErrInvalidStatusTransition)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestLeaveService_ReviewerDecide(t *testing.T) {
	ctx := context.Background()
	subjectUUID := uuid.New()
	reviewerID := uuid.New().String()

	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)

	managerApproved := func() *leave.LeaveRequest {
		l := pendingLeave(subjectUUID, start, end)
		l.Status = leave.StatusApprovedByManager
		l.Decisions = append(l.Decisions, leave.DecisionEntry{
			ID: uuid.New(), RequestID: l.ID, Seq: 2, ActorID: uuid.New(), Action: leave.ActionManagerApprove,
		})
		return l
	}

	t.Run("success approve debits balance", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		l := managerApproved()

		debits := 0
		deps.repo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return l, nil
		}
		deps.dir.roleOfFn = func(ctx context.Context, eid string) (identity.Role, error) {
			return identity.RoleHRExecutive, nil
		}
		deps.dir.adjustAllotmentFn = func(ctx context.Context, tx *sql.Tx, eid, category string, delta decimal.Decimal, year int) (decimal.Decimal, error) {
			debits++
			assert.NotNil(t, tx)
			assert.Equal(t, subjectUUID.String(), eid)
			assert.Equal(t, "Casual", category)
			assert.Equal(t, "-3", delta.String())
			assert.Equal(t, 2024, year)
			return decimal.NewFromInt(9), nil
		}
		deps.repo.appendDecisionFn = func(ctx context.Context, e *leave.DecisionEntry) error {
			assert.Equal(t, 3, e.Seq)
			assert.Equal(t, leave.ActionReviewerApprove, e.Action)
			return nil
		}

		resp, err := deps.service.ReviewerDecide(ctx, reviewerID, l.ID.String(), leave.DecisionRequest{Action: "approve"})

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusApproved, resp.Status)
		assert.Equal(t, 1, debits)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("success reject leaves balance untouched", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		l := managerApproved()

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return l, nil
		}
		deps.dir.roleOfFn = func(ctx context.Context, eid string) (identity.Role, error) {
			return identity.RoleHRManager, nil
		}
		deps.dir.adjustAllotmentFn = func(ctx context.Context, tx *sql.Tx, eid, category string, delta decimal.Decimal, year int) (decimal.Decimal, error) {
			t.Fatal("balance must not change on rejection")
			return decimal.Zero, nil
		}

		resp, err := deps.service.ReviewerDecide(ctx, reviewerID, l.ID.String(), leave.DecisionRequest{
			Action:  "reject",
			Comment: "Quarter close",
		})

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusRejectedByReviewer, resp.Status)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative status write failure rolls back the debit", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		l := managerApproved()

		debits := 0
		deps.repo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return l, nil
		}
		deps.dir.roleOfFn = func(ctx context.Context, eid string) (identity.Role, error) {
			return identity.RoleHRExecutive, nil
		}
		deps.dir.adjustAllotmentFn = func(ctx context.Context, tx *sql.Tx, eid, category string, delta decimal.Decimal, year int) (decimal.Decimal, error) {
			debits++
			assert.NotNil(t, tx)
			return decimal.NewFromInt(9), nil
		}
		deps.repo.updateFn = func(ctx context.Context, got *leave.LeaveRequest) error {
			return errors.New("connection reset")
		}

		_, err := deps.service.ReviewerDecide(ctx, reviewerID, l.ID.String(), leave.DecisionRequest{Action: "approve"})

		assert.Error(t, err)
		assert.Equal(t, 1, debits)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative role below reviewer threshold", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		l := managerApproved()

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return l, nil
		}
		deps.dir.roleOfFn = func(ctx context.Context, eid string) (identity.Role, error) {
			return identity.RoleTeamManager, nil
		}

		_, err := deps.service.ReviewerDecide(ctx, reviewerID, l.ID.String(), leave.DecisionRequest{Action: "approve"})

		assert.ErrorIs(t, err, leaveerrors.ErrReviewerRoleRequired)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative still pending", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		l := pendingLeave(subjectUUID, start, end)

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return l, nil
		}
		deps.dir.roleOfFn = func(ctx context.Context, eid string) (identity.Role, error) {
			return identity.RoleHRExecutive, nil
		}

		_, err := deps.service.ReviewerDecide(ctx, reviewerID, l.ID.String(), leave.DecisionRequest{Action: "approve"})

		assert.ErrorIs(t, err, leaveerrors.ErrInvalidStatusTransition)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

// Two reviewers race to approve the same request: exactly one transition
// wins and the pool is debited exactly once.
func TestLeaveService_ConcurrentReviewerApprove(t *testing.T) {
	ctx := context.Background()
	subjectUUID := uuid.New()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	sqlMock.MatchExpectationsInOrder(false)

	sqlMock.ExpectBegin()
	sqlMock.ExpectBegin()
	sqlMock.ExpectCommit()
	sqlMock.ExpectRollback()

	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	l := pendingLeave(subjectUUID, start, start.AddDate(0, 0, 2))
	l.Status = leave.StatusApprovedByManager

	var mu sync.Mutex
	debits := 0

	repo := &fakeLeaveRepository{
		findByIDFn: func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			mu.Lock()
			defer mu.Unlock()
			cp := *l
			return &cp, nil
		},
		updateFn: func(ctx context.Context, got *leave.LeaveRequest) error {
			mu.Lock()
			defer mu.Unlock()
			l.Status = got.Status
			return nil
		},
	}
	dir := &fakeDirectory{
		roleOfFn: func(ctx context.Context, eid string) (identity.Role, error) {
			return identity.RoleHRExecutive, nil
		},
		adjustAllotmentFn: func(ctx context.Context, tx *sql.Tx, eid, category string, delta decimal.Decimal, year int) (decimal.Decimal, error) {
			mu.Lock()
			defer mu.Unlock()
			debits++
			return decimal.NewFromInt(9), nil
		},
	}

	locks := locker.NewKeyed(2 * time.Second)
	svc := leave.NewService(db, repo, dir, locks, nil, nil)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.ReviewerDecide(ctx, uuid.New().String(), l.ID.String(), leave.DecisionRequest{Action: "approve"})
			results[i] = err
		}(i)
	}
	wg.Wait()

	succeeded, conflicted := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, leaveerrors.ErrInvalidStatusTransition):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)
	assert.Equal(t, 1, debits)
	assert.Equal(t, leave.StatusApproved, l.Status)
}

func TestLeaveService_ProjectedBalance(t *testing.T) {
	ctx := context.Background()
	subjectID := uuid.New().String()

	t.Run("reconstructs grant from remaining plus consumed", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.dir.allotmentFn = func(ctx context.Context, eid, category string, year int) (decimal.Decimal, bool, error) {
			if category == "Casual" {
				return decimal.NewFromInt(9), true, nil
			}
			d, _ := identity.DefaultAllotment(category)
			return d, true, nil
		}
		deps.repo.sumApprovedDaysFn = func(ctx context.Context, sid, category string, year int) (decimal.Decimal, error) {
			if category == "Casual" {
				return decimal.NewFromInt(3), nil
			}
			return decimal.Zero, nil
		}

		resp, err := deps.service.ProjectedBalance(ctx, subjectID, subjectID, 2024)

		assert.NoError(t, err)
		assert.Equal(t, 2024, resp.Year)
		casual := resp.Categories["Casual"]
		assert.Equal(t, "12", casual.Allotment)
		assert.Equal(t, "3", casual.Consumed)
		assert.Equal(t, "9", casual.Available)
		sick := resp.Categories["Sick"]
		assert.Equal(t, "12", sick.Available)
	})

	t.Run("negative invalid subject id", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.ProjectedBalance(ctx, "not-a-uuid", "not-a-uuid", 2024)

		assert.ErrorIs(t, err, leaveerrors.ErrInvalidActorID)
	})
}

func TestLeaveService_ReviewQueue(t *testing.T) {
	ctx := context.Background()
	reviewerID := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.dir.roleOfFn = func(ctx context.Context, eid string) (identity.Role, error) {
			return identity.RoleHRExecutive, nil
		}
		deps.repo.findByStatusFn = func(ctx context.Context, status string) ([]leave.LeaveRequest, error) {
			assert.Equal(t, leave.StatusApprovedByManager, status)
			return []leave.LeaveRequest{*pendingLeave(uuid.New(), time.Now(), time.Now())}, nil
		}

		resp, err := deps.service.ReviewQueue(ctx, reviewerID)

		assert.NoError(t, err)
		assert.Len(t, resp, 1)
	})

	t.Run("negative employee role", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.dir.roleOfFn = func(ctx context.Context, eid string) (identity.Role, error) {
			return identity.RoleEmployee, nil
		}

		_, err := deps.service.ReviewQueue(ctx, reviewerID)

		assert.ErrorIs(t, err, leaveerrors.ErrReviewerRoleRequired)
	})
}

func TestLeaveService_GetBySubject(t *testing.T) {
	ctx := context.Background()
	subjectUUID := uuid.New()
	subjectID := subjectUUID.String()
	managerID := uuid.New().String()

	listOne := func(deps *leaveServiceDeps) {
		deps.repo.findBySubjectFn = func(ctx context.Context, sid string) ([]leave.LeaveRequest, error) {
			assert.Equal(t, subjectID, sid)
			start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
			return []leave.LeaveRequest{*pendingLeave(subjectUUID, start, start)}, nil
		}
	}

	t.Run("success own requests", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()
		listOne(deps)

		resp, err := deps.service.GetBySubject(ctx, subjectID, subjectID)

		assert.NoError(t, err)
		assert.Len(t, resp, 1)
	})

	t.Run("success direct manager reads a report", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()
		listOne(deps)

		deps.dir.directManagerFn = func(ctx context.Context, eid string) (string, bool, error) {
			assert.Equal(t, subjectID, eid)
			return managerID, true, nil
		}

		resp, err := deps.service.GetBySubject(ctx, managerID, subjectID)

		assert.NoError(t, err)
		assert.Len(t, resp, 1)
	})

	t.Run("success reviewer reads anyone", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()
		listOne(deps)

		deps.dir.roleOfFn = func(ctx context.Context, eid string) (identity.Role, error) {
			return identity.RoleHRExecutive, nil
		}

		resp, err := deps.service.GetBySubject(ctx, uuid.New().String(), subjectID)

		assert.NoError(t, err)
		assert.Len(t, resp, 1)
	})

	t.Run("negative unrelated employee", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.dir.directManagerFn = func(ctx context.Context, eid string) (string, bool, error) {
			return managerID, true, nil
		}
		deps.dir.roleOfFn = func(ctx context.Context, eid string) (identity.Role, error) {
			return identity.RoleEmployee, nil
		}
		deps.repo.findBySubjectFn = func(ctx context.Context, sid string) ([]leave.LeaveRequest, error) {
			t.Fatal("repository must not be reached")
			return nil, nil
		}

		_, err := deps.service.GetBySubject(ctx, uuid.New().String(), subjectID)

		assert.ErrorIs(t, err, leaveerrors.ErrSubjectAccessDenied)
	})

	t.Run("negative unrelated employee balance read", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.dir.directManagerFn = func(ctx context.Context, eid string) (string, bool, error) {
			return managerID, true, nil
		}
		deps.dir.roleOfFn = func(ctx context.Context, eid string) (identity.Role, error) {
			return identity.RoleEmployee, nil
		}

		_, err := deps.service.ProjectedBalance(ctx, uuid.New().String(), subjectID, 2024)

		assert.ErrorIs(t, err, leaveerrors.ErrSubjectAccessDenied)
	})
}

func TestLeaveService_TeamQueue(t *testing.T) {
	ctx := context.Background()
	managerID := uuid.New().String()

	t.Run("success pending requests of direct reports", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		reportA := uuid.New()
		reportB := uuid.New()

		deps.dir.roleOfFn = func(ctx context.Context, eid string) (identity.Role, error) {
			return identity.RoleTeamLeader, nil
		}
		deps.dir.directReportsFn = func(ctx context.Context, mid string) ([]string, error) {
			assert.Equal(t, managerID, mid)
			return []string{reportA.String(), reportB.String()}, nil
		}
		deps.repo.findBySubjectsAndStatusFn = func(ctx context.Context, subjectIDs []string, status string) ([]leave.LeaveRequest, error) {
			assert.Equal(t, []string{reportA.String(), reportB.String()}, subjectIDs)
			assert.Equal(t, leave.StatusPending, status)
			start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
			return []leave.LeaveRequest{*pendingLeave(reportA, start, start)}, nil
		}

		resp, err := deps.service.TeamQueue(ctx, managerID)

		assert.NoError(t, err)
		assert.Len(t, resp, 1)
	})

	t.Run("success no reports", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.dir.roleOfFn = func(ctx context.Context, eid string) (identity.Role, error) {
			return identity.RoleTeamManager, nil
		}
		deps.repo.findBySubjectsAndStatusFn = func(ctx context.Context, subjectIDs []string, status string) ([]leave.LeaveRequest, error) {
			t.Fatal("repository must not be reached without reports")
			return nil, nil
		}

		resp, err := deps.service.TeamQueue(ctx, managerID)

		assert.NoError(t, err)
		assert.Empty(t, resp)
	})

	t.Run("negative employee role", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.dir.roleOfFn = func(ctx context.Context, eid string) (identity.Role, error) {
			return identity.RoleEmployee, nil
		}

		_, err := deps.service.TeamQueue(ctx, managerID)

		assert.ErrorIs(t, err, leaveerrors.ErrManagerRoleRequired)
	})
}
