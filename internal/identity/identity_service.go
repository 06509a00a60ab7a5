package identity

import (
	"context"
	"database/sql"
	"errors"

	identityerrors "go-leave/internal/identity/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service is the identity/org collaborator consumed by the leave core:
// manager lookups, role levels and the entitlement pool. AdjustAllotment
// is the single write this package exposes.
//
//go:generate mockgen -source=identity_service.go -destination=mock/identity_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, req CreateEmployeeRequest) (EmployeeResponse, error)
	List(ctx context.Context) ([]EmployeeResponse, error)
	GetByID(ctx context.Context, id string) (*Employee, error)
	DirectManager(ctx context.Context, employeeID string) (string, bool, error)
	DirectReports(ctx context.Context, managerID string) ([]string, error)
	RoleOf(ctx context.Context, employeeID string) (Role, error)
	Allotment(ctx context.Context, employeeID, category string, year int) (decimal.Decimal, bool, error)
	AdjustAllotment(ctx context.Context, tx *sql.Tx, employeeID, category string, delta decimal.Decimal, year int) (decimal.Decimal, error)
}

type service struct {
	db     *sql.DB
	repo   Repository
	logger *zap.Logger
}

func NewService(db *sql.DB, repo Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("identity.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("identity.service")
	}
	return &service{db: db, repo: repo, logger: l}
}

func (s *service) Create(ctx context.Context, req CreateEmployeeRequest) (EmployeeResponse, error) {
	if !Role(req.Role).Valid() {
		return EmployeeResponse{}, identityerrors.ErrInvalidRole
	}

	e := Employee{
		ID:       uuid.New(),
		FullName: req.FullName,
		Email:    req.Email,
		Role:     req.Role,
		IsActive: true,
	}
	if req.ReportingManagerID != nil {
		managerID, err := uuid.Parse(*req.ReportingManagerID)
		if err != nil {
			return EmployeeResponse{}, identityerrors.ErrInvalidEmployeeID
		}
		if _, err := s.GetByID(ctx, managerID.String()); err != nil {
			return EmployeeResponse{}, identityerrors.ErrManagerNotFound
		}
		e.ReportingManagerID = &managerID
	}

	if err := s.repo.Create(ctx, &e); err != nil {
		if isUniqueEmailViolation(err) {
			return EmployeeResponse{}, identityerrors.ErrEmailTaken
		}
		s.logger.Error("create employee failed", zap.String("email", req.Email), zap.Error(err))
		return EmployeeResponse{}, err
	}

	s.logger.Info("employee created",
		zap.String("employee_id", e.ID.String()),
		zap.String("role", e.Role),
	)
	return mapToEmployeeResponse(e), nil
}

func (s *service) List(ctx context.Context) ([]EmployeeResponse, error) {
	employees, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]EmployeeResponse, len(employees))
	for i, e := range employees {
		resp[i] = mapToEmployeeResponse(e)
	}
	return resp, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Employee, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, identityerrors.ErrInvalidEmployeeID
	}

	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, identityerrors.ErrEmployeeNotFound
		}
		s.logger.Error("find employee failed", zap.String("employee_id", id), zap.Error(err))
		return nil, err
	}
	if !e.IsActive {
		return nil, identityerrors.ErrEmployeeInactive
	}
	return e, nil
}

// DirectManager returns the reporting manager id; ok is false when the
// employee sits at the top of a reporting line.
func (s *service) DirectManager(ctx context.Context, employeeID string) (string, bool, error) {
	e, err := s.GetByID(ctx, employeeID)
	if err != nil {
		return "", false, err
	}
	if e.ReportingManagerID == nil {
		return "", false, nil
	}
	return e.ReportingManagerID.String(), true, nil
}

// DirectReports lists the active employees reporting to managerID.
func (s *service) DirectReports(ctx context.Context, managerID string) ([]string, error) {
	if _, err := uuid.Parse(managerID); err != nil {
		return nil, identityerrors.ErrInvalidEmployeeID
	}

	employees, err := s.repo.FindByManager(ctx, managerID)
	if err != nil {
		s.logger.Error("find direct reports failed", zap.String("manager_id", managerID), zap.Error(err))
		return nil, err
	}

	ids := make([]string, len(employees))
	for i, e := range employees {
		ids[i] = e.ID.String()
	}
	return ids, nil
}

func (s *service) RoleOf(ctx context.Context, employeeID string) (Role, error) {
	e, err := s.GetByID(ctx, employeeID)
	if err != nil {
		return "", err
	}
	return Role(e.Role), nil
}

// Allotment returns the remaining pool for a tracked category, falling
// back to the category default when no row has materialized yet. The
// second return is false for untracked categories, which impose no limit.
func (s *service) Allotment(ctx context.Context, employeeID, category string, year int) (decimal.Decimal, bool, error) {
	def, tracked := DefaultAllotment(category)
	if !tracked {
		return decimal.Zero, false, nil
	}

	b, err := s.repo.FindAllotmentRow(ctx, employeeID, category, year)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return def, true, nil
		}
		s.logger.Error("find allotment failed",
			zap.String("employee_id", employeeID),
			zap.String("category", category),
			zap.Int("year", year),
			zap.Error(err),
		)
		return decimal.Zero, false, err
	}
	return b.Allotment, true, nil
}

// AdjustAllotment applies delta to the stored pool. A non-nil tx routes
// the upsert onto the caller's transaction so the debit commits or rolls
// back together with the state write that triggered it.
func (s *service) AdjustAllotment(ctx context.Context, tx *sql.Tx, employeeID, category string, delta decimal.Decimal, year int) (decimal.Decimal, error) {
	def, tracked := DefaultAllotment(category)
	if !tracked {
		return decimal.Zero, identityerrors.ErrUntrackedCategory
	}

	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}

	remaining, err := repo.AdjustAllotment(ctx, employeeID, category, year, def, delta)
	if err != nil {
		s.logger.Error("adjust allotment failed",
			zap.String("employee_id", employeeID),
			zap.String("category", category),
			zap.Int("year", year),
			zap.String("delta", delta.String()),
			zap.Error(err),
		)
		return decimal.Zero, err
	}

	s.logger.Info("allotment adjusted",
		zap.String("employee_id", employeeID),
		zap.String("category", category),
		zap.Int("year", year),
		zap.String("delta", delta.String()),
		zap.String("remaining", remaining.String()),
	)
	return remaining, nil
}
