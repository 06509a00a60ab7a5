package identity

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

//go:generate mockgen -source=identity_repo.go -destination=mock/identity_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, e *Employee) error
	FindByID(ctx context.Context, id string) (*Employee, error)
	FindAll(ctx context.Context) ([]Employee, error)
	FindByManager(ctx context.Context, managerID string) ([]Employee, error)
	FindAllotmentRow(ctx context.Context, employeeID, category string, year int) (*EntitlementBalance, error)
	AdjustAllotment(ctx context.Context, employeeID, category string, year int, initial, delta decimal.Decimal) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx returns a view whose statements execute on tx. The ledger uses
// it to put the allotment debit on the same transaction as the leave
// status write.
func (r *repository) WithTx(tx *sql.Tx) Repository {
	db := r.db.Session(&gorm.Session{NewDB: true, SkipDefaultTransaction: true})
	db.Statement.ConnPool = tx
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, e *Employee) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*Employee, error) {
	var e Employee
	err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error
	return &e, err
}

func (r *repository) FindAll(ctx context.Context) ([]Employee, error) {
	var employees []Employee
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&employees).Error
	return employees, err
}

func (r *repository) FindByManager(ctx context.Context, managerID string) ([]Employee, error) {
	var employees []Employee
	err := r.db.WithContext(ctx).
		Where("reporting_manager_id = ?", managerID).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&employees).Error
	return employees, err
}

func (r *repository) FindAllotmentRow(ctx context.Context, employeeID, category string, year int) (*EntitlementBalance, error) {
	var b EntitlementBalance
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Where("category = ?", category).
		Where("year = ?", year).
		First(&b).Error
	return &b, err
}

// AdjustAllotment applies delta in a single atomic UPSERT so concurrent
// adjustments per employee/category/year can never lose an update. A
// missing row is seeded with the category default before the delta.
func (r *repository) AdjustAllotment(ctx context.Context, employeeID, category string, year int, initial, delta decimal.Decimal) (decimal.Decimal, error) {
	row := r.db.WithContext(ctx).Raw(`
		INSERT INTO entitlement_balances (employee_id, category, year, allotment, created_at, updated_at)
		VALUES (?, ?, ?, ?::numeric + ?::numeric, now(), now())
		ON CONFLICT (employee_id, category, year) DO UPDATE
		SET allotment = entitlement_balances.allotment + ?::numeric, updated_at = now()
		RETURNING allotment
	`, employeeID, category, year, initial.String(), delta.String(), delta.String()).Row()

	var remaining decimal.Decimal
	if err := row.Scan(&remaining); err != nil {
		return decimal.Zero, err
	}
	return remaining, nil
}

func isUniqueEmailViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "uq_employees_email"
	}
	return false
}
