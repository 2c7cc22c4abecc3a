package repository

import (
	"context"
	"errors"

	"github.com/finance-tracker/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrDuplicate is returned when a write violates a unique constraint
	ErrDuplicate = errors.New("duplicate record")
)

// pgUniqueViolation is the postgres SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

// AccountStore is the account persistence contract
type AccountStore interface {
	ListActiveByUserID(ctx context.Context, userID uint) ([]models.Account, error)
	GetActiveByIDAndUserID(ctx context.Context, id, userID uint) (*models.Account, error)
	// GetActiveByIDAndUserIDForUpdate locks the row until the surrounding transaction ends
	GetActiveByIDAndUserIDForUpdate(ctx context.Context, id, userID uint) (*models.Account, error)
	GetBalanceForUpdate(ctx context.Context, id uint) (decimal.Decimal, error)
	ExistsActiveName(ctx context.Context, userID uint, name string, excludeID uint) (bool, error)
	Create(ctx context.Context, account *models.Account) error
	Update(ctx context.Context, account *models.Account) error
	SumActiveBalances(ctx context.Context, userID uint) (current, initial decimal.Decimal, err error)
}

// BalanceHistoryStore is the append-only history persistence contract.
// A pageSize <= 0 returns every matching row.
type BalanceHistoryStore interface {
	Create(ctx context.Context, history *models.BalanceHistory) error
	ListByAccountID(ctx context.Context, accountID uint, page, pageSize int) ([]models.BalanceHistoryResponse, int64, error)
	ListByUserID(ctx context.Context, userID uint, filter models.HistoryFilter, page, pageSize int) ([]models.BalanceHistoryResponse, int64, error)
}

// UserStore is the user persistence contract
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Count(ctx context.Context) (int64, error)
}

// Stores groups the stores that take part in one unit of work
type Stores struct {
	Accounts AccountStore
	History  BalanceHistoryStore
}

// Transactor runs fn inside a single all-or-nothing unit of work.
// Returning an error from fn rolls back every write made through s.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(s Stores) error) error
}

// NewStores builds gorm-backed stores sharing db
func NewStores(db *gorm.DB) Stores {
	return Stores{
		Accounts: NewAccountRepository(db),
		History:  NewBalanceHistoryRepository(db),
	}
}

// GormTransactor implements Transactor on a gorm database transaction
type GormTransactor struct {
	db *gorm.DB
}

// NewGormTransactor creates a new GormTransactor
func NewGormTransactor(db *gorm.DB) *GormTransactor {
	return &GormTransactor{db: db}
}

// WithinTransaction implements Transactor
func (t *GormTransactor) WithinTransaction(ctx context.Context, fn func(s Stores) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStores(tx))
	})
}

// isUniqueViolation reports whether err comes from a unique constraint
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// offset converts a 1-indexed page to a row offset
func offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}
