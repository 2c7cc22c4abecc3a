package repository

import (
	"context"
	"errors"

	"github.com/finance-tracker/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound = errors.New("account not found")
)

// AccountRepository handles account data access
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create creates a new account
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// ListActiveByUserID retrieves all active accounts for a user ordered by name
func (r *AccountRepository) ListActiveByUserID(ctx context.Context, userID uint) ([]models.Account, error) {
	var accounts []models.Account
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("name ASC").
		Find(&accounts)
	if result.Error != nil {
		return nil, result.Error
	}
	return accounts, nil
}

// GetActiveByIDAndUserID retrieves an active account owned by userID
func (r *AccountRepository) GetActiveByIDAndUserID(ctx context.Context, id, userID uint) (*models.Account, error) {
	return r.first(r.db.WithContext(ctx), id, userID)
}

// GetActiveByIDAndUserIDForUpdate retrieves an active account owned by userID with a row lock
func (r *AccountRepository) GetActiveByIDAndUserIDForUpdate(ctx context.Context, id, userID uint) (*models.Account, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id, userID)
}

func (r *AccountRepository) first(db *gorm.DB, id, userID uint) (*models.Account, error) {
	var account models.Account
	result := db.Where("id = ? AND user_id = ? AND is_active = ?", id, userID, true).First(&account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, result.Error
	}
	return &account, nil
}

// GetBalanceForUpdate reads the current balance of an account with a row lock
func (r *AccountRepository) GetBalanceForUpdate(ctx context.Context, id uint) (decimal.Decimal, error) {
	var account models.Account
	result := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "current_balance").
		First(&account, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, result.Error
	}
	return account.CurrentBalance, nil
}

// ExistsActiveName checks whether the user already has an active account with that name
func (r *AccountRepository) ExistsActiveName(ctx context.Context, userID uint, name string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("user_id = ? AND name = ? AND is_active = ?", userID, name, true)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update updates an account
func (r *AccountRepository) Update(ctx context.Context, account *models.Account) error {
	if err := r.db.WithContext(ctx).Save(account).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// SumActiveBalances sums current and initial balances over the user's active accounts
func (r *AccountRepository) SumActiveBalances(ctx context.Context, userID uint) (decimal.Decimal, decimal.Decimal, error) {
	var total struct {
		TotalCurrent decimal.Decimal
		TotalInitial decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&models.Account{}).
		Select("COALESCE(SUM(current_balance), 0) AS total_current, COALESCE(SUM(initial_balance), 0) AS total_initial").
		Where("user_id = ? AND is_active = ?", userID, true).
		Scan(&total).Error
	return total.TotalCurrent, total.TotalInitial, err
}
