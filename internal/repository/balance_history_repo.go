package repository

import (
	"context"

	"github.com/finance-tracker/internal/models"
	"gorm.io/gorm"
)

const historySelect = "bh.id, bh.account_id, a.name AS account_name, a.type AS account_type, " +
	"bh.balance, bh.previous_balance, bh.difference, bh.notes, bh.created_at"

// BalanceHistoryRepository handles balance history data access.
// Rows are only ever inserted.
type BalanceHistoryRepository struct {
	db *gorm.DB
}

// NewBalanceHistoryRepository creates a new BalanceHistoryRepository
func NewBalanceHistoryRepository(db *gorm.DB) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{db: db}
}

// Create inserts a new history row
func (r *BalanceHistoryRepository) Create(ctx context.Context, history *models.BalanceHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

// ListByAccountID retrieves the history of one account, newest first
func (r *BalanceHistoryRepository) ListByAccountID(ctx context.Context, accountID uint, page, pageSize int) ([]models.BalanceHistoryResponse, int64, error) {
	return r.list(ctx, page, pageSize, func(q *gorm.DB) *gorm.DB {
		return q.Where("bh.account_id = ?", accountID)
	})
}

// ListByUserID retrieves the history across all of a user's accounts, newest first
func (r *BalanceHistoryRepository) ListByUserID(ctx context.Context, userID uint, filter models.HistoryFilter, page, pageSize int) ([]models.BalanceHistoryResponse, int64, error) {
	return r.list(ctx, page, pageSize, func(q *gorm.DB) *gorm.DB {
		q = q.Where("a.user_id = ?", userID)
		if filter.StartDate != nil {
			q = q.Where("bh.created_at >= ?", *filter.StartDate)
		}
		if filter.EndDate != nil {
			q = q.Where("bh.created_at <= ?", *filter.EndDate)
		}
		if len(filter.AccountIDs) > 0 {
			q = q.Where("bh.account_id IN ?", filter.AccountIDs)
		}
		return q
	})
}

func (r *BalanceHistoryRepository) list(ctx context.Context, page, pageSize int, scope func(*gorm.DB) *gorm.DB) ([]models.BalanceHistoryResponse, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).
			Table("balance_histories AS bh").
			Joins("JOIN accounts a ON a.id = bh.account_id")
		return scope(q)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := base().Select(historySelect).Order("bh.created_at DESC, bh.id DESC")
	if pageSize > 0 {
		q = q.Offset(offset(page, pageSize)).Limit(pageSize)
	}

	rows := make([]models.BalanceHistoryResponse, 0)
	if err := q.Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
