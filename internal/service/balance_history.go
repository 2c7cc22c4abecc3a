package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/finance-tracker/internal/models"
	"github.com/finance-tracker/internal/repository"
	"github.com/shopspring/decimal"
)

// HistoryPage is one page of balance history rows
type HistoryPage struct {
	Items    []models.BalanceHistoryResponse
	Total    int64
	Page     int
	PageSize int
}

// BalanceHistoryRecorder writes and reads the append-only balance audit trail.
// Record must run inside the unit of work that changes the account balance.
type BalanceHistoryRecorder struct {
	history    repository.BalanceHistoryStore
	pagination Pagination
}

// NewBalanceHistoryRecorder creates a new BalanceHistoryRecorder
func NewBalanceHistoryRecorder(history repository.BalanceHistoryStore, pagination Pagination) *BalanceHistoryRecorder {
	return &BalanceHistoryRecorder{
		history:    history,
		pagination: pagination,
	}
}

// Record appends a transition from the account's stored balance to newBalance.
// It must be called before the account row itself is updated.
func (r *BalanceHistoryRecorder) Record(ctx context.Context, stores repository.Stores, accountID uint, newBalance decimal.Decimal, notes *string) (*models.BalanceHistory, error) {
	previous, err := stores.Accounts.GetBalanceForUpdate(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to read current balance: %w", err)
	}
	return r.write(ctx, stores, accountID, previous, newBalance, notes)
}

// RecordInitial appends the seed row of a new account, whose previous balance is zero
func (r *BalanceHistoryRecorder) RecordInitial(ctx context.Context, stores repository.Stores, accountID uint, initialBalance decimal.Decimal) (*models.BalanceHistory, error) {
	note := models.InitialBalanceNote
	return r.write(ctx, stores, accountID, decimal.Zero, initialBalance, &note)
}

func (r *BalanceHistoryRecorder) write(ctx context.Context, stores repository.Stores, accountID uint, previous, newBalance decimal.Decimal, notes *string) (*models.BalanceHistory, error) {
	entry := &models.BalanceHistory{
		AccountID:       accountID,
		Balance:         newBalance,
		PreviousBalance: previous,
		Difference:      newBalance.Sub(previous),
		Notes:           notes,
	}
	if err := stores.History.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record balance history: %w", err)
	}
	return entry, nil
}

// ListForAccount returns an account's history, newest first
func (r *BalanceHistoryRecorder) ListForAccount(ctx context.Context, accountID uint, page, pageSize int) (*HistoryPage, error) {
	page, pageSize = r.pagination.Normalize(page, pageSize)

	items, total, err := r.history.ListByAccountID(ctx, accountID, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list balance history: %w", err)
	}
	return &HistoryPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// ListForUser returns the history of all the user's accounts, newest first.
// Rows of soft-deleted accounts are included.
func (r *BalanceHistoryRecorder) ListForUser(ctx context.Context, userID uint, filter models.HistoryFilter, page, pageSize int) (*HistoryPage, error) {
	if filter.StartDate != nil && filter.EndDate != nil && filter.StartDate.After(*filter.EndDate) {
		return nil, validationError("start_date must not be after end_date")
	}
	page, pageSize = r.pagination.Normalize(page, pageSize)

	items, total, err := r.history.ListByUserID(ctx, userID, filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list balance history: %w", err)
	}
	return &HistoryPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// ListAllForUser returns every matching history row without paging
func (r *BalanceHistoryRecorder) ListAllForUser(ctx context.Context, userID uint, filter models.HistoryFilter) ([]models.BalanceHistoryResponse, error) {
	if filter.StartDate != nil && filter.EndDate != nil && filter.StartDate.After(*filter.EndDate) {
		return nil, validationError("start_date must not be after end_date")
	}
	items, _, err := r.history.ListByUserID(ctx, userID, filter, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list balance history: %w", err)
	}
	return items, nil
}
