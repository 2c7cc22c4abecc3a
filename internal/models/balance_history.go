package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceHistory is an append-only audit row for one balance transition.
// Difference is computed when the row is written and never re-derived.
type BalanceHistory struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	AccountID       uint            `gorm:"not null;index:idx_balance_histories_account_created,priority:1" json:"account_id"`
	Balance         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"balance"`
	PreviousBalance decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"previous_balance"`
	Difference      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"difference"`
	Notes           *string         `gorm:"size:500" json:"notes,omitempty"`
	CreatedAt       time.Time       `gorm:"not null;index:idx_balance_histories_account_created,priority:2" json:"created_at"`
}

// TableName specifies the table name for BalanceHistory model
func (BalanceHistory) TableName() string {
	return "balance_histories"
}

// BalanceHistoryResponse is a history row joined with its account name
type BalanceHistoryResponse struct {
	ID              uint            `json:"id"`
	AccountID       uint            `json:"account_id"`
	AccountName     string          `json:"account_name"`
	AccountType     AccountType     `json:"account_type"`
	Balance         decimal.Decimal `json:"balance"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	Difference      decimal.Decimal `json:"difference"`
	Notes           *string         `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// HistoryFilter narrows a user-wide history query.
// Both bounds are inclusive; empty AccountIDs means all accounts.
type HistoryFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	AccountIDs []uint
}
