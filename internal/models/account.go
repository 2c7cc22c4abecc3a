package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType represents the kind of financial account
type AccountType string

const (
	AccountTypeChecking   AccountType = "Checking"
	AccountTypeSavings    AccountType = "Savings"
	AccountTypeCredit     AccountType = "Credit"
	AccountTypeInvestment AccountType = "Investment"
	AccountTypeCash       AccountType = "Cash"
	AccountTypeOther      AccountType = "Other"
)

// AccountTypes lists every supported account type in display order
var AccountTypes = []AccountType{
	AccountTypeChecking,
	AccountTypeSavings,
	AccountTypeCredit,
	AccountTypeInvestment,
	AccountTypeCash,
	AccountTypeOther,
}

// Valid reports whether t is one of the supported account types
func (t AccountType) Valid() bool {
	for _, v := range AccountTypes {
		if v == t {
			return true
		}
	}
	return false
}

const (
	MaxAccountNameLength = 100
	MaxDescriptionLength = 500
	MaxNotesLength       = 500
	BalanceDecimalPlaces = 2
	InitialBalanceNote   = "initial balance"
)

// Account represents a user's financial account.
// (user_id, name) is unique among active accounts; the partial index lets a
// soft-deleted name be reused.
type Account struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	UserID         uint            `gorm:"not null;index:idx_accounts_user_name_active,unique,where:is_active = true,priority:1" json:"user_id"`
	Name           string          `gorm:"size:100;not null;index:idx_accounts_user_name_active,unique,where:is_active = true,priority:2" json:"name"`
	Description    *string         `gorm:"size:500" json:"description,omitempty"`
	Type           AccountType     `gorm:"size:20;not null" json:"type"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"current_balance"`
	InitialBalance decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"initial_balance"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	IsActive       bool            `gorm:"not null;default:true;index" json:"is_active"`

	// Relations
	BalanceHistories []BalanceHistory `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Account model
func (Account) TableName() string {
	return "accounts"
}

// Difference returns current minus initial balance
func (a *Account) Difference() decimal.Decimal {
	return a.CurrentBalance.Sub(a.InitialBalance)
}

// AccountResponse is the response structure for an account
type AccountResponse struct {
	ID             uint            `json:"id"`
	Name           string          `json:"name"`
	Description    *string         `json:"description,omitempty"`
	Type           AccountType     `json:"type"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	IsActive       bool            `json:"is_active"`
}

// ToResponse builds an AccountResponse from an Account
func (a *Account) ToResponse() *AccountResponse {
	return &AccountResponse{
		ID:             a.ID,
		Name:           a.Name,
		Description:    a.Description,
		Type:           a.Type,
		CurrentBalance: a.CurrentBalance,
		InitialBalance: a.InitialBalance,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		IsActive:       a.IsActive,
	}
}
