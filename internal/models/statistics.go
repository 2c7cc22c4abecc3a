package models

import "github.com/shopspring/decimal"

// AccountBalance is the per-account line of the statistics view
type AccountBalance struct {
	AccountID        uint            `json:"account_id"`
	AccountName      string          `json:"account_name"`
	AccountType      AccountType     `json:"account_type"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	InitialBalance   decimal.Decimal `json:"initial_balance"`
	Difference       decimal.Decimal `json:"difference"`
	PercentageChange decimal.Decimal `json:"percentage_change"`
}

// Statistics is the portfolio-level view over a user's active accounts
type Statistics struct {
	TotalBalance            decimal.Decimal  `json:"total_balance"`
	TotalInitialBalance     decimal.Decimal  `json:"total_initial_balance"`
	TotalGainLoss           decimal.Decimal  `json:"total_gain_loss"`
	TotalGainLossPercentage decimal.Decimal  `json:"total_gain_loss_percentage"`
	TotalAccounts           int64            `json:"total_accounts"`
	ActiveAccounts          int64            `json:"active_accounts"`
	AccountBalances         []AccountBalance `json:"account_balances"`
}
