package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/finance-tracker/internal/models"
	"github.com/finance-tracker/internal/repository"
	"github.com/finance-tracker/pkg/logger"
	"github.com/shopspring/decimal"
)

// decimal(18,2) holds at most 16 integer digits
var maxBalance = decimal.New(1, 16)

// StatisticsInvalidator is told when a user's accounts change
type StatisticsInvalidator interface {
	Invalidate(ctx context.Context, userID uint)
}

// AccountService handles account operations
type AccountService struct {
	accounts    repository.AccountStore
	tx          repository.Transactor
	recorder    *BalanceHistoryRecorder
	dispatcher  *Dispatcher
	invalidator StatisticsInvalidator
}

// NewAccountService creates a new AccountService.
// dispatcher and invalidator may be nil.
func NewAccountService(
	accounts repository.AccountStore,
	tx repository.Transactor,
	recorder *BalanceHistoryRecorder,
	dispatcher *Dispatcher,
	invalidator StatisticsInvalidator,
) *AccountService {
	return &AccountService{
		accounts:    accounts,
		tx:          tx,
		recorder:    recorder,
		dispatcher:  dispatcher,
		invalidator: invalidator,
	}
}

// CreateAccountRequest represents the create account request
type CreateAccountRequest struct {
	Name           string             `json:"name" binding:"required,max=100"`
	Description    *string            `json:"description" binding:"omitempty,max=500"`
	Type           models.AccountType `json:"type" binding:"required"`
	InitialBalance decimal.Decimal    `json:"initial_balance"`
}

// UpdateAccountRequest represents the update account request
type UpdateAccountRequest struct {
	Name        string             `json:"name" binding:"required,max=100"`
	Description *string            `json:"description" binding:"omitempty,max=500"`
	Type        models.AccountType `json:"type" binding:"required"`
}

// UpdateBalanceRequest represents the update balance request
type UpdateBalanceRequest struct {
	NewBalance *decimal.Decimal `json:"new_balance" binding:"required"`
	Notes      *string          `json:"notes" binding:"omitempty,max=500"`
}

// ListAccounts returns the user's active accounts ordered by name
func (s *AccountService) ListAccounts(ctx context.Context, userID uint) ([]models.AccountResponse, error) {
	accounts, err := s.accounts.ListActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	responses := make([]models.AccountResponse, len(accounts))
	for i := range accounts {
		responses[i] = *accounts[i].ToResponse()
	}
	return responses, nil
}

// GetAccount returns an active account owned by the user
func (s *AccountService) GetAccount(ctx context.Context, accountID, userID uint) (*models.AccountResponse, error) {
	account, err := s.accounts.GetActiveByIDAndUserID(ctx, accountID, userID)
	if err != nil {
		return nil, mapAccountErr(err)
	}
	return account.ToResponse(), nil
}

// CreateAccount creates an account and its seed history row in one unit of work
func (s *AccountService) CreateAccount(ctx context.Context, userID uint, req *CreateAccountRequest) (*models.AccountResponse, error) {
	name, description, err := normalizeAccountFields(req.Name, req.Description, req.Type)
	if err != nil {
		return nil, err
	}
	initial, err := normalizeBalance(req.InitialBalance)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		UserID:         userID,
		Name:           name,
		Description:    description,
		Type:           req.Type,
		CurrentBalance: initial,
		InitialBalance: initial,
		IsActive:       true,
	}

	err = s.tx.WithinTransaction(ctx, func(stores repository.Stores) error {
		taken, err := stores.Accounts.ExistsActiveName(ctx, userID, name, 0)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateAccountName
		}

		if err := stores.Accounts.Create(ctx, account); err != nil {
			return mapAccountErr(err)
		}
		_, err = s.recorder.RecordInitial(ctx, stores, account.ID, initial)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("[AccountService] user %d created account %d (%s)", userID, account.ID, account.Name)
	s.afterCommit(ctx, userID)
	if s.dispatcher != nil {
		s.dispatcher.AccountCreated(ctx, account)
	}
	return account.ToResponse(), nil
}

// UpdateAccount changes name, description and type. Balances are untouched.
func (s *AccountService) UpdateAccount(ctx context.Context, accountID, userID uint, req *UpdateAccountRequest) (*models.AccountResponse, error) {
	name, description, err := normalizeAccountFields(req.Name, req.Description, req.Type)
	if err != nil {
		return nil, err
	}

	var account *models.Account
	err = s.tx.WithinTransaction(ctx, func(stores repository.Stores) error {
		var err error
		account, err = stores.Accounts.GetActiveByIDAndUserIDForUpdate(ctx, accountID, userID)
		if err != nil {
			return mapAccountErr(err)
		}

		taken, err := stores.Accounts.ExistsActiveName(ctx, userID, name, accountID)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateAccountName
		}

		account.Name = name
		account.Description = description
		account.Type = req.Type
		return mapAccountErr(stores.Accounts.Update(ctx, account))
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, userID)
	return account.ToResponse(), nil
}

// SoftDeleteAccount deactivates an account. It returns false when the account
// is absent, not owned by the user, or already inactive.
func (s *AccountService) SoftDeleteAccount(ctx context.Context, accountID, userID uint) (bool, error) {
	var account *models.Account
	err := s.tx.WithinTransaction(ctx, func(stores repository.Stores) error {
		var err error
		account, err = stores.Accounts.GetActiveByIDAndUserIDForUpdate(ctx, accountID, userID)
		if err != nil {
			return mapAccountErr(err)
		}

		account.IsActive = false
		return mapAccountErr(stores.Accounts.Update(ctx, account))
	})
	if errors.Is(err, ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	logger.Info("[AccountService] user %d deleted account %d", userID, accountID)
	s.afterCommit(ctx, userID)
	if s.dispatcher != nil {
		s.dispatcher.AccountDeleted(ctx, account)
	}
	return true, nil
}

// UpdateBalance sets a new current balance and appends the matching history row.
// Both writes commit together or not at all.
func (s *AccountService) UpdateBalance(ctx context.Context, accountID, userID uint, req *UpdateBalanceRequest) (*models.AccountResponse, error) {
	if req.NewBalance == nil {
		return nil, validationError("new_balance is required")
	}
	newBalance, err := normalizeBalance(*req.NewBalance)
	if err != nil {
		return nil, err
	}
	notes, err := normalizeNotes(req.Notes)
	if err != nil {
		return nil, err
	}

	var (
		account  *models.Account
		previous decimal.Decimal
	)
	err = s.tx.WithinTransaction(ctx, func(stores repository.Stores) error {
		var err error
		account, err = stores.Accounts.GetActiveByIDAndUserIDForUpdate(ctx, accountID, userID)
		if err != nil {
			return mapAccountErr(err)
		}

		entry, err := s.recorder.Record(ctx, stores, account.ID, newBalance, notes)
		if err != nil {
			return err
		}
		previous = entry.PreviousBalance

		account.CurrentBalance = newBalance
		return mapAccountErr(stores.Accounts.Update(ctx, account))
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("[AccountService] account %d balance %s -> %s", accountID, previous.StringFixed(2), newBalance.StringFixed(2))
	s.afterCommit(ctx, userID)
	if s.dispatcher != nil {
		s.dispatcher.BalanceUpdated(ctx, account, previous, newBalance)
	}
	return account.ToResponse(), nil
}

// GetBalanceHistory returns one page of an owned account's history, newest first
func (s *AccountService) GetBalanceHistory(ctx context.Context, accountID, userID uint, page, pageSize int) (*HistoryPage, error) {
	if _, err := s.accounts.GetActiveByIDAndUserID(ctx, accountID, userID); err != nil {
		return nil, mapAccountErr(err)
	}
	return s.recorder.ListForAccount(ctx, accountID, page, pageSize)
}

// GetUserBalanceHistory returns one page of history across all the user's accounts
func (s *AccountService) GetUserBalanceHistory(ctx context.Context, userID uint, filter models.HistoryFilter, page, pageSize int) (*HistoryPage, error) {
	return s.recorder.ListForUser(ctx, userID, filter, page, pageSize)
}

// GetTotalBalance sums current balances of the user's active accounts
func (s *AccountService) GetTotalBalance(ctx context.Context, userID uint) (decimal.Decimal, error) {
	current, _, err := s.accounts.SumActiveBalances(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum balances: %w", err)
	}
	return current, nil
}

// GetTotalInitialBalance sums initial balances of the user's active accounts
func (s *AccountService) GetTotalInitialBalance(ctx context.Context, userID uint) (decimal.Decimal, error) {
	_, initial, err := s.accounts.SumActiveBalances(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum balances: %w", err)
	}
	return initial, nil
}

func (s *AccountService) afterCommit(ctx context.Context, userID uint) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, userID)
	}
}

func mapAccountErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrAccountNotFound):
		return ErrAccountNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return ErrDuplicateAccountName
	default:
		return err
	}
}

func normalizeAccountFields(name string, description *string, accountType models.AccountType) (string, *string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, validationError("name is required")
	}
	if utf8.RuneCountInString(name) > models.MaxAccountNameLength {
		return "", nil, validationError("name must be at most %d characters", models.MaxAccountNameLength)
	}
	if !accountType.Valid() {
		return "", nil, validationError("type must be one of %v", models.AccountTypes)
	}

	if description != nil {
		d := strings.TrimSpace(*description)
		if utf8.RuneCountInString(d) > models.MaxDescriptionLength {
			return "", nil, validationError("description must be at most %d characters", models.MaxDescriptionLength)
		}
		if d == "" {
			description = nil
		} else {
			description = &d
		}
	}
	return name, description, nil
}

func normalizeNotes(notes *string) (*string, error) {
	if notes == nil {
		return nil, nil
	}
	n := strings.TrimSpace(*notes)
	if n == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(n) > models.MaxNotesLength {
		return nil, validationError("notes must be at most %d characters", models.MaxNotesLength)
	}
	return &n, nil
}

func normalizeBalance(d decimal.Decimal) (decimal.Decimal, error) {
	d = d.Round(models.BalanceDecimalPlaces)
	if d.Abs().GreaterThanOrEqual(maxBalance) {
		return decimal.Zero, validationError("balance is out of range")
	}
	return d, nil
}
