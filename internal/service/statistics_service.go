package service

import (
	"context"
	"fmt"

	"github.com/finance-tracker/internal/models"
	"github.com/finance-tracker/internal/repository"
	"github.com/finance-tracker/pkg/logger"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// StatisticsCache stores computed statistics per user.
// Invalidate advances the user's generation; Set only stores a value
// computed under the current generation.
type StatisticsCache interface {
	Get(ctx context.Context, userID uint) (*models.Statistics, bool, error)
	Generation(ctx context.Context, userID uint) (int64, error)
	Set(ctx context.Context, userID uint, gen int64, stats *models.Statistics) (bool, error)
	Invalidate(ctx context.Context, userID uint) error
}

// StatisticsService derives portfolio statistics from a user's accounts
type StatisticsService struct {
	accounts repository.AccountStore
	cache    StatisticsCache
}

// NewStatisticsService creates a new StatisticsService. cache may be nil.
func NewStatisticsService(accounts repository.AccountStore, cache StatisticsCache) *StatisticsService {
	return &StatisticsService{
		accounts: accounts,
		cache:    cache,
	}
}

// GetStatistics returns totals over active accounts plus per-account lines.
// Cache errors fall back to computing from the store.
func (s *StatisticsService) GetStatistics(ctx context.Context, userID uint) (*models.Statistics, error) {
	var gen int64
	cacheable := false
	if s.cache != nil {
		stats, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			logger.Error("[StatisticsService] cache read for user %d: %v", userID, err)
		} else if ok {
			return stats, nil
		}

		// read before computing so a concurrent Invalidate rejects the write
		if gen, err = s.cache.Generation(ctx, userID); err != nil {
			logger.Error("[StatisticsService] cache generation for user %d: %v", userID, err)
		} else {
			cacheable = true
		}
	}

	stats, err := s.compute(ctx, userID)
	if err != nil {
		return nil, err
	}

	if cacheable {
		stored, err := s.cache.Set(ctx, userID, gen, stats)
		if err != nil {
			logger.Error("[StatisticsService] cache write for user %d: %v", userID, err)
		} else if !stored {
			logger.Debug("[StatisticsService] skipped stale cache write for user %d", userID)
		}
	}
	return stats, nil
}

// Invalidate drops cached statistics for a user
func (s *StatisticsService) Invalidate(ctx context.Context, userID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		logger.Error("[StatisticsService] cache invalidate for user %d: %v", userID, err)
	}
}

func (s *StatisticsService) compute(ctx context.Context, userID uint) (*models.Statistics, error) {
	accounts, err := s.accounts.ListActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	stats := &models.Statistics{
		TotalBalance:        decimal.Zero,
		TotalInitialBalance: decimal.Zero,
		TotalAccounts:       int64(len(accounts)),
		ActiveAccounts:      int64(len(accounts)),
		AccountBalances:     make([]models.AccountBalance, 0, len(accounts)),
	}

	for i := range accounts {
		a := &accounts[i]
		stats.TotalBalance = stats.TotalBalance.Add(a.CurrentBalance)
		stats.TotalInitialBalance = stats.TotalInitialBalance.Add(a.InitialBalance)

		diff := a.Difference()
		stats.AccountBalances = append(stats.AccountBalances, models.AccountBalance{
			AccountID:        a.ID,
			AccountName:      a.Name,
			AccountType:      a.Type,
			CurrentBalance:   a.CurrentBalance,
			InitialBalance:   a.InitialBalance,
			Difference:       diff,
			PercentageChange: Percentage(diff, a.InitialBalance),
		})
	}

	stats.TotalGainLoss = stats.TotalBalance.Sub(stats.TotalInitialBalance)
	stats.TotalGainLossPercentage = Percentage(stats.TotalGainLoss, stats.TotalInitialBalance)
	return stats, nil
}

// Percentage returns part/basis*100, or 0 when basis is 0.
// The quotient is not rounded; formatting is left to the caller.
func Percentage(part, basis decimal.Decimal) decimal.Decimal {
	if basis.IsZero() {
		return decimal.Zero
	}
	return part.Div(basis).Mul(hundred)
}
