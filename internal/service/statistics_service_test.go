package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/finance-tracker/internal/models"
	"github.com/finance-tracker/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatistics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	checking := env.createAccount(t, 1, "Checking", "2500")
	env.createAccount(t, 1, "Savings", "5000")
	credit := env.createAccount(t, 1, "Credit", "-500")
	closed := env.createAccount(t, 1, "Closed", "999")
	env.createAccount(t, 2, "Other user", "1000000")

	env.setBalance(t, 1, checking, "2600")
	env.setBalance(t, 1, credit, "-700")
	_, err := env.accounts.SoftDeleteAccount(ctx, closed, 1)
	require.NoError(t, err)

	stats, err := env.stats.GetStatistics(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, "6900.00", stats.TotalBalance.StringFixed(2))
	assert.Equal(t, "7000.00", stats.TotalInitialBalance.StringFixed(2))
	assert.Equal(t, "-100.00", stats.TotalGainLoss.StringFixed(2))
	assert.Equal(t, "-1.43", stats.TotalGainLossPercentage.StringFixed(2))
	// soft-deleted accounts are not counted
	assert.Equal(t, int64(3), stats.TotalAccounts)
	assert.Equal(t, int64(3), stats.ActiveAccounts)
	require.Len(t, stats.AccountBalances, 3)

	byName := map[string]models.AccountBalance{}
	for _, b := range stats.AccountBalances {
		byName[b.AccountName] = b
	}
	assert.Equal(t, "4.00", byName["Checking"].PercentageChange.StringFixed(2))
	assert.Equal(t, "100.00", byName["Checking"].Difference.StringFixed(2))
	assert.True(t, byName["Savings"].PercentageChange.IsZero())
	assert.Equal(t, "-200.00", byName["Credit"].Difference.StringFixed(2))
	assert.Equal(t, "40.00", byName["Credit"].PercentageChange.StringFixed(2))
}

func TestStatisticsZeroBasis(t *testing.T) {
	env := newTestEnv(t)
	id := env.createAccount(t, 1, "Fresh", "0")
	env.setBalance(t, 1, id, "50")

	stats, err := env.stats.GetStatistics(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, stats.TotalGainLoss.Equal(dec("50")))
	assert.True(t, stats.TotalGainLossPercentage.IsZero())
	assert.True(t, stats.AccountBalances[0].PercentageChange.IsZero())
}

func TestStatisticsWithoutAccounts(t *testing.T) {
	env := newTestEnv(t)

	stats, err := env.stats.GetStatistics(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, stats.TotalBalance.IsZero())
	assert.True(t, stats.TotalGainLossPercentage.IsZero())
	assert.Zero(t, stats.TotalAccounts)
	assert.NotNil(t, stats.AccountBalances)
	assert.Empty(t, stats.AccountBalances)
}

func TestPercentage(t *testing.T) {
	third := Percentage(dec("1"), dec("3"))
	assert.Equal(t, "33.33333333333333", third.String())
	assert.False(t, third.Equal(dec("33.33")))
	assert.Equal(t, "33.33", third.StringFixed(2))

	assert.Equal(t, "66.67", Percentage(dec("2"), dec("3")).StringFixed(2))
	assert.True(t, Percentage(dec("5"), dec("0")).IsZero())
}

func TestStatisticsPercentageIsNotRounded(t *testing.T) {
	env := newTestEnv(t)
	id := env.createAccount(t, 1, "A", "3")
	env.setBalance(t, 1, id, "4")

	stats, err := env.stats.GetStatistics(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "33.33333333333333", stats.AccountBalances[0].PercentageChange.String())
	assert.Equal(t, "33.33333333333333", stats.TotalGainLossPercentage.String())
}

type mapStatsCache struct {
	mu          sync.Mutex
	entries     map[uint]*models.Statistics
	generations map[uint]int64
	hits        int
	invalidated []uint
	getErr      error
}

func newMapStatsCache() *mapStatsCache {
	return &mapStatsCache{
		entries:     map[uint]*models.Statistics{},
		generations: map[uint]int64{},
	}
}

func (c *mapStatsCache) Get(ctx context.Context, userID uint) (*models.Statistics, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	s, ok := c.entries[userID]
	if ok {
		c.hits++
	}
	return s, ok, nil
}

func (c *mapStatsCache) Generation(ctx context.Context, userID uint) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[userID], nil
}

func (c *mapStatsCache) Set(ctx context.Context, userID uint, gen int64, stats *models.Statistics) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[userID] != gen {
		return false, nil
	}
	c.entries[userID] = stats
	return true, nil
}

func (c *mapStatsCache) Invalidate(ctx context.Context, userID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	c.generations[userID]++
	c.invalidated = append(c.invalidated, userID)
	return nil
}

func TestStatisticsCacheReadThroughAndInvalidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cache := newMapStatsCache()

	stores := env.store.Stores()
	stats := NewStatisticsService(stores.Accounts, cache)
	accounts := NewAccountService(stores.Accounts, env.store, env.recorder, nil, stats)

	_, err := accounts.CreateAccount(ctx, 1, &CreateAccountRequest{Name: "A", Type: models.AccountTypeCash, InitialBalance: dec("10")})
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, cache.invalidated)

	first, err := stats.GetStatistics(ctx, 1)
	require.NoError(t, err)
	second, err := stats.GetStatistics(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Same(t, first, second)

	_, err = accounts.CreateAccount(ctx, 1, &CreateAccountRequest{Name: "B", Type: models.AccountTypeCash, InitialBalance: dec("5")})
	require.NoError(t, err)

	third, err := stats.GetStatistics(ctx, 1)
	require.NoError(t, err)
	assert.True(t, third.TotalBalance.Equal(dec("15")))
}

func TestStatisticsCacheErrorFallsBack(t *testing.T) {
	env := newTestEnv(t)
	env.createAccount(t, 1, "A", "10")

	cache := newMapStatsCache()
	cache.getErr = errors.New("redis down")
	stats := NewStatisticsService(env.store.Stores().Accounts, cache)

	got, err := stats.GetStatistics(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, got.TotalBalance.Equal(dec("10")))
}

// listHookStore runs afterList once, after rows were read and before they are returned
type listHookStore struct {
	repository.AccountStore
	afterList func()
}

func (r *listHookStore) ListActiveByUserID(ctx context.Context, userID uint) ([]models.Account, error) {
	accounts, err := r.AccountStore.ListActiveByUserID(ctx, userID)
	if f := r.afterList; f != nil {
		r.afterList = nil
		f()
	}
	return accounts, err
}

func TestStatisticsCacheDropsValueComputedBeforeInvalidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cache := newMapStatsCache()

	stores := env.store.Stores()
	hooked := &listHookStore{AccountStore: stores.Accounts}
	stats := NewStatisticsService(hooked, cache)
	accounts := NewAccountService(stores.Accounts, env.store, env.recorder, nil, stats)

	acc, err := accounts.CreateAccount(ctx, 1, &CreateAccountRequest{Name: "A", Type: models.AccountTypeCash, InitialBalance: dec("10")})
	require.NoError(t, err)

	// a balance update commits while statistics are being computed
	hooked.afterList = func() {
		b := dec("25")
		_, err := accounts.UpdateBalance(ctx, acc.ID, 1, &UpdateBalanceRequest{NewBalance: &b})
		require.NoError(t, err)
	}

	stale, err := stats.GetStatistics(ctx, 1)
	require.NoError(t, err)
	assert.True(t, stale.TotalBalance.Equal(dec("10")))
	assert.Empty(t, cache.entries)

	fresh, err := stats.GetStatistics(ctx, 1)
	require.NoError(t, err)
	assert.True(t, fresh.TotalBalance.Equal(dec("25")))
	assert.Equal(t, 0, cache.hits)
}
