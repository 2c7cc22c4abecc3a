package seed

import (
	"context"
	"testing"

	"github.com/finance-tracker/internal/cache"
	"github.com/finance-tracker/internal/config"
	"github.com/finance-tracker/internal/repository/repotest"
	"github.com/finance-tracker/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServices(store *repotest.Store) (*service.AuthService, *service.AccountService, *service.StatisticsService) {
	stores := store.Stores()
	auth := service.NewAuthService(store.Users(), cache.NewMemoryTokenStore(), config.JWTConfig{Secret: "seed", ExpireHours: 1})
	recorder := service.NewBalanceHistoryRecorder(stores.History, service.Pagination{DefaultPageSize: 50, MaxPageSize: 200})
	stats := service.NewStatisticsService(stores.Accounts, nil)
	accounts := service.NewAccountService(stores.Accounts, store, recorder, nil, stats)
	return auth, accounts, stats
}

func TestDemo(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	auth, accounts, stats := newServices(store)

	created, err := Demo(ctx, auth, accounts, "Admin123!")
	require.NoError(t, err)
	assert.True(t, created)

	login, err := auth.Login(ctx, &service.LoginRequest{Email: AdminEmail, Password: "Admin123!"})
	require.NoError(t, err)

	list, err := accounts.ListAccounts(ctx, login.User.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for _, a := range list {
		history := store.History(a.ID)
		require.Len(t, history, 1, a.Name)
		assert.Equal(t, "initial balance", *history[0].Notes)
	}

	s, err := stats.GetStatistics(ctx, login.User.ID)
	require.NoError(t, err)
	assert.True(t, s.TotalBalance.Equal(decimal.NewFromInt(7000)))
}

func TestDemo_SkipsWhenUsersExist(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	auth, accounts, _ := newServices(store)

	_, err := auth.Register(ctx, &service.RegisterRequest{Email: "someone@example.com", Password: "secret1"})
	require.NoError(t, err)

	created, err := Demo(ctx, auth, accounts, "Admin123!")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 0, store.AccountCount())
}
