package service

import (
	"context"
	"testing"
	"time"

	"github.com/finance-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginationNormalize(t *testing.T) {
	p := Pagination{DefaultPageSize: 50, MaxPageSize: 200}

	page, size := p.Normalize(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 50, size)

	page, size = p.Normalize(3, 1000)
	assert.Equal(t, 3, page)
	assert.Equal(t, 200, size)

	page, size = p.Normalize(-2, 10)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, size)
}

func TestListForAccountPaging(t *testing.T) {
	env := newTestEnv(t)
	id := env.createAccount(t, 1, "Main", "0")
	for _, b := range []string{"1", "2", "3", "4"} {
		env.setBalance(t, 1, id, b)
	}

	page, err := env.accounts.GetBalanceHistory(context.Background(), id, 1, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Items, 2)
	assert.True(t, page.Items[0].Balance.Equal(dec("2")))
	assert.True(t, page.Items[1].Balance.Equal(dec("1")))

	beyond, err := env.accounts.GetBalanceHistory(context.Background(), id, 1, 9, 2)
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, int64(5), beyond.Total)
}

func TestListForUserFilters(t *testing.T) {
	env := newTestEnv(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := base
	env.store.SetClock(func() time.Time { return clock })

	a := env.createAccount(t, 1, "A", "10") // day 0
	clock = base.Add(24 * time.Hour)
	b := env.createAccount(t, 1, "B", "20") // day 1
	clock = base.Add(48 * time.Hour)
	env.setBalance(t, 1, a, "15") // day 2
	env.createAccount(t, 2, "Foreign", "1")

	_, err := env.accounts.SoftDeleteAccount(context.Background(), b, 1)
	require.NoError(t, err)

	all, err := env.accounts.GetUserBalanceHistory(context.Background(), 1, models.HistoryFilter{}, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total, "history of deleted accounts stays visible")
	assert.True(t, all.Items[0].Balance.Equal(dec("15")))

	start := base.Add(24 * time.Hour)
	end := base.Add(48 * time.Hour)
	ranged, err := env.accounts.GetUserBalanceHistory(context.Background(), 1, models.HistoryFilter{StartDate: &start, EndDate: &end}, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ranged.Total, "bounds are inclusive")

	onlyA, err := env.recorder.ListAllForUser(context.Background(), 1, models.HistoryFilter{AccountIDs: []uint{a}})
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)

	_, err = env.accounts.GetUserBalanceHistory(context.Background(), 1, models.HistoryFilter{StartDate: &end, EndDate: &start}, 1, 50)
	assert.ErrorIs(t, err, ErrValidation)
}
