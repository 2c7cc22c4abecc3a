package service

import (
	"context"
	"sync"
	"testing"

	"github.com/finance-tracker/internal/notify"
	"github.com/finance-tracker/internal/repository/repotest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, event notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) kinds() []notify.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]notify.Kind, len(n.events))
	for i, e := range n.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = nil
}

type testEnv struct {
	store    *repotest.Store
	notifier *recordingNotifier
	recorder *BalanceHistoryRecorder
	stats    *StatisticsService
	accounts *AccountService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := repotest.New()
	stores := store.Stores()
	notifier := &recordingNotifier{}
	recorder := NewBalanceHistoryRecorder(stores.History, Pagination{DefaultPageSize: 50, MaxPageSize: 200})
	stats := NewStatisticsService(stores.Accounts, nil)
	dispatcher := NewDispatcher(notifier, dec("100"))

	return &testEnv{
		store:    store,
		notifier: notifier,
		recorder: recorder,
		stats:    stats,
		accounts: NewAccountService(stores.Accounts, store, recorder, dispatcher, stats),
	}
}

func (e *testEnv) createAccount(t *testing.T, userID uint, name, balance string) uint {
	t.Helper()
	acc, err := e.accounts.CreateAccount(context.Background(), userID, &CreateAccountRequest{
		Name:           name,
		Type:           "Checking",
		InitialBalance: dec(balance),
	})
	require.NoError(t, err)
	return acc.ID
}

func (e *testEnv) setBalance(t *testing.T, userID, accountID uint, balance string) {
	t.Helper()
	b := dec(balance)
	_, err := e.accounts.UpdateBalance(context.Background(), accountID, userID, &UpdateBalanceRequest{NewBalance: &b})
	require.NoError(t, err)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string {
	return &s
}
