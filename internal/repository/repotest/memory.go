// Package repotest provides in-memory implementations of the repository
// contracts for tests. Units of work are serialised and rolled back from a
// snapshot when fn fails.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/finance-tracker/internal/models"
	"github.com/finance-tracker/internal/repository"
	"github.com/shopspring/decimal"
)

// Store is an in-memory database shared by the account, history and user stores
type Store struct {
	mu   sync.Mutex // guards the maps below
	txMu sync.Mutex // serialises units of work

	users    map[uint]models.User
	accounts map[uint]models.Account
	history  []models.BalanceHistory

	nextUserID    uint
	nextAccountID uint
	nextHistoryID uint

	// HistoryCreateErr, when set, fails every history insert
	HistoryCreateErr error
	// AccountUpdateErr, when set, fails every account update
	AccountUpdateErr error

	now func() time.Time
}

type snapshot struct {
	users         map[uint]models.User
	accounts      map[uint]models.Account
	history       []models.BalanceHistory
	nextUserID    uint
	nextAccountID uint
	nextHistoryID uint
}

// New creates an empty Store
func New() *Store {
	return &Store{
		users:    make(map[uint]models.User),
		accounts: make(map[uint]models.Account),
		now:      time.Now,
	}
}

// SetClock replaces the time source used for timestamps
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Stores returns account and history stores backed by s
func (s *Store) Stores() repository.Stores {
	return repository.Stores{
		Accounts: &accountStore{s: s},
		History:  &historyStore{s: s},
	}
}

// Users returns a user store backed by s
func (s *Store) Users() repository.UserStore {
	return &userStore{s: s}
}

// WithinTransaction implements repository.Transactor
func (s *Store) WithinTransaction(ctx context.Context, fn func(repository.Stores) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(s.Stores()); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// Account returns the raw account row regardless of its active flag
func (s *Store) Account(id uint) (models.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	return a, ok
}

// AccountCount returns the number of stored account rows
func (s *Store) AccountCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

// History returns the raw history rows of an account in insertion order
func (s *Store) History(accountID uint) []models.BalanceHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []models.BalanceHistory
	for _, h := range s.history {
		if h.AccountID == accountID {
			rows = append(rows, h)
		}
	}
	return rows
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		users:         make(map[uint]models.User, len(s.users)),
		accounts:      make(map[uint]models.Account, len(s.accounts)),
		history:       append([]models.BalanceHistory(nil), s.history...),
		nextUserID:    s.nextUserID,
		nextAccountID: s.nextAccountID,
		nextHistoryID: s.nextHistoryID,
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.accounts {
		snap.accounts[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = snap.users
	s.accounts = snap.accounts
	s.history = snap.history
	s.nextUserID = snap.nextUserID
	s.nextAccountID = snap.nextAccountID
	s.nextHistoryID = snap.nextHistoryID
}

// nameTakenLocked mirrors the partial unique index on active (user_id, name)
func (s *Store) nameTakenLocked(userID uint, name string, excludeID uint) bool {
	for _, a := range s.accounts {
		if a.ID != excludeID && a.IsActive && a.UserID == userID && a.Name == name {
			return true
		}
	}
	return false
}

type accountStore struct {
	s *Store
}

func (r *accountStore) ListActiveByUserID(ctx context.Context, userID uint) ([]models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	accounts := make([]models.Account, 0)
	for _, a := range r.s.accounts {
		if a.UserID == userID && a.IsActive {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	return accounts, nil
}

func (r *accountStore) GetActiveByIDAndUserID(ctx context.Context, id, userID uint) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok || a.UserID != userID || !a.IsActive {
		return nil, repository.ErrAccountNotFound
	}
	return &a, nil
}

func (r *accountStore) GetActiveByIDAndUserIDForUpdate(ctx context.Context, id, userID uint) (*models.Account, error) {
	return r.GetActiveByIDAndUserID(ctx, id, userID)
}

func (r *accountStore) GetBalanceForUpdate(ctx context.Context, id uint) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return decimal.Zero, repository.ErrAccountNotFound
	}
	return a.CurrentBalance, nil
}

func (r *accountStore) ExistsActiveName(ctx context.Context, userID uint, name string, excludeID uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.nameTakenLocked(userID, name, excludeID), nil
}

func (r *accountStore) Create(ctx context.Context, account *models.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if account.IsActive && r.s.nameTakenLocked(account.UserID, account.Name, 0) {
		return repository.ErrDuplicate
	}

	r.s.nextAccountID++
	now := r.s.now()
	account.ID = r.s.nextAccountID
	account.CreatedAt = now
	account.UpdatedAt = now
	r.s.accounts[account.ID] = *account
	return nil
}

func (r *accountStore) Update(ctx context.Context, account *models.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.AccountUpdateErr != nil {
		return r.s.AccountUpdateErr
	}
	if _, ok := r.s.accounts[account.ID]; !ok {
		return repository.ErrAccountNotFound
	}
	if account.IsActive && r.s.nameTakenLocked(account.UserID, account.Name, account.ID) {
		return repository.ErrDuplicate
	}

	account.UpdatedAt = r.s.now()
	r.s.accounts[account.ID] = *account
	return nil
}

func (r *accountStore) SumActiveBalances(ctx context.Context, userID uint) (decimal.Decimal, decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, initial := decimal.Zero, decimal.Zero
	for _, a := range r.s.accounts {
		if a.UserID == userID && a.IsActive {
			current = current.Add(a.CurrentBalance)
			initial = initial.Add(a.InitialBalance)
		}
	}
	return current, initial, nil
}

type historyStore struct {
	s *Store
}

func (r *historyStore) Create(ctx context.Context, history *models.BalanceHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.HistoryCreateErr != nil {
		return r.s.HistoryCreateErr
	}
	if _, ok := r.s.accounts[history.AccountID]; !ok {
		return repository.ErrAccountNotFound
	}

	r.s.nextHistoryID++
	history.ID = r.s.nextHistoryID
	if history.CreatedAt.IsZero() {
		history.CreatedAt = r.s.now()
	}
	r.s.history = append(r.s.history, *history)
	return nil
}

func (r *historyStore) ListByAccountID(ctx context.Context, accountID uint, page, pageSize int) ([]models.BalanceHistoryResponse, int64, error) {
	return r.list(page, pageSize, func(h models.BalanceHistory, a models.Account) bool {
		return h.AccountID == accountID
	})
}

func (r *historyStore) ListByUserID(ctx context.Context, userID uint, filter models.HistoryFilter, page, pageSize int) ([]models.BalanceHistoryResponse, int64, error) {
	return r.list(page, pageSize, func(h models.BalanceHistory, a models.Account) bool {
		if a.UserID != userID {
			return false
		}
		if filter.StartDate != nil && h.CreatedAt.Before(*filter.StartDate) {
			return false
		}
		if filter.EndDate != nil && h.CreatedAt.After(*filter.EndDate) {
			return false
		}
		if len(filter.AccountIDs) > 0 {
			for _, id := range filter.AccountIDs {
				if id == h.AccountID {
					return true
				}
			}
			return false
		}
		return true
	})
}

func (r *historyStore) list(page, pageSize int, match func(models.BalanceHistory, models.Account) bool) ([]models.BalanceHistoryResponse, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows := make([]models.BalanceHistoryResponse, 0)
	for _, h := range r.s.history {
		a := r.s.accounts[h.AccountID]
		if !match(h, a) {
			continue
		}
		rows = append(rows, models.BalanceHistoryResponse{
			ID:              h.ID,
			AccountID:       h.AccountID,
			AccountName:     a.Name,
			AccountType:     a.Type,
			Balance:         h.Balance,
			PreviousBalance: h.PreviousBalance,
			Difference:      h.Difference,
			Notes:           h.Notes,
			CreatedAt:       h.CreatedAt,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID > rows[j].ID
	})

	total := int64(len(rows))
	if pageSize <= 0 {
		return rows, total, nil
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(rows) {
		return []models.BalanceHistoryResponse{}, total, nil
	}
	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], total, nil
}

type userStore struct {
	s *Store
}

func (r *userStore) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := strings.ToLower(user.Email)
	for _, u := range r.s.users {
		if u.Email == email {
			return repository.ErrDuplicate
		}
	}

	r.s.nextUserID++
	now := r.s.now()
	user.ID = r.s.nextUserID
	user.Email = email
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	return nil
}

func (r *userStore) GetByID(ctx context.Context, id uint) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (r *userStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *userStore) Update(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	user.UpdatedAt = r.s.now()
	r.s.users[user.ID] = *user
	return nil
}

func (r *userStore) Count(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.users)), nil
}
