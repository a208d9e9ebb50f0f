// Package memory provides an in-memory Store used by tests and the
// "memory" data backend. WithTx stages writes on a clone and swaps the
// state back only on success, so a failing callback leaves nothing behind.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type state struct {
	wallets      map[string]core.Wallet
	transactions map[string]core.Transaction
	categories   map[string]core.Category
	budgets      map[string]core.Budget
	users        map[string]core.User
	events       []core.AuditEvent
}

func newState() *state {
	return &state{
		wallets:      make(map[string]core.Wallet),
		transactions: make(map[string]core.Transaction),
		categories:   make(map[string]core.Category),
		budgets:      make(map[string]core.Budget),
		users:        make(map[string]core.User),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.budgets {
		c.budgets[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	c.events = append([]core.AuditEvent(nil), s.events...)
	return c
}

type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

var _ store.Store = (*Store)(nil)

// WithTx clones the current state, runs fn against a child store bound to
// the clone and swaps it in only when fn succeeds. The parent lock is held
// throughout, which also serializes transactions against each other.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	child := &Store{st: s.st.clone()}
	if err := fn(child); err != nil {
		return err
	}
	s.st = child.st
	return nil
}

func (s *Store) CreateWallet(_ context.Context, w core.Wallet) (*core.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now
	s.st.wallets[w.ID] = w
	return &w, nil
}

func (s *Store) GetWallet(_ context.Context, id string) (*core.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.st.wallets[id]
	if !ok {
		return nil, core.ErrWalletNotFound
	}
	return &w, nil
}

func (s *Store) ListWallets(_ context.Context, userID, query string) ([]core.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Wallet
	for _, w := range s.st.wallets {
		if w.UserID != userID {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(w.Name), strings.ToLower(query)) {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateWallet(_ context.Context, w core.Wallet) (*core.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.st.wallets[w.ID]
	if !ok {
		return nil, core.ErrWalletNotFound
	}
	cur.Name = w.Name
	cur.Description = w.Description
	cur.UpdatedAt = time.Now().UTC()
	s.st.wallets[w.ID] = cur
	return &cur, nil
}

func (s *Store) UpdateWalletBalance(_ context.Context, id string, balance decimal.Decimal) (*core.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.st.wallets[id]
	if !ok {
		return nil, core.ErrWalletNotFound
	}
	w.Balance = balance
	w.UpdatedAt = time.Now().UTC()
	s.st.wallets[id] = w
	return &w, nil
}

func (s *Store) DeleteWallet(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.wallets[id]; !ok {
		return core.ErrWalletNotFound
	}
	delete(s.st.wallets, id)
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (*core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now().UTC()
	s.st.transactions[t.ID] = t
	return &t, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (*core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.st.transactions[id]
	if !ok {
		return nil, core.ErrTransactionNotFound
	}
	return &t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) (*core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.st.transactions[t.ID]
	if !ok {
		return nil, core.ErrTransactionNotFound
	}
	cur.Description = t.Description
	cur.Evidence = t.Evidence
	cur.CategoryID = t.CategoryID
	cur.BudgetID = t.BudgetID
	s.st.transactions[t.ID] = cur
	return &cur, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.transactions[id]; !ok {
		return core.ErrTransactionNotFound
	}
	delete(s.st.transactions, id)
	return nil
}

func (s *Store) FindTransactions(_ context.Context, f store.TransactionFilter) ([]core.Transaction, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []core.Transaction
	for _, t := range s.st.transactions {
		if matches(t, f) {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Date.After(matched[j].Date) })
	total := len(matched)
	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[f.Offset:]
		}
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func matches(t core.Transaction, f store.TransactionFilter) bool {
	if f.UserID != "" && t.UserID != f.UserID {
		return false
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(f.Query)) {
		return false
	}
	if !f.StartDate.IsZero() && t.Date.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsZero() && t.Date.After(f.EndDate) {
		return false
	}
	if len(f.CategoryIDs) > 0 && !contains(f.CategoryIDs, t.CategoryID) {
		return false
	}
	if len(f.WalletIDs) > 0 &&
		!contains(f.WalletIDs, t.WalletID) &&
		!contains(f.WalletIDs, t.SourceWalletID) &&
		!contains(f.WalletIDs, t.TargetWalletID) {
		return false
	}
	return true
}

func contains(ids []string, id string) bool {
	if id == "" {
		return false
	}
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (s *Store) DetachCategory(_ context.Context, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.st.transactions {
		if t.CategoryID == categoryID {
			t.CategoryID = ""
			s.st.transactions[id] = t
		}
	}
	return nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (*core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.st.categories[c.ID] = c
	return &c, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (*core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.st.categories[id]
	if !ok {
		return nil, core.ErrCategoryNotFound
	}
	return &c, nil
}

func (s *Store) ListCategories(_ context.Context, userID, query string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.st.categories {
		if c.UserID != userID {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(query)) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) (*core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.st.categories[c.ID]
	if !ok {
		return nil, core.ErrCategoryNotFound
	}
	cur.Name = c.Name
	cur.Description = c.Description
	s.st.categories[c.ID] = cur
	return &cur, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.categories[id]; !ok {
		return core.ErrCategoryNotFound
	}
	delete(s.st.categories, id)
	return nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (*core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.st.budgets[b.ID] = b
	return &b, nil
}

func (s *Store) GetBudget(_ context.Context, id string) (*core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.st.budgets[id]
	if !ok {
		return nil, core.ErrBudgetNotFound
	}
	return &b, nil
}

func (s *Store) ListBudgets(_ context.Context, userID, query string) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for _, b := range s.st.budgets {
		if b.UserID != userID {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(b.Name), strings.ToLower(query)) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.After(out[j].EndDate) })
	return out, nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) (*core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.st.budgets[b.ID]
	if !ok {
		return nil, core.ErrBudgetNotFound
	}
	cur.Name = b.Name
	cur.Amount = b.Amount
	cur.StartDate = b.StartDate
	cur.EndDate = b.EndDate
	s.st.budgets[b.ID] = cur
	return &cur, nil
}

func (s *Store) DeleteBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.budgets[id]; !ok {
		return core.ErrBudgetNotFound
	}
	delete(s.st.budgets, id)
	return nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.st.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, core.ErrEmailTaken
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()
	s.st.users[u.ID] = u
	return &u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.st.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.st.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (s *Store) RecordAuditEvent(_ context.Context, e core.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.RecordedAt = time.Now().UTC()
	s.st.events = append(s.st.events, e)
	return nil
}

func (s *Store) ListAuditEvents(_ context.Context, userID string, limit int) ([]core.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.AuditEvent
	for i := len(s.st.events) - 1; i >= 0; i-- {
		if userID != "" && s.st.events[i].UserID != userID {
			continue
		}
		out = append(out, s.st.events[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
