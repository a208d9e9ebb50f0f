// Package store defines the persistence ports consumed by the ledger,
// the statistics handlers and the HTTP layer. Implementations live in
// internal/storage (SQLite) and internal/store/memory (tests, demo mode).
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// TransactionFilter narrows FindTransactions. Zero values mean "no
// constraint". The wallet filter matches a transaction when any of its
// wallet, source wallet or target wallet is in WalletIDs. Query matches
// the description case-insensitively.
type TransactionFilter struct {
	UserID      string
	Query       string
	StartDate   time.Time
	EndDate     time.Time
	CategoryIDs []string
	WalletIDs   []string
	Limit       int
	Offset      int
}

type WalletStore interface {
	CreateWallet(ctx context.Context, w core.Wallet) (*core.Wallet, error)
	GetWallet(ctx context.Context, id string) (*core.Wallet, error)
	ListWallets(ctx context.Context, userID, query string) ([]core.Wallet, error)
	// UpdateWallet writes name and description only. The balance in w is
	// ignored: writing it back would let a stale read overwrite a balance
	// committed by the ledger in between. Balance moves exclusively through
	// UpdateWalletBalance under the ledger's wallet lock.
	UpdateWallet(ctx context.Context, w core.Wallet) (*core.Wallet, error)
	UpdateWalletBalance(ctx context.Context, id string, balance decimal.Decimal) (*core.Wallet, error)
	DeleteWallet(ctx context.Context, id string) error
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (*core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) (*core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	// FindTransactions returns the matching page ordered by date descending
	// plus the total match count before paging.
	FindTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, int, error)
	// DetachCategory clears the category reference on every transaction
	// pointing at it. Used when a category is deleted.
	DetachCategory(ctx context.Context, categoryID string) error
}

type CategoryStore interface {
	CreateCategory(ctx context.Context, c core.Category) (*core.Category, error)
	GetCategory(ctx context.Context, id string) (*core.Category, error)
	ListCategories(ctx context.Context, userID, query string) ([]core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) (*core.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

type BudgetStore interface {
	CreateBudget(ctx context.Context, b core.Budget) (*core.Budget, error)
	GetBudget(ctx context.Context, id string) (*core.Budget, error)
	ListBudgets(ctx context.Context, userID, query string) ([]core.Budget, error)
	UpdateBudget(ctx context.Context, b core.Budget) (*core.Budget, error)
	DeleteBudget(ctx context.Context, id string) error
}

type UserStore interface {
	CreateUser(ctx context.Context, u core.User) (*core.User, error)
	GetUser(ctx context.Context, id string) (*core.User, error)
	GetUserByEmail(ctx context.Context, email string) (*core.User, error)
}

type AuditStore interface {
	RecordAuditEvent(ctx context.Context, e core.AuditEvent) error
	ListAuditEvents(ctx context.Context, userID string, limit int) ([]core.AuditEvent, error)
}

// Store is the full persistence surface. WithTx runs fn against a view of
// the store whose writes commit atomically: either every write inside fn
// is visible afterwards or none is. The ledger relies on this to pair
// balance mutations with transaction records.
type Store interface {
	WalletStore
	TransactionStore
	CategoryStore
	BudgetStore
	UserStore
	AuditStore

	WithTx(ctx context.Context, fn func(Store) error) error
}
