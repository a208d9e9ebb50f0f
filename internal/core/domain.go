package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income   TxType = "income"
	Expense  TxType = "expense"
	Transfer TxType = "transfer"
)

const (
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
	TimeframeYear  Timeframe = "year"
)

type (
	// TxType is the kind of monetary event a transaction records.
	TxType string

	// Timeframe selects the implicit date range for statistics queries.
	Timeframe string

	Wallet struct {
		ID          string
		Name        string
		Balance     decimal.Decimal
		Description string
		UserID      string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	Transaction struct {
		ID             string
		Amount         decimal.Decimal
		Type           TxType
		Date           time.Time
		Description    string
		Evidence       []string
		CategoryID     string
		WalletID       string
		SourceWalletID string
		TargetWalletID string
		BudgetID       string
		UserID         string
		CreatedAt      time.Time
	}

	Category struct {
		ID          string
		Name        string
		Description string
		UserID      string
	}

	Budget struct {
		ID        string
		Name      string
		Amount    decimal.Decimal
		StartDate time.Time
		EndDate   time.Time
		UserID    string
	}

	User struct {
		ID           string
		Email        string
		Name         string
		PasswordHash string
		Active       bool
		CreatedAt    time.Time
	}

	// TransactionInput carries the caller-supplied fields for a new transaction.
	TransactionInput struct {
		Amount         decimal.Decimal
		Type           TxType
		Date           time.Time
		Description    string
		Evidence       []string
		CategoryID     string
		WalletID       string
		SourceWalletID string
		TargetWalletID string
		BudgetID       string
		UserID         string
	}

	// TransactionUpdate holds the mutable, non-financial transaction fields.
	// Amount, type and wallet references are immutable after creation.
	TransactionUpdate struct {
		Description string
		Evidence    []string
		CategoryID  string
		BudgetID    string
	}
)

// Valid reports whether t is one of the known transaction types.
func (t TxType) Valid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	}
	return false
}

// Valid reports whether tf is one of the known timeframes.
func (tf Timeframe) Valid() bool {
	switch tf {
	case TimeframeWeek, TimeframeMonth, TimeframeYear:
		return true
	}
	return false
}

func (w Wallet) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return ErrEmptyName
	}
	if len(w.Name) > 100 {
		return ErrNameTooLong
	}
	if w.Balance.IsNegative() {
		return ErrNegativeBalance
	}
	if w.UserID == "" {
		return ErrMissingUser
	}
	return nil
}

func (in TransactionInput) Validate() error {
	if !in.Type.Valid() {
		return ErrInvalidTransactionType
	}
	if !in.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if in.Date.IsZero() {
		return ErrInvalidDate
	}
	if in.UserID == "" {
		return ErrMissingUser
	}
	if len(in.Description) > 200 {
		return ErrDescriptionTooLong
	}
	switch in.Type {
	case Transfer:
		if in.SourceWalletID == "" || in.TargetWalletID == "" {
			return ErrMissingWallet
		}
		if in.SourceWalletID == in.TargetWalletID {
			return ErrSameWallet
		}
		if in.WalletID != "" {
			return ErrWalletConflict
		}
	default:
		if in.WalletID == "" {
			return ErrMissingWallet
		}
		if in.SourceWalletID != "" || in.TargetWalletID != "" {
			return ErrWalletConflict
		}
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.UserID == "" {
		return ErrMissingUser
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if !b.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		return ErrInvalidDate
	}
	if b.EndDate.Before(b.StartDate) {
		return ErrInvalidDateRange
	}
	if b.UserID == "" {
		return ErrMissingUser
	}
	return nil
}

// ActiveAt reports whether the budget window covers the given instant.
func (b Budget) ActiveAt(t time.Time) bool {
	return !t.Before(b.StartDate) && !t.After(b.EndDate)
}
