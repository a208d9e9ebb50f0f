package http

import (
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// JSON views of the domain entities. Amounts marshal as decimal strings.
type (
	walletJSON struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Balance     decimal.Decimal `json:"balance"`
		Description string          `json:"description,omitempty"`
		UserID      string          `json:"userId"`
		CreatedAt   time.Time       `json:"createdAt"`
		UpdatedAt   time.Time       `json:"updatedAt"`
	}

	transactionJSON struct {
		ID             string          `json:"id"`
		Amount         decimal.Decimal `json:"amount"`
		Type           core.TxType     `json:"type"`
		Date           time.Time       `json:"date"`
		Description    string          `json:"description,omitempty"`
		Evidence       []string        `json:"evidence,omitempty"`
		CategoryID     string          `json:"categoryId,omitempty"`
		WalletID       string          `json:"walletId,omitempty"`
		SourceWalletID string          `json:"sourceWalletId,omitempty"`
		TargetWalletID string          `json:"targetWalletId,omitempty"`
		BudgetID       string          `json:"budgetId,omitempty"`
		UserID         string          `json:"userId"`
		CreatedAt      time.Time       `json:"createdAt"`
	}

	categoryJSON struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		UserID      string `json:"userId"`
	}

	budgetJSON struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Amount    decimal.Decimal `json:"amount"`
		StartDate time.Time       `json:"startDate"`
		EndDate   time.Time       `json:"endDate"`
		UserID    string          `json:"userId"`
	}

	userJSON struct {
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"createdAt"`
	}
)

func toWalletJSON(w core.Wallet) walletJSON {
	return walletJSON{
		ID:          w.ID,
		Name:        w.Name,
		Balance:     w.Balance,
		Description: w.Description,
		UserID:      w.UserID,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

func toWalletListJSON(ws []core.Wallet) []walletJSON {
	out := make([]walletJSON, 0, len(ws))
	for _, w := range ws {
		out = append(out, toWalletJSON(w))
	}
	return out
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:             t.ID,
		Amount:         t.Amount,
		Type:           t.Type,
		Date:           t.Date,
		Description:    t.Description,
		Evidence:       t.Evidence,
		CategoryID:     t.CategoryID,
		WalletID:       t.WalletID,
		SourceWalletID: t.SourceWalletID,
		TargetWalletID: t.TargetWalletID,
		BudgetID:       t.BudgetID,
		UserID:         t.UserID,
		CreatedAt:      t.CreatedAt,
	}
}

func toTransactionListJSON(ts []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTransactionJSON(t))
	}
	return out
}

func toCategoryJSON(c core.Category) categoryJSON {
	return categoryJSON{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		UserID:      c.UserID,
	}
}

func toBudgetJSON(b core.Budget) budgetJSON {
	return budgetJSON{
		ID:        b.ID,
		Name:      b.Name,
		Amount:    b.Amount,
		StartDate: b.StartDate,
		EndDate:   b.EndDate,
		UserID:    b.UserID,
	}
}

func toUserJSON(u core.User) userJSON {
	return userJSON{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}
