// Package ledger keeps wallet balances consistent with the transactions
// recorded against them. Every create, delete and direct transfer runs its
// balance mutation and its record write inside a single store transaction,
// under a per-wallet lock, so concurrent operations on the same wallet can
// neither race into a negative balance nor lose an update.
package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type Ledger struct {
	store store.Store
	locks *walletLocks
}

func New(st store.Store) *Ledger {
	return &Ledger{
		store: st,
		locks: newWalletLocks(),
	}
}

// CreateTransaction applies a new income, expense or transfer: it checks
// ownership and funds, mutates the affected balance(s) and persists the
// record, all as one unit. An expense or transfer whose amount exceeds the
// (source) wallet balance fails with core.ErrInsufficientFunds and leaves
// every balance untouched.
func (l *Ledger) CreateTransaction(ctx context.Context, in core.TransactionInput) (*core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	unlock := l.locks.lock(in.WalletID, in.SourceWalletID, in.TargetWalletID)
	defer unlock()

	var created *core.Transaction
	err := l.store.WithTx(ctx, func(st store.Store) error {
		switch in.Type {
		case core.Transfer:
			if err := l.moveBalance(ctx, st, in.SourceWalletID, in.TargetWalletID, in.Amount, in.UserID); err != nil {
				return err
			}
		case core.Expense:
			w, err := l.ownedWallet(ctx, st, in.WalletID, in.UserID)
			if err != nil {
				return err
			}
			if w.Balance.LessThan(in.Amount) {
				return core.ErrInsufficientFunds
			}
			if _, err := st.UpdateWalletBalance(ctx, w.ID, w.Balance.Sub(in.Amount)); err != nil {
				return fmt.Errorf("debit wallet %s: %w", w.ID, err)
			}
		case core.Income:
			w, err := l.ownedWallet(ctx, st, in.WalletID, in.UserID)
			if err != nil {
				return err
			}
			if _, err := st.UpdateWalletBalance(ctx, w.ID, w.Balance.Add(in.Amount)); err != nil {
				return fmt.Errorf("credit wallet %s: %w", w.ID, err)
			}
		default:
			return core.ErrInvalidTransactionType
		}

		t, err := st.CreateTransaction(ctx, core.Transaction{
			Amount:         in.Amount,
			Type:           in.Type,
			Date:           in.Date,
			Description:    in.Description,
			Evidence:       in.Evidence,
			CategoryID:     in.CategoryID,
			WalletID:       in.WalletID,
			SourceWalletID: in.SourceWalletID,
			TargetWalletID: in.TargetWalletID,
			BudgetID:       in.BudgetID,
			UserID:         in.UserID,
		})
		if err != nil {
			return fmt.Errorf("create transaction record: %w", err)
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", created.ID,
		"type", created.Type,
		"amount", created.Amount.String(),
		"user_id", created.UserID)

	return created, nil
}

// DeleteTransaction reverses the balance effect of the transaction and
// removes its record atomically. Reversing an income (or a transfer, on
// the target side) can fail with core.ErrInsufficientFunds when the
// credited funds have since been spent.
func (l *Ledger) DeleteTransaction(ctx context.Context, id, userID string) (*core.Transaction, error) {
	// First read resolves which wallets to lock; the transaction is
	// re-read under the lock in case it changed in between.
	peek, err := l.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if peek.UserID != userID {
		return nil, core.ErrOwnershipMismatch
	}

	unlock := l.locks.lock(peek.WalletID, peek.SourceWalletID, peek.TargetWalletID)
	defer unlock()

	var deleted *core.Transaction
	err = l.store.WithTx(ctx, func(st store.Store) error {
		t, err := st.GetTransaction(ctx, id)
		if err != nil {
			return err
		}

		switch t.Type {
		case core.Expense:
			w, err := st.GetWallet(ctx, t.WalletID)
			if err != nil {
				return err
			}
			if _, err := st.UpdateWalletBalance(ctx, w.ID, w.Balance.Add(t.Amount)); err != nil {
				return fmt.Errorf("credit wallet %s: %w", w.ID, err)
			}
		case core.Income:
			w, err := st.GetWallet(ctx, t.WalletID)
			if err != nil {
				return err
			}
			if w.Balance.LessThan(t.Amount) {
				return core.ErrInsufficientFunds
			}
			if _, err := st.UpdateWalletBalance(ctx, w.ID, w.Balance.Sub(t.Amount)); err != nil {
				return fmt.Errorf("debit wallet %s: %w", w.ID, err)
			}
		case core.Transfer:
			target, err := st.GetWallet(ctx, t.TargetWalletID)
			if err != nil {
				return err
			}
			if target.Balance.LessThan(t.Amount) {
				return core.ErrInsufficientFunds
			}
			source, err := st.GetWallet(ctx, t.SourceWalletID)
			if err != nil {
				return err
			}
			if _, err := st.UpdateWalletBalance(ctx, target.ID, target.Balance.Sub(t.Amount)); err != nil {
				return fmt.Errorf("debit wallet %s: %w", target.ID, err)
			}
			if _, err := st.UpdateWalletBalance(ctx, source.ID, source.Balance.Add(t.Amount)); err != nil {
				return fmt.Errorf("credit wallet %s: %w", source.ID, err)
			}
		default:
			return core.ErrInvalidTransactionType
		}

		if err := st.DeleteTransaction(ctx, id); err != nil {
			return fmt.Errorf("delete transaction record: %w", err)
		}
		deleted = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Transaction deleted",
		"transaction_id", deleted.ID,
		"type", deleted.Type,
		"amount", deleted.Amount.String(),
		"user_id", deleted.UserID)

	return deleted, nil
}

// UpdateTransaction changes description, evidence, category and budget.
// Financial fields are immutable, so no balance work happens here.
func (l *Ledger) UpdateTransaction(ctx context.Context, id, userID string, upd core.TransactionUpdate) (*core.Transaction, error) {
	if len(upd.Description) > 200 {
		return nil, core.ErrDescriptionTooLong
	}

	t, err := l.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, core.ErrOwnershipMismatch
	}

	if upd.CategoryID != "" {
		c, err := l.store.GetCategory(ctx, upd.CategoryID)
		if err != nil {
			return nil, err
		}
		if c.UserID != userID {
			return nil, core.ErrOwnershipMismatch
		}
	}
	if upd.BudgetID != "" {
		b, err := l.store.GetBudget(ctx, upd.BudgetID)
		if err != nil {
			return nil, err
		}
		if b.UserID != userID {
			return nil, core.ErrOwnershipMismatch
		}
	}

	t.Description = upd.Description
	t.Evidence = upd.Evidence
	t.CategoryID = upd.CategoryID
	t.BudgetID = upd.BudgetID

	updated, err := l.store.UpdateTransaction(ctx, *t)
	if err != nil {
		return nil, fmt.Errorf("update transaction record: %w", err)
	}
	return updated, nil
}

// TransferBalance moves funds between two wallets of the same user without
// recording a transaction. Used for ad-hoc balance adjustments.
func (l *Ledger) TransferBalance(ctx context.Context, sourceID, targetID string, amount decimal.Decimal, userID string) (*core.Wallet, *core.Wallet, error) {
	if !amount.IsPositive() {
		return nil, nil, core.ErrInvalidAmount
	}
	if sourceID == "" || targetID == "" {
		return nil, nil, core.ErrMissingWallet
	}
	if sourceID == targetID {
		return nil, nil, core.ErrSameWallet
	}

	unlock := l.locks.lock(sourceID, targetID)
	defer unlock()

	err := l.store.WithTx(ctx, func(st store.Store) error {
		return l.moveBalance(ctx, st, sourceID, targetID, amount, userID)
	})
	if err != nil {
		return nil, nil, err
	}

	source, err := l.store.GetWallet(ctx, sourceID)
	if err != nil {
		return nil, nil, err
	}
	target, err := l.store.GetWallet(ctx, targetID)
	if err != nil {
		return nil, nil, err
	}

	slog.InfoContext(ctx, "Balance transferred",
		"source_wallet_id", sourceID,
		"target_wallet_id", targetID,
		"amount", amount.String(),
		"user_id", userID)

	return source, target, nil
}

// moveBalance debits source and credits target by amount within st. Both
// wallets must belong to userID and the source must cover the amount.
func (l *Ledger) moveBalance(ctx context.Context, st store.Store, sourceID, targetID string, amount decimal.Decimal, userID string) error {
	source, err := l.ownedWallet(ctx, st, sourceID, userID)
	if err != nil {
		return err
	}
	target, err := l.ownedWallet(ctx, st, targetID, userID)
	if err != nil {
		return err
	}
	if source.Balance.LessThan(amount) {
		return core.ErrInsufficientFunds
	}
	if _, err := st.UpdateWalletBalance(ctx, source.ID, source.Balance.Sub(amount)); err != nil {
		return fmt.Errorf("debit wallet %s: %w", source.ID, err)
	}
	if _, err := st.UpdateWalletBalance(ctx, target.ID, target.Balance.Add(amount)); err != nil {
		return fmt.Errorf("credit wallet %s: %w", target.ID, err)
	}
	return nil
}

func (l *Ledger) ownedWallet(ctx context.Context, st store.Store, id, userID string) (*core.Wallet, error) {
	w, err := st.GetWallet(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.UserID != userID {
		return nil, core.ErrOwnershipMismatch
	}
	return w, nil
}
