package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
)

func newTestLedger(t *testing.T) (*Ledger, *memory.Store) {
	t.Helper()
	st := memory.New()
	return New(st), st
}

func seedWallet(t *testing.T, st *memory.Store, userID string, balance int64) *core.Wallet {
	t.Helper()
	w, err := st.CreateWallet(context.Background(), core.Wallet{
		Name:    "Wallet",
		Balance: decimal.NewFromInt(balance),
		UserID:  userID,
	})
	if err != nil {
		t.Fatalf("seed wallet: %v", err)
	}
	return w
}

func expenseInput(walletID, userID string, amount int64) core.TransactionInput {
	return core.TransactionInput{
		Amount:   decimal.NewFromInt(amount),
		Type:     core.Expense,
		Date:     time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		WalletID: walletID,
		UserID:   userID,
	}
}

func balanceOf(t *testing.T, st *memory.Store, id string) decimal.Decimal {
	t.Helper()
	w, err := st.GetWallet(context.Background(), id)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	return w.Balance
}

func TestCreateExpenseDebitsWallet(t *testing.T) {
	l, st := newTestLedger(t)
	w := seedWallet(t, st, "u1", 100)

	tx, err := l.CreateTransaction(context.Background(), expenseInput(w.ID, "u1", 40))
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if tx.ID == "" {
		t.Fatalf("expected transaction id")
	}
	if got := balanceOf(t, st, w.ID); !got.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected balance 60, got %s", got)
	}
}

func TestCreateIncomeCreditsWallet(t *testing.T) {
	l, st := newTestLedger(t)
	w := seedWallet(t, st, "u1", 100)

	in := expenseInput(w.ID, "u1", 40)
	in.Type = core.Income
	if _, err := l.CreateTransaction(context.Background(), in); err != nil {
		t.Fatalf("create income: %v", err)
	}
	if got := balanceOf(t, st, w.ID); !got.Equal(decimal.NewFromInt(140)) {
		t.Fatalf("expected balance 140, got %s", got)
	}
}

func TestCreateExpenseInsufficientFundsLeavesBalance(t *testing.T) {
	l, st := newTestLedger(t)
	w := seedWallet(t, st, "u1", 30)

	_, err := l.CreateTransaction(context.Background(), expenseInput(w.ID, "u1", 40))
	if err != core.ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := balanceOf(t, st, w.ID); !got.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("balance mutated on rejected expense: %s", got)
	}
	if _, total, _ := st.FindTransactions(context.Background(), store.TransactionFilter{UserID: "u1"}); total != 0 {
		t.Fatalf("expected no transaction record, found %d", total)
	}
}

func TestCreateTransferMovesFunds(t *testing.T) {
	l, st := newTestLedger(t)
	src := seedWallet(t, st, "u1", 100)
	dst := seedWallet(t, st, "u1", 5)

	in := core.TransactionInput{
		Amount:         decimal.NewFromInt(25),
		Type:           core.Transfer,
		Date:           time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		SourceWalletID: src.ID,
		TargetWalletID: dst.ID,
		UserID:         "u1",
	}
	if _, err := l.CreateTransaction(context.Background(), in); err != nil {
		t.Fatalf("create transfer: %v", err)
	}
	if got := balanceOf(t, st, src.ID); !got.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("expected source 75, got %s", got)
	}
	if got := balanceOf(t, st, dst.ID); !got.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected target 30, got %s", got)
	}
}

func TestCreateTransferInsufficientFundsMutatesNothing(t *testing.T) {
	l, st := newTestLedger(t)
	src := seedWallet(t, st, "u1", 10)
	dst := seedWallet(t, st, "u1", 5)

	in := core.TransactionInput{
		Amount:         decimal.NewFromInt(25),
		Type:           core.Transfer,
		Date:           time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		SourceWalletID: src.ID,
		TargetWalletID: dst.ID,
		UserID:         "u1",
	}
	if _, err := l.CreateTransaction(context.Background(), in); err != core.ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := balanceOf(t, st, src.ID); !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("source mutated: %s", got)
	}
	if got := balanceOf(t, st, dst.ID); !got.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("target mutated: %s", got)
	}
}

func TestCreateRejectsForeignWallet(t *testing.T) {
	l, st := newTestLedger(t)
	w := seedWallet(t, st, "owner", 100)

	_, err := l.CreateTransaction(context.Background(), expenseInput(w.ID, "intruder", 10))
	if err != core.ErrOwnershipMismatch {
		t.Fatalf("expected ErrOwnershipMismatch, got %v", err)
	}
	if got := balanceOf(t, st, w.ID); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance mutated: %s", got)
	}
}

func TestDeleteExpenseRestoresBalance(t *testing.T) {
	l, st := newTestLedger(t)
	w := seedWallet(t, st, "u1", 100)

	tx, err := l.CreateTransaction(context.Background(), expenseInput(w.ID, "u1", 40))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := l.DeleteTransaction(context.Background(), tx.ID, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := balanceOf(t, st, w.ID); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance restored to 100, got %s", got)
	}
	if _, err := st.GetTransaction(context.Background(), tx.ID); err != core.ErrTransactionNotFound {
		t.Fatalf("expected record gone, got %v", err)
	}
}

func TestDeleteIncomeAlreadySpentFails(t *testing.T) {
	l, st := newTestLedger(t)
	w := seedWallet(t, st, "u1", 0)

	income := expenseInput(w.ID, "u1", 50)
	income.Type = core.Income
	tx, err := l.CreateTransaction(context.Background(), income)
	if err != nil {
		t.Fatalf("create income: %v", err)
	}
	// Spend most of the credited funds, then try to reverse the income.
	if _, err := l.CreateTransaction(context.Background(), expenseInput(w.ID, "u1", 30)); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	if _, err := l.DeleteTransaction(context.Background(), tx.ID, "u1"); err != core.ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := balanceOf(t, st, w.ID); !got.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("balance mutated by failed delete: %s", got)
	}
	if _, err := st.GetTransaction(context.Background(), tx.ID); err != nil {
		t.Fatalf("record must survive failed delete: %v", err)
	}
}

func TestDeleteTransferReversesBothWallets(t *testing.T) {
	l, st := newTestLedger(t)
	src := seedWallet(t, st, "u1", 100)
	dst := seedWallet(t, st, "u1", 0)

	in := core.TransactionInput{
		Amount:         decimal.NewFromInt(60),
		Type:           core.Transfer,
		Date:           time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		SourceWalletID: src.ID,
		TargetWalletID: dst.ID,
		UserID:         "u1",
	}
	tx, err := l.CreateTransaction(context.Background(), in)
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}
	if _, err := l.DeleteTransaction(context.Background(), tx.ID, "u1"); err != nil {
		t.Fatalf("delete transfer: %v", err)
	}
	if got := balanceOf(t, st, src.ID); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected source restored, got %s", got)
	}
	if got := balanceOf(t, st, dst.ID); !got.Equal(decimal.Zero) {
		t.Fatalf("expected target restored, got %s", got)
	}
}

func TestDeleteThenRecreateRoundTrip(t *testing.T) {
	l, st := newTestLedger(t)
	w := seedWallet(t, st, "u1", 100)

	in := expenseInput(w.ID, "u1", 25)
	tx, err := l.CreateTransaction(context.Background(), in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := l.DeleteTransaction(context.Background(), tx.ID, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := l.CreateTransaction(context.Background(), in); err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if got := balanceOf(t, st, w.ID); !got.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("round-trip expected 75, got %s", got)
	}
}

func TestUpdateTransactionLeavesBalanceAlone(t *testing.T) {
	l, st := newTestLedger(t)
	w := seedWallet(t, st, "u1", 100)
	cat, err := st.CreateCategory(context.Background(), core.Category{Name: "Food", UserID: "u1"})
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}

	tx, err := l.CreateTransaction(context.Background(), expenseInput(w.ID, "u1", 40))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := l.UpdateTransaction(context.Background(), tx.ID, "u1", core.TransactionUpdate{
		Description: "groceries",
		CategoryID:  cat.ID,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != "groceries" || updated.CategoryID != cat.ID {
		t.Fatalf("update not applied: %+v", updated)
	}
	if !updated.Amount.Equal(tx.Amount) || updated.Type != tx.Type || updated.WalletID != tx.WalletID {
		t.Fatalf("financial fields changed on update")
	}
	if got := balanceOf(t, st, w.ID); !got.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("balance changed on non-financial update: %s", got)
	}
}

func TestUpdateRejectsForeignCategory(t *testing.T) {
	l, st := newTestLedger(t)
	w := seedWallet(t, st, "u1", 100)
	cat, err := st.CreateCategory(context.Background(), core.Category{Name: "Other", UserID: "someone-else"})
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	tx, err := l.CreateTransaction(context.Background(), expenseInput(w.ID, "u1", 10))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = l.UpdateTransaction(context.Background(), tx.ID, "u1", core.TransactionUpdate{CategoryID: cat.ID})
	if err != core.ErrOwnershipMismatch {
		t.Fatalf("expected ErrOwnershipMismatch, got %v", err)
	}
}

func TestTransferBalanceExactAmount(t *testing.T) {
	l, st := newTestLedger(t)
	src := seedWallet(t, st, "u1", 42)
	dst := seedWallet(t, st, "u1", 8)

	source, target, err := l.TransferBalance(context.Background(), src.ID, dst.ID, decimal.NewFromInt(42), "u1")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !source.Balance.Equal(decimal.Zero) {
		t.Fatalf("expected source 0, got %s", source.Balance)
	}
	if !target.Balance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected target 50, got %s", target.Balance)
	}
}

func TestTransferBalanceInsufficientFunds(t *testing.T) {
	l, st := newTestLedger(t)
	src := seedWallet(t, st, "u1", 10)
	dst := seedWallet(t, st, "u1", 0)

	_, _, err := l.TransferBalance(context.Background(), src.ID, dst.ID, decimal.NewFromInt(11), "u1")
	if err != core.ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := balanceOf(t, st, src.ID); !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("source mutated: %s", got)
	}
	if got := balanceOf(t, st, dst.ID); !got.Equal(decimal.Zero) {
		t.Fatalf("target mutated: %s", got)
	}
}

func TestTransferBalanceValidation(t *testing.T) {
	l, st := newTestLedger(t)
	w := seedWallet(t, st, "u1", 10)

	if _, _, err := l.TransferBalance(context.Background(), w.ID, w.ID, decimal.NewFromInt(1), "u1"); err != core.ErrSameWallet {
		t.Fatalf("expected ErrSameWallet, got %v", err)
	}
	if _, _, err := l.TransferBalance(context.Background(), w.ID, "other", decimal.Zero, "u1"); err != core.ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

// Two concurrent 60-unit expenses against a balance of 100 must produce
// exactly one success and one insufficient-funds rejection.
func TestConcurrentExpensesNeverOverdraw(t *testing.T) {
	l, st := newTestLedger(t)
	w := seedWallet(t, st, "u1", 100)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.CreateTransaction(context.Background(), expenseInput(w.ID, "u1", 60))
		}(i)
	}
	wg.Wait()

	var ok, rejected int
	for _, err := range errs {
		switch err {
		case nil:
			ok++
		case core.ErrInsufficientFunds:
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || rejected != 1 {
		t.Fatalf("expected one success and one rejection, got ok=%d rejected=%d", ok, rejected)
	}
	if got := balanceOf(t, st, w.ID); !got.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected balance 40, got %s", got)
	}
}

// Replaying a random mix of creates and deletes must leave the balance at
// initial + sum(incomes) - sum(expenses) over the surviving records.
func TestReplayConsistency(t *testing.T) {
	l, st := newTestLedger(t)
	w := seedWallet(t, st, "u1", 1000)

	var created []string
	amounts := []int64{10, 20, 30, 40, 50}
	for i, a := range amounts {
		in := expenseInput(w.ID, "u1", a)
		if i%2 == 0 {
			in.Type = core.Income
		}
		tx, err := l.CreateTransaction(context.Background(), in)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		created = append(created, tx.ID)
	}
	// Delete the second and fourth.
	for _, id := range []string{created[1], created[3]} {
		if _, err := l.DeleteTransaction(context.Background(), id, "u1"); err != nil {
			t.Fatalf("delete %s: %v", id, err)
		}
	}

	// Survivors: +10 (income), +30 (income), +50 (income).
	want := decimal.NewFromInt(1000 + 10 + 30 + 50)
	if got := balanceOf(t, st, w.ID); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
