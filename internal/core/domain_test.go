package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTxTypeValid(t *testing.T) {
	for _, tt := range []TxType{Income, Expense, Transfer} {
		if !tt.Valid() {
			t.Fatalf("%q expected valid", tt)
		}
	}
	if TxType("refund").Valid() {
		t.Fatalf("unknown type expected invalid")
	}
}

func TestTransactionInputValidate(t *testing.T) {
	date := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	good := TransactionInput{
		Amount:   decimal.NewFromInt(10),
		Type:     Expense,
		Date:     date,
		WalletID: "w1",
		UserID:   "u1",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	goodTransfer := TransactionInput{
		Amount:         decimal.NewFromInt(10),
		Type:           Transfer,
		Date:           date,
		SourceWalletID: "w1",
		TargetWalletID: "w2",
		UserID:         "u1",
	}
	if err := goodTransfer.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		in   TransactionInput
		want error
	}{
		{"unknown type", TransactionInput{Amount: decimal.NewFromInt(1), Type: "refund", Date: date, WalletID: "w1", UserID: "u1"}, ErrInvalidTransactionType},
		{"zero amount", TransactionInput{Amount: decimal.Zero, Type: Income, Date: date, WalletID: "w1", UserID: "u1"}, ErrInvalidAmount},
		{"negative amount", TransactionInput{Amount: decimal.NewFromInt(-5), Type: Income, Date: date, WalletID: "w1", UserID: "u1"}, ErrInvalidAmount},
		{"zero date", TransactionInput{Amount: decimal.NewFromInt(1), Type: Income, WalletID: "w1", UserID: "u1"}, ErrInvalidDate},
		{"no user", TransactionInput{Amount: decimal.NewFromInt(1), Type: Income, Date: date, WalletID: "w1"}, ErrMissingUser},
		{"no wallet", TransactionInput{Amount: decimal.NewFromInt(1), Type: Income, Date: date, UserID: "u1"}, ErrMissingWallet},
		{"transfer missing target", TransactionInput{Amount: decimal.NewFromInt(1), Type: Transfer, Date: date, SourceWalletID: "w1", UserID: "u1"}, ErrMissingWallet},
		{"transfer same wallet", TransactionInput{Amount: decimal.NewFromInt(1), Type: Transfer, Date: date, SourceWalletID: "w1", TargetWalletID: "w1", UserID: "u1"}, ErrSameWallet},
		{"transfer with plain wallet", TransactionInput{Amount: decimal.NewFromInt(1), Type: Transfer, Date: date, SourceWalletID: "w1", TargetWalletID: "w2", WalletID: "w3", UserID: "u1"}, ErrWalletConflict},
		{"income with source wallet", TransactionInput{Amount: decimal.NewFromInt(1), Type: Income, Date: date, WalletID: "w1", SourceWalletID: "w2", UserID: "u1"}, ErrWalletConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.in.Validate(); err != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestWalletValidate(t *testing.T) {
	good := Wallet{Name: "Cash", Balance: decimal.NewFromInt(100), UserID: "u1"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []Wallet{
		{Name: "", Balance: decimal.NewFromInt(1), UserID: "u1"},
		{Name: "Cash", Balance: decimal.NewFromInt(-1), UserID: "u1"},
		{Name: "Cash", Balance: decimal.NewFromInt(1)},
	}
	for i, w := range bads {
		if err := w.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBudgetValidateAndActiveAt(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)
	b := Budget{Name: "March", Amount: decimal.NewFromInt(500), StartDate: start, EndDate: end, UserID: "u1"}
	if err := b.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	reversed := b
	reversed.StartDate, reversed.EndDate = end, start
	if err := reversed.Validate(); err != ErrInvalidDateRange {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}

	if !b.ActiveAt(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected active inside window")
	}
	if b.ActiveAt(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected inactive outside window")
	}
}

func TestIsNotFoundAndIsValidation(t *testing.T) {
	if !IsNotFound(ErrWalletNotFound) {
		t.Fatalf("ErrWalletNotFound should be not-found")
	}
	if IsNotFound(ErrInsufficientFunds) {
		t.Fatalf("ErrInsufficientFunds is not a not-found error")
	}
	if !IsValidation(ErrInvalidAmount) {
		t.Fatalf("ErrInvalidAmount should be validation")
	}
	if IsValidation(ErrInsufficientFunds) {
		t.Fatalf("ErrInsufficientFunds is not a validation error")
	}
}
