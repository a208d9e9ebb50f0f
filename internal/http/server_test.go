package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/auth"
	"fintrack/internal/ledger"
	"fintrack/internal/store/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st := memory.New()
	srv := NewServer(":0", st, ledger.New(st), auth.NewManager("test-secret-0123456789", time.Hour), nil, 64, time.Minute)
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
	})
	return srv
}

func do(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func registerUser(t *testing.T, srv *Server, email string) (token, userID string) {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/v1/user", "", map[string]string{
		"email":    email,
		"name":     "Test User",
		"password": "hunter2hunter2",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d body %s", rec.Code, rec.Body.String())
	}
	resp := decode[tokenResponse](t, rec)
	return resp.Token, resp.User.ID
}

func createWallet(t *testing.T, srv *Server, token, name string, balance int64) walletJSON {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/v1/wallet", token, map[string]any{
		"name":    name,
		"balance": balance,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create wallet: status %d body %s", rec.Code, rec.Body.String())
	}
	return decode[walletJSON](t, rec)
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/v1/wallet", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/wallet", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t)
	token, userID := registerUser(t, srv, "a@example.com")

	rec := do(t, srv, http.MethodGet, "/api/v1/user/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: status %d body %s", rec.Code, rec.Body.String())
	}
	me := decode[userJSON](t, rec)
	if me.ID != userID || me.Email != "a@example.com" {
		t.Fatalf("unexpected user: %+v", me)
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/user/login", "", map[string]string{
		"email":    "A@Example.com",
		"password": "hunter2hunter2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/user/login", "", map[string]string{
		"email":    "a@example.com",
		"password": "wrong-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: status %d, want 401", rec.Code)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "dup@example.com")

	rec := do(t, srv, http.MethodPost, "/api/v1/user", "", map[string]string{
		"email":    "dup@example.com",
		"name":     "Again",
		"password": "hunter2hunter2",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	resp := decode[errorResponse](t, rec)
	if resp.Code != "email_taken" {
		t.Fatalf("code = %q, want email_taken", resp.Code)
	}
}

func TestCreateExpenseMovesBalance(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerUser(t, srv, "a@example.com")
	wallet := createWallet(t, srv, token, "Main", 100)

	rec := do(t, srv, http.MethodPost, "/api/v1/transaction", token, map[string]any{
		"amount":      "30",
		"type":        "expense",
		"date":        "2026-08-20",
		"description": "groceries",
		"walletId":    wallet.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/wallet/"+wallet.ID, token, nil)
	got := decode[walletJSON](t, rec)
	if !got.Balance.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("balance = %s, want 70", got.Balance)
	}
}

func TestInsufficientFundsRejected(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerUser(t, srv, "a@example.com")
	wallet := createWallet(t, srv, token, "Main", 10)

	rec := do(t, srv, http.MethodPost, "/api/v1/transaction", token, map[string]any{
		"amount":   "50",
		"type":     "expense",
		"date":     "2026-08-20",
		"walletId": wallet.ID,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decode[errorResponse](t, rec)
	if resp.Code != "insufficient_funds" {
		t.Fatalf("code = %q, want insufficient_funds", resp.Code)
	}

	// Balance untouched.
	rec = do(t, srv, http.MethodGet, "/api/v1/wallet/"+wallet.ID, token, nil)
	got := decode[walletJSON](t, rec)
	if !got.Balance.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("balance = %s, want 10", got.Balance)
	}
}

func TestForeignWalletForbidden(t *testing.T) {
	srv := newTestServer(t)
	tokenA, _ := registerUser(t, srv, "a@example.com")
	tokenB, _ := registerUser(t, srv, "b@example.com")
	wallet := createWallet(t, srv, tokenA, "A's wallet", 100)

	rec := do(t, srv, http.MethodGet, "/api/v1/wallet/"+wallet.ID, tokenB, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("get: status = %d, want 403", rec.Code)
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/transaction", tokenB, map[string]any{
		"amount":   "5",
		"type":     "expense",
		"date":     "2026-08-20",
		"walletId": wallet.ID,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("spend: status = %d, want 403", rec.Code)
	}
}

func TestWalletRenameKeepsLedgerBalance(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerUser(t, srv, "a@example.com")
	wallet := createWallet(t, srv, token, "Main", 100)

	rec := do(t, srv, http.MethodPost, "/api/v1/transaction", token, map[string]any{
		"amount":   "40",
		"type":     "expense",
		"date":     "2026-08-20",
		"walletId": wallet.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("spend: status %d body %s", rec.Code, rec.Body.String())
	}

	// The rename payload carries the balance from before the expense; it
	// must not roll back the debit.
	rec = do(t, srv, http.MethodPut, "/api/v1/wallet/"+wallet.ID, token, map[string]any{
		"name":    "Renamed",
		"balance": 100,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("rename: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/wallet/"+wallet.ID, token, nil)
	got := decode[walletJSON](t, rec)
	if got.Name != "Renamed" {
		t.Fatalf("name = %q, want Renamed", got.Name)
	}
	if !got.Balance.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("balance = %s, want 60", got.Balance)
	}
}

func TestCreateTransactionAmountFormats(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerUser(t, srv, "a@example.com")
	wallet := createWallet(t, srv, token, "Main", 100)

	// Comma decimal separator is accepted.
	rec := do(t, srv, http.MethodPost, "/api/v1/transaction", token, map[string]any{
		"amount":   "12,50",
		"type":     "expense",
		"date":     "2026-08-20",
		"walletId": wallet.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("comma amount: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/wallet/"+wallet.ID, token, nil)
	got := decode[walletJSON](t, rec)
	if !got.Balance.Equal(decimal.RequireFromString("87.5")) {
		t.Fatalf("balance = %s, want 87.5", got.Balance)
	}

	for name, amount := range map[string]any{
		"malformed": "not-a-number",
		"negative":  "-5",
		"zero":      0,
	} {
		rec = do(t, srv, http.MethodPost, "/api/v1/transaction", token, map[string]any{
			"amount":   amount,
			"type":     "expense",
			"date":     "2026-08-20",
			"walletId": wallet.ID,
		})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s amount: status %d, want 422", name, rec.Code)
		}
	}
}

func TestDeleteTransactionRestoresBalance(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerUser(t, srv, "a@example.com")
	wallet := createWallet(t, srv, token, "Main", 100)

	rec := do(t, srv, http.MethodPost, "/api/v1/transaction", token, map[string]any{
		"amount":   "40",
		"type":     "expense",
		"date":     "2026-08-20",
		"walletId": wallet.ID,
	})
	tx := decode[transactionJSON](t, rec)

	rec = do(t, srv, http.MethodDelete, "/api/v1/transaction/"+tx.ID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/wallet/"+wallet.ID, token, nil)
	got := decode[walletJSON](t, rec)
	if !got.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance = %s, want 100", got.Balance)
	}
}

func TestWalletTransferAndTotalBalance(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerUser(t, srv, "a@example.com")
	source := createWallet(t, srv, token, "Source", 80)
	target := createWallet(t, srv, token, "Target", 20)

	rec := do(t, srv, http.MethodPost, "/api/v1/wallet/transfer", token, map[string]any{
		"sourceWalletId": source.ID,
		"targetWalletId": target.ID,
		"amount":         "30",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("transfer: status %d body %s", rec.Code, rec.Body.String())
	}
	resp := decode[transferResponse](t, rec)
	if !resp.Source.Balance.Equal(decimal.NewFromInt(50)) || !resp.Target.Balance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("balances = %s/%s, want 50/50", resp.Source.Balance, resp.Target.Balance)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/wallet/total/balance", token, nil)
	total := decode[totalBalanceResponse](t, rec)
	if !total.Total.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("total = %s, want 100", total.Total)
	}
}

func TestCategoryDeleteDetachesTransactions(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerUser(t, srv, "a@example.com")
	wallet := createWallet(t, srv, token, "Main", 100)

	rec := do(t, srv, http.MethodPost, "/api/v1/category", token, map[string]string{"name": "Food"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category: status %d body %s", rec.Code, rec.Body.String())
	}
	category := decode[categoryJSON](t, rec)

	rec = do(t, srv, http.MethodPost, "/api/v1/transaction", token, map[string]any{
		"amount":     "10",
		"type":       "expense",
		"date":       "2026-08-20",
		"walletId":   wallet.ID,
		"categoryId": category.ID,
	})
	tx := decode[transactionJSON](t, rec)

	rec = do(t, srv, http.MethodDelete, "/api/v1/category/"+category.ID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete category: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/transaction/"+tx.ID, token, nil)
	got := decode[transactionJSON](t, rec)
	if got.CategoryID != "" {
		t.Fatalf("categoryId = %q, want empty after detach", got.CategoryID)
	}
}

func TestBudgetActiveFilter(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerUser(t, srv, "a@example.com")

	now := time.Now()
	mk := func(name string, start, end time.Time) {
		rec := do(t, srv, http.MethodPost, "/api/v1/budget", token, map[string]any{
			"name":      name,
			"amount":    "100",
			"startDate": start.Format("2006-01-02"),
			"endDate":   end.Format("2006-01-02"),
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create budget %s: status %d body %s", name, rec.Code, rec.Body.String())
		}
	}
	mk("current", now.AddDate(0, 0, -1), now.AddDate(0, 0, 1))
	mk("past", now.AddDate(0, -2, 0), now.AddDate(0, -1, 0))

	rec := do(t, srv, http.MethodGet, "/api/v1/budget?active=true", token, nil)
	budgets := decode[[]budgetJSON](t, rec)
	if len(budgets) != 1 || budgets[0].Name != "current" {
		t.Fatalf("active budgets = %+v, want only \"current\"", budgets)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/budget", token, nil)
	budgets = decode[[]budgetJSON](t, rec)
	if len(budgets) != 2 {
		t.Fatalf("all budgets = %d, want 2", len(budgets))
	}
}

func TestStatisticsDayBucketsAndInvalidation(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerUser(t, srv, "a@example.com")
	wallet := createWallet(t, srv, token, "Main", 1000)

	spend := func(amount, date string) {
		rec := do(t, srv, http.MethodPost, "/api/v1/transaction", token, map[string]any{
			"amount":   amount,
			"type":     "expense",
			"date":     date,
			"walletId": wallet.ID,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("spend: status %d body %s", rec.Code, rec.Body.String())
		}
	}
	spend("10", "2026-08-20")
	spend("5", "2026-08-21")
	spend("7", "2026-08-20")

	rec := do(t, srv, http.MethodGet, "/api/v1/statistics", token, nil)
	buckets := decode[[]map[string]any](t, rec)
	if len(buckets) != 2 {
		t.Fatalf("buckets = %d, want 2 (same-day expenses collapse)", len(buckets))
	}
	if buckets[0]["date"] != "2026-08-20" || fmt.Sprint(buckets[0]["expense"]) != "17" {
		t.Fatalf("first bucket = %+v, want 2026-08-20 expense 17", buckets[0])
	}

	// A new write must drop the cached response.
	spend("3", "2026-08-22")
	rec = do(t, srv, http.MethodGet, "/api/v1/statistics", token, nil)
	buckets = decode[[]map[string]any](t, rec)
	if len(buckets) != 3 {
		t.Fatalf("buckets after write = %d, want 3", len(buckets))
	}
}

func TestStatisticsTimeframeValidation(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerUser(t, srv, "a@example.com")

	rec := do(t, srv, http.MethodGet, "/api/v1/statistics/timeframe?timeFrame=decade", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decode[errorResponse](t, rec)
	if resp.Code != "invalid_timeframe" {
		t.Fatalf("code = %q, want invalid_timeframe", resp.Code)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/statistics/timeframe?timeFrame=week", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s, want 200", rec.Code, rec.Body.String())
	}
}

func TestStatisticsCategorySummary(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerUser(t, srv, "a@example.com")
	wallet := createWallet(t, srv, token, "Main", 1000)

	rec := do(t, srv, http.MethodPost, "/api/v1/category", token, map[string]string{"name": "Food"})
	category := decode[categoryJSON](t, rec)

	for _, amount := range []string{"10", "15"} {
		rec = do(t, srv, http.MethodPost, "/api/v1/transaction", token, map[string]any{
			"amount":     amount,
			"type":       "expense",
			"date":       "2026-08-20",
			"walletId":   wallet.ID,
			"categoryId": category.ID,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("spend: status %d body %s", rec.Code, rec.Body.String())
		}
	}
	// Uncategorized income must not show up.
	rec = do(t, srv, http.MethodPost, "/api/v1/transaction", token, map[string]any{
		"amount":   "99",
		"type":     "income",
		"date":     "2026-08-20",
		"walletId": wallet.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("income: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/statistics/category", token, nil)
	summary := decode[[]map[string]any](t, rec)
	if len(summary) != 1 {
		t.Fatalf("summary = %+v, want one category", summary)
	}
	if summary[0]["category"] != "Food" || fmt.Sprint(summary[0]["expenses"]) != "25" {
		t.Fatalf("summary[0] = %+v, want Food with expenses 25", summary[0])
	}
}

func TestUpdateTransactionKeepsFinancialFields(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerUser(t, srv, "a@example.com")
	wallet := createWallet(t, srv, token, "Main", 100)

	rec := do(t, srv, http.MethodPost, "/api/v1/transaction", token, map[string]any{
		"amount":      "40",
		"type":        "expense",
		"date":        "2026-08-20",
		"description": "before",
		"walletId":    wallet.ID,
	})
	tx := decode[transactionJSON](t, rec)

	rec = do(t, srv, http.MethodPut, "/api/v1/transaction/"+tx.ID, token, map[string]any{
		"description": "after",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d body %s", rec.Code, rec.Body.String())
	}
	got := decode[transactionJSON](t, rec)
	if got.Description != "after" {
		t.Fatalf("description = %q, want after", got.Description)
	}
	if !got.Amount.Equal(tx.Amount) || got.Type != tx.Type || got.WalletID != tx.WalletID {
		t.Fatalf("financial fields changed: %+v", got)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/wallet/"+wallet.ID, token, nil)
	w := decode[walletJSON](t, rec)
	if !w.Balance.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("balance = %s, want 60", w.Balance)
	}
}

func TestListTransactionsPaging(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerUser(t, srv, "a@example.com")
	wallet := createWallet(t, srv, token, "Main", 1000)

	for i := 0; i < 5; i++ {
		rec := do(t, srv, http.MethodPost, "/api/v1/transaction", token, map[string]any{
			"amount":   "1",
			"type":     "expense",
			"date":     fmt.Sprintf("2026-08-%02d", 10+i),
			"walletId": wallet.ID,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("spend %d: status %d body %s", i, rec.Code, rec.Body.String())
		}
	}

	rec := do(t, srv, http.MethodGet, "/api/v1/transaction?limit=2&skip=1", token, nil)
	page := decode[transactionPage](t, rec)
	if page.Total != 5 {
		t.Fatalf("total = %d, want 5", page.Total)
	}
	if len(page.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(page.Items))
	}
	// Ordered by date descending; skip=1 drops the newest.
	if !page.Items[0].Date.Equal(time.Date(2026, 8, 13, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("first item date = %s, want 2026-08-13", page.Items[0].Date)
	}
}
