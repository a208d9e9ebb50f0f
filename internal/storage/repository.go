// Package storage implements the store.Store ports on SQLite. Amounts are
// persisted as decimal strings and timestamps as RFC 3339 text, so values
// round-trip without floating point loss.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// Fixed-width fraction keeps stored timestamps lexicographically ordered,
// which the date range filters rely on.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// dbtx is satisfied by both *sql.DB and *sql.Tx, so every query method
// works inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db *sql.DB // nil on transaction-scoped views
	q  dbtx
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// SQLite allows one writer; a single connection avoids busy errors
	// under the ledger's concurrent write load.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, q: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// WithTx runs fn against a transaction-scoped repository. All writes inside
// fn commit together or roll back together.
func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(store.Store) error) error {
	if r.db == nil {
		// Already inside a transaction; reuse it.
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&SQLiteRepository{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ---- wallets ----

func (r *SQLiteRepository) CreateWallet(ctx context.Context, w core.Wallet) (*core.Wallet, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO wallets (id, name, balance, description, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Name, w.Balance.String(), w.Description, w.UserID,
		now.Format(timeFormat), now.Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("insert wallet: %w", err)
	}
	return &w, nil
}

const walletColumns = `id, name, balance, description, user_id, created_at, updated_at`

func (r *SQLiteRepository) GetWallet(ctx context.Context, id string) (*core.Wallet, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = ?`, id)
	return scanWallet(row)
}

func (r *SQLiteRepository) ListWallets(ctx context.Context, userID, query string) ([]core.Wallet, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+walletColumns+` FROM wallets
		WHERE user_id = ? AND name LIKE ? COLLATE NOCASE
		ORDER BY name`,
		userID, "%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var out []core.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateWallet(ctx context.Context, w core.Wallet) (*core.Wallet, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE wallets SET name = ?, description = ?, updated_at = ?
		WHERE id = ?`,
		w.Name, w.Description, time.Now().UTC().Format(timeFormat), w.ID)
	if err != nil {
		return nil, fmt.Errorf("update wallet: %w", err)
	}
	if err := requireRow(res, core.ErrWalletNotFound); err != nil {
		return nil, err
	}
	return r.GetWallet(ctx, w.ID)
}

func (r *SQLiteRepository) UpdateWalletBalance(ctx context.Context, id string, balance decimal.Decimal) (*core.Wallet, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE wallets SET balance = ?, updated_at = ? WHERE id = ?`,
		balance.String(), time.Now().UTC().Format(timeFormat), id)
	if err != nil {
		return nil, fmt.Errorf("update wallet balance: %w", err)
	}
	if err := requireRow(res, core.ErrWalletNotFound); err != nil {
		return nil, err
	}
	return r.GetWallet(ctx, id)
}

func (r *SQLiteRepository) DeleteWallet(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM wallets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	return requireRow(res, core.ErrWalletNotFound)
}

// ---- transactions ----

const transactionColumns = `id, amount, type, date, description, evidence,
	category_id, wallet_id, source_wallet_id, target_wallet_id, budget_id, user_id, created_at`

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (*core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now().UTC()

	evidence, err := json.Marshal(evidenceOrEmpty(t.Evidence))
	if err != nil {
		return nil, fmt.Errorf("marshal evidence: %w", err)
	}

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Amount.String(), string(t.Type), t.Date.UTC().Format(timeFormat),
		t.Description, string(evidence),
		t.CategoryID, t.WalletID, t.SourceWalletID, t.TargetWalletID, t.BudgetID,
		t.UserID, t.CreatedAt.Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return &t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (*core.Transaction, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (*core.Transaction, error) {
	evidence, err := json.Marshal(evidenceOrEmpty(t.Evidence))
	if err != nil {
		return nil, fmt.Errorf("marshal evidence: %w", err)
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE transactions
		SET description = ?, evidence = ?, category_id = ?, budget_id = ?
		WHERE id = ?`,
		t.Description, string(evidence), t.CategoryID, t.BudgetID, t.ID)
	if err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	if err := requireRow(res, core.ErrTransactionNotFound); err != nil {
		return nil, err
	}
	return r.GetTransaction(ctx, t.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res, core.ErrTransactionNotFound)
}

func (r *SQLiteRepository) FindTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, int, error) {
	where, args := buildTransactionWhere(f)

	var total int
	countQuery := `SELECT COUNT(*) FROM transactions` + where
	if err := r.q.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions` + where + ` ORDER BY date DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
		if f.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", f.Offset)
		}
	} else if f.Offset > 0 {
		query += fmt.Sprintf(" LIMIT -1 OFFSET %d", f.Offset)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("find transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	return out, total, rows.Err()
}

func buildTransactionWhere(f store.TransactionFilter) (string, []any) {
	var conds []string
	var args []any

	if f.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Query != "" {
		conds = append(conds, "description LIKE ? COLLATE NOCASE")
		args = append(args, "%"+f.Query+"%")
	}
	if !f.StartDate.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, f.StartDate.UTC().Format(timeFormat))
	}
	if !f.EndDate.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, f.EndDate.UTC().Format(timeFormat))
	}
	if len(f.CategoryIDs) > 0 {
		conds = append(conds, "category_id IN ("+placeholders(len(f.CategoryIDs))+")")
		for _, id := range f.CategoryIDs {
			args = append(args, id)
		}
	}
	if len(f.WalletIDs) > 0 {
		ph := placeholders(len(f.WalletIDs))
		conds = append(conds,
			"(wallet_id IN ("+ph+") OR source_wallet_id IN ("+ph+") OR target_wallet_id IN ("+ph+"))")
		for i := 0; i < 3; i++ {
			for _, id := range f.WalletIDs {
				args = append(args, id)
			}
		}
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func (r *SQLiteRepository) DetachCategory(ctx context.Context, categoryID string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE transactions SET category_id = '' WHERE category_id = ?`, categoryID)
	if err != nil {
		return fmt.Errorf("detach category: %w", err)
	}
	return nil
}

// ---- categories ----

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (*core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO categories (id, name, description, user_id) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.Description, c.UserID)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	return &c, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (*core.Category, error) {
	var c core.Category
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, description, user_id FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID, query string) ([]core.Category, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, name, description, user_id FROM categories
		WHERE user_id = ? AND name LIKE ? COLLATE NOCASE
		ORDER BY name`,
		userID, "%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.UserID); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) (*core.Category, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE categories SET name = ?, description = ? WHERE id = ?`,
		c.Name, c.Description, c.ID)
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	if err := requireRow(res, core.ErrCategoryNotFound); err != nil {
		return nil, err
	}
	return r.GetCategory(ctx, c.ID)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRow(res, core.ErrCategoryNotFound)
}

// ---- budgets ----

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (*core.Budget, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO budgets (id, name, amount, start_date, end_date, user_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Amount.String(),
		b.StartDate.UTC().Format(timeFormat), b.EndDate.UTC().Format(timeFormat), b.UserID)
	if err != nil {
		return nil, fmt.Errorf("insert budget: %w", err)
	}
	return &b, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id string) (*core.Budget, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, name, amount, start_date, end_date, user_id FROM budgets WHERE id = ?`, id)
	return scanBudget(row)
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID, query string) ([]core.Budget, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, name, amount, start_date, end_date, user_id FROM budgets
		WHERE user_id = ? AND name LIKE ? COLLATE NOCASE
		ORDER BY end_date DESC`,
		userID, "%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) (*core.Budget, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE budgets SET name = ?, amount = ?, start_date = ?, end_date = ? WHERE id = ?`,
		b.Name, b.Amount.String(),
		b.StartDate.UTC().Format(timeFormat), b.EndDate.UTC().Format(timeFormat), b.ID)
	if err != nil {
		return nil, fmt.Errorf("update budget: %w", err)
	}
	if err := requireRow(res, core.ErrBudgetNotFound); err != nil {
		return nil, err
	}
	return r.GetBudget(ctx, b.ID)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireRow(res, core.ErrBudgetNotFound)
}

// ---- users ----

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (*core.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, boolToInt(u.Active), u.CreatedAt.Format(timeFormat))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, core.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (*core.User, error) {
	return r.userBy(ctx, "id", id)
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	return r.userBy(ctx, "email", email)
}

func (r *SQLiteRepository) userBy(ctx context.Context, column, value string) (*core.User, error) {
	var (
		u         core.User
		active    int
		createdAt string
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, active, created_at FROM users WHERE `+column+` = ?`, value).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &active, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Active = active != 0
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// ---- audit events ----

func (r *SQLiteRepository) RecordAuditEvent(ctx context.Context, e core.AuditEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.RecordedAt = time.Now().UTC()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO audit_events (id, transaction_id, action, user_id, occurred_at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.TransactionID, e.Action, e.UserID,
		e.OccurredAt.UTC().Format(timeFormat), e.RecordedAt.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListAuditEvents(ctx context.Context, userID string, limit int) ([]core.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, transaction_id, action, user_id, occurred_at, recorded_at
		FROM audit_events WHERE user_id = ?
		ORDER BY recorded_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []core.AuditEvent
	for rows.Next() {
		var (
			e          core.AuditEvent
			occurredAt string
			recordedAt string
		)
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.Action, &e.UserID, &occurredAt, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if e.OccurredAt, err = parseTime(occurredAt); err != nil {
			return nil, err
		}
		if e.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ---- scan helpers ----

type scanner interface {
	Scan(dest ...any) error
}

func scanWallet(row scanner) (*core.Wallet, error) {
	var (
		w         core.Wallet
		balance   string
		createdAt string
		updatedAt string
	)
	err := row.Scan(&w.ID, &w.Name, &balance, &w.Description, &w.UserID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("parse wallet balance %q: %w", balance, err)
	}
	if w.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if w.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func scanTransaction(row scanner) (*core.Transaction, error) {
	var (
		t         core.Transaction
		amount    string
		typ       string
		date      string
		evidence  string
		createdAt string
	)
	err := row.Scan(&t.ID, &amount, &typ, &date, &t.Description, &evidence,
		&t.CategoryID, &t.WalletID, &t.SourceWalletID, &t.TargetWalletID, &t.BudgetID,
		&t.UserID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse transaction amount %q: %w", amount, err)
	}
	t.Type = core.TxType(typ)
	if t.Date, err = parseTime(date); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(evidence), &t.Evidence); err != nil {
		return nil, fmt.Errorf("unmarshal evidence: %w", err)
	}
	if len(t.Evidence) == 0 {
		t.Evidence = nil
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanBudget(row scanner) (*core.Budget, error) {
	var (
		b         core.Budget
		amount    string
		startDate string
		endDate   string
	)
	err := row.Scan(&b.ID, &b.Name, &amount, &startDate, &endDate, &b.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrBudgetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan budget: %w", err)
	}
	if b.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse budget amount %q: %w", amount, err)
	}
	if b.StartDate, err = parseTime(startDate); err != nil {
		return nil, err
	}
	if b.EndDate, err = parseTime(endDate); err != nil {
		return nil, err
	}
	return &b, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func evidenceOrEmpty(e []string) []string {
	if e == nil {
		return []string{}
	}
	return e
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
