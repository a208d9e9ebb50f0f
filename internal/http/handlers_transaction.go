package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type transactionRequest struct {
	Amount         json.RawMessage `json:"amount"`
	Type           core.TxType     `json:"type"`
	Date           string          `json:"date"`
	Description    string          `json:"description"`
	Evidence       []string        `json:"evidence"`
	CategoryID     string          `json:"categoryId"`
	WalletID       string          `json:"walletId"`
	SourceWalletID string          `json:"sourceWalletId"`
	TargetWalletID string          `json:"targetWalletId"`
	BudgetID       string          `json:"budgetId"`
}

type transactionUpdateRequest struct {
	Description string   `json:"description"`
	Evidence    []string `json:"evidence"`
	CategoryID  string   `json:"categoryId"`
	BudgetID    string   `json:"budgetId"`
}

type transactionPage struct {
	Items []transactionJSON `json:"items"`
	Total int               `json:"total"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := transactionFilterFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items, total, err := s.store.FindTransactions(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionPage{Items: toTransactionListJSON(items), Total: total})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	date := time.Now()
	if req.Date != "" {
		parsed, err := parseDate(req.Date)
		if err != nil {
			writeError(w, r, err)
			return
		}
		date = parsed
	}

	created, err := s.ledger.CreateTransaction(r.Context(), core.TransactionInput{
		Amount:         amount,
		Type:           req.Type,
		Date:           date,
		Description:    sanitizeInput(req.Description),
		Evidence:       req.Evidence,
		CategoryID:     req.CategoryID,
		WalletID:       req.WalletID,
		SourceWalletID: req.SourceWalletID,
		TargetWalletID: req.TargetWalletID,
		BudgetID:       req.BudgetID,
		UserID:         userIDFrom(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateStatistics(created.UserID)
	s.publishEvent(r.Context(), created.ID, core.AuditCreated, created.UserID)
	writeJSON(w, http.StatusCreated, toTransactionJSON(*created))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.GetTransaction(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if t.UserID != userIDFrom(r) {
		writeError(w, r, core.ErrOwnershipMismatch)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionJSON(*t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionUpdateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.ledger.UpdateTransaction(r.Context(), r.PathValue("id"), userIDFrom(r), core.TransactionUpdate{
		Description: sanitizeInput(req.Description),
		Evidence:    req.Evidence,
		CategoryID:  req.CategoryID,
		BudgetID:    req.BudgetID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateStatistics(updated.UserID)
	writeJSON(w, http.StatusOK, toTransactionJSON(*updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.ledger.DeleteTransaction(r.Context(), r.PathValue("id"), userIDFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateStatistics(deleted.UserID)
	s.publishEvent(r.Context(), deleted.ID, core.AuditDeleted, deleted.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// transactionFilterFrom builds the store filter from the query string:
// query, startDate, endDate, categories, wallets, limit, skip.
func transactionFilterFrom(r *http.Request) (store.TransactionFilter, error) {
	q := r.URL.Query()
	filter := store.TransactionFilter{
		UserID: userIDFrom(r),
		Query:  sanitizeInput(q.Get("query")),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "skip", 0),
	}

	if v := q.Get("startDate"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return store.TransactionFilter{}, err
		}
		filter.StartDate = t
	}
	if v := q.Get("endDate"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return store.TransactionFilter{}, err
		}
		// A bare date as upper bound includes the whole day.
		if len(v) == len("2006-01-02") {
			t = t.AddDate(0, 0, 1).Add(-time.Second)
		}
		filter.EndDate = t
	}
	if v := q.Get("categories"); v != "" {
		filter.CategoryIDs = splitIDs(v)
	}
	if v := q.Get("wallets"); v != "" {
		filter.WalletIDs = splitIDs(v)
	}
	return filter, nil
}

func splitIDs(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
