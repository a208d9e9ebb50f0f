package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type budgetRequest struct {
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	StartDate string          `json:"startDate"`
	EndDate   string          `json:"endDate"`
}

// handleListBudgets lists the user's budgets. With ?active=true only
// budgets whose window covers the current instant are returned.
func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.store.ListBudgets(r.Context(), userIDFrom(r), sanitizeInput(r.URL.Query().Get("query")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	activeOnly := r.URL.Query().Get("active") == "true"
	now := time.Now()

	out := make([]budgetJSON, 0, len(budgets))
	for _, b := range budgets {
		if activeOnly && !b.ActiveAt(now) {
			continue
		}
		out = append(out, toBudgetJSON(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	budget, err := s.budgetFromRequest(r, core.Budget{UserID: userIDFrom(r)})
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.store.CreateBudget(r.Context(), *budget)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetJSON(*created))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	budget, err := s.ownedBudget(r, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetJSON(*budget))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	existing, err := s.ownedBudget(r, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	budget, err := s.budgetFromRequest(r, *existing)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.store.UpdateBudget(r.Context(), *budget)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetJSON(*updated))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	budget, err := s.ownedBudget(r, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.store.DeleteBudget(r.Context(), budget.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) budgetFromRequest(r *http.Request, base core.Budget) (*core.Budget, error) {
	var req budgetRequest
	if err := readJSON(r, &req); err != nil {
		return nil, err
	}

	base.Name = sanitizeInput(req.Name)
	base.Amount = req.Amount

	if req.StartDate != "" {
		t, err := parseDate(req.StartDate)
		if err != nil {
			return nil, err
		}
		base.StartDate = t
	}
	if req.EndDate != "" {
		t, err := parseDate(req.EndDate)
		if err != nil {
			return nil, err
		}
		base.EndDate = t
	}

	if err := base.Validate(); err != nil {
		return nil, err
	}
	return &base, nil
}

func (s *Server) ownedBudget(r *http.Request, id string) (*core.Budget, error) {
	budget, err := s.store.GetBudget(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if budget.UserID != userIDFrom(r) {
		return nil, core.ErrOwnershipMismatch
	}
	return budget, nil
}
