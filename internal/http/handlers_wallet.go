package http

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type walletRequest struct {
	Name        string          `json:"name"`
	Balance     decimal.Decimal `json:"balance"`
	Description string          `json:"description"`
}

type transferRequest struct {
	SourceWalletID string          `json:"sourceWalletId"`
	TargetWalletID string          `json:"targetWalletId"`
	Amount         json.RawMessage `json:"amount"`
}

type transferResponse struct {
	Source walletJSON `json:"source"`
	Target walletJSON `json:"target"`
}

type totalBalanceResponse struct {
	Total decimal.Decimal `json:"total"`
}

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := s.store.ListWallets(r.Context(), userIDFrom(r), sanitizeInput(r.URL.Query().Get("query")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletListJSON(wallets))
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	wallet := core.Wallet{
		Name:        sanitizeInput(req.Name),
		Balance:     req.Balance,
		Description: sanitizeInput(req.Description),
		UserID:      userIDFrom(r),
	}
	if err := wallet.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.store.CreateWallet(r.Context(), wallet)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWalletJSON(*created))
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.ownedWallet(r, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletJSON(*wallet))
}

// handleUpdateWallet changes name and description. Balance moves only
// through the ledger, so a differing balance in the payload is ignored.
func (s *Server) handleUpdateWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.ownedWallet(r, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req walletRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	wallet.Name = sanitizeInput(req.Name)
	wallet.Description = sanitizeInput(req.Description)
	if err := wallet.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.store.UpdateWallet(r.Context(), *wallet)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletJSON(*updated))
}

func (s *Server) handleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.ownedWallet(r, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.store.DeleteWallet(r.Context(), wallet.ID); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateStatistics(userIDFrom(r))
	w.WriteHeader(http.StatusNoContent)
}

// handleTotalBalance sums the balances of all the user's wallets.
func (s *Server) handleTotalBalance(w http.ResponseWriter, r *http.Request) {
	wallets, err := s.store.ListWallets(r.Context(), userIDFrom(r), "")
	if err != nil {
		writeError(w, r, err)
		return
	}

	total := decimal.Zero
	for _, wallet := range wallets {
		total = total.Add(wallet.Balance)
	}
	writeJSON(w, http.StatusOK, totalBalanceResponse{Total: total})
}

func (s *Server) handleTransferBalance(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	source, target, err := s.ledger.TransferBalance(r.Context(), req.SourceWalletID, req.TargetWalletID, amount, userIDFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateStatistics(userIDFrom(r))
	writeJSON(w, http.StatusOK, transferResponse{
		Source: toWalletJSON(*source),
		Target: toWalletJSON(*target),
	})
}

func (s *Server) ownedWallet(r *http.Request, id string) (*core.Wallet, error) {
	wallet, err := s.store.GetWallet(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if wallet.UserID != userIDFrom(r) {
		return nil, core.ErrOwnershipMismatch
	}
	return wallet, nil
}
