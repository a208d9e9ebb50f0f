package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context(), userIDFrom(r), sanitizeInput(r.URL.Query().Get("query")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]categoryJSON, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryJSON(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	category := core.Category{
		Name:        sanitizeInput(req.Name),
		Description: sanitizeInput(req.Description),
		UserID:      userIDFrom(r),
	}
	if err := category.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.store.CreateCategory(r.Context(), category)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryJSON(*created))
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := s.ownedCategory(r, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryJSON(*category))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	category, err := s.ownedCategory(r, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req categoryRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	category.Name = sanitizeInput(req.Name)
	category.Description = sanitizeInput(req.Description)
	if err := category.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.store.UpdateCategory(r.Context(), *category)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryJSON(*updated))
}

// handleDeleteCategory removes the category and clears the reference on
// every transaction that pointed at it, in one store transaction.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	category, err := s.ownedCategory(r, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = s.store.WithTx(r.Context(), func(st store.Store) error {
		if err := st.DetachCategory(r.Context(), category.ID); err != nil {
			return err
		}
		return st.DeleteCategory(r.Context(), category.ID)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateStatistics(userIDFrom(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ownedCategory(r *http.Request, id string) (*core.Category, error) {
	category, err := s.store.GetCategory(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if category.UserID != userIDFrom(r) {
		return nil, core.ErrOwnershipMismatch
	}
	return category, nil
}
