package http

import (
	"net/http"
	"strings"

	"fintrack/internal/auth"
	"fintrack/internal/core"
)

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string   `json:"token"`
	User  userJSON `json:"user"`
}

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	req.Email = strings.ToLower(sanitizeInput(req.Email))
	req.Name = sanitizeInput(req.Name)

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, r, badRequest("a valid email is required"))
		return
	}
	if len(req.Password) < 8 {
		writeError(w, r, badRequest("password must be at least 8 characters"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.store.CreateUser(r.Context(), core.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Active:       true,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := s.auth.IssueToken(user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, tokenResponse{Token: token, User: toUserJSON(*user)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), strings.ToLower(sanitizeInput(req.Email)))
	if err != nil {
		// Same response for unknown email and wrong password.
		writeError(w, r, core.ErrInvalidCredentials)
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, r, err)
		return
	}

	token, err := s.auth.IssueToken(user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token, User: toUserJSON(*user)})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUser(r.Context(), userIDFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserJSON(*user))
}
