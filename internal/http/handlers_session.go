package http

import (
	"log/slog"
	"net/http"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	HolderID      string `json:"holder_id,omitempty"`
	HolderName    string `json:"holder_name,omitempty"`
}

// handleLogin exchanges customer credentials with the upstream and opens the
// portal session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "email and password are required")
		return
	}

	creds, err := s.bank.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}

	if err := s.sessions.Login(r.Context(), creds.Token, creds.HolderID); err != nil {
		slog.ErrorContext(r.Context(), "Failed to open session", "error", err)
		writeError(w, http.StatusInternalServerError, "could not open session")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		HolderID:      creds.HolderID,
		HolderName:    creds.HolderName,
	})
}

func (s *Server) handleSessionInfo(w http.ResponseWriter, r *http.Request) {
	current, ok := s.sessions.Current()
	if !ok {
		writeJSON(w, http.StatusOK, sessionResponse{Authenticated: false})
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		HolderID:      current.HolderID,
	})
}

// handleLogout ends the session. Logging out twice is fine.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
