package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"pfms/internal/auth"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errMissingFields)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, errMissingFields)
		return
	}

	token, err := s.authSvc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	sess, err := s.authSvc.Validate(r.Context(), token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeOK(w, map[string]any{
		"userId":    sess.UserID,
		"token":     token,
		"expiresAt": sess.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.authSvc.Logout(r.Context(), bearerToken(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, nil)
}

// requireAuth gates a handler behind a valid bearer session.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.authSvc.Validate(r.Context(), bearerToken(r)); err != nil {
			if errors.Is(err, auth.ErrInvalidSession) {
				writeError(w, http.StatusUnauthorized, errInvalidSession)
				return
			}
			writeServiceError(w, r, err)
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
