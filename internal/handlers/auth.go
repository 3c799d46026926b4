package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jason-s-yu/spyparty/internal/game"
)

type authResponse struct {
	UserID   json.Number `json:"user_id"`
	Username *string     `json:"username"`
	FullName string      `json:"full_name"`
	Token    string      `json:"token,omitempty"`
}

// AuthHandler verifies the caller and, when tokens are enabled, hands out a
// bearer token that is also set as the auth_token cookie.
func (s *Server) AuthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req baseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.writeError(w, r, game.Validation("invalid request body"))
			return
		}
		u, err := s.Auth.Authenticate(credentials(r, req.InitData))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		name := u.DisplayName()
		if name == "" {
			s.writeError(w, r, game.Validation("could not read your name"))
			return
		}

		resp := authResponse{UserID: json.Number(u.ID), FullName: name}
		if u.Username != "" {
			resp.Username = &u.Username
		}
		if s.Tokens != nil {
			token, err := s.Tokens.Issue(u)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			resp.Token = token
			http.SetCookie(w, &http.Cookie{
				Name:     tokenCookie,
				Value:    token,
				HttpOnly: true,
				Path:     "/",
				SameSite: http.SameSiteLaxMode,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
