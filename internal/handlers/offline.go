// internal/handlers/offline.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/spyparty/internal/models"
	"github.com/jason-s-yu/spyparty/internal/offline"
)

type offlineStartRequest struct {
	baseRequest
	GameMode     string   `json:"game_mode"`
	PlayerCount  int      `json:"player_count"`
	AllowedModes []string `json:"random_allowed_modes"`
	TimerEnabled bool     `json:"timer_enabled"`
	TurnSeconds  *int     `json:"turn_time_seconds"`
}

type offlineSessionRequest struct {
	baseRequest
	SessionID string `json:"session_id"`
}

type revealResponse struct {
	PlayerNumber int     `json:"player_number"`
	Role         string  `json:"role"`
	Card         *string `json:"card"`
	ImageURL     *string `json:"image_url"`
	ElixirCost   *int    `json:"elixir_cost"`
}

// OfflineStartHandler deals a new pass-and-play session.
func (s *Server) OfflineStartHandler() http.HandlerFunc {
	return endpoint(s, func(u models.User, req offlineStartRequest) (any, error) {
		return s.Offline.Start(u.ID, offline.StartParams{
			Mode:         req.GameMode,
			PlayerCount:  req.PlayerCount,
			Allowed:      req.AllowedModes,
			TimerEnabled: req.TimerEnabled,
			TurnSeconds:  req.TurnSeconds,
		})
	})
}

// OfflineRevealHandler shows the current seat its role.
func (s *Server) OfflineRevealHandler() http.HandlerFunc {
	return endpoint(s, func(u models.User, req offlineSessionRequest) (any, error) {
		rv, err := s.Offline.Reveal(req.SessionID, u.ID)
		if err != nil {
			return nil, err
		}
		resp := revealResponse{PlayerNumber: rv.Seat, Role: "spy"}
		if !rv.Spy {
			card := rv.Card
			resp.Role = "card"
			resp.Card = &card
			resp.ImageURL, resp.ElixirCost = s.cardMeta(card)
		}
		return resp, nil
	})
}

// OfflineCloseHandler hides the role and passes the device on.
func (s *Server) OfflineCloseHandler() http.HandlerFunc {
	return endpoint(s, func(u models.User, req offlineSessionRequest) (any, error) {
		return s.Offline.Close(req.SessionID, u.ID)
	})
}

// OfflineRestartHandler deals a new round for the same table.
func (s *Server) OfflineRestartHandler() http.HandlerFunc {
	return endpoint(s, func(u models.User, req offlineSessionRequest) (any, error) {
		return s.Offline.Restart(req.SessionID, u.ID)
	})
}

func (s *Server) OfflineTurnStatusHandler() http.HandlerFunc {
	return endpoint(s, func(u models.User, req offlineSessionRequest) (any, error) {
		return s.Offline.TurnStatus(req.SessionID, u.ID)
	})
}

func (s *Server) OfflineTurnStartHandler() http.HandlerFunc {
	return endpoint(s, func(u models.User, req offlineSessionRequest) (any, error) {
		return s.Offline.TurnStart(req.SessionID, u.ID)
	})
}

func (s *Server) OfflineTurnFinishHandler() http.HandlerFunc {
	return endpoint(s, func(u models.User, req offlineSessionRequest) (any, error) {
		return s.Offline.TurnFinish(req.SessionID, u.ID)
	})
}
