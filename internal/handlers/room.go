// internal/handlers/room.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/spyparty/internal/game"
	"github.com/jason-s-yu/spyparty/internal/lobby"
	"github.com/jason-s-yu/spyparty/internal/models"
)

type roomCreateRequest struct {
	baseRequest
	FormatMode   string   `json:"format_mode"`
	GameMode     string   `json:"game_mode"`
	AllowedModes []string `json:"random_allowed_modes"`
	PlayerLimit  *int     `json:"player_limit"`
	TimerEnabled bool     `json:"timer_enabled"`
	TurnSeconds  *int     `json:"turn_time_seconds"`
}

type roomJoinRequest struct {
	baseRequest
	RoomCode   string `json:"room_code"`
	FormatMode string `json:"format_mode"`
	GameMode   string `json:"game_mode"`
}

type roomRequest struct {
	baseRequest
	RoomCode string `json:"room_code"`
}

type roomBotsAddRequest struct {
	roomRequest
	Count int `json:"count"`
}

type roleResponse struct {
	Role       string  `json:"role"`
	Card       *string `json:"card"`
	ImageURL   *string `json:"image_url"`
	ElixirCost *int    `json:"elixir_cost"`
}

// RoomCreateHandler opens a room owned by the caller.
func (s *Server) RoomCreateHandler() http.HandlerFunc {
	return endpoint(s, func(u models.User, req roomCreateRequest) (any, error) {
		limit := game.MaxPlayers
		if req.PlayerLimit != nil {
			limit = *req.PlayerLimit
		}
		return s.Rooms.Create(u, lobby.CreateParams{
			Format:       req.FormatMode,
			Mode:         req.GameMode,
			Allowed:      req.AllowedModes,
			Capacity:     limit,
			TimerEnabled: req.TimerEnabled,
			TurnSeconds:  req.TurnSeconds,
		})
	})
}

func (s *Server) RoomJoinHandler() http.HandlerFunc {
	return endpoint(s, func(u models.User, req roomJoinRequest) (any, error) {
		return s.Rooms.Join(req.RoomCode, u, lobby.JoinParams{Format: req.FormatMode, Mode: req.GameMode})
	})
}

func (s *Server) RoomStatusHandler() http.HandlerFunc {
	return endpoint(s, func(u models.User, req roomRequest) (any, error) {
		return s.Rooms.Status(req.RoomCode, u)
	})
}

func (s *Server) RoomHeartbeatHandler() http.HandlerFunc {
	return endpoint(s, func(u models.User, req roomRequest) (any, error) {
		return s.Rooms.Heartbeat(req.RoomCode, u)
	})
}

func (s *Server) RoomStartHandler() http.HandlerFunc {
	return endpoint(s, func(u models.User, req roomRequest) (any, error) {
		return s.Rooms.Start(req.RoomCode, u)
	})
}

// RoomRoleHandler returns the caller's hidden role with its card metadata.
func (s *Server) RoomRoleHandler() http.HandlerFunc {
	return endpoint(s, func(u models.User, req roomRequest) (any, error) {
		role, err := s.Rooms.Role(req.RoomCode, u)
		if err != nil {
			return nil, err
		}
		resp := roleResponse{Role: "spy"}
		if !role.Spy {
			card := role.Card
			resp.Role = "card"
			resp.Card = &card
			resp.ImageURL, resp.ElixirCost = s.cardMeta(card)
		}
		return resp, nil
	})
}

func (s *Server) RoomRestartHandler() http.HandlerFunc {
	return endpoint(s, func(u models.User, req roomRequest) (any, error) {
		return s.Rooms.Restart(req.RoomCode, u)
	})
}

func (s *Server) RoomResumeHandler() http.HandlerFunc {
	return endpoint(s, func(u models.User, req roomRequest) (any, error) {
		return s.Rooms.Resume(req.RoomCode, u)
	})
}

func (s *Server) RoomLeaveHandler() http.HandlerFunc {
	return endpoint(s, func(u models.User, req roomRequest) (any, error) {
		return s.Rooms.Leave(req.RoomCode, u)
	})
}

func (s *Server) RoomTurnStartHandler() http.HandlerFunc {
	return endpoint(s, func(u models.User, req roomRequest) (any, error) {
		return s.Rooms.TurnStart(req.RoomCode, u)
	})
}

func (s *Server) RoomTurnFinishHandler() http.HandlerFunc {
	return endpoint(s, func(u models.User, req roomRequest) (any, error) {
		return s.Rooms.TurnFinish(req.RoomCode, u)
	})
}

func (s *Server) RoomBotsAddHandler() http.HandlerFunc {
	return endpoint(s, func(u models.User, req roomBotsAddRequest) (any, error) {
		v, _, err := s.Rooms.AddBots(req.RoomCode, u, req.Count)
		return v, err
	})
}

func (s *Server) RoomBotsFillHandler() http.HandlerFunc {
	return endpoint(s, func(u models.User, req roomRequest) (any, error) {
		v, _, err := s.Rooms.FillBots(req.RoomCode, u)
		return v, err
	})
}

func (s *Server) RoomBotsClearHandler() http.HandlerFunc {
	return endpoint(s, func(u models.User, req roomRequest) (any, error) {
		v, _, err := s.Rooms.ClearBots(req.RoomCode, u)
		return v, err
	})
}
