// internal/handlers/server.go
package handlers

import (
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/spyparty/internal/auth"
	"github.com/jason-s-yu/spyparty/internal/catalog"
	"github.com/jason-s-yu/spyparty/internal/lobby"
	"github.com/jason-s-yu/spyparty/internal/offline"
)

// Server holds the stores and collaborators every handler needs.
type Server struct {
	Offline *offline.Store
	Rooms   *lobby.Store
	Hub     *lobby.Hub
	Catalog *catalog.Catalog
	Auth    auth.Chain
	// Tokens issues bearer tokens from /api/auth; nil disables issuing.
	Tokens *auth.TokenIssuer
	Clock  clockwork.Clock
	Log    logrus.FieldLogger

	// PushInterval is how often an idle room socket is sent a fresh view.
	PushInterval time.Duration
	// Origins are the websocket origin patterns accepted.
	Origins []string
}

// Routes registers every endpoint on a new mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.HealthHandler())
	mux.HandleFunc("POST /api/auth", s.AuthHandler())

	mux.HandleFunc("POST /api/offline/start", s.OfflineStartHandler())
	mux.HandleFunc("POST /api/offline/reveal", s.OfflineRevealHandler())
	mux.HandleFunc("POST /api/offline/close", s.OfflineCloseHandler())
	mux.HandleFunc("POST /api/offline/restart", s.OfflineRestartHandler())
	mux.HandleFunc("POST /api/offline/turn/status", s.OfflineTurnStatusHandler())
	mux.HandleFunc("POST /api/offline/turn/start", s.OfflineTurnStartHandler())
	mux.HandleFunc("POST /api/offline/turn/finish", s.OfflineTurnFinishHandler())

	mux.HandleFunc("POST /api/room/create", s.RoomCreateHandler())
	mux.HandleFunc("POST /api/room/join", s.RoomJoinHandler())
	mux.HandleFunc("POST /api/room/status", s.RoomStatusHandler())
	mux.HandleFunc("POST /api/room/heartbeat", s.RoomHeartbeatHandler())
	mux.HandleFunc("POST /api/room/start", s.RoomStartHandler())
	mux.HandleFunc("POST /api/room/role", s.RoomRoleHandler())
	mux.HandleFunc("POST /api/room/restart", s.RoomRestartHandler())
	mux.HandleFunc("POST /api/room/resume", s.RoomResumeHandler())
	mux.HandleFunc("POST /api/room/leave", s.RoomLeaveHandler())
	mux.HandleFunc("POST /api/room/turn/start", s.RoomTurnStartHandler())
	mux.HandleFunc("POST /api/room/turn/finish", s.RoomTurnFinishHandler())
	mux.HandleFunc("POST /api/room/bots/add", s.RoomBotsAddHandler())
	mux.HandleFunc("POST /api/room/bots/fill", s.RoomBotsFillHandler())
	mux.HandleFunc("POST /api/room/bots/clear", s.RoomBotsClearHandler())

	mux.HandleFunc("GET /api/room/ws", s.RoomWSHandler())
	return mux
}

type healthResponse struct {
	Status          string `json:"status"`
	Rooms           int    `json:"rooms"`
	OfflineSessions int    `json:"offline_sessions"`
}

// HealthHandler reports liveness and how many rooms and offline sessions are live.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			Status:          "ok",
			Rooms:           s.Rooms.Len(),
			OfflineSessions: s.Offline.Len(),
		})
	}
}
