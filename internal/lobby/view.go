package lobby

import (
	"time"

	"github.com/jason-s-yu/spyparty/internal/game"
	"github.com/jason-s-yu/spyparty/internal/models"
)

// PlayerView is one roster entry as shown to clients.
type PlayerView struct {
	UserID      string `json:"user_id"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	DisplayName string `json:"display_name"`
	IsBot       bool   `json:"isBot"`
}

// View is a room projected for one caller. It shares no memory with the room.
type View struct {
	RoomCode    string       `json:"room_code"`
	OwnerUserID string       `json:"owner_user_id"`
	OwnerName   string       `json:"owner_name"`
	HostName    string       `json:"host_name"`
	FormatMode  string       `json:"format_mode"`
	PlayMode    game.Mode    `json:"play_mode"`
	Players     []PlayerView `json:"players"`
	PlayerCount int          `json:"player_count"`
	PlayerLimit int          `json:"player_limit"`
	State       State        `json:"state"`
	CanStart    bool         `json:"can_start"`
	YouAreOwner bool         `json:"you_are_owner"`
	StarterName *string      `json:"starter_name"`

	TimerEnabled     bool       `json:"timer_enabled"`
	TurnTimeSeconds  *int       `json:"turn_time_seconds"`
	TurnActive       bool       `json:"turn_active"`
	TurnState        game.Phase `json:"turn_state"`
	CurrentTurnIndex int        `json:"current_turn_index"`
	CurrentTurnName  *string    `json:"current_turn_name"`
	TurnStartedAt    *float64   `json:"turn_started_at"`
	TurnsCompleted   bool       `json:"turns_completed"`

	StatusMessage *string `json:"status_message"`
	CanManageBots bool    `json:"can_manage_bots"`
}

// view advances the turn clock and projects the room for caller. The room
// lock must be held.
func (s *Store) view(room *Room, caller models.User) View {
	s.advance(room)
	room.TurnsCompleted = room.TurnPhase == game.PhaseFinished

	id := game.User(caller.ID)
	isOwner := room.OwnerID == id

	v := View{
		RoomCode:         room.Code,
		OwnerUserID:      room.OwnerID.String(),
		OwnerName:        room.OwnerName,
		HostName:         room.OwnerName,
		FormatMode:       room.Format,
		PlayMode:         room.Mode,
		Players:          make([]PlayerView, 0, room.size()),
		PlayerCount:      room.size(),
		PlayerLimit:      room.Capacity,
		State:            room.State,
		CanStart:         isOwner && room.State == StateWaiting && room.size() >= game.MinPlayers,
		YouAreOwner:      isOwner,
		TimerEnabled:     room.Timer.Enabled,
		TurnTimeSeconds:  room.Timer.SecondsPtr(),
		TurnActive:       room.TurnActive,
		TurnState:        room.TurnPhase,
		TurnStartedAt:    unixSeconds(room.TurnStartedAt),
		TurnsCompleted:   room.TurnsCompleted,
		StatusMessage:    optional(room.StatusMessage),
		CanManageBots:    s.opts.DevTools && room.State == StateWaiting && isOwner && s.isAdmin(caller),
	}
	for _, pid := range room.roster {
		p := room.participants[pid]
		v.Players = append(v.Players, PlayerView{
			UserID:      pid.String(),
			FirstName:   p.FirstName,
			LastName:    p.LastName,
			DisplayName: p.DisplayName,
			IsBot:       pid.IsBot(),
		})
	}

	if room.inGame() && !room.StarterID.IsZero() && room.has(room.StarterID) {
		v.StarterName = optionalAlways(room.nameOf(room.StarterID))
	}
	if room.inGame() && room.Timer.Enabled && (room.TurnPhase == game.PhaseReady || room.TurnPhase == game.PhaseActive) {
		s.repairOrder(room)
		if cur, ok := room.currentTurnID(); ok && room.has(cur) {
			v.CurrentTurnName = optionalAlways(room.nameOf(cur))
		}
	}
	v.CurrentTurnIndex = room.TurnIndex
	return v
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalAlways(s string) *string { return &s }

func unixSeconds(t time.Time) *float64 {
	if t.IsZero() {
		return nil
	}
	v := float64(t.UnixNano()) / float64(time.Second)
	return &v
}
