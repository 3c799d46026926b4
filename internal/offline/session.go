// internal/offline/session.go
package offline

import (
	"time"

	"github.com/jason-s-yu/spyparty/internal/game"
)

// Session is a single-device game: seats 1..PlayerCount reveal their role in
// turn on the owner's device, then an optional timed turn loop runs.
type Session struct {
	ID          string
	OwnerID     string
	Mode        game.Mode
	Allowed     []game.Scenario
	PlayerCount int
	CurrentSeat int
	Timer       game.Timer
	TurnOrder   []int
	TurnIndex   int
	TurnActive  bool
	// TurnStartedAt is zero while no turn is running.
	TurnStartedAt  time.Time
	TurnsCompleted bool
	Roles          game.RoleAssignment
	StarterSeat    int
	Phase          game.Phase
	CreatedAt      time.Time
}

// Summary is returned by Start and Restart.
type Summary struct {
	SessionID   string `json:"session_id"`
	CurrentSeat int    `json:"current_player_number"`
	PlayerCount int    `json:"player_count"`
	TimerOn     bool   `json:"timer_enabled"`
	TurnSeconds *int   `json:"turn_time_seconds"`
}

// Reveal is the role shown to the seat currently holding the device.
type Reveal struct {
	Seat int
	Spy  bool
	Card string
}

// CloseResult reports either the next seat or, after the last one, the starter.
type CloseResult struct {
	Finished    bool `json:"finished"`
	NextSeat    int  `json:"current_player_number,omitempty"`
	StarterSeat int  `json:"starter_player_number,omitempty"`
}

// TurnStatus is the timer view of a session.
type TurnStatus struct {
	TimerOn        bool       `json:"timer_enabled"`
	TurnSeconds    *int       `json:"turn_time_seconds"`
	TurnActive     bool       `json:"turn_active"`
	Phase          game.Phase `json:"turn_state"`
	TurnIndex      int        `json:"current_turn_index"`
	CurrentSeat    int        `json:"current_player_number"`
	TurnStartedAt  *float64   `json:"turn_started_at"`
	TurnsCompleted bool       `json:"turns_completed"`
}

func (s *Session) summary() Summary {
	return Summary{
		SessionID:   s.ID,
		CurrentSeat: s.CurrentSeat,
		PlayerCount: s.PlayerCount,
		TimerOn:     s.Timer.Enabled,
		TurnSeconds: s.Timer.SecondsPtr(),
	}
}

func (s *Session) seats() []game.PlayerID {
	out := make([]game.PlayerID, s.PlayerCount)
	for i := range out {
		out[i] = game.Seat(i + 1)
	}
	return out
}

// currentTurnSeat returns the seat whose turn it is, falling back to the reveal seat.
func (s *Session) currentTurnSeat() int {
	if len(s.TurnOrder) == 0 {
		return max(1, s.CurrentSeat)
	}
	return s.TurnOrder[s.TurnIndex]
}

func unixSeconds(t time.Time) *float64 {
	if t.IsZero() {
		return nil
	}
	v := float64(t.UnixNano()) / float64(time.Second)
	return &v
}
