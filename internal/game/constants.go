package game

import "time"

const (
	MinPlayers = 3
	MaxPlayers = 12

	// AppTTL bounds the lifetime of offline sessions and of rooms still in the lobby.
	AppTTL = 60 * time.Minute

	// HeartbeatStale is how long a participant may stay silent in a running game.
	HeartbeatStale = 20 * time.Second

	MinTurnSeconds     = 5
	MaxTurnSeconds     = 30
	DefaultTurnSeconds = 8
)

// Phase is the turn substate shared by offline sessions and rooms.
type Phase string

const (
	PhaseRevealing Phase = "revealing"
	PhaseWaiting   Phase = "waiting"
	PhaseReady     Phase = "ready_to_start"
	PhaseActive    Phase = "turn_loop_active"
	PhaseFinished  Phase = "finished"
)
