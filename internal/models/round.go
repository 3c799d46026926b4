package models

import "time"

// RoundKind tells which store dealt a round.
type RoundKind string

const (
	RoundOffline RoundKind = "offline"
	RoundRoom    RoundKind = "room"
)

// RoundRecord summarizes one dealt round for the history queue. It never
// carries the dealt cards or who the spies are.
type RoundRecord struct {
	Kind        RoundKind `json:"kind"`
	Session     string    `json:"session"`
	Mode        string    `json:"mode"`
	Scenario    string    `json:"scenario,omitempty"`
	PlayerCount int       `json:"player_count"`
	SpyCount    int       `json:"spy_count"`
	Restart     bool      `json:"restart"`
	DealtAt     time.Time `json:"dealt_at"`
}
