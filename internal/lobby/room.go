// internal/lobby/room.go
package lobby

import (
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/spyparty/internal/game"
)

// State is the lifecycle of a room.
type State string

const (
	StateWaiting State = "waiting"
	StateStarted State = "started"
	StatePaused  State = "paused"
)

// FormatOnline is the only format a room can have.
const FormatOnline = "online"

// Participant is one roster entry.
type Participant struct {
	ID          game.PlayerID
	FirstName   string
	LastName    string
	DisplayName string
}

// Room is a networked game. All fields are guarded by mu; a closed room has
// been removed from its store and must not be touched again.
type Room struct {
	mu     sync.Mutex
	closed bool
	log    logrus.FieldLogger

	Code      string
	OwnerID   game.PlayerID
	OwnerName string
	Format    string
	Mode      game.Mode
	Allowed   []game.Scenario
	Capacity  int
	Timer     game.Timer

	// roster keeps join order; participants and lastSeen are keyed by the same IDs.
	roster       []game.PlayerID
	participants map[game.PlayerID]*Participant
	lastSeen     map[game.PlayerID]time.Time

	TurnOrder      []game.PlayerID
	TurnIndex      int
	TurnActive     bool
	TurnPhase      game.Phase
	TurnStartedAt  time.Time
	TurnsCompleted bool

	Roles     game.RoleAssignment
	State     State
	StarterID game.PlayerID

	StatusMessage string
	StatusAt      time.Time
	CreatedAt     time.Time
}

func newRoom(code string, createdAt time.Time) *Room {
	return &Room{
		Code:         code,
		log:          logrus.StandardLogger().WithField("room", code),
		Format:       FormatOnline,
		participants: make(map[game.PlayerID]*Participant),
		lastSeen:     make(map[game.PlayerID]time.Time),
		TurnPhase:    game.PhaseWaiting,
		State:        StateWaiting,
		CreatedAt:    createdAt,
	}
}

func (r *Room) has(id game.PlayerID) bool {
	_, ok := r.participants[id]
	return ok
}

func (r *Room) add(p *Participant) {
	if !r.has(p.ID) {
		r.roster = append(r.roster, p.ID)
	}
	r.participants[p.ID] = p
}

func (r *Room) size() int { return len(r.roster) }

// realIDs returns the non-bot participants in join order.
func (r *Room) realIDs() []game.PlayerID {
	var out []game.PlayerID
	for _, id := range r.roster {
		if id.IsUser() {
			out = append(out, id)
		}
	}
	return out
}

func (r *Room) nameOf(id game.PlayerID) string {
	if p, ok := r.participants[id]; ok {
		return p.DisplayName
	}
	return ""
}

func (r *Room) touch(id game.PlayerID, now time.Time) {
	if r.has(id) {
		r.lastSeen[id] = now
	}
}

func (r *Room) setStatus(msg string, now time.Time) {
	r.StatusMessage = msg
	r.StatusAt = now
}

// removeParticipant drops id from every structure of the room, keeps the turn
// index pointing at a sensible player, hands ownership to the next real
// participant and pauses a running game. It reports whether id was present.
func (r *Room) removeParticipant(id game.PlayerID, reason string, now time.Time) bool {
	p, ok := r.participants[id]
	if !ok {
		return false
	}
	name := p.DisplayName
	if name == "" {
		name = "Player " + id.String()
	}

	removedIdx := slices.Index(r.TurnOrder, id)
	if removedIdx >= 0 {
		r.TurnOrder = slices.Delete(r.TurnOrder, removedIdx, removedIdx+1)
	}
	r.roster = slices.DeleteFunc(r.roster, func(x game.PlayerID) bool { return x == id })
	delete(r.participants, id)
	delete(r.lastSeen, id)
	r.Roles.Remove(id)

	if r.StarterID == id {
		r.StarterID = game.PlayerID{}
		if len(r.TurnOrder) > 0 {
			r.StarterID = r.TurnOrder[0]
		}
	}

	if len(r.TurnOrder) > 0 {
		if removedIdx >= 0 {
			if removedIdx < r.TurnIndex {
				r.TurnIndex--
			} else if removedIdx == r.TurnIndex && r.TurnIndex >= len(r.TurnOrder) {
				r.TurnIndex = 0
			}
		}
		if idx, clamped := game.ClampIndex(r.TurnIndex, len(r.TurnOrder)); clamped {
			r.log.WithFields(logrus.Fields{"index": r.TurnIndex, "total": len(r.TurnOrder), "removed": id.String()}).
				Warnf("turn index out of range after removal, clamped to %d", idx)
			r.TurnIndex = idx
		}
	} else if r.inGame() {
		r.TurnIndex = 0
		r.TurnActive = false
		r.TurnStartedAt = time.Time{}
		r.TurnPhase = game.PhaseFinished
		r.TurnsCompleted = true
	} else {
		r.TurnIndex = 0
	}

	if r.OwnerID == id && r.size() > 0 {
		r.OwnerName = ""
		if next, ok := r.nextOwner(); ok {
			r.OwnerID = next
			r.OwnerName = r.nameOf(next)
		}
	}

	if r.State == StateStarted || r.State == StatePaused {
		r.State = StatePaused
		r.TurnActive = false
		r.TurnStartedAt = time.Time{}
	}
	r.setStatus(name+" "+reason, now)
	return true
}

// nextOwner prefers the first real participant in turn order, then in join order.
func (r *Room) nextOwner() (game.PlayerID, bool) {
	for _, id := range r.TurnOrder {
		if id.IsUser() {
			return id, true
		}
	}
	if real := r.realIDs(); len(real) > 0 {
		return real[0], true
	}
	return game.PlayerID{}, false
}

// dropStale removes participants that have not been seen for the stale
// window. Waiting rooms are left alone so a fresh lobby survives until the
// second player arrives. It reports whether no real participant remains.
func (r *Room) dropStale(now time.Time, window time.Duration) bool {
	if r.State == StateWaiting {
		return false
	}
	var stale []game.PlayerID
	for _, id := range r.roster {
		if seen, ok := r.lastSeen[id]; ok && now.Sub(seen) > window {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		r.removeParticipant(id, reasonLeft, now)
	}
	return r.size() == 0 || len(r.realIDs()) == 0
}

// currentTurnID returns the participant whose turn it is, if any.
func (r *Room) currentTurnID() (game.PlayerID, bool) {
	if len(r.TurnOrder) == 0 {
		return game.PlayerID{}, false
	}
	return r.TurnOrder[r.TurnIndex], true
}

func (r *Room) inGame() bool {
	return r.State == StateStarted || r.State == StatePaused
}
