package lobby

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/spyparty/internal/game"
	"github.com/jason-s-yu/spyparty/internal/models"
)

const (
	botIDPrefix = "bot_"
	// MaxBotsPerRequest caps a single AddBots call.
	MaxBotsPerRequest = 10
)

var botNamePattern = regexp.MustCompile(`^Bot (\d+)$`)

func (r *Room) nextBotNumber() int {
	highest := 0
	for _, id := range r.roster {
		if !id.IsBot() {
			continue
		}
		m := botNamePattern.FindStringSubmatch(r.nameOf(id))
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1
}

func (r *Room) newBotID() game.PlayerID {
	for i := 0; i < codeAttempts; i++ {
		id := game.Bot(botIDPrefix + randomHex(8))
		if !r.has(id) {
			return id
		}
	}
	return game.Bot(botIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// addBots fills up to requested free slots with bots and returns how many joined.
func (r *Room) addBots(requested int) int {
	n := min(max(requested, 0), max(0, r.Capacity-r.size()))
	start := r.nextBotNumber()
	for i := 0; i < n; i++ {
		id := r.newBotID()
		r.add(&Participant{ID: id, DisplayName: "Bot " + strconv.Itoa(start+i)})
	}
	return n
}

// clearBots removes every bot and returns how many left.
func (r *Room) clearBots(now time.Time) int {
	var bots []game.PlayerID
	for _, id := range r.roster {
		if id.IsBot() {
			bots = append(bots, id)
		}
	}
	removed := 0
	for _, id := range bots {
		if r.removeParticipant(id, reasonRemoved, now) {
			removed++
		}
	}
	return removed
}

// botRoom returns the room locked for a bot management call by caller.
func (s *Store) botRoom(code string, caller models.User) (*Room, error) {
	if !s.opts.DevTools {
		return nil, game.NotFound("not found")
	}
	room, err := s.lock(code, "bots")
	if err != nil {
		return nil, err
	}
	id := game.User(caller.ID)
	switch {
	case !room.has(id):
		err = game.Forbidden("you are not in the room")
	case room.OwnerID != id:
		err = game.Forbidden("only the host can manage bots")
	case !s.isAdmin(caller):
		err = game.Forbidden("dev access denied")
	case room.State != StateWaiting:
		err = game.InvalidState("bots can only be managed before the game starts")
	}
	if err != nil {
		room.mu.Unlock()
		return nil, err
	}
	room.touch(id, s.clock.Now())
	return room, nil
}

func (s *Store) isAdmin(u models.User) bool {
	return s.opts.Admins != nil && s.opts.Admins.IsAdmin(u)
}

// AddBots adds up to count bots, capped by the free slots.
func (s *Store) AddBots(code string, caller models.User, count int) (View, int, error) {
	if count < 1 || count > MaxBotsPerRequest {
		return View{}, 0, game.Validation("bot count must be between 1 and %d", MaxBotsPerRequest)
	}
	room, err := s.botRoom(code, caller)
	if err != nil {
		return View{}, 0, err
	}
	defer room.mu.Unlock()

	added := room.addBots(count)
	if added <= 0 {
		return View{}, 0, game.InvalidState("room is full")
	}
	room.setStatus(fmt.Sprintf("Bots added: %d", added), s.clock.Now())
	s.debugBots(room, "bots:add", added)
	s.changed(room)
	return s.view(room, caller), added, nil
}

// FillBots adds bots until the room is at capacity.
func (s *Store) FillBots(code string, caller models.User) (View, int, error) {
	room, err := s.botRoom(code, caller)
	if err != nil {
		return View{}, 0, err
	}
	defer room.mu.Unlock()

	remaining := room.Capacity - room.size()
	if remaining <= 0 {
		return View{}, 0, game.InvalidState("room is full")
	}
	added := room.addBots(remaining)
	room.setStatus(fmt.Sprintf("Bots added: %d", added), s.clock.Now())
	s.debugBots(room, "bots:fill", added)
	s.changed(room)
	return s.view(room, caller), added, nil
}

// ClearBots removes every bot from the room.
func (s *Store) ClearBots(code string, caller models.User) (View, int, error) {
	room, err := s.botRoom(code, caller)
	if err != nil {
		return View{}, 0, err
	}
	defer room.mu.Unlock()

	now := s.clock.Now()
	removed := room.clearBots(now)
	if removed > 0 {
		room.setStatus(fmt.Sprintf("Bots removed: %d", removed), now)
	} else {
		room.setStatus("No bots in the room", now)
	}
	s.debugBots(room, "bots:clear", removed)
	s.changed(room)
	return s.view(room, caller), removed, nil
}

func (s *Store) debugBots(room *Room, event string, n int) {
	if !s.opts.Debug {
		return
	}
	s.log.WithFields(logrus.Fields{
		"room":     room.Code,
		"event":    event,
		"count":    n,
		"players":  room.size(),
		"capacity": room.Capacity,
	}).Info("room bots changed")
}
