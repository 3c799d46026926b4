package lobby

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/spyparty/internal/game"
)

var testTime = time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)

// startedRoom returns a started room with users 1..n in turn order.
func startedRoom(n int) *Room {
	r := newRoom("ROOM01", testTime)
	r.Capacity = game.MaxPlayers
	r.Timer = game.Timer{Enabled: true, Seconds: 5}
	for i := 1; i <= n; i++ {
		id := game.User(itoa(i))
		r.add(&Participant{ID: id, DisplayName: "User " + itoa(i)})
		r.touch(id, testTime)
	}
	r.OwnerID = game.User("1")
	r.OwnerName = "User 1"
	r.State = StateStarted
	r.TurnOrder = append([]game.PlayerID(nil), r.roster...)
	r.TurnPhase = game.PhaseActive
	r.TurnActive = true
	r.TurnStartedAt = testTime
	return r
}

func TestRemoveParticipantIndexAdjustment(t *testing.T) {
	cases := []struct {
		name              string
		current, removeAt int
		want              int
	}{
		{"before current shifts back", 2, 0, 1},
		{"after current keeps index", 1, 3, 1},
		{"current in the middle keeps index", 1, 1, 1},
		{"current at the end wraps", 3, 3, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := startedRoom(4)
			r.TurnIndex = c.current
			r.removeParticipant(r.TurnOrder[c.removeAt], reasonLeft, testTime)
			assert.Equal(t, c.want, r.TurnIndex)
			assert.Equal(t, StatePaused, r.State)
		})
	}
}

func TestRemoveStarterAndOwner(t *testing.T) {
	r := startedRoom(3)
	r.StarterID = game.User("1")
	r.add(&Participant{ID: game.Bot("bot_x"), DisplayName: "Bot 1"})
	r.TurnOrder = []game.PlayerID{game.Bot("bot_x"), game.User("1"), game.User("2"), game.User("3")}

	r.removeParticipant(game.User("1"), reasonLeft, testTime)
	assert.Equal(t, game.Bot("bot_x"), r.StarterID, "starter passes to the head of the turn order")
	assert.Equal(t, game.User("2"), r.OwnerID, "bots are skipped when handing over ownership")
	assert.Equal(t, "User 2", r.OwnerName)
	assert.Equal(t, "User 1 left the room", r.StatusMessage)
}

func TestRemoveLastParticipantFinishesTurns(t *testing.T) {
	r := startedRoom(1)
	r.removeParticipant(game.User("1"), reasonLeft, testTime)
	assert.Equal(t, game.PhaseFinished, r.TurnPhase)
	assert.True(t, r.TurnsCompleted)
	assert.Equal(t, 0, r.TurnIndex)
	assert.Equal(t, 0, r.size())
}

func TestRemoveFromWaitingRoomLeavesTurnsPending(t *testing.T) {
	r := newRoom("WAIT02", testTime)
	r.add(&Participant{ID: game.User("1"), DisplayName: "User 1"})
	r.add(&Participant{ID: game.Bot("bot_a"), DisplayName: "Bot 1"})

	require.True(t, r.removeParticipant(game.Bot("bot_a"), reasonRemoved, testTime))
	assert.Equal(t, StateWaiting, r.State)
	assert.Equal(t, game.PhaseWaiting, r.TurnPhase)
	assert.False(t, r.TurnsCompleted)
	assert.Equal(t, 0, r.TurnIndex)
}

func TestRemoveLogsClampedTurnIndex(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	r := startedRoom(3)
	r.log = logger.WithField("room", r.Code)
	r.TurnIndex = 7

	r.removeParticipant(game.User("1"), reasonLeft, testTime)
	assert.Equal(t, 1, r.TurnIndex)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "ROOM01", entry.Data["room"])
	assert.Equal(t, 6, entry.Data["index"])
	assert.Equal(t, 2, entry.Data["total"])
	assert.Contains(t, entry.Message, "clamped to 1")
}

func TestRemoveInRangeDoesNotLog(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	r := startedRoom(3)
	r.log = logger
	r.TurnIndex = 1

	r.removeParticipant(game.User("3"), reasonLeft, testTime)
	assert.Equal(t, 1, r.TurnIndex)
	assert.Empty(t, hook.AllEntries())
}

func TestDropStale(t *testing.T) {
	r := startedRoom(3)
	later := testTime.Add(game.HeartbeatStale + time.Second)
	r.touch(game.User("2"), later)

	empty := r.dropStale(later, game.HeartbeatStale)
	assert.False(t, empty)
	assert.Equal(t, []game.PlayerID{game.User("2")}, r.roster)
	assert.Equal(t, game.User("2"), r.OwnerID)

	waiting := newRoom("WAIT01", testTime)
	waiting.add(&Participant{ID: game.User("1"), DisplayName: "User 1"})
	waiting.touch(game.User("1"), testTime)
	assert.False(t, waiting.dropStale(testTime.Add(time.Hour), game.HeartbeatStale))
	assert.Equal(t, 1, waiting.size())
}

func TestDropStaleLeavesOnlyBots(t *testing.T) {
	r := startedRoom(1)
	r.add(&Participant{ID: game.Bot("bot_a"), DisplayName: "Bot 1"})
	assert.True(t, r.dropStale(testTime.Add(time.Minute), game.HeartbeatStale))
	assert.Equal(t, 1, r.size(), "bots never go stale")
}
