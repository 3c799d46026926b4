package lobby

import (
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/spyparty/internal/game"
	"github.com/jason-s-yu/spyparty/internal/models"
)

var cards = []string{"Knight", "Archers", "Goblins", "Giant", "Miner"}

type adminSet map[string]bool

func (a adminSet) IsAdmin(u models.User) bool { return a[u.ID] }

func user(id string) models.User {
	return models.User{ID: id, FirstName: "User", LastName: id}
}

func intPtr(i int) *int { return &i }

func newTestStore(t *testing.T, opts Options) (*Store, *clockwork.FakeClock) {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC))
	return NewStore(game.NewDealer(cards, nil), clock, logger, opts), clock
}

// openRoom creates a room owned by "1" and joins users "2".."n".
func openRoom(t *testing.T, s *Store, n int, p CreateParams) string {
	t.Helper()
	if p.Format == "" {
		p.Format = FormatOnline
	}
	if p.Mode == "" {
		p.Mode = "standard"
	}
	if p.Capacity == 0 {
		p.Capacity = game.MaxPlayers
	}
	v, err := s.Create(user("1"), p)
	require.NoError(t, err)
	for i := 2; i <= n; i++ {
		_, err := s.Join(v.RoomCode, user(itoa(i)), JoinParams{})
		require.NoError(t, err)
	}
	return v.RoomCode
}

func itoa(i int) string { return strconv.Itoa(i) }

func TestCreateAndStartByOwner(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	code := openRoom(t, s, 3, CreateParams{Capacity: 6})

	v, err := s.Status(code, user("1"))
	require.NoError(t, err)
	assert.Equal(t, 3, v.PlayerCount)
	assert.Equal(t, 6, v.PlayerLimit)
	assert.True(t, v.CanStart)
	assert.True(t, v.YouAreOwner)
	assert.Equal(t, "User 1", v.HostName)
	assert.Nil(t, v.StarterName)
	assert.Nil(t, v.StatusMessage)

	other, err := s.Status(code, user("2"))
	require.NoError(t, err)
	assert.False(t, other.CanStart)
	assert.False(t, other.YouAreOwner)

	_, err = s.Start(code, user("2"))
	assert.ErrorIs(t, err, game.ErrForbidden)

	res, err := s.Start(code, user("1"))
	require.NoError(t, err)
	assert.True(t, res.Started)
	assert.Contains(t, []string{"1", "2", "3"}, res.StarterID)
	assert.Equal(t, "User "+res.StarterID, res.StarterName)

	v, err = s.Status(code, user("3"))
	require.NoError(t, err)
	assert.Equal(t, StateStarted, v.State)
	require.NotNil(t, v.StarterName)
	assert.Equal(t, res.StarterName, *v.StarterName)
	assert.Equal(t, game.PhaseFinished, v.TurnState, "no timer means no turn loop")
	assert.True(t, v.TurnsCompleted)

	_, err = s.Start(code, user("1"))
	assert.ErrorIs(t, err, game.ErrInvalidState)
}

func TestCreateValidation(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	cases := []struct {
		name   string
		caller models.User
		p      CreateParams
		kind   game.Kind
	}{
		{"offline format", user("1"), CreateParams{Format: "offline", Mode: "standard", Capacity: 6}, game.KindInvalidConfiguration},
		{"unknown mode", user("1"), CreateParams{Format: FormatOnline, Mode: "x", Capacity: 6}, game.KindInvalidConfiguration},
		{"capacity too small", user("1"), CreateParams{Format: FormatOnline, Mode: "standard", Capacity: 2}, game.KindInvalidConfiguration},
		{"capacity too large", user("1"), CreateParams{Format: FormatOnline, Mode: "standard", Capacity: 13}, game.KindInvalidConfiguration},
		{"single allowed mode", user("1"), CreateParams{Format: FormatOnline, Mode: "random", Capacity: 6, Allowed: []string{"same_card"}}, game.KindInvalidConfiguration},
		{"bad turn time", user("1"), CreateParams{Format: FormatOnline, Mode: "standard", Capacity: 6, TimerEnabled: true, TurnSeconds: intPtr(31)}, game.KindInvalidConfiguration},
		{"nameless caller", models.User{ID: "1"}, CreateParams{Format: FormatOnline, Mode: "standard", Capacity: 6}, game.KindValidation},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := s.Create(c.caller, c.p)
			require.Error(t, err)
			assert.Equal(t, c.kind, game.KindOf(err))
		})
	}
	assert.Equal(t, 0, s.Len())
}

func TestJoin(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	code := openRoom(t, s, 1, CreateParams{Capacity: 3})

	_, err := s.Join("ZZZZZZ", user("2"), JoinParams{})
	assert.ErrorIs(t, err, game.ErrNotFound)

	_, err = s.Join(code, user("2"), JoinParams{Format: "offline"})
	assert.ErrorIs(t, err, game.ErrInvalidConfiguration)

	_, err = s.Join(code, models.User{ID: "2"}, JoinParams{})
	assert.ErrorIs(t, err, game.ErrValidation)

	// Codes are matched after normalization; a mismatched mode is only logged.
	v, err := s.Join(" "+strings.ToLower(code)+" ", user("2"), JoinParams{Format: FormatOnline, Mode: "random"})
	require.NoError(t, err)
	assert.Equal(t, 2, v.PlayerCount)

	v, err = s.Join(code, user("2"), JoinParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, v.PlayerCount, "rejoining does not duplicate")

	_, err = s.Join(code, user("3"), JoinParams{})
	require.NoError(t, err)
	_, err = s.Join(code, user("4"), JoinParams{})
	assert.EqualError(t, err, "room is full")

	_, err = s.Start(code, user("1"))
	require.NoError(t, err)
	_, err = s.Join(code, user("2"), JoinParams{})
	assert.EqualError(t, err, "game already started")
}

func TestStatusRequiresMembership(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	code := openRoom(t, s, 2, CreateParams{})

	_, err := s.Status(code, user("9"))
	assert.ErrorIs(t, err, game.ErrForbidden)
	_, err = s.Heartbeat(code, user("9"))
	assert.ErrorIs(t, err, game.ErrForbidden)
	_, err = s.Heartbeat("nope", user("1"))
	assert.ErrorIs(t, err, game.ErrNotFound)
}

func TestRemovingCurrentTurnPausesRoom(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	code := openRoom(t, s, 4, CreateParams{TimerEnabled: true})
	_, err := s.Start(code, user("1"))
	require.NoError(t, err)

	room := s.rooms[code]
	room.TurnIndex = 3
	current := room.TurnOrder[3]

	removed, err := s.RemoveParticipant(code, current, reasonLeft)
	require.NoError(t, err)
	require.True(t, removed)

	assert.Equal(t, StatePaused, room.State)
	assert.GreaterOrEqual(t, room.TurnIndex, 0)
	assert.Less(t, room.TurnIndex, 3)
	assert.Len(t, room.TurnOrder, 3)
	assert.False(t, room.TurnActive)
	assert.True(t, room.TurnStartedAt.IsZero())
	assert.False(t, room.Roles.Has(current))
	assert.Equal(t, "User "+current.String()+" left the room", room.StatusMessage)

	removed, err = s.RemoveParticipant(code, current, reasonLeft)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestLeave(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	code := openRoom(t, s, 3, CreateParams{})

	res, err := s.Leave(code, user("9"))
	require.NoError(t, err)
	assert.Equal(t, LeaveResult{}, res)

	res, err = s.Leave(code, user("1"))
	require.NoError(t, err)
	assert.Equal(t, LeaveResult{Left: true}, res)

	v, err := s.Status(code, user("2"))
	require.NoError(t, err)
	assert.Equal(t, "2", v.OwnerUserID, "ownership moves to the next real participant")
	assert.Equal(t, "User 2", v.OwnerName)
	assert.True(t, v.YouAreOwner)
	assert.Equal(t, StateWaiting, v.State, "waiting rooms are not paused")

	_, err = s.Leave(code, user("2"))
	require.NoError(t, err)
	res, err = s.Leave(code, user("3"))
	require.NoError(t, err)
	assert.Equal(t, LeaveResult{Left: true, RoomClosed: true}, res)
	assert.False(t, s.exists(code))

	res, err = s.Leave(code, user("3"))
	require.NoError(t, err)
	assert.Equal(t, LeaveResult{Left: true, RoomClosed: true}, res)
}

func TestLeaveWaitingRoomKeepsTurnsPending(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	code := openRoom(t, s, 3, CreateParams{})

	_, err := s.Leave(code, user("3"))
	require.NoError(t, err)

	v, err := s.Status(code, user("1"))
	require.NoError(t, err)
	assert.Equal(t, StateWaiting, v.State)
	assert.Equal(t, game.PhaseWaiting, v.TurnState)
	assert.False(t, v.TurnsCompleted)
	assert.Equal(t, 0, v.CurrentTurnIndex)
}

func TestStaleParticipantsAreDropped(t *testing.T) {
	s, clock := newTestStore(t, Options{})
	code := openRoom(t, s, 3, CreateParams{})

	// Waiting rooms keep silent participants.
	clock.Advance(time.Minute)
	v, err := s.Heartbeat(code, user("1"))
	require.NoError(t, err)
	assert.Equal(t, 3, v.PlayerCount)

	_, err = s.Heartbeat(code, user("2"))
	require.NoError(t, err)
	_, err = s.Heartbeat(code, user("3"))
	require.NoError(t, err)
	_, err = s.Start(code, user("1"))
	require.NoError(t, err)

	clock.Advance(game.HeartbeatStale + time.Second)
	v, err = s.Heartbeat(code, user("1"))
	require.NoError(t, err)
	assert.Equal(t, 1, v.PlayerCount)
	assert.Equal(t, StatePaused, v.State)
	require.NotNil(t, v.StatusMessage)
	assert.Contains(t, *v.StatusMessage, "left the room")

	clock.Advance(game.HeartbeatStale + time.Second)
	closed, err := s.DropStale(code)
	require.NoError(t, err)
	assert.True(t, closed)

	_, err = s.Status(code, user("1"))
	assert.ErrorIs(t, err, game.ErrNotFound)
}

func TestTimedTurnsPauseAndResume(t *testing.T) {
	s, clock := newTestStore(t, Options{})
	code := openRoom(t, s, 4, CreateParams{TimerEnabled: true, TurnSeconds: intPtr(5)})

	_, err := s.TurnFinish(code, user("1"))
	assert.EqualError(t, err, "game not started")
	_, err = s.TurnStart(code, user("1"))
	assert.EqualError(t, err, "game not started")

	res, err := s.Start(code, user("1"))
	require.NoError(t, err)
	room := s.rooms[code]
	starterIdx := room.TurnIndex
	assert.Equal(t, res.StarterID, room.TurnOrder[starterIdx].String())

	v, err := s.Status(code, user("1"))
	require.NoError(t, err)
	assert.Equal(t, game.PhaseReady, v.TurnState)
	require.NotNil(t, v.CurrentTurnName)
	assert.Equal(t, res.StarterName, *v.CurrentTurnName)

	_, err = s.TurnStart(code, user("2"))
	assert.ErrorIs(t, err, game.ErrForbidden)

	started := clock.Now()
	v, err = s.TurnStart(code, user("1"))
	require.NoError(t, err)
	assert.Equal(t, game.PhaseActive, v.TurnState)
	assert.True(t, v.TurnActive)

	clock.Advance(11 * time.Second)
	v, err = s.Heartbeat(code, user("1"))
	require.NoError(t, err)
	want := (starterIdx + 2) % 4
	assert.Equal(t, want, v.CurrentTurnIndex)
	require.NotNil(t, v.TurnStartedAt)
	assert.InDelta(t, float64(started.Add(10*time.Second).Unix()), *v.TurnStartedAt, 0.001)
	require.NotNil(t, v.CurrentTurnName)
	assert.Equal(t, "User "+room.TurnOrder[want].String(), *v.CurrentTurnName)

	_, err = s.Leave(code, user("4"))
	require.NoError(t, err)
	v, err = s.Status(code, user("1"))
	require.NoError(t, err)
	assert.Equal(t, StatePaused, v.State)
	assert.False(t, v.TurnActive)
	assert.Nil(t, v.TurnStartedAt)

	_, err = s.TurnStart(code, user("1"))
	assert.EqualError(t, err, "game is paused")
	_, err = s.Resume(code, user("2"))
	assert.ErrorIs(t, err, game.ErrForbidden)

	clock.Advance(time.Second)
	v, err = s.Resume(code, user("1"))
	require.NoError(t, err)
	assert.Equal(t, StateStarted, v.State)
	assert.True(t, v.TurnActive)
	require.NotNil(t, v.TurnStartedAt)
	assert.InDelta(t, float64(clock.Now().Unix()), *v.TurnStartedAt, 0.001)
	require.NotNil(t, v.StatusMessage)
	assert.Equal(t, "Game resumed", *v.StatusMessage)

	_, err = s.Resume(code, user("1"))
	assert.EqualError(t, err, "game is not paused")

	v, err = s.TurnFinish(code, user("1"))
	require.NoError(t, err)
	assert.Equal(t, game.PhaseFinished, v.TurnState)
	assert.True(t, v.TurnsCompleted)
	assert.Nil(t, v.CurrentTurnName)

	_, err = s.TurnStart(code, user("1"))
	assert.EqualError(t, err, "game already finished")
}

func TestTurnControlsWithoutTimer(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	code := openRoom(t, s, 3, CreateParams{})
	_, err := s.Start(code, user("1"))
	require.NoError(t, err)

	_, err = s.TurnStart(code, user("1"))
	assert.EqualError(t, err, "timer disabled")
	_, err = s.TurnFinish(code, user("1"))
	assert.EqualError(t, err, "timer disabled")
}

func TestRole(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	code := openRoom(t, s, 4, CreateParams{})

	_, err := s.Role(code, user("1"))
	assert.ErrorIs(t, err, game.ErrInvalidState)

	_, err = s.Start(code, user("1"))
	require.NoError(t, err)

	_, err = s.Role(code, user("9"))
	assert.ErrorIs(t, err, game.ErrForbidden)

	spies := 0
	for i := 1; i <= 4; i++ {
		role, err := s.Role(code, user(itoa(i)))
		require.NoError(t, err)
		if role.Spy {
			spies++
			assert.Empty(t, role.Card)
		} else {
			assert.Contains(t, cards, role.Card)
		}
	}
	assert.Equal(t, 1, spies)
}

func TestRestartFromWaiting(t *testing.T) {
	var records []models.RoundRecord
	s, _ := newTestStore(t, Options{OnRoundDealt: func(r models.RoundRecord) { records = append(records, r) }})
	code := openRoom(t, s, 3, CreateParams{Mode: "random", Allowed: []string{"same_card", "all_spies"}})

	_, err := s.Restart(code, user("2"))
	assert.ErrorIs(t, err, game.ErrForbidden)

	res, err := s.Restart(code, user("1"))
	require.NoError(t, err)
	assert.True(t, res.Started)
	assert.Equal(t, StateStarted, s.rooms[code].State)

	_, err = s.Restart(code, user("1"))
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, models.RoundRoom, records[0].Kind)
	assert.Equal(t, code, records[0].Session)
	assert.Contains(t, []string{"same_card", "all_spies"}, records[1].Scenario)
	assert.True(t, records[1].Restart)
}

func TestRoomTTL(t *testing.T) {
	s, clock := newTestStore(t, Options{})
	waiting := openRoom(t, s, 1, CreateParams{})
	started := openRoom(t, s, 3, CreateParams{})
	_, err := s.Start(started, user("1"))
	require.NoError(t, err)

	clock.Advance(game.AppTTL - time.Minute)
	assert.Equal(t, 0, s.Expire())
	assert.True(t, s.exists(waiting))
	assert.True(t, s.exists(started))

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, s.Expire())
	assert.False(t, s.exists(waiting))
	assert.True(t, s.exists(started))
}

func TestOnChangeFires(t *testing.T) {
	var mu sync.Mutex
	changes := map[string]int{}
	s, _ := newTestStore(t, Options{OnChange: func(code string) {
		mu.Lock()
		changes[code]++
		mu.Unlock()
	}})
	code := openRoom(t, s, 3, CreateParams{})
	_, err := s.Start(code, user("1"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, changes[code], 3)
}

func TestConcurrentAccess(t *testing.T) {
	s, clock := newTestStore(t, Options{})
	code := openRoom(t, s, 6, CreateParams{TimerEnabled: true})
	_, err := s.Start(code, user("1"))
	require.NoError(t, err)
	_, err = s.TurnStart(code, user("1"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 6; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := s.Heartbeat(code, user(id))
				assert.NoError(t, err)
				_, err = s.Role(code, user(id))
				assert.NoError(t, err)
			}
		}(itoa(i))
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			s.Expire()
			clock.Advance(10 * time.Millisecond)
		}
	}()
	wg.Wait()

	v, err := s.Status(code, user("1"))
	require.NoError(t, err)
	assert.Equal(t, 6, v.PlayerCount)
}
