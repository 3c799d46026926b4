// internal/lobby/store.go
package lobby

import (
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/spyparty/internal/game"
	"github.com/jason-s-yu/spyparty/internal/models"
)

const (
	reasonLeft    = "left the room"
	reasonRemoved = "was removed from the room"
)

// Authorizer decides who may use developer tools.
type Authorizer interface {
	IsAdmin(u models.User) bool
}

// Options tunes a Store. The zero value is usable.
type Options struct {
	// TTL bounds the lifetime of rooms still in the lobby; game.AppTTL when zero.
	TTL time.Duration
	// StaleAfter is the heartbeat window of a running game; game.HeartbeatStale when zero.
	StaleAfter time.Duration
	// DevTools exposes bot management.
	DevTools bool
	Admins   Authorizer
	// Debug logs the stored room keys on lookups.
	Debug       bool
	DebugRandom bool

	// OnRoundDealt and OnChange are called with the room lock held. They must
	// not block or call back into the store.
	OnRoundDealt func(models.RoundRecord)
	OnChange     func(code string)
}

// CreateParams is the client request for a new room.
type CreateParams struct {
	Format   string
	Mode     string
	Allowed  []string
	Capacity int
	// TimerEnabled and TurnSeconds configure the per-turn timer.
	TimerEnabled bool
	TurnSeconds  *int
}

// JoinParams carries the optional format and mode a joining client expects.
type JoinParams struct {
	Format string
	Mode   string
}

// StartResult is returned by Start and Restart.
type StartResult struct {
	Started     bool   `json:"started"`
	StarterID   string `json:"starter_user_id"`
	StarterName string `json:"starter_name"`
}

// Role is the caller's hidden role.
type Role struct {
	Spy  bool
	Card string
}

// LeaveResult reports the outcome of Leave.
type LeaveResult struct {
	Left       bool `json:"left"`
	RoomClosed bool `json:"room_closed"`
}

// Store keeps rooms in memory. The map has its own mutex and every room has
// another; a room lock may be held while taking the map lock, never the reverse.
type Store struct {
	mu    sync.Mutex
	rooms map[string]*Room

	dealer *game.Dealer
	clock  clockwork.Clock
	log    logrus.FieldLogger
	opts   Options
}

// NewStore returns an empty store.
func NewStore(dealer *game.Dealer, clock clockwork.Clock, logger logrus.FieldLogger, opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = game.AppTTL
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = game.HeartbeatStale
	}
	return &Store{
		rooms:  make(map[string]*Room),
		dealer: dealer,
		clock:  clock,
		log:    logger,
		opts:   opts,
	}
}

// DevTools reports whether bot management is exposed.
func (s *Store) DevTools() bool { return s.opts.DevTools }

// exists reports whether a room with the given code is live.
func (s *Store) exists(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[NormalizeCode(code)]
	return ok
}

// Len returns the number of live rooms.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// Create opens a waiting room owned by caller.
func (s *Store) Create(caller models.User, p CreateParams) (View, error) {
	if p.Format != FormatOnline {
		return View{}, game.InvalidConfiguration("invalid format mode")
	}
	mode, err := game.ParseMode(p.Mode)
	if err != nil {
		return View{}, err
	}
	if p.Capacity < game.MinPlayers || p.Capacity > game.MaxPlayers {
		return View{}, game.InvalidConfiguration("player limit must be between %d and %d", game.MinPlayers, game.MaxPlayers)
	}
	var allowed []game.Scenario
	if mode == game.ModeRandom && p.Allowed != nil {
		allowed = game.ToScenarios(p.Allowed)
		if len(allowed) < 2 {
			return View{}, game.InvalidConfiguration("choose at least two modes")
		}
	}
	timer, err := game.NewTimer(p.TimerEnabled, p.TurnSeconds)
	if err != nil {
		return View{}, err
	}
	owner, err := participantFor(caller)
	if err != nil {
		return View{}, err
	}

	now := s.clock.Now()
	s.mu.Lock()
	room := newRoom(newCode(s.rooms), now)
	room.log = s.log.WithField("room", room.Code)
	room.OwnerID = owner.ID
	room.OwnerName = owner.DisplayName
	room.Mode = mode
	room.Allowed = allowed
	room.Capacity = p.Capacity
	room.Timer = timer
	room.add(owner)
	room.touch(owner.ID, now)
	s.rooms[room.Code] = room
	s.mu.Unlock()

	s.debugStorage("create", room.Code, room.Code)
	s.log.WithFields(logrus.Fields{"room": room.Code, "owner": owner.ID.String(), "mode": mode}).Info("room created")

	room.mu.Lock()
	defer room.mu.Unlock()
	return s.view(room, caller), nil
}

// Join adds caller to a waiting room. Joining a room one is already in is a no-op.
func (s *Store) Join(code string, caller models.User, p JoinParams) (View, error) {
	room, err := s.lock(code, "join")
	if err != nil {
		return View{}, err
	}
	defer room.mu.Unlock()

	now := s.clock.Now()
	if room.dropStale(now, s.opts.StaleAfter) {
		s.remove(room)
		return View{}, game.NotFound("room not found")
	}
	if room.Format != FormatOnline || (p.Format != "" && p.Format != FormatOnline) {
		return View{}, game.InvalidConfiguration("this room is online-only")
	}
	id := game.User(caller.ID)
	if p.Mode != "" && game.Mode(p.Mode) != room.Mode {
		s.log.WithFields(logrus.Fields{"room": room.Code, "user": caller.ID, "requested": p.Mode, "mode": room.Mode}).
			Info("join ignored mismatched game mode")
	}
	if room.State != StateWaiting {
		return View{}, game.InvalidState("game already started")
	}
	if !room.has(id) {
		if room.size() >= room.Capacity {
			return View{}, game.InvalidState("room is full")
		}
		joiner, err := participantFor(caller)
		if err != nil {
			return View{}, err
		}
		room.add(joiner)
		s.changed(room)
	}
	room.touch(id, now)
	return s.view(room, caller), nil
}

// Status returns the caller's view of the room.
func (s *Store) Status(code string, caller models.User) (View, error) {
	return s.presence(code, caller, "status")
}

// Heartbeat records that caller is still connected and returns the room view.
func (s *Store) Heartbeat(code string, caller models.User) (View, error) {
	return s.presence(code, caller, "heartbeat")
}

func (s *Store) presence(code string, caller models.User, event string) (View, error) {
	room, err := s.lock(code, event)
	if err != nil {
		return View{}, err
	}
	defer room.mu.Unlock()

	id := game.User(caller.ID)
	if !room.has(id) {
		return View{}, game.Forbidden("you left the room")
	}
	if err := s.refresh(room, id); err != nil {
		return View{}, err
	}
	return s.view(room, caller), nil
}

// Start deals roles and moves a waiting room into the game. Owner only.
func (s *Store) Start(code string, caller models.User) (StartResult, error) {
	room, err := s.lock(code, "start")
	if err != nil {
		return StartResult{}, err
	}
	defer room.mu.Unlock()

	id := game.User(caller.ID)
	if err := s.refresh(room, id); err != nil {
		return StartResult{}, err
	}
	if room.OwnerID != id {
		return StartResult{}, game.Forbidden("only the owner can start")
	}
	if room.State != StateWaiting {
		return StartResult{}, game.InvalidState("game already started")
	}
	if room.size() < game.MinPlayers {
		return StartResult{}, game.InvalidState("not enough players")
	}
	return s.deal(room, false)
}

// Restart re-deals roles for the current roster from any state. Owner only.
func (s *Store) Restart(code string, caller models.User) (StartResult, error) {
	room, err := s.lock(code, "restart")
	if err != nil {
		return StartResult{}, err
	}
	defer room.mu.Unlock()

	id := game.User(caller.ID)
	if err := s.refresh(room, id); err != nil {
		return StartResult{}, err
	}
	if room.OwnerID != id {
		return StartResult{}, game.Forbidden("only the owner can restart")
	}
	if room.size() < game.MinPlayers {
		return StartResult{}, game.InvalidState("not enough players to restart")
	}
	return s.deal(room, true)
}

// Role returns the caller's hidden role in a running game.
func (s *Store) Role(code string, caller models.User) (Role, error) {
	room, err := s.lock(code, "role")
	if err != nil {
		return Role{}, err
	}
	defer room.mu.Unlock()

	if !room.inGame() {
		return Role{}, game.InvalidState("game not started")
	}
	id := game.User(caller.ID)
	if !room.has(id) {
		return Role{}, game.Forbidden("not in room")
	}
	if err := s.refresh(room, id); err != nil {
		return Role{}, err
	}
	card, ok := room.Roles.SecretOf(id)
	return Role{Spy: !ok, Card: card}, nil
}

// TurnStart starts (or keeps running) the timed turn loop. Owner only.
func (s *Store) TurnStart(code string, caller models.User) (View, error) {
	room, err := s.lock(code, "turn_start")
	if err != nil {
		return View{}, err
	}
	defer room.mu.Unlock()

	id := game.User(caller.ID)
	if err := s.refresh(room, id); err != nil {
		return View{}, err
	}
	if room.State == StatePaused {
		return View{}, game.InvalidState("game is paused")
	}
	if room.State != StateStarted {
		return View{}, game.InvalidState("game not started")
	}
	if room.OwnerID != id {
		return View{}, game.Forbidden("only the owner can control turns")
	}
	if !room.Timer.Enabled || !s.normalize(room) {
		return View{}, game.InvalidState("timer disabled")
	}
	switch room.TurnPhase {
	case game.PhaseFinished:
		return View{}, game.InvalidState("game already finished")
	case game.PhaseReady, game.PhaseActive:
	default:
		return View{}, game.InvalidState("finish dealing roles first")
	}

	room.TurnPhase = game.PhaseActive
	room.TurnActive = true
	if room.TurnStartedAt.IsZero() {
		room.TurnStartedAt = s.clock.Now()
	}
	s.changed(room)
	return s.view(room, caller), nil
}

// TurnFinish ends the turn loop. Owner only.
func (s *Store) TurnFinish(code string, caller models.User) (View, error) {
	room, err := s.lock(code, "turn_finish")
	if err != nil {
		return View{}, err
	}
	defer room.mu.Unlock()

	id := game.User(caller.ID)
	if err := s.refresh(room, id); err != nil {
		return View{}, err
	}
	if !room.inGame() {
		return View{}, game.InvalidState("game not started")
	}
	if room.OwnerID != id {
		return View{}, game.Forbidden("only the owner can finish")
	}
	if !room.Timer.Enabled {
		return View{}, game.InvalidState("timer disabled")
	}
	if room.TurnPhase == game.PhaseWaiting {
		return View{}, game.InvalidState("start the game first")
	}

	room.TurnPhase = game.PhaseFinished
	room.TurnActive = false
	room.TurnStartedAt = time.Time{}
	room.TurnsCompleted = true
	s.changed(room)
	return s.view(room, caller), nil
}

// Resume continues a paused game. A running turn restarts from now. Owner only.
func (s *Store) Resume(code string, caller models.User) (View, error) {
	room, err := s.lock(code, "resume")
	if err != nil {
		return View{}, err
	}
	defer room.mu.Unlock()

	id := game.User(caller.ID)
	if room.OwnerID != id {
		return View{}, game.Forbidden("only the owner can resume")
	}
	if !room.has(id) {
		return View{}, game.Forbidden("not in room")
	}
	if err := s.refresh(room, id); err != nil {
		return View{}, err
	}
	if room.State != StatePaused {
		return View{}, game.InvalidState("game is not paused")
	}

	now := s.clock.Now()
	room.State = StateStarted
	if room.Timer.Enabled && room.TurnPhase == game.PhaseActive {
		room.TurnActive = true
		room.TurnStartedAt = now
	}
	room.setStatus("Game resumed", now)
	s.changed(room)
	return s.view(room, caller), nil
}

// Leave removes caller from the room, deleting it once no real participant
// remains. Leaving a room that no longer exists succeeds.
func (s *Store) Leave(code string, caller models.User) (LeaveResult, error) {
	room, err := s.lock(code, "leave")
	if err != nil {
		if game.KindOf(err) == game.KindNotFound {
			return LeaveResult{Left: true, RoomClosed: true}, nil
		}
		return LeaveResult{}, err
	}
	defer room.mu.Unlock()

	id := game.User(caller.ID)
	if !room.has(id) {
		return LeaveResult{}, nil
	}
	room.removeParticipant(id, reasonLeft, s.clock.Now())
	if len(room.realIDs()) == 0 {
		s.remove(room)
		return LeaveResult{Left: true, RoomClosed: true}, nil
	}
	s.changed(room)
	return LeaveResult{Left: true}, nil
}

// RemoveParticipant removes any participant, real or bot, with the given
// reason, deleting the room once no real participant remains.
func (s *Store) RemoveParticipant(code string, id game.PlayerID, reason string) (bool, error) {
	room, err := s.lock(code, "remove")
	if err != nil {
		return false, err
	}
	defer room.mu.Unlock()

	if !room.removeParticipant(id, reason, s.clock.Now()) {
		return false, nil
	}
	if len(room.realIDs()) == 0 {
		s.remove(room)
	} else {
		s.changed(room)
	}
	return true, nil
}

// DropStale removes silent participants of a running game. It reports
// whether the room was deleted because no real participant remained.
func (s *Store) DropStale(code string) (bool, error) {
	room, err := s.lock(code, "drop_stale")
	if err != nil {
		return false, err
	}
	defer room.mu.Unlock()

	if room.dropStale(s.clock.Now(), s.opts.StaleAfter) {
		s.remove(room)
		return true, nil
	}
	return false, nil
}

// Expire deletes waiting rooms older than the TTL. Rooms with a game in
// progress are never expired. It returns how many rooms were removed.
func (s *Store) Expire() int {
	s.mu.Lock()
	snapshot := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		snapshot = append(snapshot, r)
	}
	s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for _, room := range snapshot {
		room.mu.Lock()
		if !room.closed && room.State == StateWaiting && now.Sub(room.CreatedAt) > s.opts.TTL {
			s.remove(room)
			removed++
		}
		room.mu.Unlock()
	}
	if removed > 0 {
		s.log.WithField("count", removed).Debug("expired waiting rooms")
	}
	return removed
}

// lock finds a room by user supplied code and returns it locked.
func (s *Store) lock(raw, event string) (*Room, error) {
	code := NormalizeCode(raw)
	s.mu.Lock()
	room, ok := s.rooms[code]
	s.mu.Unlock()
	if !ok {
		s.debugStorage(event+":not_found", raw, code)
		return nil, game.NotFound("room not found")
	}
	room.mu.Lock()
	if room.closed {
		room.mu.Unlock()
		return nil, game.NotFound("room not found")
	}
	return room, nil
}

// remove closes room and deletes it from the map. The room lock must be held.
func (s *Store) remove(room *Room) {
	room.closed = true
	s.mu.Lock()
	if s.rooms[room.Code] == room {
		delete(s.rooms, room.Code)
	}
	s.mu.Unlock()
	s.log.WithField("room", room.Code).Info("room closed")
	s.changed(room)
}

// refresh touches the caller and drops stale participants, deleting a room
// left without real participants.
func (s *Store) refresh(room *Room, caller game.PlayerID) error {
	now := s.clock.Now()
	room.touch(caller, now)
	before := room.size()
	if room.dropStale(now, s.opts.StaleAfter) {
		s.remove(room)
		return game.NotFound("room not found")
	}
	if room.size() != before {
		s.changed(room)
	}
	return nil
}

func (s *Store) changed(room *Room) {
	if s.opts.OnChange != nil {
		s.opts.OnChange(room.Code)
	}
}

func (s *Store) deal(room *Room, restart bool) (StartResult, error) {
	players := slices.Clone(room.roster)
	roles, err := s.dealer.Deal(players, room.Mode, room.Allowed)
	if err != nil {
		return StartResult{}, err
	}
	starter := game.Choice(s.dealer.Random(), players)

	room.Roles = roles
	room.State = StateStarted
	room.TurnOrder = players
	room.StarterID = starter
	room.TurnIndex = slices.Index(players, starter)
	room.TurnStartedAt = time.Time{}
	room.TurnActive = false
	if room.Timer.Enabled {
		room.TurnPhase = game.PhaseReady
		room.TurnsCompleted = false
	} else {
		room.TurnPhase = game.PhaseFinished
		room.TurnsCompleted = true
	}
	room.StatusMessage = ""
	room.StatusAt = time.Time{}

	now := s.clock.Now()
	log := s.log.WithField("room", room.Code)
	if s.opts.DebugRandom {
		log.WithFields(logrus.Fields{"players": len(players), "spies": roles.Spies, "scenario": roles.Scenario}).Debug("roles dealt")
	}
	log.WithFields(logrus.Fields{"players": len(players), "restart": restart}).Info("round dealt")
	if s.opts.OnRoundDealt != nil {
		s.opts.OnRoundDealt(models.RoundRecord{
			Kind:        models.RoundRoom,
			Session:     room.Code,
			Mode:        string(room.Mode),
			Scenario:    string(roles.Scenario),
			PlayerCount: len(players),
			SpyCount:    len(roles.Spies),
			Restart:     restart,
			DealtAt:     now,
		})
	}
	s.changed(room)
	return StartResult{Started: true, StarterID: starter.String(), StarterName: room.nameOf(starter)}, nil
}

// normalize repairs timer and turn order state and reports whether the turn
// timer can run.
func (s *Store) normalize(room *Room) bool {
	if !room.Timer.Enabled {
		room.Timer = game.Timer{}
		room.TurnStartedAt = time.Time{}
		room.TurnActive = false
		room.TurnsCompleted = room.TurnPhase == game.PhaseFinished
		return false
	}
	log := s.log.WithField("room", room.Code)
	if fixed, repaired := room.Timer.Repair(); repaired {
		log.WithField("turn_seconds", room.Timer.Seconds).Warnf("invalid turn time, using default=%d", game.DefaultTurnSeconds)
		room.Timer = fixed
	}
	s.repairOrder(room)
	if len(room.TurnOrder) == 0 {
		room.TurnsCompleted = true
		room.TurnActive = false
		room.TurnPhase = game.PhaseFinished
		room.TurnStartedAt = time.Time{}
		return false
	}
	return true
}

func (s *Store) repairOrder(room *Room) {
	log := s.log.WithField("room", room.Code)
	if len(room.TurnOrder) == 0 {
		room.TurnOrder = slices.Clone(room.roster)
		room.TurnIndex = 0
		if len(room.TurnOrder) > 0 {
			log.Warn("empty turn order rebuilt from roster")
		} else {
			log.Warn("no participants while resolving turn order")
		}
	}
	if idx, repaired := game.ClampIndex(room.TurnIndex, len(room.TurnOrder)); repaired {
		log.WithFields(logrus.Fields{"index": room.TurnIndex, "total": len(room.TurnOrder)}).
			Warnf("turn index out of range, clamped to %d", idx)
		room.TurnIndex = idx
	}
}

func (s *Store) advance(room *Room) {
	if room.State != StateStarted || room.TurnPhase != game.PhaseActive || !room.TurnActive {
		return
	}
	if !s.normalize(room) || room.TurnStartedAt.IsZero() {
		return
	}
	clock := game.TurnClock{
		Index:     room.TurnIndex,
		Length:    len(room.TurnOrder),
		StartedAt: room.TurnStartedAt,
		Period:    room.Timer.Period(),
	}
	next, steps := clock.Advance(s.clock.Now())
	if steps == 0 {
		return
	}
	room.TurnIndex = next.Index
	room.TurnStartedAt = next.StartedAt
	s.log.WithFields(logrus.Fields{"room": room.Code, "index": room.TurnIndex}).Info("room turn advanced")
}

func (s *Store) debugStorage(event, raw, code string) {
	if !s.opts.Debug {
		return
	}
	s.mu.Lock()
	keys := make([]string, 0, len(s.rooms))
	for k := range s.rooms {
		keys = append(keys, k)
	}
	s.mu.Unlock()
	sort.Strings(keys)
	total := len(keys)
	if total > 30 {
		keys = append(keys[:30], "...")
	}
	s.log.WithFields(logrus.Fields{
		"event":      event,
		"raw":        raw,
		"normalized": code,
		"total":      total,
		"keys":       strings.Join(keys, ","),
	}).Info("room storage")
}

func participantFor(u models.User) (*Participant, error) {
	name := u.DisplayName()
	if name == "" {
		return nil, game.Validation("could not read your name")
	}
	return &Participant{
		ID:          game.User(u.ID),
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		DisplayName: name,
	}, nil
}
