// internal/offline/store.go
package offline

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/spyparty/internal/game"
	"github.com/jason-s-yu/spyparty/internal/models"
)

// Options tunes a Store. The zero value is usable.
type Options struct {
	// TTL is the lifetime of a session; game.AppTTL when zero.
	TTL time.Duration
	// DebugRandom logs the dealt spy seats at debug level.
	DebugRandom bool
	// OnRoundDealt is called after every successful deal with the store lock
	// held. It must not block or call back into the store.
	OnRoundDealt func(models.RoundRecord)
}

// StartParams is the client request for a new session.
type StartParams struct {
	Mode        string
	PlayerCount int
	// Allowed restricts random mode. nil means "not supplied".
	Allowed      []string
	TimerEnabled bool
	TurnSeconds  *int
}

// Store keeps offline sessions in memory. Every operation holds the single
// store mutex for its whole read-modify-write.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

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
	return &Store{
		sessions: make(map[string]*Session),
		dealer:   dealer,
		clock:    clock,
		log:      logger,
		opts:     opts,
	}
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Start validates p, deals roles and registers a new session owned by ownerID.
func (st *Store) Start(ownerID string, p StartParams) (Summary, error) {
	if p.PlayerCount < game.MinPlayers || p.PlayerCount > game.MaxPlayers {
		return Summary{}, game.InvalidConfiguration("player count must be between %d and %d", game.MinPlayers, game.MaxPlayers)
	}
	mode, err := game.ParseMode(p.Mode)
	if err != nil {
		return Summary{}, err
	}
	var allowed []game.Scenario
	if mode == game.ModeRandom && p.Allowed != nil {
		allowed = game.ToScenarios(p.Allowed)
		if len(allowed) < 2 {
			return Summary{}, game.InvalidConfiguration("choose at least two modes")
		}
	}
	timer, err := game.NewTimer(p.TimerEnabled, p.TurnSeconds)
	if err != nil {
		return Summary{}, err
	}

	s := &Session{
		ID:          strings.ReplaceAll(uuid.NewString(), "-", ""),
		OwnerID:     ownerID,
		Mode:        mode,
		Allowed:     allowed,
		PlayerCount: p.PlayerCount,
		CurrentSeat: 1,
		Timer:       timer,
		Phase:       game.PhaseRevealing,
		CreatedAt:   st.clock.Now(),
	}
	s.TurnOrder = defaultOrder(s.PlayerCount)

	st.mu.Lock()
	defer st.mu.Unlock()

	if err := st.deal(s, false); err != nil {
		return Summary{}, err
	}
	st.sessions[s.ID] = s
	st.log.WithFields(logrus.Fields{"session": s.ID, "players": s.PlayerCount, "mode": s.Mode}).Info("offline session started")
	return s.summary(), nil
}

// Reveal returns the role of the seat currently holding the device.
func (st *Store) Reveal(id, callerID string) (Reveal, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, err := st.owned(id, callerID)
	if err != nil {
		return Reveal{}, err
	}
	card, ok := s.Roles.SecretOf(game.Seat(s.CurrentSeat))
	return Reveal{Seat: s.CurrentSeat, Spy: !ok, Card: card}, nil
}

// Close hides the current seat's role. After the last seat it draws the
// starting seat and moves the session to the turn loop (or straight to
// finished when the timer is off).
func (st *Store) Close(id, callerID string) (CloseResult, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, err := st.owned(id, callerID)
	if err != nil {
		return CloseResult{}, err
	}
	if s.CurrentSeat < s.PlayerCount {
		s.CurrentSeat++
		return CloseResult{NextSeat: s.CurrentSeat}, nil
	}

	starter := st.dealer.Random().IntN(s.PlayerCount) + 1
	s.StarterSeat = starter
	s.TurnStartedAt = time.Time{}
	s.TurnActive = false
	if s.Timer.Enabled {
		st.repairOrder(s)
		s.Phase = game.PhaseReady
		s.TurnIndex = max(0, slices.Index(s.TurnOrder, starter))
		s.TurnsCompleted = false
	} else {
		s.Phase = game.PhaseFinished
		s.TurnIndex = 0
		s.TurnsCompleted = true
	}
	return CloseResult{Finished: true, StarterSeat: starter}, nil
}

// Restart re-deals with the same settings and rewinds to the first seat.
func (st *Store) Restart(id, callerID string) (Summary, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, err := st.owned(id, callerID)
	if err != nil {
		return Summary{}, err
	}
	if err := st.deal(s, true); err != nil {
		return Summary{}, err
	}
	s.CurrentSeat = 1
	s.Phase = game.PhaseRevealing
	s.TurnIndex = 0
	s.TurnStartedAt = time.Time{}
	s.TurnActive = false
	s.TurnsCompleted = false
	s.StarterSeat = 0
	return s.summary(), nil
}

// TurnStatus advances the turn clock to now and reports it.
func (st *Store) TurnStatus(id, callerID string) (TurnStatus, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, err := st.owned(id, callerID)
	if err != nil {
		return TurnStatus{}, err
	}
	st.advance(s)
	return st.status(s), nil
}

// TurnStart starts (or keeps running) the timed turn loop.
func (st *Store) TurnStart(id, callerID string) (TurnStatus, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, err := st.owned(id, callerID)
	if err != nil {
		return TurnStatus{}, err
	}
	if !s.Timer.Enabled || !st.normalize(s) {
		return TurnStatus{}, game.InvalidState("timer disabled")
	}
	switch s.Phase {
	case game.PhaseFinished:
		return TurnStatus{}, game.InvalidState("game already finished")
	case game.PhaseReady, game.PhaseActive:
	default:
		return TurnStatus{}, game.InvalidState("finish dealing roles first")
	}

	s.Phase = game.PhaseActive
	s.TurnActive = true
	if s.TurnStartedAt.IsZero() {
		s.TurnStartedAt = st.clock.Now()
	}
	st.advance(s)
	return st.status(s), nil
}

// TurnFinish ends the turn loop.
func (st *Store) TurnFinish(id, callerID string) (TurnStatus, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, err := st.owned(id, callerID)
	if err != nil {
		return TurnStatus{}, err
	}
	if !s.Timer.Enabled {
		return TurnStatus{}, game.InvalidState("timer disabled")
	}
	if s.Phase == game.PhaseRevealing {
		return TurnStatus{}, game.InvalidState("finish dealing roles first")
	}
	s.Phase = game.PhaseFinished
	s.TurnActive = false
	s.TurnStartedAt = time.Time{}
	s.TurnsCompleted = true
	return st.status(s), nil
}

// Expire deletes sessions older than the TTL and returns how many were removed.
func (st *Store) Expire() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.clock.Now()
	removed := 0
	for id, s := range st.sessions {
		if now.Sub(s.CreatedAt) > st.opts.TTL {
			delete(st.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		st.log.WithField("count", removed).Debug("expired offline sessions")
	}
	return removed
}

func (st *Store) owned(id, callerID string) (*Session, error) {
	s, ok := st.sessions[id]
	if !ok {
		return nil, game.NotFound("session not found")
	}
	if s.OwnerID != callerID {
		return nil, game.Forbidden("forbidden")
	}
	return s, nil
}

func (st *Store) deal(s *Session, restart bool) error {
	roles, err := st.dealer.Deal(s.seats(), s.Mode, s.Allowed)
	if err != nil {
		return err
	}
	s.Roles = roles

	log := st.log.WithField("session", s.ID)
	if st.opts.DebugRandom {
		log.WithFields(logrus.Fields{"players": s.PlayerCount, "spies": roles.Spies, "scenario": roles.Scenario}).Debug("roles dealt")
	}
	if st.opts.OnRoundDealt != nil {
		st.opts.OnRoundDealt(models.RoundRecord{
			Kind:        models.RoundOffline,
			Session:     s.ID,
			Mode:        string(s.Mode),
			Scenario:    string(roles.Scenario),
			PlayerCount: s.PlayerCount,
			SpyCount:    len(roles.Spies),
			Restart:     restart,
			DealtAt:     st.clock.Now(),
		})
	}
	return nil
}

// normalize repairs timer and turn order state and reports whether the turn
// timer can run.
func (st *Store) normalize(s *Session) bool {
	if !s.Timer.Enabled {
		s.Timer = game.Timer{}
		s.TurnStartedAt = time.Time{}
		s.TurnActive = false
		s.TurnsCompleted = s.Phase == game.PhaseFinished
		return false
	}
	if fixed, repaired := s.Timer.Repair(); repaired {
		st.log.WithFields(logrus.Fields{"session": s.ID, "turn_seconds": s.Timer.Seconds}).
			Warnf("invalid turn time, using default=%d", game.DefaultTurnSeconds)
		s.Timer = fixed
	}
	st.repairOrder(s)
	if len(s.TurnOrder) == 0 {
		s.TurnsCompleted = true
		s.TurnActive = false
		s.Phase = game.PhaseFinished
		s.TurnStartedAt = time.Time{}
		return false
	}
	return true
}

// repairOrder rebuilds an empty turn order and clamps the turn index.
func (st *Store) repairOrder(s *Session) {
	log := st.log.WithField("session", s.ID)
	if len(s.TurnOrder) == 0 {
		if s.PlayerCount <= 0 {
			log.WithField("players", s.PlayerCount).Error("invalid player count, falling back to a single seat")
			s.TurnOrder = []int{1}
		} else {
			s.TurnOrder = defaultOrder(s.PlayerCount)
		}
		s.TurnIndex = 0
		log.WithField("order", s.TurnOrder).Warn("empty turn order rebuilt")
	}
	if idx, repaired := game.ClampIndex(s.TurnIndex, len(s.TurnOrder)); repaired {
		log.WithFields(logrus.Fields{"index": s.TurnIndex, "total": len(s.TurnOrder)}).
			Warnf("turn index out of range, clamped to %d", idx)
		s.TurnIndex = idx
	}
}

func (st *Store) advance(s *Session) {
	if s.Phase != game.PhaseActive || !s.TurnActive {
		return
	}
	if !st.normalize(s) || s.TurnStartedAt.IsZero() {
		return
	}
	clock := game.TurnClock{
		Index:     s.TurnIndex,
		Length:    len(s.TurnOrder),
		StartedAt: s.TurnStartedAt,
		Period:    s.Timer.Period(),
	}
	next, steps := clock.Advance(st.clock.Now())
	if steps == 0 {
		return
	}
	s.TurnIndex = next.Index
	s.TurnStartedAt = next.StartedAt
	st.log.WithFields(logrus.Fields{"session": s.ID, "index": s.TurnIndex}).Info("offline turn advanced")
}

func (st *Store) status(s *Session) TurnStatus {
	st.repairOrder(s)
	s.TurnsCompleted = s.Phase == game.PhaseFinished
	return TurnStatus{
		TimerOn:        s.Timer.Enabled,
		TurnSeconds:    s.Timer.SecondsPtr(),
		TurnActive:     s.TurnActive,
		Phase:          s.Phase,
		TurnIndex:      s.TurnIndex,
		CurrentSeat:    s.currentTurnSeat(),
		TurnStartedAt:  unixSeconds(s.TurnStartedAt),
		TurnsCompleted: s.TurnsCompleted,
	}
}

func defaultOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i + 1
	}
	return order
}
