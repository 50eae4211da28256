package engine

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/cluegrid/cluegrid/internal/clock"
	"github.com/cluegrid/cluegrid/internal/events"
	"github.com/cluegrid/cluegrid/internal/game"
)

// Session is the single-writer actor for one game. All public methods take
// the session lock; timer fires re-enter through the same lock, so a timeout
// and a last-instant buzz resolve deterministically by arrival order.
type Session struct {
	mu sync.Mutex

	game      *game.Game
	store     Store
	publisher Publisher
	clk       clockwork.Clock

	buzzTimer     *clock.Countdown
	responseTimer *clock.Countdown
	wagerTimer    *clock.Countdown

	// Generations of the currently-armed runs. A fire whose generation does
	// not match is stale (the clue it was armed for is gone) and is dropped.
	buzzGen     uint64
	responseGen uint64
	wagerGen    uint64

	// finalTimers holds the per-player response countdowns of the final
	// round, keyed by player id.
	finalTimers map[uuid.UUID]*clock.Countdown
	finalGens   map[uuid.UUID]uint64

	// publishCh feeds a single drain goroutine, so events within one
	// resolution reach the stream in emission order.
	publishCh   chan *events.GameEvent
	publishDone chan struct{}

	// roundEnded dedups the ROUND_ENDED emission for the current round.
	roundEnded bool
	closed     bool
}

func newSession(g *game.Game, store Store, publisher Publisher, clk clockwork.Clock) *Session {
	s := &Session{
		game:        g,
		store:       store,
		publisher:   publisher,
		clk:         clk,
		finalTimers: make(map[uuid.UUID]*clock.Countdown),
		finalGens:   make(map[uuid.UUID]uint64),
		publishCh:   make(chan *events.GameEvent, 256),
		publishDone: make(chan struct{}),
	}
	s.buzzTimer = clock.NewCountdown(clk, s.onBuzzElapsed)
	s.responseTimer = clock.NewCountdown(clk, s.onResponseElapsed)
	s.wagerTimer = clock.NewCountdown(clk, s.onWagerElapsed)
	go s.publishLoop()
	return s
}

// GameID returns the id of the session's game.
func (s *Session) GameID() uuid.UUID {
	return s.game.ID
}

// Snapshot marshals the current state under the lock.
func (s *Session) Snapshot() (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.Marshal(s.game)
}

func (s *Session) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.buzzTimer.Reset()
	s.responseTimer.Reset()
	s.wagerTimer.Reset()
	for _, t := range s.finalTimers {
		t.Reset()
	}
	close(s.publishDone)
}

// emitLocked enqueues an event on the session's publish queue without gating
// gameplay. A single goroutine drains the queue, so events keep their
// emission order on the stream; a full queue drops the event.
func (s *Session) emitLocked(eventType events.EventType, payload any) {
	if s.closed {
		return
	}
	event := events.New(s.game.ID, eventType, payload)
	select {
	case s.publishCh <- event:
	default:
		log.Warn().
			Str("game_id", event.GameID).
			Str("event_type", string(eventType)).
			Msg("publish queue full, dropping event")
	}
}

func (s *Session) publishLoop() {
	for {
		select {
		case event := <-s.publishCh:
			if err := s.publisher.Publish(context.Background(), event); err != nil {
				log.Error().
					Err(err).
					Str("game_id", event.GameID).
					Str("event_type", string(event.Type)).
					Msg("failed to publish event")
			}
		case <-s.publishDone:
			return
		}
	}
}

// rejectLocked reports a structured rejection to the originating caller as a
// discrete event and returns the error. State is never mutated on this path.
func (s *Session) rejectLocked(playerID uuid.UUID, err *game.Error) error {
	s.emitLocked(events.EventErrorOccurred, events.ErrorPayload{
		PlayerID: playerID.String(),
		Kind:     string(err.Kind),
		Code:     err.Code,
		Message:  err.Message,
		Context:  err.Context,
	})
	return err
}

// persistLocked journals a partial-field delta. Values are copied here, under
// the lock; the write itself is fire-and-forget and retried by the store.
func (s *Session) persistLocked() {
	delta := GameDelta{
		GameID:       s.game.ID,
		Status:       s.game.Status,
		CurrentRound: s.game.CurrentRound,
		Scores:       make(map[string]int, len(s.game.Players)),
		UpdatedAt:    time.Now().UTC(),
	}
	for id, p := range s.game.Players {
		delta.Scores[id.String()] = p.Score
	}
	if s.game.PlayerInControl != nil {
		v := s.game.PlayerInControl.String()
		delta.PlayerInControl = &v
	}
	if s.game.ActiveClueID != nil {
		v := s.game.ActiveClueID.String()
		delta.ActiveClueID = &v
	}
	go func() {
		if err := s.store.ApplyGameDelta(context.Background(), delta); err != nil {
			log.Error().
				Err(err).
				Str("game_id", delta.GameID.String()).
				Msg("failed to journal game delta")
		}
	}()
}

// Join adds or reconnects a player and announces it.
func (s *Session) Join(p *game.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.game.Players[p.ID]; ok {
		existing.Connected = true
		s.emitLocked(events.EventPlayerJoined, events.PlayerPayload{
			PlayerID: p.ID.String(), PlayerName: existing.Name,
		})
		return nil
	}
	if s.game.Status != game.GameStatusLobby {
		// Late joiners spectate; they never enter the turn rotation mid-game.
		p.Spectating = true
	}
	p.Connected = true
	p.Score = 0
	s.game.Players[p.ID] = p
	s.emitLocked(events.EventPlayerJoined, events.PlayerPayload{
		PlayerID: p.ID.String(), PlayerName: p.Name,
	})
	s.persistLocked()
	return nil
}

// Leave marks a player disconnected. Their score survives a reconnect.
func (s *Session) Leave(playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.game.Players[playerID]
	if !ok {
		return game.ErrPlayerNotFound
	}
	p.Connected = false
	s.emitLocked(events.EventPlayerLeft, events.PlayerPayload{
		PlayerID: playerID.String(), PlayerName: p.Name,
	})
	s.detachFromCluePathLocked(playerID)
	return nil
}

// SetSpectating toggles a player in or out of the contending set.
func (s *Session) SetSpectating(playerID uuid.UUID, spectating bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.game.Players[playerID]
	if !ok {
		return game.ErrPlayerNotFound
	}
	p.Spectating = spectating
	eventType := events.EventPlayerStoppedSpectating
	if spectating {
		eventType = events.EventPlayerWentSpectating
		s.detachFromCluePathLocked(playerID)
	}
	s.emitLocked(eventType, events.PlayerPayload{
		PlayerID: playerID.String(), PlayerName: p.Name,
	})
	return nil
}

// Start moves the game from lobby to the first round.
func (s *Session) Start(callerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if callerID != s.game.HostID {
		return s.rejectLocked(callerID, game.NewPrecondition("not_host", "only the host can start the game"))
	}
	if s.game.Status != game.GameStatusLobby {
		return s.rejectLocked(callerID, game.NewPrecondition("already_started", "game has already started"))
	}
	contenders := s.game.ContendingPlayers()
	if len(contenders) == 0 {
		return s.rejectLocked(callerID, game.NewPrecondition("no_players", "no connected players"))
	}

	s.game.Status = game.GameStatusInProgress
	s.game.CurrentRound = 0

	// Opening control goes to a random contender; later rounds re-derive it
	// from scores.
	sort.Slice(contenders, func(i, j int) bool {
		return contenders[i].ID.String() < contenders[j].ID.String()
	})
	pick := contenders[int(s.clk.Now().UnixNano())%len(contenders)].ID
	s.game.PlayerInControl = &pick

	s.emitLocked(events.EventRoundStarted, s.roundPayloadLocked())
	s.persistLocked()

	log.Info().
		Str("game_id", s.game.ID.String()).
		Str("in_control", pick.String()).
		Msg("game started")
	return nil
}

// roundPayloadLocked builds the shared round event payload.
func (s *Session) roundPayloadLocked() events.RoundPayload {
	payload := events.RoundPayload{
		Round:  s.game.CurrentRound,
		Scores: make(map[string]int, len(s.game.Players)),
	}
	if r := s.game.Round(); r != nil {
		payload.Kind = string(r.Kind)
	}
	if s.game.PlayerInControl != nil {
		payload.PlayerInControl = s.game.PlayerInControl.String()
	}
	for id, p := range s.game.Players {
		payload.Scores[id.String()] = p.Score
	}
	return payload
}

// detachFromCluePathLocked removes a departing player from the live clue
// flow: an answering slot is released as a timeout, control is re-derived.
func (s *Session) detachFromCluePathLocked(playerID uuid.UUID) {
	if s.game.PlayerAnswering != nil && *s.game.PlayerAnswering == playerID {
		s.resolveIncorrectLocked(playerID, "", true)
	}
	if s.game.PlayerInControl != nil && *s.game.PlayerInControl == playerID {
		s.deriveControlLocked()
		s.persistLocked()
	}
}

// deriveControlLocked hands control to the lowest-scoring contender. A tie
// that includes the current holder keeps it; otherwise the lowest player id
// among the tied wins, so the choice is deterministic.
func (s *Session) deriveControlLocked() {
	contenders := s.game.ContendingPlayers()
	if len(contenders) == 0 {
		s.game.PlayerInControl = nil
		return
	}
	sort.Slice(contenders, func(i, j int) bool {
		if contenders[i].Score != contenders[j].Score {
			return contenders[i].Score < contenders[j].Score
		}
		return contenders[i].ID.String() < contenders[j].ID.String()
	})
	low := contenders[0].Score
	if s.game.PlayerInControl != nil {
		if cur, ok := s.game.Players[*s.game.PlayerInControl]; ok && cur.Score == low && cur.Connected && !cur.Spectating {
			return
		}
	}
	pick := contenders[0].ID
	s.game.PlayerInControl = &pick
}

// startBuzzWindowLocked opens the board-wide buzz window for the active clue.
func (s *Session) startBuzzWindowLocked() {
	s.buzzTimer.Reset()
	gen, err := s.buzzTimer.Start(time.Duration(s.game.Settings.BuzzWindowSec) * time.Second)
	if err != nil {
		log.Error().Err(err).Str("game_id", s.game.ID.String()).Msg("failed to start buzz window")
		return
	}
	s.buzzGen = gen
}

// startResponseWindowLocked opens the answering player's personal window.
func (s *Session) startResponseWindowLocked() {
	s.responseTimer.Reset()
	gen, err := s.responseTimer.Start(time.Duration(s.game.Settings.ResponseWindowSec) * time.Second)
	if err != nil {
		log.Error().Err(err).Str("game_id", s.game.ID.String()).Msg("failed to start response window")
		return
	}
	s.responseGen = gen
}

// startWagerWindowLocked opens the wager window for a daily double or the
// final round.
func (s *Session) startWagerWindowLocked() {
	s.wagerTimer.Reset()
	gen, err := s.wagerTimer.Start(time.Duration(s.game.Settings.WagerWindowSec) * time.Second)
	if err != nil {
		log.Error().Err(err).Str("game_id", s.game.ID.String()).Msg("failed to start wager window")
		return
	}
	s.wagerGen = gen
}

// dismissClueLocked retires the active clue: timers cancelled, per-activation
// sets discarded, round-end announced when the board is exhausted.
func (s *Session) dismissClueLocked() {
	clue := s.game.ActiveClue()
	s.buzzTimer.Reset()
	s.responseTimer.Reset()
	s.wagerTimer.Reset()
	s.buzzGen, s.responseGen, s.wagerGen = 0, 0, 0
	if clue != nil {
		clue.ClearActiveSets()
	}
	s.game.ActiveClueID = nil
	s.game.PlayerAnswering = nil
	if !s.game.InFinalRound() {
		s.game.Wager = nil
	}

	if r := s.game.Round(); r != nil && r.Complete() && !s.roundEnded {
		s.roundEnded = true
		s.emitLocked(events.EventRoundEnded, s.roundPayloadLocked())
	}
	s.persistLocked()
}

// finishGameLocked ends the match and updates lifetime statistics. The final
// wager state survives so the host can still override a judgement; everything
// else about the live clue is retired.
func (s *Session) finishGameLocked() {
	now := time.Now().UTC()
	s.game.Status = game.GameStatusFinished
	s.game.FinishedAt = &now

	s.buzzTimer.Reset()
	s.responseTimer.Reset()
	s.wagerTimer.Reset()
	s.buzzGen, s.responseGen, s.wagerGen = 0, 0, 0
	if clue := s.game.ActiveClue(); clue != nil {
		clue.ClearActiveSets()
	}
	s.game.ActiveClueID = nil
	s.game.PlayerAnswering = nil

	var winner *game.Player
	scores := make(map[string]int, len(s.game.Players))
	for id, p := range s.game.Players {
		scores[id.String()] = p.Score
		if !p.Spectating && (winner == nil || p.Score > winner.Score) {
			winner = p
		}
	}

	payload := events.GameFinishedPayload{Scores: scores, FinishedAt: now}
	for _, p := range s.game.Players {
		if p.Spectating {
			continue
		}
		p.Stats.GamesPlayed++
		if p.Score > p.Stats.HighestGameScore {
			p.Stats.HighestGameScore = p.Score
		}
		if winner != nil && p.ID == winner.ID {
			p.Stats.GamesWon++
			payload.WinnerID = p.ID.String()
		}
		player := p
		go func() {
			if err := s.store.SavePlayer(context.Background(), player); err != nil {
				log.Error().Err(err).Str("player_id", player.ID.String()).Msg("failed to save player stats")
			}
		}()
	}

	s.emitLocked(events.EventGameFinished, payload)
	s.persistLocked()

	log.Info().
		Str("game_id", s.game.ID.String()).
		Str("winner", payload.WinnerID).
		Msg("game finished")
}
