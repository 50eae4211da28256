package engine

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cluegrid/cluegrid/internal/answer"
	"github.com/cluegrid/cluegrid/internal/clock"
	"github.com/cluegrid/cluegrid/internal/events"
	"github.com/cluegrid/cluegrid/internal/game"
)

// beginFinalRoundLocked snapshots wager eligibility and reveals the category.
// Players with score <= 0 at the round boundary are excluded outright, and a
// later override never changes the snapshot.
func (s *Session) beginFinalRoundLocked() {
	round := s.game.Round()
	clue := round.Categories[0].Clues[0]
	clue.Played = true
	clue.ResetActiveSets()
	id := clue.ID
	s.game.ActiveClueID = &id
	s.game.PlayerInControl = nil
	s.game.PlayerAnswering = nil

	w := &game.WagerState{
		ClueID:   clue.ID,
		Eligible: make(map[uuid.UUID]bool),
		Wagers:   make(map[uuid.UUID]int),
		Answers:  make(map[uuid.UUID]*game.FinalAnswer),
	}
	for _, p := range s.game.ContendingPlayers() {
		if p.Score > 0 {
			w.Eligible[p.ID] = true
		}
	}
	s.game.Wager = w

	if len(w.Eligible) == 0 {
		// Nobody can wager; the match resolves on current scores.
		s.finishGameLocked()
		return
	}
	s.startWagerWindowLocked()
}

// SubmitWager records a wager for a daily double or the final round.
func (s *Session) SubmitWager(callerID uuid.UUID, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.game.Wager
	if w == nil {
		return s.rejectLocked(callerID, game.NewPrecondition("no_wager", "no wager is pending"))
	}
	if s.game.InFinalRound() {
		return s.submitFinalWagerLocked(callerID, amount)
	}

	if w.PendingPlayer == nil || *w.PendingPlayer != callerID {
		return s.rejectLocked(callerID, game.NewPrecondition("not_your_wager", "you have no pending wager"))
	}
	if w.Revealed {
		return s.rejectLocked(callerID, game.NewPrecondition("already_wagered", "the question is already revealed"))
	}
	min, max := s.game.WagerRange(callerID)
	if amount < min || amount > max {
		return s.rejectLocked(callerID, game.NewValidation("wager_range", "wager out of range").
			With("min", strconv.Itoa(min)).
			With("max", strconv.Itoa(max)))
	}

	if w.Wagers == nil {
		w.Wagers = make(map[uuid.UUID]int)
	}
	w.Wagers[callerID] = amount
	w.Revealed = true
	s.wagerTimer.Reset()
	s.wagerGen = 0

	// On a daily double only the selector answers; there is no buzz race.
	answering := callerID
	s.game.PlayerAnswering = &answering
	s.startResponseWindowLocked()

	s.emitLocked(events.EventPlayerWagered, events.WageredPayload{
		PlayerID: callerID.String(),
		ClueID:   w.ClueID.String(),
		Amount:   amount,
	})
	s.persistLocked()
	return nil
}

func (s *Session) submitFinalWagerLocked(callerID uuid.UUID, amount int) error {
	w := s.game.Wager
	if !w.Eligible[callerID] {
		return s.rejectLocked(callerID, game.NewPrecondition("not_eligible", "you are not eligible to wager"))
	}
	if _, ok := w.Wagers[callerID]; ok {
		return s.rejectLocked(callerID, game.NewPrecondition("already_wagered", "you already wagered"))
	}
	if w.Revealed {
		return s.rejectLocked(callerID, game.NewPrecondition("revealed", "wagering is closed"))
	}
	min, max := s.game.WagerRange(callerID)
	if amount < min || amount > max {
		return s.rejectLocked(callerID, game.NewValidation("wager_range", "wager out of range").
			With("min", strconv.Itoa(min)).
			With("max", strconv.Itoa(max)))
	}

	w.Wagers[callerID] = amount
	// Final-round amounts stay hidden until the round resolves.
	s.emitLocked(events.EventPlayerWagered, events.WageredPayload{
		PlayerID: callerID.String(),
		ClueID:   w.ClueID.String(),
		Hidden:   true,
	})

	if w.AllWagered() {
		s.revealFinalClueLocked()
	}
	return nil
}

// revealFinalClueLocked opens every eligible player's personal response
// window at once.
func (s *Session) revealFinalClueLocked() {
	w := s.game.Wager
	w.Revealed = true
	s.wagerTimer.Reset()
	s.wagerGen = 0

	duration := time.Duration(s.game.Settings.ResponseWindowSec) * time.Second
	for id := range w.Eligible {
		playerID := id
		t := clock.NewCountdown(s.clk, func(gen uint64) {
			s.onFinalResponseElapsed(playerID, gen)
		})
		gen, err := t.Start(duration)
		if err != nil {
			log.Error().Err(err).Str("player_id", playerID.String()).Msg("failed to start final response window")
			continue
		}
		s.finalTimers[playerID] = t
		s.finalGens[playerID] = gen
	}

	clue := s.game.ActiveClue()
	s.emitLocked(events.EventWaitingPeriodEnded, events.PeriodEndedPayload{
		ClueID: clue.ID.String(),
		Answer: clue.Question,
	})
	s.persistLocked()
}

func (s *Session) submitFinalAnswerLocked(callerID uuid.UUID, submitted string) error {
	w := s.game.Wager
	if w == nil || !w.Revealed {
		return s.rejectLocked(callerID, game.NewPrecondition("not_revealed", "the final clue is not revealed"))
	}
	if !w.Eligible[callerID] {
		return s.rejectLocked(callerID, game.NewPrecondition("not_eligible", "you are not eligible to answer"))
	}
	if _, ok := w.Answers[callerID]; ok {
		return s.rejectLocked(callerID, game.NewPrecondition("already_answered", "you already answered"))
	}

	if t, ok := s.finalTimers[callerID]; ok {
		t.Reset()
		delete(s.finalTimers, callerID)
		delete(s.finalGens, callerID)
	}
	s.judgeFinalAnswerLocked(callerID, submitted)

	if w.AllAnswered() {
		s.resolveFinalRoundLocked()
	}
	return nil
}

// judgeFinalAnswerLocked scores one final-round submission.
func (s *Session) judgeFinalAnswerLocked(playerID uuid.UUID, submitted string) {
	w := s.game.Wager
	clue := s.game.ActiveClue()
	correct := submitted != "" && answer.IsCorrect(clue.Answer, submitted)
	wager := w.Wagers[playerID]
	delta := wager
	if !correct {
		delta = -wager
	}

	p := s.game.Players[playerID]
	p.Score += delta
	p.Stats.FinalRoundsAnswered++
	if correct {
		p.Stats.FinalRoundsCorrect++
	}
	w.Answers[playerID] = &game.FinalAnswer{Answer: submitted, Correct: correct, Judged: true}

	s.emitLocked(events.EventPlayerAnswered, events.AnsweredPayload{
		PlayerID:   playerID.String(),
		ClueID:     clue.ID.String(),
		Answer:     submitted,
		Correct:    correct,
		ScoreDelta: delta,
		NewScore:   p.Score,
		AnsweredAt: time.Now().UTC(),
	})
}

// resolveFinalRoundLocked ends the match once every eligible player has both
// wagered and answered.
func (s *Session) resolveFinalRoundLocked() {
	for _, t := range s.finalTimers {
		t.Reset()
	}
	s.finalTimers = make(map[uuid.UUID]*clock.Countdown)
	s.finalGens = make(map[uuid.UUID]uint64)

	s.emitLocked(events.EventRoundEnded, s.roundPayloadLocked())
	s.finishGameLocked()
}

// onBuzzElapsed fires when the board-wide buzz window runs out.
func (s *Session) onBuzzElapsed(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.buzzGen {
		return // stale fire for a dismissed clue
	}
	clue := s.game.ActiveClue()
	if clue == nil {
		return
	}
	s.buzzGen = 0
	s.emitLocked(events.EventBuzzingPeriodEnded, events.PeriodEndedPayload{
		ClueID:    clue.ID.String(),
		Dismissed: true,
		Answer:    clue.Answer,
	})
	s.dismissClueLocked()
}

// onResponseElapsed fires when the answering player's window runs out; it is
// scored as an incorrect empty answer.
func (s *Session) onResponseElapsed(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.responseGen {
		return
	}
	clue := s.game.ActiveClue()
	if clue == nil || s.game.PlayerAnswering == nil {
		return
	}
	callerID := *s.game.PlayerAnswering
	s.responseGen = 0

	value := s.clueValueLocked(clue, callerID)
	p := s.game.Players[callerID]
	p.Stats.CluesAnswered++
	p.Score -= value
	s.emitLocked(events.EventPlayerAnswered, events.AnsweredPayload{
		PlayerID:   callerID.String(),
		ClueID:     clue.ID.String(),
		Correct:    false,
		ScoreDelta: -value,
		NewScore:   p.Score,
		AnsweredAt: time.Now().UTC(),
	})
	s.resolveIncorrectLocked(callerID, "", true)
}

// onWagerElapsed closes an overdue wager window: a daily double falls back
// to the minimum wager, the final round fills missing wagers with zero.
func (s *Session) onWagerElapsed(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.wagerGen {
		return
	}
	w := s.game.Wager
	if w == nil || w.Revealed {
		return
	}
	s.wagerGen = 0

	if s.game.InFinalRound() {
		for id := range w.Eligible {
			if _, ok := w.Wagers[id]; !ok {
				w.Wagers[id] = 0
			}
		}
		s.revealFinalClueLocked()
		return
	}

	if w.PendingPlayer != nil {
		min, _ := s.game.WagerRange(*w.PendingPlayer)
		w.Wagers = map[uuid.UUID]int{*w.PendingPlayer: min}
		w.Revealed = true
		answering := *w.PendingPlayer
		s.game.PlayerAnswering = &answering
		s.startResponseWindowLocked()
		s.emitLocked(events.EventPlayerWagered, events.WageredPayload{
			PlayerID: answering.String(),
			ClueID:   w.ClueID.String(),
			Amount:   min,
		})
		s.persistLocked()
	}
}

// onFinalResponseElapsed judges a silent final-round player once their
// personal window runs out.
func (s *Session) onFinalResponseElapsed(playerID uuid.UUID, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.finalGens[playerID] != gen {
		return
	}
	w := s.game.Wager
	if w == nil || !w.Revealed {
		return
	}
	if _, ok := w.Answers[playerID]; ok {
		return
	}
	delete(s.finalTimers, playerID)
	delete(s.finalGens, playerID)

	s.judgeFinalAnswerLocked(playerID, "")
	s.emitLocked(events.EventResponsePeriodEnded, events.PeriodEndedPayload{
		ClueID:   w.ClueID.String(),
		PlayerID: playerID.String(),
	})
	if w.AllAnswered() {
		s.resolveFinalRoundLocked()
	}
}
