package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cluegrid/cluegrid/internal/answer"
	"github.com/cluegrid/cluegrid/internal/clock"
	"github.com/cluegrid/cluegrid/internal/events"
	"github.com/cluegrid/cluegrid/internal/game"
)

// SelectClue activates an unplayed clue. Only the player in control may
// select, and only while no clue is active.
func (s *Session) SelectClue(callerID, categoryID, clueID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game.Status != game.GameStatusInProgress {
		return s.rejectLocked(callerID, game.NewPrecondition("wrong_phase", "game is not in progress"))
	}
	if s.game.InFinalRound() {
		return s.rejectLocked(callerID, game.NewPrecondition("final_round", "clues are not selected in the final round"))
	}
	if s.game.PlayerInControl == nil || *s.game.PlayerInControl != callerID {
		return s.rejectLocked(callerID, game.NewPrecondition("not_in_control", "only the player in control selects clues"))
	}
	if s.game.ActiveClueID != nil {
		return s.rejectLocked(callerID, game.NewPrecondition("clue_active", "a clue is already active"))
	}
	round := s.game.Round()
	if round == nil {
		return s.rejectLocked(callerID, game.NewNotFound("round", "no current round"))
	}
	clue := round.FindClue(categoryID, clueID)
	if clue == nil {
		return s.rejectLocked(callerID, game.NewNotFound("clue", "unknown clue").
			With("category_id", categoryID.String()).
			With("clue_id", clueID.String()))
	}
	if clue.Played {
		return s.rejectLocked(callerID, game.NewPrecondition("clue_played", "clue has already been played"))
	}

	clue.Played = true
	clue.ResetActiveSets()
	id := clue.ID
	s.game.ActiveClueID = &id

	payload := events.SelectedCluePayload{
		PlayerID:   callerID.String(),
		CategoryID: categoryID.String(),
		ClueID:     clueID.String(),
		Value:      clue.Value,
		SelectedAt: time.Now().UTC(),
	}

	if round.IsDailyDouble(clue.ID) {
		// The question stays hidden until the selector wagers.
		pending := callerID
		s.game.Wager = &game.WagerState{ClueID: clue.ID, PendingPlayer: &pending}
		payload.DailyDouble = true
		s.startWagerWindowLocked()
	} else {
		payload.Question = clue.Question
		s.startBuzzWindowLocked()
	}

	s.emitLocked(events.EventPlayerSelectedClue, payload)
	s.persistLocked()
	return nil
}

// BuzzIn races for the answering slot. The first buzz processed wins the
// slot; later buzzes for the same activation still burn the caller's attempt.
func (s *Session) BuzzIn(callerID, categoryID, clueID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clue := s.game.ActiveClue()
	if clue == nil || clue.ID != clueID || clue.CategoryID != categoryID {
		return s.rejectLocked(callerID, game.NewPrecondition("no_active_clue", "that clue is not active"))
	}
	p, ok := s.game.Players[callerID]
	if !ok {
		return s.rejectLocked(callerID, game.NewNotFound("player", "unknown player"))
	}
	if p.Spectating || !p.Connected {
		return s.rejectLocked(callerID, game.NewPrecondition("spectating", "spectators cannot buzz in"))
	}
	if s.game.InFinalRound() || (s.game.Wager != nil && s.game.Wager.PendingPlayer != nil) {
		return s.rejectLocked(callerID, game.NewPrecondition("no_buzzing", "buzzing does not apply to this clue"))
	}
	if s.game.PlayerAnswering != nil && *s.game.PlayerAnswering == callerID {
		return s.rejectLocked(callerID, game.NewPrecondition("already_answering", "you are already answering"))
	}
	if clue.PlayersAttempted[callerID] {
		return s.rejectLocked(callerID, game.NewPrecondition("already_attempted", "you already attempted this clue"))
	}
	if s.game.PlayerAnswering == nil && s.buzzTimer.State() != clock.StateRunning {
		return s.rejectLocked(callerID, game.NewPrecondition("window_closed", "the buzz window is not open"))
	}

	clue.PlayersAttempted[callerID] = true
	if s.game.PlayerAnswering == nil {
		// First writer wins the slot; the board clock freezes while they answer.
		winner := callerID
		s.game.PlayerAnswering = &winner
		if err := s.buzzTimer.Pause(); err != nil {
			log.Warn().Err(err).Str("game_id", s.game.ID.String()).Msg("buzz timer pause out of state")
		}
		s.startResponseWindowLocked()
	}

	s.emitLocked(events.EventPlayerBuzzed, events.BuzzedPayload{
		PlayerID: callerID.String(),
		ClueID:   clue.ID.String(),
		BuzzedAt: time.Now().UTC(),
	})
	return nil
}

// SubmitAnswer judges the answering player's response. Final-round answers
// take the separate path in final.go.
func (s *Session) SubmitAnswer(callerID uuid.UUID, submitted string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game.InFinalRound() {
		return s.submitFinalAnswerLocked(callerID, submitted)
	}
	if s.game.PlayerAnswering == nil || *s.game.PlayerAnswering != callerID {
		return s.rejectLocked(callerID, game.NewPrecondition("not_answering", "it is not your turn to answer"))
	}
	clue := s.game.ActiveClue()
	if clue == nil {
		return s.rejectLocked(callerID, game.NewPrecondition("no_active_clue", "no clue is active"))
	}

	s.responseTimer.Reset()
	s.responseGen = 0

	correct := answer.IsCorrect(clue.Answer, submitted)
	value := s.clueValueLocked(clue, callerID)
	p := s.game.Players[callerID]
	dailyDouble := s.game.Wager != nil && s.game.Wager.PendingPlayer != nil

	p.Stats.CluesAnswered++
	if dailyDouble {
		p.Stats.DailyDoublesAnswered++
	}

	if correct {
		p.Score += value
		p.Stats.CluesCorrect++
		if dailyDouble {
			p.Stats.DailyDoublesCorrect++
		}
		winner := callerID
		s.game.PlayerInControl = &winner
		s.game.PlayerAnswering = nil

		s.emitLocked(events.EventPlayerAnswered, events.AnsweredPayload{
			PlayerID:   callerID.String(),
			ClueID:     clue.ID.String(),
			Answer:     submitted,
			Correct:    true,
			ScoreDelta: value,
			NewScore:   p.Score,
			AnsweredAt: time.Now().UTC(),
		})
		s.emitLocked(events.EventResponsePeriodEnded, events.PeriodEndedPayload{
			ClueID:    clue.ID.String(),
			PlayerID:  callerID.String(),
			Dismissed: true,
		})
		s.dismissClueLocked()
		return nil
	}

	p.Score -= value
	s.emitLocked(events.EventPlayerAnswered, events.AnsweredPayload{
		PlayerID:   callerID.String(),
		ClueID:     clue.ID.String(),
		Answer:     submitted,
		Correct:    false,
		ScoreDelta: -value,
		NewScore:   p.Score,
		AnsweredAt: time.Now().UTC(),
	})
	s.resolveIncorrectLocked(callerID, submitted, false)
	return nil
}

// clueValueLocked returns what the clue is worth to a player: the recorded
// wager on a daily double, the face value otherwise.
func (s *Session) clueValueLocked(clue *game.Clue, playerID uuid.UUID) int {
	if s.game.Wager != nil && s.game.Wager.ClueID == clue.ID {
		if amount, ok := s.game.Wager.Wagers[playerID]; ok {
			return amount
		}
	}
	return clue.Value
}

// resolveIncorrectLocked handles the aftermath of a wrong answer or expired
// response window: reopen the buzz window with the frozen remainder, unless
// every contender has attempted or it was a daily double.
func (s *Session) resolveIncorrectLocked(callerID uuid.UUID, submitted string, timedOut bool) {
	clue := s.game.ActiveClue()
	if clue == nil {
		return
	}
	s.game.PlayerAnswering = nil
	s.responseTimer.Reset()
	s.responseGen = 0

	dailyDouble := s.game.Wager != nil && s.game.Wager.PendingPlayer != nil

	if timedOut {
		s.emitLocked(events.EventResponsePeriodEnded, events.PeriodEndedPayload{
			ClueID:   clue.ID.String(),
			PlayerID: callerID.String(),
		})
	}

	exhausted := dailyDouble
	if !exhausted {
		exhausted = true
		for _, p := range s.game.ContendingPlayers() {
			if !clue.PlayersAttempted[p.ID] {
				exhausted = false
				break
			}
		}
	}
	if exhausted {
		s.emitLocked(events.EventBuzzingPeriodEnded, events.PeriodEndedPayload{
			ClueID:    clue.ID.String(),
			Dismissed: true,
			Answer:    clue.Answer,
		})
		s.dismissClueLocked()
		return
	}

	if err := s.buzzTimer.Resume(s.buzzTimer.Remaining()); err != nil {
		// The window had already elapsed while frozen state was impossible;
		// fall back to dismissing.
		log.Warn().Err(err).Str("game_id", s.game.ID.String()).Msg("could not reopen buzz window")
		s.emitLocked(events.EventBuzzingPeriodEnded, events.PeriodEndedPayload{
			ClueID:    clue.ID.String(),
			Dismissed: true,
		})
		s.dismissClueLocked()
		return
	}
	s.persistLocked()
}

// VoteToSkip registers a skip vote; at quorum the clue is force-dismissed.
func (s *Session) VoteToSkip(callerID uuid.UUID) error {
	return s.vote(callerID, false)
}

// MarkInvalid registers an invalid-clue vote; at quorum the clue is
// force-dismissed with no scoring.
func (s *Session) MarkInvalid(callerID uuid.UUID) error {
	return s.vote(callerID, true)
}

func (s *Session) vote(callerID uuid.UUID, invalid bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clue := s.game.ActiveClue()
	if clue == nil {
		return s.rejectLocked(callerID, game.NewPrecondition("no_active_clue", "no clue is active"))
	}
	p, ok := s.game.Players[callerID]
	if !ok {
		return s.rejectLocked(callerID, game.NewNotFound("player", "unknown player"))
	}
	if p.Spectating || !p.Connected {
		return s.rejectLocked(callerID, game.NewPrecondition("spectating", "spectators cannot vote"))
	}

	set := clue.PlayersVotingToSkip
	eventType := events.EventPlayerVotedToSkipClue
	if invalid {
		set = clue.PlayersMarkingInvalid
		eventType = events.EventPlayerMarkedInvalid
	}
	if set[callerID] {
		return s.rejectLocked(callerID, game.NewPrecondition("already_voted", "you already voted on this clue"))
	}
	set[callerID] = true

	quorum := len(s.game.ContendingPlayers())
	dismissed := len(set) >= quorum
	s.emitLocked(eventType, events.VotePayload{
		PlayerID:  callerID.String(),
		ClueID:    clue.ID.String(),
		Votes:     len(set),
		Quorum:    quorum,
		Dismissed: dismissed,
	})
	if dismissed {
		s.emitLocked(events.EventBuzzingPeriodEnded, events.PeriodEndedPayload{
			ClueID:    clue.ID.String(),
			Dismissed: true,
		})
		s.dismissClueLocked()
	}
	return nil
}

// MarkReady records a player as ready for the next round; once every
// contender is ready and the board is exhausted the round advances.
func (s *Session) MarkReady(callerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game.Status != game.GameStatusInProgress {
		return s.rejectLocked(callerID, game.NewPrecondition("wrong_phase", "game is not in progress"))
	}
	p, ok := s.game.Players[callerID]
	if !ok || p.Spectating {
		return s.rejectLocked(callerID, game.NewPrecondition("not_contending", "only contending players mark ready"))
	}
	round := s.game.Round()
	if round == nil || !round.Complete() {
		return s.rejectLocked(callerID, game.NewPrecondition("round_incomplete", "the round is not finished"))
	}
	s.game.ReadyForNext[callerID] = true

	for _, c := range s.game.ContendingPlayers() {
		if !s.game.ReadyForNext[c.ID] {
			return nil
		}
	}
	return s.advanceRoundLocked()
}

// AdvanceRound moves to the next round. The host may force it; anyone else
// needs the current board exhausted.
func (s *Session) AdvanceRound(callerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game.Status != game.GameStatusInProgress {
		return s.rejectLocked(callerID, game.NewPrecondition("wrong_phase", "game is not in progress"))
	}
	round := s.game.Round()
	hostForced := callerID == s.game.HostID
	if !hostForced && (round == nil || !round.Complete()) {
		return s.rejectLocked(callerID, game.NewPrecondition("round_incomplete", "the round is not finished"))
	}
	if hostForced && round != nil && !round.Complete() {
		round.Abandoned = true
	}
	return s.advanceRoundLocked()
}

func (s *Session) advanceRoundLocked() error {
	s.dismissClueLocked()
	s.game.Wager = nil
	s.game.ReadyForNext = make(map[uuid.UUID]bool)

	if s.game.CurrentRound+1 >= len(s.game.Rounds) {
		s.finishGameLocked()
		return nil
	}
	s.game.CurrentRound++
	s.roundEnded = false
	s.deriveControlLocked()

	if s.game.InFinalRound() {
		s.beginFinalRoundLocked()
	}

	s.emitLocked(events.EventRoundStarted, s.roundPayloadLocked())
	s.persistLocked()

	log.Info().
		Str("game_id", s.game.ID.String()).
		Int("round", s.game.CurrentRound).
		Msg("round advanced")
	return nil
}

// HostOverride flips the server's judgement of a final-round answer.
func (s *Session) HostOverride(callerID, playerID uuid.UUID, correct bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if callerID != s.game.HostID {
		return s.rejectLocked(callerID, game.NewPrecondition("not_host", "only the host can override decisions"))
	}
	w := s.game.Wager
	if w == nil || !s.game.InFinalRound() {
		return s.rejectLocked(callerID, game.NewPrecondition("wrong_phase", "no final-round answers to override"))
	}
	fa, ok := w.Answers[playerID]
	if !ok || !fa.Judged {
		return s.rejectLocked(callerID, game.NewPrecondition("not_judged", "that player's answer has not been judged"))
	}
	if fa.Correct == correct {
		return s.rejectLocked(callerID, game.NewValidation("no_change", "decision already matches"))
	}

	wager := w.Wagers[playerID]
	delta := 2 * wager
	if !correct {
		delta = -delta
	}
	fa.Correct = correct
	p := s.game.Players[playerID]
	p.Score += delta
	if correct {
		p.Stats.FinalRoundsCorrect++
	} else {
		p.Stats.FinalRoundsCorrect--
	}

	s.emitLocked(events.EventHostOverrodeDecision, events.OverridePayload{
		PlayerID:   playerID.String(),
		ClueID:     w.ClueID.String(),
		Correct:    correct,
		ScoreDelta: delta,
		NewScore:   p.Score,
	})
	s.persistLocked()
	return nil
}

// KickPlayer removes a player from the turn rotation.
func (s *Session) KickPlayer(callerID, playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if callerID != s.game.HostID {
		return s.rejectLocked(callerID, game.NewPrecondition("not_host", "only the host can kick players"))
	}
	p, ok := s.game.Players[playerID]
	if !ok {
		return s.rejectLocked(callerID, game.NewNotFound("player", "unknown player").
			With("player_id", playerID.String()))
	}

	p.Spectating = true
	p.Connected = false
	s.emitLocked(events.EventHostKickedPlayer, events.PlayerPayload{
		PlayerID: playerID.String(), PlayerName: p.Name,
	})
	s.detachFromCluePathLocked(playerID)
	s.persistLocked()
	return nil
}

// Abandon ends the match immediately.
func (s *Session) Abandon(callerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if callerID != s.game.HostID {
		return s.rejectLocked(callerID, game.NewPrecondition("not_host", "only the host can abandon the game"))
	}
	if s.game.Status == game.GameStatusFinished || s.game.Status == game.GameStatusAbandoned {
		return s.rejectLocked(callerID, game.NewPrecondition("already_over", "the game is already over"))
	}

	if r := s.game.Round(); r != nil {
		r.Abandoned = true
	}
	s.buzzTimer.Reset()
	s.responseTimer.Reset()
	s.wagerTimer.Reset()
	for _, t := range s.finalTimers {
		t.Reset()
	}
	now := time.Now().UTC()
	s.game.Status = game.GameStatusAbandoned
	s.game.FinishedAt = &now
	s.game.ActiveClueID = nil
	s.game.PlayerAnswering = nil

	scores := make(map[string]int, len(s.game.Players))
	for id, p := range s.game.Players {
		scores[id.String()] = p.Score
	}
	s.emitLocked(events.EventHostAbandonedGame, events.GameFinishedPayload{
		Scores:     scores,
		FinishedAt: now,
	})
	s.persistLocked()

	log.Info().
		Str("game_id", s.game.ID.String()).
		Str("host_id", callerID.String()).
		Int("round", s.game.CurrentRound).
		Msg("game abandoned")
	return nil
}
