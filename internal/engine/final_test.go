package engine

import (
	"encoding/json"
	"testing"

	"github.com/cluegrid/cluegrid/internal/clock"
	"github.com/cluegrid/cluegrid/internal/events"
	"github.com/cluegrid/cluegrid/internal/game"
)

// makeDailyDouble marks the top clue of the second category and returns it.
func (f *fixture) makeDailyDouble() *game.Clue {
	clue := f.clue(1, 1)
	f.g.Rounds[0].DailyDoubles[clue.ID] = true
	return clue
}

// finishFinalRound plays the final round out: 500/300 scores, both wager,
// p1 answers correctly, p2 does not. The match ends finished.
func (f *fixture) finishFinalRound(t *testing.T) {
	t.Helper()
	f.advanceToFinal(t, 500, 300)
	if err := f.s.SubmitWager(f.p1.ID, 400); err != nil {
		t.Fatalf("SubmitWager p1: %v", err)
	}
	if err := f.s.SubmitWager(f.p2.ID, 300); err != nil {
		t.Fatalf("SubmitWager p2: %v", err)
	}
	if err := f.s.SubmitAnswer(f.p1.ID, "jupiter"); err != nil {
		t.Fatalf("SubmitAnswer p1: %v", err)
	}
	if err := f.s.SubmitAnswer(f.p2.ID, "saturn"); err != nil {
		t.Fatalf("SubmitAnswer p2: %v", err)
	}
	if f.g.Status != game.GameStatusFinished {
		t.Fatalf("fixture did not finish the match, status=%s", f.g.Status)
	}
}

// advanceToFinal finishes the first board and moves the fixture into the
// final round with both players holding the given scores.
func (f *fixture) advanceToFinal(t *testing.T, score1, score2 int) {
	t.Helper()
	f.completeSingleRound()
	f.p1.Score = score1
	f.p2.Score = score2
	if err := f.s.AdvanceRound(f.p1.ID); err != nil {
		t.Fatalf("AdvanceRound: %v", err)
	}
	if !f.g.InFinalRound() {
		t.Fatalf("fixture did not reach the final round")
	}
}

func TestDailyDoubleFlow(t *testing.T) {
	f := newFixture(t)
	dd := f.makeDailyDouble()

	if err := f.s.SelectClue(f.p1.ID, dd.CategoryID, dd.ID); err != nil {
		t.Fatalf("SelectClue: %v", err)
	}
	w := f.g.Wager
	if w == nil || w.PendingPlayer == nil || *w.PendingPlayer != f.p1.ID {
		t.Fatalf("selector should owe the wager, got %+v", w)
	}
	if f.s.wagerTimer.State() != clock.StateRunning {
		t.Fatalf("wager window should open, state=%s", f.s.wagerTimer.State())
	}
	if f.s.buzzTimer.State() == clock.StateRunning {
		t.Fatalf("no buzz race on a daily double")
	}

	// The question stays hidden until the wager lands.
	ev := waitForEvent(t, f.pub, events.EventPlayerSelectedClue)
	var selected events.SelectedCluePayload
	if err := json.Unmarshal(ev.Data, &selected); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !selected.DailyDouble || selected.Question != "" {
		t.Fatalf("daily double must hide the question, got %+v", selected)
	}

	if err := f.s.BuzzIn(f.p2.ID, dd.CategoryID, dd.ID); !isPrecondition(err, "no_buzzing") {
		t.Fatalf("expected no_buzzing, got %v", err)
	}
	if err := f.s.SubmitWager(f.p2.ID, 100); !isPrecondition(err, "not_your_wager") {
		t.Fatalf("expected not_your_wager, got %v", err)
	}
	// Zero score: the cap is the round maximum of 400.
	if err := f.s.SubmitWager(f.p1.ID, 2000); !isValidation(err, "wager_range") {
		t.Fatalf("expected wager_range, got %v", err)
	}

	if err := f.s.SubmitWager(f.p1.ID, 300); err != nil {
		t.Fatalf("SubmitWager: %v", err)
	}
	if !w.Revealed {
		t.Fatalf("a placed wager reveals the question")
	}
	if f.g.PlayerAnswering == nil || *f.g.PlayerAnswering != f.p1.ID {
		t.Fatalf("the selector answers a daily double")
	}
	if f.s.responseTimer.State() != clock.StateRunning {
		t.Fatalf("response window should open, state=%s", f.s.responseTimer.State())
	}

	if err := f.s.SubmitAnswer(f.p1.ID, "tokyo"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if f.p1.Score != 300 {
		t.Fatalf("daily double pays the wager, got %d", f.p1.Score)
	}
	if f.p1.Stats.DailyDoublesAnswered != 1 || f.p1.Stats.DailyDoublesCorrect != 1 {
		t.Fatalf("daily double stats not recorded: %+v", f.p1.Stats)
	}
	if f.g.ActiveClueID != nil || f.g.Wager != nil {
		t.Fatalf("daily double should be dismissed after the answer")
	}
}

func TestDailyDoubleMissCostsWager(t *testing.T) {
	f := newFixture(t)
	dd := f.makeDailyDouble()

	if err := f.s.SelectClue(f.p1.ID, dd.CategoryID, dd.ID); err != nil {
		t.Fatalf("SelectClue: %v", err)
	}
	if err := f.s.SubmitWager(f.p1.ID, 250); err != nil {
		t.Fatalf("SubmitWager: %v", err)
	}
	if err := f.s.SubmitAnswer(f.p1.ID, "Kyoto"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	if f.p1.Score != -250 {
		t.Fatalf("missed daily double costs the wager, got %d", f.p1.Score)
	}
	// Nobody else may attempt a daily double.
	if f.g.ActiveClueID != nil {
		t.Fatalf("daily double must be dismissed after a miss")
	}
}

func TestDailyDoubleWagerTimeout(t *testing.T) {
	f := newFixture(t)
	dd := f.makeDailyDouble()
	if err := f.s.SelectClue(f.p1.ID, dd.CategoryID, dd.ID); err != nil {
		t.Fatalf("SelectClue: %v", err)
	}

	f.s.onWagerElapsed(f.s.wagerGen)

	w := f.g.Wager
	if !w.Revealed {
		t.Fatalf("timeout should force the reveal")
	}
	if got := w.Wagers[f.p1.ID]; got != f.g.Settings.MinWager {
		t.Fatalf("timeout falls back to the minimum wager, got %d", got)
	}
	if f.g.PlayerAnswering == nil || *f.g.PlayerAnswering != f.p1.ID {
		t.Fatalf("selector still answers after a forced wager")
	}
}

func TestFinalRoundFlow(t *testing.T) {
	f := newFixture(t)
	f.advanceToFinal(t, 500, 300)

	w := f.g.Wager
	if !w.Eligible[f.p1.ID] || !w.Eligible[f.p2.ID] {
		t.Fatalf("both positive scores should be eligible: %+v", w.Eligible)
	}
	if f.g.PlayerInControl != nil {
		t.Fatalf("nobody holds board control in the final round")
	}

	if err := f.s.SubmitWager(f.p1.ID, 600); !isValidation(err, "wager_range") {
		t.Fatalf("wager above score must be rejected, got %v", err)
	}
	if err := f.s.SubmitWager(f.p1.ID, 400); err != nil {
		t.Fatalf("SubmitWager p1: %v", err)
	}
	if w.Revealed {
		t.Fatalf("clue must stay hidden until every wager lands")
	}
	if err := f.s.SubmitWager(f.p1.ID, 100); !isPrecondition(err, "already_wagered") {
		t.Fatalf("expected already_wagered, got %v", err)
	}

	ev := waitForEvent(t, f.pub, events.EventPlayerWagered)
	var wagered events.WageredPayload
	if err := json.Unmarshal(ev.Data, &wagered); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !wagered.Hidden || wagered.Amount != 0 {
		t.Fatalf("final wager amounts stay hidden, got %+v", wagered)
	}

	if err := f.s.SubmitWager(f.p2.ID, 300); err != nil {
		t.Fatalf("SubmitWager p2: %v", err)
	}
	if !w.Revealed {
		t.Fatalf("last wager should reveal the clue")
	}
	if len(f.s.finalTimers) != 2 {
		t.Fatalf("every finalist gets a personal window, got %d", len(f.s.finalTimers))
	}

	if err := f.s.SubmitAnswer(f.p1.ID, "jupiter"); err != nil {
		t.Fatalf("SubmitAnswer p1: %v", err)
	}
	if f.p1.Score != 900 {
		t.Fatalf("correct finalist gains the wager, got %d", f.p1.Score)
	}
	if f.g.Status != game.GameStatusInProgress {
		t.Fatalf("match must wait for the remaining finalist")
	}

	if err := f.s.SubmitAnswer(f.p2.ID, "saturn"); err != nil {
		t.Fatalf("SubmitAnswer p2: %v", err)
	}
	if f.p2.Score != 0 {
		t.Fatalf("wrong finalist loses the wager, got %d", f.p2.Score)
	}
	if f.g.Status != game.GameStatusFinished {
		t.Fatalf("match should finish once everyone answered, status=%s", f.g.Status)
	}
	if f.p1.Stats.GamesWon != 1 || f.p2.Stats.GamesWon != 0 {
		t.Fatalf("winner stats wrong: p1=%+v p2=%+v", f.p1.Stats, f.p2.Stats)
	}

	ev = waitForEvent(t, f.pub, events.EventGameFinished)
	var finished events.GameFinishedPayload
	if err := json.Unmarshal(ev.Data, &finished); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if finished.WinnerID != f.p1.ID.String() {
		t.Fatalf("winner = %s, want %s", finished.WinnerID, f.p1.ID)
	}
}

func TestFinalRoundIneligiblePlayerRejected(t *testing.T) {
	f := newFixture(t)
	f.advanceToFinal(t, 500, 0)

	if err := f.s.SubmitWager(f.p2.ID, 0); !isPrecondition(err, "not_eligible") {
		t.Fatalf("expected not_eligible, got %v", err)
	}
}

func TestFinalWagerTimeoutFillsZeros(t *testing.T) {
	f := newFixture(t)
	f.advanceToFinal(t, 500, 300)

	if err := f.s.SubmitWager(f.p1.ID, 400); err != nil {
		t.Fatalf("SubmitWager: %v", err)
	}
	f.s.onWagerElapsed(f.s.wagerGen)

	w := f.g.Wager
	if !w.Revealed {
		t.Fatalf("timeout should reveal the clue")
	}
	if got := w.Wagers[f.p2.ID]; got != 0 {
		t.Fatalf("missing wager should be filled with zero, got %d", got)
	}
	if got := w.Wagers[f.p1.ID]; got != 400 {
		t.Fatalf("placed wager must survive the timeout, got %d", got)
	}
}

func TestFinalResponseTimeoutJudgesSilence(t *testing.T) {
	f := newFixture(t)
	f.advanceToFinal(t, 500, 300)

	if err := f.s.SubmitWager(f.p1.ID, 400); err != nil {
		t.Fatalf("SubmitWager p1: %v", err)
	}
	if err := f.s.SubmitWager(f.p2.ID, 300); err != nil {
		t.Fatalf("SubmitWager p2: %v", err)
	}
	if err := f.s.SubmitAnswer(f.p1.ID, "jupiter"); err != nil {
		t.Fatalf("SubmitAnswer p1: %v", err)
	}

	f.s.onFinalResponseElapsed(f.p2.ID, f.s.finalGens[f.p2.ID])

	if f.p2.Score != 0 {
		t.Fatalf("silence loses the wager, got %d", f.p2.Score)
	}
	if f.g.Status != game.GameStatusFinished {
		t.Fatalf("timeout of the last finalist should finish the match")
	}
}

func TestHostOverrideFlipsFinalDecision(t *testing.T) {
	f := newFixture(t)
	f.advanceToFinal(t, 500, 300)

	if err := f.s.SubmitWager(f.p1.ID, 400); err != nil {
		t.Fatalf("SubmitWager p1: %v", err)
	}
	if err := f.s.SubmitWager(f.p2.ID, 300); err != nil {
		t.Fatalf("SubmitWager p2: %v", err)
	}
	if err := f.s.SubmitAnswer(f.p1.ID, "jupiter"); err != nil {
		t.Fatalf("SubmitAnswer p1: %v", err)
	}
	if err := f.s.SubmitAnswer(f.p2.ID, "the gas giant"); err != nil {
		t.Fatalf("SubmitAnswer p2: %v", err)
	}
	if f.p2.Score != 0 {
		t.Fatalf("expected p2 judged wrong first, score=%d", f.p2.Score)
	}

	if err := f.s.HostOverride(f.p2.ID, f.p2.ID, true); !isPrecondition(err, "not_host") {
		t.Fatalf("expected not_host, got %v", err)
	}
	if err := f.s.HostOverride(f.p1.ID, f.p2.ID, false); !isValidation(err, "no_change") {
		t.Fatalf("expected no_change, got %v", err)
	}
	if err := f.s.HostOverride(f.p1.ID, f.p2.ID, true); err != nil {
		t.Fatalf("HostOverride: %v", err)
	}

	// Reversal restores the lost wager and awards it: a 600 swing.
	if f.p2.Score != 600 {
		t.Fatalf("override should swing twice the wager, got %d", f.p2.Score)
	}
	w := f.g.Wager
	if fa := w.Answers[f.p2.ID]; fa == nil || !fa.Correct {
		t.Fatalf("override must flip the recorded judgement")
	}
}

func TestMarkReadyAfterFinishIsRejected(t *testing.T) {
	f := newFixture(t)
	f.finishFinalRound(t)
	if f.p1.Stats.GamesPlayed != 1 || f.p1.Stats.GamesWon != 1 {
		t.Fatalf("unexpected stats after finish: %+v", f.p1.Stats)
	}

	if err := f.s.MarkReady(f.p1.ID); !isPrecondition(err, "wrong_phase") {
		t.Fatalf("expected wrong_phase, got %v", err)
	}
	if err := f.s.MarkReady(f.p2.ID); !isPrecondition(err, "wrong_phase") {
		t.Fatalf("expected wrong_phase, got %v", err)
	}

	// A second resolution would double-count lifetime statistics.
	if f.p1.Stats.GamesPlayed != 1 || f.p1.Stats.GamesWon != 1 {
		t.Fatalf("finished game resolved twice: %+v", f.p1.Stats)
	}
	if f.p2.Stats.GamesPlayed != 1 || f.p2.Stats.GamesWon != 0 {
		t.Fatalf("finished game resolved twice: %+v", f.p2.Stats)
	}
}

func TestFinishRetiresActiveClue(t *testing.T) {
	f := newFixture(t)
	f.finishFinalRound(t)

	if f.g.ActiveClueID != nil || f.g.PlayerAnswering != nil {
		t.Fatalf("finished game must retire the live clue")
	}
	if err := f.s.VoteToSkip(f.p1.ID); !isPrecondition(err, "no_active_clue") {
		t.Fatalf("expected no_active_clue, got %v", err)
	}
	if err := f.s.MarkInvalid(f.p2.ID); !isPrecondition(err, "no_active_clue") {
		t.Fatalf("expected no_active_clue, got %v", err)
	}
	// The wager record outlives the match so the host can still override.
	if f.g.Wager == nil {
		t.Fatalf("final wager state must survive for overrides")
	}
}

func TestShutdownSilencesTimerFires(t *testing.T) {
	f := newFixture(t)
	f.selectClue(t, 0, 0)
	gen := f.s.buzzGen

	f.s.shutdown()
	f.s.onBuzzElapsed(gen)

	// A closed session drops the fire instead of mutating a retired game.
	if f.g.ActiveClueID == nil {
		t.Fatalf("closed session must not dismiss the clue")
	}
}
