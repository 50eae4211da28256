package engine

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/cluegrid/cluegrid/internal/clock"
	"github.com/cluegrid/cluegrid/internal/events"
	"github.com/cluegrid/cluegrid/internal/game"
)

func TestSelectClueActivates(t *testing.T) {
	f := newFixture(t)
	clue := f.selectClue(t, 0, 0)

	if !clue.Played {
		t.Fatalf("selected clue must be marked played")
	}
	if f.g.ActiveClueID == nil || *f.g.ActiveClueID != clue.ID {
		t.Fatalf("active clue not set")
	}
	if f.s.buzzTimer.State() != clock.StateRunning {
		t.Fatalf("buzz window should open on selection, state=%s", f.s.buzzTimer.State())
	}
	if f.s.buzzGen != f.s.buzzTimer.Generation() {
		t.Fatalf("recorded buzz generation %d does not match timer %d", f.s.buzzGen, f.s.buzzTimer.Generation())
	}
}

func TestSelectCluePreconditions(t *testing.T) {
	f := newFixture(t)
	clue := f.clue(0, 0)

	if err := f.s.SelectClue(f.p1.ID, clue.CategoryID, uuid.New()); err == nil {
		t.Fatalf("unknown clue id must be rejected")
	}

	f.selectClue(t, 0, 0)
	other := f.clue(1, 0)
	if err := f.s.SelectClue(f.p1.ID, other.CategoryID, other.ID); !isPrecondition(err, "clue_active") {
		t.Fatalf("expected clue_active, got %v", err)
	}

	f.s.onBuzzElapsed(f.s.buzzGen)
	if err := f.s.SelectClue(f.p1.ID, clue.CategoryID, clue.ID); !isPrecondition(err, "clue_played") {
		t.Fatalf("expected clue_played on reselect, got %v", err)
	}

	f.g.Status = game.GameStatusLobby
	if err := f.s.SelectClue(f.p1.ID, other.CategoryID, other.ID); !isPrecondition(err, "wrong_phase") {
		t.Fatalf("expected wrong_phase, got %v", err)
	}
}

func TestBuzzInFirstWriterWins(t *testing.T) {
	f := newFixture(t)
	clue := f.selectClue(t, 0, 0)

	if err := f.s.BuzzIn(f.p2.ID, clue.CategoryID, clue.ID); err != nil {
		t.Fatalf("BuzzIn p2: %v", err)
	}
	if f.g.PlayerAnswering == nil || *f.g.PlayerAnswering != f.p2.ID {
		t.Fatalf("first buzzer should hold the answering slot")
	}
	if f.s.buzzTimer.State() != clock.StatePaused {
		t.Fatalf("board clock should freeze while answering, state=%s", f.s.buzzTimer.State())
	}
	if f.s.responseTimer.State() != clock.StateRunning {
		t.Fatalf("response window should open, state=%s", f.s.responseTimer.State())
	}

	// A losing buzz still burns the attempt but not the slot.
	if err := f.s.BuzzIn(f.p1.ID, clue.CategoryID, clue.ID); err != nil {
		t.Fatalf("BuzzIn p1: %v", err)
	}
	if *f.g.PlayerAnswering != f.p2.ID {
		t.Fatalf("answering slot must not change on a later buzz")
	}
	if !clue.PlayersAttempted[f.p1.ID] {
		t.Fatalf("losing buzz should burn the attempt")
	}

	if err := f.s.BuzzIn(f.p2.ID, clue.CategoryID, clue.ID); !isPrecondition(err, "already_answering") {
		t.Fatalf("expected already_answering, got %v", err)
	}
}

func TestBuzzInRejections(t *testing.T) {
	f := newFixture(t)
	clue := f.clue(0, 0)

	if err := f.s.BuzzIn(f.p2.ID, clue.CategoryID, clue.ID); !isPrecondition(err, "no_active_clue") {
		t.Fatalf("expected no_active_clue before selection, got %v", err)
	}

	f.selectClue(t, 0, 0)
	f.p2.Spectating = true
	if err := f.s.BuzzIn(f.p2.ID, clue.CategoryID, clue.ID); !isPrecondition(err, "spectating") {
		t.Fatalf("expected spectating rejection, got %v", err)
	}
}

func TestSubmitAnswerCorrect(t *testing.T) {
	f := newFixture(t)
	clue := f.selectClue(t, 0, 0)
	if err := f.s.BuzzIn(f.p2.ID, clue.CategoryID, clue.ID); err != nil {
		t.Fatalf("BuzzIn: %v", err)
	}

	if err := f.s.SubmitAnswer(f.p2.ID, "paris"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if f.p2.Score != 200 {
		t.Fatalf("score = %d, want 200", f.p2.Score)
	}
	if f.g.PlayerInControl == nil || *f.g.PlayerInControl != f.p2.ID {
		t.Fatalf("correct answer should take control")
	}
	if f.g.ActiveClueID != nil || f.g.PlayerAnswering != nil {
		t.Fatalf("clue should be dismissed after a correct answer")
	}
	if f.p2.Stats.CluesAnswered != 1 || f.p2.Stats.CluesCorrect != 1 {
		t.Fatalf("stats not recorded: %+v", f.p2.Stats)
	}
}

func TestSubmitAnswerIncorrectReopensBuzzing(t *testing.T) {
	f := newFixture(t)
	clue := f.selectClue(t, 0, 0)
	if err := f.s.BuzzIn(f.p2.ID, clue.CategoryID, clue.ID); err != nil {
		t.Fatalf("BuzzIn: %v", err)
	}

	if err := f.s.SubmitAnswer(f.p2.ID, "London"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if f.p2.Score != -200 {
		t.Fatalf("score = %d, want -200", f.p2.Score)
	}
	if f.g.PlayerAnswering != nil {
		t.Fatalf("answering slot should be released")
	}
	if f.g.ActiveClueID == nil {
		t.Fatalf("clue stays live while a contender can still buzz")
	}
	if f.s.buzzTimer.State() != clock.StateRunning {
		t.Fatalf("buzz window should reopen, state=%s", f.s.buzzTimer.State())
	}

	if err := f.s.BuzzIn(f.p2.ID, clue.CategoryID, clue.ID); !isPrecondition(err, "already_attempted") {
		t.Fatalf("expected already_attempted, got %v", err)
	}
}

func TestContenderExhaustionDismissesWithAnswer(t *testing.T) {
	f := newFixture(t)
	clue := f.selectClue(t, 0, 0)

	if err := f.s.BuzzIn(f.p2.ID, clue.CategoryID, clue.ID); err != nil {
		t.Fatalf("BuzzIn p2: %v", err)
	}
	if err := f.s.SubmitAnswer(f.p2.ID, "London"); err != nil {
		t.Fatalf("SubmitAnswer p2: %v", err)
	}
	if err := f.s.BuzzIn(f.p1.ID, clue.CategoryID, clue.ID); err != nil {
		t.Fatalf("BuzzIn p1: %v", err)
	}
	if err := f.s.SubmitAnswer(f.p1.ID, "Rome"); err != nil {
		t.Fatalf("SubmitAnswer p1: %v", err)
	}

	if f.g.ActiveClueID != nil {
		t.Fatalf("clue must be dismissed once every contender has attempted")
	}
	ev := waitForEvent(t, f.pub, events.EventBuzzingPeriodEnded)
	var payload events.PeriodEndedPayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !payload.Dismissed || payload.Answer != "Paris" {
		t.Fatalf("dismissal should reveal the answer, got %+v", payload)
	}
}

func TestAnswerPublishesBeforeDismissal(t *testing.T) {
	f := newFixture(t)
	clue := f.selectClue(t, 0, 0)

	if err := f.s.BuzzIn(f.p2.ID, clue.CategoryID, clue.ID); err != nil {
		t.Fatalf("BuzzIn p2: %v", err)
	}
	if err := f.s.SubmitAnswer(f.p2.ID, "London"); err != nil {
		t.Fatalf("SubmitAnswer p2: %v", err)
	}
	if err := f.s.BuzzIn(f.p1.ID, clue.CategoryID, clue.ID); err != nil {
		t.Fatalf("BuzzIn p1: %v", err)
	}
	if err := f.s.SubmitAnswer(f.p1.ID, "Rome"); err != nil {
		t.Fatalf("SubmitAnswer p1: %v", err)
	}
	waitForEvent(t, f.pub, events.EventBuzzingPeriodEnded)

	// The last miss and the dismissal belong to one resolution; clients must
	// see the answer land on the stream before the period ends.
	answered := f.pub.lastIndexOf(events.EventPlayerAnswered)
	ended := f.pub.lastIndexOf(events.EventBuzzingPeriodEnded)
	if answered == -1 || ended == -1 || answered > ended {
		t.Fatalf("answer published after dismissal: answered=%d ended=%d", answered, ended)
	}
}

func TestResponseTimeoutScoresAsMiss(t *testing.T) {
	f := newFixture(t)
	clue := f.selectClue(t, 0, 0)
	if err := f.s.BuzzIn(f.p2.ID, clue.CategoryID, clue.ID); err != nil {
		t.Fatalf("BuzzIn: %v", err)
	}

	f.s.onResponseElapsed(f.s.responseGen)

	if f.p2.Score != -200 {
		t.Fatalf("timeout should deduct the face value, got %d", f.p2.Score)
	}
	if f.g.PlayerAnswering != nil {
		t.Fatalf("answering slot should be released on timeout")
	}
	if f.g.ActiveClueID == nil {
		t.Fatalf("clue stays live for the remaining contender")
	}
	if f.s.buzzTimer.State() != clock.StateRunning {
		t.Fatalf("buzz window should reopen after the timeout")
	}
}

func TestBuzzTimeoutDismissesClue(t *testing.T) {
	f := newFixture(t)
	f.selectClue(t, 0, 0)

	f.s.onBuzzElapsed(f.s.buzzGen)

	if f.g.ActiveClueID != nil {
		t.Fatalf("clue must be dismissed when nobody buzzes")
	}
}

func TestStaleTimerFireIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.selectClue(t, 0, 0)
	staleGen := f.s.buzzGen

	// Dismiss by unanimous skip, then activate a second clue.
	if err := f.s.VoteToSkip(f.p1.ID); err != nil {
		t.Fatalf("VoteToSkip p1: %v", err)
	}
	if err := f.s.VoteToSkip(f.p2.ID); err != nil {
		t.Fatalf("VoteToSkip p2: %v", err)
	}
	next := f.selectClue(t, 0, 1)

	f.s.onBuzzElapsed(staleGen)

	if f.g.ActiveClueID == nil || *f.g.ActiveClueID != next.ID {
		t.Fatalf("stale fire must not touch the new activation")
	}
}

func TestVoteToSkipQuorum(t *testing.T) {
	f := newFixture(t)
	f.selectClue(t, 0, 0)

	if err := f.s.VoteToSkip(f.p1.ID); err != nil {
		t.Fatalf("VoteToSkip: %v", err)
	}
	if f.g.ActiveClueID == nil {
		t.Fatalf("one vote of two must not dismiss")
	}
	if err := f.s.VoteToSkip(f.p1.ID); !isPrecondition(err, "already_voted") {
		t.Fatalf("expected already_voted, got %v", err)
	}
	if err := f.s.VoteToSkip(f.p2.ID); err != nil {
		t.Fatalf("VoteToSkip p2: %v", err)
	}
	if f.g.ActiveClueID != nil {
		t.Fatalf("unanimous skip must dismiss the clue")
	}
}

func TestMarkInvalidQuorum(t *testing.T) {
	f := newFixture(t)
	f.selectClue(t, 0, 0)

	if err := f.s.MarkInvalid(f.p1.ID); err != nil {
		t.Fatalf("MarkInvalid p1: %v", err)
	}
	if err := f.s.MarkInvalid(f.p2.ID); err != nil {
		t.Fatalf("MarkInvalid p2: %v", err)
	}
	if f.g.ActiveClueID != nil {
		t.Fatalf("unanimous invalid must dismiss the clue")
	}
	if f.p1.Score != 0 || f.p2.Score != 0 {
		t.Fatalf("invalid dismissal must not score")
	}
	waitForEvent(t, f.pub, events.EventPlayerMarkedInvalid)
}

func TestMarkReadyAdvancesWhenUnanimous(t *testing.T) {
	f := newFixture(t)
	f.p1.Score = 100

	if err := f.s.MarkReady(f.p1.ID); !isPrecondition(err, "round_incomplete") {
		t.Fatalf("expected round_incomplete, got %v", err)
	}

	f.completeSingleRound()
	if err := f.s.MarkReady(f.p1.ID); err != nil {
		t.Fatalf("MarkReady p1: %v", err)
	}
	if f.g.CurrentRound != 0 {
		t.Fatalf("one ready of two must not advance")
	}
	if err := f.s.MarkReady(f.p2.ID); err != nil {
		t.Fatalf("MarkReady p2: %v", err)
	}

	if f.g.CurrentRound != 1 {
		t.Fatalf("round should advance, got %d", f.g.CurrentRound)
	}
	if !f.g.InFinalRound() {
		t.Fatalf("second round should be the final round")
	}
	if len(f.g.ReadyForNext) != 0 {
		t.Fatalf("ready set must reset on advance")
	}
	w := f.g.Wager
	if w == nil || !w.Eligible[f.p1.ID] || w.Eligible[f.p2.ID] {
		t.Fatalf("eligibility snapshot wrong: %+v", w)
	}
}

func TestAdvanceRoundHostForces(t *testing.T) {
	f := newFixture(t)
	f.p1.Score = 100

	if err := f.s.AdvanceRound(f.p2.ID); !isPrecondition(err, "round_incomplete") {
		t.Fatalf("non-host needs a finished board, got %v", err)
	}

	if err := f.s.AdvanceRound(f.p1.ID); err != nil {
		t.Fatalf("host force-advance: %v", err)
	}
	if !f.g.Rounds[0].Abandoned {
		t.Fatalf("forced advance should abandon the board")
	}
	if f.g.CurrentRound != 1 {
		t.Fatalf("round should advance, got %d", f.g.CurrentRound)
	}
}

func TestAdvanceWithNoEligibleFinalistsFinishes(t *testing.T) {
	f := newFixture(t)
	f.completeSingleRound()
	f.p1.Score = -200

	if err := f.s.AdvanceRound(f.p1.ID); err != nil {
		t.Fatalf("AdvanceRound: %v", err)
	}
	if f.g.Status != game.GameStatusFinished {
		t.Fatalf("no eligible finalists should end the match, status=%s", f.g.Status)
	}
}

func TestKickPlayerMidAnswer(t *testing.T) {
	f := newFixture(t)
	clue := f.selectClue(t, 0, 0)
	if err := f.s.BuzzIn(f.p2.ID, clue.CategoryID, clue.ID); err != nil {
		t.Fatalf("BuzzIn: %v", err)
	}

	if err := f.s.KickPlayer(f.p2.ID, f.p1.ID); !isPrecondition(err, "not_host") {
		t.Fatalf("expected not_host, got %v", err)
	}
	if err := f.s.KickPlayer(f.p1.ID, f.p2.ID); err != nil {
		t.Fatalf("KickPlayer: %v", err)
	}

	if !f.p2.Spectating || f.p2.Connected {
		t.Fatalf("kicked player should be a disconnected spectator")
	}
	if f.g.PlayerAnswering != nil {
		t.Fatalf("kicked player's answering slot must be released")
	}
	if f.p2.Score != 0 {
		t.Fatalf("kick must not score, got %d", f.p2.Score)
	}
}

func TestAbandonEndsGame(t *testing.T) {
	f := newFixture(t)
	f.selectClue(t, 0, 0)

	if err := f.s.Abandon(f.p2.ID); !isPrecondition(err, "not_host") {
		t.Fatalf("expected not_host, got %v", err)
	}
	if err := f.s.Abandon(f.p1.ID); err != nil {
		t.Fatalf("Abandon: %v", err)
	}

	if f.g.Status != game.GameStatusAbandoned {
		t.Fatalf("status = %s, want ABANDONED", f.g.Status)
	}
	if f.g.FinishedAt == nil {
		t.Fatalf("abandoned game needs a finish time")
	}
	if f.g.ActiveClueID != nil || f.g.PlayerAnswering != nil {
		t.Fatalf("abandon must clear the live clue")
	}
	if err := f.s.Abandon(f.p1.ID); !isPrecondition(err, "already_over") {
		t.Fatalf("expected already_over, got %v", err)
	}
	waitForEvent(t, f.pub, events.EventHostAbandonedGame)
}
