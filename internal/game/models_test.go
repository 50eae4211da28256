package game

import (
	"testing"

	"github.com/google/uuid"
)

func twoPlayerGame() (*Game, *Player, *Player) {
	p1 := &Player{ID: uuid.New(), Name: "ada", Connected: true}
	p2 := &Player{ID: uuid.New(), Name: "brahe", Connected: true}
	g := &Game{
		ID:       uuid.New(),
		Status:   GameStatusInProgress,
		Settings: DefaultSettings(),
		Players:  map[uuid.UUID]*Player{p1.ID: p1, p2.ID: p2},
		Rounds: []*Round{
			{Kind: RoundSingle, DailyDoubles: map[uuid.UUID]bool{}},
			{Kind: RoundFinal, DailyDoubles: map[uuid.UUID]bool{}},
		},
	}
	return g, p1, p2
}

func TestContendingPlayers(t *testing.T) {
	g, _, p2 := twoPlayerGame()
	if got := len(g.ContendingPlayers()); got != 2 {
		t.Fatalf("expected 2 contenders, got %d", got)
	}

	p2.Spectating = true
	if got := len(g.ContendingPlayers()); got != 1 {
		t.Fatalf("expected spectator excluded, got %d contenders", got)
	}

	p2.Spectating = false
	p2.Connected = false
	if got := len(g.ContendingPlayers()); got != 1 {
		t.Fatalf("expected disconnected excluded, got %d contenders", got)
	}
}

func TestWagerRangeNormalRound(t *testing.T) {
	g, p1, _ := twoPlayerGame()

	// Round default maximum: base 200 x 5 clues x1 = 1000.
	min, max := g.WagerRange(p1.ID)
	if min != 5 || max != 1000 {
		t.Fatalf("expected [5, 1000], got [%d, %d]", min, max)
	}

	// A score above the round maximum raises the cap.
	p1.Score = 1200
	if _, max = g.WagerRange(p1.ID); max != 1200 {
		t.Fatalf("expected cap 1200, got %d", max)
	}

	// A negative score still allows the round maximum.
	p1.Score = -400
	min, max = g.WagerRange(p1.ID)
	if min != 5 || max != 1000 {
		t.Fatalf("expected [5, 1000] for negative score, got [%d, %d]", min, max)
	}
}

func TestWagerRangeDoubleRound(t *testing.T) {
	g, p1, _ := twoPlayerGame()
	g.Rounds[0].Kind = RoundDouble

	_, max := g.WagerRange(p1.ID)
	if max != 2000 {
		t.Fatalf("expected doubled cap 2000, got %d", max)
	}
}

func TestWagerRangeFinalRound(t *testing.T) {
	g, p1, p2 := twoPlayerGame()
	g.CurrentRound = 1
	p1.Score = 800
	p2.Score = -200

	min, max := g.WagerRange(p1.ID)
	if min != 0 || max != 800 {
		t.Fatalf("expected [0, 800], got [%d, %d]", min, max)
	}

	// No positive score, no wagering.
	min, max = g.WagerRange(p2.ID)
	if min != 0 || max != 0 {
		t.Fatalf("expected [0, 0] for non-positive score, got [%d, %d]", min, max)
	}
}

func TestWagerRangeUnknownPlayer(t *testing.T) {
	g, _, _ := twoPlayerGame()
	if min, max := g.WagerRange(uuid.New()); min != 0 || max != 0 {
		t.Fatalf("expected [0, 0] for unknown player, got [%d, %d]", min, max)
	}
}

func TestRoundComplete(t *testing.T) {
	clue := &Clue{ID: uuid.New()}
	r := &Round{
		Kind:       RoundSingle,
		Categories: []*Category{{ID: uuid.New(), Clues: []*Clue{clue}}},
	}
	if r.Complete() {
		t.Fatalf("round with unplayed clues must not be complete")
	}
	clue.Played = true
	if !r.Complete() {
		t.Fatalf("round with all clues played must be complete")
	}

	clue.Played = false
	r.Abandoned = true
	if !r.Complete() {
		t.Fatalf("abandoned round must count as complete")
	}
}

func TestWagerStateBarriers(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	w := &WagerState{
		Eligible: map[uuid.UUID]bool{a: true, b: true},
		Wagers:   map[uuid.UUID]int{},
		Answers:  map[uuid.UUID]*FinalAnswer{},
	}
	if w.AllWagered() {
		t.Fatalf("no wagers placed yet")
	}
	w.Wagers[a] = 100
	if w.AllWagered() {
		t.Fatalf("one wager missing")
	}
	w.Wagers[b] = 0
	if !w.AllWagered() {
		t.Fatalf("all eligible players wagered")
	}

	w.Answers[a] = &FinalAnswer{Answer: "x", Judged: true}
	if w.AllAnswered() {
		t.Fatalf("one answer missing")
	}
	w.Answers[b] = &FinalAnswer{Judged: true}
	if !w.AllAnswered() {
		t.Fatalf("all eligible players answered")
	}
}
