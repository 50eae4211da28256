package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// CatalogClue is a clue as supplied by the content catalog.
type CatalogClue struct {
	ID       uuid.UUID
	Answer   string
	Question string
}

// CatalogCategory is a category as supplied by the content catalog.
type CatalogCategory struct {
	ID    uuid.UUID
	Title string
	Clues []CatalogClue
}

// maxPlacementAttempts bounds the daily-double rejection sampling so an
// adversarially shaped board cannot loop forever.
const maxPlacementAttempts = 200

// BoardBuilder constructs rounds from catalog categories.
type BoardBuilder struct {
	settings GameSettings
	rng      *rand.Rand
}

// NewBoardBuilder constructs a BoardBuilder with its own seed.
func NewBoardBuilder(settings GameSettings) *BoardBuilder {
	src := rand.NewSource(time.Now().UnixNano())
	return &BoardBuilder{settings: settings, rng: rand.New(src)}
}

// newBoardBuilderWithRand is used by tests for deterministic placement.
func newBoardBuilderWithRand(settings GameSettings, rng *rand.Rand) *BoardBuilder {
	return &BoardBuilder{settings: settings, rng: rng}
}

// BuildRound assembles a board round from catalog categories, assigning clue
// values by slot position and placing daily doubles.
func (b *BoardBuilder) BuildRound(kind RoundKind, cats []CatalogCategory) (*Round, error) {
	if kind == RoundFinal {
		return b.buildFinalRound(cats)
	}
	if len(cats) != b.settings.CategoriesPerRound {
		return nil, fmt.Errorf("round %s needs %d categories, got %d", kind, b.settings.CategoriesPerRound, len(cats))
	}

	round := &Round{
		Kind:         kind,
		DailyDoubles: make(map[uuid.UUID]bool),
	}
	mult := kind.Multiplier()
	for _, cc := range cats {
		if len(cc.Clues) < b.settings.CluesPerCategory {
			return nil, fmt.Errorf("category %q has %d clues, need %d", cc.Title, len(cc.Clues), b.settings.CluesPerCategory)
		}
		cat := &Category{ID: cc.ID, Title: cc.Title}
		for i := 0; i < b.settings.CluesPerCategory; i++ {
			src := cc.Clues[i]
			cat.Clues = append(cat.Clues, &Clue{
				ID:         src.ID,
				CategoryID: cc.ID,
				Answer:     src.Answer,
				Question:   src.Question,
				Value:      b.settings.BaseClueValue * mult * (i + 1),
			})
		}
		round.Categories = append(round.Categories, cat)
	}

	if err := b.placeDailyDoubles(round); err != nil {
		return nil, err
	}
	return round, nil
}

// buildFinalRound wraps a single catalog clue as the lone final-round board.
func (b *BoardBuilder) buildFinalRound(cats []CatalogCategory) (*Round, error) {
	if len(cats) == 0 || len(cats[0].Clues) == 0 {
		return nil, fmt.Errorf("final round needs one category with one clue")
	}
	cc := cats[0]
	src := cc.Clues[0]
	return &Round{
		Kind:         RoundFinal,
		DailyDoubles: make(map[uuid.UUID]bool),
		Categories: []*Category{{
			ID:    cc.ID,
			Title: cc.Title,
			Clues: []*Clue{{
				ID:         src.ID,
				CategoryID: cc.ID,
				Answer:     src.Answer,
				Question:   src.Question,
			}},
		}},
	}, nil
}

// placeDailyDoubles picks daily-double slots uniformly at random, excluding
// the lowest-value slot of each category. Sampling rejects repeat categories
// until no distinct category remains, then allows repeats, with a hard
// attempt cap either way.
func (b *BoardBuilder) placeDailyDoubles(round *Round) error {
	count := b.settings.DailyDoublesBase * round.Kind.Multiplier()
	usedCategories := make(map[uuid.UUID]bool)

	for placed := 0; placed < count; {
		var clue *Clue
		for attempt := 0; attempt < maxPlacementAttempts; attempt++ {
			cat := round.Categories[b.rng.Intn(len(round.Categories))]
			// Slot 0 is the lowest value; never a daily double. A category
			// with only that slot has nowhere to place one.
			if len(cat.Clues) < 2 {
				continue
			}
			candidate := cat.Clues[1+b.rng.Intn(len(cat.Clues)-1)]
			if round.DailyDoubles[candidate.ID] {
				continue
			}
			preferFresh := len(usedCategories) < len(round.Categories)
			if preferFresh && usedCategories[cat.ID] {
				continue
			}
			clue = candidate
			break
		}
		if clue == nil {
			return fmt.Errorf("could not place %d daily doubles on %s board", count, round.Kind)
		}
		round.DailyDoubles[clue.ID] = true
		usedCategories[clue.CategoryID] = true
		placed++
	}
	return nil
}
