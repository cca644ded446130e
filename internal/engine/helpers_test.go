package engine

import (
	"context"
	"fmt"
	"testing"
)

func plainDeck(n int) []Card {
	out := make([]Card, n)
	for i := range out {
		out[i] = Card{
			ID:                    fmt.Sprintf("c%d", i),
			Title:                 fmt.Sprintf("Card %d", i),
			LeftAnswer:            "No",
			RightAnswer:           "Yes",
			LeftImpact:            Impact{Heart: -1},
			RightImpact:           Impact{Career: 1},
			ContributesToProgress: true,
		}
	}
	return out
}

func endDeck() []Card {
	ids := []string{"end-heart-1", "end-heart-2", "end-heart-3", "end-career-1", "end-career-2", "end-social", "end-happy"}
	out := make([]Card, len(ids))
	for i, id := range ids {
		out[i] = Card{ID: id, Title: id}
	}
	return out
}

func mustCatalog(t *testing.T, deck []Card) *Catalog {
	t.Helper()
	cat, err := NewCatalog(deck, endDeck())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return cat
}

func mustSeed(t *testing.T, text string) RunSeed {
	t.Helper()
	seed, err := NewRunSeed(text)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return seed
}

type fakePersistence struct {
	saved      []StatSnapshot
	loaded     StatSnapshot
	loadErr    error
	highest    int
	resets     int
	ageUpdates []int
}

func (p *fakePersistence) LoadStats(context.Context) (StatSnapshot, error) {
	return p.loaded, p.loadErr
}

func (p *fakePersistence) SaveStats(_ context.Context, s StatSnapshot) error {
	p.saved = append(p.saved, s)
	return nil
}

func (p *fakePersistence) ResetStatsOnFail(ctx context.Context, l *StatLedger) error {
	p.resets++
	l.Reset(DefaultSnapshot())
	return p.SaveStats(ctx, l.Snapshot())
}

func (p *fakePersistence) HighestAge(context.Context) (int, error) { return p.highest, nil }

func (p *fakePersistence) TryUpdateHighestAge(_ context.Context, age int) (bool, error) {
	p.ageUpdates = append(p.ageUpdates, age)
	if age <= p.highest {
		return false, nil
	}
	p.highest = age
	return true, nil
}

type recordingRenderer struct {
	shown    []string
	pointers map[Stat]bool
	cleared  int
}

func (r *recordingRenderer) DisplayCard(c *Card) { r.shown = append(r.shown, c.ID) }
func (r *recordingRenderer) ClearAnswerHints()   { r.cleared++ }
func (r *recordingRenderer) ShowStatPointer(st Stat, visible bool) {
	if r.pointers == nil {
		r.pointers = map[Stat]bool{}
	}
	r.pointers[st] = visible
}

type recordingEffects struct {
	fails    []GameOverCause
	failures []GameOverCause
	swipes   int
}

func (e *recordingEffects) PlayFailSound(c GameOverCause) { e.fails = append(e.fails, c) }
func (e *recordingEffects) PlaySwipeSound()               { e.swipes++ }
func (e *recordingEffects) ShowFailure(c GameOverCause)   { e.failures = append(e.failures, c) }

type memArchive struct{ runs []RunRecord }

func (a *memArchive) RecordRun(_ context.Context, r RunRecord) (RunRecord, error) {
	r.ID = fmt.Sprintf("run-%d", len(a.runs))
	a.runs = append(a.runs, r)
	return r, nil
}

func (a *memArchive) RecentRuns(_ context.Context, limit int) ([]RunRecord, error) {
	return a.runs, nil
}
