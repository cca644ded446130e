package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type runFixture struct {
	rc       *RunContext
	persist  *fakePersistence
	renderer *recordingRenderer
	effects  *recordingEffects
	archive  *memArchive
	notes    *[]Notification
}

func newRunFixture(t *testing.T, deck []Card, delay time.Duration) runFixture {
	t.Helper()
	f := runFixture{
		persist:  &fakePersistence{},
		renderer: &recordingRenderer{},
		effects:  &recordingEffects{},
		archive:  &memArchive{},
		notes:    &[]Notification{},
	}
	notes := f.notes
	rc, err := NewRunContext(RunConfig{
		Catalog:      mustCatalog(t, deck),
		Progress:     ProgressConfig{TotalCardCount: len(deck), FinalCardProgress: 100},
		Seed:         mustSeed(t, "run-test"),
		RestartDelay: delay,
		Renderer:     f.renderer,
		Persistence:  f.persist,
		Effects:      f.effects,
		Archive:      f.archive,
		Observer:     func(n Notification) { *notes = append(*notes, n) },
	})
	if err != nil {
		t.Fatalf("run context: %v", err)
	}
	f.rc = rc
	return f
}

func lethalDeck() []Card {
	deck := plainDeck(4)
	for i := range deck {
		deck[i].LeftImpact = Impact{Heart: -60}
		deck[i].AgeImpact = 6
	}
	return deck
}

func TestRunRequiresStart(t *testing.T) {
	f := newRunFixture(t, plainDeck(3), time.Millisecond)
	if _, err := f.rc.BeginDismiss(DirectionLeft); !errors.Is(err, ErrNoRun) {
		t.Fatalf("err = %v, want ErrNoRun", err)
	}
}

func TestTwoPhaseDismiss(t *testing.T) {
	f := newRunFixture(t, plainDeck(5), time.Millisecond)
	ctx := context.Background()
	first, err := f.rc.Start(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	h, err := f.rc.BeginDismiss(DirectionRight)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if h.Card != first {
		t.Fatalf("handle card = %s, want %s", h.Card.ID, first.ID)
	}
	if _, err := f.rc.BeginDismiss(DirectionLeft); !errors.Is(err, ErrDismissPending) {
		t.Fatalf("second begin err = %v, want ErrDismissPending", err)
	}
	if !f.rc.Snapshot().Pending {
		t.Fatal("view should report the pending dismissal")
	}
	next, err := f.rc.CompleteDismiss(ctx, h)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if next == nil || next.ID == first.ID {
		t.Fatalf("next = %v, want a different card", next)
	}
	if _, err := f.rc.CompleteDismiss(ctx, h); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("reused handle err = %v, want ErrStaleHandle", err)
	}
	if len(f.persist.saved) != 1 {
		t.Fatalf("saves = %d, want 1 per applied card", len(f.persist.saved))
	}
	if got := f.rc.Snapshot().Stats.Career; !approx(got, 0.51) {
		t.Fatalf("career = %v, want 0.51", got)
	}
	if f.effects.swipes != 1 {
		t.Fatalf("swipe sounds = %d", f.effects.swipes)
	}
	if len(f.renderer.shown) != 2 || f.renderer.shown[1] != next.ID {
		t.Fatalf("renderer saw %v", f.renderer.shown)
	}
}

func TestPreviewDrivesStatPointers(t *testing.T) {
	f := newRunFixture(t, plainDeck(3), time.Millisecond)
	if _, err := f.rc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.rc.Preview(); err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !f.renderer.pointers[StatHeart] || !f.renderer.pointers[StatCareer] {
		t.Fatalf("pointers = %v", f.renderer.pointers)
	}
	f.rc.CancelPreview()
	for st, on := range f.renderer.pointers {
		if on {
			t.Fatalf("%s pointer still visible", st)
		}
	}
	if f.renderer.cleared == 0 {
		t.Fatal("answer hints were not cleared")
	}
}

func TestGameOverFreezesInputAndShowsEndCard(t *testing.T) {
	f := newRunFixture(t, lethalDeck(), time.Millisecond)
	ctx := context.Background()
	if _, err := f.rc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	card, err := f.rc.Dismiss(ctx, DirectionLeft)
	if err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if card == nil || !strings.HasPrefix(card.ID, "end-heart") {
		t.Fatalf("card = %v, want a heart end card", card)
	}
	v := f.rc.Snapshot()
	if v.State != RunGameOver || v.Cause != CauseHeart {
		t.Fatalf("view = %+v", v)
	}
	if _, err := f.rc.BeginDismiss(DirectionRight); !errors.Is(err, ErrInputFrozen) {
		t.Fatalf("err = %v, want ErrInputFrozen", err)
	}
	if len(f.archive.runs) != 1 || f.archive.runs[0].Cause != CauseHeart || f.archive.runs[0].Swipes != 1 {
		t.Fatalf("archive = %+v", f.archive.runs)
	}
}

func TestRestartResetsAndKeepsObserver(t *testing.T) {
	f := newRunFixture(t, lethalDeck(), time.Millisecond)
	ctx := context.Background()
	if _, err := f.rc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.rc.Dismiss(ctx, DirectionLeft); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	card, err := f.rc.AwaitRestart(ctx)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if card == nil || strings.HasPrefix(card.ID, "end-") {
		t.Fatalf("first card of new run = %v", card)
	}
	v := f.rc.Snapshot()
	if v.Run != 1 || v.State != RunActive || v.Stats != (Stats{0.5, 0.5, 0.5, 0.5}) || v.Age != DefaultAge {
		t.Fatalf("view after restart = %+v", v)
	}
	if f.persist.resets != 1 || f.persist.highest != 21 {
		t.Fatalf("persistence = resets %d highest %d", f.persist.resets, f.persist.highest)
	}
	before := len(*f.notes)
	if _, err := f.rc.Dismiss(ctx, DirectionRight); err != nil {
		t.Fatalf("dismiss after restart: %v", err)
	}
	if len(*f.notes) == before {
		t.Fatal("observer was not resubscribed after restart")
	}
}

func TestWaitRestartCancellationLeavesStateAlone(t *testing.T) {
	f := newRunFixture(t, lethalDeck(), time.Hour)
	ctx := context.Background()
	if err := f.rc.WaitRestart(ctx); !errors.Is(err, ErrNoRun) && !errors.Is(err, ErrNotGameOver) {
		t.Fatalf("err = %v before game over", err)
	}
	if _, err := f.rc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.rc.Dismiss(ctx, DirectionLeft); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	before := f.rc.Snapshot()
	saves := len(f.persist.saved)

	cctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		_, err := f.rc.AwaitRestart(cctx)
		done <- err
	}()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancel did not interrupt the restart wait")
	}
	after := f.rc.Snapshot()
	if after.Run != before.Run || after.State != RunGameOver || after.Stats != before.Stats {
		t.Fatalf("state changed on cancel: %+v -> %+v", before, after)
	}
	if f.persist.resets != 0 || len(f.persist.saved) != saves || len(f.persist.ageUpdates) != 0 {
		t.Fatal("persistence touched on cancel")
	}
}

func TestStartFallsBackOnDepletedSave(t *testing.T) {
	f := newRunFixture(t, plainDeck(3), time.Millisecond)
	f.persist.loaded = StatSnapshot{Version: SnapshotVersion, Heart: 0, Career: 0.3, Happiness: 0.3, Sociability: 0.3, Age: 44}
	if _, err := f.rc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if f.rc.Snapshot().Stats.Heart != DefaultStatValue {
		t.Fatal("depleted save should not be restored")
	}
}

func TestStartRestoresSavedStats(t *testing.T) {
	f := newRunFixture(t, plainDeck(3), time.Millisecond)
	f.persist.loaded = StatSnapshot{Version: SnapshotVersion, Heart: 0.2, Career: 0.3, Happiness: 0.4, Sociability: 0.9, Age: 27}
	if _, err := f.rc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	v := f.rc.Snapshot()
	if v.Stats.Sociability != 0.9 || v.Age != 27 {
		t.Fatalf("view = %+v", v)
	}
}

func TestForceNextThroughRunContext(t *testing.T) {
	f := newRunFixture(t, plainDeck(6), time.Millisecond)
	ctx := context.Background()
	if err := f.rc.ForceNext("c5"); !errors.Is(err, ErrNoRun) {
		t.Fatalf("err = %v, want ErrNoRun", err)
	}
	if _, err := f.rc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.rc.ForceNext("c5"); err != nil {
		t.Fatalf("force: %v", err)
	}
	next, err := f.rc.Dismiss(ctx, DirectionLeft)
	if err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if next.ID != "c5" {
		t.Fatalf("next = %s, want c5", next.ID)
	}
}
