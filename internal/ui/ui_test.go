package ui

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DaanHessen/lifeswipe/internal/catalog"
	"github.com/DaanHessen/lifeswipe/internal/engine"
	"github.com/DaanHessen/lifeswipe/internal/store"
	"github.com/DaanHessen/lifeswipe/internal/text"
	"github.com/DaanHessen/lifeswipe/internal/util"
)

// harshDeck empties heart on the first swipe either way.
func harshDeck() *catalog.Deck {
	d := &catalog.Deck{
		Name:     "harsh",
		Progress: engine.ProgressConfig{TotalCardCount: 2, FinalCardProgress: 100},
	}
	for _, id := range []string{"alpha", "beta"} {
		d.Cards = append(d.Cards, engine.Card{
			ID:          id,
			Title:       strings.ToUpper(id[:1]) + id[1:],
			LeftAnswer:  "No",
			RightAnswer: "Yes",
			LeftImpact:  engine.Impact{Heart: -50},
			RightImpact: engine.Impact{Heart: -50, Career: 5},
		})
	}
	for i := 0; i < 7; i++ {
		d.EndCards = append(d.EndCards, engine.Card{ID: fmt.Sprintf("end%d", i), Title: fmt.Sprintf("End %d", i)})
	}
	return d
}

type fixture struct {
	m       model
	backend *store.MemoryStore
	bell    *bytes.Buffer
}

func newFixture(t *testing.T, deck *catalog.Deck) fixture {
	t.Helper()
	cfg := util.Config{
		SeedText:          "ui-test",
		TotalCardCount:    158,
		FinalCardProgress: 100,
		FeedMode:          "shuffle",
		RestartDelay:      time.Millisecond,
	}
	backend := store.NewMemoryStore()
	bell := &bytes.Buffer{}
	br := newBridge(bell, false)
	rc, err := newRunContext(cfg, deck, backend, br, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("run context: %v", err)
	}
	m := newModel(context.Background(), rc, backend, br, defaultTheme, "test")
	m.renderer = text.NewTemplateRenderer()
	return fixture{m: m, backend: backend, bell: bell}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(m model, msg tea.Msg) (model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(model), cmd
}

func press(m model, keys ...string) model {
	for _, k := range keys {
		m, _ = update(m, key(k))
	}
	return m
}

func TestStartScreenShowsHighestAge(t *testing.T) {
	f := newFixture(t, harshDeck())
	if _, err := f.backend.TryUpdateHighestAge(context.Background(), 64); err != nil {
		t.Fatalf("seed highest: %v", err)
	}
	f.m.refreshHighest()
	if got := f.m.View(); !strings.Contains(got, "Oldest age reached: 64") {
		t.Fatalf("start view missing highest age:\n%s", got)
	}
	m := press(f.m, "enter")
	if m.view != viewCard || !m.started {
		t.Fatalf("enter should start the run, view=%s", m.view)
	}
	v := m.rc.Snapshot()
	if v.Current == nil {
		t.Fatal("no card dealt")
	}
	if got := m.View(); !strings.Contains(got, v.Current.Title) || !strings.Contains(got, "LIFESWIPE") {
		t.Fatalf("card view missing title %q:\n%s", v.Current.Title, got)
	}
}

func TestLeanPreviewAndCancel(t *testing.T) {
	f := newFixture(t, harshDeck())
	m := press(f.m, "enter", "right")
	if m.lean != engine.DirectionRight {
		t.Fatalf("lean = %q", m.lean)
	}
	if !m.bridge.pointers[engine.StatHeart] || !m.bridge.pointers[engine.StatCareer] {
		t.Fatalf("pointers = %v", m.bridge.pointers)
	}
	if m.bridge.pointers[engine.StatHappiness] {
		t.Fatal("happiness is not affected by this card")
	}
	m = press(m, "left")
	if m.lean != engine.DirectionLeft {
		t.Fatalf("lean after switching = %q", m.lean)
	}
	m = press(m, "esc")
	if m.lean != "" || len(m.bridge.pointers) != 0 {
		t.Fatalf("esc should centre the card, lean=%q pointers=%v", m.lean, m.bridge.pointers)
	}
}

func TestSwitchingLeanCancelsPreviewFirst(t *testing.T) {
	cfg := util.Config{SeedText: "ui-lean", TotalCardCount: 158, FinalCardProgress: 100, FeedMode: "shuffle", RestartDelay: time.Millisecond}
	backend := store.NewMemoryStore()
	br := newBridge(nil, false)
	rcfg, err := harshDeck().RunConfig(cfg)
	if err != nil {
		t.Fatalf("run config: %v", err)
	}
	var kinds []engine.NotificationKind
	rcfg.Renderer = br
	rcfg.Effects = br
	rcfg.Persistence = backend
	rcfg.Archive = backend
	rcfg.Observer = func(n engine.Notification) {
		kinds = append(kinds, n.Kind)
		br.observe(n)
	}
	rc, err := engine.NewRunContext(rcfg)
	if err != nil {
		t.Fatalf("run context: %v", err)
	}
	m := newModel(context.Background(), rc, backend, br, defaultTheme, "test")
	m.renderer = text.NewTemplateRenderer()
	m = press(m, "enter", "right")
	kinds = nil
	m = press(m, "left")
	if m.lean != engine.DirectionLeft {
		t.Fatalf("lean = %q", m.lean)
	}
	if len(kinds) < 2 || kinds[0] != engine.NotePreviewCleared {
		t.Fatalf("switching lean should clear the old preview first, got %v", kinds)
	}
	for _, k := range kinds[1:] {
		if k != engine.NoteStatAffected {
			t.Fatalf("unexpected notification after clear: %v", kinds)
		}
	}
	if !br.pointers[engine.StatHeart] {
		t.Fatalf("new preview should point at heart, pointers = %v", br.pointers)
	}
}

func TestSwipeToGameOverAndRestart(t *testing.T) {
	f := newFixture(t, harshDeck())
	f.m.bridge.sound = true
	m := press(f.m, "enter", "right")
	m, cmd := update(m, key("right"))
	if m.pending == nil || cmd == nil {
		t.Fatal("second lean should start the swipe animation")
	}
	m, cmd = update(m, swipeTickMsg{frame: 2})
	if m.pending == nil || m.frame != 2 || cmd == nil {
		t.Fatalf("mid-animation frame=%d pending=%v", m.frame, m.pending != nil)
	}
	m, cmd = update(m, swipeTickMsg{frame: swipeFrames})
	v := m.rc.Snapshot()
	if v.State != engine.RunGameOver || v.Cause != engine.CauseHeart {
		t.Fatalf("state=%s cause=%s", v.State, v.Cause)
	}
	if m.bridge.failure != engine.CauseHeart || !m.waiting || cmd == nil {
		t.Fatalf("failure=%q waiting=%v", m.bridge.failure, m.waiting)
	}
	if v.Current == nil || !strings.HasPrefix(v.Current.ID, "end") {
		t.Fatalf("end card = %+v", v.Current)
	}
	if got := strings.Count(f.bell.String(), "\a"); got != 3 {
		t.Fatalf("bells = %d, want swipe plus fail", got)
	}
	if got := m.View(); !strings.Contains(got, "Game over (heart)") {
		t.Fatalf("game over view:\n%s", got)
	}

	m = press(m, "left")
	if !strings.Contains(m.status, "over") {
		t.Fatalf("input should be frozen, status=%q", m.status)
	}

	m, _ = update(m, cmd())
	v = m.rc.Snapshot()
	if v.State != engine.RunActive || v.Run != 1 || v.Current == nil || strings.HasPrefix(v.Current.ID, "end") {
		t.Fatalf("after restart: %+v", v)
	}
	if m.highest != int(engine.DefaultAge) || m.bridge.failure != "" {
		t.Fatalf("highest=%d failure=%q", m.highest, m.bridge.failure)
	}
	if v.Stats.Heart != engine.DefaultStatValue {
		t.Fatalf("heart not reset: %v", v.Stats.Heart)
	}

	runs, _ := f.backend.RecentRuns(context.Background(), 10)
	if len(runs) != 1 || runs[0].Cause != engine.CauseHeart || runs[0].Swipes != 1 {
		t.Fatalf("archived runs = %+v", runs)
	}
	m = press(m, "r")
	if m.view != viewHistory || !strings.Contains(m.View(), "heart") {
		t.Fatalf("history view:\n%s", m.View())
	}
	m = press(m, "esc")
	if m.view != viewCard {
		t.Fatalf("esc from history should return to the card, got %s", m.view)
	}
}

func TestCancelledRestartLeavesGameOver(t *testing.T) {
	f := newFixture(t, harshDeck())
	m := press(f.m, "enter", "left")
	m, _ = update(m, key("enter"))
	m, _ = update(m, swipeTickMsg{frame: swipeFrames})
	m, _ = update(m, restartMsg{err: context.Canceled})
	if m.waiting || m.rc.Snapshot().State != engine.RunGameOver {
		t.Fatal("a cancelled wait must not restart the run")
	}
}

func TestSettingsKeys(t *testing.T) {
	f := newFixture(t, harshDeck())
	ctx := context.Background()
	m := press(f.m, "s")
	if m.settings.SoundEnabled || m.bridge.sound {
		t.Fatal("sound should be off")
	}
	m = press(m, "f")
	if !m.settings.ForesightUnlocked || !strings.Contains(m.status, "unlocked") {
		t.Fatalf("foresight status=%q", m.status)
	}
	m = press(m, "f")
	if !strings.Contains(m.status, "already") {
		t.Fatalf("second unlock status=%q", m.status)
	}
	m = press(m, "t")
	if m.settings.Theme != "forest" {
		t.Fatalf("theme = %q", m.settings.Theme)
	}
	saved, _ := f.backend.LoadSettings(ctx)
	if saved.SoundEnabled || !saved.ForesightUnlocked || saved.Theme != "forest" {
		t.Fatalf("saved settings = %+v", saved)
	}
	m = press(m, "o")
	if m.view != viewSettings || !strings.Contains(m.View(), "Foresight: unlocked") {
		t.Fatalf("settings view:\n%s", m.View())
	}
}

func TestForesightShowsMagnitudes(t *testing.T) {
	f := newFixture(t, harshDeck())
	m := press(f.m, "f", "enter", "right")
	if got := m.View(); !strings.Contains(got, "heart -50") || !strings.Contains(got, "career +5") {
		t.Fatalf("foresight magnitudes missing:\n%s", got)
	}
}

func TestBridgeTrend(t *testing.T) {
	b := newBridge(nil, true)
	b.observe(engine.Notification{Kind: engine.NoteStatChanged, Stat: engine.StatHeart, Value: 0.5})
	b.observe(engine.Notification{Kind: engine.NoteStatChanged, Stat: engine.StatHeart, Value: 0.4})
	if b.trend[engine.StatHeart] != -1 {
		t.Fatalf("trend = %d", b.trend[engine.StatHeart])
	}
	b.observe(engine.Notification{Kind: engine.NoteStatChanged, Stat: engine.StatHeart, Value: 0.6})
	if b.trend[engine.StatHeart] != 1 {
		t.Fatalf("trend = %d", b.trend[engine.StatHeart])
	}
	b.PlaySwipeSound()
	if len(b.trend) != 0 {
		t.Fatal("a new swipe clears trends")
	}
}

type countingWriter struct {
	writes int
	buf    bytes.Buffer
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes++
	return w.buf.Write(p)
}

func TestBellIsASingleWrite(t *testing.T) {
	w := &countingWriter{}
	b := newBridge(w, true)
	b.PlayFailSound(engine.CauseHeart)
	if w.writes != 1 || w.buf.String() != "\a\a" {
		t.Fatalf("fail bell: %d writes, %q", w.writes, w.buf.String())
	}
	b.sound = false
	b.PlaySwipeSound()
	if w.writes != 1 {
		t.Fatal("muted bridge should not write")
	}
}

func TestNextThemeName(t *testing.T) {
	if got := nextThemeName("mono", 1); got != "dawn" {
		t.Fatalf("wrap forward = %q", got)
	}
	if got := nextThemeName("dawn", -1); got != "mono" {
		t.Fatalf("wrap back = %q", got)
	}
	if paletteFor("nope").Accent != paletteFor(defaultTheme).Accent {
		t.Fatal("unknown theme should use the default palette")
	}
}
