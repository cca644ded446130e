package ui

import (
	"io"
	"strings"

	"github.com/DaanHessen/lifeswipe/internal/engine"
)

// bridge is the engine's view of the terminal. The run context calls it under its own lock, so
// it only records state for the next View and never calls back into the run.
type bridge struct {
	out   io.Writer
	sound bool

	shown    *engine.Card
	pointers map[engine.Stat]bool
	trend    map[engine.Stat]int
	last     map[engine.Stat]float64
	failure  engine.GameOverCause
}

func newBridge(out io.Writer, sound bool) *bridge {
	return &bridge{
		out:      out,
		sound:    sound,
		pointers: map[engine.Stat]bool{},
		trend:    map[engine.Stat]int{},
		last:     map[engine.Stat]float64{},
	}
}

func (b *bridge) DisplayCard(card *engine.Card) { b.shown = card }

func (b *bridge) ClearAnswerHints() {
	clear(b.pointers)
}

func (b *bridge) ShowStatPointer(st engine.Stat, visible bool) {
	if visible {
		b.pointers[st] = true
		return
	}
	delete(b.pointers, st)
}

func (b *bridge) PlaySwipeSound() {
	clear(b.trend)
	b.bell(1)
}

func (b *bridge) PlayFailSound(engine.GameOverCause) { b.bell(2) }

func (b *bridge) ShowFailure(cause engine.GameOverCause) { b.failure = cause }

// bell rings the terminal bell n times in a single write.
func (b *bridge) bell(n int) {
	if !b.sound || b.out == nil || n <= 0 {
		return
	}
	_, _ = io.WriteString(b.out, strings.Repeat("\a", n))
}

// observe tracks the direction of the last change per stat for the trend arrows.
func (b *bridge) observe(n engine.Notification) {
	if n.Kind != engine.NoteStatChanged {
		return
	}
	prev, seen := b.last[n.Stat]
	b.last[n.Stat] = n.Value
	switch {
	case !seen || n.Value == prev:
		b.trend[n.Stat] = 0
	case n.Value > prev:
		b.trend[n.Stat] = 1
	default:
		b.trend[n.Stat] = -1
	}
}
