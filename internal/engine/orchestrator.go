package engine

import (
	"context"
	"fmt"
	"io"
	"log"
)

// EndCardRange is a half-open [From, To) slice of the catalog's end cards.
type EndCardRange struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

// DefaultEndCardRanges maps each cause to its end card pool.
func DefaultEndCardRanges() map[GameOverCause]EndCardRange {
	return map[GameOverCause]EndCardRange{
		CauseHeart:       {From: 0, To: 3},
		CauseCareer:      {From: 3, To: 5},
		CauseSociability: {From: 5, To: 6},
		CauseHappiness:   {From: 6, To: 7},
	}
}

// Orchestrator owns the game over state machine for one run.
type Orchestrator struct {
	catalog  *Catalog
	rng      *Stream
	ranges   map[GameOverCause]EndCardRange
	renderer Renderer
	effects  Effects
	logger   *log.Logger

	state    RunState
	cause    GameOverCause
	endCard  *Card
	finished bool
}

type OrchestratorOption func(*Orchestrator)

func WithEndCardRanges(r map[GameOverCause]EndCardRange) OrchestratorOption {
	return func(o *Orchestrator) {
		if len(r) > 0 {
			o.ranges = r
		}
	}
}

func WithOrchestratorLogger(l *log.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOrchestrator returns an orchestrator in the Active state. Nil collaborators are replaced by no-ops.
func NewOrchestrator(catalog *Catalog, rng *Stream, renderer Renderer, effects Effects, opts ...OrchestratorOption) *Orchestrator {
	if renderer == nil {
		renderer = NopRenderer{}
	}
	if effects == nil {
		effects = NopEffects{}
	}
	o := &Orchestrator{
		catalog:  catalog,
		rng:      rng,
		ranges:   DefaultEndCardRanges(),
		renderer: renderer,
		effects:  effects,
		logger:   log.New(io.Discard, "", 0),
		state:    RunActive,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) State() RunState      { return o.state }
func (o *Orchestrator) Cause() GameOverCause { return o.cause }
func (o *Orchestrator) EndCard() *Card       { return o.endCard }
func (o *Orchestrator) InputFrozen() bool    { return o.state == RunGameOver }

// HandleFinished ends the run on the first depletion signal and reports whether this call did so.
// Later signals are dropped by the latch.
func (o *Orchestrator) HandleFinished(st Stat) bool {
	if o.finished || o.state != RunActive {
		return false
	}
	o.finished = true
	o.state = RunGameOver
	o.cause = st.Cause()
	if !o.cause.Validate() {
		o.logger.Printf("unknown game over cause %q", o.cause)
	}
	o.endCard = o.pickEndCard(o.cause)
	o.effects.PlayFailSound(o.cause)
	o.effects.ShowFailure(o.cause)
	if o.endCard != nil {
		o.renderer.DisplayCard(o.endCard)
	}
	return true
}

func (o *Orchestrator) pickEndCard(cause GameOverCause) *Card {
	r, ok := o.ranges[cause]
	if !ok {
		o.logger.Printf("no end card range for %q", cause)
		return nil
	}
	ends := o.catalog.EndCards()
	from, to := max(r.From, 0), min(r.To, len(ends))
	if from >= to {
		o.logger.Printf("end card pool %q [%d,%d) is empty (have %d end cards)", cause, r.From, r.To, len(ends))
		return nil
	}
	return ends[o.rng.Range(from, to)]
}

// Conclude runs the persistence half of the restart flow: the highest age is stored only when
// exceeded, then the ledger is reset through the persistence layer. A failed reset still leaves
// the ledger at defaults.
func (o *Orchestrator) Conclude(ctx context.Context, ledger *StatLedger, persist Persistence) error {
	if o.state != RunGameOver {
		return ErrNotGameOver
	}
	var firstErr error
	if updated, err := persist.TryUpdateHighestAge(ctx, int(ledger.Age())); err != nil {
		firstErr = fmt.Errorf("update highest age: %w", err)
	} else if updated {
		o.logger.Printf("new highest age %d", int(ledger.Age()))
	}
	if err := persist.ResetStatsOnFail(ctx, ledger); err != nil {
		ledger.Reset(DefaultSnapshot())
		if firstErr == nil {
			firstErr = fmt.Errorf("reset stats: %w", err)
		}
	}
	return firstErr
}
