package engine

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

// DefaultRestartDelay is how long the end card stays up before a new run starts.
const DefaultRestartDelay = 5 * time.Second

// Renderer shows cards and stat indicators.
type Renderer interface {
	DisplayCard(card *Card)
	ClearAnswerHints()
	ShowStatPointer(st Stat, visible bool)
}

// Persistence stores the stat snapshot and the highest age ever reached.
type Persistence interface {
	LoadStats(ctx context.Context) (StatSnapshot, error)
	SaveStats(ctx context.Context, snap StatSnapshot) error
	// ResetStatsOnFail resets ledger to defaults and saves the result immediately.
	ResetStatsOnFail(ctx context.Context, ledger *StatLedger) error
	HighestAge(ctx context.Context) (int, error)
	TryUpdateHighestAge(ctx context.Context, age int) (bool, error)
}

// Effects plays sounds and failure overlays.
type Effects interface {
	PlayFailSound(cause GameOverCause)
	PlaySwipeSound()
	ShowFailure(cause GameOverCause)
}

// RunRecord summarises a finished run.
type RunRecord struct {
	ID        string
	Run       int
	Seed      string
	Cause     GameOverCause
	Age       float64
	Progress  float64
	CardsSeen int
	Swipes    int
	EndedAt   time.Time
}

// RunArchive keeps finished runs. It is optional.
type RunArchive interface {
	RecordRun(ctx context.Context, rec RunRecord) (RunRecord, error)
	RecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
}

type NopRenderer struct{}

func (NopRenderer) DisplayCard(*Card)          {}
func (NopRenderer) ClearAnswerHints()          {}
func (NopRenderer) ShowStatPointer(Stat, bool) {}

type NopEffects struct{}

func (NopEffects) PlayFailSound(GameOverCause) {}
func (NopEffects) PlaySwipeSound()             {}
func (NopEffects) ShowFailure(GameOverCause)   {}

// RunConfig wires a RunContext.
type RunConfig struct {
	Catalog       *Catalog
	Progress      ProgressConfig
	Seed          RunSeed
	FeedMode      FeedMode
	RestartDelay  time.Duration
	EndCardRanges map[GameOverCause]EndCardRange

	Renderer    Renderer
	Persistence Persistence
	Effects     Effects
	Archive     RunArchive
	// Observer is resubscribed to the notification bus at the start of every run.
	Observer func(Notification)
	Logger   *log.Logger
}

// DismissHandle identifies one in-flight swipe between BeginDismiss and CompleteDismiss.
type DismissHandle struct {
	seq  uint64
	run  int
	Card *Card
	Dir  Direction
}

// RunView is a consistent copy of the run state for display.
type RunView struct {
	Run      int
	State    RunState
	Cause    GameOverCause
	Stats    Stats
	Age      float64
	Progress float64
	Current  *Card
	Swipes   int
	Pending  bool
}

// RunContext owns every run-scoped object. All exported methods serialise on one mutex;
// collaborators are called with the lock held and must not call back in.
type RunContext struct {
	mu     sync.Mutex
	cfg    RunConfig
	logger *log.Logger

	bus          *Bus
	ledger       *StatLedger
	progress     *ProgressManager
	selector     *Selector
	orchestrator *Orchestrator

	started  bool
	run      int
	current  *Card
	swipes   int
	seq      uint64
	pending  *DismissHandle
	archived bool
}

// NewRunContext validates cfg and fills defaults. Call Start to deal the first card.
func NewRunContext(cfg RunConfig) (*RunContext, error) {
	if cfg.Catalog == nil || cfg.Catalog.Len() == 0 {
		return nil, ErrEmptyDeck
	}
	if cfg.Progress == (ProgressConfig{}) {
		cfg.Progress = DefaultProgressConfig()
	}
	if err := cfg.Progress.Validate(); err != nil {
		return nil, fmt.Errorf("progress config: %w", err)
	}
	if cfg.Seed.Text == "" {
		seed, err := NewRunSeed(fmt.Sprintf("run-%d", time.Now().UnixNano()))
		if err != nil {
			return nil, err
		}
		cfg.Seed = seed
	}
	if !cfg.FeedMode.Validate() {
		cfg.FeedMode = FeedShuffle
	}
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = DefaultRestartDelay
	}
	if cfg.Renderer == nil {
		cfg.Renderer = NopRenderer{}
	}
	if cfg.Effects == nil {
		cfg.Effects = NopEffects{}
	}
	if cfg.Persistence == nil {
		return nil, fmt.Errorf("run context: persistence is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	bus := &Bus{}
	return &RunContext{
		cfg:      cfg,
		logger:   logger,
		bus:      bus,
		ledger:   NewStatLedger(bus),
		progress: NewProgressManager(cfg.Progress),
	}, nil
}

// Start loads saved stats and deals the first card. Calling it again returns the current card.
func (rc *RunContext) Start(ctx context.Context) (*Card, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.started {
		return rc.current, nil
	}
	snap, err := rc.cfg.Persistence.LoadStats(ctx)
	if err != nil {
		rc.logger.Printf("load stats: %v (starting from defaults)", err)
		snap = DefaultSnapshot()
	}
	if depletedSnapshot(snap) {
		rc.logger.Printf("saved stats already depleted, starting from defaults")
		snap = DefaultSnapshot()
	}
	if err := rc.buildRun(); err != nil {
		return nil, err
	}
	rc.ledger.Reset(snap)
	rc.started = true
	return rc.dealFirst()
}

func (rc *RunContext) buildRun() error {
	seed := rc.cfg.Seed.ForRun(rc.run)
	sel, err := NewSelector(rc.cfg.Catalog, seed.Stream("selector"),
		WithFeedMode(rc.cfg.FeedMode),
		WithSelectorLogger(prefixed(rc.logger, "[selector] ")))
	if err != nil {
		return err
	}
	rc.selector = sel
	rc.orchestrator = NewOrchestrator(rc.cfg.Catalog, seed.Stream("endcards"), rc.cfg.Renderer, rc.cfg.Effects,
		WithEndCardRanges(rc.cfg.EndCardRanges),
		WithOrchestratorLogger(prefixed(rc.logger, "[orchestrator] ")))
	rc.progress.ResetRun()
	rc.swipes = 0
	rc.pending = nil
	rc.archived = false

	rc.bus.Clear()
	rc.bus.Subscribe(rc.onNotification)
	if rc.cfg.Observer != nil {
		rc.bus.Subscribe(rc.cfg.Observer)
	}
	return nil
}

// onNotification forwards ledger events to the orchestrator and renderer. It runs under rc.mu.
func (rc *RunContext) onNotification(n Notification) {
	switch n.Kind {
	case NoteStatFinished:
		rc.orchestrator.HandleFinished(n.Stat)
	case NoteStatAffected:
		rc.cfg.Renderer.ShowStatPointer(n.Stat, true)
	case NotePreviewCleared:
		for _, st := range AllStats {
			rc.cfg.Renderer.ShowStatPointer(st, false)
		}
	}
}

func (rc *RunContext) dealFirst() (*Card, error) {
	card, err := rc.selector.Next(nil, DirectionRight)
	if err != nil {
		return nil, err
	}
	rc.show(card)
	return card, nil
}

func (rc *RunContext) show(card *Card) {
	rc.current = card
	rc.selector.MarkShown(card)
	rc.progress.OnCardShown(card)
	rc.cfg.Renderer.DisplayCard(card)
}

// Preview announces which stats the current card can move while a drag is in progress.
func (rc *RunContext) Preview() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if err := rc.acceptingInput(); err != nil {
		return err
	}
	rc.ledger.PreviewImpacts(rc.current)
	return nil
}

// CancelPreview clears preview indicators when a drag returns to centre.
func (rc *RunContext) CancelPreview() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if !rc.started {
		return
	}
	rc.ledger.CancelPreview()
	rc.cfg.Renderer.ClearAnswerHints()
}

func (rc *RunContext) acceptingInput() error {
	if !rc.started {
		return ErrNoRun
	}
	if rc.orchestrator.InputFrozen() {
		return ErrInputFrozen
	}
	return nil
}

// BeginDismiss commits a swipe of the current card towards dir. The host animates the card away
// and then calls CompleteDismiss with the returned handle.
func (rc *RunContext) BeginDismiss(dir Direction) (DismissHandle, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if err := rc.acceptingInput(); err != nil {
		return DismissHandle{}, err
	}
	if !dir.Validate() {
		return DismissHandle{}, fmt.Errorf("unknown direction %q", dir)
	}
	if rc.pending != nil {
		return DismissHandle{}, ErrDismissPending
	}
	rc.seq++
	h := DismissHandle{seq: rc.seq, run: rc.run, Card: rc.current, Dir: dir}
	rc.pending = &h
	rc.ledger.CancelPreview()
	rc.cfg.Renderer.ClearAnswerHints()
	rc.cfg.Effects.PlaySwipeSound()
	return h, nil
}

// CompleteDismiss applies the swiped card and returns the card now on screen: the next card, or
// the end card when the swipe depleted a stat.
func (rc *RunContext) CompleteDismiss(ctx context.Context, h DismissHandle) (*Card, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.pending == nil || rc.pending.seq != h.seq || rc.pending.run != h.run {
		return nil, ErrStaleHandle
	}
	rc.pending = nil
	rc.swipes++
	rc.ledger.ApplyCard(h.Card, h.Dir)
	if err := rc.cfg.Persistence.SaveStats(ctx, rc.ledger.Snapshot()); err != nil {
		rc.logger.Printf("save stats: %v", err)
	}
	if rc.orchestrator.State() == RunGameOver {
		rc.archive(ctx)
		rc.current = rc.orchestrator.EndCard()
		return rc.current, nil
	}
	next, err := rc.selector.Next(h.Card, h.Dir)
	if err != nil {
		return nil, err
	}
	rc.show(next)
	return next, nil
}

// Dismiss is BeginDismiss followed immediately by CompleteDismiss, for hosts without animation.
func (rc *RunContext) Dismiss(ctx context.Context, dir Direction) (*Card, error) {
	h, err := rc.BeginDismiss(dir)
	if err != nil {
		return nil, err
	}
	return rc.CompleteDismiss(ctx, h)
}

func (rc *RunContext) archive(ctx context.Context) {
	if rc.cfg.Archive == nil || rc.archived {
		return
	}
	rc.archived = true
	rec := RunRecord{
		Run:       rc.run,
		Seed:      rc.cfg.Seed.Text,
		Cause:     rc.orchestrator.Cause(),
		Age:       rc.ledger.Age(),
		Progress:  rc.progress.Progress(),
		CardsSeen: rc.progress.Tracker().Count(),
		Swipes:    rc.swipes,
		EndedAt:   time.Now().UTC(),
	}
	if _, err := rc.cfg.Archive.RecordRun(ctx, rec); err != nil {
		rc.logger.Printf("archive run %d: %v", rc.run, err)
	}
}

// ForceNext arms a one-shot debug override for the next selection.
func (rc *RunContext) ForceNext(id string) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if !rc.started {
		return ErrNoRun
	}
	return rc.selector.ForceNext(id)
}

// RestartDelay is the pause between game over and the next run.
func (rc *RunContext) RestartDelay() time.Duration { return rc.cfg.RestartDelay }

// WaitRestart blocks for the restart delay once the run is over. Cancelling ctx returns ctx.Err()
// without touching any state.
func (rc *RunContext) WaitRestart(ctx context.Context) error {
	rc.mu.Lock()
	over := rc.started && rc.orchestrator.State() == RunGameOver
	rc.mu.Unlock()
	if !over {
		return ErrNotGameOver
	}
	t := time.NewTimer(rc.cfg.RestartDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// AwaitRestart waits out the restart delay and then restarts the run.
func (rc *RunContext) AwaitRestart(ctx context.Context) (*Card, error) {
	if err := rc.WaitRestart(ctx); err != nil {
		return nil, err
	}
	return rc.Restart(ctx)
}

// Restart persists the highest age, resets the ledger through persistence, drops every
// subscription and deals the first card of a new run.
func (rc *RunContext) Restart(ctx context.Context) (*Card, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if !rc.started || rc.orchestrator.State() != RunGameOver {
		return nil, ErrNotGameOver
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := rc.orchestrator.Conclude(ctx, rc.ledger, rc.cfg.Persistence); err != nil {
		rc.logger.Printf("restart: %v", err)
	}
	rc.run++
	if err := rc.buildRun(); err != nil {
		return nil, err
	}
	return rc.dealFirst()
}

// Snapshot returns a consistent view of the run.
func (rc *RunContext) Snapshot() RunView {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	v := RunView{
		Run:     rc.run,
		State:   RunActive,
		Stats:   rc.ledger.Stats(),
		Age:     rc.ledger.Age(),
		Current: rc.current,
		Swipes:  rc.swipes,
		Pending: rc.pending != nil,
	}
	if rc.started {
		v.State = rc.orchestrator.State()
		v.Cause = rc.orchestrator.Cause()
		v.Progress = rc.progress.Progress()
	}
	return v
}

// HighestAge reads the stored best age.
func (rc *RunContext) HighestAge(ctx context.Context) (int, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.cfg.Persistence.HighestAge(ctx)
}

func depletedSnapshot(s StatSnapshot) bool {
	if s.Version == 0 {
		return false
	}
	for _, v := range []float64{s.Heart, s.Career, s.Happiness, s.Sociability} {
		if v <= DepletionEpsilon {
			return true
		}
	}
	return false
}

func prefixed(l *log.Logger, prefix string) *log.Logger {
	return log.New(l.Writer(), l.Prefix()+prefix, l.Flags())
}
