package engine

import "fmt"

const (
	DefaultTotalCardCount    = 158
	DefaultFinalCardProgress = 100.0

	// ProgressCap is the ceiling for non-final cards.
	ProgressCap = 99.0
)

// ProgressConfig is loaded once with the catalog and treated as immutable for the run.
type ProgressConfig struct {
	TotalCardCount    int     `yaml:"total_card_count"`
	FinalCardProgress float64 `yaml:"final_card_progress"`
}

func DefaultProgressConfig() ProgressConfig {
	return ProgressConfig{TotalCardCount: DefaultTotalCardCount, FinalCardProgress: DefaultFinalCardProgress}
}

func (c ProgressConfig) Validate() error {
	if c.TotalCardCount <= 0 {
		return fmt.Errorf("total card count must be positive, got %d", c.TotalCardCount)
	}
	if c.FinalCardProgress <= ProgressCap || c.FinalCardProgress > 100 {
		return fmt.Errorf("final card progress must be in (%.0f,100], got %.2f", ProgressCap, c.FinalCardProgress)
	}
	return nil
}

// ProgressTracker is the per-run set of seen card ids.
type ProgressTracker struct {
	seen map[string]struct{}
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{seen: map[string]struct{}{}}
}

// TryRegister returns true only the first time card's id is seen in this run.
func (t *ProgressTracker) TryRegister(card *Card) bool {
	if card == nil {
		return false
	}
	if _, ok := t.seen[card.ID]; ok {
		return false
	}
	t.seen[card.ID] = struct{}{}
	return true
}

func (t *ProgressTracker) Seen(id string) bool {
	_, ok := t.seen[id]
	return ok
}

func (t *ProgressTracker) Count() int { return len(t.seen) }

func (t *ProgressTracker) Reset() { t.seen = map[string]struct{}{} }

// ProgressManager turns card exposure into a 0..100 completion estimate.
type ProgressManager struct {
	cfg      ProgressConfig
	tracker  *ProgressTracker
	progress float64
}

func NewProgressManager(cfg ProgressConfig) *ProgressManager {
	return &ProgressManager{cfg: cfg, tracker: NewProgressTracker()}
}

func (m *ProgressManager) Config() ProgressConfig { return m.cfg }

func (m *ProgressManager) Progress() float64 { return m.progress }

func (m *ProgressManager) Tracker() *ProgressTracker { return m.tracker }

// OnCardShown records exposure of card. Only the final-card path reaches FinalCardProgress; every
// other contributing card adds 100/TotalCardCount (doubled for compensating cards) up to ProgressCap.
func (m *ProgressManager) OnCardShown(card *Card) {
	if card == nil || !card.ContributesToProgress {
		return
	}
	if !m.tracker.TryRegister(card) {
		return
	}
	if card.IsFinalCard {
		m.progress = m.cfg.FinalCardProgress
		return
	}
	if m.cfg.TotalCardCount <= 0 {
		return
	}
	delta := 100 / float64(m.cfg.TotalCardCount)
	if card.CompensatesSkippedCard {
		delta *= 2
	}
	if m.progress >= ProgressCap {
		return
	}
	m.progress = min(m.progress+delta, ProgressCap)
}

// ResetRun clears the seen set and zeroes progress.
func (m *ProgressManager) ResetRun() {
	m.tracker.Reset()
	m.progress = 0
}
