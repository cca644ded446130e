package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DaanHessen/lifeswipe/internal/engine"
)

// MemoryStore keeps everything in process. Used by simulate and tests.
type MemoryStore struct {
	mu       sync.Mutex
	stats    engine.StatSnapshot
	highest  int
	settings Settings
	runs     []engine.RunRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stats: engine.DefaultSnapshot(), settings: DefaultSettings()}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) LoadStats(context.Context) (engine.StatSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats, nil
}

func (m *MemoryStore) SaveStats(_ context.Context, s engine.StatSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = s
	return nil
}

func (m *MemoryStore) ResetStatsOnFail(ctx context.Context, ledger *engine.StatLedger) error {
	ledger.Reset(engine.DefaultSnapshot())
	return m.SaveStats(ctx, ledger.Snapshot())
}

func (m *MemoryStore) HighestAge(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.highest, nil
}

func (m *MemoryStore) TryUpdateHighestAge(_ context.Context, age int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if age <= m.highest {
		return false, nil
	}
	m.highest = age
	return true, nil
}

func (m *MemoryStore) RecordRun(_ context.Context, rec engine.RunRecord) (engine.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec = stampRun(rec)
	m.runs = append(m.runs, rec)
	return rec, nil
}

func (m *MemoryStore) RecentRuns(_ context.Context, limit int) ([]engine.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return recent(m.runs, limit), nil
}

func (m *MemoryStore) LoadSettings(context.Context) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, nil
}

func (m *MemoryStore) SaveSettings(_ context.Context, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s
	return nil
}

func (m *MemoryStore) UnlockForesight(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings.ForesightUnlocked {
		return false, nil
	}
	m.settings.ForesightUnlocked = true
	return true, nil
}

func stampRun(rec engine.RunRecord) engine.RunRecord {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.EndedAt.IsZero() {
		rec.EndedAt = time.Now().UTC()
	}
	return rec
}

// recent returns up to limit runs, newest first.
func recent(runs []engine.RunRecord, limit int) []engine.RunRecord {
	out := make([]engine.RunRecord, 0, len(runs))
	for i := len(runs) - 1; i >= 0; i-- {
		out = append(out, runs[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndedAt.After(out[j].EndedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
