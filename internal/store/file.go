package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/DaanHessen/lifeswipe/internal/engine"
)

const saveFileVersion = 1

// saveFile is the on-disk layout of a FileStore.
type saveFile struct {
	Version    int                 `yaml:"version"`
	Stats      engine.StatSnapshot `yaml:"stats"`
	HighestAge int                 `yaml:"highest_age"`
	Settings   Settings            `yaml:"settings"`
	Runs       []savedRun          `yaml:"runs,omitempty"`
}

type savedRun struct {
	ID        string    `yaml:"id"`
	Run       int       `yaml:"run"`
	Seed      string    `yaml:"seed"`
	Cause     string    `yaml:"cause"`
	Age       float64   `yaml:"age"`
	Progress  float64   `yaml:"progress"`
	CardsSeen int       `yaml:"cards_seen"`
	Swipes    int       `yaml:"swipes"`
	EndedAt   time.Time `yaml:"ended_at"`
}

func toSaved(r engine.RunRecord) savedRun {
	return savedRun{ID: r.ID, Run: r.Run, Seed: r.Seed, Cause: string(r.Cause), Age: r.Age, Progress: r.Progress, CardsSeen: r.CardsSeen, Swipes: r.Swipes, EndedAt: r.EndedAt}
}

func (s savedRun) record() engine.RunRecord {
	return engine.RunRecord{ID: s.ID, Run: s.Run, Seed: s.Seed, Cause: engine.GameOverCause(s.Cause), Age: s.Age, Progress: s.Progress, CardsSeen: s.CardsSeen, Swipes: s.Swipes, EndedAt: s.EndedAt}
}

// FileStore keeps the save in a single YAML file, rewritten atomically on every change.
type FileStore struct {
	mu   sync.Mutex
	path string
	data saveFile
}

// NewFileStore opens path, creating an empty save when the file does not exist.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("missing save path")
	}
	fsStore := &FileStore{path: path, data: saveFile{
		Version:  saveFileVersion,
		Stats:    engine.DefaultSnapshot(),
		Settings: DefaultSettings(),
	}}
	b, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, fs.ErrNotExist) {
		return fsStore, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, &fsStore.data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if fsStore.data.Version > saveFileVersion {
		return nil, fmt.Errorf("%s: save version %d is newer than supported %d", path, fsStore.data.Version, saveFileVersion)
	}
	return fsStore, nil
}

func (f *FileStore) Close() error { return nil }

func (f *FileStore) flush() error {
	b, err := yaml.Marshal(f.data)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) LoadStats(context.Context) (engine.StatSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data.Stats, nil
}

func (f *FileStore) SaveStats(_ context.Context, s engine.StatSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data.Stats = s
	return f.flush()
}

func (f *FileStore) ResetStatsOnFail(ctx context.Context, ledger *engine.StatLedger) error {
	ledger.Reset(engine.DefaultSnapshot())
	return f.SaveStats(ctx, ledger.Snapshot())
}

func (f *FileStore) HighestAge(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data.HighestAge, nil
}

func (f *FileStore) TryUpdateHighestAge(_ context.Context, age int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if age <= f.data.HighestAge {
		return false, nil
	}
	f.data.HighestAge = age
	return true, f.flush()
}

func (f *FileStore) RecordRun(_ context.Context, rec engine.RunRecord) (engine.RunRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec = stampRun(rec)
	f.data.Runs = append(f.data.Runs, toSaved(rec))
	return rec, f.flush()
}

func (f *FileStore) RecentRuns(_ context.Context, limit int) ([]engine.RunRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	runs := make([]engine.RunRecord, len(f.data.Runs))
	for i, r := range f.data.Runs {
		runs[i] = r.record()
	}
	return recent(runs, limit), nil
}

func (f *FileStore) LoadSettings(context.Context) (Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data.Settings, nil
}

func (f *FileStore) SaveSettings(_ context.Context, s Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data.Settings = s
	return f.flush()
}

func (f *FileStore) UnlockForesight(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data.Settings.ForesightUnlocked {
		return false, nil
	}
	f.data.Settings.ForesightUnlocked = true
	return true, f.flush()
}
