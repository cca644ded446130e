package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/DaanHessen/lifeswipe/internal/engine"
	"github.com/DaanHessen/lifeswipe/internal/util"
)

// Settings are the persisted player preferences.
type Settings struct {
	SoundEnabled      bool   `yaml:"sound_enabled"`
	ForesightUnlocked bool   `yaml:"foresight_unlocked"`
	Theme             string `yaml:"theme,omitempty"`
}

func DefaultSettings() Settings { return Settings{SoundEnabled: true} }

// SettingsStore loads and saves Settings.
type SettingsStore interface {
	LoadSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error
	// UnlockForesight is a one-shot purchase: true only on the call that unlocked it.
	UnlockForesight(ctx context.Context) (bool, error)
}

// Backend is everything the game needs from storage.
type Backend interface {
	engine.Persistence
	engine.RunArchive
	SettingsStore
	Close() error
}

// OpenBackend returns the backend selected by cfg.Store. Database backends are migrated first.
func OpenBackend(ctx context.Context, cfg util.Config) (Backend, error) {
	switch cfg.Store {
	case util.StoreMemory:
		return NewMemoryStore(), nil
	case util.StoreFile:
		return NewFileStore(cfg.SavePath)
	case util.StorePostgres, util.StoreSQLite:
		mig, err := NewMigrator(cfg)
		if err != nil {
			return nil, fmt.Errorf("migrations init: %w", err)
		}
		if err := mig.Up(ctx); err != nil && err != ErrNoChange {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		db, err := Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return NewSQLStore(db, DefaultProfile), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// SQLStore adapts the repositories to Backend for one profile.
type SQLStore struct {
	db       *DB
	profile  string
	profiles *ProfileRepo
	settings *SettingsRepo
	runs     *RunRepo
}

func NewSQLStore(db *DB, profile string) *SQLStore {
	return &SQLStore{
		db:       db,
		profile:  profile,
		profiles: NewProfileRepo(db),
		settings: NewSettingsRepo(db),
		runs:     NewRunRepo(db),
	}
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) LoadStats(ctx context.Context) (engine.StatSnapshot, error) {
	return s.profiles.LoadStats(ctx, s.profile)
}

func (s *SQLStore) SaveStats(ctx context.Context, snap engine.StatSnapshot) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.profiles.SaveStats(ctx, tx, s.profile, snap)
	})
}

// ResetStatsOnFail resets the ledger and saves the defaults immediately.
func (s *SQLStore) ResetStatsOnFail(ctx context.Context, ledger *engine.StatLedger) error {
	ledger.Reset(engine.DefaultSnapshot())
	return s.SaveStats(ctx, ledger.Snapshot())
}

func (s *SQLStore) HighestAge(ctx context.Context) (int, error) {
	return s.profiles.HighestAge(ctx, s.profile)
}

func (s *SQLStore) TryUpdateHighestAge(ctx context.Context, age int) (bool, error) {
	var updated bool
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		updated, err = s.profiles.TryUpdateHighestAge(ctx, tx, s.profile, age)
		return err
	})
	return updated, err
}

func (s *SQLStore) RecordRun(ctx context.Context, rec engine.RunRecord) (engine.RunRecord, error) {
	return s.runs.Insert(ctx, s.profile, rec)
}

func (s *SQLStore) RecentRuns(ctx context.Context, limit int) ([]engine.RunRecord, error) {
	return s.runs.Recent(ctx, s.profile, limit)
}

func (s *SQLStore) LoadSettings(ctx context.Context) (Settings, error) {
	return s.settings.Get(ctx, s.profile)
}

func (s *SQLStore) SaveSettings(ctx context.Context, set Settings) error {
	return s.settings.Upsert(ctx, s.profile, set)
}

func (s *SQLStore) UnlockForesight(ctx context.Context) (bool, error) {
	return s.settings.UnlockForesight(ctx, s.profile)
}
