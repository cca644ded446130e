package store

import (
	"context"
	"database/sql"
	errs "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/DaanHessen/lifeswipe/internal/engine"
	"github.com/DaanHessen/lifeswipe/internal/util"
)

var ErrNoChange = errs.New("no change")

// DefaultProfile is the single local player profile.
const DefaultProfile = "default"

// DB wraps gorm.DB for repositories and exposes Close.
type DB struct {
	gorm    *gorm.DB
	sql     *sql.DB
	dialect string
}

func (d *DB) Close() error    { return d.sql.Close() }
func (d *DB) Gorm() *gorm.DB  { return d.gorm }
func (d *DB) Dialect() string { return d.dialect }

// Open connects to Postgres or a local SQLite file per config.
func Open(ctx context.Context, cfg util.Config) (*DB, error) {
	var dialector gorm.Dialector
	switch cfg.Store {
	case util.StorePostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("missing DSN")
		}
		dialector = postgres.Open(cfg.DSN)
	case util.StoreSQLite:
		if cfg.SavePath == "" {
			return nil, fmt.Errorf("missing save path")
		}
		if dir := filepath.Dir(cfg.SavePath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		dialector = sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: cfg.SavePath})
	default:
		return nil, fmt.Errorf("store %q is not a database backend", cfg.Store)
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	sdb, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Store == util.StoreSQLite {
		sdb.SetMaxOpenConns(1)
		sdb.SetMaxIdleConns(1)
	} else {
		sdb.SetConnMaxLifetime(30 * time.Minute)
		sdb.SetMaxOpenConns(10)
		sdb.SetMaxIdleConns(5)
	}
	if err := sdb.PingContext(ctx); err != nil {
		return nil, err
	}
	return &DB{gorm: gdb, sql: sdb, dialect: cfg.Store}, nil
}

// WithTx executes fn within a database transaction.
func (d *DB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.gorm.WithContext(ctx).Transaction(fn)
}

// ProfileRepo stores the saved stat snapshot and the highest age per profile.
type ProfileRepo struct{ db *DB }

func NewProfileRepo(db *DB) *ProfileRepo { return &ProfileRepo{db: db} }

// Ensure creates the profile row at default values when missing.
func (r *ProfileRepo) Ensure(ctx context.Context, tx *gorm.DB, name string) error {
	def := engine.DefaultSnapshot()
	err := tx.WithContext(ctx).Exec(`INSERT INTO profiles(name, id, schema_version, heart, career, happiness, sociability, age, highest_age, updated_at)
	VALUES (?,?,?,?,?,?,?,?,0,?) ON CONFLICT (name) DO NOTHING`,
		name, uuid.NewString(), def.Version, def.Heart, def.Career, def.Happiness, def.Sociability, def.Age, time.Now().UnixMilli()).Error
	return wrap(err, "ensure profile")
}

func (r *ProfileRepo) LoadStats(ctx context.Context, name string) (engine.StatSnapshot, error) {
	var s engine.StatSnapshot
	row := r.db.gorm.WithContext(ctx).Raw(`SELECT schema_version, heart, career, happiness, sociability, age FROM profiles WHERE name = ?`, name).Row()
	if err := row.Scan(&s.Version, &s.Heart, &s.Career, &s.Happiness, &s.Sociability, &s.Age); err != nil {
		if errs.Is(err, sql.ErrNoRows) {
			return engine.DefaultSnapshot(), nil
		}
		return engine.StatSnapshot{}, wrap(err, "load stats")
	}
	return s, nil
}

func (r *ProfileRepo) SaveStats(ctx context.Context, tx *gorm.DB, name string, s engine.StatSnapshot) error {
	if err := r.Ensure(ctx, tx, name); err != nil {
		return err
	}
	err := tx.WithContext(ctx).Exec(`UPDATE profiles SET schema_version = ?, heart = ?, career = ?, happiness = ?, sociability = ?, age = ?, updated_at = ? WHERE name = ?`,
		s.Version, s.Heart, s.Career, s.Happiness, s.Sociability, s.Age, time.Now().UnixMilli(), name).Error
	return wrap(err, "save stats")
}

func (r *ProfileRepo) HighestAge(ctx context.Context, name string) (int, error) {
	var age int
	row := r.db.gorm.WithContext(ctx).Raw(`SELECT highest_age FROM profiles WHERE name = ?`, name).Row()
	if err := row.Scan(&age); err != nil {
		if errs.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, wrap(err, "highest age")
	}
	return age, nil
}

// TryUpdateHighestAge stores age only when it beats the saved value.
func (r *ProfileRepo) TryUpdateHighestAge(ctx context.Context, tx *gorm.DB, name string, age int) (bool, error) {
	if err := r.Ensure(ctx, tx, name); err != nil {
		return false, err
	}
	res := tx.WithContext(ctx).Exec(`UPDATE profiles SET highest_age = ?, updated_at = ? WHERE name = ? AND highest_age < ?`,
		age, time.Now().UnixMilli(), name, age)
	if res.Error != nil {
		return false, wrap(res.Error, "update highest age")
	}
	return res.RowsAffected > 0, nil
}

// SettingsRepo persists player preferences.
type SettingsRepo struct{ db *DB }

func NewSettingsRepo(db *DB) *SettingsRepo { return &SettingsRepo{db: db} }

func (sr *SettingsRepo) Get(ctx context.Context, profile string) (Settings, error) {
	s := DefaultSettings()
	row := sr.db.gorm.WithContext(ctx).Raw(`SELECT sound_enabled, foresight_unlocked, theme FROM settings WHERE profile = ?`, profile).Row()
	if err := row.Scan(&s.SoundEnabled, &s.ForesightUnlocked, &s.Theme); err != nil {
		if errs.Is(err, sql.ErrNoRows) {
			return DefaultSettings(), nil
		}
		return Settings{}, wrap(err, "load settings")
	}
	return s, nil
}

func (sr *SettingsRepo) Upsert(ctx context.Context, profile string, s Settings) error {
	return wrap(sr.db.gorm.WithContext(ctx).Exec(`INSERT INTO settings(profile, sound_enabled, foresight_unlocked, theme) VALUES (?,?,?,?)
	ON CONFLICT (profile) DO UPDATE SET sound_enabled=EXCLUDED.sound_enabled, foresight_unlocked=EXCLUDED.foresight_unlocked, theme=EXCLUDED.theme`,
		profile, s.SoundEnabled, s.ForesightUnlocked, s.Theme).Error, "save settings")
}

// UnlockForesight flips the one-shot purchase; it reports false when already unlocked.
func (sr *SettingsRepo) UnlockForesight(ctx context.Context, profile string) (bool, error) {
	var unlocked bool
	err := sr.db.WithTx(ctx, func(tx *gorm.DB) error {
		def := DefaultSettings()
		if err := tx.Exec(`INSERT INTO settings(profile, sound_enabled, foresight_unlocked, theme) VALUES (?,?,?,?) ON CONFLICT (profile) DO NOTHING`,
			profile, def.SoundEnabled, false, def.Theme).Error; err != nil {
			return err
		}
		res := tx.Exec(`UPDATE settings SET foresight_unlocked = ? WHERE profile = ? AND foresight_unlocked = ?`, true, profile, false)
		if res.Error != nil {
			return res.Error
		}
		unlocked = res.RowsAffected > 0
		return nil
	})
	return unlocked, wrap(err, "unlock foresight")
}

// RunRepo archives finished runs.
type RunRepo struct{ db *DB }

func NewRunRepo(db *DB) *RunRepo { return &RunRepo{db: db} }

func (r *RunRepo) Insert(ctx context.Context, profile string, rec engine.RunRecord) (engine.RunRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.EndedAt.IsZero() {
		rec.EndedAt = time.Now().UTC()
	}
	err := r.db.gorm.WithContext(ctx).Exec(`INSERT INTO runs(id, profile, run_index, seed, cause, age, progress, cards_seen, swipes, ended_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, profile, rec.Run, rec.Seed, string(rec.Cause), rec.Age, rec.Progress, rec.CardsSeen, rec.Swipes, rec.EndedAt.UnixMilli()).Error
	if err != nil {
		return engine.RunRecord{}, wrap(err, "insert run")
	}
	return rec, nil
}

// Recent lists the newest runs first.
func (r *RunRepo) Recent(ctx context.Context, profile string, limit int) ([]engine.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.gorm.WithContext(ctx).Raw(`SELECT id, run_index, seed, cause, age, progress, cards_seen, swipes, ended_at FROM runs WHERE profile = ? ORDER BY ended_at DESC, id LIMIT ?`, profile, limit).Rows()
	if err != nil {
		return nil, wrap(err, "list runs")
	}
	defer rows.Close()
	var out []engine.RunRecord
	for rows.Next() {
		var (
			rec   engine.RunRecord
			cause string
			ended int64
		)
		if err := rows.Scan(&rec.ID, &rec.Run, &rec.Seed, &cause, &rec.Age, &rec.Progress, &rec.CardsSeen, &rec.Swipes, &ended); err != nil {
			return nil, wrap(err, "scan run")
		}
		rec.Cause = engine.GameOverCause(cause)
		rec.EndedAt = time.UnixMilli(ended).UTC()
		out = append(out, rec)
	}
	return out, wrap(rows.Err(), "list runs")
}

// Helper error wrap
func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}
