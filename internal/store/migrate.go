package store

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/DaanHessen/lifeswipe/internal/util"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrator handles DB schema migrations using golang-migrate.
type Migrator struct {
	url string
}

// NewMigrator builds a migrator for the Postgres DSN or SQLite save path in cfg.
func NewMigrator(cfg util.Config) (*Migrator, error) {
	switch cfg.Store {
	case util.StorePostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("missing DSN")
		}
		return &Migrator{url: cfg.DSN}, nil
	case util.StoreSQLite:
		if cfg.SavePath == "" {
			return nil, fmt.Errorf("missing save path")
		}
		return &Migrator{url: "sqlite://" + cfg.SavePath}, nil
	default:
		return nil, fmt.Errorf("store %q has no migrations", cfg.Store)
	}
}

func (m *Migrator) Up(ctx context.Context) error {
	return m.run(ctx, func(mig *migrate.Migrate) error { return mig.Up() })
}

func (m *Migrator) Down(ctx context.Context) error {
	return m.run(ctx, func(mig *migrate.Migrate) error { return mig.Steps(-1) })
}

// Version reports the applied schema version; 0 when nothing has been applied.
func (m *Migrator) Version(ctx context.Context) (uint, bool, error) {
	var (
		v     uint
		dirty bool
	)
	err := m.run(ctx, func(mig *migrate.Migrate) error {
		var err error
		v, dirty, err = mig.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		return err
	})
	return v, dirty, err
}

func (m *Migrator) run(ctx context.Context, fn func(*migrate.Migrate) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	mig, err := migrate.NewWithSourceInstance("iofs", src, m.url)
	if err != nil {
		return err
	}
	defer mig.Close()
	done := make(chan error, 1)
	go func() { done <- fn(mig) }()
	select {
	case <-ctx.Done():
		mig.GracefulStop <- true
		<-done
		return ctx.Err()
	case err := <-done:
		if errors.Is(err, migrate.ErrNoChange) {
			return ErrNoChange
		}
		return err
	}
}
