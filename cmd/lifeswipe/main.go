package main

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/DaanHessen/lifeswipe/internal/catalog"
	"github.com/DaanHessen/lifeswipe/internal/store"
	"github.com/DaanHessen/lifeswipe/internal/ui"
	"github.com/DaanHessen/lifeswipe/internal/util"
)

var (
	version      = "0.1.0"
	rulesVersion = version
	seedAlphabet = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg, err := util.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	cfg.RulesVersion = rulesVersion

	flag.StringVar(&cfg.SeedText, "seed", cfg.SeedText, "Run seed string (optional; random if omitted)")
	flag.StringVar(&cfg.Store, "store", cfg.Store, "Save backend: postgres|sqlite|file|memory")
	flag.StringVar(&cfg.DSN, "dsn", cfg.DSN, "PostgreSQL DSN (store=postgres)")
	flag.StringVar(&cfg.SavePath, "save", cfg.SavePath, "SQLite database or YAML save file path")
	flag.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "YAML card catalog (built-in deck if empty)")
	flag.StringVar(&cfg.FeedMode, "feed", cfg.FeedMode, "Random feed: shuffle|loop|once")
	flag.StringVar(&cfg.Theme, "theme", cfg.Theme, "Colour theme")
	flag.DurationVar(&cfg.RestartDelay, "restart-delay", cfg.RestartDelay, "Pause between game over and the next life")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Verbose log file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "lifeswipe [flags] | migrate up|down | export-csv <out.csv> | import-csv <in.csv> <out.yaml> | simulate [-swipes N] | history | version\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	args := flag.Args()
	if len(args) > 0 {
		switch args[0] {
		case "version":
			fmt.Println("lifeswipe", version)
		case "migrate":
			runMigrate(ctx, cfg, args[1:])
		case "export-csv":
			if len(args) < 2 {
				log.Fatal("export-csv requires an output path")
			}
			if err := exportCSV(cfg, args[1]); err != nil {
				log.Fatal(err)
			}
		case "import-csv":
			if len(args) < 3 {
				log.Fatal("import-csv requires <in.csv> <out.yaml>")
			}
			if err := importCSV(cfg, args[1], args[2]); err != nil {
				log.Fatal(err)
			}
		case "simulate":
			runSimulate(ctx, cfg, args[1:])
		case "history":
			if err := printHistory(ctx, cfg); err != nil {
				log.Fatal(err)
			}
		default:
			flag.Usage()
			os.Exit(2)
		}
		return
	}

	if cfg.SeedText == "" {
		generated, err := generateSeed()
		if err != nil {
			log.Fatalf("failed to generate seed: %v", err)
		}
		cfg.SeedText = generated
		fmt.Printf("New run seed: %s\n", cfg.SeedText)
	}

	deck, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer backend.Close()

	if err := ui.Run(ctx, cfg, deck, backend, version); err != nil {
		log.Fatal(err)
	}
}

func openBackend(ctx context.Context, cfg util.Config) (store.Backend, error) {
	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	backend, err := store.OpenBackend(openCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}
	return backend, nil
}

func runMigrate(ctx context.Context, cfg util.Config, args []string) {
	if len(args) < 1 {
		log.Fatal("migrate requires 'up' or 'down'")
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	migrator, err := store.NewMigrator(cfg)
	if err != nil {
		log.Fatal(err)
	}
	switch args[0] {
	case "up":
		if err := migrator.Up(ctx); err != nil && err != store.ErrNoChange {
			log.Fatal(err)
		}
		fmt.Println("Migrations applied")
	case "down":
		if err := migrator.Down(ctx); err != nil && err != store.ErrNoChange {
			log.Fatal(err)
		}
		fmt.Println("Migrations rolled back")
	default:
		log.Fatal("unknown migrate action; use up|down")
	}
}

func exportCSV(cfg util.Config, path string) error {
	deck, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	if err := catalog.WriteCSV(f, deck.Cards); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Exported %d cards to %s\n", len(deck.Cards), path)
	return nil
}

// importCSV turns a CSV card sheet into a YAML deck. Progress flags, end cards and their ranges are
// taken from the current catalog so the result is playable as is.
func importCSV(cfg util.Config, in, out string) error {
	f, err := os.Open(filepath.Clean(in))
	if err != nil {
		return err
	}
	defer f.Close()
	cards, err := catalog.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	base, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	deck := catalog.FromCSV(strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)), cards, base)
	cat, err := deck.Catalog()
	if err != nil {
		return err
	}
	for _, d := range cat.Dangling() {
		log.Printf("warning: dangling link %s", d)
	}
	if err := catalog.Save(out, deck); err != nil {
		return err
	}
	fmt.Printf("Imported %d cards into %s\n", len(cards), out)
	return nil
}

func runSimulate(ctx context.Context, cfg util.Config, args []string) {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	swipes := fs.Int("swipes", 200, "Number of swipes to play")
	_ = fs.Parse(args)
	if cfg.SeedText == "" {
		generated, err := generateSeed()
		if err != nil {
			log.Fatalf("failed to generate seed: %v", err)
		}
		cfg.SeedText = generated
	}
	deck, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}
	sum, err := simulate(ctx, os.Stdout, cfg, deck, *swipes, log.New(os.Stderr, "", log.LstdFlags))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("seed %s: %d swipes, %d finished lives, oldest age %d\n", cfg.SeedText, sum.Swipes, sum.Lives, sum.Highest)
}

func printHistory(ctx context.Context, cfg util.Config) error {
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	runs, err := backend.RecentRuns(ctx, 20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No finished lives yet.")
		return nil
	}
	best, err := backend.HighestAge(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Oldest age reached: %d\n\n", best)
	for _, r := range runs {
		fmt.Printf("%s  age %3d  %-11s progress %3.0f%%  cards %3d  swipes %3d  seed %s\n",
			r.EndedAt.Local().Format("2006-01-02 15:04"), int(r.Age), r.Cause, r.Progress, r.CardsSeen, r.Swipes, r.Seed)
	}
	return nil
}

func generateSeed() (string, error) {
	buf := make([]byte, 15) // 24 characters base32
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToLower(seedAlphabet.EncodeToString(buf)), nil
}
