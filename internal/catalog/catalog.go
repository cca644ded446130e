package catalog

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/DaanHessen/lifeswipe/internal/engine"
	"github.com/DaanHessen/lifeswipe/internal/util"
)

//go:embed decks/default.yaml
var decks embed.FS

const defaultDeck = "decks/default.yaml"

// Deck is the on-disk catalog: selectable cards, end cards and the progress settings that go with them.
type Deck struct {
	Name          string                                       `yaml:"name"`
	Progress      engine.ProgressConfig                        `yaml:"progress"`
	EndCardRanges map[engine.GameOverCause]engine.EndCardRange `yaml:"end_card_ranges,omitempty"`
	Cards         []engine.Card                                `yaml:"cards"`
	EndCards      []engine.Card                                `yaml:"end_cards"`
}

// Parse decodes a YAML deck.
func Parse(b []byte) (*Deck, error) {
	var d Deck
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode deck: %w", err)
	}
	return &d, nil
}

// LoadFile reads a YAML deck from path.
func LoadFile(path string) (*Deck, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	d, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Default returns the deck compiled into the binary.
func Default() (*Deck, error) {
	b, err := decks.ReadFile(defaultDeck)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Load returns the deck at path, or the built-in deck when path is empty.
func Load(path string) (*Deck, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

// Save writes d as YAML.
func Save(path string, d *Deck) error {
	b, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Catalog builds the immutable engine catalog for d.
func (d *Deck) Catalog() (*engine.Catalog, error) {
	return engine.NewCatalog(d.Cards, d.EndCards)
}

// ProgressConfig returns the deck's progress settings, taking unset fields from fallback.
func (d *Deck) ProgressConfig(fallback engine.ProgressConfig) engine.ProgressConfig {
	cfg := d.Progress
	if cfg.TotalCardCount <= 0 {
		cfg.TotalCardCount = fallback.TotalCardCount
	}
	if cfg.FinalCardProgress == 0 {
		cfg.FinalCardProgress = fallback.FinalCardProgress
	}
	return cfg
}

// RunConfig builds the deck-derived part of a run configuration. Collaborators are left for the
// caller to fill in.
func (d *Deck) RunConfig(cfg util.Config) (engine.RunConfig, error) {
	cat, err := d.Catalog()
	if err != nil {
		return engine.RunConfig{}, err
	}
	var seed engine.RunSeed
	if cfg.SeedText != "" {
		if seed, err = engine.NewRunSeed(cfg.SeedText); err != nil {
			return engine.RunConfig{}, err
		}
		seed = seed.WithRules(cfg.RulesVersion)
	}
	progress := d.ProgressConfig(engine.ProgressConfig{
		TotalCardCount:    cfg.TotalCardCount,
		FinalCardProgress: cfg.FinalCardProgress,
	})
	if err := progress.Validate(); err != nil {
		return engine.RunConfig{}, fmt.Errorf("deck %q: %w", d.Name, err)
	}
	return engine.RunConfig{
		Catalog:       cat,
		Progress:      progress,
		Seed:          seed,
		FeedMode:      engine.FeedMode(cfg.FeedMode),
		RestartDelay:  cfg.RestartDelay,
		EndCardRanges: d.EndCardRanges,
	}, nil
}
