package main

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/DaanHessen/lifeswipe/internal/catalog"
	"github.com/DaanHessen/lifeswipe/internal/engine"
	"github.com/DaanHessen/lifeswipe/internal/store"
	"github.com/DaanHessen/lifeswipe/internal/util"
)

type simSummary struct {
	Swipes  int
	Lives   int
	Highest int
}

// simulate plays swipes random decisions against an in-memory store and writes one line per
// swipe to w. Game overs restart immediately.
func simulate(ctx context.Context, w io.Writer, cfg util.Config, deck *catalog.Deck, swipes int, logger *log.Logger) (simSummary, error) {
	var sum simSummary
	seed, err := engine.NewRunSeed(cfg.SeedText)
	if err != nil {
		return sum, err
	}
	rcfg, err := deck.RunConfig(cfg)
	if err != nil {
		return sum, err
	}
	backend := store.NewMemoryStore()
	rcfg.Persistence = backend
	rcfg.Archive = backend
	rcfg.Logger = logger
	rc, err := engine.NewRunContext(rcfg)
	if err != nil {
		return sum, err
	}
	if _, err := rc.Start(ctx); err != nil {
		return sum, err
	}
	player := seed.WithRules(cfg.RulesVersion).Stream("player")
	for i := 0; i < swipes; i++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		dir := engine.DirectionLeft
		if player.Intn(2) == 1 {
			dir = engine.DirectionRight
		}
		before := rc.Snapshot()
		if _, err := rc.Dismiss(ctx, dir); err != nil {
			return sum, fmt.Errorf("swipe %d: %w", i, err)
		}
		sum.Swipes++
		v := rc.Snapshot()
		fmt.Fprintf(w, "life %d swipe %3d  %-22s %-5s  heart %.2f career %.2f happiness %.2f sociability %.2f  age %5.1f  progress %3.0f%%\n",
			v.Run, v.Swipes, before.Current.ID, dir, v.Stats.Heart, v.Stats.Career, v.Stats.Happiness, v.Stats.Sociability, v.Age, v.Progress)
		if v.State != engine.RunGameOver {
			continue
		}
		endCard := "-"
		if v.Current != nil {
			endCard = v.Current.ID
		}
		fmt.Fprintf(w, "life %d over: %s gave out at age %d (%s)\n", v.Run, v.Cause, int(v.Age), endCard)
		sum.Lives++
		if _, err := rc.Restart(ctx); err != nil {
			return sum, fmt.Errorf("restart: %w", err)
		}
	}
	if sum.Highest, err = backend.HighestAge(ctx); err != nil {
		return sum, err
	}
	return sum, nil
}
