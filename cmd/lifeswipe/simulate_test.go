package main

import (
	"bytes"
	"context"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/DaanHessen/lifeswipe/internal/catalog"
	"github.com/DaanHessen/lifeswipe/internal/util"
)

func simConfig(seed string) util.Config {
	return util.Config{SeedText: seed, TotalCardCount: 158, FinalCardProgress: 100, FeedMode: "shuffle"}
}

func runSim(t *testing.T, seed string, swipes int) (string, simSummary) {
	t.Helper()
	deck, err := catalog.Default()
	if err != nil {
		t.Fatalf("deck: %v", err)
	}
	var out bytes.Buffer
	sum, err := simulate(context.Background(), &out, simConfig(seed), deck, swipes, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	return out.String(), sum
}

func TestSimulateIsDeterministic(t *testing.T) {
	a, sumA := runSim(t, "sim-seed", 400)
	b, sumB := runSim(t, "sim-seed", 400)
	if a != b || sumA != sumB {
		t.Fatal("same seed produced different runs")
	}
	if sumA.Swipes != 400 {
		t.Fatalf("swipes = %d", sumA.Swipes)
	}
	if got := strings.Count(a, " over: "); got != sumA.Lives {
		t.Fatalf("game over lines = %d, lives = %d", got, sumA.Lives)
	}
	if sumA.Lives > 0 && sumA.Highest < 18 {
		t.Fatalf("highest age %d below the starting age", sumA.Highest)
	}
	c, _ := runSim(t, "other-seed", 400)
	if a == c {
		t.Fatal("different seeds produced identical runs")
	}
}

func TestSimulateRejectsEmptySeed(t *testing.T) {
	deck, _ := catalog.Default()
	if _, err := simulate(context.Background(), io.Discard, simConfig(""), deck, 1, nil); err == nil {
		t.Fatal("expected an error for an empty seed")
	}
}

func TestGenerateSeed(t *testing.T) {
	s, err := generateSeed()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(s) != 24 || strings.ToLower(s) != s {
		t.Fatalf("seed = %q", s)
	}
}
