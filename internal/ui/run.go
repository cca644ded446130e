package ui

import (
	"context"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DaanHessen/lifeswipe/internal/catalog"
	"github.com/DaanHessen/lifeswipe/internal/engine"
	"github.com/DaanHessen/lifeswipe/internal/store"
	"github.com/DaanHessen/lifeswipe/internal/util"
)

// Run boots the TUI program and blocks until it exits.
func Run(ctx context.Context, cfg util.Config, deck *catalog.Deck, backend store.Backend, version string) error {
	if cfg.LogFile != "" {
		f, err := tea.LogToFile(cfg.LogFile, "lifeswipe")
		if err != nil {
			return err
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}
	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
	// The bell goes to stderr, which shares the tty with the alt screen. BEL moves no cursor and is
	// written in one call, so it cannot split a frame the renderer flushes to stdout.
	br := newBridge(os.Stderr, true)
	rc, err := newRunContext(cfg, deck, backend, br, log.Default())
	if err != nil {
		return err
	}
	m := newModel(ctx, rc, backend, br, cfg.Theme, version)
	program := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func newRunContext(cfg util.Config, deck *catalog.Deck, backend store.Backend, br *bridge, logger *log.Logger) (*engine.RunContext, error) {
	rcfg, err := deck.RunConfig(cfg)
	if err != nil {
		return nil, err
	}
	rcfg.Renderer = br
	rcfg.Effects = br
	rcfg.Persistence = backend
	rcfg.Archive = backend
	rcfg.Observer = br.observe
	rcfg.Logger = logger
	return engine.NewRunContext(rcfg)
}
