package ui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/DaanHessen/lifeswipe/internal/engine"
	"github.com/DaanHessen/lifeswipe/internal/store"
	"github.com/DaanHessen/lifeswipe/internal/text"
)

const (
	viewStart    = "start"
	viewCard     = "card"
	viewHistory  = "history"
	viewSettings = "settings"
	viewHelp     = "help"
)

const (
	swipeFrames   = 6
	swipeInterval = 30 * time.Millisecond
	cardWidth     = 56
	cardMargin    = 12
	statBarWidth  = 20
	historyLimit  = 20
)

type swipeTickMsg struct{ frame int }

type restartMsg struct{ err error }

type model struct {
	ctx      context.Context
	rc       *engine.RunContext
	backend  store.Backend
	bridge   *bridge
	renderer text.Renderer
	version  string

	view     string
	started  bool
	settings store.Settings
	pal      palette
	highest  int
	// lean is the direction the current card is tilted towards; empty while centred.
	lean    engine.Direction
	pending *engine.DismissHandle
	frame   int
	waiting bool
	history viewport.Model
	bar     progress.Model
	status  string
	width   int
	height  int
}

func newModel(ctx context.Context, rc *engine.RunContext, backend store.Backend, br *bridge, theme, version string) model {
	m := model{
		ctx:      ctx,
		rc:       rc,
		backend:  backend,
		bridge:   br,
		version:  version,
		view:     viewStart,
		settings: store.DefaultSettings(),
		history:  viewport.New(cardWidth+cardMargin, 16),
	}
	if s, err := backend.LoadSettings(ctx); err != nil {
		log.Printf("load settings: %v", err)
	} else {
		m.settings = s
	}
	if m.settings.Theme == "" {
		m.settings.Theme = theme
	}
	br.sound = m.settings.SoundEnabled
	m.refreshHighest()
	m.applyTheme()
	return m
}

func (m *model) applyTheme() {
	m.pal = paletteFor(m.settings.Theme)
	m.bar = progress.New(
		progress.WithSolidFill(string(m.pal.Accent)),
		progress.WithWidth(cardWidth-12),
		progress.WithoutPercentage(),
	)
	fallback := text.NewTemplateRenderer()
	g, err := text.NewGlamourRenderer(m.pal.Glamour, cardWidth-6)
	if err != nil {
		log.Printf("card renderer: %v", err)
		m.renderer = fallback
		return
	}
	m.renderer = text.WithFallback(g, fallback)
}

func (m *model) refreshHighest() {
	age, err := m.rc.HighestAge(m.ctx)
	if err != nil {
		log.Printf("highest age: %v", err)
		return
	}
	m.highest = age
}

// tea.Model implementation ---------------------------------------------------
func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.history.Width = min(msg.Width, cardWidth+cardMargin)
		m.history.Height = max(msg.Height-6, 5)
		return m, nil
	case swipeTickMsg:
		return m.advanceSwipe(msg)
	case restartMsg:
		return m.restart(msg.err)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	if k == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.view {
	case viewHistory:
		switch k {
		case "esc", "q", "r":
			m.view = m.homeView()
			return m, nil
		}
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		return m, cmd
	case viewHelp:
		if k == "esc" || k == "q" || k == "?" {
			m.view = m.homeView()
		}
		return m, nil
	case viewSettings:
		switch k {
		case "esc", "q", "o":
			m.view = m.homeView()
		case "s":
			m.toggleSound()
		case "f":
			m.unlockForesight()
		case "t":
			m.cycleTheme()
		}
		return m, nil
	case viewStart:
		switch k {
		case "enter", " ":
			return m.start()
		case "q":
			return m, tea.Quit
		}
	}
	switch k {
	case "q":
		return m, tea.Quit
	case "r":
		m.showHistory()
		return m, nil
	case "o":
		m.view = viewSettings
		return m, nil
	case "?":
		m.view = viewHelp
		return m, nil
	case "s":
		m.toggleSound()
		return m, nil
	case "f":
		m.unlockForesight()
		return m, nil
	case "t":
		m.cycleTheme()
		return m, nil
	}
	if m.view != viewCard {
		return m, nil
	}
	switch k {
	case "left", "h":
		return m.leanTo(engine.DirectionLeft)
	case "right", "l":
		return m.leanTo(engine.DirectionRight)
	case "enter", " ":
		return m.commit()
	case "esc":
		if m.pending == nil && m.lean != "" {
			m.lean = ""
			m.rc.CancelPreview()
		}
	}
	return m, nil
}

func (m model) homeView() string {
	if m.started {
		return viewCard
	}
	return viewStart
}

func (m model) start() (tea.Model, tea.Cmd) {
	if _, err := m.rc.Start(m.ctx); err != nil {
		log.Printf("start run: %v", err)
		m.status = "Could not start: " + err.Error()
		return m, nil
	}
	m.started = true
	m.status = ""
	m.view = viewCard
	return m, nil
}

// leanTo tilts the card and previews the stats it touches. Leaning the same way twice swipes.
func (m model) leanTo(dir engine.Direction) (tea.Model, tea.Cmd) {
	if m.pending != nil {
		return m, nil
	}
	if m.lean == dir {
		return m.commit()
	}
	if m.lean != "" {
		m.rc.CancelPreview()
		m.lean = ""
	}
	if err := m.rc.Preview(); err != nil {
		m.status = inputStatus(err)
		return m, nil
	}
	m.lean = dir
	m.status = ""
	return m, nil
}

func (m model) commit() (tea.Model, tea.Cmd) {
	if m.lean == "" || m.pending != nil {
		return m, nil
	}
	h, err := m.rc.BeginDismiss(m.lean)
	if err != nil {
		m.status = inputStatus(err)
		return m, nil
	}
	m.pending = &h
	m.frame = 0
	return m, swipeTick(1)
}

func swipeTick(frame int) tea.Cmd {
	return tea.Tick(swipeInterval, func(time.Time) tea.Msg { return swipeTickMsg{frame: frame} })
}

// advanceSwipe animates the card off screen and completes the dismiss on the last frame.
func (m model) advanceSwipe(msg swipeTickMsg) (tea.Model, tea.Cmd) {
	if m.pending == nil {
		return m, nil
	}
	m.frame = msg.frame
	if m.frame < swipeFrames {
		return m, swipeTick(m.frame + 1)
	}
	h := *m.pending
	m.pending = nil
	m.lean = ""
	m.frame = 0
	if _, err := m.rc.CompleteDismiss(m.ctx, h); err != nil {
		log.Printf("complete dismiss: %v", err)
		m.status = err.Error()
		return m, nil
	}
	if m.rc.Snapshot().State == engine.RunGameOver {
		m.waiting = true
		return m, m.waitRestart()
	}
	return m, nil
}

func (m model) waitRestart() tea.Cmd {
	rc, ctx := m.rc, m.ctx
	return func() tea.Msg { return restartMsg{err: rc.WaitRestart(ctx)} }
}

func (m model) restart(err error) (tea.Model, tea.Cmd) {
	m.waiting = false
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Printf("wait restart: %v", err)
		}
		return m, nil
	}
	if _, err := m.rc.Restart(m.ctx); err != nil {
		log.Printf("restart: %v", err)
		m.status = "Restart failed: " + err.Error()
		return m, nil
	}
	m.bridge.failure = ""
	m.refreshHighest()
	return m, nil
}

func inputStatus(err error) string {
	switch {
	case errors.Is(err, engine.ErrInputFrozen):
		return "This life is over. A new one begins shortly."
	case errors.Is(err, engine.ErrNoRun):
		return "Press enter to start."
	case errors.Is(err, engine.ErrDismissPending):
		return ""
	default:
		return err.Error()
	}
}

// Settings -------------------------------------------------------------------
func (m *model) saveSettings() {
	if err := m.backend.SaveSettings(m.ctx, m.settings); err != nil {
		log.Printf("save settings: %v", err)
		m.status = "Settings not saved: " + err.Error()
	}
}

func (m *model) toggleSound() {
	m.settings.SoundEnabled = !m.settings.SoundEnabled
	m.bridge.sound = m.settings.SoundEnabled
	m.saveSettings()
	m.status = "Sound " + onOff(m.settings.SoundEnabled)
}

func (m *model) unlockForesight() {
	unlocked, err := m.backend.UnlockForesight(m.ctx)
	switch {
	case err != nil:
		log.Printf("unlock foresight: %v", err)
		m.status = "Foresight unavailable: " + err.Error()
	case unlocked:
		m.settings.ForesightUnlocked = true
		m.status = "Foresight unlocked: leaning now shows how much each stat moves."
	default:
		m.settings.ForesightUnlocked = true
		m.status = "Foresight is already unlocked."
	}
}

func (m *model) cycleTheme() {
	m.settings.Theme = nextThemeName(m.settings.Theme, 1)
	m.applyTheme()
	m.saveSettings()
	m.status = "Theme " + m.settings.Theme
}

func (m *model) showHistory() {
	runs, err := m.backend.RecentRuns(m.ctx, historyLimit)
	if err != nil {
		log.Printf("recent runs: %v", err)
		m.status = "History unavailable: " + err.Error()
		return
	}
	m.history.SetContent(formatHistory(runs))
	m.history.GotoTop()
	m.view = viewHistory
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// Layout rendering -----------------------------------------------------------
func (m model) View() string {
	switch m.view {
	case viewStart:
		return m.renderStart()
	case viewHistory:
		return m.renderHistory()
	case viewSettings:
		return m.renderSettings()
	case viewHelp:
		return m.renderHelp()
	default:
		return m.renderCardView()
	}
}

func (m model) title() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(m.pal.Accent)
}

func (m model) muted() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(m.pal.Muted)
}

func (m model) box() lipgloss.Style {
	return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(m.pal.Border).Padding(1, 2).Width(cardWidth)
}

func (m model) renderStart() string {
	var b strings.Builder
	b.WriteString(m.title().Render("LIFESWIPE") + "\n\n")
	b.WriteString("Swipe through a life. Keep heart, career, happiness and sociability above zero.\n\n")
	if m.highest > 0 {
		fmt.Fprintf(&b, "Oldest age reached: %d\n\n", m.highest)
	} else {
		b.WriteString("No life lived yet.\n\n")
	}
	b.WriteString("[Enter] start  [R] history  [O] settings  [?] help  [Q] quit")
	if m.status != "" {
		b.WriteString("\n\n" + m.status)
	}
	return m.box().Render(b.String())
}

func (m model) renderCardView() string {
	v := m.rc.Snapshot()
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderTopBar(v),
		m.renderStats(v),
		m.renderCard(v),
		m.renderBottomBar(v),
	)
}

func (m model) renderTopBar(v engine.RunView) string {
	left := fmt.Sprintf("LIFESWIPE • life %d • age %d", v.Run+1, int(v.Age))
	right := fmt.Sprintf("best %d", m.highest)
	w := cardWidth + cardMargin
	gap := max(w-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return m.title().Render(left + strings.Repeat(" ", gap) + right)
}

func (m model) renderStats(v engine.RunView) string {
	var b strings.Builder
	for _, st := range engine.AllStats {
		val := v.Stats.Get(st)
		pointer := " "
		if m.bridge.pointers[st] {
			pointer = "•"
		}
		trend := " "
		switch m.bridge.trend[st] {
		case 1:
			trend = "▲"
		case -1:
			trend = "▼"
		}
		fill := lipgloss.NewStyle().Foreground(m.pal.Stats[st])
		label := fmt.Sprintf("%-12s", st)
		fmt.Fprintf(&b, "%s %s %s %3.0f %s\n", pointer, fill.Render(label), m.statBar(val, fill), val*100, trend)
	}
	b.WriteString("  " + fmt.Sprintf("%-12s", "progress") + " " + m.bar.ViewAs(v.Progress/100) + fmt.Sprintf(" %3.0f%%", v.Progress))
	return b.String()
}

func (m model) statBar(v float64, fill lipgloss.Style) string {
	n := int(engine.Clamp01(v)*statBarWidth + 0.5)
	empty := lipgloss.NewStyle().Foreground(m.pal.BarEmpty)
	return fill.Render(strings.Repeat("█", n)) + empty.Render(strings.Repeat("·", statBarWidth-n))
}

func (m model) cardView(v engine.RunView) text.CardView {
	cv := text.CardView{Card: v.Current, Lean: m.lean, Foresight: m.settings.ForesightUnlocked}
	if v.State == engine.RunGameOver {
		cv = text.CardView{Card: v.Current, GameOver: true, Cause: v.Cause, Age: v.Age}
	}
	return cv
}

func (m model) renderCard(v engine.RunView) string {
	style := m.box().Padding(0, 1).MarginLeft(m.cardOffset()).MarginTop(1)
	if m.lean != "" {
		style = style.BorderForeground(m.pal.Accent)
	}
	if m.bridge.failure != "" {
		style = style.BorderForeground(m.pal.Warning).MarginLeft(cardMargin / 2)
	}
	if v.Current == nil {
		return style.Render(fmt.Sprintf("Game over: your %s gave out at age %d.", v.Cause, int(v.Age)))
	}
	cv := m.cardView(v)
	body, err := m.renderer.Render(m.ctx, cv)
	if err != nil {
		body = text.Markdown(cv)
	}
	return style.Render(body)
}

// cardOffset is the left margin of the card: tilted while leaning, sliding out while swiping.
func (m model) cardOffset() int {
	base := cardMargin / 2
	switch m.lean {
	case engine.DirectionLeft:
		return max(base-2-m.frame, 0)
	case engine.DirectionRight:
		return base + 2 + m.frame*3
	}
	return base
}

func (m model) renderBottomBar(v engine.RunView) string {
	keys := "[←/H] lean left  [→/L] lean right  [Enter] swipe  [Esc] centre  [S] sound  [F] foresight  [T] theme  [R] history  [?] help  [Q] quit"
	line := m.status
	if v.State == engine.RunGameOver {
		line = fmt.Sprintf("Game over (%s).", v.Cause)
		if m.waiting {
			line += fmt.Sprintf(" A new life begins in %s.", m.rc.RestartDelay())
		}
	} else if m.lean != "" && line == "" {
		line = "Press " + string(m.lean) + " again or Enter to swipe, Esc to reconsider."
	}
	return m.muted().Width(cardWidth + cardMargin).Render(keys + "\n" + line)
}

func (m model) renderHistory() string {
	return m.title().Render("PAST LIVES (Up/Down scroll, Esc back)") + "\n" + m.history.View()
}

func formatHistory(runs []engine.RunRecord) string {
	if len(runs) == 0 {
		return "(no finished lives yet)"
	}
	var b strings.Builder
	for _, r := range runs {
		fmt.Fprintf(&b, "%-16s age %3d  %-11s progress %3.0f%%  swipes %3d\n",
			r.EndedAt.Local().Format("2006-01-02 15:04"), int(r.Age), r.Cause, r.Progress, r.Swipes)
	}
	return b.String()
}

func (m model) renderSettings() string {
	foresight := "locked (f unlock)"
	if m.settings.ForesightUnlocked {
		foresight = "unlocked"
	}
	content := fmt.Sprintf("SETTINGS\n\nSound: %s (s toggle)\nForesight: %s\nTheme: %s (t cycle)\nVersion: %s\n\nEsc back",
		onOff(m.settings.SoundEnabled), foresight, m.settings.Theme, m.version)
	if m.status != "" {
		content += "\n\n" + m.status
	}
	return m.box().Render(content)
}

func (m model) renderHelp() string {
	return m.box().Render("HOW TO PLAY\n\n" +
		"Each card is a moment of your life. Lean left or right to see which stats the answer touches," +
		" then swipe to commit. Every swipe ages you a little. If heart, career, happiness or sociability" +
		" runs out, the life ends and a new one begins after a short pause.\n\n" +
		"Foresight shows how far each stat will move before you commit.\n\nEsc returns.")
}
