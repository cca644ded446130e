package text

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/DaanHessen/lifeswipe/internal/engine"
)

var ErrNoCard = errors.New("no card to render")

// CardView is everything needed to draw one card.
type CardView struct {
	Card *engine.Card
	// Lean is the direction the card is tilted towards; empty while centred.
	Lean      engine.Direction
	Foresight bool
	GameOver  bool
	Cause     engine.GameOverCause
	Age       float64
}

// Renderer is the interface used by the game to render card text.
type Renderer interface {
	Render(ctx context.Context, v CardView) (string, error)
}

// templateRenderer emits plain markdown. It never fails on a valid view and is the fallback.
type templateRenderer struct{}

func NewTemplateRenderer() Renderer { return templateRenderer{} }

func (templateRenderer) Render(ctx context.Context, v CardView) (string, error) {
	if v.Card == nil {
		return "", ErrNoCard
	}
	return Markdown(v), nil
}

// Markdown lays out a card: title, description, answers and, while leaning, the stats it touches.
func Markdown(v CardView) string {
	c := v.Card
	var b strings.Builder
	b.WriteString("## " + c.Title + "\n\n")
	if c.Description != "" {
		b.WriteString(c.Description + "\n\n")
	}
	if v.GameOver {
		fmt.Fprintf(&b, "*Your %s gave out at age %d.*\n", v.Cause, int(v.Age))
		return b.String()
	}
	b.WriteString(answerLine(c, v.Lean) + "\n")
	if v.Lean == "" {
		return b.String()
	}
	hints := impactHints(c, v.Lean, v.Foresight)
	if len(hints) > 0 {
		b.WriteString("\n")
		for _, h := range hints {
			b.WriteString("- " + h + "\n")
		}
	}
	return b.String()
}

func answerLine(c *engine.Card, lean engine.Direction) string {
	left, right := "← "+c.Answer(engine.DirectionLeft), c.Answer(engine.DirectionRight)+" →"
	switch lean {
	case engine.DirectionLeft:
		left = "**" + left + "**"
	case engine.DirectionRight:
		right = "**" + right + "**"
	}
	return left + " | " + right
}

// impactHints lists every stat the card can move. With foresight the leaning side's signed
// magnitude is shown too.
func impactHints(c *engine.Card, lean engine.Direction, foresight bool) []string {
	var out []string
	for _, st := range engine.AllStats {
		l, r := c.LeftImpact.Get(st), c.RightImpact.Get(st)
		if l == 0 && r == 0 {
			continue
		}
		if !foresight {
			out = append(out, string(st)+" •")
			continue
		}
		out = append(out, fmt.Sprintf("%s %+d", st, c.Impact(lean).Get(st)))
	}
	return out
}

// glamourRenderer styles the template markdown for the terminal.
type glamourRenderer struct {
	tr *glamour.TermRenderer
}

// NewGlamourRenderer builds a terminal renderer. style is a glamour standard style name
// ("dark", "light", "notty", ...); empty picks one from the terminal background.
func NewGlamourRenderer(style string, width int) (Renderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithEmoji()}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	tr, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("glamour: %w", err)
	}
	return &glamourRenderer{tr: tr}, nil
}

func (g *glamourRenderer) Render(ctx context.Context, v CardView) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if v.Card == nil {
		return "", ErrNoCard
	}
	out, err := g.tr.Render(Markdown(v))
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}

// WithFallback returns a renderer that prefers primary and falls back to backup on error.
func WithFallback(primary, fallback Renderer) Renderer {
	return &fallbackRenderer{p: primary, f: fallback}
}

type fallbackRenderer struct{ p, f Renderer }

func (r *fallbackRenderer) Render(ctx context.Context, v CardView) (string, error) {
	if r.p == nil {
		return r.f.Render(ctx, v)
	}
	if s, err := r.p.Render(ctx, v); err == nil {
		return s, nil
	}
	return r.f.Render(ctx, v)
}
