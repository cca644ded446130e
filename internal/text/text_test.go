package text

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DaanHessen/lifeswipe/internal/engine"
)

func sampleCard() *engine.Card {
	return &engine.Card{
		ID:          "promotion",
		Title:       "Promotion",
		Description: "Your manager offers you the team lead role.",
		LeftAnswer:  "Decline",
		RightAnswer: "Accept",
		LeftImpact:  engine.Impact{Happiness: 2},
		RightImpact: engine.Impact{Career: 5, Heart: -3},
	}
}

func TestMarkdownCentred(t *testing.T) {
	md := Markdown(CardView{Card: sampleCard()})
	for _, want := range []string{"## Promotion", "team lead", "← Decline", "Accept →"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "•") {
		t.Fatalf("centred card should not show stat hints:\n%s", md)
	}
}

func TestMarkdownLeanWithoutForesight(t *testing.T) {
	md := Markdown(CardView{Card: sampleCard(), Lean: engine.DirectionRight})
	if !strings.Contains(md, "**Accept →**") {
		t.Fatalf("leaning answer not emphasised:\n%s", md)
	}
	for _, want := range []string{"heart •", "career •", "happiness •"} {
		if !strings.Contains(md, want) {
			t.Fatalf("missing hint %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "sociability") || strings.Contains(md, "+5") {
		t.Fatalf("unexpected hint:\n%s", md)
	}
}

func TestMarkdownForesightShowsMagnitudes(t *testing.T) {
	md := Markdown(CardView{Card: sampleCard(), Lean: engine.DirectionRight, Foresight: true})
	for _, want := range []string{"heart -3", "career +5", "happiness +0"} {
		if !strings.Contains(md, want) {
			t.Fatalf("missing %q:\n%s", want, md)
		}
	}
}

func TestMarkdownGameOver(t *testing.T) {
	end := &engine.Card{ID: "end_heart", Title: "Heartbreak"}
	md := Markdown(CardView{Card: end, GameOver: true, Cause: engine.CauseHeart, Age: 42.7})
	if !strings.Contains(md, "heart gave out at age 42") {
		t.Fatalf("game over line missing:\n%s", md)
	}
	if strings.Contains(md, "→") {
		t.Fatalf("end card should not show answers:\n%s", md)
	}
}

func TestGlamourRenderer(t *testing.T) {
	r, err := NewGlamourRenderer("notty", 60)
	if err != nil {
		t.Fatalf("glamour: %v", err)
	}
	out, err := r.Render(context.Background(), CardView{Card: sampleCard()})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "Promotion") {
		t.Fatalf("rendered output missing title:\n%s", out)
	}
	if _, err := r.Render(context.Background(), CardView{}); !errors.Is(err, ErrNoCard) {
		t.Fatalf("nil card err = %v", err)
	}
}

type failing struct{}

func (failing) Render(context.Context, CardView) (string, error) {
	return "", errors.New("boom")
}

func TestWithFallback(t *testing.T) {
	r := WithFallback(failing{}, NewTemplateRenderer())
	out, err := r.Render(context.Background(), CardView{Card: sampleCard()})
	if err != nil || !strings.HasPrefix(out, "## Promotion") {
		t.Fatalf("fallback = %q, %v", out, err)
	}
	r = WithFallback(nil, NewTemplateRenderer())
	if _, err := r.Render(context.Background(), CardView{Card: sampleCard()}); err != nil {
		t.Fatalf("nil primary: %v", err)
	}
}
