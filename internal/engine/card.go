package engine

import (
	"fmt"
	"strings"
)

// Impact is a raw, sign-bearing stat perturbation as authored in the catalog.
type Impact struct {
	Heart       int `yaml:"heart,omitempty"`
	Career      int `yaml:"career,omitempty"`
	Happiness   int `yaml:"happiness,omitempty"`
	Sociability int `yaml:"sociability,omitempty"`
}

// Get returns the raw impact for one stat.
func (i Impact) Get(s Stat) int {
	switch s {
	case StatHeart:
		return i.Heart
	case StatCareer:
		return i.Career
	case StatHappiness:
		return i.Happiness
	case StatSociability:
		return i.Sociability
	default:
		return 0
	}
}

func (i Impact) IsZero() bool { return i == Impact{} }

// Card is a single narrative decision point. Cards are immutable once loaded into a Catalog.
type Card struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Artwork     string `yaml:"artwork,omitempty"`

	LeftAnswer  string  `yaml:"left_answer"`
	RightAnswer string  `yaml:"right_answer"`
	LeftImpact  Impact  `yaml:"left_impact"`
	RightImpact Impact  `yaml:"right_impact"`
	ImpactTypes []Stat  `yaml:"impact_types,omitempty"`
	AgeImpact   float64 `yaml:"age_impact,omitempty"`

	IsChainCard   bool     `yaml:"chain,omitempty"`
	NextOnLeft    string   `yaml:"next_on_left,omitempty"`
	NextOnRight   string   `yaml:"next_on_right,omitempty"`
	NextPoolLeft  []string `yaml:"next_pool_left,omitempty"`
	NextPoolRight []string `yaml:"next_pool_right,omitempty"`

	LifeStage              LifeStage `yaml:"life_stage,omitempty"`
	IsOnlyOnce             bool      `yaml:"only_once,omitempty"`
	ContributesToProgress  bool      `yaml:"progress,omitempty"`
	IsFinalCard            bool      `yaml:"final,omitempty"`
	CompensatesSkippedCard bool      `yaml:"compensates_skipped,omitempty"`
}

// Impact returns the impact tuple for a swipe direction.
func (c *Card) Impact(dir Direction) Impact {
	if dir == DirectionLeft {
		return c.LeftImpact
	}
	return c.RightImpact
}

// Answer returns the label shown while the card leans towards dir.
func (c *Card) Answer(dir Direction) string {
	if dir == DirectionLeft {
		return c.LeftAnswer
	}
	return c.RightAnswer
}

// Next returns the authored direct chain id for dir ("" when unchained).
func (c *Card) Next(dir Direction) string {
	if dir == DirectionLeft {
		return c.NextOnLeft
	}
	return c.NextOnRight
}

// Pool returns the authored candidate pool for dir.
func (c *Card) Pool(dir Direction) []string {
	if dir == DirectionLeft {
		return c.NextPoolLeft
	}
	return c.NextPoolRight
}

func (c *Card) links() []string {
	out := []string{c.NextOnLeft, c.NextOnRight}
	out = append(out, c.NextPoolLeft...)
	return append(out, c.NextPoolRight...)
}

// Catalog is the read-only card deck plus the end cards shown on game over.
type Catalog struct {
	deck     []*Card
	endCards []*Card
	byID     map[string]*Card
	index    map[string]int
	dangling []string
}

// NewCatalog copies the given cards into an immutable catalog.
// Ids must be non-empty and unique across deck and end cards. References to unknown ids are kept
// (they resolve to nil at selection time) and reported through Dangling.
func NewCatalog(deck []Card, endCards []Card) (*Catalog, error) {
	c := &Catalog{
		byID:  make(map[string]*Card, len(deck)+len(endCards)),
		index: make(map[string]int, len(deck)),
	}
	add := func(src Card, isEnd bool) error {
		id := strings.TrimSpace(src.ID)
		if id == "" {
			return fmt.Errorf("card %q: empty id", src.Title)
		}
		if _, dup := c.byID[id]; dup {
			return fmt.Errorf("duplicate card id %q", id)
		}
		if src.LifeStage == "" {
			src.LifeStage = LifeStageAny
		}
		if !src.LifeStage.Validate() {
			return fmt.Errorf("card %q: unknown life stage %q", id, src.LifeStage)
		}
		for _, st := range src.ImpactTypes {
			if !st.Validate() {
				return fmt.Errorf("card %q: unknown impact type %q", id, st)
			}
		}
		card := src
		card.ID = id
		card.ImpactTypes = append([]Stat(nil), src.ImpactTypes...)
		card.NextPoolLeft = append([]string(nil), src.NextPoolLeft...)
		card.NextPoolRight = append([]string(nil), src.NextPoolRight...)
		c.byID[id] = &card
		if isEnd {
			c.endCards = append(c.endCards, &card)
		} else {
			c.index[id] = len(c.deck)
			c.deck = append(c.deck, &card)
		}
		return nil
	}
	for _, card := range deck {
		if err := add(card, false); err != nil {
			return nil, err
		}
	}
	for _, card := range endCards {
		if err := add(card, true); err != nil {
			return nil, err
		}
	}
	for _, card := range c.deck {
		for _, ref := range card.links() {
			if ref == "" {
				continue
			}
			if _, ok := c.byID[ref]; !ok {
				c.dangling = append(c.dangling, card.ID+"->"+ref)
			}
		}
	}
	return c, nil
}

// Len is the number of selectable deck cards.
func (c *Catalog) Len() int { return len(c.deck) }

// At returns the deck card at index i.
func (c *Catalog) At(i int) *Card { return c.deck[i] }

// Deck returns the selectable cards in declared order.
func (c *Catalog) Deck() []*Card { return append([]*Card{}, c.deck...) }

// EndCards returns the game over cards in declared order.
func (c *Catalog) EndCards() []*Card { return append([]*Card{}, c.endCards...) }

// Lookup resolves a card id; unknown or empty ids return nil.
func (c *Catalog) Lookup(id string) *Card {
	if id == "" {
		return nil
	}
	return c.byID[id]
}

// IndexOf returns the deck index of id, or -1 for end cards and unknown ids.
func (c *Catalog) IndexOf(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// Dangling lists chain/pool references ("from->to") that point at unknown ids.
func (c *Catalog) Dangling() []string { return append([]string{}, c.dangling...) }
