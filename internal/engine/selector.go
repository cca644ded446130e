package engine

import (
	"fmt"
	"io"
	"log"
)

const (
	// PreloadCount is the size of the random-fallback queue.
	PreloadCount = 5
	// PoolDrawAttempts bounds uniform draws from a pool before scanning it in order.
	PoolDrawAttempts = 5
)

// Selector picks the next card: debug override, direct chain, pool chain, then the preload queue.
type Selector struct {
	catalog *Catalog
	rng     *Stream
	mode    FeedMode
	logger  *log.Logger

	lastIndex int
	cursor    int
	queue     []*Card
	override  string
	lastDir   Direction
	spent     map[string]struct{}
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithFeedMode selects how the random fallback walks the deck.
func WithFeedMode(m FeedMode) SelectorOption {
	return func(s *Selector) {
		if m.Validate() {
			s.mode = m
		}
	}
}

func WithSelectorLogger(l *log.Logger) SelectorOption {
	return func(s *Selector) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSelector builds a selector over catalog drawing from rng and fills the preload queue.
func NewSelector(catalog *Catalog, rng *Stream, opts ...SelectorOption) (*Selector, error) {
	if catalog == nil || catalog.Len() == 0 {
		return nil, ErrEmptyDeck
	}
	if rng == nil {
		return nil, fmt.Errorf("selector: nil random stream")
	}
	s := &Selector{
		catalog:   catalog,
		rng:       rng,
		mode:      FeedShuffle,
		logger:    log.New(io.Discard, "", 0),
		lastIndex: -1,
		spent:     map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.refill()
	return s, nil
}

// LastSwipeDir is the direction passed to the most recent Next call with a current card.
func (s *Selector) LastSwipeDir() Direction { return s.lastDir }

// Queue returns a copy of the preloaded cards in dequeue order.
func (s *Selector) Queue() []*Card { return append([]*Card{}, s.queue...) }

// ForceNext arms a one-shot override returned by the next call to Next.
func (s *Selector) ForceNext(id string) error {
	if s.catalog.Lookup(id) == nil {
		return fmt.Errorf("force next %q: %w", id, ErrUnknownCard)
	}
	s.override = id
	return nil
}

// MarkShown records that card was displayed. Once-only cards then leave the random fallback.
func (s *Selector) MarkShown(card *Card) {
	if card != nil && card.IsOnlyOnce {
		s.spent[card.ID] = struct{}{}
	}
}

// Next returns the card to show after current was swiped towards dir.
// A nil current (run start) goes straight to the preload queue.
func (s *Selector) Next(current *Card, dir Direction) (*Card, error) {
	if s.catalog.Len() == 0 {
		return nil, ErrEmptyDeck
	}
	if s.override != "" {
		id := s.override
		s.override = ""
		if c := s.catalog.Lookup(id); c != nil {
			s.logger.Printf("override -> %s", id)
			return c, nil
		}
	}
	if current == nil {
		return s.dequeue(nil)
	}
	s.lastDir = dir
	if c := s.chained(current, dir); c != nil {
		return c, nil
	}
	if c := s.pooled(current, dir); c != nil {
		return c, nil
	}
	return s.dequeue(current)
}

func (s *Selector) chained(current *Card, dir Direction) *Card {
	id := current.Next(dir)
	if id == "" {
		return nil
	}
	c := s.catalog.Lookup(id)
	if c == nil {
		s.logger.Printf("%s: chain %s -> %s does not resolve", current.ID, dir, id)
		return nil
	}
	if c.ID == current.ID {
		return nil
	}
	return c
}

func (s *Selector) pooled(current *Card, dir Direction) *Card {
	pool := current.Pool(dir)
	if len(pool) == 0 {
		return nil
	}
	for i := 0; i < PoolDrawAttempts; i++ {
		c := s.catalog.Lookup(pool[s.rng.Intn(len(pool))])
		if c != nil && c.ID != current.ID {
			return c
		}
	}
	for _, id := range pool {
		if c := s.catalog.Lookup(id); c != nil && c.ID != current.ID {
			return c
		}
	}
	s.logger.Printf("%s: pool %s has no usable entry", current.ID, dir)
	return nil
}

// dequeue pops preloaded cards until one differs from current and is not a spent once-only card.
func (s *Selector) dequeue(current *Card) (*Card, error) {
	var last *Card
	for i := 0; i < PreloadCount+s.catalog.Len(); i++ {
		s.refill()
		c := s.queue[0]
		s.queue = s.queue[1:]
		s.refill()
		last = c
		if current != nil && c.ID == current.ID {
			continue
		}
		if s.isSpent(c) {
			continue
		}
		return c, nil
	}
	if c := s.otherCard(current); c != nil {
		return c, nil
	}
	s.logger.Printf("no alternative card in deck, reusing %s", last.ID)
	return last, nil
}

// otherCard scans the deck in order for a card other than current, preferring unspent cards.
// Spent once-only cards are only reused when nothing else differs from current.
func (s *Selector) otherCard(current *Card) *Card {
	var spent *Card
	for _, c := range s.catalog.deck {
		if current != nil && c.ID == current.ID {
			continue
		}
		if !s.isSpent(c) {
			return c
		}
		if spent == nil {
			spent = c
		}
	}
	return spent
}

func (s *Selector) refill() {
	for len(s.queue) < PreloadCount {
		c, err := s.PickRandom()
		if err != nil {
			return
		}
		s.queue = append(s.queue, c)
	}
}

// PickRandom draws a deck card according to the feed mode, never repeating the previous index
// unless the deck holds a single card.
func (s *Selector) PickRandom() (*Card, error) {
	n := s.catalog.Len()
	if n == 0 {
		return nil, ErrEmptyDeck
	}
	if n == 1 {
		s.lastIndex = 0
		return s.catalog.At(0), nil
	}
	var idx int
	switch {
	case s.mode == FeedLoop, s.mode == FeedOnce && s.cursor < n:
		idx = s.nextInOrder(n)
	default:
		idx = s.nextShuffled(n)
	}
	s.lastIndex = idx
	return s.catalog.At(idx), nil
}

func (s *Selector) nextInOrder(n int) int {
	fallback := -1
	for i := 0; i < n; i++ {
		idx := s.cursor % n
		s.cursor++
		if idx == s.lastIndex {
			continue
		}
		if fallback < 0 {
			fallback = idx
		}
		if !s.isSpent(s.catalog.At(idx)) {
			return idx
		}
	}
	return fallback
}

func (s *Selector) nextShuffled(n int) int {
	eligible := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if i != s.lastIndex && !s.isSpent(s.catalog.At(i)) {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		s.logger.Printf("every card is spent, drawing from the full deck")
		if s.lastIndex < 0 {
			return s.rng.Intn(n)
		}
		idx := s.rng.Intn(n - 1)
		if idx >= s.lastIndex {
			idx++
		}
		return idx
	}
	return eligible[s.rng.Intn(len(eligible))]
}

func (s *Selector) isSpent(c *Card) bool {
	if !c.IsOnlyOnce {
		return false
	}
	_, ok := s.spent[c.ID]
	return ok
}
