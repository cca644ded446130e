package engine

const (
	// ImpactScale converts raw catalog impact units into stat fractions (5 -> 0.05).
	ImpactScale = 0.01
	// AgeImpactDivisor halves catalog age impacts on apply.
	AgeImpactDivisor = 2.0
	// DepletionEpsilon is the floor at or below which a stat counts as finished.
	DepletionEpsilon = 0.001

	DefaultStatValue = 0.5
	DefaultAge       = 18.0

	SnapshotVersion = 1
)

// Stats holds the four clamped stat fractions.
type Stats struct {
	Heart       float64
	Career      float64
	Happiness   float64
	Sociability float64
}

func (s Stats) Get(st Stat) float64 {
	switch st {
	case StatHeart:
		return s.Heart
	case StatCareer:
		return s.Career
	case StatHappiness:
		return s.Happiness
	case StatSociability:
		return s.Sociability
	default:
		return 0
	}
}

func (s *Stats) set(st Stat, v float64) {
	switch st {
	case StatHeart:
		s.Heart = v
	case StatCareer:
		s.Career = v
	case StatHappiness:
		s.Happiness = v
	case StatSociability:
		s.Sociability = v
	}
}

// StatSnapshot is the persisted form of a ledger.
type StatSnapshot struct {
	Version     int     `yaml:"version" json:"version"`
	Heart       float64 `yaml:"heart" json:"heart"`
	Career      float64 `yaml:"career" json:"career"`
	Happiness   float64 `yaml:"happiness" json:"happiness"`
	Sociability float64 `yaml:"sociability" json:"sociability"`
	Age         float64 `yaml:"age" json:"age"`
}

// DefaultSnapshot returns the values every fresh run starts from.
func DefaultSnapshot() StatSnapshot {
	return StatSnapshot{
		Version:     SnapshotVersion,
		Heart:       DefaultStatValue,
		Career:      DefaultStatValue,
		Happiness:   DefaultStatValue,
		Sociability: DefaultStatValue,
		Age:         DefaultAge,
	}
}

// Resolution summarises one ApplyCard call.
type Resolution struct {
	Direction Direction
	Delta     Stats
	AgeDelta  float64
	// Depleted lists finished stats in check order (heart, career, happiness, sociability).
	Depleted []Stat
}

// Clamp01 restricts v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// StatLedger is the authoritative holder of stat values and their sole mutator.
type StatLedger struct {
	stats Stats
	age   float64
	bus   *Bus
}

// NewStatLedger returns a ledger at default values publishing to bus (a private bus when nil).
func NewStatLedger(bus *Bus) *StatLedger {
	if bus == nil {
		bus = &Bus{}
	}
	l := &StatLedger{bus: bus}
	l.load(DefaultSnapshot())
	return l
}

func (l *StatLedger) Bus() *Bus { return l.bus }

func (l *StatLedger) Stats() Stats { return l.stats }

func (l *StatLedger) Value(st Stat) float64 { return l.stats.Get(st) }

func (l *StatLedger) Age() float64 { return l.age }

// Depleted reports whether st is at or below DepletionEpsilon.
func (l *StatLedger) Depleted(st Stat) bool { return l.stats.Get(st) <= DepletionEpsilon }

func (l *StatLedger) Snapshot() StatSnapshot {
	return StatSnapshot{
		Version:     SnapshotVersion,
		Heart:       l.stats.Heart,
		Career:      l.stats.Career,
		Happiness:   l.stats.Happiness,
		Sociability: l.stats.Sociability,
		Age:         l.age,
	}
}

// ApplyCard applies the impacts of card for a swipe towards dir.
func (l *StatLedger) ApplyCard(card *Card, dir Direction) Resolution {
	res := Resolution{Direction: dir}
	if card == nil {
		return res
	}
	impact := card.Impact(dir)
	for _, st := range AllStats {
		raw := impact.Get(st)
		if raw == 0 {
			continue
		}
		before := l.stats.Get(st)
		after := l.ApplyAndRaise(st, float64(raw)*ImpactScale)
		res.Delta.set(st, after-before)
		if after <= DepletionEpsilon {
			res.Depleted = append(res.Depleted, st)
		}
	}
	if card.AgeImpact != 0 {
		res.AgeDelta = card.AgeImpact / AgeImpactDivisor
		l.age += res.AgeDelta
		l.bus.Publish(Notification{Kind: NoteAgeChanged, Value: l.age})
	}
	return res
}

// ApplyAndRaise is the single stat mutation path: new = clamp(old+delta, 0, 1).
// It publishes NoteStatChanged and, when the stat is depleted, NoteStatFinished.
func (l *StatLedger) ApplyAndRaise(st Stat, delta float64) float64 {
	v := Clamp01(l.stats.Get(st) + delta)
	l.stats.set(st, v)
	l.bus.Publish(Notification{Kind: NoteStatChanged, Stat: st, Value: v})
	if v <= DepletionEpsilon {
		l.bus.Publish(Notification{Kind: NoteStatFinished, Stat: st, Value: v})
	}
	return v
}

// PreviewImpacts announces every stat the card could move, whichever way it is swiped.
func (l *StatLedger) PreviewImpacts(card *Card) {
	if card == nil {
		return
	}
	for _, st := range AllStats {
		left, right := card.LeftImpact.Get(st), card.RightImpact.Get(st)
		if left == 0 && right == 0 {
			continue
		}
		l.bus.Publish(Notification{Kind: NoteStatAffected, Stat: st, Left: left, Right: right})
	}
}

func (l *StatLedger) CancelPreview() {
	l.bus.Publish(Notification{Kind: NotePreviewCleared})
}

// Reset restores the ledger from snap. Out-of-range stats are clamped; a zero version snapshot
// is treated as "no save" and replaced by defaults.
func (l *StatLedger) Reset(snap StatSnapshot) {
	if snap.Version == 0 {
		snap = DefaultSnapshot()
	}
	l.load(snap)
	for _, st := range AllStats {
		l.bus.Publish(Notification{Kind: NoteStatChanged, Stat: st, Value: l.stats.Get(st)})
	}
	l.bus.Publish(Notification{Kind: NoteAgeChanged, Value: l.age})
}

func (l *StatLedger) load(snap StatSnapshot) {
	l.stats = Stats{
		Heart:       Clamp01(snap.Heart),
		Career:      Clamp01(snap.Career),
		Happiness:   Clamp01(snap.Happiness),
		Sociability: Clamp01(snap.Sociability),
	}
	l.age = snap.Age
}
