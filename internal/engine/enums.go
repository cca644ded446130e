package engine

// String backed enums so catalog files, CSV exports and the database share one spelling.

type Stat string
type Direction string
type LifeStage string
type GameOverCause string
type RunState string
type FeedMode string

const (
	StatHeart       Stat = "heart"
	StatCareer      Stat = "career"
	StatHappiness   Stat = "happiness"
	StatSociability Stat = "sociability"
)

// AllStats is also the depletion check order.
var AllStats = []Stat{StatHeart, StatCareer, StatHappiness, StatSociability}

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

var AllDirections = []Direction{DirectionLeft, DirectionRight}

const (
	LifeStageChildhood  LifeStage = "childhood"
	LifeStageTeenager   LifeStage = "teenager"
	LifeStageYoungAdult LifeStage = "young_adult"
	LifeStageAdult      LifeStage = "adult"
	LifeStageSenior     LifeStage = "senior"
	LifeStageAny        LifeStage = "any"
)

var AllLifeStages = []LifeStage{LifeStageChildhood, LifeStageTeenager, LifeStageYoungAdult, LifeStageAdult, LifeStageSenior, LifeStageAny}

const (
	CauseHeart       GameOverCause = "heart"
	CauseCareer      GameOverCause = "career"
	CauseHappiness   GameOverCause = "happiness"
	CauseSociability GameOverCause = "sociability"
)

var AllCauses = []GameOverCause{CauseHeart, CauseCareer, CauseHappiness, CauseSociability}

const (
	RunActive   RunState = "active"
	RunGameOver RunState = "game_over"
)

const (
	FeedShuffle FeedMode = "shuffle"
	FeedLoop    FeedMode = "loop"
	FeedOnce    FeedMode = "once"
)

var AllFeedModes = []FeedMode{FeedShuffle, FeedLoop, FeedOnce}

// Generic helpers
func contains[T ~string](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func (s Stat) Validate() bool          { return contains(AllStats, s) }
func (d Direction) Validate() bool     { return contains(AllDirections, d) }
func (l LifeStage) Validate() bool     { return contains(AllLifeStages, l) }
func (c GameOverCause) Validate() bool { return contains(AllCauses, c) }
func (f FeedMode) Validate() bool      { return contains(AllFeedModes, f) }

// Cause maps a depleted stat to the game over cause it triggers.
func (s Stat) Cause() GameOverCause { return GameOverCause(s) }
