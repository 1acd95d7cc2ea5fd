package session

import (
	"github.com/griotlabs/griot/internal/scenario"
	"github.com/griotlabs/griot/internal/tutor"
)

// Status is the lifecycle state of a scored session.
type Status string

const (
	// StatusActive accepts turns and decay ticks.
	StatusActive Status = "active"

	// StatusWon is terminal: the learner reached the negotiation target.
	StatusWon Status = "won"

	// StatusLost is terminal: patience ran out.
	StatusLost Status = "lost"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusWon || s == StatusLost
}

// Scoring constants. Patience lives in [0, 100]; negative tutor reactions
// cost three times more than positive ones heal, and idling drains patience
// faster than actively recording.
const (
	initialPatience = 100.0

	negativeSentimentWeight = 15.0
	positiveSentimentWeight = 5.0

	culturalPenalty = 25.0

	idleDrain      = 0.5
	recordingDrain = 0.2
)

// ScoreState is the scoring engine's view of a session, snapshotted for
// callers. All fields are derived; none are persisted.
type ScoreState struct {
	// Patience is the counterpart's remaining tolerance in [0, 100].
	Patience float64

	// CurrentPrice is the running negotiated price, nil outside haggling
	// scenarios.
	CurrentPrice *int

	// LastSentiment is the most recent sentiment score, nil before the
	// first scored turn.
	LastSentiment *float64

	// Status is the session lifecycle state.
	Status Status

	// Stars is the final rating, set exactly once on entering StatusWon.
	// Zero until then.
	Stars int
}

// ScoringEngine derives a [ScoreState] from two input streams: discrete turn
// results and a periodic decay tick.
//
// ScoringEngine is not safe for concurrent use; the session controller owns
// it and serialises access.
type ScoringEngine struct {
	state       ScoreState
	targetPrice *int
}

// NewScoringEngine creates an engine in the active state with full patience.
// For haggling scenarios the current price starts at the trader's opening ask
// and the win threshold comes from the scenario's target price.
func NewScoringEngine(haggle *scenario.HaggleSettings) *ScoringEngine {
	e := &ScoringEngine{
		state: ScoreState{
			Patience: initialPatience,
			Status:   StatusActive,
		},
	}
	if haggle != nil {
		start := haggle.StartPrice
		target := haggle.TargetPrice
		e.state.CurrentPrice = &start
		e.targetPrice = &target
	}
	return e
}

// Apply folds one accepted turn result into the state. The three signals of
// a turn are independent and cumulative, applied in a fixed order: sentiment,
// then price with its win check, then the cultural penalty. Terminal states
// ignore the call entirely.
func (e *ScoringEngine) Apply(t *tutor.TurnResult) {
	if e.state.Status.Terminal() {
		return
	}

	if t.SentimentScore != nil {
		s := *t.SentimentScore
		weight := positiveSentimentWeight
		if s < 0 {
			weight = negativeSentimentWeight
		}
		e.state.Patience = clamp(e.state.Patience+s*weight, 0, 100)
		last := s
		e.state.LastSentiment = &last
	}

	if t.NegotiatedPrice != nil {
		price := *t.NegotiatedPrice
		e.state.CurrentPrice = &price
		// The win check runs only on the turn that delivers the price; there
		// is no retroactive re-check.
		if e.targetPrice != nil && price <= *e.targetPrice {
			e.win()
		}
	}

	if t.CulturalFlag {
		e.state.Patience = clamp(e.state.Patience-culturalPenalty, 0, 100)
	}
}

// Tick applies one decay step. Active engagement halves the drain: pass
// recording=true while the learner holds the record button. Reaching zero
// patience loses the session; terminal states ignore the tick.
func (e *ScoringEngine) Tick(recording bool) {
	if e.state.Status.Terminal() {
		return
	}

	drain := idleDrain
	if recording {
		drain = recordingDrain
	}
	e.state.Patience = e.state.Patience - drain
	if e.state.Patience <= 0 {
		e.state.Patience = 0
		e.state.Status = StatusLost
	}
}

// win transitions to StatusWon and computes the star rating from the patience
// at this instant. It runs at most once per session.
func (e *ScoringEngine) win() {
	e.state.Status = StatusWon
	e.state.Stars = starsFor(e.state.Patience)
}

// starsFor maps final patience to a 1-3 star rating.
func starsFor(patience float64) int {
	switch {
	case patience > 80:
		return 3
	case patience > 50:
		return 2
	default:
		return 1
	}
}

// State returns a copy of the current score state. Pointer fields are
// duplicated so callers cannot mutate engine internals.
func (e *ScoringEngine) State() ScoreState {
	st := e.state
	if st.CurrentPrice != nil {
		p := *st.CurrentPrice
		st.CurrentPrice = &p
	}
	if st.LastSentiment != nil {
		s := *st.LastSentiment
		st.LastSentiment = &s
	}
	return st
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
