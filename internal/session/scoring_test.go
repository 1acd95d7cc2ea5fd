package session

import (
	"testing"

	"github.com/griotlabs/griot/internal/scenario"
	"github.com/griotlabs/griot/internal/tutor"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func TestScoring_InitialState(t *testing.T) {
	t.Parallel()
	e := NewScoringEngine(nil)
	st := e.State()
	if st.Patience != 100 {
		t.Errorf("patience = %v, want 100", st.Patience)
	}
	if st.Status != StatusActive {
		t.Errorf("status = %v, want active", st.Status)
	}
	if st.CurrentPrice != nil {
		t.Errorf("current price = %v, want nil without haggle settings", *st.CurrentPrice)
	}
}

func TestScoring_HaggleInitialPrice(t *testing.T) {
	t.Parallel()
	e := NewScoringEngine(&scenario.HaggleSettings{StartPrice: 5000, TargetPrice: 3000, ReservePrice: 2500})
	st := e.State()
	if st.CurrentPrice == nil || *st.CurrentPrice != 5000 {
		t.Fatalf("current price = %v, want 5000", st.CurrentPrice)
	}
}

func TestScoring_SentimentImpact(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		sentiment    float64
		wantPatience float64
	}{
		{"full negative costs 15", -1.0, 85},
		{"full positive heals 5 but caps at 100", 1.0, 100},
		{"half negative costs 7.5", -0.5, 92.5},
		{"half positive capped", 0.5, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := NewScoringEngine(nil)
			e.Apply(&tutor.TurnResult{TurnNumber: 1, SentimentScore: fptr(tt.sentiment)})
			if got := e.State().Patience; got != tt.wantPatience {
				t.Errorf("patience = %v, want %v", got, tt.wantPatience)
			}
		})
	}
}

func TestScoring_CulturalPenalty(t *testing.T) {
	t.Parallel()
	e := NewScoringEngine(nil)
	e.Apply(&tutor.TurnResult{TurnNumber: 1, CulturalFlag: true})
	if got := e.State().Patience; got != 75 {
		t.Errorf("patience = %v, want 75 after flat -25 penalty", got)
	}
}

func TestScoring_SentimentAndCulturalCumulative(t *testing.T) {
	t.Parallel()
	e := NewScoringEngine(nil)
	e.Apply(&tutor.TurnResult{
		TurnNumber:     1,
		SentimentScore: fptr(-1.0),
		CulturalFlag:   true,
	})
	// -15 sentiment then -25 cultural, applied independently.
	if got := e.State().Patience; got != 60 {
		t.Errorf("patience = %v, want 60", got)
	}
}

func TestScoring_PatienceClamped(t *testing.T) {
	t.Parallel()
	e := NewScoringEngine(nil)
	for i := 1; i <= 10; i++ {
		e.Apply(&tutor.TurnResult{TurnNumber: i, SentimentScore: fptr(-1.0), CulturalFlag: true})
	}
	st := e.State()
	if st.Patience != 0 {
		t.Errorf("patience = %v, want clamped to 0", st.Patience)
	}

	// Patience at zero from turn penalties does not end the session; only
	// the decay tick performs the loss transition.
	if st.Status != StatusActive {
		t.Errorf("status = %v, want active", st.Status)
	}

	e2 := NewScoringEngine(nil)
	for i := 1; i <= 10; i++ {
		e2.Apply(&tutor.TurnResult{TurnNumber: i, SentimentScore: fptr(1.0)})
	}
	if got := e2.State().Patience; got != 100 {
		t.Errorf("patience = %v, want clamped to 100", got)
	}
}

func TestScoring_WinOnTargetPrice(t *testing.T) {
	t.Parallel()
	e := NewScoringEngine(&scenario.HaggleSettings{StartPrice: 5000, TargetPrice: 3000})

	e.Apply(&tutor.TurnResult{TurnNumber: 1, NegotiatedPrice: iptr(4000)})
	if st := e.State(); st.Status != StatusActive {
		t.Fatalf("status = %v after price above target, want active", st.Status)
	}

	e.Apply(&tutor.TurnResult{TurnNumber: 2, NegotiatedPrice: iptr(3000)})
	st := e.State()
	if st.Status != StatusWon {
		t.Fatalf("status = %v, want won at target price", st.Status)
	}
	if st.Stars != 3 {
		t.Errorf("stars = %d, want 3 at patience %v", st.Stars, st.Patience)
	}
	if *st.CurrentPrice != 3000 {
		t.Errorf("current price = %d, want 3000", *st.CurrentPrice)
	}
}

func TestScoring_StarsFromPatienceAtWinInstant(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		drainTo   float64
		wantStars int
	}{
		{"patience above 80 gives 3 stars", 90, 3},
		{"patience above 50 gives 2 stars", 60, 2},
		{"patience at 50 or below gives 1 star", 40, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := NewScoringEngine(&scenario.HaggleSettings{StartPrice: 5000, TargetPrice: 3000})
			for e.State().Patience > tt.drainTo {
				e.Tick(false)
			}
			e.Apply(&tutor.TurnResult{TurnNumber: 1, NegotiatedPrice: iptr(2900)})
			if got := e.State().Stars; got != tt.wantStars {
				t.Errorf("stars = %d at patience %v, want %d", got, e.State().Patience, tt.wantStars)
			}
		})
	}
}

func TestScoring_NoWinWithoutTarget(t *testing.T) {
	t.Parallel()
	e := NewScoringEngine(nil)
	e.Apply(&tutor.TurnResult{TurnNumber: 1, NegotiatedPrice: iptr(10)})
	if st := e.State(); st.Status != StatusActive {
		t.Errorf("status = %v, want active without haggle settings", st.Status)
	}
}

func TestScoring_DecayToLoss(t *testing.T) {
	t.Parallel()
	e := NewScoringEngine(nil)

	// 200 ticks at 0.5 drain each take patience from 100 to exactly 0.
	transitions := 0
	for i := 0; i < 500; i++ {
		before := e.State().Status
		e.Tick(false)
		if before == StatusActive && e.State().Status == StatusLost {
			transitions++
		}
	}

	st := e.State()
	if st.Patience != 0 {
		t.Errorf("patience = %v, want exactly 0", st.Patience)
	}
	if st.Status != StatusLost {
		t.Errorf("status = %v, want lost", st.Status)
	}
	if transitions != 1 {
		t.Errorf("loss transition happened %d times, want exactly once", transitions)
	}
}

func TestScoring_RecordingHalvesDrain(t *testing.T) {
	t.Parallel()
	e := NewScoringEngine(nil)
	e.Tick(true)
	if got := e.State().Patience; got != 99.8 {
		t.Errorf("patience = %v after recording tick, want 99.8", got)
	}
	e.Tick(false)
	if got := e.State().Patience; got != 99.3 {
		t.Errorf("patience = %v after idle tick, want 99.3", got)
	}
}

func TestScoring_TerminalStateFrozen(t *testing.T) {
	t.Parallel()
	e := NewScoringEngine(&scenario.HaggleSettings{StartPrice: 5000, TargetPrice: 3000})
	e.Apply(&tutor.TurnResult{TurnNumber: 1, NegotiatedPrice: iptr(3000)})
	won := e.State()

	// Neither turns nor ticks move a terminal session.
	e.Apply(&tutor.TurnResult{TurnNumber: 2, SentimentScore: fptr(-1.0), CulturalFlag: true})
	for i := 0; i < 50; i++ {
		e.Tick(false)
	}

	st := e.State()
	if st.Status != won.Status || st.Patience != won.Patience || st.Stars != won.Stars {
		t.Errorf("terminal state changed: %+v -> %+v", won, st)
	}
}
