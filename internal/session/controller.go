package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/griotlabs/griot/internal/scenario"
	"github.com/griotlabs/griot/internal/tutor"
)

// Submission errors. All are rejected locally before any network call.
var (
	// ErrNotActive is returned by Submit when the session is not running or
	// has reached a terminal state.
	ErrNotActive = errors.New("session: not active")

	// ErrInFlight is returned by Submit while an earlier submission is still
	// outstanding. At most one submission may be in flight per session.
	ErrInFlight = errors.New("session: a submission is already in flight")

	// ErrStaleResponse is returned when a tutor response arrives after the
	// session was reset. The response is discarded without side effects.
	ErrStaleResponse = errors.New("session: response arrived after session reset")
)

// EventKind discriminates controller events.
type EventKind string

const (
	// EventPlayAudio asks the presentation layer to play the tutor's reply.
	EventPlayAudio EventKind = "play_audio"

	// EventScore reports a score state change (turn applied or decay tick).
	EventScore EventKind = "score"

	// EventStatus reports a transition into a terminal state.
	EventStatus EventKind = "status"
)

// Event is a discrete notification from the controller to its presentation
// adapter. The controller itself never touches playback.
type Event struct {
	Kind EventKind

	// AudioURL is set for EventPlayAudio.
	AudioURL string

	// State is the score state at the time of the event.
	State ScoreState
}

// Option is a functional option for configuring a Controller.
type Option func(*Controller)

// WithTickInterval sets the decay tick period. Default: 1s.
func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.tickInterval = d
	}
}

// WithEventBuffer sets the event channel capacity. Default: 32.
func WithEventBuffer(n int) Option {
	return func(c *Controller) {
		c.eventBuf = n
	}
}

// Controller orchestrates one voice conversation: it owns the turn store and
// scoring engine, runs the decay ticker, and drives the remote tutor
// exchange. All state it owns is mutated only under its lock; no other
// component touches the store or engine directly.
type Controller struct {
	client       tutor.Client
	tickInterval time.Duration
	eventBuf     int

	mu             sync.Mutex
	store          *TurnStore
	engine         *ScoringEngine
	conversationID string
	scn            *scenario.Scenario
	epoch          int // bumped on every Start; stale-response guard
	inFlight       bool
	recording      bool
	cancelTick     context.CancelFunc
	events         chan Event
}

// NewController creates a Controller that exchanges turns through client.
// Call Start before submitting.
func NewController(client tutor.Client, opts ...Option) *Controller {
	c := &Controller{
		client:       client,
		tickInterval: time.Second,
		eventBuf:     32,
		store:        NewTurnStore(),
	}
	for _, o := range opts {
		o(c)
	}
	c.events = make(chan Event, c.eventBuf)
	return c
}

// Events returns the channel the controller emits notifications on. Slow
// consumers lose events rather than blocking the session.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Start begins a fresh session for the conversation, resetting the turn
// store and scoring engine. A session already running is torn down first;
// any in-flight submission for it will be discarded on arrival.
func (c *Controller) Start(conversationID string, scn *scenario.Scenario) {
	c.mu.Lock()

	if c.cancelTick != nil {
		c.cancelTick()
	}

	c.conversationID = conversationID
	c.scn = scn
	c.epoch++
	c.inFlight = false
	c.recording = false
	c.store.Reset()

	var haggle *scenario.HaggleSettings
	if scn != nil {
		haggle = scn.Haggle
	}
	c.engine = NewScoringEngine(haggle)

	tickCtx, cancel := context.WithCancel(context.Background())
	c.cancelTick = cancel
	epoch := c.epoch
	c.mu.Unlock()

	go c.tickLoop(tickCtx, epoch)

	slog.Info("session started",
		"conversation_id", conversationID,
		"scenario", scenarioID(scn))
}

// Stop tears the session down, cancelling the decay ticker. Idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelTick != nil {
		c.cancelTick()
		c.cancelTick = nil
	}
	c.epoch++
	c.inFlight = false
	c.conversationID = ""
}

// SetRecording tells the scoring engine whether the learner is currently
// holding the record button; active engagement halves the patience drain.
func (c *Controller) SetRecording(recording bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recording = recording
}

// Submit performs one full turn cycle: ship the recorded audio to the tutor,
// store the resulting turn, fold it into the score, and emit a play-audio
// event for the reply.
//
// Submit rejects locally (before any network call) when the session is not
// active or another submission is outstanding. A transport failure leaves the
// turn store and scoring engine untouched. A response that arrives after the
// session was reset is discarded and reported as [ErrStaleResponse].
func (c *Controller) Submit(ctx context.Context, audio []byte, mimeType string) (*tutor.TurnResult, error) {
	c.mu.Lock()
	if c.conversationID == "" || c.engine == nil || c.engine.State().Status != StatusActive {
		c.mu.Unlock()
		return nil, ErrNotActive
	}
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrInFlight
	}
	c.inFlight = true
	epoch := c.epoch
	conversationID := c.conversationID
	c.mu.Unlock()

	result, err := c.client.SubmitTurn(ctx, conversationID, audio, mimeType)

	c.mu.Lock()
	defer c.mu.Unlock()

	// An in-flight marker only belongs to the session that set it.
	if c.epoch == epoch {
		c.inFlight = false
	}

	if err != nil {
		return nil, err
	}
	if c.epoch != epoch {
		slog.Debug("discarding stale tutor response",
			"conversation_id", conversationID,
			"turn", result.TurnNumber)
		return nil, ErrStaleResponse
	}

	c.store.AppendOrReplace(*result)
	c.engine.Apply(result)
	state := c.engine.State()

	if result.TutorAudioURL != "" {
		c.emit(Event{Kind: EventPlayAudio, AudioURL: result.TutorAudioURL, State: state})
	}
	c.emit(Event{Kind: EventScore, State: state})
	if state.Status.Terminal() {
		c.emit(Event{Kind: EventStatus, State: state})
	}

	return result, nil
}

// Restore rehydrates the turn transcript from server-held history. Scoring
// state is intentionally not replayed: a reloaded session starts with fresh
// patience, matching Start semantics.
func (c *Controller) Restore(ctx context.Context, conversationID string, scn *scenario.Scenario) error {
	turns, err := c.client.Turns(ctx, conversationID)
	if err != nil {
		return err
	}

	c.Start(conversationID, scn)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range turns {
		c.store.AppendOrReplace(t)
	}
	return nil
}

// Finish reports a won session's star rating to the tutor service and
// returns any collectible reward. It is a no-op with a nil result when the
// session has not been won.
func (c *Controller) Finish(ctx context.Context) (*tutor.FinishResult, error) {
	c.mu.Lock()
	if c.engine == nil || c.engine.State().Status != StatusWon || c.scn == nil {
		c.mu.Unlock()
		return nil, nil
	}
	scenarioID := c.scn.ID
	stars := c.engine.State().Stars
	c.mu.Unlock()

	return c.client.FinishScenario(ctx, scenarioID, stars)
}

// State returns the current score state. Before Start it reports an inactive
// zero state.
func (c *Controller) State() ScoreState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine == nil {
		return ScoreState{}
	}
	return c.engine.State()
}

// Turns returns a snapshot of the transcript in store order.
func (c *Controller) Turns() []tutor.TurnResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.All()
}

// tickLoop drives the decay ticker for one session epoch. It exits when the
// session is reset, stopped, or reaches a terminal state.
func (c *Controller) tickLoop(ctx context.Context, epoch int) {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if c.epoch != epoch {
			c.mu.Unlock()
			return
		}
		before := c.engine.State().Status
		if before.Terminal() {
			c.mu.Unlock()
			return
		}
		c.engine.Tick(c.recording)
		state := c.engine.State()
		c.mu.Unlock()

		c.emit(Event{Kind: EventScore, State: state})
		if before == StatusActive && state.Status.Terminal() {
			c.emit(Event{Kind: EventStatus, State: state})
			return
		}
	}
}

// emit delivers an event without blocking; if the consumer is behind, the
// event is dropped.
func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}

func scenarioID(scn *scenario.Scenario) string {
	if scn == nil {
		return ""
	}
	return scn.ID
}
