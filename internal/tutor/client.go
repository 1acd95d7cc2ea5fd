package tutor

import "context"

// Client is the remote tutor service contract the session controller runs
// against.
//
// SubmitTurn is fallible and latent (a network round trip plus speech and
// language model calls); callers must pass a context with a deadline and must
// treat a [TransportError] differently from a partial success: a TurnResult
// with AudioError set is still a usable turn.
type Client interface {
	// SubmitTurn exchanges a recorded learner utterance for the tutor's
	// structured reply.
	SubmitTurn(ctx context.Context, conversationID string, audio []byte, mimeType string) (*TurnResult, error)

	// Turns returns the ordered past turns of a conversation, for restoring
	// the transcript after a reload.
	Turns(ctx context.Context, conversationID string) ([]TurnResult, error)

	// FinishScenario records a completed scenario run with its star rating
	// and returns any collectible reward granted.
	FinishScenario(ctx context.Context, scenarioID string, stars int) (*FinishResult, error)
}
