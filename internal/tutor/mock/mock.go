// Package mock provides a test double for the tutor.Client interface.
//
// Use Client in session controller tests to feed scripted turn results and
// to inject transport failures without a running server.
package mock

import (
	"context"
	"sync"

	"github.com/griotlabs/griot/internal/tutor"
)

// SubmitCall records a single invocation of SubmitTurn.
type SubmitCall struct {
	// Ctx is the context passed to SubmitTurn.
	Ctx context.Context
	// ConversationID is the conversation the turn was submitted to.
	ConversationID string
	// Audio is the audio payload.
	Audio []byte
	// MIMEType is the audio encoding.
	MIMEType string
}

// Client is a mock implementation of tutor.Client.
// Zero values for response fields cause methods to return zero values and
// nil errors. Set Err fields to inject errors.
type Client struct {
	mu sync.Mutex

	// SubmitResult is returned by SubmitTurn. May be nil.
	SubmitResult *tutor.TurnResult

	// SubmitErr, if non-nil, is returned as the error from SubmitTurn.
	SubmitErr error

	// SubmitFunc, if non-nil, is called instead of returning the static
	// SubmitResult. Useful for per-call behavior in table tests.
	SubmitFunc func(ctx context.Context, conversationID string, audio []byte, mimeType string) (*tutor.TurnResult, error)

	// TurnsResult is returned by Turns.
	TurnsResult []tutor.TurnResult

	// TurnsErr, if non-nil, is returned as the error from Turns.
	TurnsErr error

	// FinishResult is returned by FinishScenario. May be nil.
	FinishResult *tutor.FinishResult

	// FinishErr, if non-nil, is returned as the error from FinishScenario.
	FinishErr error

	// SubmitCalls records every invocation of SubmitTurn in order.
	SubmitCalls []SubmitCall

	// FinishCalls records the scenario IDs and stars passed to FinishScenario.
	FinishCalls []struct {
		ScenarioID string
		Stars      int
	}
}

// SubmitTurn records the call and returns SubmitResult, SubmitErr. If
// SubmitFunc is set it takes precedence.
func (c *Client) SubmitTurn(ctx context.Context, conversationID string, audio []byte, mimeType string) (*tutor.TurnResult, error) {
	c.mu.Lock()
	c.SubmitCalls = append(c.SubmitCalls, SubmitCall{
		Ctx:            ctx,
		ConversationID: conversationID,
		Audio:          audio,
		MIMEType:       mimeType,
	})
	fn := c.SubmitFunc
	res, err := c.SubmitResult, c.SubmitErr
	c.mu.Unlock()
	if fn != nil {
		return fn(ctx, conversationID, audio, mimeType)
	}
	return res, err
}

// Turns returns TurnsResult, TurnsErr.
func (c *Client) Turns(_ context.Context, _ string) ([]tutor.TurnResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.TurnsResult, c.TurnsErr
}

// FinishScenario records the call and returns FinishResult, FinishErr.
func (c *Client) FinishScenario(_ context.Context, scenarioID string, stars int) (*tutor.FinishResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.FinishCalls = append(c.FinishCalls, struct {
		ScenarioID string
		Stars      int
	}{scenarioID, stars})
	return c.FinishResult, c.FinishErr
}

// Reset clears all recorded calls. Thread-safe.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SubmitCalls = nil
	c.FinishCalls = nil
}

// Ensure Client implements tutor.Client at compile time.
var _ tutor.Client = (*Client)(nil)
