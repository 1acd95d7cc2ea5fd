package server

import (
	"context"
	"fmt"

	"github.com/griotlabs/griot/internal/store"
	"github.com/griotlabs/griot/internal/tutor"
)

var _ tutor.Client = (*pipelineClient)(nil)

// pipelineClient adapts the in-process [Pipeline] to the [tutor.Client]
// contract so the live gateway can host a session controller without going
// through HTTP. It is bound to one authenticated user and refuses
// conversations the user does not own.
type pipelineClient struct {
	pipeline *Pipeline
	userID   string
}

// SubmitTurn implements [tutor.Client].
func (c *pipelineClient) SubmitTurn(ctx context.Context, conversationID string, audio []byte, mimeType string) (*tutor.TurnResult, error) {
	conv, err := c.ownedConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return c.pipeline.ProcessTurn(ctx, conv, TurnInput{Audio: audio, MIMEType: mimeType})
}

// Turns implements [tutor.Client].
func (c *pipelineClient) Turns(ctx context.Context, conversationID string) ([]tutor.TurnResult, error) {
	if _, err := c.ownedConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	stored, err := c.pipeline.Store.Turns(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	turns := make([]tutor.TurnResult, len(stored))
	for i, t := range stored {
		turns[i] = t.TurnResult
	}
	return turns, nil
}

// FinishScenario implements [tutor.Client].
func (c *pipelineClient) FinishScenario(ctx context.Context, scenarioID string, stars int) (*tutor.FinishResult, error) {
	return c.pipeline.FinishScenario(ctx, c.userID, scenarioID, stars)
}

func (c *pipelineClient) ownedConversation(ctx context.Context, conversationID string) (*store.Conversation, error) {
	conv, err := c.pipeline.Store.Conversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != c.userID {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, store.ErrNotFound)
	}
	return conv, nil
}
