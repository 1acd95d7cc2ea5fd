// Package store defines the persistence contracts for griot: user accounts,
// conversations with their turn history, and per-learner progress (scenario
// stars, the proverb deck and the vocabulary notebook).
//
// Two implementations exist: [github.com/griotlabs/griot/internal/store/memstore]
// for tests and single-node development, and
// [github.com/griotlabs/griot/internal/store/postgres] for production.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/griotlabs/griot/internal/tutor"
)

// ErrNotFound is returned when a lookup targets a record that does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrConflict is returned when a unique constraint would be violated, e.g.
// registering a username that is already taken.
var ErrConflict = errors.New("store: conflict")

// User is a registered learner account. PasswordHash is a bcrypt hash and is
// never serialized to API responses.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Conversation is one playthrough of a scenario by one learner.
type Conversation struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ScenarioID string    `json:"scenario_id"`
	Language   string    `json:"language"`
	CreatedAt  time.Time `json:"created_at"`
}

// StoredTurn is a persisted turn within a conversation. Resubmitting a turn
// number overwrites the previous record for that number.
type StoredTurn struct {
	ConversationID string `json:"conversation_id"`
	tutor.TurnResult
}

// ScenarioProgress records the best result a learner has achieved on a
// scenario. Stars only ever goes up.
type ScenarioProgress struct {
	ScenarioID  string    `json:"scenario_id"`
	Stars       int       `json:"stars"`
	Completions int       `json:"completions"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// VocabularyWord is an entry in the learner's notebook: a key term they have
// been heard using, with how often and how it last sounded.
type VocabularyWord struct {
	Language  string    `json:"language"`
	Term      string    `json:"term"`
	Heard     string    `json:"heard"`
	TimesUsed int       `json:"times_used"`
	FirstUsed time.Time `json:"first_used"`
	LastUsed  time.Time `json:"last_used"`
}

// UserStore manages learner accounts.
type UserStore interface {
	// CreateUser registers a new account. It returns ErrConflict when the
	// username is already taken.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// UserByName looks an account up by username. Returns ErrNotFound when
	// no such account exists.
	UserByName(ctx context.Context, username string) (*User, error)

	// UserByID looks an account up by ID. Returns ErrNotFound when no such
	// account exists.
	UserByID(ctx context.Context, id string) (*User, error)
}

// ConversationStore manages conversations and their turn logs.
type ConversationStore interface {
	// CreateConversation opens a new conversation for userID on scenarioID.
	CreateConversation(ctx context.Context, userID, scenarioID, language string) (*Conversation, error)

	// Conversation fetches a conversation by ID. Returns ErrNotFound when it
	// does not exist.
	Conversation(ctx context.Context, id string) (*Conversation, error)

	// Conversations returns all conversations of a learner, newest first.
	Conversations(ctx context.Context, userID string) ([]Conversation, error)

	// UpsertTurn stores a turn, replacing any earlier record with the same
	// conversation ID and turn number.
	UpsertTurn(ctx context.Context, turn StoredTurn) error

	// Turns returns all turns of a conversation ordered by turn number.
	Turns(ctx context.Context, conversationID string) ([]StoredTurn, error)
}

// ProgressStore manages scenario results, the proverb deck and the
// vocabulary notebook.
type ProgressStore interface {
	// RecordScenarioResult records a finished scenario run. The stored star
	// count is the maximum over all runs; the completion counter always
	// increments.
	RecordScenarioResult(ctx context.Context, userID, scenarioID string, stars int) (*ScenarioProgress, error)

	// Progress returns the learner's per-scenario progress.
	Progress(ctx context.Context, userID string) ([]ScenarioProgress, error)

	// GrantProverb adds a proverb to the learner's deck. Granting an already
	// owned proverb is a no-op.
	GrantProverb(ctx context.Context, userID, proverbID string) error

	// OwnedProverbs returns the IDs of all proverbs in the learner's deck.
	OwnedProverbs(ctx context.Context, userID string) ([]string, error)

	// RecordVocabulary notes that the learner used term, as heard in their
	// speech. Repeat uses increment the counter and refresh Heard.
	RecordVocabulary(ctx context.Context, userID, language, term, heard string) error

	// Vocabulary returns the learner's notebook ordered by last use,
	// most recent first.
	Vocabulary(ctx context.Context, userID string) ([]VocabularyWord, error)

	// RemoveVocabulary deletes a notebook entry. Returns ErrNotFound when the
	// learner has no such entry.
	RemoveVocabulary(ctx context.Context, userID, language, term string) error
}

// Store bundles all persistence concerns behind one handle.
type Store interface {
	UserStore
	ConversationStore
	ProgressStore

	// Close releases underlying resources. The store must not be used
	// afterwards.
	Close()
}
