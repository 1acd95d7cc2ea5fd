// Package memstore is an in-memory [store.Store] for tests and single-node
// development runs. All data is lost on process exit.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/griotlabs/griot/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store holds everything in maps guarded by a single mutex. Safe for
// concurrent use.
type Store struct {
	mu sync.Mutex

	usersByID   map[string]*store.User
	usersByName map[string]string // username -> id

	conversations map[string]*store.Conversation
	turns         map[string][]store.StoredTurn // conversation id -> turns by number

	progress map[string]map[string]*store.ScenarioProgress // user id -> scenario id
	deck     map[string]map[string]bool                    // user id -> proverb id
	vocab    map[string]map[string]*store.VocabularyWord   // user id -> lang\x00term

	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		usersByID:     make(map[string]*store.User),
		usersByName:   make(map[string]string),
		conversations: make(map[string]*store.Conversation),
		turns:         make(map[string][]store.StoredTurn),
		progress:      make(map[string]map[string]*store.ScenarioProgress),
		deck:          make(map[string]map[string]bool),
		vocab:         make(map[string]map[string]*store.VocabularyWord),
		now:           time.Now,
	}
}

// CreateUser implements [store.UserStore].
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usersByName[username]; taken {
		return nil, store.ErrConflict
	}
	u := &store.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}
	s.usersByID[u.ID] = u
	s.usersByName[username] = u.ID
	cp := *u
	return &cp, nil
}

// UserByName implements [store.UserStore].
func (s *Store) UserByName(ctx context.Context, username string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.usersByName[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s.usersByID[id]
	return &cp, nil
}

// UserByID implements [store.UserStore].
func (s *Store) UserByID(ctx context.Context, id string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.usersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// CreateConversation implements [store.ConversationStore].
func (s *Store) CreateConversation(ctx context.Context, userID, scenarioID, language string) (*store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &store.Conversation{
		ID:         uuid.NewString(),
		UserID:     userID,
		ScenarioID: scenarioID,
		Language:   language,
		CreatedAt:  s.now(),
	}
	s.conversations[c.ID] = c
	cp := *c
	return &cp, nil
}

// Conversation implements [store.ConversationStore].
func (s *Store) Conversation(ctx context.Context, id string) (*store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// Conversations implements [store.ConversationStore].
func (s *Store) Conversations(ctx context.Context, userID string) ([]store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.Conversation, 0)
	for _, c := range s.conversations {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpsertTurn implements [store.ConversationStore]. A turn with a number that
// was already stored replaces the old record in place.
func (s *Store) UpsertTurn(ctx context.Context, turn store.StoredTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[turn.ConversationID]; !ok {
		return store.ErrNotFound
	}
	turns := s.turns[turn.ConversationID]
	for i := range turns {
		if turns[i].TurnNumber == turn.TurnNumber {
			turns[i] = turn
			return nil
		}
	}
	s.turns[turn.ConversationID] = append(turns, turn)
	return nil
}

// Turns implements [store.ConversationStore].
func (s *Store) Turns(ctx context.Context, conversationID string) ([]store.StoredTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, store.ErrNotFound
	}
	out := make([]store.StoredTurn, len(s.turns[conversationID]))
	copy(out, s.turns[conversationID])
	sort.Slice(out, func(i, j int) bool { return out[i].TurnNumber < out[j].TurnNumber })
	return out, nil
}

// RecordScenarioResult implements [store.ProgressStore].
func (s *Store) RecordScenarioResult(ctx context.Context, userID, scenarioID string, stars int) (*store.ScenarioProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byScenario := s.progress[userID]
	if byScenario == nil {
		byScenario = make(map[string]*store.ScenarioProgress)
		s.progress[userID] = byScenario
	}
	p, ok := byScenario[scenarioID]
	if !ok {
		p = &store.ScenarioProgress{ScenarioID: scenarioID}
		byScenario[scenarioID] = p
	}
	if stars > p.Stars {
		p.Stars = stars
	}
	p.Completions++
	p.UpdatedAt = s.now()
	cp := *p
	return &cp, nil
}

// Progress implements [store.ProgressStore].
func (s *Store) Progress(ctx context.Context, userID string) ([]store.ScenarioProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.ScenarioProgress, 0, len(s.progress[userID]))
	for _, p := range s.progress[userID] {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScenarioID < out[j].ScenarioID })
	return out, nil
}

// GrantProverb implements [store.ProgressStore].
func (s *Store) GrantProverb(ctx context.Context, userID, proverbID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deck[userID] == nil {
		s.deck[userID] = make(map[string]bool)
	}
	s.deck[userID][proverbID] = true
	return nil
}

// OwnedProverbs implements [store.ProgressStore].
func (s *Store) OwnedProverbs(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.deck[userID]))
	for id := range s.deck[userID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// RecordVocabulary implements [store.ProgressStore].
func (s *Store) RecordVocabulary(ctx context.Context, userID, language, term, heard string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vocab[userID] == nil {
		s.vocab[userID] = make(map[string]*store.VocabularyWord)
	}
	key := language + "\x00" + term
	w, ok := s.vocab[userID][key]
	if !ok {
		w = &store.VocabularyWord{
			Language:  language,
			Term:      term,
			FirstUsed: s.now(),
		}
		s.vocab[userID][key] = w
	}
	w.Heard = heard
	w.TimesUsed++
	w.LastUsed = s.now()
	return nil
}

// Vocabulary implements [store.ProgressStore].
func (s *Store) Vocabulary(ctx context.Context, userID string) ([]store.VocabularyWord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.VocabularyWord, 0, len(s.vocab[userID]))
	for _, w := range s.vocab[userID] {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUsed.Equal(out[j].LastUsed) {
			return out[i].LastUsed.After(out[j].LastUsed)
		}
		return out[i].Term < out[j].Term
	})
	return out, nil
}

// RemoveVocabulary implements [store.ProgressStore].
func (s *Store) RemoveVocabulary(ctx context.Context, userID, language, term string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := language + "\x00" + term
	if _, ok := s.vocab[userID][key]; !ok {
		return store.ErrNotFound
	}
	delete(s.vocab[userID], key)
	return nil
}

// Close implements [store.Store]. It is a no-op for the in-memory store.
func (s *Store) Close() {}
