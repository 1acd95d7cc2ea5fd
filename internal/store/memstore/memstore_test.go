package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/griotlabs/griot/internal/store"
	"github.com/griotlabs/griot/internal/tutor"
)

func TestUserLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "adaeze", "hash1")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected a generated user ID")
	}

	if _, err := s.CreateUser(ctx, "adaeze", "hash2"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate username: got %v, want ErrConflict", err)
	}

	byName, err := s.UserByName(ctx, "adaeze")
	if err != nil {
		t.Fatalf("UserByName: %v", err)
	}
	if byName.ID != u.ID || byName.PasswordHash != "hash1" {
		t.Fatalf("UserByName returned %+v, want id %s", byName, u.ID)
	}

	if _, err := s.UserByID(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown ID: got %v, want ErrNotFound", err)
	}
}

func TestTurnUpsertReplacesByNumber(t *testing.T) {
	s := New()
	ctx := context.Background()

	c, err := s.CreateConversation(ctx, "user-1", "market-haggle", "yo")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	mk := func(n int, text string) store.StoredTurn {
		return store.StoredTurn{
			ConversationID: c.ID,
			TurnResult:     tutor.TurnResult{TurnNumber: n, Transcription: text},
		}
	}
	for _, turn := range []store.StoredTurn{mk(1, "bawo ni"), mk(2, "elo ni"), mk(1, "e kaaro")} {
		if err := s.UpsertTurn(ctx, turn); err != nil {
			t.Fatalf("UpsertTurn(%d): %v", turn.TurnNumber, err)
		}
	}

	turns, err := s.Turns(ctx, c.ID)
	if err != nil {
		t.Fatalf("Turns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0].Transcription != "e kaaro" {
		t.Errorf("turn 1 = %q, want replaced text", turns[0].Transcription)
	}
	if turns[1].Transcription != "elo ni" {
		t.Errorf("turn 2 = %q", turns[1].Transcription)
	}
}

func TestUpsertTurnUnknownConversation(t *testing.T) {
	s := New()
	turn := store.StoredTurn{ConversationID: "ghost", TurnResult: tutor.TurnResult{TurnNumber: 1}}
	if err := s.UpsertTurn(context.Background(), turn); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestScenarioResultKeepsBestStars(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.RecordScenarioResult(ctx, "user-1", "market-haggle", 3); err != nil {
		t.Fatalf("RecordScenarioResult: %v", err)
	}
	p, err := s.RecordScenarioResult(ctx, "user-1", "market-haggle", 1)
	if err != nil {
		t.Fatalf("RecordScenarioResult: %v", err)
	}
	if p.Stars != 3 {
		t.Errorf("stars = %d, want best-of 3", p.Stars)
	}
	if p.Completions != 2 {
		t.Errorf("completions = %d, want 2", p.Completions)
	}
}

func TestProverbDeckDeduplicates(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, id := range []string{"yo-patience", "yo-river", "yo-patience"} {
		if err := s.GrantProverb(ctx, "user-1", id); err != nil {
			t.Fatalf("GrantProverb(%s): %v", id, err)
		}
	}
	owned, err := s.OwnedProverbs(ctx, "user-1")
	if err != nil {
		t.Fatalf("OwnedProverbs: %v", err)
	}
	if len(owned) != 2 {
		t.Fatalf("got %d proverbs, want 2: %v", len(owned), owned)
	}
}

func TestVocabularyCountsAndOrders(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.RecordVocabulary(ctx, "user-1", "yo", "ẹ kú àárọ̀", "e kaaro"); err != nil {
		t.Fatalf("RecordVocabulary: %v", err)
	}
	if err := s.RecordVocabulary(ctx, "user-1", "yo", "ẹ kú àárọ̀", "e ku aaro"); err != nil {
		t.Fatalf("RecordVocabulary: %v", err)
	}
	if err := s.RecordVocabulary(ctx, "user-1", "yo", "ẹ ṣé", "e she"); err != nil {
		t.Fatalf("RecordVocabulary: %v", err)
	}

	words, err := s.Vocabulary(ctx, "user-1")
	if err != nil {
		t.Fatalf("Vocabulary: %v", err)
	}
	if len(words) != 2 {
		t.Fatalf("got %d words, want 2", len(words))
	}
	for _, w := range words {
		if w.Term == "ẹ kú àárọ̀" {
			if w.TimesUsed != 2 {
				t.Errorf("times used = %d, want 2", w.TimesUsed)
			}
			if w.Heard != "e ku aaro" {
				t.Errorf("heard = %q, want most recent spelling", w.Heard)
			}
		}
	}
}

func TestConversationsNewestFirstPerUser(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.CreateConversation(ctx, "user-1", "market-haggle", "yo")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	second, err := s.CreateConversation(ctx, "user-1", "greet-elder", "yo")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if _, err := s.CreateConversation(ctx, "user-2", "market-haggle", "yo"); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	convs, err := s.Conversations(ctx, "user-1")
	if err != nil {
		t.Fatalf("Conversations: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("got %d conversations, want 2", len(convs))
	}
	ids := map[string]bool{convs[0].ID: true, convs[1].ID: true}
	if !ids[first.ID] || !ids[second.ID] {
		t.Errorf("conversations = %v, want %s and %s", convs, first.ID, second.ID)
	}
	if convs[0].CreatedAt.Before(convs[1].CreatedAt) {
		t.Error("conversations are not newest first")
	}
}

func TestRemoveVocabulary(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.RecordVocabulary(ctx, "user-1", "yo", "ẹ ṣé", "e she"); err != nil {
		t.Fatalf("RecordVocabulary: %v", err)
	}
	if err := s.RemoveVocabulary(ctx, "user-1", "yo", "ẹ ṣé"); err != nil {
		t.Fatalf("RemoveVocabulary: %v", err)
	}
	if err := s.RemoveVocabulary(ctx, "user-1", "yo", "ẹ ṣé"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second remove: err = %v, want ErrNotFound", err)
	}

	words, err := s.Vocabulary(ctx, "user-1")
	if err != nil {
		t.Fatalf("Vocabulary: %v", err)
	}
	if len(words) != 0 {
		t.Fatalf("got %d words, want 0", len(words))
	}
}
