// Package postgres is the production [store.Store] backed by PostgreSQL via
// pgx. All tables share a single [pgxpool.Pool]; [Migrate] creates the schema
// on startup.
//
// Usage:
//
//	st, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer st.Close()
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/griotlabs/griot/internal/store"
	"github.com/griotlabs/griot/internal/tutor"
)

var _ store.Store = (*Store)(nil)

// Store is a PostgreSQL-backed store. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn, verifies the connection and runs
// the schema migration.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// Pool exposes the underlying connection pool, e.g. for health probes.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close releases the connection pool.
func (s *Store) Close() { s.pool.Close() }

// CreateUser implements [store.UserStore].
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	const q = `
		INSERT INTO users (id, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	u := &store.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
	}
	if err := s.pool.QueryRow(ctx, q, u.ID, username, passwordHash).Scan(&u.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, fmt.Errorf("postgres: create user: %w", err)
	}
	return u, nil
}

// UserByName implements [store.UserStore].
func (s *Store) UserByName(ctx context.Context, username string) (*store.User, error) {
	const q = `SELECT id, username, password_hash, created_at FROM users WHERE username = $1`
	return s.scanUser(s.pool.QueryRow(ctx, q, username))
}

// UserByID implements [store.UserStore].
func (s *Store) UserByID(ctx context.Context, id string) (*store.User, error) {
	const q = `SELECT id, username, password_hash, created_at FROM users WHERE id = $1`
	return s.scanUser(s.pool.QueryRow(ctx, q, id))
}

func (s *Store) scanUser(row pgx.Row) (*store.User, error) {
	var u store.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: scan user: %w", err)
	}
	return &u, nil
}

// CreateConversation implements [store.ConversationStore].
func (s *Store) CreateConversation(ctx context.Context, userID, scenarioID, language string) (*store.Conversation, error) {
	const q = `
		INSERT INTO conversations (id, user_id, scenario_id, language)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	c := &store.Conversation{
		ID:         uuid.NewString(),
		UserID:     userID,
		ScenarioID: scenarioID,
		Language:   language,
	}
	if err := s.pool.QueryRow(ctx, q, c.ID, userID, scenarioID, language).Scan(&c.CreatedAt); err != nil {
		return nil, fmt.Errorf("postgres: create conversation: %w", err)
	}
	return c, nil
}

// Conversation implements [store.ConversationStore].
func (s *Store) Conversation(ctx context.Context, id string) (*store.Conversation, error) {
	const q = `
		SELECT id, user_id, scenario_id, language, created_at
		FROM   conversations
		WHERE  id = $1`

	var c store.Conversation
	err := s.pool.QueryRow(ctx, q, id).Scan(&c.ID, &c.UserID, &c.ScenarioID, &c.Language, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get conversation: %w", err)
	}
	return &c, nil
}

// Conversations implements [store.ConversationStore].
func (s *Store) Conversations(ctx context.Context, userID string) ([]store.Conversation, error) {
	const q = `
		SELECT id, user_id, scenario_id, language, created_at
		FROM   conversations
		WHERE  user_id = $1
		ORDER  BY created_at DESC, id`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list conversations: %w", err)
	}
	convs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Conversation, error) {
		var c store.Conversation
		err := row.Scan(&c.ID, &c.UserID, &c.ScenarioID, &c.Language, &c.CreatedAt)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan conversations: %w", err)
	}
	if convs == nil {
		convs = []store.Conversation{}
	}
	return convs, nil
}

// UpsertTurn implements [store.ConversationStore]. The turn payload is stored
// as JSONB; resubmitting a turn number overwrites the previous payload.
func (s *Store) UpsertTurn(ctx context.Context, turn store.StoredTurn) error {
	payload, err := json.Marshal(turn.TurnResult)
	if err != nil {
		return fmt.Errorf("postgres: marshal turn: %w", err)
	}

	const q = `
		INSERT INTO turns (conversation_id, turn_number, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (conversation_id, turn_number)
		DO UPDATE SET payload = EXCLUDED.payload`

	if _, err := s.pool.Exec(ctx, q, turn.ConversationID, turn.TurnNumber, payload); err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("postgres: upsert turn: %w", err)
	}
	return nil
}

// Turns implements [store.ConversationStore].
func (s *Store) Turns(ctx context.Context, conversationID string) ([]store.StoredTurn, error) {
	if _, err := s.Conversation(ctx, conversationID); err != nil {
		return nil, err
	}

	const q = `
		SELECT payload
		FROM   turns
		WHERE  conversation_id = $1
		ORDER  BY turn_number`

	rows, err := s.pool.Query(ctx, q, conversationID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list turns: %w", err)
	}
	turns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.StoredTurn, error) {
		var payload []byte
		if err := row.Scan(&payload); err != nil {
			return store.StoredTurn{}, err
		}
		var tr tutor.TurnResult
		if err := json.Unmarshal(payload, &tr); err != nil {
			return store.StoredTurn{}, err
		}
		return store.StoredTurn{ConversationID: conversationID, TurnResult: tr}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan turns: %w", err)
	}
	if turns == nil {
		turns = []store.StoredTurn{}
	}
	return turns, nil
}

// RecordScenarioResult implements [store.ProgressStore]. Stars are
// best-of-all-runs; the completion counter always increments.
func (s *Store) RecordScenarioResult(ctx context.Context, userID, scenarioID string, stars int) (*store.ScenarioProgress, error) {
	const q = `
		INSERT INTO scenario_progress (user_id, scenario_id, stars, completions, updated_at)
		VALUES ($1, $2, $3, 1, now())
		ON CONFLICT (user_id, scenario_id)
		DO UPDATE SET
		    stars       = GREATEST(scenario_progress.stars, EXCLUDED.stars),
		    completions = scenario_progress.completions + 1,
		    updated_at  = now()
		RETURNING scenario_id, stars, completions, updated_at`

	var p store.ScenarioProgress
	err := s.pool.QueryRow(ctx, q, userID, scenarioID, stars).
		Scan(&p.ScenarioID, &p.Stars, &p.Completions, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: record scenario result: %w", err)
	}
	return &p, nil
}

// Progress implements [store.ProgressStore].
func (s *Store) Progress(ctx context.Context, userID string) ([]store.ScenarioProgress, error) {
	const q = `
		SELECT scenario_id, stars, completions, updated_at
		FROM   scenario_progress
		WHERE  user_id = $1
		ORDER  BY scenario_id`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list progress: %w", err)
	}
	progress, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.ScenarioProgress, error) {
		var p store.ScenarioProgress
		err := row.Scan(&p.ScenarioID, &p.Stars, &p.Completions, &p.UpdatedAt)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan progress: %w", err)
	}
	if progress == nil {
		progress = []store.ScenarioProgress{}
	}
	return progress, nil
}

// GrantProverb implements [store.ProgressStore].
func (s *Store) GrantProverb(ctx context.Context, userID, proverbID string) error {
	const q = `
		INSERT INTO proverb_deck (user_id, proverb_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	if _, err := s.pool.Exec(ctx, q, userID, proverbID); err != nil {
		return fmt.Errorf("postgres: grant proverb: %w", err)
	}
	return nil
}

// OwnedProverbs implements [store.ProgressStore].
func (s *Store) OwnedProverbs(ctx context.Context, userID string) ([]string, error) {
	const q = `SELECT proverb_id FROM proverb_deck WHERE user_id = $1 ORDER BY proverb_id`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list proverbs: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: scan proverbs: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// RecordVocabulary implements [store.ProgressStore].
func (s *Store) RecordVocabulary(ctx context.Context, userID, language, term, heard string) error {
	const q = `
		INSERT INTO vocabulary (user_id, language, term, heard, times_used)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (user_id, language, term)
		DO UPDATE SET
		    heard      = EXCLUDED.heard,
		    times_used = vocabulary.times_used + 1,
		    last_used  = now()`

	if _, err := s.pool.Exec(ctx, q, userID, language, term, heard); err != nil {
		return fmt.Errorf("postgres: record vocabulary: %w", err)
	}
	return nil
}

// Vocabulary implements [store.ProgressStore].
func (s *Store) Vocabulary(ctx context.Context, userID string) ([]store.VocabularyWord, error) {
	const q = `
		SELECT language, term, heard, times_used, first_used, last_used
		FROM   vocabulary
		WHERE  user_id = $1
		ORDER  BY last_used DESC, term`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list vocabulary: %w", err)
	}
	words, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.VocabularyWord, error) {
		var w store.VocabularyWord
		err := row.Scan(&w.Language, &w.Term, &w.Heard, &w.TimesUsed, &w.FirstUsed, &w.LastUsed)
		return w, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan vocabulary: %w", err)
	}
	if words == nil {
		words = []store.VocabularyWord{}
	}
	return words, nil
}

// RemoveVocabulary implements [store.ProgressStore].
func (s *Store) RemoveVocabulary(ctx context.Context, userID, language, term string) error {
	const q = `DELETE FROM vocabulary WHERE user_id = $1 AND language = $2 AND term = $3`

	tag, err := s.pool.Exec(ctx, q, userID, language, term)
	if err != nil {
		return fmt.Errorf("postgres: remove vocabulary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
