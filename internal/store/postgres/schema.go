package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlUsers = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT         PRIMARY KEY,
    username      TEXT         NOT NULL UNIQUE,
    password_hash TEXT         NOT NULL,
    created_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

const ddlConversations = `
CREATE TABLE IF NOT EXISTS conversations (
    id          TEXT         PRIMARY KEY,
    user_id     TEXT         NOT NULL REFERENCES users (id),
    scenario_id TEXT         NOT NULL,
    language    TEXT         NOT NULL,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_conversations_user_id
    ON conversations (user_id);
`

const ddlTurns = `
CREATE TABLE IF NOT EXISTS turns (
    conversation_id TEXT      NOT NULL REFERENCES conversations (id),
    turn_number     INTEGER   NOT NULL,
    payload         JSONB     NOT NULL,
    PRIMARY KEY (conversation_id, turn_number)
);
`

const ddlProgress = `
CREATE TABLE IF NOT EXISTS scenario_progress (
    user_id     TEXT         NOT NULL REFERENCES users (id),
    scenario_id TEXT         NOT NULL,
    stars       INTEGER      NOT NULL DEFAULT 0,
    completions INTEGER      NOT NULL DEFAULT 0,
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (user_id, scenario_id)
);

CREATE TABLE IF NOT EXISTS proverb_deck (
    user_id    TEXT  NOT NULL REFERENCES users (id),
    proverb_id TEXT  NOT NULL,
    PRIMARY KEY (user_id, proverb_id)
);

CREATE TABLE IF NOT EXISTS vocabulary (
    user_id    TEXT         NOT NULL REFERENCES users (id),
    language   TEXT         NOT NULL,
    term       TEXT         NOT NULL,
    heard      TEXT         NOT NULL DEFAULT '',
    times_used INTEGER      NOT NULL DEFAULT 0,
    first_used TIMESTAMPTZ  NOT NULL DEFAULT now(),
    last_used  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (user_id, language, term)
);
`

// Migrate creates all griot tables and indexes. Every statement is
// idempotent, so running Migrate against an up-to-date database is safe.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		ddlUsers,
		ddlConversations,
		ddlTurns,
		ddlProgress,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
