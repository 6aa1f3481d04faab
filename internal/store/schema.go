package store

import (
	"database/sql"
	"fmt"
)

// The schema is bootstrapped on open. Composite uniqueness constraints
// carry the data-model invariants: one reaction row per (ticket, emoji),
// one response row per (session, user), one timer per session, and the
// exactly-one-target CHECK on votes.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT,
	color      TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	description   TEXT,
	template      TEXT NOT NULL,
	is_anonymous  INTEGER NOT NULL DEFAULT 0,
	invite_code   TEXT NOT NULL UNIQUE,
	current_phase TEXT NOT NULL,
	created_by    TEXT NOT NULL,
	config        TEXT NOT NULL DEFAULT '{}',
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS participants (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	user_id    TEXT NOT NULL REFERENCES users(id),
	role       TEXT NOT NULL,
	is_ready   INTEGER NOT NULL DEFAULT 0,
	joined_at  DATETIME NOT NULL,
	UNIQUE(session_id, user_id)
);

CREATE TABLE IF NOT EXISTS columns (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	title      TEXT NOT NULL,
	color      TEXT NOT NULL,
	position   INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tickets (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES sessions(id),
	column_id   TEXT NOT NULL REFERENCES columns(id),
	author_id   TEXT NOT NULL,
	content     TEXT NOT NULL,
	color       TEXT,
	is_revealed INTEGER NOT NULL DEFAULT 0,
	position    INTEGER NOT NULL,
	group_id    TEXT,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS ticket_groups (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	title      TEXT,
	position   INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS comments (
	id         TEXT PRIMARY KEY,
	ticket_id  TEXT NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
	author_id  TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS reactions (
	id         TEXT PRIMARY KEY,
	ticket_id  TEXT NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
	emoji      TEXT NOT NULL,
	count      INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	UNIQUE(ticket_id, emoji)
);

CREATE TABLE IF NOT EXISTS votes (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	user_id    TEXT NOT NULL,
	ticket_id  TEXT,
	group_id   TEXT,
	created_at DATETIME NOT NULL,
	CHECK ((ticket_id IS NULL) != (group_id IS NULL))
);

CREATE TABLE IF NOT EXISTS actions (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES sessions(id),
	ticket_id   TEXT,
	title       TEXT NOT NULL,
	description TEXT,
	assignee_id TEXT,
	status      TEXT NOT NULL DEFAULT 'proposed',
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS action_items (
	id              TEXT PRIMARY KEY,
	session_id      TEXT NOT NULL REFERENCES sessions(id),
	title           TEXT NOT NULL,
	description     TEXT,
	assigned_to     TEXT,
	is_done         INTEGER NOT NULL DEFAULT 0,
	from_session_id TEXT,
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS icebreaker_responses (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	user_id    TEXT NOT NULL,
	response   TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	UNIQUE(session_id, user_id)
);

CREATE TABLE IF NOT EXISTS welcome_votes (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	user_id    TEXT NOT NULL,
	rating     INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	UNIQUE(session_id, user_id)
);

CREATE TABLE IF NOT EXISTS roti_votes (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	user_id    TEXT NOT NULL,
	rating     INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	UNIQUE(session_id, user_id)
);

CREATE TABLE IF NOT EXISTS timers (
	id             TEXT PRIMARY KEY,
	session_id     TEXT NOT NULL UNIQUE REFERENCES sessions(id),
	duration       INTEGER NOT NULL,
	remaining_time INTEGER NOT NULL,
	is_running     INTEGER NOT NULL DEFAULT 0,
	started_at     DATETIME,
	updated_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_columns_session   ON columns(session_id);
CREATE INDEX IF NOT EXISTS idx_tickets_session   ON tickets(session_id);
CREATE INDEX IF NOT EXISTS idx_tickets_column    ON tickets(column_id);
CREATE INDEX IF NOT EXISTS idx_tickets_group     ON tickets(group_id);
CREATE INDEX IF NOT EXISTS idx_groups_session    ON ticket_groups(session_id);
CREATE INDEX IF NOT EXISTS idx_comments_ticket   ON comments(ticket_id);
CREATE INDEX IF NOT EXISTS idx_votes_session     ON votes(session_id);
CREATE INDEX IF NOT EXISTS idx_actions_session   ON actions(session_id);
CREATE INDEX IF NOT EXISTS idx_items_session     ON action_items(session_id);
CREATE INDEX IF NOT EXISTS idx_participants_sess ON participants(session_id);
`

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

func bootstrap(db *sql.DB) error {
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("executing %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}
