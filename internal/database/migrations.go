// internal/database/migrations.go
package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// migration holds a single schema migration with its target version and SQL.
// The DDL sticks to types both postgres and sqlite understand.
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY,
	email       TEXT NOT NULL UNIQUE,
	full_name   TEXT NOT NULL,
	system_role TEXT NOT NULL DEFAULT 'user',
	created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS space_members (
	space_id   TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	role       TEXT NOT NULL DEFAULT 'member',
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (space_id, user_id)
);

CREATE TABLE IF NOT EXISTS project_members (
	project_id TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	role       TEXT NOT NULL DEFAULT 'member',
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (project_id, user_id)
);

CREATE TABLE IF NOT EXISTS tasks (
	id             TEXT PRIMARY KEY,
	space_id       TEXT NOT NULL,
	project_id     TEXT NOT NULL,
	owner_id       TEXT NOT NULL,
	assignee_id    TEXT NOT NULL,
	name           TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'pending',
	priority       TEXT NOT NULL DEFAULT 'medium',
	start_date     TIMESTAMP,
	due_date       TIMESTAMP,
	completed_at   TIMESTAMP,
	approved_by    TEXT,
	approved_at    TIMESTAMP,
	rejected_by    TEXT,
	rejected_at    TIMESTAMP,
	review_comment TEXT,
	attachments    TEXT NOT NULL DEFAULT '[]',
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id           TEXT PRIMARY KEY,
	recipient_id TEXT NOT NULL,
	actor_id     TEXT,
	actor_name   TEXT,
	type         TEXT NOT NULL,
	data         TEXT NOT NULL DEFAULT '{}',
	is_read      BOOLEAN NOT NULL DEFAULT FALSE,
	read_at      TIMESTAMP,
	created_at   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
CREATE INDEX IF NOT EXISTS idx_tasks_space ON tasks(space_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee_id);
CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, is_read);
CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at);
CREATE INDEX IF NOT EXISTS idx_users_system_role ON users(system_role);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}

// Migrate checks the current schema version and applies any outstanding
// migrations in order.
func Migrate(db *sqlx.DB) error {
	currentVersion := 0

	var exists int
	err := db.Get(&exists, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'`)
	if err != nil {
		// Not sqlite; ask postgres instead.
		err = db.Get(&exists, `SELECT COUNT(*) FROM information_schema.tables WHERE table_name='schema_version'`)
		if err != nil {
			return fmt.Errorf("checking schema_version table: %w", err)
		}
	}
	if exists > 0 {
		if err := db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration %d: %w", m.version, err)
		}
	}

	return nil
}
