package db

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered list of SQL statements to run.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS collectives (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		type       TEXT    NOT NULL DEFAULT 'COLLECTIVE',
		name       TEXT    NOT NULL DEFAULT '',
		slug       TEXT    NOT NULL UNIQUE,
		currency   TEXT    NOT NULL DEFAULT 'USD',
		image_url  TEXT    NOT NULL DEFAULT '',
		email      TEXT    NOT NULL DEFAULT '',
		balance    INTEGER,
		host_id    INTEGER REFERENCES collectives(id) ON DELETE SET NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		collective_id INTEGER NOT NULL REFERENCES collectives(id) ON DELETE CASCADE,
		user_id       INTEGER NOT NULL,
		description   TEXT    NOT NULL DEFAULT '',
		amount        INTEGER NOT NULL DEFAULT 0,
		currency      TEXT    NOT NULL DEFAULT 'USD',
		status        TEXT    NOT NULL DEFAULT 'PENDING',
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		collective_id INTEGER NOT NULL REFERENCES collectives(id) ON DELETE CASCADE,
		title         TEXT    NOT NULL,
		tags          TEXT    NOT NULL DEFAULT '',
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		expense_id         INTEGER REFERENCES expenses(id) ON DELETE CASCADE,
		conversation_id    INTEGER REFERENCES conversations(id) ON DELETE CASCADE,
		collective_id      INTEGER REFERENCES collectives(id) ON DELETE SET NULL,
		from_collective_id INTEGER NOT NULL REFERENCES collectives(id),
		html               TEXT    NOT NULL,
		created_at         DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at         DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_expense ON comments(expense_id)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_conversation ON comments(conversation_id)`,
}

// migrate runs all migrations in order. Each statement is idempotent, so
// migrate runs on every Open.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
