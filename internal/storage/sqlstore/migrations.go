package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist. The same statements are valid
// for SQLite and PostgreSQL: booleans are INTEGER 0/1 and money is TEXT
// holding an exact decimal.
// IMPORTANT: members and chat_groups must be created BEFORE expenses due to
// foreign key constraints.
const schema = `
CREATE TABLE IF NOT EXISTS chat_groups (
    id BIGINT PRIMARY KEY,
    username TEXT NOT NULL DEFAULT '',
    default_price TEXT,
    default_expense TEXT,
    default_action TEXT,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS members (
    id BIGINT PRIMARY KEY,
    username TEXT NOT NULL DEFAULT '',
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS balances (
    member_id BIGINT NOT NULL,
    group_id BIGINT NOT NULL,
    amount TEXT NOT NULL DEFAULT '0',
    updated_at BIGINT NOT NULL,
    PRIMARY KEY (member_id, group_id),
    FOREIGN KEY (member_id) REFERENCES members(id),
    FOREIGN KEY (group_id) REFERENCES chat_groups(id)
);

CREATE TABLE IF NOT EXISTS expenses (
    id TEXT PRIMARY KEY,
    group_id BIGINT NOT NULL,
    message_id BIGINT,
    price TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    action_name TEXT NOT NULL DEFAULT '',
    created_by BIGINT NOT NULL,
    pay_by BIGINT,
    is_free INTEGER NOT NULL DEFAULT 0,
    is_finished INTEGER NOT NULL DEFAULT 0,
    is_deleted INTEGER NOT NULL DEFAULT 0,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL,
    FOREIGN KEY (group_id) REFERENCES chat_groups(id),
    FOREIGN KEY (created_by) REFERENCES members(id),
    FOREIGN KEY (pay_by) REFERENCES members(id)
);

CREATE TABLE IF NOT EXISTS participants (
    expense_id TEXT NOT NULL,
    member_id BIGINT NOT NULL,
    position BIGINT NOT NULL,
    PRIMARY KEY (expense_id, member_id),
    FOREIGN KEY (expense_id) REFERENCES expenses(id) ON DELETE CASCADE,
    FOREIGN KEY (member_id) REFERENCES members(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_expenses_group_message ON expenses(group_id, message_id);
CREATE INDEX IF NOT EXISTS idx_participants_expense_id ON participants(expense_id);
CREATE INDEX IF NOT EXISTS idx_balances_group_id ON balances(group_id);
CREATE INDEX IF NOT EXISTS idx_chat_groups_username ON chat_groups(username);
`

// runMigrations executes the schema setup one statement at a time.
func runMigrations(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
