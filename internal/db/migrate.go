package db

import (
	"context"
	"fmt"
)

const (
	emailUniqueIndex   = "users_email_lower_unique"
	accountUniqueIndex = "oauth_accounts_provider_unique"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id uuid PRIMARY KEY,
    email text NOT NULL,
    hashed_password text NOT NULL,
    is_active boolean NOT NULL DEFAULT true,
    is_verified boolean NOT NULL DEFAULT false,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS ` + emailUniqueIndex + `
ON users (LOWER(email));

CREATE TABLE IF NOT EXISTS oauth_accounts (
    id uuid PRIMARY KEY,
    user_id uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    oauth_name text NOT NULL,
    account_id text NOT NULL,
    account_email text NOT NULL DEFAULT '',
    access_token text NOT NULL,
    refresh_token text NOT NULL DEFAULT '',
    expires_at timestamptz,
    claims jsonb NOT NULL DEFAULT '{}'::jsonb,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS ` + accountUniqueIndex + `
ON oauth_accounts (oauth_name, account_id);

CREATE INDEX IF NOT EXISTS oauth_accounts_user_id_idx
ON oauth_accounts (user_id);
`

// Migrate creates the schema. It is idempotent.
func Migrate(ctx context.Context, d *DB) error {
	if _, err := d.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}
