package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS teams (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		deleted_at TIMESTAMP WITH TIME ZONE
	)`,

	// first_name, last_name and email hold ciphertext; email_index is the
	// keyed blind index used for lookups and uniqueness.
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL,
		email_index CHAR(64) NOT NULL UNIQUE,
		password VARCHAR(255) NOT NULL,
		email_verified_at TIMESTAMP WITH TIME ZONE,
		active_team_id BIGINT REFERENCES teams(id) ON DELETE SET NULL,
		remember_token VARCHAR(100),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		deleted_at TIMESTAMP WITH TIME ZONE
	)`,

	`CREATE TABLE IF NOT EXISTS permissions (
		id BIGSERIAL PRIMARY KEY,
		team_id BIGINT REFERENCES teams(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		guard_name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(name, guard_name)
	)`,

	`CREATE TABLE IF NOT EXISTS roles (
		id BIGSERIAL PRIMARY KEY,
		team_id BIGINT REFERENCES teams(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		guard_name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE NULLS NOT DISTINCT (team_id, name, guard_name)
	)`,

	`CREATE TABLE IF NOT EXISTS role_has_permissions (
		permission_id BIGINT NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
		role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
		PRIMARY KEY (permission_id, role_id)
	)`,

	`CREATE TABLE IF NOT EXISTS model_has_roles (
		role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
		model_type VARCHAR(255) NOT NULL,
		model_id BIGINT NOT NULL,
		team_id BIGINT REFERENCES teams(id) ON DELETE CASCADE,
		UNIQUE NULLS NOT DISTINCT (team_id, role_id, model_id, model_type)
	)`,

	`CREATE TABLE IF NOT EXISTS model_has_permissions (
		permission_id BIGINT NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
		model_type VARCHAR(255) NOT NULL,
		model_id BIGINT NOT NULL,
		team_id BIGINT REFERENCES teams(id) ON DELETE CASCADE,
		UNIQUE NULLS NOT DISTINCT (team_id, permission_id, model_id, model_type)
	)`,

	// role_name is a display snapshot of roles.name, rewritten on every
	// assignment and on role rename.
	`CREATE TABLE IF NOT EXISTS team_user (
		id BIGSERIAL PRIMARY KEY,
		team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role_id BIGINT NOT NULL REFERENCES roles(id),
		role_name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(team_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id UUID PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash VARCHAR(255) NOT NULL UNIQUE,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_team_user_user_id ON team_user(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_model_has_roles_model ON model_has_roles(model_id, model_type)`,
	`CREATE INDEX IF NOT EXISTS idx_model_has_permissions_model ON model_has_permissions(model_id, model_type)`,
	`CREATE INDEX IF NOT EXISTS idx_users_deleted_at ON users(deleted_at)`,
	`CREATE INDEX IF NOT EXISTS idx_teams_deleted_at ON teams(deleted_at)`,
	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens(user_id)`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
