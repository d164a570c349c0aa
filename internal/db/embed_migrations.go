package db

import "embed"

// MigrationFS embeds SQL migration files from internal/db/migrations.
// cmd/migrate applies them to Postgres; CreateSchema applies the up files
// directly for SQLite.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
