package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the Postgres schema steps, registered by the numbered files.
var Migrations = migrate.NewMigrations()
