// Package migrations embeds the SQL migration files applied to the
// Postgres backend of internal/store via golang-migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
