// Package migrations embeds the goose SQL migrations applied by
// internal/store.RunMigrations.
package migrations

import "embed"

// FS holds every *.sql migration file in this directory.
//
//go:embed *.sql
var FS embed.FS
