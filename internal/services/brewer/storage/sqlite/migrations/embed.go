package migrations

import "embed"

// FS contains embedded SQLite migrations for brewer storage.
//
//go:embed *.sql
var FS embed.FS
