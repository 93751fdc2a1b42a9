package migrations

import "embed"

// FS contains embedded SQLite migrations for vaccination storage.
//
//go:embed *.sql
var FS embed.FS
