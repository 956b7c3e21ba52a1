// Package migrations embeds the SQL schema migrations for the order sink.
package migrations

import "embed"

// FS holds every *.sql migration.
//
//go:embed *.sql
var FS embed.FS
