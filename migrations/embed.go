// Package migrations holds the PostgreSQL schema applied by the store.
package migrations

import "embed"

// FS contains every *.sql file in this directory.
//
//go:embed *.sql
var FS embed.FS
