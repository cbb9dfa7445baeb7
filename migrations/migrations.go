package migrations

import "embed"

// FS holds the SQL migrations applied by store.Migrate.
//
//go:embed *.sql
var FS embed.FS

const Version = 1
