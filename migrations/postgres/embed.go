// Package migrations embebe las migraciones SQL del backend PostgreSQL.
package migrations

import "embed"

// FS contiene las migraciones en formato {version}_{nombre}.sql.
//
//go:embed *.sql
var FS embed.FS
