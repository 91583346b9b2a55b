// Package postgres embebe las migraciones SQL del esquema.
package postgres

import "embed"

//go:embed *.sql
var FS embed.FS
