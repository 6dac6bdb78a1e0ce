// Package migrations embeds the Postgres schema for the caller registry.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
