// Package migrations embeds the goose SQL migrations so they ship with the
// binary and with the integration test helpers.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
