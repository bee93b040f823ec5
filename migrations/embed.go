// Package migrations embeds the goose migration scripts so binaries can
// apply them without a copy of the source tree on disk.
package migrations

import "embed"

// Files holds the SQL migration scripts.
//
//go:embed *.sql
var Files embed.FS
