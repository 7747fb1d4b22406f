// Package db embeds the SQL migrations, one directory per database driver.
package db

import "embed"

//go:embed migrations
var Migrations embed.FS
