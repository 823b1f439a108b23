// Package migrations embeds the SQL migration and seed files so cmd/migrate
// can run without the source tree on disk.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sql seeds
var files embed.FS

// SQL returns the embedded migration files.
func SQL() fs.FS {
	sub, err := fs.Sub(files, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

// Seeds returns the embedded seed files.
func Seeds() fs.FS {
	sub, err := fs.Sub(files, "seeds")
	if err != nil {
		panic(err)
	}
	return sub
}
