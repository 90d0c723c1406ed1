// Package migrations embeds the database schema so tooling and test
// harnesses apply the same DDL the deployment does.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Schema returns the full DDL in migration order.
func Schema() string {
	entries, err := fs.Glob(files, "*.sql")
	if err != nil {
		panic(err)
	}
	sort.Strings(entries)

	var b strings.Builder
	for _, name := range entries {
		data, err := files.ReadFile(name)
		if err != nil {
			panic(err)
		}
		b.Write(data)
		b.WriteString("\n")
	}
	return b.String()
}
