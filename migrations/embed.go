// Package migrations embeds the SQL schema of the config revision store.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-nodeconfig/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
