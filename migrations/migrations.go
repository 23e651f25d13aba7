// Package migrations embeds the schema for every supported SQL driver.
package migrations

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed mysql/*.sql postgres/*.sql
var FS embed.FS

// Source returns the golang-migrate source for driver ("mysql" or "postgres")
func Source(driver string) (source.Driver, error) {
	switch driver {
	case "mysql", "postgres":
		return iofs.New(FS, driver)
	default:
		return nil, fmt.Errorf("no migrations for driver %q", driver)
	}
}
