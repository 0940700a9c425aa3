// Package testhelpers seeds the source tables for integration tests.
package testhelpers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/seoul-location-services/internal/domain"
)

// LoadFixtures executes SQL fixture files from fixturesPath in the given order.
func LoadFixtures(db *sqlx.DB, fixturesPath string, files ...string) error {
	for _, file := range files {
		content, err := os.ReadFile(filepath.Join(fixturesPath, file))
		if err != nil {
			return fmt.Errorf("read fixture %s: %w", file, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("load fixture %s: %w", file, err)
		}
	}
	return nil
}

// TruncateSources empties every table of the registry.
func TruncateSources(db *sqlx.DB, registry *domain.SourceRegistry) error {
	descriptors := registry.Descriptors()
	tables := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		tables = append(tables, pq.QuoteIdentifier(d.Table))
	}

	if _, err := db.Exec("TRUNCATE " + strings.Join(tables, ", ")); err != nil {
		return fmt.Errorf("truncate sources: %w", err)
	}
	return nil
}

// CountRows returns the row count of one kind's table.
func CountRows(db *sqlx.DB, registry *domain.SourceRegistry, kind domain.SourceKind) (int, error) {
	d, ok := registry.Descriptor(kind)
	if !ok {
		return 0, fmt.Errorf("unknown source kind %q", kind)
	}

	var n int
	if err := db.Get(&n, "SELECT COUNT(*) FROM "+pq.QuoteIdentifier(d.Table)); err != nil {
		return 0, fmt.Errorf("count %s: %w", d.Table, err)
	}
	return n, nil
}
