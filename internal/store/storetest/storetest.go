// Package storetest opens isolated in-memory databases for tests.
package storetest

import (
	"context"
	"testing"

	sqliteDialector "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/tyemirov/elearning/internal/store"
)

// Open returns a migrated in-memory SQLite database private to the calling test.
func Open(t *testing.T) *store.Database {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	database, err := store.OpenDialector(context.Background(), sqliteDialector.Open(dsn), "sqlite")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}
