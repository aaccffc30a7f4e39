package testing

import (
	"database/sql"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/teranos/kbmem/db"
)

// CreateTestDB creates an in-memory SQLite test database with migrations
// applied. Automatically registers cleanup via t.Cleanup().
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.OpenWithMigrations(":memory:", zaptest.NewLogger(t).Sugar())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
	})

	return conn
}
