// internal/repository/postgres/run_repository_test.go
package postgres

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"
)

// newTestDB opens an in-memory sqlite database with the allocation_runs
// table so repository queries run against a real sql driver.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	sqlxDB, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlxDB.Close() })

	_, err = sqlxDB.Exec(`
		CREATE TABLE allocation_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category_id BIGINT,
			sku_id TEXT,
			brand_id TEXT,
			forward_cover DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_shipped DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_need DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_unmet DOUBLE PRECISION NOT NULL DEFAULT 0,
			line_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	require.NoError(t, err)

	return &DB{
		DB:  sqlxDB,
		sem: semaphore.NewWeighted(1),
	}
}

func TestGetRunMissingIDReturnsNil(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))

	run, err := repo.GetRun(context.Background(), 99)

	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestGetRunReturnsStoredRun(t *testing.T) {
	db := newTestDB(t)
	repo := NewRunRepository(db)

	_, err := db.Exec(`
		INSERT INTO allocation_runs (forward_cover, total_shipped, total_need, total_unmet, line_count)
		VALUES (7, 18, 18, 0, 2)
	`)
	require.NoError(t, err)

	run, err := repo.GetRun(context.Background(), 1)

	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, int64(1), run.ID)
	assert.Equal(t, 7.0, run.ForwardCover)
	assert.Equal(t, 18.0, run.TotalShipped)
	assert.Equal(t, 2, run.LineCount)
}
