package repository

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/certledger/certledger/internal/db"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.RunMigrations(database))

	return database
}
