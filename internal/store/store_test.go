package store

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func setupStores(t *testing.T) (*UserStore, *FavoriteStore) {
	t.Helper()

	db := setupTestDB(t)
	return NewUserStore(db, bcrypt.MinCost), NewFavoriteStore(db)
}

func TestCheck(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.Check(context.Background()))
}

func TestCheckClosedDatabase(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	assert.Error(t, db.Check(context.Background()))
}

func TestConflictLogsOnce(t *testing.T) {
	users, favs := setupStores(t)
	id := createUser(t, users, "alice")
	require.NoError(t, favs.AddFavorite(context.Background(), id, "Boston"))

	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	err := favs.AddFavorite(context.Background(), id, "Boston")
	require.ErrorIs(t, err, ErrConflict)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "ERROR:"), out)
	assert.NotContains(t, out, "UNIQUE constraint")
	assert.NotContains(t, out, "\x1b[")
}
