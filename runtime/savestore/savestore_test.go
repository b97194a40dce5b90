package savestore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPutGetRoundTrip(t *testing.T) {
	db := openTemp(t)

	require.NoError(t, db.Put("game-a", "save1", []int32{1, 2, -3, 400}))

	got, err := db.Get("game-a", "save1")
	require.NoError(t, err)
	require.Equal(t, []int32{1, 2, -3, 400}, got)
}

func TestGetMissingFileErrors(t *testing.T) {
	db := openTemp(t)

	_, err := db.Get("game-a", "nope")
	require.Error(t, err)
}

func TestPutOverwritesExisting(t *testing.T) {
	db := openTemp(t)

	require.NoError(t, db.Put("game-a", "save1", []int32{1}))
	require.NoError(t, db.Put("game-a", "save1", []int32{9, 9}))

	got, err := db.Get("game-a", "save1")
	require.NoError(t, err)
	require.Equal(t, []int32{9, 9}, got)
}

func TestListScopedByGameID(t *testing.T) {
	db := openTemp(t)

	require.NoError(t, db.Put("game-a", "save1", []int32{1}))
	require.NoError(t, db.Put("game-a", "save2", []int32{2}))
	require.NoError(t, db.Put("game-b", "save1", []int32{3}))

	names, err := db.List("game-a")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"save1", "save2"}, names)
}

func TestDeleteIsIdempotent(t *testing.T) {
	db := openTemp(t)

	require.NoError(t, db.Put("game-a", "save1", []int32{1}))
	require.NoError(t, db.Delete("game-a", "save1"))
	require.NoError(t, db.Delete("game-a", "save1"))

	_, err := db.Get("game-a", "save1")
	require.Error(t, err)
}

func TestPutEmptyBlobRoundTrips(t *testing.T) {
	db := openTemp(t)

	require.NoError(t, db.Put("game-a", "empty", nil))

	got, err := db.Get("game-a", "empty")
	require.NoError(t, err)
	require.Empty(t, got)
}
